package process

import (
	"errors"
	"fmt"
)

// ValidationError reports an input-template constraint the
// project folder violates. It is a caller error: the
// system never retries it.
type ValidationError struct {
	Template string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v for template %q", e.Reason, e.Template)
}

// RemoteError wraps a failure of the remote CLAM service.
// Callers decide whether to retry.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("clam %v failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a template
// validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRemote reports whether err originated at the remote
// service.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
