package process

import (
	"sync"

	"github.com/google/uuid"
)

// Every state machine entrypoint takes the process lock,
// so a scheduled poll can never interleave with a start or
// a download on the same process.
var locks = struct {
	sync.Mutex
	m map[uuid.UUID]*sync.Mutex
}{m: make(map[uuid.UUID]*sync.Mutex)}

func lockProcess(id uuid.UUID) *sync.Mutex {
	locks.Lock()
	defer locks.Unlock()

	mu, ok := locks.m[id]
	if !ok {
		mu = &sync.Mutex{}
		locks.m[id] = mu
	}

	return mu
}
