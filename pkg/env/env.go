package env

import (
	"time"

	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for equestria.
func Process() error {
	if err := envconfig.Process("equestria", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by equestria.
type Environment struct {
	LogLevel     string        `default:"info"`
	Port         int           `default:"8080"`
	DatabaseType string        `default:"postgres"`
	DatabaseDSN  string        `default:"host=postgres user=postgres password=postgres dbname=equestria port=5432 sslmode=disable"`
	DataFolder   string        `default:"/var/lib/equestria/userdata"`
	PollInterval time.Duration `default:"30s"`
	Timezone     string        `default:"Europe/Amsterdam"`
	PipelineDefs string        `default:""`
}
