package main

import (
	"github.com/equestria-cloud/equestria/cmd"
	"github.com/equestria-cloud/equestria/pkg/env"
	"github.com/equestria-cloud/equestria/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("equestria failure", "error", err)
	}
}
