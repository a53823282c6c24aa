package start

import (
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/equestria-cloud/equestria/api"
	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/equestria-cloud/equestria/internal/pipelinedef"
	"github.com/equestria-cloud/equestria/internal/poller"
	"github.com/equestria-cloud/equestria/pkg/db"
	"github.com/equestria-cloud/equestria/pkg/env"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start an equestria portal instance"
	long    = "This command starts an equestria speech processing portal instance"
	example = "equestria start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "begin"},
		Example:    example,
		RunE:       start,
	}
)

var cancel context.CancelFunc

func start(cmd *cobra.Command, args []string) error {
	signalChan := make(chan os.Signal, 1)

	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			case syscall.SIGINT:
				log.Info("gracefully shutting down due to SIGINT signal")
				shutdown()
				os.Exit(0)
			}
		}
	}()

	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT)

	var errs = make(chan error)
	ctx, cancelFunc := context.WithCancel(context.Background())
	cancel = cancelFunc

	conn := db.Connection()

	log.Info("migrating database")
	if err := db.Migrate(conn); err != nil {
		log.Fatal("database migration failure", "error", err)
	}

	vars := env.Variables()

	if vars.PipelineDefs != "" {
		log.Info("applying pipeline definitions", "path", vars.PipelineDefs)

		applied, err := pipelinedef.NewImporter(conn).ApplyPath(ctx, vars.PipelineDefs)
		if err != nil {
			log.Fatal("pipeline definition failure", "error", err)
		}

		for i := range applied {
			log.Info("pipeline applied", "name", applied[i].Name)
		}
	}

	go func() {
		log.Info("spinning up api")
		errs <- api.Start(ctx)
	}()

	go func() {
		log.Info("launching background poller", "interval", vars.PollInterval)

		p, err := poller.New(psvc.Service(ctx), vars.PollInterval)
		if err != nil {
			errs <- err
			return
		}

		p.Run(ctx)
	}()

	defer shutdown()

	return <-errs
}

func shutdown() {
	if cancel != nil {
		cancel()
	}
	if err := api.Shutdown(context.Background()); err != nil {
		log.Error("api shutdown failure", "error", err)
	}
}
