package cmd

import (
	"github.com/equestria-cloud/equestria/cmd/pipeline"
	"github.com/equestria-cloud/equestria/cmd/start"
	"github.com/spf13/cobra"
)

var cmds = []*cobra.Command{
	start.Cmd,
	pipeline.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use: "equestria",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.Execute()
}
