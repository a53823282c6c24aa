package pipeline

import "github.com/spf13/cobra"

// Cmd is the parent command for pipeline operations.
var Cmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Manage pipeline definitions",
}

func init() {
	Cmd.AddCommand(applyCmd)
}
