package pipeline

import (
	"fmt"

	"github.com/equestria-cloud/equestria/internal/pipelinedef"
	"github.com/equestria-cloud/equestria/pkg/db"
	"github.com/spf13/cobra"
)

var applyPath string

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pipeline definitions from a file or directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn := db.Connection()

		if err := db.Migrate(conn); err != nil {
			return err
		}

		applied, err := pipelinedef.NewImporter(conn).ApplyPath(cmd.Context(), applyPath)
		if err != nil {
			return err
		}

		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No new pipeline definitions found.")
			return nil
		}

		for i := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "Applied pipeline %s\n", applied[i].Name)
		}

		return nil
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyPath, "file", "f", ".", "Path to a pipeline definition file or directory")
}
