package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newUploadCmd creates the 'upload' parent command.
func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Post a staged run to the search engine",
	}
	for _, entity := range []string{"problem", "user", "submission"} {
		cmd.AddCommand(newUploadEntityCmd(entity))
	}
	return cmd
}

func newUploadEntityCmd(entity string) *cobra.Command {
	var (
		flags indexFlags
		runID string
	)
	cmd := &cobra.Command{
		Use:   entity,
		Short: fmt.Sprintf("Post the staged %s batches", entity),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := newIndexService(cmd.Context(), a, entity, true)
			if err != nil {
				return err
			}
			return svc.Upload(cmd.Context(), entity, runID, flags.options(cmd, a))
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "sealed staged run id (default newest sealed run)")
	return cmd
}
