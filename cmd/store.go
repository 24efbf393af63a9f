package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/tracker"
)

func newStoreCmd() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Work with the local copy of a backing store",
	}
	storeCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Fast-forward the local copy to the remote",
		Long: `Fetch the backing store and fast-forward the local copy.

Sync refuses to merge: when local and remote history have diverged it fails
and leaves the local copy untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				if err := a.svc.Sync(cmd.Context(), ref); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", ref)
				return nil
			})
		},
	})
	return storeCmd
}
