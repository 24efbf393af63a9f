// Package cmd provides the command-line interface for attractor.
package cmd

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "attractor",
		Short: "Attractor keeps project issues in a git-backed store",
		Long: `Attractor is a CLI tool that tracks issues, comments, labels and milestones
as JSON documents inside a private GitHub repository bound to a project folder.
Every change is committed and pushed, so the repository is the shared source of truth.

Issues can be handed to the amplifier analysis tool, whose answer is written
back to the issue as a comment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("repository", "r", "", "backing store repository (e.g., 'octocat/attractor-store-demo')")
	rootCmd.PersistentFlags().StringP("project", "p", ".", "project folder bound to a backing store")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	rootCmd.AddCommand(
		newIssueCmd(),
		newCommentCmd(),
		newLabelCmd(),
		newMilestoneCmd(),
		newProjectCmd(),
		newStoreCmd(),
		newSessionCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
