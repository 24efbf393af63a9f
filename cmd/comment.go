package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/tracker"
)

func newCommentCmd() *cobra.Command {
	commentCmd := &cobra.Command{
		Use:   "comment",
		Short: "Manage issue comments",
	}
	commentCmd.AddCommand(
		newCommentListCmd(),
		newCommentAddCmd(),
		newCommentEditCmd(),
		newCommentDeleteCmd(),
	)
	return commentCmd
}

func newCommentListCmd() *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "list <issue>",
		Short: "List the comments of an issue, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				list, err := a.svc.ListComments(cmd.Context(), ref, number, page, perPage)
				if err != nil {
					return err
				}
				return output(cmd, list, func(w io.Writer) {
					writeComments(w, list.Items)
				})
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 30, "results per page (max 100)")
	return cmd
}

func newCommentAddCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "add <issue>",
		Short: "Comment on an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				comment, err := a.svc.CreateComment(cmd.Context(), ref, number, body)
				if err != nil {
					return err
				}
				return output(cmd, comment, func(w io.Writer) {
					fmt.Fprintf(w, "Added comment #%d on issue #%d\n", comment.ID, number)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&body, "body", "b", "", "comment text")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentEditCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "edit <comment-id>",
		Short: "Replace the text of a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				comment, err := a.svc.UpdateComment(cmd.Context(), ref, id, body)
				if err != nil {
					return err
				}
				return output(cmd, comment, func(w io.Writer) {
					fmt.Fprintf(w, "Updated comment #%d\n", comment.ID)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&body, "body", "b", "", "new comment text")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				if err := a.svc.DeleteComment(cmd.Context(), ref, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment #%d\n", id)
				return nil
			})
		},
	}
}
