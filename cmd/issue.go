package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/tracker"
	"github.com/danielolaszy/attractor/pkg/models"
)

func newIssueCmd() *cobra.Command {
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Manage issues in the backing store",
	}
	issueCmd.AddCommand(
		newIssueListCmd(),
		newIssueCreateCmd(),
		newIssueShowCmd(),
		newIssueEditCmd(),
		newIssueStateCmd("close", "Close an issue", models.StateClosed),
		newIssueStateCmd("reopen", "Reopen a closed issue", models.StateOpen),
		newIssueLockCmd(),
		newIssueUnlockCmd(),
	)
	return issueCmd
}

// parseNumber reads a positive issue, comment or milestone number.
func parseNumber(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number: %s", arg)
	}
	return n, nil
}

// optionalString returns a pointer to the flag value when the flag was set.
func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func optionalInt64(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt64(name)
	return &v
}

func newIssueListCmd() *cobra.Command {
	var filters models.IssueFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Long: `List issues of the backing store, newest first.

By default only open issues are shown. Use --assignee none to list unassigned
issues or --assignee '*' for issues with any assignee.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				list, err := a.svc.ListIssues(cmd.Context(), ref, filters)
				if err != nil {
					return err
				}
				return output(cmd, list, func(w io.Writer) {
					writeIssueTable(w, list.Items)
					fmt.Fprintf(w, "\n%d of %d issues\n", len(list.Items), list.TotalCount)
				})
			})
		},
	}
	cmd.Flags().StringVar(&filters.State, "state", "", "open, closed or all")
	cmd.Flags().StringSliceVarP(&filters.Labels, "label", "l", nil, "only issues carrying every given label")
	cmd.Flags().StringVar(&filters.Assignee, "assignee", "", "assignee login, 'none' or '*'")
	cmd.Flags().StringVar(&filters.Milestone, "milestone", "", "milestone number, 'none' or '*'")
	cmd.Flags().StringVar(&filters.Sort, "sort", "", "created, updated or comments")
	cmd.Flags().StringVar(&filters.Direction, "direction", "", "asc or desc")
	cmd.Flags().IntVar(&filters.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filters.PerPage, "per-page", 30, "results per page (max 100)")
	return cmd
}

func newIssueCreateCmd() *cobra.Command {
	var input models.NewIssue
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Body = optionalString(cmd, "body")
			input.Milestone = optionalInt64(cmd, "milestone")
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				issue, err := a.svc.CreateIssue(cmd.Context(), ref, input)
				if err != nil {
					return err
				}
				return output(cmd, issue, func(w io.Writer) {
					fmt.Fprintf(w, "Created issue #%d: %s\n", issue.Number, issue.Title)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&input.Title, "title", "t", "", "issue title")
	cmd.Flags().StringP("body", "b", "", "issue body")
	cmd.Flags().StringSliceVarP(&input.Labels, "label", "l", nil, "labels to apply")
	cmd.Flags().StringSliceVarP(&input.Assignees, "assignee", "a", nil, "assignee logins")
	cmd.Flags().Int64("milestone", 0, "milestone number")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newIssueShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				issue, err := a.svc.GetIssue(cmd.Context(), ref, number)
				if err != nil {
					return err
				}
				return output(cmd, issue, func(w io.Writer) {
					writeIssue(w, issue)
				})
			})
		},
	}
}

// issueUpdateFromFlags collects the flags that were set into an update.
func issueUpdateFromFlags(cmd *cobra.Command) models.IssueUpdate {
	update := models.IssueUpdate{
		Title:       optionalString(cmd, "title"),
		Body:        optionalString(cmd, "body"),
		State:       optionalString(cmd, "state"),
		StateReason: optionalString(cmd, "state-reason"),
		Milestone:   optionalInt64(cmd, "milestone"),
	}
	if cmd.Flags().Changed("assignee") {
		update.Assignees, _ = cmd.Flags().GetStringSlice("assignee")
		if update.Assignees == nil {
			update.Assignees = []string{}
		}
	}
	if cmd.Flags().Changed("label") {
		update.Labels, _ = cmd.Flags().GetStringSlice("label")
		if update.Labels == nil {
			update.Labels = []string{}
		}
	}
	return update
}

func newIssueEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <number>",
		Short: "Edit an issue",
		Long: `Edit an issue. Only the flags given are changed; --label and --assignee
replace the current set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			update := issueUpdateFromFlags(cmd)
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				issue, err := a.svc.UpdateIssue(cmd.Context(), ref, number, update)
				if err != nil {
					return err
				}
				return output(cmd, issue, func(w io.Writer) {
					fmt.Fprintf(w, "Updated issue #%d\n", issue.Number)
				})
			})
		},
	}
	cmd.Flags().StringP("title", "t", "", "new title")
	cmd.Flags().StringP("body", "b", "", "new body")
	cmd.Flags().String("state", "", "open or closed")
	cmd.Flags().String("state-reason", "", "completed, not_planned or reopened")
	cmd.Flags().StringSliceP("label", "l", nil, "replace labels")
	cmd.Flags().StringSliceP("assignee", "a", nil, "replace assignees")
	cmd.Flags().Int64("milestone", 0, "milestone number")
	return cmd
}

func newIssueStateCmd(use, short, state string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				issue, err := a.svc.UpdateIssue(cmd.Context(), ref, number, models.IssueUpdate{State: &state})
				if err != nil {
					return err
				}
				return output(cmd, issue, func(w io.Writer) {
					fmt.Fprintf(w, "Issue #%d is %s\n", issue.Number, stateColor(issue.State).Sprint(issue.State))
				})
			})
		},
	}
}

func newIssueLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock <number>",
		Short: "Lock an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			reason := optionalString(cmd, "reason")
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				issue, err := a.svc.LockIssue(cmd.Context(), ref, number, reason)
				if err != nil {
					return err
				}
				return output(cmd, issue, func(w io.Writer) {
					fmt.Fprintf(w, "Locked issue #%d\n", issue.Number)
				})
			})
		},
	}
	cmd.Flags().String("reason", "", "off-topic, too heated, resolved or spam")
	return cmd
}

func newIssueUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <number>",
		Short: "Unlock an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				issue, err := a.svc.UnlockIssue(cmd.Context(), ref, number)
				if err != nil {
					return err
				}
				return output(cmd, issue, func(w io.Writer) {
					fmt.Fprintf(w, "Unlocked issue #%d\n", issue.Number)
				})
			})
		},
	}
}
