package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/tracker"
	"github.com/danielolaszy/attractor/pkg/models"
)

func newMilestoneCmd() *cobra.Command {
	milestoneCmd := &cobra.Command{
		Use:   "milestone",
		Short: "Manage milestones",
	}
	milestoneCmd.AddCommand(
		newMilestoneListCmd(),
		newMilestoneCreateCmd(),
		newMilestoneEditCmd(),
		newMilestoneDeleteCmd(),
	)
	return milestoneCmd
}

// parseDueOn accepts a date (2006-01-02) or a full RFC 3339 timestamp.
func parseDueOn(value string) (*time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
}

func newMilestoneListCmd() *cobra.Command {
	var filters models.MilestoneFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List milestones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				list, err := a.svc.ListMilestones(cmd.Context(), ref, filters)
				if err != nil {
					return err
				}
				return output(cmd, list, func(w io.Writer) {
					writeMilestones(w, list.Items)
				})
			})
		},
	}
	cmd.Flags().StringVar(&filters.State, "state", "", "open, closed or all")
	cmd.Flags().StringVar(&filters.Sort, "sort", "", "due_on or completeness")
	cmd.Flags().StringVar(&filters.Direction, "direction", "", "asc or desc")
	cmd.Flags().IntVar(&filters.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filters.PerPage, "per-page", 30, "results per page (max 100)")
	return cmd
}

func newMilestoneCreateCmd() *cobra.Command {
	var input models.NewMilestone
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Title = args[0]
			input.Description = optionalString(cmd, "description")
			if due := optionalString(cmd, "due"); due != nil {
				dueOn, err := parseDueOn(*due)
				if err != nil {
					return err
				}
				input.DueOn = dueOn
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				m, err := a.svc.CreateMilestone(cmd.Context(), ref, input)
				if err != nil {
					return err
				}
				return output(cmd, m, func(w io.Writer) {
					fmt.Fprintf(w, "Created milestone #%d: %s\n", m.Number, m.Title)
				})
			})
		},
	}
	cmd.Flags().StringP("description", "d", "", "milestone description")
	cmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&input.State, "state", "", "open or closed")
	return cmd
}

func newMilestoneEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <number>",
		Short: "Edit a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			update := models.MilestoneUpdate{
				Title:       optionalString(cmd, "title"),
				Description: optionalString(cmd, "description"),
				State:       optionalString(cmd, "state"),
			}
			if due := optionalString(cmd, "due"); due != nil {
				if update.DueOn, err = parseDueOn(*due); err != nil {
					return err
				}
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				m, err := a.svc.UpdateMilestone(cmd.Context(), ref, number, update)
				if err != nil {
					return err
				}
				return output(cmd, m, func(w io.Writer) {
					fmt.Fprintf(w, "Updated milestone #%d\n", m.Number)
				})
			})
		},
	}
	cmd.Flags().StringP("title", "t", "", "new title")
	cmd.Flags().StringP("description", "d", "", "new description")
	cmd.Flags().String("due", "", "new due date (YYYY-MM-DD)")
	cmd.Flags().String("state", "", "open or closed")
	return cmd
}

func newMilestoneDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Delete a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				if err := a.svc.DeleteMilestone(cmd.Context(), ref, number); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted milestone #%d\n", number)
				return nil
			})
		},
	}
}
