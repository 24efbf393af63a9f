package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/tracker"
	"github.com/danielolaszy/attractor/pkg/models"
)

func newLabelCmd() *cobra.Command {
	labelCmd := &cobra.Command{
		Use:   "label",
		Short: "Manage labels and the labels of issues",
	}
	labelCmd.AddCommand(
		newLabelListCmd(),
		newLabelCreateCmd(),
		newLabelEditCmd(),
		newLabelDeleteCmd(),
		newLabelAddCmd(),
		newLabelRemoveCmd(),
	)
	return labelCmd
}

func newLabelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [issue]",
		Short: "List repository labels, or the labels of one issue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var number int64
			if len(args) == 1 {
				n, err := parseNumber(args[0])
				if err != nil {
					return err
				}
				number = n
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				var (
					labels []models.Label
					err    error
				)
				if number > 0 {
					labels, err = a.svc.IssueLabels(cmd.Context(), ref, number)
				} else {
					labels, err = a.svc.ListLabels(cmd.Context(), ref)
				}
				if err != nil {
					return err
				}
				return output(cmd, labels, func(w io.Writer) {
					writeLabels(w, labels)
				})
			})
		},
	}
}

func newLabelCreateCmd() *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := optionalString(cmd, "description")
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				label, err := a.svc.CreateLabel(cmd.Context(), ref, args[0], color, description)
				if err != nil {
					return err
				}
				return output(cmd, label, func(w io.Writer) {
					fmt.Fprintf(w, "Created label %q\n", label.Name)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&color, "color", "c", "", "hex color without '#' (default ededed)")
	cmd.Flags().StringP("description", "d", "", "label description")
	return cmd
}

func newLabelEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Rename or recolor a label",
		Long: `Rename or recolor a label. Issues keep the copy of the label they were
given, so a renamed label is not rewritten on existing issues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := models.LabelUpdate{
				NewName:     optionalString(cmd, "name"),
				Color:       optionalString(cmd, "color"),
				Description: optionalString(cmd, "description"),
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				label, err := a.svc.UpdateLabel(cmd.Context(), ref, args[0], update)
				if err != nil {
					return err
				}
				return output(cmd, label, func(w io.Writer) {
					fmt.Fprintf(w, "Updated label %q\n", label.Name)
				})
			})
		},
	}
	cmd.Flags().StringP("name", "n", "", "new name")
	cmd.Flags().StringP("color", "c", "", "new hex color")
	cmd.Flags().StringP("description", "d", "", "new description")
	return cmd
}

func newLabelDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				if err := a.svc.DeleteLabel(cmd.Context(), ref, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted label %q\n", args[0])
				return nil
			})
		},
	}
}

func newLabelAddCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "add <issue> <label>...",
		Short: "Add labels to an issue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			names := args[1:]
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				var labels []models.Label
				if replace {
					labels, err = a.svc.SetIssueLabels(cmd.Context(), ref, number, names)
				} else {
					labels, err = a.svc.AddIssueLabels(cmd.Context(), ref, number, names)
				}
				if err != nil {
					return err
				}
				return output(cmd, labels, func(w io.Writer) {
					fmt.Fprintf(w, "Issue #%d labels: %s\n", number, labelNames(labels))
				})
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace the current labels instead of adding")
	return cmd
}

func newLabelRemoveCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "remove <issue> [label]",
		Short: "Remove a label, or every label with --all, from an issue",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			if all == (len(args) == 2) {
				return fmt.Errorf("give either a label name or --all")
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				if all {
					if err := a.svc.ClearIssueLabels(cmd.Context(), ref, number); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed all labels from issue #%d\n", number)
					return nil
				}
				labels, err := a.svc.RemoveIssueLabel(cmd.Context(), ref, number, args[1])
				if err != nil {
					return err
				}
				return output(cmd, labels, func(w io.Writer) {
					fmt.Fprintf(w, "Issue #%d labels: %s\n", number, labelNames(labels))
				})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every label")
	return cmd
}
