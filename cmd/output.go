package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/session"
	"github.com/danielolaszy/attractor/pkg/models"
)

var (
	openColor   = color.New(color.FgGreen)
	closedColor = color.New(color.FgMagenta)
	failedColor = color.New(color.FgRed)
	runColor    = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

// output writes v as JSON when --json is set and uses text otherwise.
func output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func stateColor(state string) *color.Color {
	if state == models.StateClosed {
		return closedColor
	}
	return openColor
}

func labelNames(labels []models.Label) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

func writeIssueTable(w io.Writer, issues []models.Issue) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATE\tTITLE\tLABELS\tCOMMENTS")
	for _, issue := range issues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n",
			issue.Number, stateColor(issue.State).Sprint(issue.State), issue.Title, labelNames(issue.Labels), issue.Comments)
	}
	tw.Flush()
}

func writeIssue(w io.Writer, issue models.Issue) {
	fmt.Fprintf(w, "#%d %s [%s]\n", issue.Number, issue.Title, stateColor(issue.State).Sprint(issue.State))
	fmt.Fprintf(w, "opened by %s on %s, %d comments\n", issue.User.Login, issue.CreatedAt.Format(time.DateOnly), issue.Comments)
	if len(issue.Labels) > 0 {
		fmt.Fprintf(w, "labels: %s\n", labelNames(issue.Labels))
	}
	if len(issue.Assignees) > 0 {
		logins := make([]string, 0, len(issue.Assignees))
		for _, a := range issue.Assignees {
			logins = append(logins, a.Login)
		}
		fmt.Fprintf(w, "assignees: %s\n", strings.Join(logins, ", "))
	}
	if issue.Milestone != nil {
		fmt.Fprintf(w, "milestone: %s\n", issue.Milestone.Title)
	}
	if issue.Locked {
		fmt.Fprintln(w, dimColor.Sprint("locked"))
	}
	if issue.Body != nil && *issue.Body != "" {
		fmt.Fprintf(w, "\n%s\n", *issue.Body)
	}
}

func writeComments(w io.Writer, comments []models.Comment) {
	for i, c := range comments {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s %s\n", dimColor.Sprintf("#%d", c.ID), c.User.Login, dimColor.Sprint(c.CreatedAt.Format(time.DateTime)))
		fmt.Fprintln(w, c.Body)
	}
}

func writeLabels(w io.Writer, labels []models.Label) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOLOR\tDESCRIPTION")
	for _, l := range labels {
		desc := ""
		if l.Description != nil {
			desc = *l.Description
		}
		fmt.Fprintf(tw, "%s\t#%s\t%s\n", l.Name, l.Color, desc)
	}
	tw.Flush()
}

func writeMilestones(w io.Writer, milestones []models.Milestone) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATE\tTITLE\tDUE\tOPEN\tCLOSED")
	for _, m := range milestones {
		due := "-"
		if m.DueOn != nil {
			due = m.DueOn.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
			m.Number, stateColor(m.State).Sprint(m.State), m.Title, due, m.OpenIssues, m.ClosedIssues)
	}
	tw.Flush()
}

func writeSession(w io.Writer, info session.Info) {
	var status string
	switch info.Status {
	case session.StatusRunning:
		status = runColor.Sprint(info.Status)
	case session.StatusFailed:
		status = failedColor.Sprint(info.Status)
	default:
		status = openColor.Sprint(info.Status)
	}
	fmt.Fprintf(w, "issue #%d: %s (started %s)\n", info.IssueNumber, status, info.StartedAt.Format(time.DateTime))
	if info.FinishedAt != nil {
		fmt.Fprintf(w, "finished %s\n", info.FinishedAt.Format(time.DateTime))
	}
	if info.Error != nil {
		fmt.Fprintf(w, "error: %s\n", *info.Error)
	}
}
