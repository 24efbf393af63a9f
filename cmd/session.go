package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/session"
	"github.com/danielolaszy/attractor/internal/tracker"
)

func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Run the analysis tool on issues",
		Long: `Run the analysis tool on issues.

A session launches the tool inside the project folder with the issue as its
prompt and writes the answer back to the issue as a comment. Sessions live in
the process that started them, so 'status' and 'cancel' apply to sessions of
'attractor serve'; use the HTTP API to reach those.`,
	}
	sessionCmd.AddCommand(
		newSessionRunCmd(),
		newSessionStatusCmd(),
		newSessionCancelCmd(),
	)
	return sessionCmd
}

func newSessionRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <issue>",
		Short: "Analyze an issue and wait for the result comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			path, err := projectPath(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				info, err := a.svc.RunSession(cmd.Context(), ref, number, path)
				if err != nil {
					return err
				}
				writeSession(cmd.ErrOrStderr(), info)

				info, err = a.svc.WaitSession(ref, number)
				if err != nil {
					return err
				}
				if err := output(cmd, info, func(w io.Writer) { writeSession(w, info) }); err != nil {
					return err
				}
				if info.Status == session.StatusFailed {
					return fmt.Errorf("session for issue #%d failed", number)
				}
				return nil
			})
		},
	}
}

func newSessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <issue>",
		Short: "Show the session of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				info, err := a.svc.SessionStatus(ref, number)
				if err != nil {
					return err
				}
				return output(cmd, info, func(w io.Writer) { writeSession(w, info) })
			})
		},
	}
}

func newSessionCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <issue>",
		Short: "Stop the running session of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(a *app, ref tracker.Ref) error {
				if err := a.svc.CancelSession(ref, number); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for issue #%d\n", number)
				return nil
			})
		},
	}
}
