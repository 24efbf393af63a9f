package cmd

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/api"
	"github.com/danielolaszy/attractor/internal/logging"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker over HTTP",
		Long: `Serve the tracker over HTTP with GitHub-shaped routes under /api/repos/:owner/:repo.

Session events are streamed as server-sent events from /api/events. Logs are
also written to the logs folder of the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(cmd, func(a *app) error {
				if a.cfg != nil {
					closer, err := logging.SetupFileLogger(a.cfg.LogsDir(), logging.LevelFromEnv())
					if err != nil {
						return err
					}
					defer closer.Close()
					if addr == "" {
						addr = a.cfg.Addr
					}
				}
				gin.SetMode(gin.ReleaseMode)

				var events api.Subscriber
				if a.notifier != nil {
					events = a.notifier
				}
				server := api.NewServer(a.svc, events, path)
				return server.Run(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from ATTRACTOR_ADDR or 127.0.0.1:8000)")
	return cmd
}
