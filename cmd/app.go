package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/blocking"
	"github.com/danielolaszy/attractor/internal/config"
	"github.com/danielolaszy/attractor/internal/github"
	"github.com/danielolaszy/attractor/internal/gitrepo"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/internal/notify"
	"github.com/danielolaszy/attractor/internal/session"
	"github.com/danielolaszy/attractor/internal/tracker"
)

// consumerGroup prefixes the Redis consumer group of each event subscription.
const consumerGroup = "attractor"

// app bundles everything a command needs once the user is authenticated.
type app struct {
	cfg      *config.Config
	client   *github.Client
	svc      *tracker.Service
	notifier *notify.Notifier
}

// Close releases the notifier.
func (a *app) Close() {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Close(); err != nil {
		logging.Warn("failed to close notifier", "error", err)
	}
}

// appFactory builds the app for a command. Tests replace it.
var appFactory = newApp

// newApp loads the configuration, authenticates against GitHub and wires the
// tracker service with its pool, lock, notifier and session supervisor.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ValidateGitHubConfig(cfg); err != nil {
		return nil, err
	}

	client, err := github.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize github client: %w", err)
	}
	user, err := client.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	logging.Debug("authenticated", "login", user.Login)

	var notifier *notify.Notifier
	if cfg.RedisURL != "" {
		notifier, err = notify.NewRedisFromURL(cfg.RedisURL, consumerGroup)
		if err != nil {
			return nil, err
		}
	} else {
		notifier = notify.NewInMemory()
	}

	pool := blocking.NewPool(cfg.BlockingWorkers)
	locker := tracker.NewFileLocker()
	supervisor := session.NewSupervisor(session.Options{
		Tool:      cfg.Tool,
		Publisher: notifier,
		Locker:    locker,
		Pool:      pool,
	})

	svc := tracker.NewService(tracker.Options{
		ReposDir:   cfg.ReposDir(),
		User:       user,
		Credential: gitrepo.Credential{Token: cfg.GitHub.Token},
		Host:       client,
		Pool:       pool,
		Locker:     locker,
		Supervisor: supervisor,
	})

	return &app{cfg: cfg, client: client, svc: svc, notifier: notifier}, nil
}

// withApp builds the app, runs fn and releases the app afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := appFactory(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// projectPath returns the absolute path of the --project folder.
func projectPath(cmd *cobra.Command) (string, error) {
	project, err := cmd.Flags().GetString("project")
	if err != nil {
		return "", err
	}
	return filepath.Abs(project)
}

// resolveRef picks the backing store from --repository, falling back to the
// store the project folder is bound to.
func resolveRef(cmd *cobra.Command) (tracker.Ref, error) {
	repository, err := cmd.Flags().GetString("repository")
	if err != nil {
		return tracker.Ref{}, err
	}
	if repository != "" {
		owner, repo, err := github.ParseRepository(repository)
		if err != nil {
			return tracker.Ref{}, err
		}
		return tracker.Ref{Owner: owner, Repo: repo}, nil
	}

	path, err := projectPath(cmd)
	if err != nil {
		return tracker.Ref{}, err
	}
	return tracker.ProjectRef(path)
}

// withStore is withApp plus the resolved backing store.
func withStore(cmd *cobra.Command, fn func(a *app, ref tracker.Ref) error) error {
	ref, err := resolveRef(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		return fn(a, ref)
	})
}
