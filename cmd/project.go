package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/github"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/internal/tracker"
	"github.com/danielolaszy/attractor/pkg/models"
)

func newProjectCmd() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Bind project folders to backing stores",
	}
	projectCmd.AddCommand(
		newProjectOpenCmd(),
		newProjectSetupCmd(),
		newProjectListCmd(),
	)
	return projectCmd
}

func newProjectOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open [folder]",
		Short: "Open a project folder, creating its backing store if needed",
		Long: `Open a project folder and bring its backing store up to date.

A folder without .amplifier/attractor.json gets a new private repository named
attractor-store-<folder> (with a numeric suffix when the name is taken). If the
token may not create repositories, create one by hand and run
'attractor project setup'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("project", args[0]); err != nil {
					return err
				}
			}
			path, err := projectPath(cmd)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				cfg, err := a.svc.OpenProject(cmd.Context(), path)
				var forbidden *apperr.RepoCreationForbiddenError
				if errors.As(err, &forbidden) {
					logging.Warn("repository creation refused", "name", forbidden.Name)
					return fmt.Errorf("%w\ncreate %s/%s on GitHub, then run: attractor project setup -r %s/%s %s",
						err, a.svc.User().Login, forbidden.Name, a.svc.User().Login, forbidden.Name, path)
				}
				if err != nil {
					return err
				}
				return output(cmd, cfg, func(w io.Writer) {
					writeProject(w, path, cfg)
				})
			})
		},
	}
}

func newProjectSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup [folder]",
		Short: "Bind a project folder to an existing repository given with -r",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("project", args[0]); err != nil {
					return err
				}
			}
			repository, _ := cmd.Flags().GetString("repository")
			if repository == "" {
				return fmt.Errorf("repository flag is required")
			}
			owner, repo, err := github.ParseRepository(repository)
			if err != nil {
				return err
			}
			path, err := projectPath(cmd)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				cfg, err := a.svc.SetupBackingRepo(cmd.Context(), tracker.Ref{Owner: owner, Repo: repo}, path)
				if err != nil {
					return err
				}
				return output(cmd, cfg, func(w io.Writer) {
					writeProject(w, path, cfg)
				})
			})
		},
	}
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your backing store repositories on GitHub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if a.client == nil {
					return fmt.Errorf("no GitHub client configured")
				}
				repos, err := a.client.ListRepos(cmd.Context(), tracker.StorePrefix)
				if err != nil {
					return err
				}
				return output(cmd, repos, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "REPOSITORY\tPRIVATE\tURL")
					for _, r := range repos {
						fmt.Fprintf(tw, "%s\t%t\t%s\n", r.FullName, r.Private, r.HTMLURL)
					}
					tw.Flush()
				})
			})
		},
	}
}

func writeProject(w io.Writer, path string, cfg models.ProjectConfig) {
	fmt.Fprintf(w, "Project %s\n", path)
	fmt.Fprintf(w, "backing store: %s/%s\n", cfg.Owner, cfg.Repo)
	fmt.Fprintf(w, "store id: %s\n", dimColor.Sprint(cfg.StoreID))
}
