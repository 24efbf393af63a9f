// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/config"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/pkg/models"
)

// maxNameSuffix bounds the -N suffixes tried when a store name is taken.
const maxNameSuffix = 99

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
	domain string
}

// APIURL returns the REST endpoint for a GitHub domain. Anything other than
// github.com is treated as GitHub Enterprise.
func APIURL(domain string) string {
	if domain == "" || domain == config.DefaultDomain {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// ParseRepository splits "owner/repo".
func ParseRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

// NewClient creates a GitHub API client for the configured domain and token.
// It does not contact the API; call Authenticate to check the token.
func NewClient(cfg *config.Config) (*Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = config.DefaultDomain
	}
	apiURL := APIURL(domain)

	logging.Debug("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return newClient(tc, apiURL, domain)
}

func newClient(httpClient *http.Client, apiURL, domain string) (*Client, error) {
	client := github.NewClient(httpClient)

	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}
	client.BaseURL = parsedURL
	client.UploadURL = parsedURL

	return &Client{client: client, domain: domain}, nil
}

// CloneURL returns the HTTPS clone URL of owner/repo.
func (c *Client) CloneURL(owner, repo string) string {
	return fmt.Sprintf("https://%s/%s/%s.git", c.domain, owner, repo)
}

// Authenticate validates the token and returns the user it belongs to.
func (c *Client) Authenticate(ctx context.Context) (models.SimpleUser, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to test github token",
			"error", err,
			"status_code", statusCode(resp))
		return models.SimpleUser{}, fmt.Errorf("github API error %d: %w", statusCode(resp), errors.Join(apperr.ErrAuth, err))
	}

	logging.Info("github authentication successful",
		"username", user.GetLogin())

	return models.SimpleUser{
		Login:     user.GetLogin(),
		ID:        user.GetID(),
		AvatarURL: user.GetAvatarURL(),
		Type:      user.GetType(),
	}, nil
}

// CreateRepo creates a repository for the authenticated user. The repository
// is initialized with a first commit so it can be cloned right away. A 403
// is reported as *apperr.RepoCreationForbiddenError.
func (c *Client) CreateRepo(ctx context.Context, name, description string, private bool) (models.RepoInfo, error) {
	repo, resp, err := c.client.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
		AutoInit:    github.Bool(true),
	})
	if err != nil {
		if statusCode(resp) == http.StatusForbidden {
			logging.Warn("token may not create repositories", "name", name)
			return models.RepoInfo{}, &apperr.RepoCreationForbiddenError{Name: name}
		}
		logging.Error("failed to create github repository", "name", name, "error", err)
		return models.RepoInfo{}, fmt.Errorf("failed to create repository %s: %w", name, err)
	}

	logging.Info("created github repository", "full_name", repo.GetFullName())
	return toRepoInfo(repo), nil
}

// RepoExists reports whether owner/repo is visible to the token. Any HTTP
// response other than success counts as absent; transport failures are
// returned as errors.
func (c *Client) RepoExists(ctx context.Context, owner, repo string) (bool, error) {
	_, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	if resp != nil {
		return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s/%s: %w", owner, repo, err)
	}
	return true, nil
}

// ListRepos lists the repositories owned by the authenticated user whose name
// starts with prefix, most recently updated first.
func (c *Client) ListRepos(ctx context.Context, prefix string) ([]models.RepoInfo, error) {
	opts := &github.RepositoryListOptions{
		Affiliation: "owner",
		Sort:        "updated",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var result []models.RepoInfo
	for {
		repos, resp, err := c.client.Repositories.List(ctx, "", opts)
		if err != nil {
			logging.Error("failed to list github repositories", "error", err)
			return nil, fmt.Errorf("failed to list repositories: %w", err)
		}

		for _, r := range repos {
			if strings.HasPrefix(r.GetName(), prefix) {
				result = append(result, toRepoInfo(r))
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// ResolveStoreName returns base if no such repository exists for owner,
// otherwise the first free base-N for N from 1 to 99.
func (c *Client) ResolveStoreName(ctx context.Context, owner, base string) (string, error) {
	exists, err := c.RepoExists(ctx, owner, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}

	for i := 1; i <= maxNameSuffix; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		exists, err := c.RepoExists(ctx, owner, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not find an available repo name based on '%s'", base)
}

func toRepoInfo(r *github.Repository) models.RepoInfo {
	info := models.RepoInfo{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.Description,
		Private:     r.GetPrivate(),
		HTMLURL:     r.GetHTMLURL(),
		CloneURL:    r.GetCloneURL(),
	}
	if r.Owner != nil {
		info.Owner = models.SimpleUser{
			Login:     r.Owner.GetLogin(),
			ID:        r.Owner.GetID(),
			AvatarURL: r.Owner.GetAvatarURL(),
			Type:      r.Owner.GetType(),
		}
	}
	return info
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
