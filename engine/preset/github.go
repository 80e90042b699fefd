package preset

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
)

// GitHubSource reads presets through the GitHub contents API.
type GitHubSource struct {
	client  *github.Client
	fetcher *fetcher
}

func newGitHubSource(apiURL, token string, f *fetcher) (*GitHubSource, error) {
	httpClient := http.DefaultClient
	if token = strings.TrimSpace(token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(httpClient)
	if apiURL != "" {
		base, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		client.BaseURL = base
	}
	return &GitHubSource{client: client, fetcher: f}, nil
}

func (s *GitHubSource) Fetch(ctx context.Context, ref *Ref) (map[string]any, error) {
	return fromRepository(ctx, ref, s.file)
}

func (s *GitHubSource) file(ctx context.Context, repo, path, tag string) ([]byte, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return nil, fmt.Errorf("%w: invalid repository %q", ErrDepNotFound, repo)
	}
	key := strings.Join([]string{string(KindGitHub), repo, path, tag}, "|")
	return s.fetcher.get(ctx, KindGitHub, key, func(ctx context.Context) ([]byte, error) {
		opts := &github.RepositoryContentGetOptions{Ref: tag}
		fc, _, resp, err := s.client.Repositories.GetContents(ctx, owner, name, path, opts)
		if err != nil {
			if resp != nil && resp.StatusCode != http.StatusOK {
				return nil, classify(resp.StatusCode, path)
			}
			return nil, retry.RetryableError(err)
		}
		if fc == nil {
			return nil, fmt.Errorf("%w: %s is a directory", ErrPresetNotFound, path)
		}
		content, err := fc.GetContent()
		if err != nil {
			return nil, err
		}
		return []byte(content), nil
	})
}
