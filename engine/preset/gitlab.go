package preset

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
)

// GitLabSource reads presets through the GitLab repository files API.
type GitLabSource struct {
	client  *resty.Client
	fetcher *fetcher
}

func newGitLabSource(apiURL, token string, f *fetcher) *GitLabSource {
	client := resty.New().SetBaseURL(strings.TrimSuffix(apiURL, "/"))
	if token = strings.TrimSpace(token); token != "" {
		client.SetHeader("PRIVATE-TOKEN", token)
	}
	return &GitLabSource{client: client, fetcher: f}
}

func (s *GitLabSource) Fetch(ctx context.Context, ref *Ref) (map[string]any, error) {
	return fromRepository(ctx, ref, s.file)
}

func (s *GitLabSource) file(ctx context.Context, repo, path, tag string) ([]byte, error) {
	if tag == "" {
		tag = "HEAD"
	}
	key := strings.Join([]string{string(KindGitLab), repo, path, tag}, "|")
	return s.fetcher.get(ctx, KindGitLab, key, func(ctx context.Context) ([]byte, error) {
		resp, err := s.client.R().
			SetContext(ctx).
			SetPathParams(map[string]string{"project": repo, "file": path}).
			SetQueryParam("ref", tag).
			Get("/projects/{project}/repository/files/{file}/raw")
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		if err := classify(resp.StatusCode(), resp.Request.URL); err != nil {
			return nil, err
		}
		return resp.Body(), nil
	})
}
