package preset

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
)

// NPMSource reads presets from the renovate-config field of published npm packages.
type NPMSource struct {
	client  *resty.Client
	fetcher *fetcher
}

func newNPMSource(registryURL string, f *fetcher) *NPMSource {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(registryURL, "/")).
		SetHeader("Accept", "application/json")
	return &NPMSource{client: client, fetcher: f}
}

func (s *NPMSource) Fetch(ctx context.Context, ref *Ref) (map[string]any, error) {
	body, err := s.packument(ctx, ref.Repo)
	if err != nil {
		return nil, err
	}
	version := gjson.GetBytes(body, "dist-tags.latest").String()
	if version == "" {
		version = highestVersion(gjson.GetBytes(body, "versions"))
	}
	if version == "" {
		return nil, newError(ref.Raw, ReasonDepNotFound, nil)
	}
	config := gjson.GetBytes(body, "versions."+gjson.Escape(version)+".renovate-config")
	if !config.Exists() {
		return nil, newError(ref.Raw, ReasonRenovateConfigNotFound, nil)
	}
	preset := config.Get(gjson.Escape(ref.Name))
	if !preset.Exists() || !preset.IsObject() {
		return nil, newError(ref.Raw, ReasonNotFound, nil)
	}
	doc, err := decodeObject([]byte(preset.Raw))
	if err != nil {
		return nil, newError(ref.Raw, ReasonInvalidJSON, err)
	}
	return doc, nil
}

func (s *NPMSource) packument(ctx context.Context, pkg string) ([]byte, error) {
	key := string(KindNPM) + "|" + pkg
	return s.fetcher.get(ctx, KindNPM, key, func(ctx context.Context) ([]byte, error) {
		resp, err := s.client.R().
			SetContext(ctx).
			SetPathParam("pkg", pkg).
			Get("/{pkg}")
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrDepNotFound, pkg)
		}
		if err := classify(resp.StatusCode(), resp.Request.URL); err != nil {
			return nil, err
		}
		return resp.Body(), nil
	})
}

// highestVersion picks the greatest stable semver key, or the greatest prerelease
// when nothing stable was published.
func highestVersion(versions gjson.Result) string {
	var stable, all []*semver.Version
	versions.ForEach(func(key, _ gjson.Result) bool {
		v, err := semver.NewVersion(key.String())
		if err != nil {
			return true
		}
		all = append(all, v)
		if v.Prerelease() == "" {
			stable = append(stable, v)
		}
		return true
	})
	pick := stable
	if len(pick) == 0 {
		pick = all
	}
	if len(pick) == 0 {
		return ""
	}
	sort.Sort(semver.Collection(pick))
	return pick[len(pick)-1].Original()
}
