package preset

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

const defaultMaxDepth = 10

// Resolver expands every preset reference in a configuration document.
type Resolver interface {
	Resolve(ctx context.Context, doc map[string]any) (map[string]any, error)
}

// nestedIgnoredKeys hold free-form objects that are never searched for presets.
var nestedIgnoredKeys = []string{"content", "onboardingConfig"}

// Options configures the preset sources used by an Engine.
type Options struct {
	GitHubAPIURL   string
	GitHubToken    string
	GitLabAPIURL   string
	GitLabToken    string
	NPMRegistryURL string
	// LocalPlatform backs "local>" presets; github or gitlab.
	LocalPlatform Kind
	Timeout       time.Duration
	MaxRetries    int
	CacheSize     int
	CacheTTL      time.Duration
	MaxDepth      int
	FetchObserver FetchObserver
}

func DefaultOptions() Options {
	return Options{
		GitHubAPIURL:   "https://api.github.com",
		GitLabAPIURL:   "https://gitlab.com/api/v4",
		NPMRegistryURL: "https://registry.npmjs.org",
		LocalPlatform:  KindGitHub,
		Timeout:        defaultTimeout,
		MaxRetries:     defaultMaxRetries,
		CacheSize:      defaultCacheSize,
		CacheTTL:       defaultCacheTTL,
		MaxDepth:       defaultMaxDepth,
	}
}

// Engine resolves presets from the built-in catalog, GitHub, GitLab and npm.
// It is safe for concurrent use.
type Engine struct {
	sources  map[Kind]Source
	local    Kind
	maxDepth int
}

func NewEngine(opts Options) (*Engine, error) {
	f := newFetcher(opts.CacheSize, opts.CacheTTL, opts.Timeout, opts.MaxRetries)
	f.observer = opts.FetchObserver
	gh, err := newGitHubSource(opts.GitHubAPIURL, opts.GitHubToken, f)
	if err != nil {
		return nil, err
	}
	local := opts.LocalPlatform
	if local == "" {
		local = KindGitHub
	}
	if local != KindGitHub && local != KindGitLab {
		return nil, fmt.Errorf("unsupported local preset platform %q", local)
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Engine{
		sources: map[Kind]Source{
			KindInternal: newInternalSource(catalogYAML),
			KindGitHub:   gh,
			KindGitLab:   newGitLabSource(opts.GitLabAPIURL, opts.GitLabToken, f),
			KindNPM:      newNPMSource(opts.NPMRegistryURL, f),
		},
		local:    local,
		maxDepth: maxDepth,
	}, nil
}

// WithSource replaces the source used for kind.
func (e *Engine) WithSource(kind Kind, src Source) *Engine {
	e.sources[kind] = src
	return e
}

// Resolve returns the expanded document. doc is not modified. Failures are *Error.
func (e *Engine) Resolve(ctx context.Context, doc map[string]any) (map[string]any, error) {
	input := map[string]any{}
	if doc != nil {
		copied, ok := deepcopy.Copy(doc).(map[string]any)
		if !ok {
			return nil, newError("", ReasonInvalid, nil)
		}
		input = copied
	}
	return e.resolve(ctx, input, nil, nil)
}

func (e *Engine) resolve(ctx context.Context, config map[string]any, ignore, seen []string) (map[string]any, error) {
	log := logger.FromContext(ctx)
	if len(ignore) == 0 {
		ignore = stringList(config["ignorePresets"])
	}
	result := map[string]any{}
	for _, name := range stringList(config["extends"]) {
		if slices.Contains(ignore, name) {
			log.Debug("Ignoring preset", "preset", name)
			continue
		}
		if slices.Contains(seen, name) {
			log.Debug("Already seen preset", "preset", name, "chain", seen)
			continue
		}
		if len(seen) >= e.maxDepth {
			return nil, newError(name, ReasonTooDeep, nil)
		}
		body, err := e.fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		resolved, err := e.resolve(ctx, body, ignore, append(slices.Clone(seen), name))
		if err != nil {
			return nil, err
		}
		if result, err = mergeChild(result, resolved); err != nil {
			return nil, newError(name, ReasonInvalid, err)
		}
	}
	result, err := mergeChild(result, config)
	if err != nil {
		return nil, newError("", ReasonInvalid, err)
	}
	delete(result, "extends")
	delete(result, "ignorePresets")
	for key, val := range result {
		switch t := val.(type) {
		case []any:
			out := make([]any, len(t))
			for i, el := range t {
				obj, ok := el.(map[string]any)
				if !ok {
					out[i] = el
					continue
				}
				if out[i], err = e.resolve(ctx, obj, ignore, seen); err != nil {
					return nil, err
				}
			}
			result[key] = out
		case map[string]any:
			if slices.Contains(nestedIgnoredKeys, key) {
				continue
			}
			if result[key], err = e.resolve(ctx, t, ignore, seen); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (e *Engine) fetch(ctx context.Context, name string) (map[string]any, error) {
	ref, err := ParseRef(name)
	if err != nil {
		return nil, asError(name, err)
	}
	kind := ref.Kind
	if kind == KindLocal {
		kind = e.local
	}
	src, ok := e.sources[kind]
	if !ok {
		return nil, newError(name, ReasonDepNotFound, fmt.Errorf("no source for %s presets", kind))
	}
	logger.FromContext(ctx).Debug("Fetching preset", "preset", name, "source", kind)
	body, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, asError(name, err)
	}
	if len(ref.Params) > 0 {
		if replaced, ok := replaceArgs(body, ref.Params).(map[string]any); ok {
			body = replaced
		}
	}
	delete(body, "description")
	return body, nil
}
