package preset

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Source loads the body of a single preset. Implementations must return a value
// the caller may modify freely.
type Source interface {
	Fetch(ctx context.Context, ref *Ref) (map[string]any, error)
}

// fileFetcher reads one file from a repository at an optional ref.
type fileFetcher func(ctx context.Context, repo, path, tag string) ([]byte, error)

// fromRepository resolves a preset stored as a JSON file in a repository.
// The default preset falls back from default.json to renovate.json.
func fromRepository(ctx context.Context, ref *Ref, fetch fileFetcher) (map[string]any, error) {
	file, key := ref.FileName()
	raw, err := fetch(ctx, ref.Repo, ref.FilePath(".json"), ref.Tag)
	if err != nil && isNotFound(err) && file == defaultPresetName {
		fallback := "renovate.json"
		if ref.Path != "" {
			fallback = ref.Path + "/" + fallback
		}
		raw, err = fetch(ctx, ref.Repo, fallback, ref.Tag)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, newError(ref.Raw, ReasonDepNotFound, err)
		}
		return nil, err
	}
	doc, err := decodeObject(raw)
	if err != nil {
		return nil, newError(ref.Raw, ReasonInvalidJSON, err)
	}
	if key == "" {
		return doc, nil
	}
	sub, ok := doc[key].(map[string]any)
	if !ok {
		return nil, newError(ref.Raw, ReasonNotFound, nil)
	}
	return sub, nil
}

// decodeObject parses a JSON object keeping numbers as json.Number.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("preset is not a JSON object")
	}
	return out, nil
}
