package preset

import (
	"fmt"
	"maps"
	"strings"

	"dario.cat/mergo"
	"github.com/mohae/deepcopy"
)

// mergeableKeys are list options that accumulate across presets instead of being replaced.
var mergeableKeys = map[string]bool{
	"packageRules":   true,
	"ignoreDeps":     true,
	"ignorePaths":    true,
	"labels":         true,
	"addLabels":      true,
	"assignees":      true,
	"reviewers":      true,
	"customManagers": true,
	"regexManagers":  true,
	"hostRules":      true,
}

// mergeChild layers child on top of parent and returns a new map. parent is never written to.
func mergeChild(parent, child map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(parent)+len(child))
	maps.Copy(out, parent)
	for key, cv := range child {
		pv, exists := out[key]
		if !exists || pv == nil {
			out[key] = cv
			continue
		}
		if mergeableKeys[key] {
			ps, pok := pv.([]any)
			cs, cok := cv.([]any)
			if pok && cok {
				merged := make([]any, 0, len(ps)+len(cs))
				out[key] = append(append(merged, ps...), cs...)
				continue
			}
		}
		pm, pok := pv.(map[string]any)
		cm, cok := cv.(map[string]any)
		if pok && cok {
			merged, ok := deepcopy.Copy(pm).(map[string]any)
			if !ok {
				return nil, fmt.Errorf("merge %s: copy failed", key)
			}
			if err := mergo.Merge(&merged, cm, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("merge %s: %w", key, err)
			}
			out[key] = merged
			continue
		}
		out[key] = cv
	}
	return out, nil
}

// replaceArgs substitutes {{argN}} placeholders in every string of v.
func replaceArgs(v any, params []string) any {
	switch t := v.(type) {
	case string:
		for i, p := range params {
			t = strings.ReplaceAll(t, fmt.Sprintf("{{arg%d}}", i), p)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = replaceArgs(el, params)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = replaceArgs(el, params)
		}
		return out
	default:
		return v
	}
}

// stringList reads extends/ignorePresets, which accept a string or a list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s, ok := el.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	default:
		return nil
	}
}
