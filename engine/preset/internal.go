package preset

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/mohae/deepcopy"
)

//go:embed catalog/presets.yaml
var catalogYAML []byte

// InternalSource serves the presets compiled into the binary.
type InternalSource struct {
	once    sync.Once
	raw     []byte
	catalog map[string]map[string]map[string]any
	err     error
}

func newInternalSource(raw []byte) *InternalSource {
	return &InternalSource{raw: raw}
}

func (s *InternalSource) load() error {
	s.once.Do(func() {
		var catalog map[string]map[string]map[string]any
		if err := yaml.Unmarshal(s.raw, &catalog); err != nil {
			s.err = fmt.Errorf("parse internal preset catalog: %w", err)
			return
		}
		s.catalog = catalog
	})
	return s.err
}

func (s *InternalSource) Fetch(_ context.Context, ref *Ref) (map[string]any, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	group, ok := s.catalog[ref.Repo]
	if !ok {
		return nil, newError(ref.Raw, ReasonDepNotFound, nil)
	}
	preset, ok := group[ref.Name]
	if !ok {
		return nil, newError(ref.Raw, ReasonNotFound, nil)
	}
	out, ok := deepcopy.Copy(preset).(map[string]any)
	if !ok {
		return nil, newError(ref.Raw, ReasonInvalid, nil)
	}
	return out, nil
}

// Names lists the presets of a group, for diagnostics.
func (s *InternalSource) Names(group string) []string {
	if err := s.load(); err != nil {
		return nil
	}
	names := make([]string, 0, len(s.catalog[group]))
	for name := range s.catalog[group] {
		names = append(names, name)
	}
	return names
}
