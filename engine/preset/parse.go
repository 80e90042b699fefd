package preset

import (
	"regexp"
	"strings"
)

// Kind is the origin of a preset.
type Kind string

const (
	KindInternal Kind = "internal"
	KindGitHub   Kind = "github"
	KindGitLab   Kind = "gitlab"
	KindLocal    Kind = "local"
	KindNPM      Kind = "npm"
)

const defaultPresetName = "default"

// internalGroups are the preset packages shipped with the resolver.
var internalGroups = []string{
	"abandonments",
	"config",
	"customManagers",
	"default",
	"docker",
	"group",
	"helpers",
	"mergeConfidence",
	"monorepo",
	"npm",
	"packages",
	"preview",
	"regexManagers",
	"replacements",
	"schedule",
	"security",
	"workarounds",
}

var (
	paramsPattern = regexp.MustCompile(`\((.*?)\)$`)
	repoPattern   = regexp.MustCompile(`^(?P<repo>[\w\-.]+/[\w\-.]+(?:/[\w\-.]+)*?)(?://(?P<path>[^:]+))?(?::(?P<name>.+))?$`)
)

// Ref is a parsed preset reference such as "github>owner/repo//path:name#tag".
type Ref struct {
	Raw  string
	Kind Kind
	// Repo is the repository ("owner/repo"), the npm package or the internal group.
	Repo   string
	Name   string
	Path   string
	Tag    string
	Params []string
}

// ParseRef parses a preset reference in Renovate syntax.
func ParseRef(input string) (*Ref, error) {
	ref := &Ref{Raw: input}
	str := strings.TrimSpace(input)
	if m := paramsPattern.FindStringSubmatch(str); m != nil {
		for _, p := range strings.Split(m[1], ",") {
			ref.Params = append(ref.Params, strings.TrimSpace(p))
		}
		str = paramsPattern.ReplaceAllString(str, "")
	}
	if str == "" {
		return nil, newError(input, ReasonInvalid, nil)
	}
	switch {
	case strings.HasPrefix(str, "github>"):
		ref.Kind = KindGitHub
		return parseRepoRef(ref, strings.TrimPrefix(str, "github>"))
	case strings.HasPrefix(str, "gitlab>"):
		ref.Kind = KindGitLab
		return parseRepoRef(ref, strings.TrimPrefix(str, "gitlab>"))
	case strings.HasPrefix(str, "local>"):
		ref.Kind = KindLocal
		return parseRepoRef(ref, strings.TrimPrefix(str, "local>"))
	case strings.HasPrefix(str, ":"):
		ref.Kind = KindInternal
		ref.Repo = defaultPresetName
		ref.Name = str[1:]
	case isInternal(str):
		ref.Kind = KindInternal
		ref.Repo, ref.Name, _ = strings.Cut(str, ":")
	case strings.HasPrefix(str, "npm>"):
		ref.Kind = KindNPM
		parseNPMRef(ref, strings.TrimPrefix(str, "npm>"))
	default:
		ref.Kind = KindNPM
		parseNPMRef(ref, str)
	}
	if ref.Name == "" {
		return nil, newError(input, ReasonInvalid, nil)
	}
	return ref, nil
}

func isInternal(str string) bool {
	for _, group := range internalGroups {
		if strings.HasPrefix(str, group+":") {
			return true
		}
	}
	return false
}

func parseRepoRef(ref *Ref, str string) (*Ref, error) {
	if before, tag, ok := strings.Cut(str, "#"); ok {
		str = before
		ref.Tag = tag
	}
	m := repoPattern.FindStringSubmatch(str)
	if m == nil {
		return nil, newError(ref.Raw, ReasonInvalid, nil)
	}
	ref.Repo = m[repoPattern.SubexpIndex("repo")]
	path := m[repoPattern.SubexpIndex("path")]
	name := m[repoPattern.SubexpIndex("name")]
	if path != "" {
		if name != "" {
			return nil, newError(ref.Raw, ReasonProhibitedSubpreset, nil)
		}
		dir, file := splitPath(path)
		ref.Path = dir
		ref.Name = file
	} else {
		ref.Name = name
	}
	ref.Name = strings.TrimSuffix(strings.TrimSuffix(ref.Name, ".json5"), ".json")
	if ref.Name == "" {
		ref.Name = defaultPresetName
	}
	return ref, nil
}

func splitPath(path string) (dir, file string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func parseNPMRef(ref *Ref, str string) {
	ref.Name = defaultPresetName
	if strings.HasPrefix(str, "@") {
		scope, rest, hasSlash := strings.Cut(str, "/")
		if !hasSlash {
			// "@scope" or "@scope:name"
			pkgScope, name, hasName := strings.Cut(scope, ":")
			ref.Repo = pkgScope + "/renovate-config"
			if hasName {
				ref.Name = name
			}
			return
		}
		pkg, name, hasName := strings.Cut(rest, ":")
		ref.Repo = scope + "/" + pkg
		if hasName {
			ref.Name = name
		}
		return
	}
	pkg, name, hasName := strings.Cut(str, ":")
	if !strings.HasPrefix(pkg, "renovate-config-") {
		pkg = "renovate-config-" + pkg
	}
	ref.Repo = pkg
	if hasName {
		ref.Name = name
	}
}

// FileName is the repository file that holds the preset, without extension.
// Sub-presets ("file/key") live inside the file named by their first segment.
func (r *Ref) FileName() (file string, key string) {
	file, key, _ = strings.Cut(r.Name, "/")
	return file, key
}

// FilePath joins the preset path and file name for repository sources.
func (r *Ref) FilePath(ext string) string {
	file, _ := r.FileName()
	if r.Path == "" {
		return file + ext
	}
	return r.Path + "/" + file + ext
}
