package config

import (
	"reflect"
	"sync"
)

// EnvBinding ties an environment variable to the config path it sets.
type EnvBinding struct {
	Env       string
	Path      string
	Sensitive bool
}

var sensitiveType = reflect.TypeFor[SensitiveString]()

var envBindings = sync.OnceValue(func() []EnvBinding {
	return collectBindings(reflect.TypeFor[Config](), "")
})

// EnvBindings returns every variable declared through `env` tags on Config.
func EnvBindings() []EnvBinding {
	return envBindings()
}

func collectBindings(t reflect.Type, prefix string) []EnvBinding {
	var out []EnvBinding
	for field := range fieldsOf(t) {
		path := field.Tag.Get("koanf")
		if prefix != "" {
			path = prefix + "." + path
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			out = append(out, collectBindings(field.Type, path)...)
			continue
		}
		env := field.Tag.Get("env")
		if env == "" || env == "-" {
			continue
		}
		out = append(out, EnvBinding{
			Env:       env,
			Path:      path,
			Sensitive: field.Type == sensitiveType || field.Tag.Get("sensitive") == "true",
		})
	}
	return out
}

// fieldsOf yields exported fields that carry a koanf key.
func fieldsOf(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if tag := f.Tag.Get("koanf"); tag == "" || tag == "-" {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

func envToPath() map[string]string {
	bindings := EnvBindings()
	out := make(map[string]string, len(bindings))
	for _, b := range bindings {
		out[b.Env] = b.Path
	}
	return out
}

// EnvVarFor returns the variable that sets path, or "" when none does.
func EnvVarFor(path string) string {
	for _, b := range EnvBindings() {
		if b.Path == path {
			return b.Env
		}
	}
	return ""
}

// IsSensitivePath reports whether path holds a credential.
func IsSensitivePath(path string) bool {
	for _, b := range EnvBindings() {
		if b.Path == path {
			return b.Sensitive
		}
	}
	return false
}
