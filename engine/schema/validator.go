package schema

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Violation is a single schema constraint failure.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Keyword string `json:"keyword,omitempty"`
}

// Result is the verdict for one document. Violations is empty when Valid is true.
type Result struct {
	Valid      bool
	Violations []Violation
}

// Validator applies a compiled schema to configuration documents.
// It is immutable and safe for concurrent use.
type Validator struct {
	location string
	compiled *jsonschema.Schema
	document any
	printer  *message.Printer
}

// Compile builds a Validator from a draft-04 schema document.
func Compile(location string, raw []byte) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrSchemaCompile, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft4)
	compiler.AssertFormat()
	if err := compiler.AddResource(location, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaCompile, err)
	}
	compiled, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaCompile, err)
	}
	return &Validator{
		location: location,
		compiled: compiled,
		document: doc,
		printer:  message.NewPrinter(language.English),
	}, nil
}

// Location is the URL or path the schema was loaded from.
func (v *Validator) Location() string {
	return v.location
}

// Document returns the parsed schema document. Callers must not modify it.
func (v *Validator) Document() any {
	return v.document
}

// Validate checks doc against the schema. A nil document is treated as an empty object.
func (v *Validator) Validate(doc any) Result {
	if doc == nil {
		doc = map[string]any{}
	}
	err := v.compiled.Validate(doc)
	if err == nil {
		return Result{Valid: true}
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return Result{Violations: []Violation{{Message: err.Error()}}}
	}
	violations := v.collect(verr, nil)
	if len(violations) == 0 {
		violations = []Violation{{
			Path:    instancePath(verr.InstanceLocation),
			Message: verr.ErrorKind.LocalizedString(v.printer),
		}}
	}
	return Result{Violations: violations}
}

// collect flattens the error tree depth first. Leaves are reported in engine order;
// a failed oneOf/anyOf is reported after the branch failures it aggregates.
func (v *Validator) collect(err *jsonschema.ValidationError, out []Violation) []Violation {
	if len(err.Causes) == 0 {
		return append(out, v.violation(err))
	}
	for _, cause := range err.Causes {
		out = v.collect(cause, out)
	}
	switch err.ErrorKind.(type) {
	case *kind.OneOf, *kind.AnyOf:
		out = append(out, v.violation(err))
	}
	return out
}

func (v *Validator) violation(err *jsonschema.ValidationError) Violation {
	return Violation{
		Path:    instancePath(err.InstanceLocation),
		Message: err.ErrorKind.LocalizedString(v.printer),
		Keyword: strings.Join(err.ErrorKind.KeywordPath(), "/"),
	}
}

// instancePath renders a JSON pointer; the document root is "".
func instancePath(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range loc {
		sb.WriteByte('/')
		tok = strings.ReplaceAll(tok, "~", "~0")
		sb.WriteString(strings.ReplaceAll(tok, "/", "~1"))
	}
	return sb.String()
}
