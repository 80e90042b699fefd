package schema

import "errors"

var (
	// ErrSchemaAcquisition reports that the schema document could not be obtained.
	ErrSchemaAcquisition = errors.New("schema acquisition failed")
	// ErrSchemaCompile reports that the schema document is not a valid JSON Schema.
	ErrSchemaCompile = errors.New("schema compilation failed")
)
