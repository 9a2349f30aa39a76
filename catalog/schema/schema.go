// Package schema validates catalog JSON documents against the JSON Schema
// files they reference. A document opts in by pointing its top-level $schema
// at a local schema file; documents without a local $schema are accepted
// unvalidated so contributors can stage new files before a schema exists.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError represents a schema validation failure for one document.
type ValidationError struct {
	Path     string
	Message  string
	Original error
}

func (e *ValidationError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Schema validation error: %s: %s: %v", e.Path, e.Message, e.Original)
	}
	return fmt.Sprintf("Schema validation error: %s: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Original
}

// localSchemaRef returns the document's $schema value when it points at a
// local file (./ or ../ prefix), and "" otherwise.
func localSchemaRef(doc interface{}) string {
	m, ok := doc.(map[string]interface{})
	if !ok {
		return ""
	}
	ref, ok := m["$schema"].(string)
	if !ok {
		return ""
	}
	if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		return ref
	}
	return ""
}

// ValidateFile reads the JSON document at path and, when it carries a local
// $schema reference, validates it against the compiled schema. The raw
// document bytes are returned for subsequent struct decoding.
func ValidateFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Path: path, Message: "failed to read document", Original: err}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Path: path, Message: "document is not valid JSON", Original: err}
	}

	ref := localSchemaRef(doc)
	if ref == "" {
		// No local schema, accept as-is.
		return data, nil
	}

	schemaPath := filepath.Join(filepath.Dir(path), ref)
	if _, err := os.Stat(schemaPath); err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("referenced schema not found: %s", schemaPath), Original: err}
	}

	compiler := jsonschema.NewCompiler()
	sch, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("failed to compile schema %s", schemaPath), Original: err}
	}

	if err := sch.Validate(doc); err != nil {
		return nil, &ValidationError{Path: path, Message: "schema validation failed", Original: err}
	}

	return data, nil
}
