package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const recordingSchema = `{
  "type": "object",
  "required": ["title", "tracks"],
  "properties": {
    "title": {"type": "string"},
    "bpm": {"type": "number", "exclusiveMinimum": 0},
    "tracks": {"type": "array"}
  }
}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	return dir
}

func TestValidateFile_Valid(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.schema.json": recordingSchema,
		"recording.json":        `{"$schema": "./recording.schema.json", "title": "Week 3", "tracks": []}`,
	})

	data, err := ValidateFile(filepath.Join(dir, "recording.json"))
	if err != nil {
		t.Fatalf("ValidateFile() failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected raw document bytes")
	}
}

func TestValidateFile_SchemaViolation(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.schema.json": recordingSchema,
		// Missing required "tracks", bpm not positive.
		"recording.json": `{"$schema": "./recording.schema.json", "title": "Week 3", "bpm": -10}`,
	})

	_, err := ValidateFile(filepath.Join(dir, "recording.json"))
	if err == nil {
		t.Fatal("ValidateFile() should fail schema validation")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestValidateFile_ParentRelativeSchema(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.schema.json":     recordingSchema,
		"week3/recording.json":      `{"$schema": "../recording.schema.json", "title": "Week 3", "tracks": []}`,
		"week3/also-unrelated.json": `{}`,
	})

	if _, err := ValidateFile(filepath.Join(dir, "week3", "recording.json")); err != nil {
		t.Fatalf("ValidateFile() failed for ../ schema ref: %v", err)
	}
}

func TestValidateFile_NoSchemaAccepted(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.json": `{"title": "no schema here", "tracks": []}`,
	})

	if _, err := ValidateFile(filepath.Join(dir, "recording.json")); err != nil {
		t.Fatalf("ValidateFile() should accept documents without $schema: %v", err)
	}
}

func TestValidateFile_RemoteSchemaSkipped(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.json": `{"$schema": "https://example.com/schema.json", "anything": true}`,
	})

	// Remote schemas are not fetched; the document passes through.
	if _, err := ValidateFile(filepath.Join(dir, "recording.json")); err != nil {
		t.Fatalf("ValidateFile() should skip remote schema refs: %v", err)
	}
}

func TestValidateFile_MissingSchemaFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.json": `{"$schema": "./gone.schema.json", "title": "x"}`,
	})

	if _, err := ValidateFile(filepath.Join(dir, "recording.json")); err == nil {
		t.Fatal("ValidateFile() should fail when the referenced schema is missing")
	}
}

func TestValidateFile_InvalidJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"recording.json": `{"title": `,
	})

	if _, err := ValidateFile(filepath.Join(dir, "recording.json")); err == nil {
		t.Fatal("ValidateFile() should fail on malformed JSON")
	}
}
