package jsonschema

import (
	"strings"
	"testing"
)

const userSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "integer", "minimum": 1},
		"name": {"type": "string", "minLength": 1},
		"email": {"type": "string"}
	}
}`

func TestCompileAndValidate(t *testing.T) {
	schema, err := Compile("user", userSchema)
	if err != nil {
		t.Fatalf("Error compiling schema: %v", err)
	}
	if schema.Name() != "user" {
		t.Errorf("Expected name user, got %q", schema.Name())
	}

	if err := schema.Validate([]byte(`{"id": 1, "name": "ada"}`)); err != nil {
		t.Errorf("Expected a conforming document, got: %v", err)
	}
}

func TestValidateReportsAllFailures(t *testing.T) {
	schema, err := Compile("user", userSchema)
	if err != nil {
		t.Fatalf("Error compiling schema: %v", err)
	}

	err = schema.Validate([]byte(`{"id": 0}`))
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
	}
	if len(verrs) < 2 {
		t.Errorf("Expected both the missing name and the minimum violation, got: %v", verrs)
	}
	if !strings.Contains(verrs.Error(), ";") {
		t.Errorf("Expected aggregated message, got %q", verrs.Error())
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	schema, err := Compile("user", userSchema)
	if err != nil {
		t.Fatalf("Error compiling schema: %v", err)
	}

	err = schema.Validate([]byte(`{"id": `))
	if err == nil {
		t.Fatal("Expected an error for malformed JSON")
	}
	if _, ok := err.(ValidationErrors); ok {
		t.Error("Malformed JSON should not be reported as a schema failure")
	}
}

func TestCompileRejectsBadSchema(t *testing.T) {
	if _, err := Compile("broken", `{"type": "nonsense"}`); err == nil {
		t.Fatal("Expected a compile error for an invalid type")
	}
	if _, err := Compile("broken", `{`); err == nil {
		t.Fatal("Expected a compile error for malformed schema JSON")
	}
}

func TestSchemaIsReusable(t *testing.T) {
	schema, err := Compile("user", userSchema)
	if err != nil {
		t.Fatalf("Error compiling schema: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := schema.Validate([]byte(`{"id": 2, "name": "grace"}`)); err != nil {
			t.Fatalf("Iteration %d: unexpected error: %v", i, err)
		}
		if err := schema.Validate([]byte(`{"name": 7}`)); err == nil {
			t.Fatalf("Iteration %d: expected a failure", i)
		}
	}
}
