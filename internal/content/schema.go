package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrProjectValidation = errors.New("content: project descriptor validation failed")

// projectSchema constrains the raw YAML descriptor file before it is decoded
// into Project values. Field-level rules (URL shape, status values) are left
// to Project.Validate.
const projectSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["slug", "name", "summary"],
		"additionalProperties": false,
		"properties": {
			"slug": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"summary": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"repo": {"type": "string"},
			"url": {"type": "string"},
			"status": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"year": {"type": "integer"},
			"featured": {"type": "boolean"}
		}
	}
}`

var (
	compiledProjectSchema *jsonschema.Schema
	compileProjectsOnce   sync.Once
	compileProjectsErr    error
)

// ValidationIssue captures a single descriptor validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// DescriptorValidationError surfaces descriptor issues with document context.
type DescriptorValidationError struct {
	Issues []ValidationIssue
	Cause  error
}

func (e *DescriptorValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrProjectValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *DescriptorValidationError) Unwrap() error {
	return ErrProjectValidation
}

// ValidateProjectDocument validates the decoded descriptor document against
// the project schema.
func ValidateProjectDocument(doc any) error {
	compiled, err := projectSchemaCompiled()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProjectValidation, err)
	}
	if err := compiled.Validate(doc); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return &DescriptorValidationError{
				Issues: collectValidationIssues(validationErr),
				Cause:  err,
			}
		}
		return fmt.Errorf("%w: %v", ErrProjectValidation, err)
	}
	return nil
}

func projectSchemaCompiled() (*jsonschema.Schema, error) {
	compileProjectsOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("projects.json", bytes.NewReader([]byte(projectSchema))); err != nil {
			compileProjectsErr = err
			return
		}
		compiledProjectSchema, compileProjectsErr = compiler.Compile("projects.json")
	})
	return compiledProjectSchema, compileProjectsErr
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if err == nil {
		return nil
	}
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}

// normalizeDocument converts YAML-decoded values into the JSON shapes the
// schema validator expects.
func normalizeDocument(value any) (any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
