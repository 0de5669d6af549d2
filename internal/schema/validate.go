// Package schema validates tool call arguments against the tool's declared input schema.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator is a compiled input schema. It is safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile marshals schema (a *jsonschema.Schema from jsonschema-go, a map or raw JSON) and
// compiles it once. A nil schema yields a Validator that accepts any object.
func Compile(name string, schema any) (*Validator, error) {
	if schema == nil {
		return &Validator{}, nil
	}

	var schemaJSON []byte
	switch s := schema.(type) {
	case json.RawMessage:
		schemaJSON = s
	case []byte:
		schemaJSON = s
	default:
		b, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", name, err)
		}
		schemaJSON = b
	}

	c := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := c.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("schema resource %s: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks raw arguments. Empty input is treated as an empty object.
// The returned error message names the offending argument and is safe to show callers.
func (v *Validator) Validate(raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		raw = json.RawMessage("{}")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return errors.New("arguments must be a JSON object")
	}
	if v == nil || v.schema == nil {
		return nil
	}

	if err := v.schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return errors.New(describe(verr))
		}
		return err
	}
	return nil
}

func describe(verr *jsonschema.ValidationError) string {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if loc == "" {
		return "invalid arguments: " + leaf.Message
	}
	return fmt.Sprintf("invalid argument %s: %s", strings.ReplaceAll(loc, "/", "."), leaf.Message)
}
