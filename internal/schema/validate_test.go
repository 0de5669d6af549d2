package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statementSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"from_date":     {Type: "string"},
			"to_date":       {Type: "string"},
			"bank_provider": {Type: "string", Enum: []any{"tbank", "modulbank", "alfa"}},
			"page":          {Type: "integer"},
		},
		Required: []string{"from_date", "to_date"},
	}
}

func TestValidateAcceptsValidArguments(t *testing.T) {
	v, err := Compile("get_bank_statement", statementSchema())
	require.NoError(t, err)

	err = v.Validate(json.RawMessage(`{"from_date":"2025-01-01","to_date":"2025-01-31","bank_provider":"alfa"}`))
	assert.NoError(t, err)
}

func TestValidateRejectsBadArguments(t *testing.T) {
	v, err := Compile("get_bank_statement", statementSchema())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "missing required", raw: `{"from_date":"2025-01-01"}`, want: "to_date"},
		{name: "wrong type", raw: `{"from_date":"2025-01-01","to_date":"2025-01-31","page":"x"}`, want: "page"},
		{name: "enum", raw: `{"from_date":"a","to_date":"b","bank_provider":"sber"}`, want: "bank_provider"},
		{name: "not an object", raw: `[1,2]`, want: "JSON object"},
		{name: "broken json", raw: `{"from_date":`, want: "not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(json.RawMessage(tt.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateEmptyArgumentsAsObject(t *testing.T) {
	v, err := Compile("get_api_statistics", &jsonschema.Schema{Type: "object"})
	require.NoError(t, err)
	assert.NoError(t, v.Validate(nil))
	assert.NoError(t, v.Validate(json.RawMessage("null")))
}

func TestCompileNilSchema(t *testing.T) {
	v, err := Compile("free", nil)
	require.NoError(t, err)
	assert.NoError(t, v.Validate(json.RawMessage(`{"anything":true}`)))
}
