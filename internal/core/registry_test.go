package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/finmcp/finmcp/internal/telemetry"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func echoTool(handler Handler) Tool {
	return Tool{
		Def: &mcp.Tool{
			Name:        "echo",
			Description: "echo",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}},
				Required:   []string{"text"},
			},
		},
		Handler:        handler,
		Mode:           "test",
		FailureMessage: "Не удалось повторить",
	}
}

func TestRegistryCallSuccess(t *testing.T) {
	telemetry.Reset()
	r, err := NewRegistry(quietLogger(), echoTool(func(ctx context.Context, call *Call) (*mcp.CallToolResult, error) {
		var in struct{ Text string }
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		assert.NotEmpty(t, call.TraceID)
		return NewResult(in.Text, map[string]any{"text": in.Text}, map[string]any{"mode": "sandbox"}), nil
	}))
	require.NoError(t, err)

	res, err := r.Call(context.Background(), "echo", json.RawMessage(`{"text":"привет"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "привет", ResultText(res))
	assert.Contains(t, telemetry.RenderPrometheus(), `finmcp_tool_calls_total{tool="echo",status="ok",mode="sandbox"} 1`)
}

func TestRegistryCallSchemaViolation(t *testing.T) {
	called := false
	r, err := NewRegistry(quietLogger(), echoTool(func(context.Context, *Call) (*mcp.CallToolResult, error) {
		called = true
		return NewResult("x", nil, nil), nil
	}))
	require.NoError(t, err)

	_, err = r.Call(context.Background(), "echo", json.RawMessage(`{}`), nil)
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, RPCInvalidParams, MapError(err).RPCCode)
	assert.Contains(t, err.Error(), "text")
}

func TestRegistryCallUnknownTool(t *testing.T) {
	r, err := NewRegistry(quietLogger())
	require.NoError(t, err)

	_, err = r.Call(context.Background(), "nope", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "unknown tool: nope", MapError(err).Message)
	assert.Equal(t, RPCInvalidParams, MapError(err).RPCCode)
}

func TestRegistryCallClassifiesUnexpectedErrors(t *testing.T) {
	r, err := NewRegistry(quietLogger(), echoTool(func(context.Context, *Call) (*mcp.CallToolResult, error) {
		return nil, errors.New("secret connection string leaked")
	}))
	require.NoError(t, err)

	_, err = r.Call(context.Background(), "echo", json.RawMessage(`{"text":"a"}`), nil)
	info := MapError(err)
	assert.Equal(t, RPCInternalError, info.RPCCode)
	assert.Equal(t, "Не удалось повторить", info.Message)
	assert.False(t, strings.Contains(info.Message, "secret"))
}

func TestRegistryCallPropagatesClassifiedErrors(t *testing.T) {
	upstream := &UpstreamError{Operation: "echo", StatusCode: 500, Message: "Банк вернул ошибку 500"}
	r, err := NewRegistry(quietLogger(), echoTool(func(context.Context, *Call) (*mcp.CallToolResult, error) {
		return nil, upstream
	}))
	require.NoError(t, err)

	_, err = r.Call(context.Background(), "echo", json.RawMessage(`{"text":"a"}`), nil)
	assert.Same(t, upstream, err)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	h := func(context.Context, *Call) (*mcp.CallToolResult, error) { return nil, nil }
	_, err := NewRegistry(quietLogger(), echoTool(h), echoTool(h))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegistryToolsKeepOrder(t *testing.T) {
	h := func(context.Context, *Call) (*mcp.CallToolResult, error) { return nil, nil }
	a := Tool{Def: &mcp.Tool{Name: "b_tool", InputSchema: &jsonschema.Schema{Type: "object"}}, Handler: h}
	b := Tool{Def: &mcp.Tool{Name: "a_tool", InputSchema: &jsonschema.Schema{Type: "object"}}, Handler: h}
	r, err := NewRegistry(quietLogger(), a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"b_tool", "a_tool"}, r.Names())
	assert.True(t, r.Has("a_tool"))
	assert.Len(t, r.Tools(), 2)
}

func TestNewResultNeverEmpty(t *testing.T) {
	res := NewResult("", nil, nil)
	require.Len(t, res.Content, 1)
	assert.NotEmpty(t, ResultText(res))
	assert.Empty(t, ResultMode(res))
}

func TestNewEnvelope(t *testing.T) {
	ok := NewEnvelope("t1", "echo", NewResult("hi", map[string]any{"a": 1}, map[string]any{"mode": "test"}), nil, 5)
	assert.True(t, ok.OK)
	assert.Equal(t, "test", ok.Meta.Mode)
	assert.Nil(t, ok.Error)

	failed := NewEnvelope("t2", "echo", nil, Invalid("bad"), 1)
	assert.False(t, failed.OK)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "invalid_params", failed.Error.Code)
	assert.Equal(t, RPCInvalidParams, failed.Error.RPCCode)
}

func TestRegistryCallUsesContextTraceID(t *testing.T) {
	var got string
	r, err := NewRegistry(quietLogger(), echoTool(func(_ context.Context, call *Call) (*mcp.CallToolResult, error) {
		got = call.TraceID
		return NewResult("ok", nil, nil), nil
	}))
	require.NoError(t, err)

	_, err = r.Call(WithTraceID(context.Background(), "trace-1"), "echo", json.RawMessage(`{"text":"x"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "trace-1", got)
}
