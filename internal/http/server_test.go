package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/telemetry"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testServer(t *testing.T, enableMetrics bool, mcpHandler http.Handler) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	greet := core.Tool{
		Def: &mcp.Tool{
			Name:        "greet",
			Description: "Greets by name",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"name": {Type: "string"}},
				Required:   []string{"name"},
			},
		},
		Mode: "test",
		Handler: func(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
			var in struct{ Name string }
			if err := call.Bind(&in); err != nil {
				return nil, err
			}
			if in.Name == "boom" {
				return nil, &core.UpstreamError{Operation: "greet", StatusCode: 500, Message: "upstream failed"}
			}
			return core.NewResult("Привет, "+in.Name, map[string]any{"trace": call.TraceID}, map[string]any{"mode": "test"}), nil
		},
	}
	reg, err := core.NewRegistry(logger, greet)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewServer(Options{
		Addr:          "127.0.0.1:0",
		Service:       "fns-tax-mcp",
		Modes:         map[string]string{"tax": "test"},
		Registry:      reg,
		MCP:           mcpHandler,
		EnableMetrics: enableMetrics,
		Build:         BuildInfo{Version: "0.1.0", ContractVersion: core.ContractVersion},
		Logger:        logger,
	})
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	rr := serve(testServer(t, false, nil), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "ok" || got["service"] != "fns-tax-mcp" {
		t.Fatalf("unexpected health body: %v", got)
	}
}

func TestInfoEndpointListsTools(t *testing.T) {
	rr := serve(testServer(t, false, nil), http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got struct {
		Service     string            `json:"service"`
		Tools       []string          `json:"tools"`
		Modes       map[string]string `json:"modes"`
		MCPEndpoint string            `json:"mcp_endpoint"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Tools) != 1 || got.Tools[0] != "greet" {
		t.Fatalf("unexpected tools: %v", got.Tools)
	}
	if got.Modes["tax"] != "test" || got.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected info: %+v", got)
	}

	if rr := serve(testServer(t, false, nil), http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rr.Code)
	}
}

func TestMetricsEndpointToggle(t *testing.T) {
	telemetry.Reset()
	s := testServer(t, true, nil)
	serve(s, http.MethodPost, "/api/v1/tools/greet", `{"name":"Анна"}`)

	rr := serve(s, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), `tool="greet"`) {
		t.Fatalf("metrics missing tool counter:\n%s", rr.Body.String())
	}

	if rr := serve(testServer(t, false, nil), http.MethodGet, "/metrics", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with metrics disabled, got %d", rr.Code)
	}
}

func TestAgentCard(t *testing.T) {
	s := testServer(t, false, nil)
	rr := serve(s, http.MethodGet, "/.well-known/agent-card.json", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var card struct {
		Name   string `json:"name"`
		Skills []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"skills"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Name != "fns-tax-mcp" || len(card.Skills) != 1 || card.Skills[0].Description != "Greets by name" {
		t.Fatalf("unexpected card: %+v", card)
	}

	rr = serve(s, http.MethodGet, "/.well-known/agent.json", "")
	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/.well-known/agent-card.json" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) core.ToolEnvelope {
	t.Helper()
	var env core.ToolEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, rr.Body.String())
	}
	return env
}

func TestToolBridgeSuccess(t *testing.T) {
	rr := serve(testServer(t, false, nil), http.MethodPost, "/api/v1/tools/greet", `{"name":"Анна"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if !env.OK || env.Meta.Mode != "test" || env.Meta.Tool != "greet" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	traceID := rr.Header().Get("X-Trace-Id")
	if traceID == "" || env.Meta.TraceID != traceID {
		t.Fatalf("trace id mismatch: header %q, meta %q", traceID, env.Meta.TraceID)
	}
	result, _ := env.Result.(map[string]any)
	if result["text"] != "Привет, Анна" {
		t.Fatalf("unexpected result: %v", env.Result)
	}
	structured, _ := result["structured"].(map[string]any)
	if structured["trace"] != traceID {
		t.Fatalf("handler saw trace %v, want %q", structured["trace"], traceID)
	}
}

func TestToolBridgeErrors(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		body    string
		status  int
		code    string
		rpcCode int
	}{
		{name: "unknown tool", target: "/api/v1/tools/missing", body: `{}`, status: http.StatusNotFound, code: "tool_not_found", rpcCode: core.RPCInvalidParams},
		{name: "schema violation", target: "/api/v1/tools/greet", body: `{}`, status: http.StatusBadRequest, code: "invalid_params", rpcCode: core.RPCInvalidParams},
		{name: "empty body", target: "/api/v1/tools/greet", body: "", status: http.StatusBadRequest, code: "invalid_params", rpcCode: core.RPCInvalidParams},
		{name: "not an object", target: "/api/v1/tools/greet", body: `[1,2]`, status: http.StatusBadRequest, code: "invalid_params", rpcCode: core.RPCInvalidParams},
		{name: "upstream failure", target: "/api/v1/tools/greet", body: `{"name":"boom"}`, status: http.StatusBadGateway, rpcCode: core.RPCInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(testServer(t, false, nil), http.MethodPost, tc.target, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			env := decodeEnvelope(t, rr)
			if env.OK || env.Error == nil {
				t.Fatalf("expected error envelope, got %+v", env)
			}
			if tc.code != "" && env.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, env.Error.Code)
			}
			if env.Error.RPCCode != tc.rpcCode {
				t.Fatalf("expected rpc code %d, got %d", tc.rpcCode, env.Error.RPCCode)
			}
		})
	}
}

func TestMCPMount(t *testing.T) {
	hit := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusAccepted)
	})
	rr := serve(testServer(t, false, h), http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if !hit || rr.Code != http.StatusAccepted {
		t.Fatalf("mcp handler not reached: hit=%v code=%d", hit, rr.Code)
	}
}
