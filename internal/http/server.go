// Package http serves the service endpoints: health and info, metrics, the agent card,
// the REST tool bridge and the MCP streamable-HTTP mount.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/telemetry"
	"github.com/google/uuid"
)

const (
	maxRequestBodyBytes = 1 << 20
	mcpPath             = "/mcp"
	agentCardPath       = "/.well-known/agent-card.json"
)

type BuildInfo struct {
	Version         string
	GitCommit       string
	BuildTime       string
	ContractVersion string
}

type Options struct {
	Addr string
	// Service is the display name, e.g. fns-tax-mcp.
	Service       string
	Modes         map[string]string
	Registry      *core.Registry
	MCP           http.Handler
	EnableMetrics bool
	Build         BuildInfo
	Logger        *slog.Logger
}

type Server struct {
	opts   Options
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts, logger: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /version", s.handleVersion)
	if opts.EnableMetrics {
		mux.HandleFunc("GET /metrics", s.handleMetrics)
	}
	mux.HandleFunc("GET "+agentCardPath, s.handleAgentCard)
	mux.HandleFunc("GET /.well-known/agent.json", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, agentCardPath, http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("POST /api/v1/tools/{name}", s.handleToolCall)
	if opts.MCP != nil {
		mux.Handle(mcpPath, opts.MCP)
	}

	// No WriteTimeout: file tools may legitimately run up to the upstream file timeout.
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           withLogging(opts.Logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server starting", "addr", s.srv.Addr)
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": s.opts.Service})
}

func (s *Server) toolNames() []string {
	if s.opts.Registry == nil {
		return []string{}
	}
	return s.opts.Registry.Names()
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":       s.opts.Service,
		"version":       s.opts.Build.Version,
		"modes":         s.opts.Modes,
		"tools":         s.toolNames(),
		"mcp_endpoint":  mcpPath,
		"rest_endpoint": "/api/v1/tools/{name}",
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":          s.opts.Build.Version,
		"git_commit":       s.opts.Build.GitCommit,
		"build_time":       s.opts.Build.BuildTime,
		"contract_version": s.opts.Build.ContractVersion,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, telemetry.RenderPrometheus())
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	var skills []map[string]any
	if s.opts.Registry != nil {
		for _, t := range s.opts.Registry.Tools() {
			skills = append(skills, map[string]any{"id": t.Name, "name": t.Name, "description": t.Description})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":               s.opts.Service,
		"description":        "MCP tool server: " + s.opts.Service,
		"version":            s.opts.Build.Version,
		"protocolVersion":    s.opts.Build.ContractVersion,
		"url":                mcpPath,
		"preferredTransport": "streamable-http",
		"capabilities":       map[string]any{"streaming": false, "pushNotifications": false},
		"defaultInputModes":  []string{"application/json"},
		"defaultOutputModes": []string{"application/json", "text/plain"},
		"skills":             skills,
	})
}

// handleToolCall is the REST bridge: the body is the tool's argument object.
func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	traceID := uuid.NewString()
	w.Header().Set("X-Trace-Id", traceID)

	if s.opts.Registry == nil || !s.opts.Registry.Has(name) {
		writeJSON(w, http.StatusNotFound, core.ToolEnvelope{
			Meta:  core.ToolMeta{TraceID: traceID, Tool: name},
			Error: &core.ToolError{Code: "tool_not_found", RPCCode: core.RPCInvalidParams, Message: "unknown tool: " + name},
		})
		return
	}

	args, err := readArguments(w, r)
	if err != nil {
		env := core.NewEnvelope(traceID, name, nil, core.Invalid("invalid json: %v", err), 0)
		writeJSON(w, http.StatusBadRequest, env)
		return
	}

	start := time.Now()
	ctx := core.WithTraceID(r.Context(), traceID)
	res, err := s.opts.Registry.Call(ctx, name, args, core.LogReporter{Logger: s.logger, Tool: name})
	env := core.NewEnvelope(traceID, name, res, err, time.Since(start).Milliseconds())

	status := http.StatusOK
	if err != nil {
		status = core.MapError(err).HTTPStatus
	}
	writeJSON(w, status, env)
}

// readArguments returns the body as a JSON object; an empty body means no arguments.
func readArguments(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("{}"), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	return json.RawMessage(body), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
