package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finmcp/finmcp/internal/schema"
	"github.com/finmcp/finmcp/internal/telemetry"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler runs one tool call. Returned errors are classified by the registry.
type Handler func(ctx context.Context, call *Call) (*mcp.CallToolResult, error)

// Tool binds a definition to its handler.
type Tool struct {
	Def     *mcp.Tool
	Handler Handler
	// Mode labels metrics when the result carries no _meta.mode.
	Mode string
	// FailureMessage is shown for unclassified handler errors.
	FailureMessage string
}

// Call is a single invocation as seen by a handler.
type Call struct {
	Name     string
	TraceID  string
	Args     json.RawMessage
	Reporter Reporter
}

// Bind decodes the call arguments into v.
func (c *Call) Bind(v any) error {
	raw := bytes.TrimSpace(c.Args)
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return Invalid("invalid arguments: %v", err)
	}
	return nil
}

type registeredTool struct {
	Tool
	validator *schema.Validator
}

// Registry is the explicit list of tools served by one process. It is read-only after
// construction.
type Registry struct {
	logger *slog.Logger
	order  []string
	tools  map[string]*registeredTool
}

// NewRegistry compiles every tool's input schema. Duplicate names are an error.
func NewRegistry(logger *slog.Logger, tools ...Tool) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger, tools: make(map[string]*registeredTool, len(tools))}
	for _, t := range tools {
		if t.Def == nil || t.Def.Name == "" {
			return nil, errors.New("tool without name")
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", t.Def.Name)
		}
		if _, dup := r.tools[t.Def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", t.Def.Name)
		}
		v, err := schema.Compile(t.Def.Name, t.Def.InputSchema)
		if err != nil {
			return nil, err
		}
		r.tools[t.Def.Name] = &registeredTool{Tool: t, validator: v}
		r.order = append(r.order, t.Def.Name)
	}
	return r, nil
}

// Tools returns tool definitions in registration order.
func (r *Registry) Tools() []*mcp.Tool {
	out := make([]*mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Def)
	}
	return out
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

type traceKey struct{}

// WithTraceID makes Registry.Call log under id instead of a fresh uuid.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Call validates arguments, runs the handler and records the outcome.
// The returned error is always classified.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage, reporter Reporter) (*mcp.CallToolResult, error) {
	traceID := TraceID(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	start := time.Now()

	t, ok := r.tools[name]
	if !ok {
		err := Invalid("unknown tool: %s", name)
		r.logger.WarnContext(ctx, "tool call rejected", "trace_id", traceID, "tool_name", name, "error", err.Error())
		return nil, err
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	var (
		res *mcp.CallToolResult
		err error
	)
	if verr := t.validator.Validate(args); verr != nil {
		err = &ValidationError{Message: verr.Error()}
	} else {
		res, err = t.Handler(ctx, &Call{Name: name, TraceID: traceID, Args: args, Reporter: reporter})
		if err == nil && res == nil {
			err = &InternalError{Message: t.failureMessage(), Cause: errors.New("handler returned no result")}
		}
	}
	err = Classify(err, t.failureMessage())

	mode := ResultMode(res)
	if mode == "" {
		mode = t.Mode
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	elapsed := time.Since(start)
	telemetry.IncToolCall(name, status, mode)
	telemetry.ObserveToolDuration(name, mode, elapsed)

	attrs := []any{"trace_id", traceID, "tool_name", name, "mode", mode, "status", status, "duration", elapsed}
	if err == nil {
		r.logger.InfoContext(ctx, "tool call completed", attrs...)
		return res, nil
	}

	info := MapError(err)
	attrs = append(attrs, "error_code", info.Code, "error", err.Error())
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		attrs = append(attrs, "status_code", upstream.StatusCode)
	}
	if info.Code == "internal_error" {
		r.logger.ErrorContext(ctx, "tool call completed", attrs...)
	} else {
		r.logger.WarnContext(ctx, "tool call completed", attrs...)
	}
	return nil, err
}

func (t *registeredTool) failureMessage() string {
	if t.FailureMessage != "" {
		return t.FailureMessage
	}
	return "Не удалось выполнить " + t.Def.Name
}
