package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/finmcp/finmcp/internal/core"
)

type ServerInfo struct {
	Name    string
	Version string
}

// Dispatcher routes JSON-RPC methods to the registry. It holds no per-session state.
type Dispatcher struct {
	info     ServerInfo
	registry *core.Registry
	logger   *slog.Logger
}

func NewDispatcher(info ServerInfo, registry *core.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{info: info, registry: registry, logger: logger}
}

// Notifier delivers server-to-client notifications; nil when the transport cannot.
type Notifier func(ctx context.Context, method string, params any)

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Meta      struct {
		ProgressToken any `json:"progressToken"`
	} `json:"_meta"`
}

// Handle runs one request. ok is false for notifications, which get no response.
func (d *Dispatcher) Handle(ctx context.Context, req Request, notify Notifier) (resp Response, ok bool) {
	if req.IsNotification() {
		switch req.Method {
		case "notifications/initialized", "notifications/cancelled":
		default:
			d.logger.DebugContext(ctx, "mcp notification ignored", "method", req.Method)
		}
		return Response{}, false
	}

	base := Response{JSONRPC: jsonRPCVersion, ID: req.ID}
	switch req.Method {
	case "initialize":
		var p initializeParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				base.Error = &RPCError{Code: core.RPCInvalidParams, Message: "invalid params: " + err.Error()}
				return base, true
			}
		}
		d.logger.InfoContext(ctx, "mcp initialize", "session_id", SessionID(ctx), "client", p.ClientInfo.Name, "client_version", p.ClientInfo.Version, "protocol_version", p.ProtocolVersion)
		base.Result = map[string]any{
			"protocolVersion": negotiateVersion(p.ProtocolVersion),
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}, "logging": map[string]any{}},
			"serverInfo":      map[string]any{"name": d.info.Name, "version": d.info.Version, "contract_version": core.ContractVersion},
		}
	case "ping":
		base.Result = map[string]any{}
	case "tools/list":
		base.Result = map[string]any{"tools": d.registry.Tools()}
	case "tools/call":
		return d.callTool(ctx, req, base, notify), true
	default:
		base.Error = &RPCError{Code: core.RPCMethodNotFound, Message: "method not found: " + req.Method}
	}
	return base, true
}

func (d *Dispatcher) callTool(ctx context.Context, req Request, base Response, notify Notifier) Response {
	var p toolCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		base.Error = &RPCError{Code: core.RPCInvalidParams, Message: "invalid params: " + err.Error()}
		return base
	}

	var reporter core.Reporter = core.LogReporter{Logger: d.logger, Tool: p.Name}
	if notify != nil {
		reporter = &notifyReporter{notify: notify, token: p.Meta.ProgressToken, fallback: reporter}
	}
	res, err := d.registry.Call(ctx, p.Name, p.Arguments, reporter)
	if err != nil {
		info := core.MapError(err)
		base.Error = &RPCError{Code: info.RPCCode, Message: info.Message}
		return base
	}
	base.Result = res
	return base
}

// notifyReporter turns tool progress and log lines into MCP notifications.
// Progress is only sent when the caller supplied a progress token.
type notifyReporter struct {
	notify   Notifier
	token    any
	fallback core.Reporter
}

func (r *notifyReporter) Log(ctx context.Context, msg string) {
	r.fallback.Log(ctx, msg)
	r.notify(ctx, "notifications/message", map[string]any{"level": "info", "data": msg})
}

func (r *notifyReporter) ReportProgress(ctx context.Context, done, total int) {
	r.fallback.ReportProgress(ctx, done, total)
	if r.token == nil {
		return
	}
	r.notify(ctx, "notifications/progress", map[string]any{"progressToken": r.token, "progress": done, "total": total})
}
