package core

import "github.com/modelcontextprotocol/go-sdk/mcp"

// ContractVersion is reported by /version and the agent card.
const ContractVersion = "2024-11-05"

// ToolEnvelope is the REST bridge's response wrapper around a tool call.
type ToolEnvelope struct {
	OK     bool       `json:"ok"`
	Meta   ToolMeta   `json:"meta"`
	Result any        `json:"result,omitempty"`
	Error  *ToolError `json:"error,omitempty"`
}

// ToolMeta identifies the call and carries the result's _meta block.
type ToolMeta struct {
	TraceID  string         `json:"trace_id"`
	Tool     string         `json:"tool"`
	Mode     string         `json:"mode,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	Duration int64          `json:"duration_ms"`
}

// ToolError represents a tool-level error (distinct from transport errors).
type ToolError struct {
	Code    string `json:"code"`
	RPCCode int    `json:"rpc_code"`
	Message string `json:"message"`
}

// EnvelopeResult is the REST shape of a successful call.
type EnvelopeResult struct {
	Text       string `json:"text"`
	Structured any    `json:"structured,omitempty"`
}

// NewEnvelope wraps a call outcome for the REST bridge. Exactly one of res and err is used.
func NewEnvelope(traceID, tool string, res *mcp.CallToolResult, err error, durationMS int64) ToolEnvelope {
	env := ToolEnvelope{Meta: ToolMeta{TraceID: traceID, Tool: tool, Duration: durationMS}}
	if err != nil {
		info := MapError(err)
		env.Error = &ToolError{Code: info.Code, RPCCode: info.RPCCode, Message: info.Message}
		return env
	}
	env.OK = true
	env.Meta.Mode = ResultMode(res)
	if res != nil {
		env.Meta.Extra = res.Meta
		env.Result = EnvelopeResult{Text: ResultText(res), Structured: res.StructuredContent}
	}
	return env
}
