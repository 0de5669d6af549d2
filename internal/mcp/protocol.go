// Package mcp speaks MCP's JSON-RPC 2.0 over two transports: streamable HTTP and
// line-delimited TCP. Both share one Dispatcher backed by the tool registry.
package mcp

import (
	"encoding/json"
	"slices"

	"github.com/finmcp/finmcp/internal/core"
)

const jsonRPCVersion = "2.0"

// Newest first. initialize echoes the client's version when it is listed here.
var protocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

func negotiateVersion(requested string) string {
	if slices.Contains(protocolVersions, requested) {
		return requested
	}
	return protocolVersions[0]
}

// Request is one JSON-RPC message. A nil ID marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r Request) IsNotification() bool { return len(r.ID) == 0 }

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var nullID = json.RawMessage("null")

func parseError() Response {
	return Response{JSONRPC: jsonRPCVersion, ID: nullID, Error: &RPCError{Code: core.RPCParseError, Message: "parse error"}}
}

// notification is a server-to-client message without an id.
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}
