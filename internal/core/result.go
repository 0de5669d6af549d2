package core

import (
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewResult builds the uniform tool result: one text block, a structured payload and _meta.
// An empty text is replaced so content is never empty.
func NewResult(text string, structured any, meta map[string]any) *mcp.CallToolResult {
	if strings.TrimSpace(text) == "" {
		text = "Готово"
	}
	res := &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: structured,
	}
	if len(meta) > 0 {
		res.Meta = mcp.Meta(meta)
	}
	return res
}

// ResultText concatenates the text blocks of res.
func ResultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ResultMode returns _meta.mode when present.
func ResultMode(res *mcp.CallToolResult) string {
	if res == nil || res.Meta == nil {
		return ""
	}
	if m, ok := res.Meta["mode"].(string); ok {
		return m
	}
	return ""
}
