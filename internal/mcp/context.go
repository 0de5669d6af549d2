package mcp

import "context"

type ctxKey string

const ctxKeySession ctxKey = "mcp_session"

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySession, id)
}

// SessionID returns the streamable-HTTP session or TCP connection id stored in ctx.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeySession).(string)
	return id
}
