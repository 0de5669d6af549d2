package core

import (
	"context"
	"log/slog"
)

// Reporter receives progress and log lines from long-running tools.
type Reporter interface {
	Log(ctx context.Context, msg string)
	ReportProgress(ctx context.Context, done, total int)
}

type NopReporter struct{}

func (NopReporter) Log(context.Context, string)              {}
func (NopReporter) ReportProgress(context.Context, int, int) {}

// LogReporter forwards reports to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
	Tool   string
}

func (r LogReporter) Log(ctx context.Context, msg string) {
	r.Logger.InfoContext(ctx, "tool log", "tool_name", r.Tool, "message", msg)
}

func (r LogReporter) ReportProgress(ctx context.Context, done, total int) {
	r.Logger.DebugContext(ctx, "tool progress", "tool_name", r.Tool, "done", done, "total", total)
}
