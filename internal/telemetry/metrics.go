package telemetry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var defaultRegistry = newRegistry()

var durationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}

// histogram keeps per-bucket counts; the last slot is +Inf. Rendering makes them cumulative.
type histogram struct {
	counts []int64
	sum    float64
}

type registry struct {
	mu sync.Mutex
	// tool -> mode -> status
	toolCalls map[string]map[string]map[string]int64
	// tool -> mode
	toolDurations map[string]map[string]*histogram
	// service -> operation -> status code
	upstreamErrors map[string]map[string]map[int]int64
	startedAt      time.Time
}

func newRegistry() *registry {
	return &registry{
		toolCalls:      make(map[string]map[string]map[string]int64),
		toolDurations:  make(map[string]map[string]*histogram),
		upstreamErrors: make(map[string]map[string]map[int]int64),
		startedAt:      time.Now(),
	}
}

// Reset drops every recorded sample.
func Reset() {
	r := newRegistry()
	defaultRegistry.mu.Lock()
	defaultRegistry.toolCalls = r.toolCalls
	defaultRegistry.toolDurations = r.toolDurations
	defaultRegistry.upstreamErrors = r.upstreamErrors
	defaultRegistry.startedAt = r.startedAt
	defaultRegistry.mu.Unlock()
}

func IncToolCall(toolName, status, mode string) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	byMode, ok := defaultRegistry.toolCalls[toolName]
	if !ok {
		byMode = make(map[string]map[string]int64)
		defaultRegistry.toolCalls[toolName] = byMode
	}
	if _, ok := byMode[mode]; !ok {
		byMode[mode] = make(map[string]int64)
	}
	byMode[mode][status]++
}

func ObserveToolDuration(toolName, mode string, d time.Duration) {
	sec := d.Seconds()
	idx := len(durationBuckets)
	for i, b := range durationBuckets {
		if sec <= b {
			idx = i
			break
		}
	}

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	byMode, ok := defaultRegistry.toolDurations[toolName]
	if !ok {
		byMode = make(map[string]*histogram)
		defaultRegistry.toolDurations[toolName] = byMode
	}
	h, ok := byMode[mode]
	if !ok {
		h = &histogram{counts: make([]int64, len(durationBuckets)+1)}
		byMode[mode] = h
	}
	h.counts[idx]++
	h.sum += sec
}

// IncUpstreamError counts a failed upstream call. statusCode is 0 for transport failures.
func IncUpstreamError(service, operation string, statusCode int) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	byOp, ok := defaultRegistry.upstreamErrors[service]
	if !ok {
		byOp = make(map[string]map[int]int64)
		defaultRegistry.upstreamErrors[service] = byOp
	}
	if _, ok := byOp[operation]; !ok {
		byOp[operation] = make(map[int]int64)
	}
	byOp[operation][statusCode]++
}

func RenderPrometheus() string {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	var sb strings.Builder

	sb.WriteString("# TYPE finmcp_tool_calls_total counter\n")
	for _, tool := range sortedKeys(defaultRegistry.toolCalls) {
		byMode := defaultRegistry.toolCalls[tool]
		for _, mode := range sortedKeys(byMode) {
			for _, status := range sortedKeys(byMode[mode]) {
				sb.WriteString(fmt.Sprintf("finmcp_tool_calls_total{tool=\"%s\",status=\"%s\",mode=\"%s\"} %d\n", tool, status, mode, byMode[mode][status]))
			}
		}
	}

	sb.WriteString("# TYPE finmcp_tool_duration_seconds histogram\n")
	bucketLabels := []string{"0.1", "0.5", "1", "2", "5", "10", "30", "60", "+Inf"}
	for _, tool := range sortedKeys(defaultRegistry.toolDurations) {
		byMode := defaultRegistry.toolDurations[tool]
		for _, mode := range sortedKeys(byMode) {
			h := byMode[mode]
			var cumulative int64
			for i, v := range h.counts {
				cumulative += v
				sb.WriteString(fmt.Sprintf("finmcp_tool_duration_seconds_bucket{tool=\"%s\",mode=\"%s\",le=\"%s\"} %d\n", tool, mode, bucketLabels[i], cumulative))
			}
			sb.WriteString(fmt.Sprintf("finmcp_tool_duration_seconds_sum{tool=\"%s\",mode=\"%s\"} %s\n", tool, mode, strconv.FormatFloat(h.sum, 'f', -1, 64)))
			sb.WriteString(fmt.Sprintf("finmcp_tool_duration_seconds_count{tool=\"%s\",mode=\"%s\"} %d\n", tool, mode, cumulative))
		}
	}

	sb.WriteString("# TYPE finmcp_upstream_errors_total counter\n")
	for _, service := range sortedKeys(defaultRegistry.upstreamErrors) {
		byOp := defaultRegistry.upstreamErrors[service]
		for _, op := range sortedKeys(byOp) {
			statusCodes := make([]int, 0, len(byOp[op]))
			for sc := range byOp[op] {
				statusCodes = append(statusCodes, sc)
			}
			sort.Ints(statusCodes)
			for _, sc := range statusCodes {
				sb.WriteString(fmt.Sprintf("finmcp_upstream_errors_total{service=\"%s\",operation=\"%s\",status_code=\"%d\"} %d\n", service, op, sc, byOp[op][sc]))
			}
		}
	}

	sb.WriteString("# TYPE finmcp_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("finmcp_uptime_seconds %d\n", int64(time.Since(defaultRegistry.startedAt).Seconds())))

	return sb.String()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
