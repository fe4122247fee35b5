// Package metrics standardises metric emission for the request/result
// pipeline stages.
package metrics

import (
	"time"

	"github.com/ivis-ai/rag-gateway/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDropped = "dropped"
)

// Pipeline stages for metric tagging.
const (
	StageDispatch = "dispatch"
	StageConsume  = "consume"
	StagePush     = "push"
	StagePoll     = "poll"
)

// PipelineMetric captures details about one pipeline stage event.
type PipelineMetric struct {
	Stage    string
	Kind     string // request kind or inbound topic
	Result   string
	Duration time.Duration
}

// EmitPipeline emits standardised pipeline stage metrics.
func EmitPipeline(sink statsd.Sink, in PipelineMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"stage":  in.Stage,
		"kind":   in.Kind,
		"result": in.Result,
	}

	sink.Count("pipeline.stage", 1, tags)

	if in.Duration > 0 {
		sink.Timing("pipeline.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSessionGauge reports the current number of live push sessions.
func EmitSessionGauge(sink statsd.Sink, count int) {
	if sink == nil {
		return
	}
	sink.Gauge("sessions.active", float64(count), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
