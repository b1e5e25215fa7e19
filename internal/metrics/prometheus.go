// Package metrics exposes the molecule's own Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels of a tool call.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ToolUnknown is the tool label of calls to unregistered tools.
const ToolUnknown = "unknown"

type Prom struct {
	reg *prometheus.Registry

	ToolCalls    *prometheus.CounterVec
	ToolLatency  *prometheus.HistogramVec
	AssetServes  prometheus.Counter
	Previews     prometheus.Counter
	SourceErrors *prometheus.CounterVec
}

func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		reg: reg,
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dora_tool_calls_total", Help: "Tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		ToolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "dora_tool_duration_seconds", Help: "Tool invocation latency", Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		AssetServes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dora_widget_served_total", Help: "Widget script responses with a body",
		}),
		Previews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dora_preview_renders_total", Help: "Server side widget renders",
		}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dora_source_errors_total", Help: "Failed tool calls by error kind",
		}, []string{"kind"}),
	}
	reg.MustRegister(p.ToolCalls, p.ToolLatency, p.AssetServes, p.Previews, p.SourceErrors)
	return p
}

func (p *Prom) Handler() http.Handler { return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{}) }

// ObserveTool records one tool invocation. kind is empty on success.
func (p *Prom) ObserveTool(tool string, started time.Time, kind string) {
	p.ToolLatency.WithLabelValues(tool).Observe(time.Since(started).Seconds())
	if kind == "" {
		p.ToolCalls.WithLabelValues(tool, OutcomeOK).Inc()
		return
	}
	p.ToolCalls.WithLabelValues(tool, OutcomeError).Inc()
	p.SourceErrors.WithLabelValues(kind).Inc()
}
