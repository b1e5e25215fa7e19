package dora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/dora-molecule/internal/errs"
)

// Tool names exposed to hosts.
const (
	ToolGetDoraMetrics         = "get_dora_metrics"
	ToolGetDeploymentFrequency = "get_deployment_frequency"
	ToolGetLeadTime            = "get_lead_time"
	ToolGetMTTR                = "get_mttr"
	ToolGetChangeFailureRate   = "get_change_failure_rate"
	ToolListDeployments        = "list_deployments"
	ToolListServices           = "list_services"
)

// Param describes one argument of a tool.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
}

// Tool describes a callable provider operation.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`

	call func(ctx context.Context, p *Provider, args json.RawMessage) (any, error)
}

var (
	serviceParam = Param{Name: "service", Type: "string", Required: true, Description: "Service/application name"}
	daysParam    = Param{Name: "days", Type: "integer", Default: DefaultDays, Description: "Number of days to calculate metrics over"}
)

var tools = []Tool{
	{
		Name:        ToolGetDoraMetrics,
		Description: "Get all four DORA metrics for a service, rendered by the remote widget.",
		Params:      []Param{serviceParam, daysParam},
		call: func(ctx context.Context, p *Provider, raw json.RawMessage) (any, error) {
			var a metricArgs
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return p.GetDoraMetrics(ctx, a.Service, a.days())
		},
	},
	{
		Name:        ToolGetDeploymentFrequency,
		Description: "Get how often a service successfully releases to production.",
		Params:      []Param{serviceParam, daysParam},
		call: func(ctx context.Context, p *Provider, raw json.RawMessage) (any, error) {
			var a metricArgs
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return p.GetDeploymentFrequency(ctx, a.Service, a.days())
		},
	},
	{
		Name:        ToolGetLeadTime,
		Description: "Get the time it takes a commit to get into production.",
		Params:      []Param{serviceParam, daysParam},
		call: func(ctx context.Context, p *Provider, raw json.RawMessage) (any, error) {
			var a metricArgs
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return p.GetLeadTime(ctx, a.Service, a.days())
		},
	},
	{
		Name:        ToolGetMTTR,
		Description: "Get how long it takes to restore service after an incident.",
		Params:      []Param{serviceParam, daysParam},
		call: func(ctx context.Context, p *Provider, raw json.RawMessage) (any, error) {
			var a metricArgs
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return p.GetMTTR(ctx, a.Service, a.days())
		},
	},
	{
		Name:        ToolGetChangeFailureRate,
		Description: "Get the percentage of deployments causing a failure in production.",
		Params:      []Param{serviceParam, daysParam},
		call: func(ctx context.Context, p *Provider, raw json.RawMessage) (any, error) {
			var a metricArgs
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return p.GetChangeFailureRate(ctx, a.Service, a.days())
		},
	},
	{
		Name:        ToolListDeployments,
		Description: "List recent deployments for a service.",
		Params: []Param{
			serviceParam,
			{Name: "limit", Type: "integer", Default: DefaultLimit, Description: "Maximum number of deployments to return"},
			{Name: "status", Type: "string", Default: "all", Description: "Filter by status: all, success or failed"},
		},
		call: func(ctx context.Context, p *Provider, raw json.RawMessage) (any, error) {
			var a deploymentArgs
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			limit := DefaultLimit
			if a.Limit != nil {
				limit = *a.Limit
			}
			return p.ListDeployments(ctx, a.Service, limit, a.Status)
		},
	},
	{
		Name:        ToolListServices,
		Description: "List the service identifiers metrics are available for.",
		Params:      []Param{},
		call: func(ctx context.Context, p *Provider, _ json.RawMessage) (any, error) {
			return p.ListServices(ctx)
		},
	},
}

type metricArgs struct {
	Service string `json:"service"`
	Days    *int   `json:"days"`
}

func (a metricArgs) days() int {
	if a.Days == nil {
		return DefaultDays
	}
	return *a.Days
}

type deploymentArgs struct {
	Service string `json:"service"`
	Limit   *int   `json:"limit"`
	Status  string `json:"status"`
}

func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed arguments: %v", errs.ErrInvalidInput, err)
	}
	return nil
}

// Tools returns the descriptors of all tools in registration order.
func (p *Provider) Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// HasTool reports whether name is a registered tool.
func (p *Provider) HasTool(name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Call runs the named tool with JSON encoded arguments.
func (p *Provider) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	for _, t := range tools {
		if t.Name == name {
			return t.call(ctx, p, args)
		}
	}
	return nil, fmt.Errorf("%w: %s", errs.ErrUnknownTool, name)
}
