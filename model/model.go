// Package model contains core data types for the project.
package model

import (
	"encoding/json"
	"time"
)

// Unit defines how a metric value is measured and displayed.
type Unit string

const (
	UnitDeploymentsPerDay Unit = "deployments_per_day" // Deployments per day.
	UnitHours             Unit = "hours"               // Duration in hours.
	UnitPercent           Unit = "percent"             // Percentage, 0..100.
)

// Known reports whether u is one of the units the widget formats specially.
func (u Unit) Known() bool {
	switch u {
	case UnitDeploymentsPerDay, UnitHours, UnitPercent:
		return true
	}
	return false
}

// Rating is a DORA performance band.
type Rating string

const (
	RatingElite  Rating = "elite"
	RatingHigh   Rating = "high"
	RatingMedium Rating = "medium"
	RatingLow    Rating = "low"
)

// Normalize maps empty or unrecognized ratings to RatingMedium.
func (r Rating) Normalize() Rating {
	switch r {
	case RatingElite, RatingHigh, RatingMedium, RatingLow:
		return r
	}
	return RatingMedium
}

// MetricKey names one of the four DORA metrics.
type MetricKey string

const (
	DeploymentFrequency MetricKey = "deployment_frequency"
	LeadTimeForChanges  MetricKey = "lead_time_for_changes"
	MeanTimeToRecovery  MetricKey = "mean_time_to_recovery"
	ChangeFailureRate   MetricKey = "change_failure_rate"
)

// MetricOrder is the fixed display order of the metrics.
var MetricOrder = []MetricKey{
	DeploymentFrequency,
	LeadTimeForChanges,
	MeanTimeToRecovery,
	ChangeFailureRate,
}

// Title returns the human readable metric name.
func (k MetricKey) Title() string {
	switch k {
	case DeploymentFrequency:
		return "Deployment Frequency"
	case LeadTimeForChanges:
		return "Lead Time for Changes"
	case MeanTimeToRecovery:
		return "Mean Time to Recovery"
	case ChangeFailureRate:
		return "Change Failure Rate"
	}
	return string(k)
}

// MetricSample is one data point for one DORA metric.
type MetricSample struct {
	Value  float64 `json:"value"`
	Unit   Unit    `json:"unit"`
	Rating Rating  `json:"rating,omitempty"`
}

// MetricsPayload is the aggregate rendered by the widget.
// Keys that are not present are simply not rendered.
type MetricsPayload struct {
	Service             string        `json:"service,omitempty"`
	PeriodDays          int           `json:"period_days,omitempty"`
	DeploymentFrequency *MetricSample `json:"deployment_frequency,omitempty"`
	LeadTimeForChanges  *MetricSample `json:"lead_time_for_changes,omitempty"`
	MeanTimeToRecovery  *MetricSample `json:"mean_time_to_recovery,omitempty"`
	ChangeFailureRate   *MetricSample `json:"change_failure_rate,omitempty"`
}

// Sample returns the sample stored under k, if any.
func (p *MetricsPayload) Sample(k MetricKey) (*MetricSample, bool) {
	var s *MetricSample
	switch k {
	case DeploymentFrequency:
		s = p.DeploymentFrequency
	case LeadTimeForChanges:
		s = p.LeadTimeForChanges
	case MeanTimeToRecovery:
		s = p.MeanTimeToRecovery
	case ChangeFailureRate:
		s = p.ChangeFailureRate
	}
	return s, s != nil
}

// SetSample stores s under k. Unknown keys are ignored.
func (p *MetricsPayload) SetSample(k MetricKey, s *MetricSample) {
	switch k {
	case DeploymentFrequency:
		p.DeploymentFrequency = s
	case LeadTimeForChanges:
		p.LeadTimeForChanges = s
	case MeanTimeToRecovery:
		p.MeanTimeToRecovery = s
	case ChangeFailureRate:
		p.ChangeFailureRate = s
	}
}

// RendererRemote is the only renderer type the molecule emits.
const RendererRemote = "remote"

// RenderDescriptor tells a host where to fetch the rendering widget.
type RenderDescriptor struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

// Meta carries host-facing annotations of a tool result.
type Meta struct {
	Renderer RenderDescriptor `json:"renderer"`
}

// ToolResult is a MetricsPayload annotated with renderer metadata.
type ToolResult struct {
	MetricsPayload
	Meta Meta `json:"_meta"`
}

// MetricDetail is the result of a single-metric tool.
type MetricDetail struct {
	Service string    `json:"service"`
	Metric  MetricKey `json:"metric"`
	MetricSample
	PeriodDays        int  `json:"period_days"`
	TotalDeployments  *int `json:"total_deployments,omitempty"`
	FailedDeployments *int `json:"failed_deployments,omitempty"`
	IncidentsCount    *int `json:"incidents_count,omitempty"`
}

// Snapshot holds raw delivery figures for a service over a period.
type Snapshot struct {
	Service           string  `json:"service"`
	PeriodDays        int     `json:"period_days"`
	TotalDeployments  int     `json:"total_deployments"`
	FailedDeployments int     `json:"failed_deployments"`
	LeadTimeHours     float64 `json:"lead_time_hours"`
	Incidents         int     `json:"incidents"`
	RecoveryHours     float64 `json:"recovery_hours"`
}

// DeploymentStatus is the outcome of a deployment.
type DeploymentStatus string

const (
	DeploymentSuccess DeploymentStatus = "success"
	DeploymentFailed  DeploymentStatus = "failed"
)

// Deployment describes one production deployment.
type Deployment struct {
	ID              string           `json:"id"`
	Service         string           `json:"service"`
	Version         string           `json:"version"`
	Status          DeploymentStatus `json:"status"`
	Timestamp       time.Time        `json:"timestamp"`
	DurationSeconds int              `json:"duration_seconds"`
	Author          string           `json:"author"`
	CommitSHA       string           `json:"commit_sha"`
}

// DeploymentList is the result of the list_deployments tool.
type DeploymentList struct {
	Service     string       `json:"service"`
	Deployments []Deployment `json:"deployments"`
	Total       int          `json:"total"`
}

// ServiceList is the result of the list_services tool.
type ServiceList struct {
	Services []string `json:"services"`
}

// MessageType discriminates cross-context messages.
type MessageType string

const (
	MessageRendererReady MessageType = "RENDERER_READY" // widget -> host
	MessageRenderProps   MessageType = "RENDER_PROPS"   // host -> widget
)

// Message is a cross-context message exchanged between host page and widget.
type Message struct {
	Type   MessageType     `json:"type"`
	Props  json.RawMessage `json:"props,omitempty"`
	Origin string          `json:"-"`
}
