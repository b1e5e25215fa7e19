package dora

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/and161185/dora-molecule/internal/errs"
	"github.com/and161185/dora-molecule/internal/utils"
	"github.com/and161185/dora-molecule/model"
	"github.com/and161185/dora-molecule/static"
)

const (
	// WidgetPath is where the server exposes the widget script.
	WidgetPath = "/static/" + static.WidgetFile

	DefaultDays  = 30
	MaxDays      = 365
	DefaultLimit = 10

	maxServiceLen = 128
)

// Config holds the values the provider needs to build renderer descriptors.
type Config struct {
	BaseURL    string
	HostOrigin string
}

// Provider serves DORA metrics from a Source.
type Provider struct {
	source Source
	config Config
	logger *zap.SugaredLogger
}

// NewProvider creates a provider over src.
func NewProvider(src Source, cfg Config, logger *zap.SugaredLogger) *Provider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Provider{source: src, config: cfg, logger: logger}
}

// Renderer returns the descriptor pointing hosts at the widget script.
// The host origin, when configured, travels in the query string so that the
// script itself stays byte-stable.
func (p *Provider) Renderer() model.RenderDescriptor {
	src := strings.TrimRight(p.config.BaseURL, "/") + WidgetPath
	if p.config.HostOrigin != "" {
		src += "?origin=" + url.QueryEscape(p.config.HostOrigin)
	}
	return model.RenderDescriptor{Type: model.RendererRemote, Source: src}
}

// GetDoraMetrics returns all four DORA metrics for service, annotated with
// the renderer descriptor.
func (p *Provider) GetDoraMetrics(ctx context.Context, service string, days int) (*model.ToolResult, error) {
	p.logger.Infof("getting DORA metrics service=%s days=%d", service, days)

	snap, err := p.snapshot(ctx, service, days)
	if err != nil {
		return nil, err
	}

	df := deploymentFrequency(snap)
	lt := leadTime(snap)
	mttr := recoveryTime(snap)
	cfr := changeFailureRate(snap)

	return &model.ToolResult{
		MetricsPayload: model.MetricsPayload{
			Service:             snap.Service,
			PeriodDays:          snap.PeriodDays,
			DeploymentFrequency: &df,
			LeadTimeForChanges:  &lt,
			MeanTimeToRecovery:  &mttr,
			ChangeFailureRate:   &cfr,
		},
		Meta: model.Meta{Renderer: p.Renderer()},
	}, nil
}

// GetDeploymentFrequency returns how often service is deployed to production.
func (p *Provider) GetDeploymentFrequency(ctx context.Context, service string, days int) (*model.MetricDetail, error) {
	p.logger.Infof("getting deployment frequency service=%s days=%d", service, days)

	snap, err := p.snapshot(ctx, service, days)
	if err != nil {
		return nil, err
	}
	return &model.MetricDetail{
		Service:          snap.Service,
		Metric:           model.DeploymentFrequency,
		MetricSample:     deploymentFrequency(snap),
		PeriodDays:       snap.PeriodDays,
		TotalDeployments: utils.IntPtr(snap.TotalDeployments),
	}, nil
}

// GetLeadTime returns the time a commit takes to reach production.
func (p *Provider) GetLeadTime(ctx context.Context, service string, days int) (*model.MetricDetail, error) {
	p.logger.Infof("getting lead time service=%s days=%d", service, days)

	snap, err := p.snapshot(ctx, service, days)
	if err != nil {
		return nil, err
	}
	return &model.MetricDetail{
		Service:      snap.Service,
		Metric:       model.LeadTimeForChanges,
		MetricSample: leadTime(snap),
		PeriodDays:   snap.PeriodDays,
	}, nil
}

// GetMTTR returns how long it takes to restore service after an incident.
func (p *Provider) GetMTTR(ctx context.Context, service string, days int) (*model.MetricDetail, error) {
	p.logger.Infof("getting MTTR service=%s days=%d", service, days)

	snap, err := p.snapshot(ctx, service, days)
	if err != nil {
		return nil, err
	}
	return &model.MetricDetail{
		Service:        snap.Service,
		Metric:         model.MeanTimeToRecovery,
		MetricSample:   recoveryTime(snap),
		PeriodDays:     snap.PeriodDays,
		IncidentsCount: utils.IntPtr(snap.Incidents),
	}, nil
}

// GetChangeFailureRate returns the share of deployments causing a failure.
func (p *Provider) GetChangeFailureRate(ctx context.Context, service string, days int) (*model.MetricDetail, error) {
	p.logger.Infof("getting change failure rate service=%s days=%d", service, days)

	snap, err := p.snapshot(ctx, service, days)
	if err != nil {
		return nil, err
	}
	return &model.MetricDetail{
		Service:           snap.Service,
		Metric:            model.ChangeFailureRate,
		MetricSample:      changeFailureRate(snap),
		PeriodDays:        snap.PeriodDays,
		TotalDeployments:  utils.IntPtr(snap.TotalDeployments),
		FailedDeployments: utils.IntPtr(snap.FailedDeployments),
	}, nil
}

// ListServices returns the known service identifiers in ascending order.
func (p *Provider) ListServices(ctx context.Context) (*model.ServiceList, error) {
	p.logger.Info("listing services")

	services, err := p.source.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	out := append([]string(nil), services...)
	sort.Strings(out)
	return &model.ServiceList{Services: out}, nil
}

// ListDeployments returns the most recent deployments of service, newest
// first, optionally filtered by status ("all", "success" or "failed").
func (p *Provider) ListDeployments(ctx context.Context, service string, limit int, status string) (*model.DeploymentList, error) {
	p.logger.Infof("listing deployments service=%s limit=%d status=%s", service, limit, status)

	service, err := validateService(service)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", errs.ErrInvalidInput, limit)
	}

	var want model.DeploymentStatus
	switch status {
	case "", "all":
	case string(model.DeploymentSuccess), string(model.DeploymentFailed):
		want = model.DeploymentStatus(status)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrInvalidInput, status)
	}

	all, err := p.source.Deployments(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("deployments for %s: %w", service, err)
	}

	filtered := make([]model.Deployment, 0, len(all))
	for _, d := range all {
		if want == "" || d.Status == want {
			filtered = append(filtered, d)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	total := len(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return &model.DeploymentList{Service: service, Deployments: filtered, Total: total}, nil
}

// Ping reports whether the underlying source is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.source.Ping(ctx)
}

func (p *Provider) snapshot(ctx context.Context, service string, days int) (model.Snapshot, error) {
	service, err := validateService(service)
	if err != nil {
		return model.Snapshot{}, err
	}
	if days < 1 || days > MaxDays {
		return model.Snapshot{}, fmt.Errorf("%w: days must be within 1..%d, got %d", errs.ErrInvalidInput, MaxDays, days)
	}

	snap, err := p.source.Snapshot(ctx, service, days)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot for %s: %w", service, err)
	}
	snap.Service = service
	snap.PeriodDays = days
	return snap, nil
}

func validateService(service string) (string, error) {
	s := strings.TrimSpace(service)
	if s == "" {
		return "", fmt.Errorf("%w: service is required", errs.ErrInvalidInput)
	}
	if len(s) > maxServiceLen {
		return "", fmt.Errorf("%w: service longer than %d bytes", errs.ErrInvalidInput, maxServiceLen)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: service contains control characters", errs.ErrInvalidInput)
		}
	}
	return s, nil
}
