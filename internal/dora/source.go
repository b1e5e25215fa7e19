// Package dora implements the DORA metrics provider and its tools.
package dora

import (
	"context"

	"github.com/and161185/dora-molecule/model"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks github.com/and161185/dora-molecule/internal/dora Source

// Source supplies raw delivery data for services.
//
// Implementations return errs.ErrNotFound for unknown services and
// errs.ErrDataUnavailable when their backend cannot be reached.
type Source interface {
	Services(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, service string, days int) (model.Snapshot, error)
	Deployments(ctx context.Context, service string) ([]model.Deployment, error)
	Ping(ctx context.Context) error
}
