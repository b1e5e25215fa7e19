// Package postgres reads DORA delivery data from PostgreSQL.
//
// Expected schema:
//
//	dora_services(name text primary key)
//	dora_deployments(id text, service text, version text, status text,
//	                 committed_at timestamptz, deployed_at timestamptz,
//	                 duration_seconds int, author text, commit_sha text)
//	dora_incidents(service text, opened_at timestamptz, resolved_at timestamptz)
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/dora-molecule/internal/errs"
	"github.com/and161185/dora-molecule/internal/utils"
	"github.com/and161185/dora-molecule/model"
)

const deploymentsLimit = 100

const (
	queryServices = `SELECT name FROM dora_services ORDER BY name`

	queryDeploymentStats = `
SELECT COUNT(d.id),
       COUNT(d.id) FILTER (WHERE d.status = 'failed'),
       COALESCE(AVG(EXTRACT(EPOCH FROM d.deployed_at - d.committed_at)) / 3600, 0)::float8
FROM dora_services s
LEFT JOIN dora_deployments d
       ON d.service = s.name AND d.deployed_at >= now() - make_interval(days => $2)
WHERE s.name = $1
GROUP BY s.name`

	queryIncidentStats = `
SELECT COUNT(*),
       COALESCE(AVG(EXTRACT(EPOCH FROM resolved_at - opened_at)) / 3600, 0)::float8
FROM dora_incidents
WHERE service = $1
  AND resolved_at IS NOT NULL
  AND opened_at >= now() - make_interval(days => $2)`

	queryServiceExists = `SELECT EXISTS (SELECT 1 FROM dora_services WHERE name = $1)`

	queryDeployments = `
SELECT id, service, version, status, deployed_at, duration_seconds, author, commit_sha
FROM dora_deployments
WHERE service = $1
ORDER BY deployed_at DESC
LIMIT $2`
)

// PostgresStorage is a Source backed by a pgx connection pool.
type PostgresStorage struct {
	db *pgxpool.Pool
}

// NewPostgresStorage opens a pool for dsn and checks connectivity.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open pool: %v", errs.ErrInvalidInput, err)
	}
	store := &PostgresStorage{db: db}
	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the pool.
func (store *PostgresStorage) Close() {
	store.db.Close()
}

// Ping checks that the database is reachable.
func (store *PostgresStorage) Ping(ctx context.Context) error {
	err := utils.WithRetry(ctx, func() error {
		return store.db.Ping(ctx)
	})
	return classify(err)
}

// Services returns all registered service names.
func (store *PostgresStorage) Services(ctx context.Context) ([]string, error) {
	var out []string
	err := utils.WithRetry(ctx, func() error {
		rows, err := store.db.Query(ctx, queryServices)
		if err != nil {
			return err
		}
		names, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		out = names
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Snapshot aggregates deployments and incidents of service over the last days.
func (store *PostgresStorage) Snapshot(ctx context.Context, service string, days int) (model.Snapshot, error) {
	snap := model.Snapshot{Service: service, PeriodDays: days}

	err := utils.WithRetry(ctx, func() error {
		return store.db.QueryRow(ctx, queryDeploymentStats, service, days).
			Scan(&snap.TotalDeployments, &snap.FailedDeployments, &snap.LeadTimeHours)
	})
	if err != nil {
		return model.Snapshot{}, classify(err)
	}

	err = utils.WithRetry(ctx, func() error {
		return store.db.QueryRow(ctx, queryIncidentStats, service, days).
			Scan(&snap.Incidents, &snap.RecoveryHours)
	})
	if err != nil {
		return model.Snapshot{}, classify(err)
	}
	return snap, nil
}

// Deployments returns the latest deployments of service.
func (store *PostgresStorage) Deployments(ctx context.Context, service string) ([]model.Deployment, error) {
	var out []model.Deployment
	err := utils.WithRetry(ctx, func() error {
		rows, err := store.db.Query(ctx, queryDeployments, service, deploymentsLimit)
		if err != nil {
			return err
		}
		deps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Deployment, error) {
			var d model.Deployment
			err := row.Scan(&d.ID, &d.Service, &d.Version, &d.Status, &d.Timestamp,
				&d.DurationSeconds, &d.Author, &d.CommitSHA)
			return d, err
		})
		if err != nil {
			return err
		}
		out = deps
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(out) > 0 {
		return out, nil
	}

	var exists bool
	err = utils.WithRetry(ctx, func() error {
		return store.db.QueryRow(ctx, queryServiceExists, service).Scan(&exists)
	})
	if err != nil {
		return nil, classify(err)
	}
	if !exists {
		return nil, fmt.Errorf("service %s: %w", service, errs.ErrNotFound)
	}
	return out, nil
}

// classify maps driver errors onto the provider's error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %v", errs.ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if isJoinedRetriable(err) {
			return fmt.Errorf("%w: %w", errs.ErrDataUnavailable, err)
		}
		return err
	case utils.IsRetriable(err):
		return fmt.Errorf("%w: %w", errs.ErrDataUnavailable, err)
	default:
		return fmt.Errorf("query failed: %w", err)
	}
}

// isJoinedRetriable reports whether err joins a retriable failure with a
// context error, as WithRetry does when it is interrupted while waiting.
func isJoinedRetriable(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return false
	}
	for _, e := range joined.Unwrap() {
		if utils.IsRetriable(e) {
			return true
		}
	}
	return false
}
