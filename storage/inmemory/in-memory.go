// Package inmemory provides the mock DORA dataset used when no database is configured.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/and161185/dora-molecule/model"
)

// Record describes the delivery profile of one service.
type Record struct {
	DeploymentsPerDay float64 `json:"deployments_per_day"`
	ChangeFailureRate float64 `json:"change_failure_rate"` // percent
	LeadTimeHours     float64 `json:"lead_time_hours"`
	RecoveryHours     float64 `json:"recovery_hours"`
	IncidentsPerMonth float64 `json:"incidents_per_month"`
}

func (r Record) validate() error {
	switch {
	case r.DeploymentsPerDay < 0:
		return fmt.Errorf("deployments_per_day must not be negative")
	case r.ChangeFailureRate < 0 || r.ChangeFailureRate > 100:
		return fmt.Errorf("change_failure_rate must be within 0..100")
	case r.LeadTimeHours < 0, r.RecoveryHours < 0, r.IncidentsPerMonth < 0:
		return fmt.Errorf("durations and incident counts must not be negative")
	}
	return nil
}

var builtin = map[string]Record{
	"checkout":      {DeploymentsPerDay: 8.4, ChangeFailureRate: 4.5, LeadTimeHours: 0.75, RecoveryHours: 0.5, IncidentsPerMonth: 2},
	"payments":      {DeploymentsPerDay: 2.1, ChangeFailureRate: 12, LeadTimeHours: 20.5, RecoveryHours: 3.2, IncidentsPerMonth: 1},
	"search":        {DeploymentsPerDay: 14.2, ChangeFailureRate: 2.3, LeadTimeHours: 0.4, RecoveryHours: 0.25, IncidentsPerMonth: 1},
	"inventory":     {DeploymentsPerDay: 0.5, ChangeFailureRate: 22, LeadTimeHours: 70, RecoveryHours: 30, IncidentsPerMonth: 4},
	"notifications": {DeploymentsPerDay: 0.1, ChangeFailureRate: 35, LeadTimeHours: 200, RecoveryHours: 180, IncidentsPerMonth: 6},
}

var (
	authors = []string{"alice", "bob", "charlie", "diana"}

	deploymentWindow = 30 * 24 * time.Hour
)

const deploymentsPerService = 20

// MemStorage is a deterministic, read-only mock dataset.
// Unknown services are answered with values derived from their name.
type MemStorage struct {
	records map[string]Record
	now     func() time.Time
	mu      sync.RWMutex
}

// Option configures a MemStorage.
type Option func(*MemStorage)

// WithClock sets the clock deployment timestamps are relative to.
func WithClock(now func() time.Time) Option {
	return func(s *MemStorage) { s.now = now }
}

// NewMemStorage returns a dataset seeded with the built-in services.
func NewMemStorage(opts ...Option) *MemStorage {
	s := &MemStorage{
		records: make(map[string]Record, len(builtin)),
		now:     time.Now,
	}
	for name, r := range builtin {
		s.records[name] = r
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFromFile replaces the dataset with the services listed in a JSON file
// mapping service names to records.
func (store *MemStorage) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("dataset %s is empty", filePath)
	}
	for name, r := range records {
		if name == "" {
			return fmt.Errorf("dataset %s contains an empty service name", filePath)
		}
		if err := r.validate(); err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.records = records
	return nil
}

// Services returns the names of the services in the dataset.
func (store *MemStorage) Services(ctx context.Context) ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	out := make([]string, 0, len(store.records))
	for name := range store.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Snapshot returns the delivery figures of service over days.
func (store *MemStorage) Snapshot(ctx context.Context, service string, days int) (model.Snapshot, error) {
	r := store.record(service)

	total := int(math.Round(r.DeploymentsPerDay * float64(days)))
	return model.Snapshot{
		Service:           service,
		PeriodDays:        days,
		TotalDeployments:  total,
		FailedDeployments: int(math.Round(float64(total) * r.ChangeFailureRate / 100)),
		LeadTimeHours:     r.LeadTimeHours,
		Incidents:         int(math.Round(r.IncidentsPerMonth * float64(days) / 30)),
		RecoveryHours:     r.RecoveryHours,
	}, nil
}

// Deployments returns the recent deployments of service.
// The list is the same for the same service and clock reading.
func (store *MemStorage) Deployments(ctx context.Context, service string) ([]model.Deployment, error) {
	r := store.record(service)
	rng := rand.New(rand.NewSource(seed(service + "/deployments")))
	now := store.now().UTC().Truncate(time.Second)

	out := make([]model.Deployment, 0, deploymentsPerService)
	for i := 0; i < deploymentsPerService; i++ {
		status := model.DeploymentSuccess
		if rng.Float64()*100 < r.ChangeFailureRate {
			status = model.DeploymentFailed
		}
		age := time.Duration(1+rng.Int63n(int64(deploymentWindow/time.Hour))) * time.Hour

		out = append(out, model.Deployment{
			ID:              fmt.Sprintf("deploy-%04d", seed(fmt.Sprintf("%s-%d", service, i))%10000),
			Service:         service,
			Version:         fmt.Sprintf("v1.%d.%d", rng.Intn(51), rng.Intn(101)),
			Status:          status,
			Timestamp:       now.Add(-age),
			DurationSeconds: 30 + rng.Intn(571),
			Author:          authors[rng.Intn(len(authors))],
			CommitSHA:       fmt.Sprintf("%06x", rng.Intn(0x1000000)),
		})
	}
	return out, nil
}

// Ping always succeeds; the dataset lives in memory.
func (store *MemStorage) Ping(ctx context.Context) error {
	return nil
}

func (store *MemStorage) record(service string) Record {
	store.mu.RLock()
	r, ok := store.records[service]
	store.mu.RUnlock()
	if ok {
		return r
	}
	return generate(service)
}

// generate derives a plausible profile for a service missing from the dataset.
func generate(service string) Record {
	rng := rand.New(rand.NewSource(seed(service)))
	return Record{
		DeploymentsPerDay: round2(0.5 + rng.Float64()*9.5),
		ChangeFailureRate: round2(rng.Float64() * 33),
		LeadTimeHours:     round2(0.5 + rng.Float64()*71.5),
		RecoveryHours:     round2(0.1 + rng.Float64()*47.9),
		IncidentsPerMonth: float64(1 + rng.Intn(10)),
	}
}

func seed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() >> 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
