package store

import (
	"context"

	"github.com/oryx-ai/conductor/internal/store/model"
)

// Repository is the main contract for the data layer. The orchestration core
// treats it as an opaque collaborator; the sqlite package is one
// implementation.
type Repository interface {
	Scopes() ScopeRepository
	Rules() RuleRepository
	Providers() ProviderRepository
	Usage() UsageRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type ScopeRepository interface {
	// Insert persists a new scope record.
	Insert(ctx context.Context, rec *model.ScopeRecord) error
	// Update replaces a scope record by id.
	Update(ctx context.Context, rec *model.ScopeRecord) error
	// Delete removes a scope; reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
	// List returns every scope record (the in-memory cache is hydrated from
	// this at startup).
	List(ctx context.Context) ([]model.ScopeRecord, error)
}

type RuleRepository interface {
	Upsert(ctx context.Context, rec *model.RuleRecord) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.RuleRecord, error)
}

type ProviderRepository interface {
	Upsert(ctx context.Context, rec *model.ProviderRecord) error
	List(ctx context.Context) ([]model.ProviderRecord, error)
	// SetEnabled persists the routing eligibility flag.
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

type UsageRepository interface {
	// Log stores one completed route attempt.
	Log(ctx context.Context, rec *model.UsageLog) error
	// GetRecent returns the last N usage records.
	GetRecent(ctx context.Context, limit int) ([]model.UsageLog, error)
	// GetDailyStats returns aggregated stats grouped by day.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}
