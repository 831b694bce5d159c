package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	// Create a repository instance that uses the transaction
	txRepo := &SqliteRepository{
		db:       r.db, // Keep the original DB handle
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Scopes() store.ScopeRepository {
	return &scopeRepo{db: r.executor}
}

func (r *SqliteRepository) Rules() store.RuleRepository {
	return &ruleRepo{db: r.executor}
}

func (r *SqliteRepository) Providers() store.ProviderRepository {
	return &providerRepo{db: r.executor}
}

func (r *SqliteRepository) Usage() store.UsageRepository {
	return &usageRepo{db: r.executor}
}

type scopeRepo struct {
	db DB
}

func (r *scopeRepo) Insert(ctx context.Context, rec *model.ScopeRecord) error {
	query := `
	INSERT INTO scopes (id, type, name, context_json, preferences_json, template_id, metadata_json, created_at, updated_at)
	VALUES (:id, :type, :name, :context_json, :preferences_json, :template_id, :metadata_json, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}

func (r *scopeRepo) Update(ctx context.Context, rec *model.ScopeRecord) error {
	query := `
	UPDATE scopes SET
		type = :type,
		name = :name,
		context_json = :context_json,
		preferences_json = :preferences_json,
		template_id = :template_id,
		metadata_json = :metadata_json,
		updated_at = :updated_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *scopeRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scopes WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *scopeRepo) List(ctx context.Context) ([]model.ScopeRecord, error) {
	var recs []model.ScopeRecord
	err := r.db.SelectContext(ctx, &recs, `SELECT * FROM scopes ORDER BY created_at`)
	return recs, err
}

type ruleRepo struct {
	db DB
}

func (r *ruleRepo) Upsert(ctx context.Context, rec *model.RuleRecord) error {
	query := `
	INSERT INTO classification_rules (
		id, category, patterns_json, keywords_json, weight, llm_mapping_json, min_confidence, created_at, updated_at
	) VALUES (
		:id, :category, :patterns_json, :keywords_json, :weight, :llm_mapping_json, :min_confidence, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		category = excluded.category,
		patterns_json = excluded.patterns_json,
		keywords_json = excluded.keywords_json,
		weight = excluded.weight,
		llm_mapping_json = excluded.llm_mapping_json,
		min_confidence = excluded.min_confidence,
		updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}

func (r *ruleRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classification_rules WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ruleRepo) List(ctx context.Context) ([]model.RuleRecord, error) {
	var recs []model.RuleRecord
	err := r.db.SelectContext(ctx, &recs, `SELECT * FROM classification_rules ORDER BY weight DESC`)
	return recs, err
}

type providerRepo struct {
	db DB
}

func (r *providerRepo) Upsert(ctx context.Context, rec *model.ProviderRecord) error {
	query := `
	INSERT INTO providers (
		id, type, name, description, capabilities_json, params_json, cost_json,
		base_url, model, credential, is_enabled, created_at, updated_at
	) VALUES (
		:id, :type, :name, :description, :capabilities_json, :params_json, :cost_json,
		:base_url, :model, :credential, :is_enabled, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		type = excluded.type,
		name = excluded.name,
		description = excluded.description,
		capabilities_json = excluded.capabilities_json,
		params_json = excluded.params_json,
		cost_json = excluded.cost_json,
		base_url = excluded.base_url,
		model = excluded.model,
		credential = CASE WHEN excluded.credential = ''
			THEN providers.credential ELSE excluded.credential END,
		is_enabled = excluded.is_enabled,
		updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}

func (r *providerRepo) List(ctx context.Context) ([]model.ProviderRecord, error) {
	var recs []model.ProviderRecord
	err := r.db.SelectContext(ctx, &recs, `SELECT * FROM providers ORDER BY id`)
	return recs, err
}

func (r *providerRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE providers SET is_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type usageRepo struct {
	db DB
}

func (r *usageRepo) Log(ctx context.Context, rec *model.UsageLog) error {
	query := `
	INSERT INTO usage_logs (
		id, request_id, prompt_hash, scope_id, provider_id, success,
		fallbacks_json, latency_ms, prompt_tokens, completion_tokens, total_tokens, created_at
	) VALUES (
		:id, :request_id, :prompt_hash, :scope_id, :provider_id, :success,
		:fallbacks_json, :latency_ms, :prompt_tokens, :completion_tokens, :total_tokens, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}

func (r *usageRepo) GetRecent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	var logs []model.UsageLog
	query := `SELECT * FROM usage_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

func (r *usageRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as total_requests,
			SUM(total_tokens) as total_tokens,
			AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END) as success_rate,
			AVG(latency_ms) as avg_latency
		FROM usage_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// SQLite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
