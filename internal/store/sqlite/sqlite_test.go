package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
)

func newTestStorage(t *testing.T) store.Repository {
	t.Helper()
	repo, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "conductor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func providerRecord(t *testing.T, cfg domain.ProviderConfig) *model.ProviderRecord {
	t.Helper()
	rec, err := model.ProviderRecordFrom(cfg)
	require.NoError(t, err)
	return rec
}

func TestProviderUpsertKeepsStoredCredential(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	rec := providerRecord(t, domain.ProviderConfig{
		ID:         "gpt",
		Type:       "openai",
		Name:       "GPT",
		Credential: "sk-secret",
		Enabled:    true,
	})
	require.NoError(t, repo.Providers().Upsert(ctx, rec))

	// A later write without a credential, e.g. from a scrubbed config,
	// must not wipe the stored key.
	scrubbed := providerRecord(t, domain.ProviderConfig{
		ID:      "gpt",
		Type:    "openai",
		Name:    "GPT renamed",
		Enabled: false,
	})
	require.NoError(t, repo.Providers().Upsert(ctx, scrubbed))

	recs, err := repo.Providers().List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "GPT renamed", recs[0].Name)
	assert.False(t, recs[0].IsEnabled)
	assert.Equal(t, "sk-secret", recs[0].Credential)

	// An explicit new credential replaces the stored one.
	rotated := providerRecord(t, domain.ProviderConfig{
		ID:         "gpt",
		Type:       "openai",
		Name:       "GPT renamed",
		Credential: "sk-rotated",
		Enabled:    true,
	})
	require.NoError(t, repo.Providers().Upsert(ctx, rotated))

	recs, err = repo.Providers().List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "sk-rotated", recs[0].Credential)
}
