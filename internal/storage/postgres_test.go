package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
)

func TestPostgresRepository_Integration(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()

	repo, err := NewPostgresRepository(ctx, url, true)
	require.NoError(t, err)
	defer repo.Close()

	user := "it-" + uuid.NewString()
	ids, err := repo.InsertTransactions(ctx, []core.TransactionRecord{record(user, 1), record(user, 2)})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	found, err := repo.FindTransactions(ctx, user, ids)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "2024-01-15", found[0].OccurredAt)

	n, err := repo.DeleteTransactions(ctx, "other", ids)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.DeleteTransactions(ctx, user, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPostgresRepository_BadDateRollsBackChunk(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()

	repo, err := NewPostgresRepository(ctx, url, true)
	require.NoError(t, err)
	defer repo.Close()

	user := "it-" + uuid.NewString()
	bad := record(user, 2)
	bad.OccurredAt = "2024-13-45"
	_, err = repo.InsertTransactions(ctx, []core.TransactionRecord{record(user, 1), bad})
	require.Error(t, err)

	var count int
	require.NoError(t, repo.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE user_id = $1", user).Scan(&count))
	assert.Zero(t, count)
}
