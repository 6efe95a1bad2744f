package persistence_test

import (
	"context"
	"testing"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSettingRepository(t *testing.T) {
	repo := persistence.NewGormSettingRepository(testutil.NewStore(t).DB)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, "ledger_pin_hash")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Put(ctx, "ledger_pin_hash", "a"))
	require.NoError(t, repo.Put(ctx, "ledger_pin_hash", "b"))

	value, ok, err := repo.Get(ctx, "ledger_pin_hash")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", value)
}
