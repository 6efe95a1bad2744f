package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	appreceiving "github.com/Proyectitos24/RepasoAlbaranes/internal/application/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/config"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = persistence.MemoryPath
	cfg.Import.StagingDir = filepath.Join(t.TempDir(), "staging")
	cfg.Log.GormLevel = "silent"
	return cfg
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	version, err := a.Schema.Version(ctx)
	require.NoError(t, err)
	assert.Positive(t, version)

	assert.Len(t, a.Ledger.Groups(), 6)

	auth, err := a.Gate.Authorize(ctx, config.DefaultAdminPIN)
	require.NoError(t, err)
	assert.True(t, auth.Granted())

	_, err = a.Gate.Authorize(ctx, "9999")
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))
}

func TestApp_ImportCsvListing(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Import.KeepStaged = 1
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	path := filepath.Join(t.TempDir(), "Linea.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"id;Etiqueta;Codigo;Descripcion;Cantidad;Falta\n"+
			"1;900;42;LECHE;6;0\n"+
			"2;900;43;PAN;2;0\n"), 0o644))

	for i := 0; i < 2; i++ {
		_, err := a.NoteImport.ImportDeliveryNotes(ctx, []source.Opener{a.OpenFile(path)}, appreceiving.ImportOptions{})
		require.NoError(t, err)
	}

	notes, err := a.Notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "900", notes[0].Note.Label)

	staged, err := a.Staging.Staged()
	require.NoError(t, err)
	assert.Len(t, staged, 1, "older staged copies are pruned")
}

func TestNew_InvalidStorePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Path = filepath.Join(t.TempDir(), "missing", "dir", "albaranes.db")

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
