package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s := NewStore(filepath.Join(root, "staging"), zap.NewNop())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s, root
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStore_Stage(t *testing.T) {
	s, root := newTestStore(t)
	src := writeFile(t, root, "Listado.DB", "contents")

	staged, err := s.Stage(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, s.Dir(), filepath.Dir(staged))
	assert.Equal(t, ".db", filepath.Ext(staged))
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))

	// the original is untouched
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestStore_Stage_MissingFile(t *testing.T) {
	s, root := newTestStore(t)

	_, err := s.Stage(context.Background(), filepath.Join(root, "missing.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_Stage_Canceled(t *testing.T) {
	s, root := newTestStore(t)
	src := writeFile(t, root, "a.db", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Stage(ctx, src)
	assert.ErrorIs(t, err, shared.ErrCanceled)
	staged, err := s.Staged()
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestStore_Prune(t *testing.T) {
	s, root := newTestStore(t)
	src := writeFile(t, root, "a.db", "x")

	var copies []string
	for i := 0; i < 4; i++ {
		staged, err := s.Stage(context.Background(), src)
		require.NoError(t, err)
		copies = append(copies, staged)
	}
	// files not created by the store are left alone
	foreign := writeFile(t, s.Dir(), "notes.txt", "keep me")

	removed, err := s.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	staged, err := s.Staged()
	require.NoError(t, err)
	assert.Equal(t, copies[2:], staged)
	_, err = os.Stat(foreign)
	assert.NoError(t, err)

	removed, err = s.Prune(2)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_Prune_MissingDir(t *testing.T) {
	s, _ := newTestStore(t)
	removed, err := s.Prune(2)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
