package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteRepos struct {
	notes *persistence.GormDeliveryNoteRepository
	lines *persistence.GormDeliveryLineRepository
}

func newNoteRepos(t *testing.T) noteRepos {
	db := testutil.NewStore(t).DB
	return noteRepos{
		notes: persistence.NewGormDeliveryNoteRepository(db),
		lines: persistence.NewGormDeliveryLineRepository(db),
	}
}

func (r noteRepos) create(t *testing.T, label string, expected ...int) *receiving.DeliveryNote {
	t.Helper()
	ctx := context.Background()
	note, err := receiving.NewDeliveryNote(label, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, r.notes.Create(ctx, note))

	var lines []*receiving.DeliveryLine
	for i, qty := range expected {
		code := []string{"42", "50", "X-9"}[i%3]
		line, err := receiving.NewImportedLine(note.ID, code, "ITEM "+code, qty, 0)
		require.NoError(t, err)
		lines = append(lines, line)
	}
	require.NoError(t, r.lines.CreateBatch(ctx, lines))
	return note
}

func TestGormDeliveryNoteRepository_Create(t *testing.T) {
	r := newNoteRepos(t)
	ctx := context.Background()

	note := r.create(t, "1001")
	assert.NotZero(t, note.ID)

	found, err := r.notes.FindByLabel(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, note.ID, found.ID)
	assert.False(t, found.IsFinalized())

	t.Run("duplicate label", func(t *testing.T) {
		dup, err := receiving.NewDeliveryNote("1001", time.Now())
		require.NoError(t, err)
		err = r.notes.Create(ctx, dup)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("missing note", func(t *testing.T) {
		_, err := r.notes.FindByID(ctx, 999)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		_, err = r.notes.FindByLabel(ctx, "nope")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormDeliveryNoteRepository_Save(t *testing.T) {
	r := newNoteRepos(t)
	ctx := context.Background()
	note := r.create(t, "1001", 3)

	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	require.NoError(t, note.MarkFinalized("fruta", at))
	require.NoError(t, r.notes.Save(ctx, note))

	found, err := r.notes.FindByID(ctx, note.ID)
	require.NoError(t, err)
	assert.True(t, found.IsFinalized())
	assert.Equal(t, "fruta", found.Group)
	require.NotNil(t, found.FinishedAt)
	assert.True(t, at.Equal(*found.FinishedAt))

	ghost := &receiving.DeliveryNote{ID: 999, Label: "x"}
	assert.True(t, errors.Is(r.notes.Save(ctx, ghost), shared.ErrNotFound))
	assert.True(t, errors.Is(r.notes.Delete(ctx, 999), shared.ErrNotFound))
}

func TestGormDeliveryNoteRepository_ListActive(t *testing.T) {
	r := newNoteRepos(t)
	ctx := context.Background()

	first := r.create(t, "1001", 3, 2)
	second := r.create(t, "1002")
	archived := r.create(t, "1003", 1)

	lines, err := r.lines.ListByNote(ctx, first.ID)
	require.NoError(t, err)
	require.NoError(t, r.lines.UpdateCounted(ctx, lines[0].ID, 4))

	archived.Archive(time.Now())
	require.NoError(t, r.notes.Save(ctx, archived))

	list, err := r.notes.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, second.ID, list[0].Note.ID)
	assert.Zero(t, list[0].LineCount)
	assert.Zero(t, list[0].ExpectedTotal)

	assert.Equal(t, "1001", list[1].Note.Label)
	assert.Equal(t, 2, list[1].LineCount)
	assert.Equal(t, 5, list[1].ExpectedTotal)
	assert.Equal(t, 4, list[1].CountedTotal)
}

func TestGormDeliveryLineRepository(t *testing.T) {
	r := newNoteRepos(t)
	ctx := context.Background()
	note := r.create(t, "1001", 3, 2, 1)

	lines, err := r.lines.ListByNote(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "42", lines[0].Code)
	require.NotNil(t, lines[0].ItemID)
	assert.Equal(t, int64(42), *lines[0].ItemID)
	require.NotNil(t, lines[2].ItemID, "item id falls back to the digits of the code")
	assert.Equal(t, int64(9), *lines[2].ItemID)

	t.Run("find by item", func(t *testing.T) {
		line, err := r.lines.FindByNoteAndItem(ctx, note.ID, 50)
		require.NoError(t, err)
		assert.Equal(t, lines[1].ID, line.ID)

		_, err = r.lines.FindByNoteAndItem(ctx, note.ID, 77)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("update counted", func(t *testing.T) {
		require.NoError(t, r.lines.UpdateCounted(ctx, lines[0].ID, 5))
		line, err := r.lines.FindByID(ctx, lines[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 5, line.Counted)
		assert.Equal(t, 2, line.Delta())

		assert.True(t, errors.Is(r.lines.UpdateCounted(ctx, 999, 1), shared.ErrNotFound))
	})

	t.Run("delete note and lines", func(t *testing.T) {
		require.NoError(t, r.lines.DeleteByNote(ctx, note.ID))
		require.NoError(t, r.notes.Delete(ctx, note.ID))

		lines, err := r.lines.ListByNote(ctx, note.ID)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}

func TestGormDeliveryLineRepository_FinalizedNote(t *testing.T) {
	r := newNoteRepos(t)
	ctx := context.Background()
	note := r.create(t, "1001", 3)
	lines, err := r.lines.ListByNote(ctx, note.ID)
	require.NoError(t, err)

	require.NoError(t, note.MarkFinalized("fruta", time.Now()))
	require.NoError(t, r.notes.Save(ctx, note))

	t.Run("counted quantity is frozen", func(t *testing.T) {
		err := r.lines.UpdateCounted(ctx, lines[0].ID, 7)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))

		line, err := r.lines.FindByID(ctx, lines[0].ID)
		require.NoError(t, err)
		assert.Zero(t, line.Counted)
	})

	t.Run("no new lines", func(t *testing.T) {
		extra, err := receiving.NewImportedLine(note.ID, "77", "YOGUR", 1, 0)
		require.NoError(t, err)
		assert.True(t, errors.Is(r.lines.Create(ctx, extra), shared.ErrInvalidState))
		assert.Zero(t, extra.ID)

		lines, err := r.lines.ListByNote(ctx, note.ID)
		require.NoError(t, err)
		assert.Len(t, lines, 1)
	})

	t.Run("missing note", func(t *testing.T) {
		orphan, err := receiving.NewImportedLine(999, "77", "YOGUR", 1, 0)
		require.NoError(t, err)
		assert.True(t, errors.Is(r.lines.Create(ctx, orphan), shared.ErrNotFound))
	})
}
