package receiving_test

import (
	"context"
	"errors"
	"testing"
	"time"

	importapp "github.com/Proyectitos24/RepasoAlbaranes/internal/application/import"
	appledger "github.com/Proyectitos24/RepasoAlbaranes/internal/application/ledger"
	appreceiving "github.com/Proyectitos24/RepasoAlbaranes/internal/application/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/source"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noteFixture struct {
	notes    *persistence.GormDeliveryNoteRepository
	lines    *persistence.GormDeliveryLineRepository
	products *persistence.GormProductRepository
	ledger   *appledger.LedgerService
	service  *appreceiving.NoteService
	importer *appreceiving.NoteImportService
	sessions *appreceiving.SessionService
}

func newNoteFixture(t *testing.T) *noteFixture {
	t.Helper()
	db := testutil.NewStore(t).DB
	groups, err := ledger.NewCatalog(ledger.DefaultGroups())
	require.NoError(t, err)

	f := &noteFixture{
		notes:    persistence.NewGormDeliveryNoteRepository(db),
		lines:    persistence.NewGormDeliveryLineRepository(db),
		products: persistence.NewGormProductRepository(db),
	}
	f.ledger = appledger.NewLedgerService(
		persistence.NewGormLedgerScope(db),
		persistence.NewGormBalanceRepository(db, ledger.BookDelivery),
		persistence.NewGormMovementRepository(db, ledger.BookDelivery),
		groups,
		zap.NewNop(),
	)
	scope := persistence.NewGormReceivingScope(db)
	f.service = appreceiving.NewNoteService(f.notes, scope, f.ledger, zap.NewNop())
	f.importer = appreceiving.NewNoteImportService(
		scope,
		importapp.NewImportHistoryService(persistence.NewGormImportHistoryRepository(db), zap.NewNop()),
		nil,
		appreceiving.NoteImportSettings{},
		zap.NewNop(),
	)
	f.sessions = appreceiving.NewSessionService(
		f.notes, f.lines, f.products,
		appreceiving.SessionSettings{},
		zap.NewNop(),
	)
	return f
}

func (f *noteFixture) finalize(t *testing.T, noteID int64) {
	t.Helper()
	_, err := f.ledger.Finalize(context.Background(), noteID, "seco")
	require.NoError(t, err)
}

func TestNoteService_CreateEmpty(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateEmpty(ctx, " 12-34 ")
	require.NoError(t, err)
	assert.Equal(t, "1234", created.Note.Label)
	assert.NotZero(t, created.Note.ID)
	assert.False(t, created.Existing)

	again, err := f.service.CreateEmpty(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, created.Note.ID, again.Note.ID)

	_, err = f.service.CreateEmpty(ctx, "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestNoteService_CreateEmptyReportsFinalizedAndArchived(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateEmpty(ctx, "700")
	require.NoError(t, err)
	f.finalize(t, created.Note.ID)

	result, err := f.service.CreateEmpty(ctx, "700")
	require.NoError(t, err)
	assert.True(t, result.Finalized)
	assert.False(t, result.Existing)

	require.NoError(t, f.service.Archive(ctx, created.Note.ID))
	result, err = f.service.CreateEmpty(ctx, "700")
	require.NoError(t, err)
	assert.True(t, result.Archived)
	assert.False(t, result.Finalized)

	reactivated, err := f.service.Reactivate(ctx, created.Note.ID)
	require.NoError(t, err)
	assert.False(t, reactivated.IsArchived())
	assert.True(t, reactivated.IsFinalized())
}

func TestNoteService_ListHidesArchived(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()

	first, err := f.service.CreateEmpty(ctx, "1")
	require.NoError(t, err)
	second, err := f.service.CreateEmpty(ctx, "2")
	require.NoError(t, err)
	f.finalize(t, first.Note.ID)
	require.NoError(t, f.service.Archive(ctx, first.Note.ID))

	list, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.Note.ID, list[0].Note.ID)
}

func TestNoteService_ArchiveRequiresFinalized(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateEmpty(ctx, "800")
	require.NoError(t, err)

	err = f.service.Archive(ctx, created.Note.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestNoteService_ArchiveKeepsLedger(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()

	note := f.importAndCount(t)
	f.finalize(t, note.ID)
	require.NoError(t, f.service.Archive(ctx, note.ID))

	lines, err := f.lines.ListByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	b, err := f.ledger.GetBalance(ctx, "seco", "42")
	require.NoError(t, err)
	assert.Equal(t, -4, b.Saldo)
}

func TestNoteService_DeleteOpenNote(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	note := f.importAndCount(t)

	require.NoError(t, f.service.Delete(ctx, note.ID))

	_, err := f.notes.FindByID(ctx, note.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	lines, err := f.lines.ListByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.True(t, errors.Is(f.service.Delete(ctx, note.ID), shared.ErrNotFound))
}

// TestReceivingCycle imports a listing, counts it, finalizes it and deletes it again
func TestReceivingCycle(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	note := f.importAndCount(t)

	result, err := f.ledger.Finalize(ctx, note.ID, "seco")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Faltan)
	assert.Equal(t, 1, result.Sobran)
	assert.Equal(t, 2, result.Tocados)

	sess, err := f.sessions.Open(ctx, note.ID)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, "42", 1)
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "finalized notes cannot be counted")

	again, err := f.ledger.Finalize(ctx, note.ID, "seco")
	require.NoError(t, err)
	assert.True(t, again.Already)

	summary, err := f.ledger.ListGroupSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, ledger.GroupSummary{Group: "seco", Items: 2, Faltan: 4, Sobran: 1}, summary[0])

	// a second import of the same listing leaves the finalized note alone
	imported, err := f.importer.ImportDeliveryNotes(ctx, []source.Opener{cycleListing()}, appreceiving.ImportOptions{ReplaceOpenNotes: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"5001"}, imported.AlreadyFinalized)

	require.NoError(t, f.service.Delete(ctx, note.ID))

	summary, err = f.ledger.ListGroupSummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary)
	balances, err := f.ledger.ListGroupBalances(ctx, "seco")
	require.NoError(t, err)
	assert.Empty(t, balances)
	_, err = f.notes.FindByID(ctx, note.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

// Sessions opened before the note was finalized must not write to it
func TestSession_NoteFinalizedWhileOpen(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	note := f.importAndCount(t)

	yogur, err := catalog.NewProduct(77, "YOGUR", "8410000000070")
	require.NoError(t, err)
	require.NoError(t, f.products.CreateBatch(ctx, []catalog.Product{*yogur}, 10))

	scanning, err := f.sessions.Open(ctx, note.ID)
	require.NoError(t, err)
	adding, err := f.sessions.Open(ctx, note.ID)
	require.NoError(t, err)
	setting, err := f.sessions.Open(ctx, note.ID)
	require.NoError(t, err)

	f.finalize(t, note.ID)

	_, err = scanning.Scan(ctx, "42", 5)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	current := scanning.Note()
	assert.True(t, current.IsFinalized(), "the session picks up the finalized header")

	_, err = adding.ResolveToken(ctx, "77")
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	lines, err := f.lines.ListByNote(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3, "no extra line on a finalized note")
	assert.Equal(t, 2, lines[0].Counted)

	_, err = setting.SetCounted(ctx, lines[0].ID, 9)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	stored, err := f.lines.FindByID(ctx, lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Counted)
}

func cycleListing() source.Opener {
	return listing("listado.db",
		[]string{"1", "5001", "42", "LECHE", "6", ""},
		[]string{"2", "5001", "50", "PAN", "2", ""},
		[]string{"3", "5001", "60", "SAL", "1", ""},
	)
}

// importAndCount imports note 5001 and counts LECHE 2 of 6, PAN 3 of 2 and SAL 1 of 1
func (f *noteFixture) importAndCount(t *testing.T) *receiving.DeliveryNote {
	t.Helper()
	ctx := context.Background()

	_, err := f.importer.ImportDeliveryNotes(ctx, []source.Opener{cycleListing()}, appreceiving.ImportOptions{})
	require.NoError(t, err)
	note, err := f.notes.FindByLabel(ctx, "5001")
	require.NoError(t, err)

	sess, err := f.sessions.WithClock(func() time.Time { return note.CreatedAt }).Open(ctx, note.ID)
	require.NoError(t, err)
	for _, scan := range []struct {
		token string
		qty   int
	}{
		{"42", 2},
		{"50", 3},
		{"60", 1},
	} {
		_, err := sess.Scan(ctx, scan.token, scan.qty)
		require.NoError(t, err)
	}
	return note
}
