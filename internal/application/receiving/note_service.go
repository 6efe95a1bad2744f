package receiving

import (
	"context"
	"errors"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/validation"
	"go.uber.org/zap"
)

// FinalizedNoteDeleter removes a finalized note together with its ledger effect
type FinalizedNoteDeleter interface {
	DeleteFinalizedNote(ctx context.Context, noteID int64) error
}

// CreateNoteInput is a note typed in by a user
type CreateNoteInput struct {
	Label string `json:"label" validate:"required,numeric,max=32"`
}

// CreateNoteResult reports the note a create call ended on. At most one
// flag is set when a note with the label already existed.
type CreateNoteResult struct {
	Note      receiving.DeliveryNote
	Existing  bool // an open note was returned
	Archived  bool // the note is archived and may be reactivated
	Finalized bool // the note is finalized and cannot be counted
}

// NoteService administers delivery notes
type NoteService struct {
	noteRepo receiving.DeliveryNoteRepository
	txScope  TransactionScope
	deleter  FinalizedNoteDeleter
	logger   *zap.Logger
	now      func() time.Time
}

// NewNoteService creates a new NoteService
func NewNoteService(
	noteRepo receiving.DeliveryNoteRepository,
	txScope TransactionScope,
	deleter FinalizedNoteDeleter,
	logger *zap.Logger,
) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{
		noteRepo: noteRepo,
		txScope:  txScope,
		deleter:  deleter,
		logger:   logger.Named("notes"),
		now:      time.Now,
	}
}

// List returns the notes that are not archived, newest first
func (s *NoteService) List(ctx context.Context) ([]receiving.NoteOverview, error) {
	return s.noteRepo.ListActive(ctx)
}

// CreateEmpty creates an open note without lines. Only the digits of the
// label are kept. An existing note with the label is returned instead.
func (s *NoteService) CreateEmpty(ctx context.Context, label string) (*CreateNoteResult, error) {
	input := CreateNoteInput{Label: receiving.NormalizeManualLabel(label)}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	existing, err := s.noteRepo.FindByLabel(ctx, input.Label)
	if err == nil {
		return &CreateNoteResult{
			Note:      *existing,
			Existing:  !existing.IsArchived() && !existing.IsFinalized(),
			Archived:  existing.IsArchived(),
			Finalized: !existing.IsArchived() && existing.IsFinalized(),
		}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	note, err := receiving.NewDeliveryNote(input.Label, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}
	s.logger.Info("Delivery note created", zap.Int64("note_id", note.ID), zap.String("label", note.Label))
	return &CreateNoteResult{Note: *note}, nil
}

// Archive hides a finalized note and drops its lines. The ledger is not touched.
func (s *NoteService) Archive(ctx context.Context, noteID int64) error {
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		note, err := repos.NoteRepo().FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		if !note.IsFinalized() {
			return shared.NewDomainError(shared.CodeInvalidState, "Only finalized notes can be archived")
		}
		if err := repos.LineRepo().DeleteByNote(ctx, noteID); err != nil {
			return err
		}
		note.Archive(s.now())
		return repos.NoteRepo().Save(ctx, note)
	})
	if err != nil {
		return shared.WrapTransaction("archive delivery note", err)
	}
	s.logger.Info("Delivery note archived", zap.Int64("note_id", noteID))
	return nil
}

// Reactivate brings an archived note back to the active list
func (s *NoteService) Reactivate(ctx context.Context, noteID int64) (*receiving.DeliveryNote, error) {
	note, err := s.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !note.IsArchived() {
		return note, nil
	}
	note.Reactivate()
	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}
	s.logger.Info("Delivery note reactivated", zap.Int64("note_id", noteID), zap.String("label", note.Label))
	return note, nil
}

// Delete removes a note and its lines. A finalized note also has its
// movements reversed in the ledger.
func (s *NoteService) Delete(ctx context.Context, noteID int64) error {
	note, err := s.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		return err
	}
	if note.IsFinalized() {
		return s.deleter.DeleteFinalizedNote(ctx, noteID)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.LineRepo().DeleteByNote(ctx, noteID); err != nil {
			return err
		}
		return repos.NoteRepo().Delete(ctx, noteID)
	})
	if err != nil {
		return shared.WrapTransaction("delete delivery note", err)
	}
	s.logger.Info("Delivery note deleted", zap.Int64("note_id", noteID), zap.String("label", note.Label))
	return nil
}
