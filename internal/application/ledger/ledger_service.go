package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/logger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/validation"
	"go.uber.org/zap"
)

// Listing caps
const (
	BalanceListLimit  = 500
	MovementListLimit = 300
)

// ManualDeltaInput is a supervisor adjustment of one balance
type ManualDeltaInput struct {
	Group       string `validate:"required,max=40"`
	Code        string `validate:"required,max=64"`
	Delta       int    `validate:"ne=0"`
	Description string `validate:"max=200"`
}

// FinalizeResult reports what a finalize did. Already is set, and nothing
// was written, when the note had been finalized before.
type FinalizeResult struct {
	Already bool   `json:"already"`
	NoteID  int64  `json:"note_id"`
	Label   string `json:"label"`
	Group   string `json:"group"`
	Faltan  int    `json:"faltan"`
	Sobran  int    `json:"sobran"`
	Tocados int    `json:"tocados"`
}

// LedgerService finalizes delivery notes into the group ledger and lets a
// supervisor adjust it
type LedgerService struct {
	txScope   TransactionScope
	balances  ledger.BalanceRepository
	movements ledger.MovementRepository
	groups    *ledger.Catalog
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerService creates a new LedgerService over the delivery book
func NewLedgerService(
	txScope TransactionScope,
	balances ledger.BalanceRepository,
	movements ledger.MovementRepository,
	groups *ledger.Catalog,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		txScope:   txScope,
		balances:  balances,
		movements: movements,
		groups:    groups,
		logger:    logger.Named("ledger"),
		now:       time.Now,
	}
}

// Groups returns the configured groups
func (s *LedgerService) Groups() []ledger.Group {
	return s.groups.All()
}

// Finalize closes a note and books every line's counted minus expected into
// group. Lines without difference are skipped. Finalizing twice is a no-op.
func (s *LedgerService) Finalize(ctx context.Context, noteID int64, group string) (*FinalizeResult, error) {
	ctx, log := logger.WithOperationID(ctx, s.logger, noteOperation(noteID))

	result := &FinalizeResult{NoteID: noteID, Group: group}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		note, err := repos.NoteRepo().FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		result.Label = note.Label
		if note.IsFinalized() {
			result.Already = true
			result.Group = note.Group
			return nil
		}
		if err := s.groups.Validate(group); err != nil {
			return err
		}

		lines, err := repos.LineRepo().ListByNote(ctx, noteID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		balances := repos.BalanceRepo(ledger.BookDelivery)
		movements := repos.MovementRepo(ledger.BookDelivery)
		var tally ledger.Tally
		for _, line := range lines {
			delta := line.Delta()
			if delta == 0 {
				continue
			}
			tally.Add(delta)

			if err := balances.AddDelta(ctx, ledger.Balance{
				Group:       group,
				Code:        line.Code,
				Description: line.Description,
				Saldo:       delta,
				UpdatedAt:   now,
			}); err != nil {
				return err
			}
			m, err := ledger.NewMovement(group, line.Code, delta, now)
			if err != nil {
				return err
			}
			m.FromNote(note.ID, note.Label).Description = line.Description
			if err := movements.Append(ctx, m); err != nil {
				return err
			}
		}

		if err := note.MarkFinalized(group, now); err != nil {
			return err
		}
		if err := repos.NoteRepo().Save(ctx, note); err != nil {
			return err
		}
		result.Faltan, result.Sobran, result.Tocados = tally.Faltan, tally.Sobran, tally.Tocados
		return nil
	})
	if err != nil {
		return nil, shared.WrapTransaction("finalize delivery note", err)
	}

	if result.Already {
		log.Info("Delivery note already finalized", zap.Int64("note_id", noteID), zap.String("label", result.Label))
	} else {
		log.Info("Delivery note finalized",
			zap.Int64("note_id", noteID),
			zap.String("label", result.Label),
			zap.String("group", group),
			zap.Int("faltan", result.Faltan),
			zap.Int("sobran", result.Sobran),
			zap.Int("tocados", result.Tocados),
		)
	}
	return result, nil
}

// ListGroupSummary aggregates the movement nets per group
func (s *LedgerService) ListGroupSummary(ctx context.Context) ([]ledger.GroupSummary, error) {
	nets, err := s.movements.Nets(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.SummarizeNets(nets), nil
}

// ListGroupBalances returns the nonzero balances of a group, largest first
func (s *LedgerService) ListGroupBalances(ctx context.Context, group string) ([]ledger.Balance, error) {
	return s.balances.ListNonZero(ctx, group, BalanceListLimit)
}

// ListMovements returns the movements of (group, code), newest first
func (s *LedgerService) ListMovements(ctx context.Context, group, code string) ([]ledger.Movement, error) {
	return s.movements.ListByKey(ctx, group, strings.TrimSpace(code), MovementListLimit)
}

// Reconciliation compares a stored balance with the net of its movements
type Reconciliation struct {
	Group string `json:"group"`
	Code  string `json:"code"`
	Saldo int    `json:"saldo"`
	Net   int    `json:"net"`
}

// Consistent reports whether the balance equals its movement net
func (r Reconciliation) Consistent() bool {
	return r.Saldo == r.Net
}

// Reconcile reads the balance of (group, code) next to the sum of its
// movements. Balances brought in by a legacy migration have no movements.
func (s *LedgerService) Reconcile(ctx context.Context, group, code string) (*Reconciliation, error) {
	b, err := s.GetBalance(ctx, group, code)
	if err != nil {
		return nil, err
	}
	net, err := s.movements.Net(ctx, group, b.Code)
	if err != nil {
		return nil, err
	}
	return &Reconciliation{Group: group, Code: b.Code, Saldo: b.Saldo, Net: net}, nil
}

// GetBalance returns the balance of (group, code); a missing row reads as zero
func (s *LedgerService) GetBalance(ctx context.Context, group, code string) (*ledger.Balance, error) {
	b, err := s.balances.Find(ctx, group, strings.TrimSpace(code))
	if errors.Is(err, shared.ErrNotFound) {
		return &ledger.Balance{Group: group, Code: strings.TrimSpace(code)}, nil
	}
	return b, err
}

// ApplyManualDelta adds delta to a balance on a supervisor's behalf and
// records the movement. A balance reaching zero is removed.
func (s *LedgerService) ApplyManualDelta(
	ctx context.Context,
	auth ledger.Authorization,
	group, code string,
	delta int,
	description string,
) (*ledger.Balance, error) {
	if err := auth.Require(); err != nil {
		return nil, err
	}
	input := ManualDeltaInput{
		Group:       group,
		Code:        strings.TrimSpace(code),
		Delta:       delta,
		Description: strings.TrimSpace(description),
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if err := s.validateGroup(group); err != nil {
		return nil, err
	}

	var out *ledger.Balance
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := applyDelta(ctx, repos, input, s.now().UTC())
		out = b
		return err
	})
	if err != nil {
		return nil, shared.WrapTransaction("adjust balance", err)
	}

	s.logger.Info("Balance adjusted",
		zap.String("subject", auth.Subject()),
		zap.String("group", group),
		zap.String("code", out.Code),
		zap.Int("delta", delta),
		zap.Int("saldo", out.Saldo),
	)
	return out, nil
}

// SetBalance moves a balance to target by applying the difference
func (s *LedgerService) SetBalance(
	ctx context.Context,
	auth ledger.Authorization,
	group, code string,
	target int,
	description string,
) (*ledger.Balance, error) {
	if err := auth.Require(); err != nil {
		return nil, err
	}
	current, err := s.GetBalance(ctx, group, code)
	if err != nil {
		return nil, err
	}
	delta := target - current.Saldo
	if delta == 0 {
		return current, nil
	}
	return s.ApplyManualDelta(ctx, auth, group, code, delta, description)
}

// ClearGroup removes every balance and movement of a group
func (s *LedgerService) ClearGroup(ctx context.Context, auth ledger.Authorization, group string) error {
	if err := auth.Require(); err != nil {
		return err
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.MovementRepo(ledger.BookDelivery).DeleteGroup(ctx, group); err != nil {
			return err
		}
		return repos.BalanceRepo(ledger.BookDelivery).DeleteGroup(ctx, group)
	})
	if err != nil {
		return shared.WrapTransaction("clear group", err)
	}
	s.logger.Info("Ledger group cleared", zap.String("subject", auth.Subject()), zap.String("group", group))
	return nil
}

// ClearAll removes every balance and movement
func (s *LedgerService) ClearAll(ctx context.Context, auth ledger.Authorization) error {
	if err := auth.Require(); err != nil {
		return err
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.MovementRepo(ledger.BookDelivery).DeleteAll(ctx); err != nil {
			return err
		}
		return repos.BalanceRepo(ledger.BookDelivery).DeleteAll(ctx)
	})
	if err != nil {
		return shared.WrapTransaction("clear ledger", err)
	}
	s.logger.Info("Ledger cleared", zap.String("subject", auth.Subject()))
	return nil
}

// DeleteFinalizedNote removes a note. For a finalized note the net of its
// movements is taken back out of every balance first, so the ledger reads as
// if the note had never been finalized.
func (s *LedgerService) DeleteFinalizedNote(ctx context.Context, noteID int64) error {
	ctx, log := logger.WithOperationID(ctx, s.logger, noteOperation(noteID))

	var label string
	reversed := 0
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		note, err := repos.NoteRepo().FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		label = note.Label

		if note.IsFinalized() {
			movements := repos.MovementRepo(ledger.BookDelivery)
			nets, err := movements.NetsByNote(ctx, noteID)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			for _, n := range nets {
				if n.Net == 0 {
					continue
				}
				if err := reverse(ctx, repos.BalanceRepo(ledger.BookDelivery), n, now); err != nil {
					return err
				}
				reversed++
			}
			if err := movements.DeleteByNote(ctx, noteID); err != nil {
				return err
			}
		}

		if err := repos.LineRepo().DeleteByNote(ctx, noteID); err != nil {
			return err
		}
		return repos.NoteRepo().Delete(ctx, noteID)
	})
	if err != nil {
		return shared.WrapTransaction("delete delivery note", err)
	}
	log.Info("Delivery note deleted",
		zap.Int64("note_id", noteID),
		zap.String("label", label),
		zap.Int("reversed", reversed),
	)
	return nil
}

// validateGroup accepts configured groups and the bucket of migrated balances
func (s *LedgerService) validateGroup(group string) error {
	if group == ledger.UnassignedGroup {
		return nil
	}
	return s.groups.Validate(group)
}

// reverse takes a note's net for one code back out of its balance. A
// balance left at zero is removed.
func reverse(ctx context.Context, balances ledger.BalanceRepository, n ledger.CodeNet, now time.Time) error {
	current, err := balances.Find(ctx, n.Group, n.Code)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		current = &ledger.Balance{}
	case err != nil:
		return err
	}
	if err := balances.AddDelta(ctx, ledger.Balance{
		Group:       n.Group,
		Code:        n.Code,
		Description: current.Description,
		Saldo:       -n.Net,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}
	return balances.DeleteZero(ctx, n.Group, n.Code)
}

func noteOperation(noteID int64) string {
	return "note-" + strconv.FormatInt(noteID, 10)
}

// applyDelta moves a delivery balance by delta, deleting it at zero, and appends the movement
func applyDelta(ctx context.Context, repos TransactionalRepositories, in ManualDeltaInput, now time.Time) (*ledger.Balance, error) {
	m, err := ledger.NewMovement(in.Group, in.Code, in.Delta, now)
	if err != nil {
		return nil, err
	}
	balances := repos.BalanceRepo(ledger.BookDelivery)

	current, err := balances.Find(ctx, m.Group, m.Code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	next := &ledger.Balance{Group: m.Group, Code: m.Code, Description: in.Description, Saldo: in.Delta, UpdatedAt: now}
	if current != nil {
		next.Saldo += current.Saldo
		if next.Description == "" {
			next.Description = current.Description
		}
	}

	if next.Saldo == 0 {
		err = balances.Delete(ctx, m.Group, m.Code)
	} else {
		err = balances.Put(ctx, *next)
	}
	if err != nil {
		return nil, err
	}

	m.Description = next.Description
	if err := repos.MovementRepo(ledger.BookDelivery).Append(ctx, m); err != nil {
		return nil, err
	}
	return next, nil
}
