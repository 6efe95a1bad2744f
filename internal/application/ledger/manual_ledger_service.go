package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/validation"
	"go.uber.org/zap"
)

// ManualMovementInput records a shortage or overage found outside any delivery note
type ManualMovementInput struct {
	Group       string `validate:"required,max=40"`
	Label       string `validate:"max=64"`
	Code        string `validate:"required,max=64"`
	Description string `validate:"max=200"`
	Delta       int    `validate:"ne=0"`
}

// ManualLedgerService keeps the manual book. Balances there are plain
// running sums and a zero balance stays listed until the group is cleared.
type ManualLedgerService struct {
	txScope   TransactionScope
	balances  ledger.BalanceRepository
	movements ledger.MovementRepository
	groups    *ledger.Catalog
	logger    *zap.Logger
	now       func() time.Time
}

// NewManualLedgerService creates a new ManualLedgerService over the manual book
func NewManualLedgerService(
	txScope TransactionScope,
	balances ledger.BalanceRepository,
	movements ledger.MovementRepository,
	groups *ledger.Catalog,
	logger *zap.Logger,
) *ManualLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualLedgerService{
		txScope:   txScope,
		balances:  balances,
		movements: movements,
		groups:    groups,
		logger:    logger.Named("manual_ledger"),
		now:       time.Now,
	}
}

// AddMovement adds delta to the manual balance of (group, code) and records it
func (s *ManualLedgerService) AddMovement(ctx context.Context, group, label, code, description string, delta int) (*ledger.Movement, error) {
	input := ManualMovementInput{
		Group:       group,
		Label:       strings.TrimSpace(label),
		Code:        strings.TrimSpace(code),
		Description: strings.TrimSpace(description),
		Delta:       delta,
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if err := s.groups.Validate(input.Group); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m, err := ledger.NewMovement(input.Group, input.Code, input.Delta, now)
	if err != nil {
		return nil, err
	}
	m.Label = input.Label
	m.Description = input.Description

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.BalanceRepo(ledger.BookManual).AddDelta(ctx, ledger.Balance{
			Group:       m.Group,
			Code:        m.Code,
			Description: m.Description,
			Saldo:       m.Delta,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
		return repos.MovementRepo(ledger.BookManual).Append(ctx, m)
	})
	if err != nil {
		return nil, shared.WrapTransaction("add manual movement", err)
	}

	s.logger.Info("Manual movement recorded",
		zap.String("group", m.Group),
		zap.String("code", m.Code),
		zap.String("label", m.Label),
		zap.Int("delta", m.Delta),
	)
	return m, nil
}

// ListBalances returns the nonzero manual balances of a group
func (s *ManualLedgerService) ListBalances(ctx context.Context, group string) ([]ledger.Balance, error) {
	return s.balances.ListNonZero(ctx, group, BalanceListLimit)
}

// Summary aggregates the manual balances per group
func (s *ManualLedgerService) Summary(ctx context.Context) ([]ledger.GroupSummary, error) {
	return s.balances.Summarize(ctx)
}

// ListMovements returns the manual movements of (group, code), newest first
func (s *ManualLedgerService) ListMovements(ctx context.Context, group, code string) ([]ledger.Movement, error) {
	return s.movements.ListByKey(ctx, group, strings.TrimSpace(code), MovementListLimit)
}

// ClearGroup removes the manual balances and movements of a group
func (s *ManualLedgerService) ClearGroup(ctx context.Context, auth ledger.Authorization, group string) error {
	if err := auth.Require(); err != nil {
		return err
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.MovementRepo(ledger.BookManual).DeleteGroup(ctx, group); err != nil {
			return err
		}
		return repos.BalanceRepo(ledger.BookManual).DeleteGroup(ctx, group)
	})
	if err != nil {
		return shared.WrapTransaction("clear manual group", err)
	}
	s.logger.Info("Manual group cleared", zap.String("subject", auth.Subject()), zap.String("group", group))
	return nil
}

// ClearAll removes every manual balance and movement
func (s *ManualLedgerService) ClearAll(ctx context.Context, auth ledger.Authorization) error {
	if err := auth.Require(); err != nil {
		return err
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.MovementRepo(ledger.BookManual).DeleteAll(ctx); err != nil {
			return err
		}
		return repos.BalanceRepo(ledger.BookManual).DeleteAll(ctx)
	})
	if err != nil {
		return shared.WrapTransaction("clear manual ledger", err)
	}
	s.logger.Info("Manual ledger cleared", zap.String("subject", auth.Subject()))
	return nil
}
