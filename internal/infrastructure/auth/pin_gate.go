// Package auth gates the supervisor-only ledger operations behind a PIN.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminPINKey is the app_settings key holding the supervisor PIN
const AdminPINKey = "admin_pin"

// SupervisorSubject names the holder of a PIN authorization
const SupervisorSubject = "supervisor"

// Password cost for bcrypt
const bcryptCost = 12

// pinRule applies to new PINs; stored legacy PINs may have any digit count
const (
	pinRule   = "required,numeric,len=4"
	entryRule = "required,numeric"
)

// SettingStore reads and writes application settings
type SettingStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// PinGate checks the supervisor PIN and issues ledger authorizations
type PinGate struct {
	settings   SettingStore
	defaultPIN string
	cost       int
	logger     *zap.Logger
}

// NewPinGate creates a gate reading the PIN from settings. defaultPIN is
// accepted while no PIN has been stored.
func NewPinGate(settings SettingStore, defaultPIN string, logger *zap.Logger) *PinGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PinGate{
		settings:   settings,
		defaultPIN: defaultPIN,
		cost:       bcryptCost,
		logger:     logger.Named("auth"),
	}
}

// WithCost overrides the bcrypt cost used for new hashes
func (g *PinGate) WithCost(cost int) *PinGate {
	g.cost = cost
	return g
}

// Authorize compares pin with the stored PIN and grants an authorization on
// a match. A PIN still stored in plain text is replaced by its hash.
func (g *PinGate) Authorize(ctx context.Context, pin string) (ledger.Authorization, error) {
	if err := validation.Var("pin", pin, entryRule); err != nil {
		return ledger.Authorization{}, shared.ErrUnauthorized
	}

	stored, ok, err := g.settings.Get(ctx, AdminPINKey)
	if err != nil {
		return ledger.Authorization{}, fmt.Errorf("failed to read admin PIN: %w", err)
	}

	switch {
	case !ok || stored == "":
		if !equalPIN(pin, g.defaultPIN) {
			return g.deny()
		}
	case isHash(stored):
		if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(pin)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return g.deny()
			}
			return ledger.Authorization{}, fmt.Errorf("failed to check admin PIN: %w", err)
		}
	default:
		if !equalPIN(pin, stored) {
			return g.deny()
		}
		if err := g.store(ctx, pin); err != nil {
			// the check succeeded; the upgrade is retried on the next one
			g.logger.Warn("Failed to upgrade plain text admin PIN", zap.Error(err))
		} else {
			g.logger.Info("Upgraded plain text admin PIN to a hash")
		}
	}

	return ledger.Grant(SupervisorSubject), nil
}

// ChangePIN stores a new PIN. The caller must already be authorized.
func (g *PinGate) ChangePIN(ctx context.Context, auth ledger.Authorization, newPIN string) error {
	if err := auth.Require(); err != nil {
		return err
	}
	if err := validation.Var("pin", newPIN, pinRule); err != nil {
		return err
	}
	if err := g.store(ctx, newPIN); err != nil {
		return fmt.Errorf("failed to store admin PIN: %w", err)
	}
	g.logger.Info("Admin PIN changed")
	return nil
}

func (g *PinGate) store(ctx context.Context, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), g.cost)
	if err != nil {
		return err
	}
	return g.settings.Put(ctx, AdminPINKey, string(hash))
}

func (g *PinGate) deny() (ledger.Authorization, error) {
	g.logger.Warn("Rejected supervisor PIN")
	return ledger.Authorization{}, shared.ErrUnauthorized
}

func isHash(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}

func equalPIN(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
