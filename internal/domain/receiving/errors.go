package receiving

import (
	"fmt"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// TokenNotFoundError is returned when a scanned or typed token matches no
// catalog product and no line of the note
type TokenNotFoundError struct {
	Token string
}

// Error implements the error interface
func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("code %s not found in catalog", e.Token)
}

// Is makes TokenNotFoundError match shared.ErrNotFound
func (e *TokenNotFoundError) Is(target error) bool {
	de, ok := target.(*shared.DomainError)
	return ok && de.Code == shared.CodeNotFound
}
