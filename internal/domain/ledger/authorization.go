package ledger

import "github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"

// Authorization asserts that a supervisor approved a gated ledger mutation.
// The zero value is a refusal.
type Authorization struct {
	granted bool
	subject string
}

// Grant returns an authorization issued to subject
func Grant(subject string) Authorization {
	return Authorization{granted: true, subject: subject}
}

// Granted reports whether the gated action may run
func (a Authorization) Granted() bool {
	return a.granted
}

// Subject returns who issued the authorization
func (a Authorization) Subject() string {
	return a.subject
}

// Require returns ErrUnauthorized unless the authorization was granted
func (a Authorization) Require() error {
	if !a.granted {
		return shared.ErrUnauthorized
	}
	return nil
}
