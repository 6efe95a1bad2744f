package receiving

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// NoteStatus represents the lifecycle state of a delivery note
type NoteStatus string

const (
	NoteStatusOpen      NoteStatus = "OPEN"
	NoteStatusFinalized NoteStatus = "FINALIZED"
	NoteStatusArchived  NoteStatus = "ARCHIVED"
)

// String returns the string representation of NoteStatus
func (s NoteStatus) String() string {
	return string(s)
}

// DeliveryNote is a shipment manifest ("albarán") identified by an external label.
// It is the aggregate root for counting: lines are only mutated while it is open.
type DeliveryNote struct {
	ID         int64
	Label      string
	CreatedAt  time.Time
	FinishedAt *time.Time // nil while open; never cleared once set
	Group      string     // ledger group recorded at finalize time
	ArchivedAt *time.Time
}

// NewDeliveryNote creates an open delivery note
func NewDeliveryNote(label string, now time.Time) (*DeliveryNote, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, shared.NewValidationError("Delivery note label cannot be empty")
	}
	return &DeliveryNote{
		Label:     label,
		CreatedAt: now.UTC(),
	}, nil
}

// NormalizeManualLabel keeps only the digits of a label typed by a user
func NormalizeManualLabel(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsFinalized returns true once the note has been finalized
func (n *DeliveryNote) IsFinalized() bool {
	return n.FinishedAt != nil
}

// IsArchived returns true if the note is hidden from the active list
func (n *DeliveryNote) IsArchived() bool {
	return n.ArchivedAt != nil
}

// Status derives the note status from its timestamps
func (n *DeliveryNote) Status() NoteStatus {
	switch {
	case n.IsArchived():
		return NoteStatusArchived
	case n.IsFinalized():
		return NoteStatusFinalized
	default:
		return NoteStatusOpen
	}
}

// EnsureOpen returns ErrInvalidState unless counting is still allowed
func (n *DeliveryNote) EnsureOpen() error {
	if n.IsFinalized() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Delivery note %s is finalized", n.Label))
	}
	if n.IsArchived() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Delivery note %s is archived", n.Label))
	}
	return nil
}

// MarkFinalized records the one-way transition to finalized
func (n *DeliveryNote) MarkFinalized(group string, at time.Time) error {
	if n.IsFinalized() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Delivery note %s is already finalized", n.Label))
	}
	if strings.TrimSpace(group) == "" {
		return shared.NewValidationError("Group is required to finalize")
	}
	t := at.UTC()
	n.FinishedAt = &t
	n.Group = group
	return nil
}

// Archive hides the note from the active list
func (n *DeliveryNote) Archive(at time.Time) {
	t := at.UTC()
	n.ArchivedAt = &t
}

// Reactivate brings an archived note back to the active list
func (n *DeliveryNote) Reactivate() {
	n.ArchivedAt = nil
}

// NoteOverview is a delivery note with its line counters, used for listings
type NoteOverview struct {
	Note          DeliveryNote
	LineCount     int
	ExpectedTotal int
	CountedTotal  int
}
