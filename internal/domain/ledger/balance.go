package ledger

import (
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// Book selects one of the two parallel ledgers kept by the store
type Book string

const (
	// BookDelivery is fed by delivery note finalization and supervisor edits
	BookDelivery Book = "delivery"
	// BookManual records shortages and overages not tied to any delivery note
	BookManual Book = "manual"
)

// IsValid checks if the book is known
func (b Book) IsValid() bool {
	return b == BookDelivery || b == BookManual
}

// Balance is the running signed total for a product within a group.
// Positive is surplus, negative is shortage; zero balances are logically absent.
type Balance struct {
	Group       string
	Code        string
	Description string
	Saldo       int
	UpdatedAt   time.Time
}

// IsZero reports whether the balance is logically absent
func (b *Balance) IsZero() bool {
	return b.Saldo == 0
}

// Movement is an immutable ledger row recording one delta and its origin
type Movement struct {
	ID          int64
	NoteID      *int64
	Label       string
	Group       string
	Code        string
	Description string
	Delta       int
	CreatedAt   time.Time
}

// NewMovement creates a movement for (group, code)
func NewMovement(group, code string, delta int, at time.Time) (*Movement, error) {
	group = strings.TrimSpace(group)
	code = strings.TrimSpace(code)
	if group == "" {
		return nil, shared.NewValidationError("Group cannot be empty")
	}
	if code == "" {
		return nil, shared.NewValidationError("Code cannot be empty")
	}
	return &Movement{
		Group:     group,
		Code:      code,
		Delta:     delta,
		CreatedAt: at.UTC(),
	}, nil
}

// FromNote attaches the originating delivery note
func (m *Movement) FromNote(noteID int64, label string) *Movement {
	m.NoteID = &noteID
	m.Label = label
	return m
}

// GroupSummary aggregates the nonzero nets of one group
type GroupSummary struct {
	Group  string
	Items  int // distinct codes with nonzero net
	Faltan int // total shortage magnitude
	Sobran int // total overage magnitude
}

// CodeNet is the summed delta of the movements for one (group, code)
type CodeNet struct {
	Group string
	Code  string
	Net   int
}

// Tally accumulates finalize counters over line deltas
type Tally struct {
	Faltan  int
	Sobran  int
	Tocados int
}

// Add records one delta; zero deltas are ignored
func (t *Tally) Add(delta int) {
	switch {
	case delta < 0:
		t.Faltan += -delta
		t.Tocados++
	case delta > 0:
		t.Sobran += delta
		t.Tocados++
	}
}

// SummarizeNets folds (group, code) nets into per-group summaries, ignoring zero nets.
// Groups are returned in first-seen order.
func SummarizeNets(nets []CodeNet) []GroupSummary {
	index := make(map[string]int)
	out := make([]GroupSummary, 0)
	for _, n := range nets {
		if n.Net == 0 {
			continue
		}
		i, ok := index[n.Group]
		if !ok {
			i = len(out)
			index[n.Group] = i
			out = append(out, GroupSummary{Group: n.Group})
		}
		out[i].Items++
		if n.Net < 0 {
			out[i].Faltan += -n.Net
		} else {
			out[i].Sobran += n.Net
		}
	}
	return out
}
