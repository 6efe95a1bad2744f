package receiving

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"go.uber.org/zap"
)

// variableWeightCandidates caps the products considered for a variable-weight prefix
const variableWeightCandidates = 50

// SessionSettings tunes counting sessions
type SessionSettings struct {
	DebounceWindow time.Duration // repeated scans of one key inside the window are dropped
}

// Resolution is the line a scanned or typed token was matched to
type Resolution struct {
	Line    receiving.DeliveryLine
	Product *catalog.Product // nil when matched directly against a line
	Created bool             // the line was added to the note as an extra
	Warning string           // set when the match was ambiguous
	Key     string           // debounce key of the token
}

// ScanResult is the outcome of one scan
type ScanResult struct {
	Resolution *Resolution
	Line       *receiving.DeliveryLine
	Debounced  bool
}

// Summary totals the lines of a session
type Summary struct {
	Lines    int `json:"lines"`
	Complete int `json:"complete"`
	Expected int `json:"expected"`
	Counted  int `json:"counted"`
	Faltan   int `json:"faltan"`
	Sobran   int `json:"sobran"`
}

// SessionService opens counting sessions over delivery notes
type SessionService struct {
	noteRepo    receiving.DeliveryNoteRepository
	lineRepo    receiving.DeliveryLineRepository
	productRepo catalog.ProductRepository
	settings    SessionSettings
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(
	noteRepo receiving.DeliveryNoteRepository,
	lineRepo receiving.DeliveryLineRepository,
	productRepo catalog.ProductRepository,
	settings SessionSettings,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		noteRepo:    noteRepo,
		lineRepo:    lineRepo,
		productRepo: productRepo,
		settings:    settings,
		logger:      logger.Named("session"),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for debouncing
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Open loads a note and its lines into a new session
func (s *SessionService) Open(ctx context.Context, noteID int64) (*Session, error) {
	sess := &Session{svc: s, noteID: noteID}
	if err := sess.Reload(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// undoStep is the last increment applied in a session
type undoStep struct {
	lineID int64
	delta  int
}

// Session is the in-memory state of counting one delivery note.
// Every change is written to the store before it is applied in memory.
// A Session is safe for concurrent use.
type Session struct {
	svc    *SessionService
	noteID int64

	mu       sync.Mutex
	note     receiving.DeliveryNote
	lines    []receiving.DeliveryLine // storage order
	touched  []int64                  // line ids, most recent first
	undo     *undoStep
	lastKey  string
	lastScan time.Time
}

// Note returns the note being counted
func (s *Session) Note() receiving.DeliveryNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note
}

// Reload resyncs the note and its lines from the store. Stored values win
// over in-memory ones; touch order is kept for lines that still exist.
func (s *Session) Reload(ctx context.Context) error {
	note, err := s.svc.noteRepo.FindByID(ctx, s.noteID)
	if err != nil {
		return err
	}
	lines, err := s.svc.lineRepo.ListByNote(ctx, s.noteID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.note = *note
	s.lines = lines

	kept := s.touched[:0]
	for _, id := range s.touched {
		if s.indexOf(id) >= 0 {
			kept = append(kept, id)
		}
	}
	s.touched = kept
	if s.undo != nil && s.indexOf(s.undo.lineID) < 0 {
		s.undo = nil
	}
	return nil
}

// ResolveToken matches a scanned barcode or typed item id to a line of the
// note. A product that is in the catalog but not on the note gets an extra line.
func (s *Session) ResolveToken(ctx context.Context, token string) (*Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(ctx, token)
}

// IncrementCounted adds delta to a line's counted quantity and records it for Undo
func (s *Session) IncrementCounted(ctx context.Context, lineID int64, delta int) (*receiving.DeliveryLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increment(ctx, lineID, delta)
}

// SetCounted replaces a line's counted quantity. It cannot be undone.
func (s *Session) SetCounted(ctx context.Context, lineID int64, value int) (*receiving.DeliveryLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.apply(ctx, lineID, func(l *receiving.DeliveryLine) error {
		return l.SetCounted(value)
	})
	if err != nil {
		return nil, err
	}
	s.undo = nil
	return line, nil
}

// Scan resolves a token and counts qty packages of it. A repeat of the
// previous key inside the debounce window is dropped without any change.
func (s *Session) Scan(ctx context.Context, token string, qty int) (*ScanResult, error) {
	if qty <= 0 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey(catalog.Digits(token))
	now := s.svc.now()
	if key != "" && key == s.lastKey && now.Sub(s.lastScan) < s.svc.settings.DebounceWindow {
		return &ScanResult{Debounced: true}, nil
	}
	s.lastKey, s.lastScan = key, now

	res, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	line, err := s.increment(ctx, res.Line.ID, qty)
	if err != nil {
		return nil, err
	}
	res.Line = *line
	return &ScanResult{Resolution: res, Line: line}, nil
}

// Undo reverts the last increment
func (s *Session) Undo(ctx context.Context) (*receiving.DeliveryLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Nothing to undo")
	}
	step := *s.undo
	line, err := s.apply(ctx, step.lineID, func(l *receiving.DeliveryLine) error {
		return l.Increment(-step.delta)
	})
	if err != nil {
		return nil, err
	}
	s.undo = nil
	return line, nil
}

// Lines returns the lines with the most recently touched first and the
// rest in storage order
func (s *Session) Lines() []receiving.DeliveryLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordered()
}

// FilterLines returns the lines whose code or description contains query,
// ignoring case and accents
func (s *Session) FilterLines(query string) []receiving.DeliveryLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.ordered()
	q := strings.TrimSpace(query)
	if q == "" {
		return all
	}
	out := make([]receiving.DeliveryLine, 0, len(all))
	for _, l := range all {
		if catalog.ContainsFolded(l.Code, q) || catalog.ContainsFolded(l.Description, q) {
			out = append(out, l)
		}
	}
	return out
}

// Summary totals the lines of the note
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum Summary
	for _, l := range s.lines {
		sum.Lines++
		sum.Expected += l.Expected
		sum.Counted += l.Counted
		switch d := l.Delta(); {
		case d < 0:
			sum.Faltan -= d
		case d > 0:
			sum.Sobran += d
		default:
			sum.Complete++
		}
	}
	return sum
}

func (s *Session) resolve(ctx context.Context, token string) (*Resolution, error) {
	if err := s.note.EnsureOpen(); err != nil {
		return nil, err
	}
	digits := catalog.Digits(token)
	if digits == "" {
		return nil, &receiving.TokenNotFoundError{Token: strings.TrimSpace(token)}
	}
	if len(digits) >= catalog.EAN13Length-1 {
		return s.resolveBarcode(ctx, digits)
	}
	return s.resolveItem(ctx, digits)
}

func (s *Session) resolveBarcode(ctx context.Context, digits string) (*Resolution, error) {
	key := tokenKey(digits)
	product, err := s.svc.productRepo.FindByBarcode(ctx, catalog.BarcodeCandidates(digits))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var warning string
	if product == nil && catalog.IsVariableWeight(key) {
		prefix := catalog.VariableWeightPrefix(key)
		candidates, err := s.svc.productRepo.FindByBarcodePrefix(ctx, prefix, variableWeightCandidates)
		if err != nil {
			return nil, err
		}
		var matches []catalog.Product
		for _, p := range candidates {
			if p.MatchesVariableWeight(prefix) {
				matches = append(matches, p)
			}
		}
		if len(matches) > 0 {
			product = &matches[0]
		}
		if len(matches) > 1 {
			warning = fmt.Sprintf("%d products share prefix %s; counted as item %d", len(matches), prefix, product.ItemID)
			s.svc.logger.Warn("Ambiguous variable-weight barcode",
				zap.String("code", key),
				zap.Int("matches", len(matches)),
				zap.Int64("item_id", product.ItemID),
			)
		}
	}
	if product == nil {
		return nil, &receiving.TokenNotFoundError{Token: digits}
	}

	res, err := s.lineForProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	res.Warning = warning
	res.Key = key
	return res, nil
}

func (s *Session) resolveItem(ctx context.Context, digits string) (*Resolution, error) {
	id, _ := strconv.ParseInt(digits, 10, 64)
	for _, l := range s.lines {
		if (l.ItemID != nil && *l.ItemID == id) || l.Code == digits {
			return &Resolution{Line: l, Key: digits}, nil
		}
	}

	product, err := s.svc.productRepo.FindByItemID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &receiving.TokenNotFoundError{Token: digits}
		}
		return nil, err
	}
	res, err := s.lineForProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	res.Key = digits
	return res, nil
}

// lineForProduct returns the note line of product, creating an extra line when there is none
func (s *Session) lineForProduct(ctx context.Context, product *catalog.Product) (*Resolution, error) {
	for _, l := range s.lines {
		if l.ItemID != nil && *l.ItemID == product.ItemID {
			return &Resolution{Line: l, Product: product}, nil
		}
	}

	line := receiving.NewExtraLine(s.noteID, product)
	if err := s.svc.lineRepo.Create(ctx, line); err != nil {
		return nil, s.refused(ctx, err)
	}
	s.lines = append(s.lines, *line)
	s.svc.logger.Info("Extra line added",
		zap.Int64("note_id", s.noteID),
		zap.String("label", s.note.Label),
		zap.String("code", line.Code),
	)
	return &Resolution{Line: *line, Product: product, Created: true}, nil
}

func (s *Session) increment(ctx context.Context, lineID int64, delta int) (*receiving.DeliveryLine, error) {
	line, err := s.apply(ctx, lineID, func(l *receiving.DeliveryLine) error {
		return l.Increment(delta)
	})
	if err != nil {
		return nil, err
	}
	s.undo = &undoStep{lineID: lineID, delta: delta}
	return line, nil
}

// apply changes a copy of the line, stores the new count, then commits it in memory
func (s *Session) apply(ctx context.Context, lineID int64, change func(*receiving.DeliveryLine) error) (*receiving.DeliveryLine, error) {
	if err := s.note.EnsureOpen(); err != nil {
		return nil, err
	}
	i := s.indexOf(lineID)
	if i < 0 {
		return nil, shared.NewNotFoundError("Delivery line", lineID)
	}

	line := s.lines[i]
	if err := change(&line); err != nil {
		return nil, err
	}
	if err := s.svc.lineRepo.UpdateCounted(ctx, lineID, line.Counted); err != nil {
		return nil, s.refused(ctx, err)
	}
	s.lines[i] = line
	s.touch(lineID)
	return &line, nil
}

// refused picks up the stored note header when the store rejected a write
// because the note was finalized elsewhere
func (s *Session) refused(ctx context.Context, err error) error {
	if !errors.Is(err, shared.ErrInvalidState) {
		return err
	}
	if note, ferr := s.svc.noteRepo.FindByID(ctx, s.noteID); ferr == nil {
		s.note = *note
	}
	return err
}

func (s *Session) touch(lineID int64) {
	out := make([]int64, 0, len(s.touched)+1)
	out = append(out, lineID)
	for _, id := range s.touched {
		if id != lineID {
			out = append(out, id)
		}
	}
	s.touched = out
}

func (s *Session) ordered() []receiving.DeliveryLine {
	out := make([]receiving.DeliveryLine, 0, len(s.lines))
	front := make(map[int64]bool, len(s.touched))
	for _, id := range s.touched {
		if i := s.indexOf(id); i >= 0 {
			out = append(out, s.lines[i])
			front[id] = true
		}
	}
	for _, l := range s.lines {
		if !front[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

func (s *Session) indexOf(lineID int64) int {
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// tokenKey is the debounce key of scanned digits: barcodes share their scan key
func tokenKey(digits string) string {
	if len(digits) >= catalog.EAN13Length-1 {
		return catalog.ScanKey(digits)
	}
	return digits
}
