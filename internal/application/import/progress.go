package importapp

import (
	"context"
	"runtime"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// Import steps reported through a ProgressFunc
const (
	StepRead  = "read"
	StepWrite = "write"
)

// Progress describes how far a long import has got
type Progress struct {
	Step    string
	Current int
	Total   int
}

// ProgressFunc receives progress updates. It runs on the importing goroutine.
type ProgressFunc func(Progress)

// Report calls fn when it is set
func (fn ProgressFunc) Report(step string, current, total int) {
	if fn != nil {
		fn(Progress{Step: step, Current: current, Total: total})
	}
}

// Yielder slices a long loop: every n ticks it checks for cancellation and
// lets other goroutines run.
type Yielder struct {
	every int
	ticks int
}

// NewYielder creates a yielder pausing every n ticks; n below 1 means every tick
func NewYielder(n int) *Yielder {
	if n < 1 {
		n = 1
	}
	return &Yielder{every: n}
}

// Tick counts one unit of work. It returns shared.ErrCanceled once ctx is done.
func (y *Yielder) Tick(ctx context.Context) error {
	y.ticks++
	if y.ticks%y.every != 0 {
		return nil
	}
	if ctx.Err() != nil {
		return shared.ErrCanceled
	}
	runtime.Gosched()
	return nil
}
