package importapp

import (
	"context"
	"testing"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestYielder_Tick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	y := NewYielder(3)

	assert.NoError(t, y.Tick(ctx))
	assert.NoError(t, y.Tick(ctx))
	assert.NoError(t, y.Tick(ctx))

	cancel()
	// cancellation is only noticed on the next yield point
	assert.NoError(t, y.Tick(ctx))
	assert.NoError(t, y.Tick(ctx))
	assert.ErrorIs(t, y.Tick(ctx), shared.ErrCanceled)
}

func TestProgressFunc_Report(t *testing.T) {
	var got []Progress
	fn := ProgressFunc(func(p Progress) { got = append(got, p) })
	fn.Report(StepRead, 1, 10)
	fn.Report(StepWrite, 10, 10)

	assert.Equal(t, []Progress{{StepRead, 1, 10}, {StepWrite, 10, 10}}, got)

	var none ProgressFunc
	assert.NotPanics(t, func() { none.Report(StepRead, 1, 1) })
}
