package ledger

import (
	"testing"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMovement(t *testing.T) {
	t.Run("creates movement tied to a note", func(t *testing.T) {
		m, err := NewMovement(" seco ", "100", 3, time.Now())
		require.NoError(t, err)
		m.FromNote(12, "900001")

		assert.Equal(t, "seco", m.Group)
		assert.Equal(t, "100", m.Code)
		require.NotNil(t, m.NoteID)
		assert.Equal(t, int64(12), *m.NoteID)
		assert.Equal(t, "900001", m.Label)
	})

	t.Run("requires group and code", func(t *testing.T) {
		_, err := NewMovement("", "100", 1, time.Now())
		assert.ErrorIs(t, err, shared.ErrValidation)
		_, err = NewMovement("seco", " ", 1, time.Now())
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestTally(t *testing.T) {
	var tally Tally
	for _, d := range []int{-7, 0, 2, -1, 0, 4} {
		tally.Add(d)
	}

	assert.Equal(t, 8, tally.Faltan)
	assert.Equal(t, 6, tally.Sobran)
	assert.Equal(t, 4, tally.Tocados)
}

func TestSummarizeNets(t *testing.T) {
	nets := []CodeNet{
		{Group: "seco", Code: "1", Net: -3},
		{Group: "frio", Code: "9", Net: 2},
		{Group: "seco", Code: "2", Net: 5},
		{Group: "seco", Code: "3", Net: 0},
	}

	got := SummarizeNets(nets)

	require.Len(t, got, 2)
	assert.Equal(t, GroupSummary{Group: "seco", Items: 2, Faltan: 3, Sobran: 5}, got[0])
	assert.Equal(t, GroupSummary{Group: "frio", Items: 1, Sobran: 2}, got[1])
}

func TestCatalog(t *testing.T) {
	t.Run("validates known groups", func(t *testing.T) {
		c, err := NewCatalog(DefaultGroups())
		require.NoError(t, err)

		assert.NoError(t, c.Validate("seco"))
		assert.ErrorIs(t, c.Validate("nevera"), shared.ErrValidation)
		assert.Equal(t, "Seco", c.Label("seco"))
		assert.Equal(t, "nevera", c.Label("nevera"))
		assert.Len(t, c.All(), 6)
	})

	t.Run("rejects duplicate keys", func(t *testing.T) {
		_, err := NewCatalog([]Group{{Key: "a", Label: "A"}, {Key: "a", Label: "B"}})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}
