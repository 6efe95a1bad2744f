package validation

import (
	"errors"
	"testing"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinForm struct {
	PIN   string `mapstructure:"pin" validate:"required,numeric,len=4"`
	Group string `mapstructure:"group" validate:"required,alphanum"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Struct(pinForm{PIN: "1234", Group: "seco"}))
	})

	t.Run("reports every failing field", func(t *testing.T) {
		err := Struct(pinForm{PIN: "12a"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Contains(t, err.Error(), "pin: must be numeric")
		assert.Contains(t, err.Error(), "group: is required")
	})
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("pin", "0000", "numeric,len=4"))

	err := Var("pin", "12345", "numeric,len=4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Equal(t, "pin: must be exactly 4 characters", err.Error())
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil))

	err := Translate(errors.New("boom"))
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
