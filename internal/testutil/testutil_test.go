package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStore(t *testing.T) {
	db := NewStore(t)
	assert.True(t, db.DB.Migrator().HasTable("albaranes"))
	assert.True(t, db.DB.Migrator().HasTable("manual_saldo_global"))
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
}
