package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRoomID(t *testing.T) {
	assert.NoError(t, ValidateRoomID("demo"))
	assert.NoError(t, ValidateRoomID("room-42_b"))
	assert.NoError(t, ValidateRoomID("  demo  "))

	assert.Error(t, ValidateRoomID(""))
	assert.Error(t, ValidateRoomID("   "))
	assert.Error(t, ValidateRoomID("room with spaces"))
	assert.Error(t, ValidateRoomID("room/evil"))
	assert.Error(t, ValidateRoomID(strings.Repeat("a", 101)))
}

func TestValidateDisplayName(t *testing.T) {
	assert.NoError(t, ValidateDisplayName("Alice"))
	assert.NoError(t, ValidateDisplayName("Renée Müller"))
	assert.NoError(t, ValidateDisplayName(strings.Repeat("å", 64)))

	assert.Error(t, ValidateDisplayName(""))
	assert.Error(t, ValidateDisplayName("   "))
	assert.Error(t, ValidateDisplayName(strings.Repeat("a", 65)))
}

func TestValidateIdentity(t *testing.T) {
	assert.NoError(t, ValidateIdentity(""))
	assert.NoError(t, ValidateIdentity("alice-1"))
	assert.NoError(t, ValidateIdentity("user.name_42"))

	assert.Error(t, ValidateIdentity("has spaces"))
	assert.Error(t, ValidateIdentity("slash/char"))
	assert.Error(t, ValidateIdentity(strings.Repeat("a", 129)))
}
