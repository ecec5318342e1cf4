package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(CreateTransaction, "farmer"))
	assert.True(t, AllowedRole(CreateTransaction, "buyer"))
	assert.True(t, AllowedRole(DeleteTransaction, "admin"))
	assert.False(t, AllowedRole(DeleteTransaction, "farmer"))
	assert.False(t, AllowedRole(OverrideTransaction, "buyer"))
	assert.False(t, AllowedRole("unknown_permission", "admin"))
}
