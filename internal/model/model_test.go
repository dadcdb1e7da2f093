package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestRoleName(t *testing.T) {
	assert.Nil(t, RoleNone.Ptr())
	assert.False(t, RoleNone.Valid())

	p := RoleSuperuser.Ptr()
	if assert.NotNil(t, p) {
		assert.Equal(t, "superuser", *p)
	}
	assert.Equal(t, RoleName("Admin"), ParseRoleName(" Admin "))
	assert.NotEqual(t, RoleAdmin, ParseRoleName("Admin"))
}

func TestPage(t *testing.T) {
	p := Page[int]{Page: 3, PageSize: 10, Total: 21}
	assert.Equal(t, 3, p.TotalPages())
	assert.Equal(t, 20, p.Offset())

	assert.Equal(t, 0, Page[int]{}.TotalPages())
	assert.Equal(t, 1, Page[int]{PageSize: 5, Total: 5}.TotalPages())
}
