package navigation

import (
	"testing"

	"github.com/kitchenops/api/internal/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversEveryRole(t *testing.T) {
	menu, err := Default()
	require.NoError(t, err)

	for _, role := range enum.Roles {
		assert.NotEmpty(t, menu.ForRole(role), role)
	}
}

func TestDefault_RoleScoping(t *testing.T) {
	menu, err := Default()
	require.NoError(t, err)

	paths := func(role string) []string {
		var out []string
		for _, e := range menu.ForRole(role) {
			out = append(out, e.Path)
		}
		return out
	}

	assert.Contains(t, paths(enum.RoleAdmin), "/users")
	assert.NotContains(t, paths(enum.RoleKitchenStaff), "/users")
	assert.Equal(t, "/dashboard/delivery", paths(enum.RoleDeliveryStaff)[0])
	assert.Contains(t, paths(enum.RoleInventoryManager), "/inventory/alerts")
}

func TestForRole_Unknown(t *testing.T) {
	menu, err := Default()
	require.NoError(t, err)

	got := menu.ForRole("customer")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestForRole_ReturnsCopy(t *testing.T) {
	menu, err := Parse([]byte("admin:\n  - label: Home\n    path: /\n"))
	require.NoError(t, err)

	got := menu.ForRole("admin")
	got[0].Label = "changed"
	assert.Equal(t, "Home", menu.ForRole("admin")[0].Label)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "admin: [\n"},
		{"unknown role", "chef:\n  - label: Home\n    path: /\n"},
		{"missing path", "admin:\n  - label: Home\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
