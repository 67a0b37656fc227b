package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-labs/austral/internal/shared"
)

func TestPermissionCatalogHasNoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range PermissionCatalog() {
		assert.NotEmpty(t, p.code)
		assert.NotEmpty(t, p.description)
		assert.False(t, seen[p.code], "duplicate code %s", p.code)
		seen[p.code] = true
	}
}

func TestPermissionCatalogCoversDeclaredScopes(t *testing.T) {
	catalog := make(map[string]bool)
	for _, p := range PermissionCatalog() {
		catalog[p.code] = true
	}

	declared := make([]string, 0, 16)
	declared = append(declared, shared.CoreScopes()...)
	declared = append(declared, shared.ConciliacionScopes()...)
	declared = append(declared, shared.AuditScopes()...)
	declared = append(declared, shared.BrokerageScopes()...)

	for _, code := range declared {
		assert.True(t, catalog[code], "declared scope %s missing from seed catalog", code)
	}
}

func TestRoleCatalogGrantsAreKnownCodes(t *testing.T) {
	catalog := make(map[string]bool)
	for _, p := range PermissionCatalog() {
		catalog[p.code] = true
	}

	names := make([]string, 0, 4)
	for _, role := range RoleCatalog() {
		names = append(names, role.name)
		require.NotEmpty(t, role.permissions, "role %s grants nothing", role.name)
		for _, code := range role.permissions {
			assert.True(t, catalog[code], "role %s grants unknown code %s", role.name, code)
		}
	}
	assert.ElementsMatch(t, []string{"Solo Lectura", "Analista", "Supervisor", "Administrador"}, names)
}

func TestAdministradorHoldsEveryPermission(t *testing.T) {
	var admin roleSeed
	for _, role := range RoleCatalog() {
		if role.name == "Administrador" {
			admin = role
		}
	}
	require.NotEmpty(t, admin.name)
	assert.Len(t, admin.permissions, len(PermissionCatalog()))
}
