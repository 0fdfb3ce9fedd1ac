package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantStatementMatchesSchema(t *testing.T) {
	// The entity tables key on role_id / permission_id; the grant insert
	// resolves both by name and must select those columns.
	assert.Contains(t, insertGrantSQL, "SELECT r.role_id, p.permission_id")

	ddl, err := os.ReadFile("../../migrations/0001_rbac.sql")
	require.NoError(t, err)
	schema := string(ddl)
	assert.Contains(t, schema, "role_id     UUID PRIMARY KEY")
	assert.Contains(t, schema, "permission_id UUID PRIMARY KEY")
	assert.False(t, strings.Contains(schema, "\n    id "), "seed statements assume no bare id column")
}

func TestSeedCatalogueConsistent(t *testing.T) {
	for role, grants := range roles {
		for _, grant := range grants {
			_, ok := permissions[grant]
			assert.True(t, ok, "role %s grants undefined permission %s", role, grant)
		}
	}
}
