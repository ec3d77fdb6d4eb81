// AngelaMos | 2026
// migrate_test.go

package migrate

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedOrder(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.NotEmpty(t, strings.TrimSpace(m.SQL), m.Version)
		if i > 0 {
			assert.Less(t, migrations[i-1].Version, m.Version)
		}
	}
}

func TestLoad_EmbeddedSchemaHasLedgerTables(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	for _, table := range []string{
		"users", "refresh_tokens", "subscriptions", "plan_features",
		"customers", "transactions", "custom_fields",
	} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestLoad_SkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("SELECT 2;")},
		"migrations/0001_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":  {Data: []byte("notes")},
		"migrations/old/x.sql":  {Data: []byte("SELECT 0;")},
	}

	migrations, err := load(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_a", migrations[0].Version)
	assert.Equal(t, "0002_b", migrations[1].Version)
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: "0001"}, {Version: "0002"}, {Version: "0003"}}

	pending := Pending(all, []string{"0001", "0003"})
	require.Len(t, pending, 1)
	assert.Equal(t, "0002", pending[0].Version)

	assert.Len(t, Pending(all, nil), 3)
	assert.Empty(t, Pending(all, []string{"0001", "0002", "0003"}))
}

func TestLoad_TerminalStatusConstraintIsLast(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	last := migrations[len(migrations)-1]
	assert.Contains(t, last.SQL, "incomplete_expired")
	assert.Contains(t, last.SQL, "terminal_is_free")
}
