package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryResultTruncate(t *testing.T) {
	makeResult := func(rows int) *QueryResult {
		r := &QueryResult{Columns: []string{"id"}}
		for i := 0; i < rows; i++ {
			r.Rows = append(r.Rows, []any{i})
		}
		r.RowCount = len(r.Rows)
		return r
	}

	// The cap must hold for any limit, including zero and limits above
	// the row count.
	for limit := 0; limit <= 8; limit++ {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			r := makeResult(5)
			r.Truncate(limit)
			assert.LessOrEqual(t, len(r.Rows), limit)
			assert.Equal(t, len(r.Rows), r.RowCount)
		})
	}

	t.Run("negative limit clamps to zero", func(t *testing.T) {
		r := makeResult(3)
		r.Truncate(-1)
		assert.Empty(t, r.Rows)
		assert.Zero(t, r.RowCount)
	})
}

func TestSchemaFinalize(t *testing.T) {
	schema := &Schema{
		Tables: []Table{
			{Name: "users", Columns: []Column{{Name: "id"}, {Name: "email"}}},
			{Name: "orders", Columns: []Column{{Name: "id"}}},
		},
		Views: []Table{
			{Name: "active_users", Columns: []Column{{Name: "id"}}},
		},
	}

	schema.Finalize()

	assert.Equal(t, 2, schema.Metadata.TotalTables)
	assert.Equal(t, 3, schema.Metadata.TotalColumns, "views must not count toward column totals")
	assert.False(t, schema.Metadata.UpdatedAt.IsZero())
}

func TestCapabilitiesSupportsOperation(t *testing.T) {
	caps := &Capabilities{SupportedOperations: []string{"SELECT", "READ_CSV"}}

	assert.True(t, caps.SupportsOperation("SELECT"))
	assert.True(t, caps.SupportsOperation("select"))
	assert.True(t, caps.SupportsOperation("read_csv"))
	assert.False(t, caps.SupportsOperation("DROP"))
}

func TestConnectionSetting(t *testing.T) {
	conn := &Connection{AdditionalConfig: map[string]string{"ssl_mode": "require", "empty": ""}}

	assert.Equal(t, "require", conn.Setting("ssl_mode", "prefer"))
	assert.Equal(t, "prefer", conn.Setting("missing", "prefer"))
	assert.Equal(t, "prefer", conn.Setting("empty", "prefer"), "empty values fall back")
}

func TestValidationResultConstructors(t *testing.T) {
	require.True(t, Valid().Valid)

	invalid := Invalid("bad query")
	require.False(t, invalid.Valid)
	assert.Equal(t, "bad query", invalid.Error)
}
