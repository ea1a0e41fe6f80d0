package sqlbase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/postgres"
	"github.com/bifrostdata/bifrost/pkg/connector/redshift"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlbase"
)

func TestValidateSQL(t *testing.T) {
	pg := &postgres.Dialect{}

	tests := []struct {
		name  string
		query string
		valid bool
	}{
		{name: "plain select", query: "SELECT id FROM users", valid: true},
		{name: "cte", query: "WITH t AS (SELECT 1) SELECT * FROM t", valid: true},
		{name: "explain", query: "EXPLAIN SELECT 1", valid: true},
		{name: "empty", query: "", valid: false},
		{name: "whitespace only", query: "   \n\t", valid: false},
		{name: "insert rejected", query: "INSERT INTO users VALUES (1)", valid: false},
		{name: "drop database", query: "DROP DATABASE prod", valid: false},
		{name: "drop database mixed case", query: "select 1; Drop Database prod", valid: false},
		{name: "truncate anywhere", query: "SELECT 1 /* truncate */", valid: false},
		{name: "delete from", query: "SELECT * FROM t WHERE q = 'x'; DELETE FROM t", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sqlbase.ValidateSQL(tt.query, pg)
			require.NotNil(t, result)
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.NotEmpty(t, result.Error)
			}
		})
	}
}

func TestValidateSQLRedshiftLimitRule(t *testing.T) {
	rs := &redshift.Dialect{}

	t.Run("limit without order by rejected", func(t *testing.T) {
		result := sqlbase.ValidateSQL("SELECT * FROM events LIMIT 10", rs)
		require.False(t, result.Valid)
		assert.Contains(t, result.Error, "ORDER BY")
	})

	t.Run("limit with order by accepted", func(t *testing.T) {
		result := sqlbase.ValidateSQL("SELECT * FROM events ORDER BY ts LIMIT 10", rs)
		assert.True(t, result.Valid)
	})

	t.Run("limit-like column name does not trip the rule", func(t *testing.T) {
		result := sqlbase.ValidateSQL("SELECT rate_limit FROM plans", rs)
		assert.True(t, result.Valid)
	})

	t.Run("postgres has no limit rule", func(t *testing.T) {
		result := sqlbase.ValidateSQL("SELECT * FROM events LIMIT 10", &postgres.Dialect{})
		assert.True(t, result.Valid)
	})
}

func TestEnsureLimit(t *testing.T) {
	pg := &postgres.Dialect{}
	rs := &redshift.Dialect{}

	t.Run("appends limit", func(t *testing.T) {
		assert.Equal(t, "SELECT * FROM t LIMIT 50", sqlbase.EnsureLimit("SELECT * FROM t", 50, pg))
	})

	t.Run("strips trailing semicolon", func(t *testing.T) {
		assert.Equal(t, "SELECT * FROM t LIMIT 5", sqlbase.EnsureLimit("SELECT * FROM t;", 5, pg))
	})

	t.Run("existing limit untouched", func(t *testing.T) {
		assert.Equal(t, "SELECT * FROM t LIMIT 3", sqlbase.EnsureLimit("SELECT * FROM t LIMIT 3", 50, pg))
	})

	t.Run("limit-like column still gets a cap", func(t *testing.T) {
		assert.Equal(t, "SELECT rate_limit FROM plans LIMIT 10",
			sqlbase.EnsureLimit("SELECT rate_limit FROM plans", 10, pg))
	})

	t.Run("adds deterministic order by when required", func(t *testing.T) {
		assert.Equal(t, "SELECT * FROM t ORDER BY 1 LIMIT 10", sqlbase.EnsureLimit("SELECT * FROM t", 10, rs))
	})

	t.Run("keeps existing order by when required", func(t *testing.T) {
		assert.Equal(t, "SELECT * FROM t ORDER BY ts LIMIT 10",
			sqlbase.EnsureLimit("SELECT * FROM t ORDER BY ts", 10, rs))
	})

	t.Run("negative limit clamps to zero", func(t *testing.T) {
		assert.Equal(t, "SELECT 1 LIMIT 0", sqlbase.EnsureLimit("SELECT 1", -5, pg))
	})
}

func TestValidIdentifier(t *testing.T) {
	valid := []string{"users", "Users_2", "_private", "public.users", "sales$q1"}
	for _, name := range valid {
		assert.True(t, sqlbase.ValidIdentifier(name), name)
	}

	invalid := []string{"", "2users", "users; drop", `users"`, "a.b.c", "user name", "users--"}
	for _, name := range invalid {
		assert.False(t, sqlbase.ValidIdentifier(name), name)
	}
}
