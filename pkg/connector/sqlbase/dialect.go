// Package sqlbase implements the connector contract once for all SQL
// backends on top of database/sql. Backend packages supply a Dialect
// that captures what actually differs between engines: DSN construction,
// identifier quoting, limit syntax, keyword allow-lists, type mapping
// and introspection queries.
package sqlbase

import (
	"context"
	"database/sql"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
)

// Dialect captures the per-engine behavior the shared SQL engine needs.
type Dialect interface {
	// Name is the registry discriminant, e.g. "postgres".
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// RequiredFields lists the config fields TestConnection and Connect
	// demand (SQL servers: host+database+username; SQLite: file path).
	RequiredFields() []string

	// NormalizeConfig applies backend defaults to a cloned config:
	// default port, SSL auto-enable for managed hosts, encodings.
	NormalizeConfig(cfg *config.ConnectionConfig)

	// BuildDSN renders the driver connection string from a normalized
	// config.
	BuildDSN(cfg *config.ConnectionConfig) string

	// QuoteIdentifier quotes a validated identifier for interpolation
	// into introspection and sampling queries.
	QuoteIdentifier(ident string) string

	// RequiresOrderByWithLimit reports whether the engine rejects LIMIT
	// without an ORDER BY (Redshift).
	RequiresOrderByWithLimit() bool

	// AllowedKeywords is the leading-keyword allow-list for validation.
	AllowedKeywords() []string

	// ExplainPrefix is prepended to a query to obtain its plan.
	ExplainPrefix() string

	// MapType canonicalizes a native type name.
	MapType(nativeType string) core.ColumnType

	// Introspection queries. All list queries return names in the order
	// the backend reports them.
	ListTables(ctx context.Context, db *sql.DB, cfg IntrospectTarget) ([]string, error)
	ListViews(ctx context.Context, db *sql.DB, cfg IntrospectTarget) ([]string, error)
	ListFunctions(ctx context.Context, db *sql.DB, cfg IntrospectTarget) ([]string, error)
	ListProcedures(ctx context.Context, db *sql.DB, cfg IntrospectTarget) ([]string, error)
	ListColumns(ctx context.Context, db *sql.DB, cfg IntrospectTarget, table string) ([]string, error)
	DescribeColumn(ctx context.Context, db *sql.DB, cfg IntrospectTarget, table, column string) (*core.Column, error)
	TableKeys(ctx context.Context, db *sql.DB, cfg IntrospectTarget, table string) (*TableKeys, error)
	ServerVersion(ctx context.Context, db *sql.DB) (string, error)
}

// IntrospectTarget narrows introspection to one database/schema.
type IntrospectTarget struct {
	Database string
	Schema   string
}

// TableKeys bundles the key and index metadata for one table.
type TableKeys struct {
	PrimaryKeys []string
	ForeignKeys []core.ForeignKey
	Indexes     []core.Index
}

// QueryStrings runs a single-column query and collects the values in
// backend order. Dialects share it for all their list queries.
func QueryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
