package core

import (
	"context"

	"github.com/bifrostdata/bifrost/pkg/config"
)

// Connector is the contract every backend implements. One implementation
// exists per backend type; callers obtain it from the registry by its
// type discriminant and never branch on the type themselves.
//
// Semantics shared by all implementations:
//
//   - TestConnection never returns an error value; failures surface as
//     Success=false with a user-renderable Error and metadata.error_type.
//   - Connect wraps failures with the original cause preserved and
//     normalizes backend-specific defaults into AdditionalConfig.
//   - Disconnect is idempotent; cleanup failures are logged, not hidden.
//   - ValidateQuery is a pure function of the query string.
//   - FormatQuery is best-effort and returns its input unchanged when
//     formatting fails; it never returns an error.
type Connector interface {
	// Type returns the registry discriminant (e.g. "postgres", "csv").
	Type() string

	// Capabilities returns the static capability descriptor.
	Capabilities() *Capabilities

	// TestConnection validates required config fields and performs one
	// lightweight round trip to confirm reachability.
	TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *TestResult

	// Connect opens a backend handle for subsequent calls.
	Connect(ctx context.Context, cfg *config.ConnectionConfig) (*Connection, error)

	// Disconnect releases the handle.
	Disconnect(ctx context.Context, conn *Connection) error

	// GetSchema runs the discovery pipeline and returns a best-effort
	// normalized schema; per-entity failures land in Schema.Warnings.
	GetSchema(ctx context.Context, conn *Connection) (*Schema, error)

	// GetTableInfo describes one table, columns included.
	GetTableInfo(ctx context.Context, conn *Connection, table string) (*Table, error)

	// GetColumnInfo describes one column.
	GetColumnInfo(ctx context.Context, conn *Connection, table, column string) (*Column, error)

	// GetTableList returns table names in backend order.
	GetTableList(ctx context.Context, conn *Connection) ([]string, error)

	// GetColumnList returns column names for a table in backend order.
	GetColumnList(ctx context.Context, conn *Connection, table string) ([]string, error)

	// GetTableRowCount returns the row count for a table.
	GetTableRowCount(ctx context.Context, conn *Connection, table string) (int64, error)

	// GetDatabaseInfo returns backend metadata (version, size, counts).
	GetDatabaseInfo(ctx context.Context, conn *Connection) (map[string]any, error)

	// ExecuteQuery runs a query through the backend's native mechanism.
	ExecuteQuery(ctx context.Context, conn *Connection, query string, params ...any) (*QueryResult, error)

	// ExecuteQueryWithLimit enforces a row cap using the backend-appropriate
	// mechanism: SQL connectors append a dialect-correct LIMIT clause,
	// non-SQL connectors materialize then truncate. The returned result
	// never holds more than limit rows.
	ExecuteQueryWithLimit(ctx context.Context, conn *Connection, query string, limit int, params ...any) (*QueryResult, error)

	// GetSampleData fetches up to limit rows from a table using the
	// connector's own query grammar.
	GetSampleData(ctx context.Context, conn *Connection, table string, limit int) (*QueryResult, error)

	// ValidateQuery accepts or rejects a query string against the
	// connector's grammar rules.
	ValidateQuery(query string) *ValidationResult

	// FormatQuery normalizes the query's surface form.
	FormatQuery(query string) string

	// GetQueryPlan returns a dialect EXPLAIN for SQL backends, or a
	// synthesized textual description for backends without real plans.
	GetQueryPlan(ctx context.Context, conn *Connection, query string) (string, error)
}
