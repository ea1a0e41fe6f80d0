package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

// Engine implements core.Connector for SQL backends. Behavior that
// differs between engines is delegated to the Dialect; everything else
// (connection lifecycle, execution, result normalization, validation
// plumbing) lives here once.
type Engine struct {
	*base.Connector
	dialect Dialect
}

// NewEngine creates a SQL connector from a dialect and its capability
// descriptor.
func NewEngine(d Dialect, caps *core.Capabilities) *Engine {
	return &Engine{
		Connector: base.NewConnector(d.Name(), caps),
		dialect:   d,
	}
}

// Dialect exposes the engine's dialect, mainly for tests.
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// TestConnection validates required fields, opens a short-lived handle
// and performs one lightweight round trip. It never returns an error
// value; failures surface in the result.
func (e *Engine) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	normalized := cfg.Clone()
	e.dialect.NormalizeConfig(normalized)

	if err := normalized.RequireFields(e.dialect.RequiredFields()...); err != nil {
		return e.FailTest(errors.Wrap(err, errors.ErrorTypeValidation, "invalid configuration"), 0)
	}

	connStart := time.Now()
	db, err := e.open(ctx, normalized)
	if err != nil {
		return e.FailTest(err, base.ElapsedMs(connStart))
	}
	defer e.CloseLogged("test connection", db.Close)
	connectionMs := base.ElapsedMs(connStart)

	queryStart := time.Now()
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return e.FailTest(errors.Wrap(err, errors.ErrorTypeConnection, "round-trip query failed"), connectionMs)
	}
	queryMs := base.ElapsedMs(queryStart)

	metadata := map[string]any{
		"driver":   e.dialect.DriverName(),
		"database": normalized.Database,
	}
	if version, err := e.dialect.ServerVersion(ctx, db); err == nil {
		metadata["server_version"] = version
	}

	return e.PassTest(connectionMs, queryMs, metadata)
}

// Connect opens a backend handle. The returned Connection carries the
// normalized backend defaults in AdditionalConfig.
func (e *Engine) Connect(ctx context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	normalized := cfg.Clone()
	e.dialect.NormalizeConfig(normalized)

	if err := normalized.RequireFields(e.dialect.RequiredFields()...); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid connection configuration")
	}

	db, err := e.open(ctx, normalized)
	if err != nil {
		return nil, err
	}

	conn := e.NewConnection(normalized)
	conn.Handle = db

	e.GetLogger().Info("connected",
		zap.String("database", conn.Database),
		zap.String("host", conn.Host))

	return conn, nil
}

// Disconnect closes the handle. Calling it twice is harmless.
func (e *Engine) Disconnect(_ context.Context, conn *core.Connection) error {
	if err := e.CheckConnection(conn); err != nil {
		return err
	}
	if conn.Handle == nil {
		return nil
	}

	db, err := e.db(conn)
	if err != nil {
		return err
	}
	e.CloseLogged("database handle", db.Close)
	e.MarkDisconnected(conn)
	return nil
}

// GetSchema runs the shared discovery pipeline.
func (e *Engine) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := e.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, e, conn)
}

// GetTableList returns base table names in backend order.
func (e *Engine) GetTableList(ctx context.Context, conn *core.Connection) ([]string, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}
	tables, err := e.dialect.ListTables(ctx, db, e.target(conn))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to list tables")
	}
	return tables, nil
}

// GetColumnList returns column names for a table in backend order.
func (e *Engine) GetColumnList(ctx context.Context, conn *core.Connection, table string) ([]string, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}
	if !ValidIdentifier(table) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "invalid table name %q", table)
	}
	columns, err := e.dialect.ListColumns(ctx, db, e.target(conn), table)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema,
			fmt.Sprintf("failed to list columns of %s", table))
	}
	return columns, nil
}

// GetColumnInfo describes one column and attaches a bounded sample
// preview. Sample collection is best-effort; its failure never fails
// the description.
func (e *Engine) GetColumnInfo(ctx context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}
	if !ValidIdentifier(table) || !ValidIdentifier(column) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "invalid identifier %s.%s", table, column)
	}

	col, err := e.dialect.DescribeColumn(ctx, db, e.target(conn), table, column)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema,
			fmt.Sprintf("failed to describe column %s.%s", table, column))
	}

	if samples, err := e.sampleValues(ctx, db, table, column); err != nil {
		e.GetLogger().Debug("sample value collection failed",
			zap.String("table", table), zap.String("column", column), zap.Error(err))
	} else {
		col.SampleValues = samples
	}

	return col, nil
}

// GetTableInfo assembles one table: columns, keys, indexes, row count.
func (e *Engine) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	columnNames, err := e.GetColumnList(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	info := &core.Table{
		Name:     table,
		Kind:     core.TableKindTable,
		Columns:  make([]core.Column, 0, len(columnNames)),
		RowCount: -1,
	}

	for _, name := range columnNames {
		col, err := e.GetColumnInfo(ctx, conn, table, name)
		if err != nil {
			return nil, err
		}
		info.Columns = append(info.Columns, *col)
	}

	if err := e.EnrichTable(ctx, conn, info); err != nil {
		return nil, err
	}

	if count, err := e.GetTableRowCount(ctx, conn, table); err == nil {
		info.RowCount = count
	}

	return info, nil
}

// EnrichTable attaches primary keys, foreign keys and indexes, and
// flags the affected columns. Implements discovery.TableEnricher.
func (e *Engine) EnrichTable(ctx context.Context, conn *core.Connection, table *core.Table) error {
	db, err := e.db(conn)
	if err != nil {
		return err
	}

	keys, err := e.dialect.TableKeys(ctx, db, e.target(conn), table.Name)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema,
			fmt.Sprintf("failed to read keys of %s", table.Name))
	}

	table.PrimaryKeys = keys.PrimaryKeys
	table.ForeignKeys = keys.ForeignKeys
	table.Indexes = keys.Indexes

	indexed := make(map[string]bool)
	unique := make(map[string]bool)
	for _, idx := range keys.Indexes {
		for _, col := range idx.Columns {
			indexed[col] = true
			if idx.Unique && len(idx.Columns) == 1 {
				unique[col] = true
			}
		}
	}
	primary := make(map[string]bool, len(keys.PrimaryKeys))
	for _, pk := range keys.PrimaryKeys {
		primary[pk] = true
	}

	for i := range table.Columns {
		name := table.Columns[i].Name
		table.Columns[i].PrimaryKey = primary[name]
		table.Columns[i].Indexed = indexed[name] || primary[name]
		table.Columns[i].Unique = unique[name] || primary[name]
	}

	return nil
}

// GetTableRowCount counts rows in a table.
func (e *Engine) GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error) {
	db, err := e.db(conn)
	if err != nil {
		return 0, err
	}
	if !ValidIdentifier(table) {
		return 0, errors.Newf(errors.ErrorTypeValidation, "invalid table name %q", table)
	}

	var count int64
	query := "SELECT COUNT(*) FROM " + e.dialect.QuoteIdentifier(table)
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSchema,
			fmt.Sprintf("failed to count rows of %s", table))
	}
	return count, nil
}

// GetDatabaseInfo reports version and object counts.
func (e *Engine) GetDatabaseInfo(ctx context.Context, conn *core.Connection) (map[string]any, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}

	info := map[string]any{
		"type":     e.Type(),
		"database": conn.Database,
	}

	if version, err := e.dialect.ServerVersion(ctx, db); err == nil {
		info["version"] = version
	}
	if tables, err := e.dialect.ListTables(ctx, db, e.target(conn)); err == nil {
		info["table_count"] = len(tables)
	}

	return info, nil
}

// GetViewList implements discovery.ObjectLister.
func (e *Engine) GetViewList(ctx context.Context, conn *core.Connection) ([]string, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}
	return e.dialect.ListViews(ctx, db, e.target(conn))
}

// GetFunctionList implements discovery.ObjectLister.
func (e *Engine) GetFunctionList(ctx context.Context, conn *core.Connection) ([]string, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}
	return e.dialect.ListFunctions(ctx, db, e.target(conn))
}

// GetProcedureList implements discovery.ObjectLister.
func (e *Engine) GetProcedureList(ctx context.Context, conn *core.Connection) ([]string, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}
	return e.dialect.ListProcedures(ctx, db, e.target(conn))
}

// ExecuteQuery runs validated SQL and normalizes the rows.
func (e *Engine) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, params ...any) (*core.QueryResult, error) {
	db, err := e.db(conn)
	if err != nil {
		return nil, err
	}

	if v := e.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	started := time.Now()
	result, err := e.runQuery(ctx, db, query, params...)
	e.ObserveQuery(started, result, err)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery,
			fmt.Sprintf("query failed: %s", query))
	}
	return result, nil
}

// ExecuteQueryWithLimit appends a dialect-correct limit clause, then
// clamps the materialized rows so the cap holds even when the backend
// ignored the clause.
func (e *Engine) ExecuteQueryWithLimit(ctx context.Context, conn *core.Connection, query string, limit int, params ...any) (*core.QueryResult, error) {
	if v := e.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	limited := EnsureLimit(query, limit, e.dialect)
	result, err := e.ExecuteQuery(ctx, conn, limited, params...)
	if err != nil {
		return nil, err
	}
	result.Truncate(limit)
	return result, nil
}

// GetSampleData fetches up to limit rows from one table.
func (e *Engine) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if !ValidIdentifier(table) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "invalid table name %q", table)
	}
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT * FROM " + e.dialect.QuoteIdentifier(table)
	return e.ExecuteQueryWithLimit(ctx, conn, query, limit)
}

// ValidateQuery applies the shared SQL rules with this dialect's
// keyword lists.
func (e *Engine) ValidateQuery(query string) *core.ValidationResult {
	if max := e.Capabilities().MaxQuerySize; max > 0 && int64(len(query)) > max {
		return core.Invalid(fmt.Sprintf("query exceeds maximum size of %d bytes", max))
	}
	return ValidateSQL(query, e.dialect)
}

// GetQueryPlan executes the dialect's EXPLAIN form and flattens the
// plan rows into text.
func (e *Engine) GetQueryPlan(ctx context.Context, conn *core.Connection, query string) (string, error) {
	db, err := e.db(conn)
	if err != nil {
		return "", err
	}
	if v := e.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	rows, err := db.QueryContext(ctx, e.dialect.ExplainPrefix()+query)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeQuery,
			fmt.Sprintf("explain failed: %s", query))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeQuery, "failed to read plan columns")
	}

	var plan strings.Builder
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan plan row")
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, fmt.Sprintf("%v", normalizeValue(v)))
		}
		plan.WriteString(strings.Join(parts, " | "))
		plan.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeQuery, "failed to read plan rows")
	}

	return strings.TrimRight(plan.String(), "\n"), nil
}

// Internal helpers

func (e *Engine) open(ctx context.Context, cfg *config.ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open(e.dialect.DriverName(), e.dialect.BuildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open database")
	}

	if max := e.Capabilities().MaxConnections; max > 0 {
		db.SetMaxOpenConns(max)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		e.CloseLogged("failed handle", db.Close)
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("cannot reach %s", hostLabel(cfg)))
	}

	return db, nil
}

func (e *Engine) db(conn *core.Connection) (*sql.DB, error) {
	if err := e.CheckConnection(conn); err != nil {
		return nil, err
	}
	db, ok := conn.Handle.(*sql.DB)
	if !ok || db == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "connection is not open")
	}
	return db, nil
}

func (e *Engine) target(conn *core.Connection) IntrospectTarget {
	return IntrospectTarget{
		Database: conn.Database,
		Schema:   conn.Setting("schema", ""),
	}
}

func (e *Engine) runQuery(ctx context.Context, db *sql.DB, query string, params ...any) (*core.QueryResult, error) {
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &core.QueryResult{
		Columns: cols,
		Query:   query,
		Metadata: map[string]any{
			"dialect": e.dialect.Name(),
		},
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(cols))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// sampleValues collects up to MaxSampleValues distinct values for a
// column preview.
func (e *Engine) sampleValues(ctx context.Context, db *sql.DB, table, column string) ([]any, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s LIMIT %d",
		e.dialect.QuoteIdentifier(column),
		e.dialect.QuoteIdentifier(table),
		core.MaxSampleValues)
	if e.dialect.RequiresOrderByWithLimit() {
		query = fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY 1 LIMIT %d",
			e.dialect.QuoteIdentifier(column),
			e.dialect.QuoteIdentifier(table),
			core.MaxSampleValues)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		samples = append(samples, normalizeValue(v))
	}
	return samples, rows.Err()
}

// normalizeValue converts driver-specific values into the uniform result
// vocabulary: byte slices become strings, everything else passes through.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

func hostLabel(cfg *config.ConnectionConfig) string {
	if cfg.Host == "" {
		return cfg.FilePath
	}
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
