// Package snowflake implements the Snowflake connector as a sqlbase
// dialect over gosnowflake.
package snowflake

import (
	"context"
	"database/sql"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlbase"
)

// New constructs the Snowflake connector.
func New() *sqlbase.Engine {
	return sqlbase.NewEngine(&Dialect{}, Capabilities())
}

// Capabilities returns the static Snowflake capability descriptor.
// Snowflake has no conventional indexes, and key constraints are not
// enforced, so neither is surfaced.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		SupportsSQL:              true,
		SupportsTransactions:     true,
		SupportsStoredProcedures: true,
		SupportsFunctions:        true,
		SupportsViews:            true,
		MaxQuerySize:             1 << 20,
		MaxConnections:           5,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeDecimal, core.ColumnTypeBoolean, core.ColumnTypeTimestamp,
			core.ColumnTypeDate, core.ColumnTypeTime, core.ColumnTypeJSON,
			core.ColumnTypeBinary,
		},
		SupportedOperations: []string{"SELECT", "WITH", "EXPLAIN", "SHOW"},
	}
}

// Dialect implements sqlbase.Dialect for Snowflake.
type Dialect struct{}

func (d *Dialect) Name() string       { return "snowflake" }
func (d *Dialect) DriverName() string { return "snowflake" }

// RequiredFields: host is not required because Snowflake addresses
// warehouses by account identifier, carried in Additional.
func (d *Dialect) RequiredFields() []string {
	return []string{"account", "database", "username"}
}

func (d *Dialect) NormalizeConfig(cfg *config.ConnectionConfig) {
	if cfg.Get("schema", "") == "" {
		cfg.Set("schema", "PUBLIC")
	}
}

func (d *Dialect) BuildDSN(cfg *config.ConnectionConfig) string {
	sc := sf.Config{
		Account:   cfg.Get("account", ""),
		User:      cfg.Username,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Get("schema", "PUBLIC"),
		Warehouse: cfg.Get("warehouse", ""),
		Role:      cfg.Get("role", ""),
	}
	if cfg.ConnectTimeout > 0 {
		sc.LoginTimeout = cfg.ConnectTimeout
	}
	dsn, err := sf.DSN(&sc)
	if err != nil {
		// An unbuildable DSN surfaces as a connection failure at open time.
		return ""
	}
	return dsn
}

func (d *Dialect) QuoteIdentifier(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (d *Dialect) RequiresOrderByWithLimit() bool { return false }

func (d *Dialect) AllowedKeywords() []string {
	return []string{"select", "with", "explain", "show"}
}

func (d *Dialect) ExplainPrefix() string { return "EXPLAIN " }

func (d *Dialect) MapType(nativeType string) core.ColumnType {
	switch strings.ToUpper(nativeType) {
	case "NUMBER", "DECIMAL", "NUMERIC":
		return core.ColumnTypeDecimal
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "BYTEINT":
		return core.ColumnTypeInteger
	case "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "REAL":
		return core.ColumnTypeFloat
	case "BOOLEAN":
		return core.ColumnTypeBoolean
	case "TIMESTAMP_LTZ", "TIMESTAMP_NTZ", "TIMESTAMP_TZ", "DATETIME", "TIMESTAMP":
		return core.ColumnTypeTimestamp
	case "DATE":
		return core.ColumnTypeDate
	case "TIME":
		return core.ColumnTypeTime
	case "VARIANT", "OBJECT", "ARRAY":
		return core.ColumnTypeJSON
	case "BINARY", "VARBINARY":
		return core.ColumnTypeBinary
	default:
		return core.ColumnTypeString
	}
}

// Snowflake folds unquoted identifiers to upper case; introspection
// matches on the upper-cased schema name.

func (d *Dialect) ListTables(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaOf(t))
}

func (d *Dialect) ListViews(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT table_name FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name`, schemaOf(t))
}

func (d *Dialect) ListFunctions(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT function_name FROM information_schema.functions
		WHERE function_schema = ?
		ORDER BY function_name`, schemaOf(t))
}

func (d *Dialect) ListProcedures(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT procedure_name FROM information_schema.procedures
		WHERE procedure_schema = ?
		ORDER BY procedure_name`, schemaOf(t))
}

func (d *Dialect) ListColumns(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schemaOf(t), table)
}

func (d *Dialect) DescribeColumn(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table, column string) (*core.Column, error) {
	row := db.QueryRowContext(ctx, `
		SELECT data_type, is_nullable,
		       COALESCE(character_maximum_length, 0),
		       COALESCE(numeric_precision, 0),
		       COALESCE(numeric_scale, 0)
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ? AND column_name = ?`,
		schemaOf(t), table, column)

	var (
		nativeType string
		nullable   string
		maxLength  int
		precision  int
		scale      int
	)
	if err := row.Scan(&nativeType, &nullable, &maxLength, &precision, &scale); err != nil {
		return nil, err
	}

	return &core.Column{
		Name:       column,
		Type:       d.MapType(nativeType),
		NativeType: nativeType,
		Nullable:   strings.EqualFold(nullable, "YES"),
		MaxLength:  maxLength,
		Precision:  precision,
		Scale:      scale,
	}, nil
}

// TableKeys returns nothing: Snowflake key constraints are declarative
// only and there are no indexes to report.
func (d *Dialect) TableKeys(context.Context, *sql.DB, sqlbase.IntrospectTarget, string) (*sqlbase.TableKeys, error) {
	return &sqlbase.TableKeys{}, nil
}

func (d *Dialect) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT CURRENT_VERSION()").Scan(&version)
	return version, err
}

func schemaOf(t sqlbase.IntrospectTarget) string {
	if t.Schema == "" {
		return "PUBLIC"
	}
	return strings.ToUpper(t.Schema)
}
