// Package mysql implements the MySQL connector as a sqlbase dialect
// over go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlbase"
)

// New constructs the MySQL connector.
func New() *sqlbase.Engine {
	return sqlbase.NewEngine(&Dialect{}, Capabilities())
}

// Capabilities returns the static MySQL capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		SupportsSQL:              true,
		SupportsTransactions:     true,
		SupportsStoredProcedures: true,
		SupportsFunctions:        true,
		SupportsViews:            true,
		SupportsIndexes:          true,
		SupportsForeignKeys:      true,
		MaxQuerySize:             1 << 20,
		MaxConnections:           5,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeDecimal, core.ColumnTypeBoolean, core.ColumnTypeTimestamp,
			core.ColumnTypeDate, core.ColumnTypeTime, core.ColumnTypeJSON,
			core.ColumnTypeBinary,
		},
		SupportedOperations: []string{"SELECT", "WITH", "EXPLAIN", "SHOW", "DESCRIBE"},
	}
}

// Dialect implements sqlbase.Dialect for MySQL.
type Dialect struct{}

func (d *Dialect) Name() string       { return "mysql" }
func (d *Dialect) DriverName() string { return "mysql" }

func (d *Dialect) RequiredFields() []string {
	return []string{"host", "database", "username"}
}

func (d *Dialect) NormalizeConfig(cfg *config.ConnectionConfig) {
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	if cfg.Get("charset", "") == "" {
		cfg.Set("charset", "utf8mb4")
	}
}

func (d *Dialect) BuildDSN(cfg *config.ConnectionConfig) string {
	mc := gomysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = addr(cfg)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": cfg.Get("charset", "utf8mb4")}
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	if cfg.QueryTimeout > 0 {
		mc.ReadTimeout = cfg.QueryTimeout
	}
	return mc.FormatDSN()
}

func addr(cfg *config.ConnectionConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

func (d *Dialect) QuoteIdentifier(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

func (d *Dialect) RequiresOrderByWithLimit() bool { return false }

func (d *Dialect) AllowedKeywords() []string {
	return []string{"select", "with", "explain", "show", "describe", "desc"}
}

func (d *Dialect) ExplainPrefix() string { return "EXPLAIN " }

func (d *Dialect) MapType(nativeType string) core.ColumnType {
	switch strings.ToLower(nativeType) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint", "year":
		return core.ColumnTypeInteger
	case "float", "double", "real":
		return core.ColumnTypeFloat
	case "decimal", "numeric":
		return core.ColumnTypeDecimal
	case "bit", "bool", "boolean":
		return core.ColumnTypeBoolean
	case "datetime", "timestamp":
		return core.ColumnTypeTimestamp
	case "date":
		return core.ColumnTypeDate
	case "time":
		return core.ColumnTypeTime
	case "json":
		return core.ColumnTypeJSON
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		return core.ColumnTypeBinary
	default:
		return core.ColumnTypeString
	}
}

func (d *Dialect) ListTables(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, t.Database)
}

func (d *Dialect) ListViews(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT table_name FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name`, t.Database)
}

func (d *Dialect) ListFunctions(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT routine_name FROM information_schema.routines
		WHERE routine_schema = ? AND routine_type = 'FUNCTION'
		ORDER BY routine_name`, t.Database)
}

func (d *Dialect) ListProcedures(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT routine_name FROM information_schema.routines
		WHERE routine_schema = ? AND routine_type = 'PROCEDURE'
		ORDER BY routine_name`, t.Database)
}

func (d *Dialect) ListColumns(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, t.Database, table)
}

func (d *Dialect) DescribeColumn(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table, column string) (*core.Column, error) {
	row := db.QueryRowContext(ctx, `
		SELECT data_type, is_nullable, column_key,
		       COALESCE(character_maximum_length, 0),
		       COALESCE(numeric_precision, 0),
		       COALESCE(numeric_scale, 0)
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ? AND column_name = ?`,
		t.Database, table, column)

	var (
		nativeType string
		nullable   string
		columnKey  string
		maxLength  int
		precision  int
		scale      int
	)
	if err := row.Scan(&nativeType, &nullable, &columnKey, &maxLength, &precision, &scale); err != nil {
		return nil, err
	}

	return &core.Column{
		Name:       column,
		Type:       d.MapType(nativeType),
		NativeType: nativeType,
		Nullable:   strings.EqualFold(nullable, "YES"),
		PrimaryKey: columnKey == "PRI",
		Unique:     columnKey == "PRI" || columnKey == "UNI",
		Indexed:    columnKey != "",
		MaxLength:  maxLength,
		Precision:  precision,
		Scale:      scale,
	}, nil
}

func (d *Dialect) TableKeys(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) (*sqlbase.TableKeys, error) {
	keys := &sqlbase.TableKeys{}

	pks, err := sqlbase.QueryStrings(ctx, db, `
		SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, t.Database, table)
	if err != nil {
		return nil, err
	}
	keys.PrimaryKeys = pks

	fkRows, err := db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ?
		  AND referenced_table_name IS NOT NULL`, t.Database, table)
	if err != nil {
		return nil, err
	}
	defer fkRows.Close()
	for fkRows.Next() {
		var fk core.ForeignKey
		if err := fkRows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		keys.ForeignKeys = append(keys.ForeignKeys, fk)
	}
	if err := fkRows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := db.QueryContext(ctx, `
		SELECT index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ?
		ORDER BY index_name, seq_in_index`, t.Database, table)
	if err != nil {
		return nil, err
	}
	defer idxRows.Close()

	byName := make(map[string]int)
	for idxRows.Next() {
		var (
			name      string
			column    string
			nonUnique int
		)
		if err := idxRows.Scan(&name, &column, &nonUnique); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			keys.Indexes[i].Columns = append(keys.Indexes[i].Columns, column)
			continue
		}
		byName[name] = len(keys.Indexes)
		keys.Indexes = append(keys.Indexes, core.Index{
			Name:    name,
			Columns: []string{column},
			Unique:  nonUnique == 0,
		})
	}
	if err := idxRows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (d *Dialect) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	return version, err
}
