// Package sqlite implements the SQLite connector as a sqlbase dialect
// over mattn/go-sqlite3. Databases are opened read-only; this contract
// never writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlbase"
)

// New constructs the SQLite connector.
func New() *sqlbase.Engine {
	return sqlbase.NewEngine(&Dialect{}, Capabilities())
}

// Capabilities returns the static SQLite capability descriptor. SQLite
// is a single-file engine; concurrent readers are cheap but one worker
// keeps PRAGMA-based introspection simple.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		SupportsSQL:          true,
		SupportsTransactions: true,
		SupportsViews:        true,
		SupportsIndexes:      true,
		SupportsForeignKeys:  true,
		MaxQuerySize:         1 << 20,
		MaxConnections:       1,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeBoolean, core.ColumnTypeTimestamp, core.ColumnTypeDate,
			core.ColumnTypeBinary,
		},
		SupportedOperations: []string{"SELECT", "WITH", "EXPLAIN", "PRAGMA"},
	}
}

// Dialect implements sqlbase.Dialect for SQLite.
type Dialect struct{}

func (d *Dialect) Name() string       { return "sqlite" }
func (d *Dialect) DriverName() string { return "sqlite3" }

func (d *Dialect) RequiredFields() []string {
	return []string{"file_path"}
}

func (d *Dialect) NormalizeConfig(cfg *config.ConnectionConfig) {
	if cfg.Database == "" {
		cfg.Database = filepath.Base(cfg.FilePath)
	}
}

// BuildDSN opens the file read-only so that probing a missing path
// fails instead of silently creating an empty database.
func (d *Dialect) BuildDSN(cfg *config.ConnectionConfig) string {
	return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", url.PathEscape(cfg.FilePath))
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
	return []string{"select", "with", "explain", "pragma"}
}

func (d *Dialect) ExplainPrefix() string { return "EXPLAIN QUERY PLAN " }

func (d *Dialect) MapType(nativeType string) core.ColumnType {
	lower := strings.ToLower(nativeType)
	switch {
	case strings.Contains(lower, "int"):
		return core.ColumnTypeInteger
	case strings.Contains(lower, "real"), strings.Contains(lower, "floa"), strings.Contains(lower, "doub"):
		return core.ColumnTypeFloat
	case strings.Contains(lower, "bool"):
		return core.ColumnTypeBoolean
	case strings.Contains(lower, "datetime"), strings.Contains(lower, "timestamp"):
		return core.ColumnTypeTimestamp
	case lower == "date":
		return core.ColumnTypeDate
	case strings.Contains(lower, "blob"):
		return core.ColumnTypeBinary
	default:
		return core.ColumnTypeString
	}
}

func (d *Dialect) ListTables(ctx context.Context, db *sql.DB, _ sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
}

func (d *Dialect) ListViews(ctx context.Context, db *sql.DB, _ sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT name FROM sqlite_master
		WHERE type = 'view'
		ORDER BY name`)
}

func (d *Dialect) ListFunctions(context.Context, *sql.DB, sqlbase.IntrospectTarget) ([]string, error) {
	return nil, nil
}

func (d *Dialect) ListProcedures(context.Context, *sql.DB, sqlbase.IntrospectTarget) ([]string, error) {
	return nil, nil
}

// PRAGMA statements cannot take bind parameters; every table name below
// has already passed identifier validation before it is interpolated.

func (d *Dialect) ListColumns(ctx context.Context, db *sql.DB, _ sqlbase.IntrospectTarget, table string) ([]string, error) {
	cols, err := d.tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.name)
	}
	return names, nil
}

func (d *Dialect) DescribeColumn(ctx context.Context, db *sql.DB, _ sqlbase.IntrospectTarget, table, column string) (*core.Column, error) {
	cols, err := d.tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.name == column {
			return &core.Column{
				Name:       c.name,
				Type:       d.MapType(c.nativeType),
				NativeType: c.nativeType,
				Nullable:   !c.notNull && c.pk == 0,
				PrimaryKey: c.pk > 0,
			}, nil
		}
	}
	return nil, fmt.Errorf("column %s not found in %s", column, table)
}

func (d *Dialect) TableKeys(ctx context.Context, db *sql.DB, _ sqlbase.IntrospectTarget, table string) (*sqlbase.TableKeys, error) {
	keys := &sqlbase.TableKeys{}

	cols, err := d.tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.pk > 0 {
			keys.PrimaryKeys = append(keys.PrimaryKeys, c.name)
		}
	}

	fkRows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer fkRows.Close()
	for fkRows.Next() {
		var (
			id, seq                      int
			refTable, from, to           string
			onUpdate, onDelete, matching string
		)
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matching); err != nil {
			return nil, err
		}
		keys.ForeignKeys = append(keys.ForeignKeys, core.ForeignKey{
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: to,
		})
	}
	if err := fkRows.Err(); err != nil {
		return nil, err
	}

	indexes, err := d.tableIndexes(ctx, db, table)
	if err != nil {
		return nil, err
	}
	keys.Indexes = indexes

	return keys, nil
}

func (d *Dialect) tableIndexes(ctx context.Context, db *sql.DB, table string) ([]core.Index, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_list("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var (
			seq            int
			name, origin   string
			unique, partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []core.Index
	for _, entry := range entries {
		columns, err := d.indexColumns(ctx, db, entry.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, core.Index{
			Name:    entry.name,
			Columns: columns,
			Unique:  entry.unique,
		})
	}
	return indexes, nil
}

func (d *Dialect) indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_info("+d.QuoteIdentifier(index)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

func (d *Dialect) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version)
	return "SQLite " + version, err
}

type columnInfo struct {
	name       string
	nativeType string
	notNull    bool
	pk         int
}

func (d *Dialect) tableInfo(ctx context.Context, db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+d.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			nativeType string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &nativeType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, columnInfo{
			name:       name,
			nativeType: nativeType,
			notNull:    notNull == 1,
			pk:         pk,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}
