// Package postgres implements the PostgreSQL connector as a sqlbase
// dialect over the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlbase"
)

// managedHostSuffixes identifies hosted providers that reject plaintext
// connections; SSL is switched on for them unless the caller already
// chose a mode.
var managedHostSuffixes = []string{
	".rds.amazonaws.com",
	".redshift.amazonaws.com",
	".azure.com",
	".neon.tech",
	".supabase.co",
	".render.com",
}

// New constructs the PostgreSQL connector.
func New() *sqlbase.Engine {
	return sqlbase.NewEngine(&Dialect{}, Capabilities())
}

// Capabilities returns the static PostgreSQL capability descriptor.
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
		SupportedOperations: []string{"SELECT", "WITH", "EXPLAIN", "SHOW"},
	}
}

// Dialect implements sqlbase.Dialect for PostgreSQL. Redshift embeds it
// and overrides the parts that differ.
type Dialect struct{}

func (d *Dialect) Name() string       { return "postgres" }
func (d *Dialect) DriverName() string { return "pgx" }

func (d *Dialect) RequiredFields() []string {
	return []string{"host", "database", "username"}
}

func (d *Dialect) NormalizeConfig(cfg *config.ConnectionConfig) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.Get("schema", "") == "" {
		cfg.Set("schema", "public")
	}
	if cfg.Get("ssl_mode", "") == "" {
		cfg.Set("ssl_mode", defaultSSLMode(cfg.Host))
	}
}

func defaultSSLMode(host string) string {
	lower := strings.ToLower(host)
	for _, suffix := range managedHostSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return "require"
		}
	}
	return "prefer"
}

func (d *Dialect) BuildDSN(cfg *config.ConnectionConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	q.Set("sslmode", cfg.Get("ssl_mode", "prefer"))
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(cfg.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
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
	switch strings.ToLower(nativeType) {
	case "smallint", "integer", "bigint", "int2", "int4", "int8", "serial", "bigserial":
		return core.ColumnTypeInteger
	case "real", "double precision", "float4", "float8":
		return core.ColumnTypeFloat
	case "numeric", "decimal", "money":
		return core.ColumnTypeDecimal
	case "boolean", "bool":
		return core.ColumnTypeBoolean
	case "timestamp", "timestamptz", "timestamp without time zone", "timestamp with time zone":
		return core.ColumnTypeTimestamp
	case "date":
		return core.ColumnTypeDate
	case "time", "timetz", "time without time zone", "time with time zone":
		return core.ColumnTypeTime
	case "json", "jsonb":
		return core.ColumnTypeJSON
	case "bytea":
		return core.ColumnTypeBinary
	default:
		return core.ColumnTypeString
	}
}

func (d *Dialect) ListTables(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaOf(t))
}

func (d *Dialect) ListViews(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT table_name FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`, schemaOf(t))
}

func (d *Dialect) ListFunctions(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT routine_name FROM information_schema.routines
		WHERE routine_schema = $1 AND routine_type = 'FUNCTION'
		ORDER BY routine_name`, schemaOf(t))
}

func (d *Dialect) ListProcedures(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT routine_name FROM information_schema.routines
		WHERE routine_schema = $1 AND routine_type = 'PROCEDURE'
		ORDER BY routine_name`, schemaOf(t))
}

func (d *Dialect) ListColumns(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) ([]string, error) {
	return sqlbase.QueryStrings(ctx, db, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schemaOf(t), table)
}

func (d *Dialect) DescribeColumn(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table, column string) (*core.Column, error) {
	row := db.QueryRowContext(ctx, `
		SELECT data_type, is_nullable,
		       COALESCE(character_maximum_length, 0),
		       COALESCE(numeric_precision, 0),
		       COALESCE(numeric_scale, 0)
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 AND column_name = $3`,
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

func (d *Dialect) TableKeys(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) (*sqlbase.TableKeys, error) {
	keys, err := d.KeyConstraints(ctx, db, t, table)
	if err != nil {
		return nil, err
	}

	indexes, err := d.tableIndexes(ctx, db, schemaOf(t), table)
	if err != nil {
		return nil, err
	}
	keys.Indexes = indexes

	return keys, nil
}

// KeyConstraints reads primary and foreign keys from the standard
// information_schema views. Split out from TableKeys because Redshift
// shares these views but has no pg_index.
func (d *Dialect) KeyConstraints(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) (*sqlbase.TableKeys, error) {
	keys := &sqlbase.TableKeys{}
	schema := schemaOf(t)

	pks, err := sqlbase.QueryStrings(ctx, db, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
		  AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	keys.PrimaryKeys = pks

	fkRows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
		  AND tc.constraint_type = 'FOREIGN KEY'`, schema, table)
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

	return keys, nil
}

func (d *Dialect) tableIndexes(ctx context.Context, db *sql.DB, schema, table string) ([]core.Index, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT i.relname, a.attname, ix.indisunique
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname, a.attnum`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		indexes []core.Index
		byName  = make(map[string]int)
	)
	for rows.Next() {
		var (
			name   string
			column string
			unique bool
		)
		if err := rows.Scan(&name, &column, &unique); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			indexes[i].Columns = append(indexes[i].Columns, column)
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, core.Index{Name: name, Columns: []string{column}, Unique: unique})
	}
	return indexes, rows.Err()
}

func (d *Dialect) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version)
	return version, err
}

func schemaOf(t sqlbase.IntrospectTarget) string {
	if t.Schema == "" {
		return "public"
	}
	return t.Schema
}
