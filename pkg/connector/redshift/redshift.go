// Package redshift implements the Amazon Redshift connector. Redshift
// speaks the PostgreSQL wire protocol, so the dialect embeds the
// PostgreSQL one and overrides what actually differs: the default port,
// mandatory SSL, the LIMIT/ORDER BY pairing rule and the absence of
// indexes.
package redshift

import (
	"context"
	"database/sql"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/postgres"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlbase"
)

// New constructs the Redshift connector.
func New() *sqlbase.Engine {
	return sqlbase.NewEngine(&Dialect{}, Capabilities())
}

// Capabilities returns the static Redshift capability descriptor.
// Redshift has no secondary indexes; distribution and sort keys are not
// surfaced through this contract.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		SupportsSQL:          true,
		SupportsTransactions: true,
		SupportsFunctions:    true,
		SupportsViews:        true,
		SupportsForeignKeys:  true,
		MaxQuerySize:         16 << 20,
		MaxConnections:       5,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeDecimal, core.ColumnTypeBoolean, core.ColumnTypeTimestamp,
			core.ColumnTypeDate, core.ColumnTypeTime,
		},
		SupportedOperations: []string{"SELECT", "WITH", "EXPLAIN", "SHOW"},
	}
}

// Dialect implements sqlbase.Dialect for Redshift.
type Dialect struct {
	postgres.Dialect
}

func (d *Dialect) Name() string { return "redshift" }

func (d *Dialect) NormalizeConfig(cfg *config.ConnectionConfig) {
	if cfg.Port == 0 {
		cfg.Port = 5439
	}
	if cfg.Get("schema", "") == "" {
		cfg.Set("schema", "public")
	}
	// Redshift clusters refuse plaintext connections.
	if cfg.Get("ssl_mode", "") == "" {
		cfg.Set("ssl_mode", "require")
	}
}

// RequiresOrderByWithLimit enforces deterministic paging: on Redshift a
// LIMIT without an ORDER BY returns rows in arbitrary distribution
// order, so such queries are rejected at validation time.
func (d *Dialect) RequiresOrderByWithLimit() bool { return true }

// TableKeys returns only key constraints; Redshift has no pg_index.
func (d *Dialect) TableKeys(ctx context.Context, db *sql.DB, t sqlbase.IntrospectTarget, table string) (*sqlbase.TableKeys, error) {
	return d.KeyConstraints(ctx, db, t, table)
}
