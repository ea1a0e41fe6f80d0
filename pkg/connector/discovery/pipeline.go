// Package discovery implements the schema discovery pipeline shared by
// all connectors: list tables, describe each column, assemble normalized
// tables and compute schema aggregates.
//
// The pipeline is best-effort. A failure enriching one column or one
// table degrades the result and records a warning; only the initial
// table listing is terminal, because without it there is nothing to
// discover. Tables are fetched with bounded parallelism sized from the
// connector's MaxConnections capability, and the final ordering always
// follows the backend's original list order regardless of completion
// order.
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/errors"
	"github.com/bifrostdata/bifrost/pkg/logger"
	"github.com/bifrostdata/bifrost/pkg/metrics"
)

// Introspector is the subset of the connector contract the pipeline
// drives. Connectors pass themselves; GetSchema must not be part of this
// interface since connectors implement it by invoking the pipeline.
type Introspector interface {
	Type() string
	Capabilities() *core.Capabilities
	GetTableList(ctx context.Context, conn *core.Connection) ([]string, error)
	GetColumnList(ctx context.Context, conn *core.Connection, table string) ([]string, error)
	GetColumnInfo(ctx context.Context, conn *core.Connection, table, column string) (*core.Column, error)
	GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error)
	GetDatabaseInfo(ctx context.Context, conn *core.Connection) (map[string]any, error)
}

// ObjectLister is optionally implemented by connectors whose backends
// expose views, functions or stored procedures.
type ObjectLister interface {
	GetViewList(ctx context.Context, conn *core.Connection) ([]string, error)
	GetFunctionList(ctx context.Context, conn *core.Connection) ([]string, error)
	GetProcedureList(ctx context.Context, conn *core.Connection) ([]string, error)
}

// TableEnricher is optionally implemented by connectors that can attach
// keys and indexes to an assembled table in one backend call.
type TableEnricher interface {
	EnrichTable(ctx context.Context, conn *core.Connection, table *core.Table) error
}

// Discover runs the pipeline against one open connection.
func Discover(ctx context.Context, in Introspector, conn *core.Connection) (*core.Schema, error) {
	started := time.Now()
	log := logger.ForConnector(in.Type())

	tableNames, err := in.GetTableList(ctx, conn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to list tables")
	}

	schema := &core.Schema{
		Metadata: core.SchemaMetadata{
			SourceName: sourceName(conn),
		},
	}

	var (
		mu       sync.Mutex
		warnings []core.Warning
	)
	warn := func(w core.Warning) {
		mu.Lock()
		warnings = append(warnings, w)
		mu.Unlock()
	}

	// Fetch tables in parallel, then restore list order.
	results := make([]*core.Table, len(tableNames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(in.Capabilities()))

	for i, name := range tableNames {
		g.Go(func() error {
			table, tableWarnings := assembleTable(gctx, in, conn, name, core.TableKindTable)
			for _, w := range tableWarnings {
				warn(w)
			}
			results[i] = table
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		// Only context cancellation reaches here; per-table failures
		// degrade to warnings.
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "schema discovery aborted")
	}

	for _, t := range results {
		if t != nil {
			schema.Tables = append(schema.Tables, *t)
		}
	}

	if lister, ok := in.(ObjectLister); ok {
		discoverObjects(ctx, lister, in, conn, schema, warn)
	}

	if info, err := in.GetDatabaseInfo(ctx, conn); err != nil {
		warn(core.Warning{Scope: core.WarningScopeTable, Message: "database info unavailable: " + err.Error()})
	} else if version, ok := info["version"].(string); ok {
		schema.Metadata.SourceVersion = version
	}

	schema.Warnings = warnings
	schema.Finalize()

	metrics.ObserveDiscovery(in.Type(), time.Since(started), len(warnings))
	log.Info("schema discovery complete",
		zap.Int("tables", schema.Metadata.TotalTables),
		zap.Int("columns", schema.Metadata.TotalColumns),
		zap.Int("warnings", len(warnings)),
		zap.Duration("elapsed", time.Since(started)))

	return schema, nil
}

// assembleTable builds one normalized table. A column listing failure
// drops the whole table (with a warning); a single column description
// failure keeps the column with name-only detail.
func assembleTable(ctx context.Context, in Introspector, conn *core.Connection, name string, kind core.TableKind) (*core.Table, []core.Warning) {
	var warnings []core.Warning

	columnNames, err := in.GetColumnList(ctx, conn, name)
	if err != nil {
		warnings = append(warnings, core.Warning{
			Scope:   core.WarningScopeTable,
			Table:   name,
			Message: err.Error(),
		})
		return nil, warnings
	}

	table := &core.Table{
		Name:     name,
		Kind:     kind,
		Columns:  make([]core.Column, 0, len(columnNames)),
		RowCount: -1,
	}

	for _, colName := range columnNames {
		col, err := in.GetColumnInfo(ctx, conn, name, colName)
		if err != nil {
			warnings = append(warnings, core.Warning{
				Scope:   core.WarningScopeColumn,
				Table:   name,
				Column:  colName,
				Message: err.Error(),
			})
			col = &core.Column{Name: colName, Type: core.ColumnTypeString, Nullable: true}
		}
		table.Columns = append(table.Columns, *col)
	}

	if kind == core.TableKindTable {
		if count, err := in.GetTableRowCount(ctx, conn, name); err != nil {
			warnings = append(warnings, core.Warning{
				Scope:   core.WarningScopeRowCount,
				Table:   name,
				Message: err.Error(),
			})
		} else {
			table.RowCount = count
		}
	}

	if enricher, ok := in.(TableEnricher); ok {
		if err := enricher.EnrichTable(ctx, conn, table); err != nil {
			warnings = append(warnings, core.Warning{
				Scope:   core.WarningScopeTable,
				Table:   name,
				Message: "key/index enrichment failed: " + err.Error(),
			})
		}
	}

	return table, warnings
}

// discoverObjects appends views, functions and procedures. All failures
// degrade to warnings; these objects are optional schema extras.
func discoverObjects(ctx context.Context, lister ObjectLister, in Introspector, conn *core.Connection, schema *core.Schema, warn func(core.Warning)) {
	views, err := lister.GetViewList(ctx, conn)
	if err != nil {
		warn(core.Warning{Scope: core.WarningScopeTable, Message: "view listing failed: " + err.Error()})
	} else {
		for _, name := range views {
			view, viewWarnings := assembleTable(ctx, in, conn, name, core.TableKindView)
			for _, w := range viewWarnings {
				warn(w)
			}
			if view != nil {
				schema.Views = append(schema.Views, *view)
			}
		}
	}

	if functions, err := lister.GetFunctionList(ctx, conn); err != nil {
		warn(core.Warning{Scope: core.WarningScopeTable, Message: "function listing failed: " + err.Error()})
	} else {
		schema.Functions = functions
	}

	if procedures, err := lister.GetProcedureList(ctx, conn); err != nil {
		warn(core.Warning{Scope: core.WarningScopeTable, Message: "procedure listing failed: " + err.Error()})
	} else {
		schema.Procedures = procedures
	}
}

func workerCount(caps *core.Capabilities) int {
	if caps == nil || caps.MaxConnections <= 1 {
		return 1
	}
	return caps.MaxConnections
}

func sourceName(conn *core.Connection) string {
	if conn.Database != "" {
		return conn.Database
	}
	if conn.Host != "" {
		return conn.Host
	}
	return conn.Type
}
