package core

import (
	"time"
)

// ColumnType is the canonical column type taxonomy. Each connector maps
// its native type vocabulary (VARCHAR vs STRING vs TEXT) into this set so
// downstream consumers can treat all sources uniformly.
type ColumnType string

const (
	ColumnTypeString    ColumnType = "string"
	ColumnTypeInteger   ColumnType = "integer"
	ColumnTypeFloat     ColumnType = "float"
	ColumnTypeDecimal   ColumnType = "decimal"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeTimestamp ColumnType = "timestamp"
	ColumnTypeDate      ColumnType = "date"
	ColumnTypeTime      ColumnType = "time"
	ColumnTypeJSON      ColumnType = "json"
	ColumnTypeBinary    ColumnType = "binary"
)

// MaxSampleValues bounds the per-column sample value preview.
const MaxSampleValues = 10

// Capabilities is the static, per-connector-type capability descriptor.
// It is defined once at construction and never mutated at runtime.
type Capabilities struct {
	SupportsSQL              bool `json:"supports_sql"`
	SupportsTransactions     bool `json:"supports_transactions"`
	SupportsStoredProcedures bool `json:"supports_stored_procedures"`
	SupportsFunctions        bool `json:"supports_functions"`
	SupportsViews            bool `json:"supports_views"`
	SupportsIndexes          bool `json:"supports_indexes"`
	SupportsForeignKeys      bool `json:"supports_foreign_keys"`

	// MaxQuerySize and MaxResultSize are in bytes; zero means unbounded.
	MaxQuerySize  int64 `json:"max_query_size,omitempty"`
	MaxResultSize int64 `json:"max_result_size,omitempty"`

	// MaxConnections bounds concurrent backend calls; the discovery
	// pipeline sizes its worker pool from this.
	MaxConnections int `json:"max_connections"`

	SupportedDataTypes  []ColumnType `json:"supported_data_types"`
	SupportedOperations []string     `json:"supported_operations"`
}

// SupportsOperation reports whether the named verb/keyword is in the
// connector's supported operation set. Matching is case-insensitive.
func (c *Capabilities) SupportsOperation(op string) bool {
	for _, o := range c.SupportedOperations {
		if equalFold(o, op) {
			return true
		}
	}
	return false
}

// SupportsDataType reports whether the canonical type is declared.
func (c *Capabilities) SupportsDataType(t ColumnType) bool {
	for _, dt := range c.SupportedDataTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// Connection is an ephemeral handle produced by Connect and consumed by
// all subsequent calls until Disconnect. It is never persisted; any
// durable connection record is owned by an external collaborator.
type Connection struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`

	// AdditionalConfig holds backend-specific settings with connector
	// defaults applied (SSL mode, encoding, delimiters, OAuth tokens).
	AdditionalConfig map[string]string `json:"additional_config,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Handle is the backend-native handle (*sql.DB, *sheets.Service,
	// an open file, ...). Only the owning connector touches it.
	Handle any `json:"-"`
}

// Setting returns an AdditionalConfig value, or fallback when unset.
func (c *Connection) Setting(key, fallback string) string {
	if v, ok := c.AdditionalConfig[key]; ok && v != "" {
		return v
	}
	return fallback
}

// TableKind distinguishes tables from views.
type TableKind string

const (
	TableKindTable            TableKind = "table"
	TableKindView             TableKind = "view"
	TableKindMaterializedView TableKind = "materialized_view"
)

// Column describes one column in canonical form.
type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	NativeType string     `json:"native_type,omitempty"`
	Nullable   bool       `json:"nullable"`
	PrimaryKey bool       `json:"primary_key"`
	Unique     bool       `json:"unique"`
	Indexed    bool       `json:"indexed"`

	MaxLength int `json:"max_length,omitempty"`
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	// SampleValues is a bounded preview, at most MaxSampleValues entries.
	SampleValues []any `json:"sample_values,omitempty"`

	Description string `json:"description,omitempty"`
}

// ForeignKey records one outgoing reference.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Index describes a table index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Table describes one table or view in canonical form. RowCount is -1
// when unknown.
type Table struct {
	Name        string       `json:"name"`
	Kind        TableKind    `json:"kind"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty"`
	RowCount    int64        `json:"row_count"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// SchemaMetadata summarizes a discovered schema. TotalTables must equal
// len(Schema.Tables) and TotalColumns the sum of their column counts.
type SchemaMetadata struct {
	SourceName    string    `json:"source_name"`
	SourceVersion string    `json:"source_version,omitempty"`
	TotalTables   int       `json:"total_tables"`
	TotalColumns  int       `json:"total_columns"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WarningScope names the entity a discovery warning applies to.
type WarningScope string

const (
	WarningScopeTable    WarningScope = "table"
	WarningScopeColumn   WarningScope = "column"
	WarningScopeRowCount WarningScope = "row_count"
)

// Warning records a per-entity failure tolerated during schema discovery.
// A failed column or row count degrades the schema instead of aborting it.
type Warning struct {
	Scope   WarningScope `json:"scope"`
	Table   string       `json:"table,omitempty"`
	Column  string       `json:"column,omitempty"`
	Message string       `json:"message"`
}

// Schema is the normalized output of schema discovery. Table and column
// order follows whatever order the backend's list calls returned.
type Schema struct {
	Tables     []Table        `json:"tables"`
	Views      []Table        `json:"views,omitempty"`
	Functions  []string       `json:"functions,omitempty"`
	Procedures []string       `json:"procedures,omitempty"`
	Metadata   SchemaMetadata `json:"metadata"`
	Warnings   []Warning      `json:"warnings,omitempty"`
}

// Finalize recomputes the aggregate metadata from the assembled tables.
func (s *Schema) Finalize() {
	s.Metadata.TotalTables = len(s.Tables)
	total := 0
	for _, t := range s.Tables {
		total += len(t.Columns)
	}
	s.Metadata.TotalColumns = total
	s.Metadata.UpdatedAt = time.Now()
}

// QueryResult is the single normalized result shape every connector
// returns. Each row is a fixed-width ordered value list matching Columns,
// and RowCount always equals len(Rows).
type QueryResult struct {
	Columns         []string       `json:"columns"`
	Rows            [][]any        `json:"rows"`
	RowCount        int            `json:"row_count"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Query           string         `json:"query"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Truncate caps the result at limit rows. Used by connectors without a
// backend-side limit mechanism, and as a final clamp by those with one.
func (r *QueryResult) Truncate(limit int) {
	if limit < 0 {
		limit = 0
	}
	if len(r.Rows) > limit {
		r.Rows = r.Rows[:limit]
	}
	r.RowCount = len(r.Rows)
}

// TestResult is the outcome of TestConnection. Connection time and query
// time are kept separate so callers can distinguish network/auth latency
// from backend processing latency.
type TestResult struct {
	Success          bool           `json:"success"`
	ConnectionTimeMs int64          `json:"connection_time_ms"`
	QueryTimeMs      int64          `json:"query_time_ms"`
	Error            string         `json:"error,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ValidationResult is the outcome of ValidateQuery. It is always returned
// by value; validation never throws.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Valid returns an accepting validation result.
func Valid() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// Invalid returns a rejecting validation result with the given reason.
func Invalid(reason string) *ValidationResult {
	return &ValidationResult{Valid: false, Error: reason}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
