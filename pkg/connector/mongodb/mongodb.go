// Package mongodb implements the MongoDB connector. Collections are
// tables whose columns are the union of field names seen in a bounded
// document sample; queries use the FIND:<collection>[:<json filter>]
// form.
package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	json "github.com/goccy/go-json"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

const (
	verb = "FIND"

	// schemaSampleDocs bounds how many documents field discovery reads.
	schemaSampleDocs = 50
)

// Connector implements core.Connector for MongoDB.
type Connector struct {
	*base.Connector
}

// New constructs the MongoDB connector.
func New() *Connector {
	return &Connector{Connector: base.NewConnector("mongodb", Capabilities())}
}

// Capabilities returns the static MongoDB capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		SupportsIndexes: true,
		MaxConnections:  5,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeBoolean, core.ColumnTypeTimestamp, core.ColumnTypeJSON,
			core.ColumnTypeBinary,
		},
		SupportedOperations: []string{verb},
	}
}

type handle struct {
	client   *mongo.Client
	database string
}

// TestConnection opens a short-lived client and pings the server.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	if err := cfg.RequireFields("host", "database"); err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeValidation, "invalid MongoDB configuration"), 0)
	}

	connStart := time.Now()
	client, err := c.open(ctx, cfg)
	if err != nil {
		return c.FailTest(err, base.ElapsedMs(connStart))
	}
	defer c.CloseLogged("test client", func() error { return client.Disconnect(context.Background()) })
	connectionMs := base.ElapsedMs(connStart)

	queryStart := time.Now()
	collections, err := client.Database(cfg.Database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeConnection, "cannot list collections"), connectionMs)
	}

	return c.PassTest(connectionMs, base.ElapsedMs(queryStart), map[string]any{
		"database":         cfg.Database,
		"collection_count": len(collections),
	})
}

// Connect opens a client and verifies reachability with a ping.
func (c *Connector) Connect(ctx context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	if err := cfg.RequireFields("host", "database"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid MongoDB configuration")
	}

	client, err := c.open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	conn := c.NewConnection(cfg)
	conn.Handle = &handle{client: client, database: cfg.Database}
	return conn, nil
}

// Disconnect closes the client. Calling it twice is harmless.
func (c *Connector) Disconnect(ctx context.Context, conn *core.Connection) error {
	if err := c.CheckConnection(conn); err != nil {
		return err
	}
	if conn.Handle == nil {
		return nil
	}

	h, err := c.handle(conn)
	if err != nil {
		return err
	}
	c.CloseLogged("mongo client", func() error { return h.client.Disconnect(ctx) })
	c.MarkDisconnected(conn)
	return nil
}

func (c *Connector) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, c, conn)
}

// GetTableList returns the database's collection names.
func (c *Connector) GetTableList(ctx context.Context, conn *core.Connection) ([]string, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	names, err := h.client.Database(h.database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to list collections")
	}
	sort.Strings(names)
	return names, nil
}

func (c *Connector) GetColumnList(ctx context.Context, conn *core.Connection, table string) ([]string, error) {
	fields, err := c.sampleFields(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Connector) GetColumnInfo(ctx context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	fields, err := c.sampleFields(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	field, ok := fields[column]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "field %s not found in %s", column, table)
	}

	return &core.Column{
		Name:         column,
		Type:         field.colType,
		NativeType:   field.bsonType,
		Nullable:     true,
		Indexed:      column == "_id",
		Unique:       column == "_id",
		PrimaryKey:   column == "_id",
		SampleValues: field.samples,
	}, nil
}

func (c *Connector) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	names, err := c.GetColumnList(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	info := &core.Table{
		Name:     table,
		Kind:     core.TableKindTable,
		RowCount: -1,
	}
	for _, name := range names {
		col, err := c.GetColumnInfo(ctx, conn, table, name)
		if err != nil {
			return nil, err
		}
		info.Columns = append(info.Columns, *col)
	}

	if count, err := c.GetTableRowCount(ctx, conn, table); err == nil {
		info.RowCount = count
	}
	return info, nil
}

func (c *Connector) GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error) {
	h, err := c.handle(conn)
	if err != nil {
		return 0, err
	}

	count, err := h.client.Database(h.database).Collection(table).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSchema,
			fmt.Sprintf("failed to count documents of %s", table))
	}
	return count, nil
}

func (c *Connector) GetDatabaseInfo(ctx context.Context, conn *core.Connection) (map[string]any, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	info := map[string]any{
		"type":     c.Type(),
		"database": h.database,
	}

	var status bson.M
	if err := h.client.Database(h.database).RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&status); err == nil {
		if version, ok := status["version"].(string); ok {
			info["version"] = version
		}
	}
	if names, err := h.client.Database(h.database).ListCollectionNames(ctx, bson.D{}); err == nil {
		info["collection_count"] = len(names)
	}

	return info, nil
}

// ExecuteQuery runs a FIND command; the optional argument is a JSON
// filter passed to the find as-is.
func (c *Connector) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, _ ...any) (*core.QueryResult, error) {
	return c.execute(ctx, conn, query, -1)
}

// ExecuteQueryWithLimit pushes the cap into the find options, then
// clamps client-side.
func (c *Connector) ExecuteQueryWithLimit(ctx context.Context, conn *core.Connection, query string, limit int, _ ...any) (*core.QueryResult, error) {
	result, err := c.execute(ctx, conn, query, limit)
	if err != nil {
		return nil, err
	}
	result.Truncate(limit)
	return result, nil
}

func (c *Connector) execute(ctx context.Context, conn *core.Connection, query string, limit int) (*core.QueryResult, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	cmd, _ := core.ParseCommand(query)

	filter := bson.M{}
	if cmd.Arg != "" {
		if err := bson.UnmarshalExtJSON([]byte(cmd.Arg), true, &filter); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation,
				"filter is not valid JSON").WithDetail("query", query)
		}
	}

	opts := options.Find()
	if limit >= 0 {
		opts.SetLimit(int64(limit))
	}

	started := time.Now()
	cursor, err := h.client.Database(h.database).Collection(cmd.Target).Find(ctx, filter, opts)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, errors.Wrap(err, errors.ErrorTypeQuery,
			fmt.Sprintf("find failed on %s", cmd.Target)).WithDetail("query", query)
	}
	defer cursor.Close(ctx)

	var documents []bson.M
	if err := cursor.All(ctx, &documents); err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read cursor").WithDetail("query", query)
	}

	result := documentsToResult(query, documents)
	result.Metadata = map[string]any{"collection": cmd.Target}

	c.ObserveQuery(started, result, nil)
	return result, nil
}

func (c *Connector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.ExecuteQueryWithLimit(ctx, conn, fmt.Sprintf("%s:%s", verb, table), limit)
}

// ValidateQuery accepts FIND:<collection>[:<json filter>] commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	if v := core.ValidateCommand(query, verb); !v.Valid {
		return v
	}

	cmd, _ := core.ParseCommand(query)
	if cmd.Arg != "" {
		var filter bson.M
		if err := bson.UnmarshalExtJSON([]byte(cmd.Arg), true, &filter); err != nil {
			return core.Invalid("filter is not valid JSON: " + err.Error())
		}
	}
	return core.Valid()
}

func (c *Connector) GetQueryPlan(ctx context.Context, conn *core.Connection, query string) (string, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	cmd, _ := core.ParseCommand(query)
	rows := int64(-1)
	if count, err := c.GetTableRowCount(ctx, conn, cmd.Target); err == nil {
		rows = count
	}
	return c.SynthesizePlan(verb, cmd.Target, rows), nil
}

func (c *Connector) open(ctx context.Context, cfg *config.ConnectionConfig) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(buildURI(cfg))
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	opts.SetMaxPoolSize(uint64(Capabilities().MaxConnections))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open MongoDB client")
	}

	if err := client.Ping(ctx, nil); err != nil {
		c.CloseLogged("failed client", func() error { return client.Disconnect(context.Background()) })
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("cannot reach %s:%d", cfg.Host, cfg.Port))
	}
	return client, nil
}

func (c *Connector) handle(conn *core.Connection) (*handle, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	h, ok := conn.Handle.(*handle)
	if !ok || h == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "connection is not open")
	}
	return h, nil
}

func buildURI(cfg *config.ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 27017
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	if authSource := cfg.Get("auth_source", ""); authSource != "" {
		q := url.Values{}
		q.Set("authSource", authSource)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type fieldInfo struct {
	colType  core.ColumnType
	bsonType string
	samples  []any
}

// sampleFields reads a bounded document sample and aggregates the
// fields it sees.
func (c *Connector) sampleFields(ctx context.Context, conn *core.Connection, table string) (map[string]*fieldInfo, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetLimit(schemaSampleDocs)
	cursor, err := h.client.Database(h.database).Collection(table).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema,
			fmt.Sprintf("failed to sample %s", table))
	}
	defer cursor.Close(ctx)

	var documents []bson.M
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to read sample cursor")
	}

	fields := make(map[string]*fieldInfo)
	for _, doc := range documents {
		for name, value := range doc {
			info, ok := fields[name]
			if !ok {
				colType, bsonType := classifyValue(value)
				info = &fieldInfo{colType: colType, bsonType: bsonType}
				fields[name] = info
			}
			if len(info.samples) < core.MaxSampleValues {
				info.samples = append(info.samples, normalizeValue(value))
			}
		}
	}
	return fields, nil
}

func classifyValue(v any) (core.ColumnType, string) {
	switch v.(type) {
	case int32, int64, int:
		return core.ColumnTypeInteger, "int"
	case float64, float32:
		return core.ColumnTypeFloat, "double"
	case bool:
		return core.ColumnTypeBoolean, "bool"
	case primitive.DateTime, time.Time:
		return core.ColumnTypeTimestamp, "date"
	case primitive.ObjectID:
		return core.ColumnTypeString, "objectId"
	case bson.M, bson.D, primitive.A:
		return core.ColumnTypeJSON, "object"
	case primitive.Binary:
		return core.ColumnTypeBinary, "binData"
	default:
		return core.ColumnTypeString, "string"
	}
}

// normalizeValue converts BSON values into the uniform result
// vocabulary: ObjectIDs become hex strings, timestamps become
// time.Time, nested documents become compact JSON strings.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time()
	case int32:
		return int64(t)
	case bson.M, bson.D, primitive.A:
		encoded, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(encoded)
	case primitive.Binary:
		return t.Data
	default:
		return v
	}
}

// documentsToResult flattens documents over the sorted union of their
// field names; _id sorts first.
func documentsToResult(query string, documents []bson.M) *core.QueryResult {
	seen := make(map[string]bool)
	var columns []string
	for _, doc := range documents {
		for name := range doc {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}
	sort.Slice(columns, func(i, j int) bool {
		if columns[i] == "_id" {
			return true
		}
		if columns[j] == "_id" {
			return false
		}
		return columns[i] < columns[j]
	})

	result := &core.QueryResult{
		Columns: columns,
		Query:   query,
	}
	for _, doc := range documents {
		row := make([]any, len(columns))
		for i, name := range columns {
			if value, ok := doc[name]; ok {
				row[i] = normalizeValue(value)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)
	return result
}
