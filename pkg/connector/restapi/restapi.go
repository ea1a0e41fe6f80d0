// Package restapi implements the generic REST API connector. Queries
// use the <METHOD>:<endpoint>[:<body>] form (GET, POST, PUT, DELETE,
// PATCH) and JSON responses are flattened into the normalized tabular
// result shape. Endpoints exposed as logical tables are declared in the
// connection's "endpoints" setting.
package restapi

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bifrostdata/bifrost/pkg/clients"
	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

var verbs = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// Connector implements core.Connector for JSON REST APIs.
type Connector struct {
	*base.Connector
	client *clients.Client
}

// New constructs the REST API connector.
func New() *Connector {
	c := &Connector{Connector: base.NewConnector("api", Capabilities())}
	c.client = clients.New(clients.DefaultConfig(), c.GetLogger())
	return c
}

// Capabilities returns the static REST API capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections: 4,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeBoolean, core.ColumnTypeJSON,
		},
		SupportedOperations: verbs,
	}
}

type handle struct {
	baseURL   string
	headers   map[string]string
	endpoints []string
}

// TestConnection validates the base URL and probes it with one GET.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	h, err := c.buildHandle(cfg)
	if err != nil {
		return c.FailTest(err, 0)
	}

	probe := joinURL(h.baseURL, cfg.Get("health_path", "/"))
	started := time.Now()
	resp, err := c.client.Do(ctx, "GET", probe, h.headers, nil)
	if err != nil {
		return c.FailTest(err, base.ElapsedMs(started))
	}

	return c.PassTest(base.ElapsedMs(started), resp.Elapsed.Milliseconds(), map[string]any{
		"status_code": resp.StatusCode,
		"base_url":    h.baseURL,
	})
}

// Connect validates the base URL; no session is held, each query is its
// own request.
func (c *Connector) Connect(_ context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	h, err := c.buildHandle(cfg)
	if err != nil {
		return nil, err
	}

	conn := c.NewConnection(cfg)
	conn.Host = h.baseURL
	conn.Handle = h
	return conn, nil
}

// Disconnect releases the handle; the HTTP transport is shared and
// stays warm. Calling it twice is harmless.
func (c *Connector) Disconnect(_ context.Context, conn *core.Connection) error {
	if err := c.CheckConnection(conn); err != nil {
		return err
	}
	c.MarkDisconnected(conn)
	return nil
}

func (c *Connector) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, c, conn)
}

// GetTableList returns the endpoints declared in the connection config.
func (c *Connector) GetTableList(_ context.Context, conn *core.Connection) ([]string, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), h.endpoints...), nil
}

func (c *Connector) GetColumnList(ctx context.Context, conn *core.Connection, table string) ([]string, error) {
	result, err := c.fetchEndpoint(ctx, conn, table)
	if err != nil {
		return nil, err
	}
	return result.Columns, nil
}

func (c *Connector) GetColumnInfo(ctx context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	result, err := c.fetchEndpoint(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	for i, name := range result.Columns {
		if name != column {
			continue
		}
		col := inferColumn(name, result.Rows, i)
		return &col, nil
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "field %s not found at %s", column, table)
}

func (c *Connector) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	result, err := c.fetchEndpoint(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	t := &core.Table{
		Name:     table,
		Kind:     core.TableKindTable,
		RowCount: int64(result.RowCount),
	}
	for i, name := range result.Columns {
		t.Columns = append(t.Columns, inferColumn(name, result.Rows, i))
	}
	return t, nil
}

func (c *Connector) GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error) {
	result, err := c.fetchEndpoint(ctx, conn, table)
	if err != nil {
		return 0, err
	}
	return int64(result.RowCount), nil
}

func (c *Connector) GetDatabaseInfo(_ context.Context, conn *core.Connection) (map[string]any, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	total, failed := c.client.Stats()
	return map[string]any{
		"type":            c.Type(),
		"base_url":        h.baseURL,
		"endpoints":       len(h.endpoints),
		"total_requests":  total,
		"failed_requests": failed,
	}, nil
}

// ExecuteQuery performs one HTTP request and flattens the JSON response.
func (c *Connector) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, _ ...any) (*core.QueryResult, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	cmd, _ := core.ParseCommand(query)
	var body []byte
	if cmd.Arg != "" {
		body = []byte(cmd.Arg)
	}

	started := time.Now()
	resp, err := c.client.Do(ctx, cmd.Verb, joinURL(h.baseURL, cmd.Target), h.headers, body)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}
	if !resp.OK() {
		err := errors.Newf(errors.ErrorTypeQuery, "%s %s returned status %d",
			cmd.Verb, cmd.Target, resp.StatusCode).WithDetail("query", query)
		c.ObserveQuery(started, nil, err)
		return nil, err
	}

	result, err := resultFromJSON(query, resp.Body)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}
	result.Metadata = map[string]any{
		"status_code": resp.StatusCode,
		"endpoint":    cmd.Target,
	}

	c.ObserveQuery(started, result, nil)
	return result, nil
}

// ExecuteQueryWithLimit materializes the response and truncates it; HTTP
// APIs have no uniform server-side limit mechanism.
func (c *Connector) ExecuteQueryWithLimit(ctx context.Context, conn *core.Connection, query string, limit int, params ...any) (*core.QueryResult, error) {
	result, err := c.ExecuteQuery(ctx, conn, query, params...)
	if err != nil {
		return nil, err
	}
	result.Truncate(limit)
	return result, nil
}

func (c *Connector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.ExecuteQueryWithLimit(ctx, conn, "GET:"+table, limit)
}

// ValidateQuery accepts METHOD:<endpoint>[:<body>] commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, verbs...)
}

func (c *Connector) GetQueryPlan(_ context.Context, conn *core.Connection, query string) (string, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}
	cmd, _ := core.ParseCommand(query)
	return c.SynthesizePlan(cmd.Verb, cmd.Target, -1), nil
}

func (c *Connector) buildHandle(cfg *config.ConnectionConfig) (*handle, error) {
	if err := cfg.RequireFields("base_url"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid API configuration")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf(errors.ErrorTypeValidation, "invalid base URL %q", cfg.BaseURL)
	}

	headers := map[string]string{"Accept": "application/json"}
	if cfg.AccessToken != "" {
		headers["Authorization"] = "Bearer " + cfg.AccessToken
	}
	for k, v := range cfg.Additional {
		if name, ok := strings.CutPrefix(k, "header_"); ok {
			headers[name] = v
		}
	}

	h := &handle{baseURL: strings.TrimRight(cfg.BaseURL, "/"), headers: headers}
	for _, e := range strings.Split(cfg.Get("endpoints", ""), ",") {
		if e = strings.TrimSpace(e); e != "" {
			h.endpoints = append(h.endpoints, e)
		}
	}
	return h, nil
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

func (c *Connector) fetchEndpoint(ctx context.Context, conn *core.Connection, endpoint string) (*core.QueryResult, error) {
	return c.ExecuteQuery(ctx, conn, "GET:"+endpoint)
}

// joinURL resolves an endpoint path against the base URL. Targets are
// always paths; the command grammar cannot carry an absolute URL.
func joinURL(baseURL, path string) string {
	if path == "" || path == "/" {
		return baseURL
	}
	return baseURL + "/" + strings.TrimLeft(path, "/")
}

func inferColumn(name string, rows [][]any, idx int) core.Column {
	col := core.Column{Name: name, Type: core.ColumnTypeString, Nullable: true}

	for _, row := range rows {
		if idx >= len(row) || row[idx] == nil {
			continue
		}
		switch row[idx].(type) {
		case int64:
			col.Type = core.ColumnTypeInteger
		case float64:
			col.Type = core.ColumnTypeFloat
		case bool:
			col.Type = core.ColumnTypeBoolean
		case map[string]any, []any:
			col.Type = core.ColumnTypeJSON
		default:
			col.Type = core.ColumnTypeString
		}
		break
	}

	for _, row := range rows {
		if idx < len(row) && row[idx] != nil {
			col.SampleValues = append(col.SampleValues, row[idx])
			if len(col.SampleValues) == core.MaxSampleValues {
				break
			}
		}
	}
	return col
}
