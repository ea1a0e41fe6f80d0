// Package gdocs implements the Google Docs connector over the Docs API.
// A document is one table of paragraphs; queries use the READ_DOC:<doc>
// form where the target is "all", a 1-based paragraph number or a
// substring match.
package gdocs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	docs "google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

const verb = "READ_DOC"

// Connector implements core.Connector for Google Docs.
type Connector struct {
	*base.Connector
}

// New constructs the Google Docs connector.
func New() *Connector {
	return &Connector{Connector: base.NewConnector("google_docs", Capabilities())}
}

// Capabilities returns the static Google Docs capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections:      2,
		SupportedDataTypes:  []core.ColumnType{core.ColumnTypeString, core.ColumnTypeInteger},
		SupportedOperations: []string{verb},
	}
}

type handle struct {
	svc        *docs.Service
	documentID string
	title      string
}

// TestConnection builds an API client from the token and fetches the
// document's metadata.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	if err := cfg.RequireFields("access_token", "document_id"); err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeValidation, "invalid Docs configuration"), 0)
	}

	connStart := time.Now()
	svc, err := newService(ctx, cfg.AccessToken)
	if err != nil {
		return c.FailTest(err, base.ElapsedMs(connStart))
	}
	connectionMs := base.ElapsedMs(connStart)

	queryStart := time.Now()
	doc, err := svc.Documents.Get(cfg.Get("document_id", "")).Context(ctx).Do()
	if err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeConnection, "cannot fetch document"), connectionMs)
	}

	return c.PassTest(connectionMs, base.ElapsedMs(queryStart), map[string]any{
		"title":           doc.Title,
		"paragraph_count": len(extractParagraphs(doc)),
	})
}

// Connect builds the API client and verifies the document exists.
func (c *Connector) Connect(ctx context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	if err := cfg.RequireFields("access_token", "document_id"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid Docs configuration")
	}

	svc, err := newService(ctx, cfg.AccessToken)
	if err != nil {
		return nil, err
	}

	documentID := cfg.Get("document_id", "")
	doc, err := svc.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("cannot fetch document %s", documentID))
	}

	conn := c.NewConnection(cfg)
	conn.Database = doc.Title
	conn.Handle = &handle{svc: svc, documentID: documentID, title: doc.Title}
	return conn, nil
}

// Disconnect drops the API client. Calling it twice is harmless.
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

// GetTableList returns the one logical table, named after the document.
func (c *Connector) GetTableList(_ context.Context, conn *core.Connection) ([]string, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}
	return []string{h.title}, nil
}

func (c *Connector) GetColumnList(_ context.Context, conn *core.Connection, table string) ([]string, error) {
	if err := c.checkTable(conn, table); err != nil {
		return nil, err
	}
	return []string{"paragraph", "content"}, nil
}

func (c *Connector) GetColumnInfo(_ context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	if err := c.checkTable(conn, table); err != nil {
		return nil, err
	}

	switch column {
	case "paragraph":
		return &core.Column{Name: "paragraph", Type: core.ColumnTypeInteger}, nil
	case "content":
		return &core.Column{Name: "content", Type: core.ColumnTypeString, Nullable: true}, nil
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "column %s not found in %s", column, table)
}

func (c *Connector) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	count, err := c.GetTableRowCount(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	return &core.Table{
		Name: table,
		Kind: core.TableKindTable,
		Columns: []core.Column{
			{Name: "paragraph", Type: core.ColumnTypeInteger},
			{Name: "content", Type: core.ColumnTypeString, Nullable: true},
		},
		RowCount: count,
	}, nil
}

func (c *Connector) GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error) {
	if err := c.checkTable(conn, table); err != nil {
		return 0, err
	}
	paragraphs, err := c.fetchParagraphs(ctx, conn)
	if err != nil {
		return 0, err
	}
	return int64(len(paragraphs)), nil
}

func (c *Connector) GetDatabaseInfo(ctx context.Context, conn *core.Connection) (map[string]any, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	paragraphs, err := c.fetchParagraphs(ctx, conn)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"type":        c.Type(),
		"document_id": h.documentID,
		"title":       h.title,
		"paragraphs":  len(paragraphs),
	}, nil
}

// ExecuteQuery runs a READ_DOC command against the live document.
func (c *Connector) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, _ ...any) (*core.QueryResult, error) {
	return c.execute(ctx, conn, query, -1)
}

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

	cmd, _ := core.ParseCommand(query)
	started := time.Now()

	paragraphs, err := c.fetchParagraphs(ctx, conn)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}

	selected, err := selectParagraphs(paragraphs, cmd.Target)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}

	result := &core.QueryResult{
		Columns:  []string{"paragraph", "content"},
		Query:    query,
		Metadata: map[string]any{"paragraph_count": len(paragraphs)},
	}
	for _, p := range selected {
		if limit >= 0 && len(result.Rows) >= limit {
			break
		}
		result.Rows = append(result.Rows, []any{int64(p.index), p.content})
	}
	result.RowCount = len(result.Rows)

	c.ObserveQuery(started, result, nil)
	return result, nil
}

func (c *Connector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if err := c.checkTable(conn, table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return c.ExecuteQueryWithLimit(ctx, conn, verb+":all", limit)
}

// ValidateQuery accepts READ_DOC:<doc> commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, verb)
}

func (c *Connector) GetQueryPlan(ctx context.Context, conn *core.Connection, query string) (string, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	cmd, _ := core.ParseCommand(query)
	rows := int64(-1)
	if paragraphs, err := c.fetchParagraphs(ctx, conn); err == nil {
		rows = int64(len(paragraphs))
	}
	return c.SynthesizePlan(verb, cmd.Target, rows), nil
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

func (c *Connector) checkTable(conn *core.Connection, table string) error {
	h, err := c.handle(conn)
	if err != nil {
		return err
	}
	if table != h.title {
		return errors.Newf(errors.ErrorTypeNotFound, "unknown table %q", table)
	}
	return nil
}

func (c *Connector) fetchParagraphs(ctx context.Context, conn *core.Connection) ([]string, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	doc, err := h.svc.Documents.Get(h.documentID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery,
			fmt.Sprintf("failed to fetch document %s", h.documentID))
	}
	return extractParagraphs(doc), nil
}

// extractParagraphs flattens the document body into ordered paragraph
// text, skipping empty paragraphs and non-paragraph elements (tables,
// section breaks).
func extractParagraphs(doc *docs.Document) []string {
	if doc.Body == nil {
		return nil
	}

	var paragraphs []string
	for _, el := range doc.Body.Content {
		if el.Paragraph == nil {
			continue
		}
		var b strings.Builder
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				b.WriteString(pe.TextRun.Content)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

type paragraph struct {
	index   int // 1-based
	content string
}

func selectParagraphs(paragraphs []string, target string) ([]paragraph, error) {
	all := make([]paragraph, 0, len(paragraphs))
	for i, content := range paragraphs {
		all = append(all, paragraph{index: i + 1, content: content})
	}

	if strings.EqualFold(target, "all") || target == "*" {
		return all, nil
	}

	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(paragraphs) {
			return nil, errors.Newf(errors.ErrorTypeNotFound,
				"paragraph %d out of range 1..%d", n, len(paragraphs))
		}
		return all[n-1 : n], nil
	}

	var matched []paragraph
	needle := strings.ToLower(target)
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.content), needle) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func newService(ctx context.Context, accessToken string) (*docs.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := docs.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to build Docs client")
	}
	return svc, nil
}
