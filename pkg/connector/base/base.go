// Package base provides the shared foundation embedded by every
// connector: identity, capability descriptor, structured logging and the
// contract behaviors that are uniform across backends (test-result
// shaping, query formatting, synthesized plans).
package base

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/errors"
	"github.com/bifrostdata/bifrost/pkg/logger"
	"github.com/bifrostdata/bifrost/pkg/metrics"
)

// Connector holds the state common to all connector implementations.
// Embed it and override the contract methods the backend needs.
type Connector struct {
	typ    string
	caps   *core.Capabilities
	logger *zap.Logger
}

// NewConnector creates the shared base for a connector type. The
// capability descriptor is treated as immutable from this point on.
func NewConnector(typ string, caps *core.Capabilities) *Connector {
	return &Connector{
		typ:    typ,
		caps:   caps,
		logger: logger.ForConnector(typ),
	}
}

// Type returns the registry discriminant.
func (b *Connector) Type() string {
	return b.typ
}

// Capabilities returns the static capability descriptor.
func (b *Connector) Capabilities() *core.Capabilities {
	return b.caps
}

// GetLogger returns the connector logger.
func (b *Connector) GetLogger() *zap.Logger {
	return b.logger
}

// NewConnection builds the ephemeral handle returned by Connect, copying
// the caller's Additional settings so later normalization does not leak
// back into the input config.
func (b *Connector) NewConnection(cfg *config.ConnectionConfig) *core.Connection {
	additional := make(map[string]string, len(cfg.Additional))
	for k, v := range cfg.Additional {
		additional[k] = v
	}

	metrics.ConnectionOpened(b.typ)

	return &core.Connection{
		ID:               uuid.NewString(),
		Type:             b.typ,
		Host:             cfg.Host,
		Port:             cfg.Port,
		Database:         cfg.Database,
		Username:         cfg.Username,
		AdditionalConfig: additional,
		CreatedAt:        time.Now(),
	}
}

// CheckConnection verifies the handle belongs to this connector. Every
// operation taking a Connection calls this first.
func (b *Connector) CheckConnection(conn *core.Connection) error {
	if conn == nil {
		return errors.New(errors.ErrorTypeValidation, "connection is nil")
	}
	if conn.Type != b.typ {
		return errors.Newf(errors.ErrorTypeValidation,
			"connection belongs to connector %q, not %q", conn.Type, b.typ)
	}
	return nil
}

// FailTest builds the failure shape of TestConnection: never an error
// value, always success=false with a renderable message and error_type
// metadata.
func (b *Connector) FailTest(err error, connectionMs int64) *core.TestResult {
	metrics.RecordError(b.typ, string(errors.TypeOf(err)))
	return &core.TestResult{
		Success:          false,
		ConnectionTimeMs: connectionMs,
		Error:            errors.UserMessage(err),
		Metadata: map[string]any{
			"error_type": string(errors.TypeOf(err)),
		},
	}
}

// PassTest builds the success shape of TestConnection.
func (b *Connector) PassTest(connectionMs, queryMs int64, metadata map[string]any) *core.TestResult {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &core.TestResult{
		Success:          true,
		ConnectionTimeMs: connectionMs,
		QueryTimeMs:      queryMs,
		Metadata:         metadata,
	}
}

// FormatQuery collapses runs of whitespace outside quoted regions and
// trims the ends. On any doubt (unbalanced quotes) it returns the input
// unchanged; formatting is cosmetic and must never fail.
func (b *Connector) FormatQuery(query string) string {
	if strings.Count(query, "'")%2 != 0 || strings.Count(query, `"`)%2 != 0 {
		return query
	}

	var out strings.Builder
	out.Grow(len(query))

	inSingle, inDouble := false, false
	lastSpace := false
	for _, r := range strings.TrimSpace(query) {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		}

		if !inSingle && !inDouble && (r == ' ' || r == '\t' || r == '\n' || r == '\r') {
			if !lastSpace {
				out.WriteByte(' ')
			}
			lastSpace = true
			continue
		}

		lastSpace = false
		out.WriteRune(r)
	}

	return out.String()
}

// SynthesizePlan describes what a non-SQL operation will do, since no
// real execution plan exists for file reads, API calls or scrapes.
// estimatedRows may be -1 when unknown.
func (b *Connector) SynthesizePlan(operation, target string, estimatedRows int64) string {
	cardinality := "unknown"
	if estimatedRows >= 0 {
		cardinality = fmt.Sprintf("~%d rows", estimatedRows)
	}
	return fmt.Sprintf("%s connector plan:\n  operation: %s\n  target: %s\n  estimated cardinality: %s",
		b.typ, operation, target, cardinality)
}

// ObserveQuery records metrics for one execution and stamps the result's
// execution time from the started timer.
func (b *Connector) ObserveQuery(started time.Time, result *core.QueryResult, err error) {
	elapsed := time.Since(started)
	rows := 0
	if result != nil {
		result.ExecutionTimeMs = elapsed.Milliseconds()
		rows = result.RowCount
	}
	metrics.ObserveQuery(b.typ, elapsed, rows, err)
}

// CloseLogged runs a cleanup function, logging failures without hiding
// the connection teardown from the metrics gauge. Disconnect paths use
// it to stay idempotent.
func (b *Connector) CloseLogged(what string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		b.logger.Warn("cleanup failed", zap.String("resource", what), zap.Error(err))
	}
}

// MarkDisconnected updates the connection gauge once per handle.
func (b *Connector) MarkDisconnected(conn *core.Connection) {
	if conn != nil && conn.Handle != nil {
		conn.Handle = nil
		metrics.ConnectionClosed(b.typ)
	}
}

// ElapsedMs returns whole milliseconds since started, never negative.
func ElapsedMs(started time.Time) int64 {
	ms := time.Since(started).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
