// Package clients provides the shared HTTP client used by the external
// service connectors (REST APIs, web pages).
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/bifrostdata/bifrost/pkg/errors"
)

// Config configures the HTTP client.
type Config struct {
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`

	DialTimeout         time.Duration `json:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout"`
	RequestTimeout      time.Duration `json:"request_timeout"`

	EnableHTTP2 bool `json:"enable_http2"`

	// MaxResponseBytes caps how much of a response body is read; zero
	// means 10 MiB.
	MaxResponseBytes int64 `json:"max_response_bytes"`

	UserAgent string `json:"user_agent"`
}

// DefaultConfig returns sane defaults for connector traffic.
func DefaultConfig() *Config {
	return &Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		RequestTimeout:      30 * time.Second,
		EnableHTTP2:         true,
		MaxResponseBytes:    10 << 20,
		UserAgent:           "bifrost-connector/1.0",
	}
}

// Client wraps http.Client with pooled transport, request accounting
// and bounded body reads.
type Client struct {
	config *Config
	logger *zap.Logger
	http   *http.Client

	totalRequests  int64
	failedRequests int64
}

// New creates an HTTP client from a config. A nil config gets defaults.
func New(cfg *Config, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if cfg.EnableHTTP2 {
		// Errors here leave a working HTTP/1.1 transport.
		_ = http2.ConfigureTransport(transport)
	}

	return &Client{
		config: cfg,
		logger: logger,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to decode JSON response")
	}
	return nil
}

// Do performs one request and reads the body up to the configured cap.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation,
			fmt.Sprintf("invalid request %s %s", method, url))
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	atomic.AddInt64(&c.totalRequests, 1)

	resp, err := c.http.Do(req)
	if err != nil {
		atomic.AddInt64(&c.failedRequests, 1)
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("request failed: %s %s", method, url))
	}
	defer resp.Body.Close()

	maxBytes := c.config.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		atomic.AddInt64(&c.failedRequests, 1)
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body")
	}

	elapsed := time.Since(started)
	c.logger.Debug("http request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", elapsed))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Elapsed:    elapsed,
	}, nil
}

// Stats returns total and failed request counts.
func (c *Client) Stats() (total, failed int64) {
	return atomic.LoadInt64(&c.totalRequests), atomic.LoadInt64(&c.failedRequests)
}
