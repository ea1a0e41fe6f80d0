// Package filebase extends the connector base for file-backed sources:
// CSV, Excel, plain text, PDF, Word and PowerPoint. It owns the shared
// path validation, extension checking, the stat-based connection test
// and the file-handle lifecycle.
package filebase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

// Connector is the shared foundation for file connectors. Concrete
// connectors embed it and implement the read path.
type Connector struct {
	*base.Connector

	// fileType is the human label used in test metadata ("CSV", "PDF").
	fileType string

	// extensions are the accepted file extensions, lowercase with dot.
	extensions []string
}

// NewConnector creates the shared file connector base.
func NewConnector(typ, fileType string, caps *core.Capabilities, extensions ...string) *Connector {
	return &Connector{
		Connector:  base.NewConnector(typ, caps),
		fileType:   fileType,
		extensions: extensions,
	}
}

// FileType returns the human label for this connector's format.
func (f *Connector) FileType() string {
	return f.fileType
}

// ResolvePath resolves the configured location to the path all reads go
// through. FilePath may be either the containing directory or the full
// path to the file itself; when it already names the file, FileName is
// not joined on again.
func (f *Connector) ResolvePath(cfg *config.ConnectionConfig) string {
	if cfg.FileName == "" || filepath.Base(cfg.FilePath) == cfg.FileName {
		return cfg.FilePath
	}
	return filepath.Join(cfg.FilePath, cfg.FileName)
}

// ValidateConfig checks required fields and that the file name carries
// an accepted extension.
func (f *Connector) ValidateConfig(cfg *config.ConnectionConfig) error {
	if err := cfg.RequireFields("file_path", "file_name"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "invalid file configuration")
	}

	ext := strings.ToLower(filepath.Ext(cfg.FileName))
	for _, allowed := range f.extensions {
		if ext == allowed {
			return nil
		}
	}
	return errors.Newf(errors.ErrorTypeValidation,
		"%s is not a %s file (expected %s)", cfg.FileName, f.fileType, strings.Join(f.extensions, ", "))
}

// StatFile validates the config and confirms the file exists and is a
// regular file.
func (f *Connector) StatFile(cfg *config.ConnectionConfig) (os.FileInfo, error) {
	if err := f.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	path := f.ResolvePath(cfg)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrorTypeNotFound, "file not found: %s", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("cannot access %s", path))
	}
	if info.IsDir() {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%s is a directory", path)
	}

	return info, nil
}

// TestFile implements the shared shape of TestConnection for files:
// stat the file (connection phase), then run the connector's probe
// (query phase), which typically reads a header or page count.
func (f *Connector) TestFile(_ context.Context, cfg *config.ConnectionConfig, probe func(path string) (map[string]any, error)) *core.TestResult {
	statStart := time.Now()
	info, err := f.StatFile(cfg)
	if err != nil {
		return f.FailTest(err, base.ElapsedMs(statStart))
	}
	connectionMs := base.ElapsedMs(statStart)

	metadata := map[string]any{
		"file_type":  f.fileType,
		"size_bytes": info.Size(),
	}

	probeStart := time.Now()
	if probe != nil {
		extra, err := probe(f.ResolvePath(cfg))
		if err != nil {
			return f.FailTest(errors.Wrap(err, errors.ErrorTypeFile, "file probe failed"), connectionMs)
		}
		for k, v := range extra {
			metadata[k] = v
		}
	}

	return f.PassTest(connectionMs, base.ElapsedMs(probeStart), metadata)
}

// Handle is the backend handle stored on file connections.
type Handle struct {
	Path string
	Info os.FileInfo
}

// Connect validates the file and produces a connection whose handle
// carries the resolved path. Files are opened per read, not held open.
func (f *Connector) Connect(_ context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	info, err := f.StatFile(cfg)
	if err != nil {
		return nil, err
	}

	conn := f.NewConnection(cfg)
	conn.Database = cfg.FileName
	conn.Handle = &Handle{Path: f.ResolvePath(cfg), Info: info}
	return conn, nil
}

// Disconnect releases nothing beyond the handle; reads open and close
// the file themselves. Calling it twice is harmless.
func (f *Connector) Disconnect(_ context.Context, conn *core.Connection) error {
	if err := f.CheckConnection(conn); err != nil {
		return err
	}
	f.MarkDisconnected(conn)
	return nil
}

// Path extracts the resolved path from a connection.
func (f *Connector) Path(conn *core.Connection) (string, error) {
	if err := f.CheckConnection(conn); err != nil {
		return "", err
	}
	h, ok := conn.Handle.(*Handle)
	if !ok || h == nil {
		return "", errors.New(errors.ErrorTypeConnection, "connection is not open")
	}
	return h.Path, nil
}

// GetDatabaseInfo reports file-level metadata common to all formats.
func (f *Connector) GetDatabaseInfo(_ context.Context, conn *core.Connection) (map[string]any, error) {
	path, err := f.Path(conn)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("cannot access %s", path))
	}

	return map[string]any{
		"type":        f.Type(),
		"file_type":   f.fileType,
		"path":        path,
		"size_bytes":  info.Size(),
		"modified_at": info.ModTime(),
	}, nil
}
