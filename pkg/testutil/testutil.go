// Package testutil provides small helpers shared by connector tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/config"
)

// WriteFile writes content into dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// FileConfig builds a connection config for a file-backed connector.
func FileConfig(connectorType, dir, name string) *config.ConnectionConfig {
	return &config.ConnectionConfig{
		Type:     connectorType,
		Name:     "test-" + connectorType,
		FilePath: dir,
		FileName: name,
	}
}
