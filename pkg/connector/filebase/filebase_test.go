package filebase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/testutil"
)

func newTextConnector() *Connector {
	return NewConnector("text", "Text", &core.Capabilities{}, ".txt")
}

func TestResolvePath(t *testing.T) {
	c := newTextConnector()

	tests := []struct {
		name     string
		filePath string
		fileName string
		want     string
	}{
		{
			name:     "directory plus name",
			filePath: "/data",
			fileName: "notes.txt",
			want:     filepath.Join("/data", "notes.txt"),
		},
		{
			name:     "file_path already names the file",
			filePath: "/data/notes.txt",
			fileName: "notes.txt",
			want:     "/data/notes.txt",
		},
		{
			name:     "no file name",
			filePath: "/data/notes.txt",
			fileName: "",
			want:     "/data/notes.txt",
		},
		{
			name:     "different name under a matching directory",
			filePath: "/data/notes.txt",
			fileName: "other.txt",
			want:     filepath.Join("/data/notes.txt", "other.txt"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ConnectionConfig{FilePath: tt.filePath, FileName: tt.fileName}
			assert.Equal(t, tt.want, c.ResolvePath(cfg))
		})
	}
}

func TestTestFileAcceptsFullPath(t *testing.T) {
	c := newTextConnector()
	full := testutil.WriteFile(t, t.TempDir(), "notes.txt", "hello")

	cfg := &config.ConnectionConfig{Type: "text", FilePath: full, FileName: "notes.txt"}
	result := c.TestFile(context.Background(), cfg, nil)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Text", result.Metadata["file_type"])
}

func TestStatFileRejectsDirectory(t *testing.T) {
	c := newTextConnector()
	sub := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	_, err := c.StatFile(&config.ConnectionConfig{FilePath: sub, FileName: "data.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}
