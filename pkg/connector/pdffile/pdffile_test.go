package pdffile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/pdffile"
	"github.com/bifrostdata/bifrost/pkg/testutil"
)

func TestTestConnection(t *testing.T) {
	c := pdffile.New()
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		result := c.TestConnection(context.Background(), testutil.FileConfig("pdf", dir, "absent.pdf"))
		require.False(t, result.Success)
		assert.Equal(t, "not_found", result.Metadata["error_type"])
	})

	t.Run("wrong extension", func(t *testing.T) {
		testutil.WriteFile(t, dir, "report.txt", "not a pdf")

		result := c.TestConnection(context.Background(), testutil.FileConfig("pdf", dir, "report.txt"))
		require.False(t, result.Success)
		assert.Equal(t, "validation", result.Metadata["error_type"])
	})

	t.Run("corrupt file", func(t *testing.T) {
		testutil.WriteFile(t, dir, "broken.pdf", "not really a pdf")

		result := c.TestConnection(context.Background(), testutil.FileConfig("pdf", dir, "broken.pdf"))
		assert.False(t, result.Success)
	})
}

func TestValidateQuery(t *testing.T) {
	c := pdffile.New()

	assert.True(t, c.ValidateQuery("EXTRACT_TEXT:all").Valid)
	assert.True(t, c.ValidateQuery("EXTRACT_TEXT:2").Valid)
	assert.True(t, c.ValidateQuery("extract_text:summary").Valid)
	assert.False(t, c.ValidateQuery("").Valid)
	assert.False(t, c.ValidateQuery("EXTRACT_TEXT:").Valid)
	assert.False(t, c.ValidateQuery("READ_CSV:1").Valid)
}

func TestCapabilities(t *testing.T) {
	caps := pdffile.Capabilities()
	assert.Equal(t, []string{"EXTRACT_TEXT"}, caps.SupportedOperations)
}
