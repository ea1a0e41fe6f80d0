package webpage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Release Notes</title>
  <style>p { color: red }</style>
  <script>var tracking = "ignored";</script>
</head>
<body>
  <h1>Version 2.0</h1>
  <h2>Highlights</h2>
  <p>Faster <b>schema</b> discovery.</p>
  <ul><li>New CSV reader</li></ul>
  <p></p>
  <a href="/changelog">Full changelog</a>
  <a href="#top">Back to top</a>
  <noscript><p>Enable JavaScript</p></noscript>
</body>
</html>`

func TestParsePage(t *testing.T) {
	page, err := parsePage([]byte(sampleHTML))
	require.NoError(t, err)

	assert.Equal(t, "Release Notes", page.Title)
	assert.Equal(t, []string{"Version 2.0", "Highlights"}, page.Headings)
	assert.Equal(t, []string{"Faster schema discovery.", "New CSV reader"}, page.Paragraphs)
	assert.Equal(t, []string{"/changelog"}, page.Links, "anchor-only links are dropped")
}

func TestParsePageSkipsScriptAndStyle(t *testing.T) {
	page, err := parsePage([]byte(sampleHTML))
	require.NoError(t, err)

	for _, para := range page.Paragraphs {
		assert.NotContains(t, para, "tracking")
		assert.NotContains(t, para, "color")
		assert.NotContains(t, para, "JavaScript")
	}
}

func TestPageRows(t *testing.T) {
	page, err := parsePage([]byte(sampleHTML))
	require.NoError(t, err)

	t.Run("title", func(t *testing.T) {
		rows := page.rows("title")
		require.Len(t, rows, 1)
		assert.Equal(t, []any{"title", "Release Notes"}, rows[0])
	})

	t.Run("headings", func(t *testing.T) {
		assert.Len(t, page.rows("headings"), 2)
	})

	t.Run("text aliases paragraphs", func(t *testing.T) {
		assert.Equal(t, page.rows("paragraphs"), page.rows("text"))
	})

	t.Run("all concatenates sections", func(t *testing.T) {
		rows := page.rows("all")
		assert.Len(t, rows, 1+2+2+1)
		assert.Equal(t, "title", rows[0][0])
	})

	t.Run("substring fallback", func(t *testing.T) {
		rows := page.rows("csv")
		require.Len(t, rows, 1)
		assert.Equal(t, "New CSV reader", rows[0][1])
	})

	t.Run("no match is empty", func(t *testing.T) {
		assert.Empty(t, page.rows("zebra"))
	})
}
