package filebase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:r><w:t>First </w:t></w:r>
      <w:r><w:rPr><w:b/></w:rPr><w:t>paragraph.</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>Second paragraph.</w:t></w:r>
    </w:p>
    <w:p/>
  </w:body>
</w:document>`

func TestExtractParagraphs(t *testing.T) {
	paragraphs, err := ExtractParagraphs(strings.NewReader(wordXML))
	require.NoError(t, err)

	assert.Equal(t, []string{"First paragraph.", "Second paragraph."}, paragraphs)
}

func TestExtractParagraphsIgnoresNonTextNodes(t *testing.T) {
	xml := `<doc><p><pPr>style noise</pPr><t>kept</t></p></doc>`

	paragraphs, err := ExtractParagraphs(strings.NewReader(xml))
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, paragraphs)
}

func TestExtractParagraphsEmptyDocument(t *testing.T) {
	paragraphs, err := ExtractParagraphs(strings.NewReader(`<doc/>`))
	require.NoError(t, err)
	assert.Empty(t, paragraphs)
}

func TestExtractParagraphsInvalidXML(t *testing.T) {
	_, err := ExtractParagraphs(strings.NewReader(`<doc><p>`))
	// An unterminated document is reported, not silently truncated.
	require.Error(t, err)
}
