// Package wordfile implements the Word connector. A .docx document is
// one table of paragraphs; queries use the EXTRACT_TEXT:<paragraph>
// form. The document body is read straight out of the OOXML package.
package wordfile

import (
	"archive/zip"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/filebase"
)

// New constructs the Word connector.
func New() *filebase.DocConnector {
	base := filebase.NewConnector("word", "Word", Capabilities(), ".docx")
	return filebase.NewDocConnector(base, "EXTRACT_TEXT", "paragraph", readParagraphs)
}

// Capabilities returns the static Word capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections:      1,
		SupportedDataTypes:  []core.ColumnType{core.ColumnTypeString, core.ColumnTypeInteger},
		SupportedOperations: []string{"EXTRACT_TEXT"},
	}
}

func readParagraphs(path string) ([]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	return filebase.ExtractZipEntryParagraphs(archive, "word/document.xml")
}
