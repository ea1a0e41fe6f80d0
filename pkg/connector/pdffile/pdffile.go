// Package pdffile implements the PDF connector. A PDF is one table of
// pages; queries use the EXTRACT_TEXT:<page> form.
package pdffile

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/filebase"
)

// New constructs the PDF connector.
func New() *filebase.DocConnector {
	base := filebase.NewConnector("pdf", "PDF", Capabilities(), ".pdf")
	return filebase.NewDocConnector(base, "EXTRACT_TEXT", "page", readPages)
}

// Capabilities returns the static PDF capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections:      1,
		SupportedDataTypes:  []core.ColumnType{core.ColumnTypeString, core.ColumnTypeInteger},
		SupportedOperations: []string{"EXTRACT_TEXT"},
	}
}

// readPages extracts plain text per page. A page whose text cannot be
// decoded contributes an empty unit so page numbering stays aligned
// with the document.
func readPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
