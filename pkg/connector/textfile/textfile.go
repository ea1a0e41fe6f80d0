// Package textfile implements the plain-text connector. A text file is
// one table of sections, split on blank lines; queries use the
// EXTRACT_TEXT:<section> form where the target is "all", a 1-based
// section number or a substring match.
package textfile

import (
	"os"
	"regexp"
	"strings"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/filebase"
)

var sectionSplit = regexp.MustCompile(`\n\s*\n`)

// New constructs the plain-text connector.
func New() *filebase.DocConnector {
	base := filebase.NewConnector("text", "Text", Capabilities(), ".txt", ".md", ".log")
	return filebase.NewDocConnector(base, "EXTRACT_TEXT", "section", readSections)
}

// Capabilities returns the static text-file capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections:      1,
		SupportedDataTypes:  []core.ColumnType{core.ColumnTypeString, core.ColumnTypeInteger},
		SupportedOperations: []string{"EXTRACT_TEXT"},
	}
}

func readSections(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	normalized := strings.ReplaceAll(string(raw), "\r\n", "\n")

	var sections []string
	for _, part := range sectionSplit.Split(normalized, -1) {
		if s := strings.TrimSpace(part); s != "" {
			sections = append(sections, s)
		}
	}
	return sections, nil
}
