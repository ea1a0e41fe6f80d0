// Package slidefile implements the PowerPoint connector. A .pptx deck
// is one table of slides; queries use the EXTRACT_SLIDE:<slide> form.
// Slide text is read straight out of the OOXML package in deck order.
package slidefile

import (
	"archive/zip"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/filebase"
)

var slideEntry = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// New constructs the PowerPoint connector.
func New() *filebase.DocConnector {
	base := filebase.NewConnector("powerpoint", "PowerPoint", Capabilities(), ".pptx")
	return filebase.NewDocConnector(base, "EXTRACT_SLIDE", "slide", readSlides)
}

// Capabilities returns the static PowerPoint capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections:      1,
		SupportedDataTypes:  []core.ColumnType{core.ColumnTypeString, core.ColumnTypeInteger},
		SupportedOperations: []string{"EXTRACT_SLIDE"},
	}
}

func readSlides(path string) ([]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	// Entry order in the package is arbitrary; deck order comes from the
	// slide number in the entry name.
	type entry struct {
		number int
		name   string
	}
	var entries []entry
	for _, f := range archive.File {
		m := slideEntry.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		entries = append(entries, entry{number: n, name: f.Name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].number < entries[j].number })

	slides := make([]string, 0, len(entries))
	for _, e := range entries {
		paragraphs, err := filebase.ExtractZipEntryParagraphs(archive, e.name)
		if err != nil {
			return nil, err
		}
		slides = append(slides, strings.Join(paragraphs, "\n"))
	}

	return slides, nil
}
