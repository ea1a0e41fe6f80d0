package filebase

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ExtractParagraphs pulls the visible text out of a WordprocessingML or
// DrawingML stream: character data inside <t> elements, grouped into
// paragraphs at </p> boundaries. Formatting and everything else is
// discarded.
func ExtractParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	if text := strings.TrimSpace(current.String()); text != "" {
		paragraphs = append(paragraphs, text)
	}

	return paragraphs, nil
}

// ExtractZipEntryParagraphs opens one entry of an OOXML package and
// extracts its paragraphs.
func ExtractZipEntryParagraphs(archive *zip.ReadCloser, name string) ([]string, error) {
	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return ExtractParagraphs(rc)
	}
	return nil, fmt.Errorf("entry %s not found in package", name)
}
