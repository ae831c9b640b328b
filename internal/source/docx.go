package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const docxBodyPath = "word/document.xml"

// Text runs may carry attributes (<w:t xml:space="preserve">), so match the element loosely.
var docxTextRun = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// loadDOCX joins the text runs of the main document part with single spaces.
func loadDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	f, err := zr.Open(docxBodyPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %s: %w", docxBodyPath, err)
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", docxBodyPath, err)
	}

	runs := docxTextRun.FindAllSubmatch(body, -1)
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		if s := strings.TrimSpace(string(r[1])); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
