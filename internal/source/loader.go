// Package source turns files into chunk text and feeds it to a collector.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

// Loader reads document files as plain text.
type Loader struct{}

// NewLoader returns a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the file at path and returns its text. The format is chosen by extension;
// unknown extensions are read as plain text.
func (l *Loader) Load(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return l.LoadBytes(content, strings.ToLower(filepath.Ext(path)))
}

// LoadBytes returns the text of content. ext includes the leading dot (e.g. ".pdf").
func (l *Loader) LoadBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return loadPDF(content)
	case ".docx":
		return loadDOCX(content)
	case ".odt", ".rtf":
		text, err := cat.FromBytes(content)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", ext, err)
		}
		return strings.TrimSpace(text), nil
	case ".xlsx":
		return loadExcel(content)
	default:
		return loadPlain(content), nil
	}
}

// loadPlain replaces invalid UTF-8 sequences with the replacement character.
func loadPlain(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd")
	}
	return string(content)
}

func loadPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// loadExcel writes one line per row, cells separated by tabs, sheets in workbook order.
func loadExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}
