package source

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadBytes_plain(t *testing.T) {
	l := NewLoader()
	got, err := l.LoadBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestLoadBytes_plainInvalidUTF8(t *testing.T) {
	got, err := NewLoader().LoadBytes([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if got != "hello\uFFFDworld" {
		t.Errorf("got %q", got)
	}
}

func TestLoadBytes_unknownExtension(t *testing.T) {
	got, err := NewLoader().LoadBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestLoadBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewLoader().LoadBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func minimalDocx(runs ...string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p w:rsidR="00A1">`
	for _, r := range runs {
		body += `<w:r><w:t xml:space="preserve">` + r + `</w:t></w:r>`
	}
	body += `</w:p></w:body></w:document>`
	_, _ = fw.Write([]byte(body))
	_ = w.Close()
	return buf.Bytes()
}

func TestLoadBytes_docx(t *testing.T) {
	got, err := NewLoader().LoadBytes(minimalDocx("Chunkable", " docx ", "content"), ".docx")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if got != "Chunkable docx content" {
		t.Errorf("got %q", got)
	}
}

func TestLoadBytes_docxNotZip(t *testing.T) {
	if _, err := NewLoader().LoadBytes([]byte("plain"), ".docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestLoad_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestLoad_nonexistent(t *testing.T) {
	if _, err := NewLoader().Load("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
