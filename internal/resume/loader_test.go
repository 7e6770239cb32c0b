package resume

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amishk599/jobsieve/internal/model"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Backend engineer </w:t></w:r><w:r><w:t>&amp; Go developer</w:t></w:r></w:p>` +
	`<w:p></w:p>` +
	`<w:p><w:r><w:t>Skills:</w:t></w:r><w:r><w:tab/><w:t>Go, PostgreSQL</w:t></w:r><w:r><w:br/><w:t>Kubernetes</w:t></w:r></w:p>` +
	`</w:body></w:document>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

// writeDocx builds a minimal .docx with the given document body.
func writeDocx(t *testing.T, path, body string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"word/document.xml":            body,
		"word/_rels/document.xml.rels": documentRels,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("Jane Doe\nGo developer\n"), 0644); err != nil {
		t.Fatal(err)
	}

	text, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if text != "Jane Doe\nGo developer\n" {
		t.Errorf("text = %q", text)
	}
}

func TestLoad_Docx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.docx")
	writeDocx(t, path, documentXML)

	text, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := "Jane Doe\nBackend engineer & Go developer\n\nSkills: Go, PostgreSQL\nKubernetes"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
	if strings.Contains(text, "<w:") {
		t.Errorf("markup left in text: %q", text)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	for _, name := range []string{"resume.txt", "resume.docx"} {
		_, err := Load(filepath.Join(t.TempDir(), name))
		if !errors.Is(err, model.ErrMissingReferenceDocument) {
			t.Errorf("Load(%s) = %v, want ErrMissingReferenceDocument", name, err)
		}
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("  \n\t\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, model.ErrMissingReferenceDocument) {
		t.Fatalf("Load = %v, want ErrMissingReferenceDocument", err)
	}
}

func TestLoad_CorruptDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for corrupt docx")
	}
	if errors.Is(err, model.ErrMissingReferenceDocument) {
		t.Error("corrupt file should not be reported as missing")
	}
}
