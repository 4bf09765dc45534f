package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadFile_Text(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "reqs.md", []byte("# R1\nMust log in\n"))

	f, err := ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.Name != "reqs.md" || f.Text != "# R1\nMust log in\n" {
		t.Errorf("File = %+v", f)
	}
}

func TestReadFile_RejectsBinary(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "blob.bin", []byte{0xff, 0xfe, 0x00, 0x81})

	if _, err := ReadFile(p); err == nil || !strings.Contains(err.Error(), "UTF-8") {
		t.Errorf("err = %v, want UTF-8 error", err)
	}
}

func TestReadFile_BrokenPDF(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "reqs.PDF", []byte("not a pdf"))

	if _, err := ReadFile(p); err == nil {
		t.Error("expected error for malformed PDF")
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadFiles_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		paths = append(paths, writeTemp(t, dir, name, []byte("content of "+name)))
	}

	files, err := ReadFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("ReadFiles: %v", err)
	}
	for i, name := range []string{"c.txt", "a.txt", "b.txt"} {
		if files[i].Name != name || files[i].Text != "content of "+name {
			t.Errorf("files[%d] = %+v", i, files[i])
		}
	}
}

func TestReadFiles_FailsOnAnyError(t *testing.T) {
	dir := t.TempDir()
	good := writeTemp(t, dir, "ok.txt", []byte("ok"))

	if _, err := ReadFiles(context.Background(), []string{good, filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("expected error")
	}
}

func TestReadFiles_Empty(t *testing.T) {
	files, err := ReadFiles(context.Background(), nil)
	if err != nil || files != nil {
		t.Errorf("ReadFiles(nil) = %v, %v", files, err)
	}
}
