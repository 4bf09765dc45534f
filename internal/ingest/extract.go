package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// maxFileSize bounds a single input document.
const maxFileSize = 20 << 20

// File is the extracted text of one input document.
type File struct {
	Name string
	Text string
}

// ReadFile extracts text from path. PDFs go through a text extractor; any
// other file must be UTF-8 text.
func ReadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("reading %s: is a directory", path)
	}
	if info.Size() > maxFileSize {
		return File{}, fmt.Errorf("reading %s: file exceeds %d bytes", path, maxFileSize)
	}

	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := readPDF(path)
		if err != nil {
			return File{}, fmt.Errorf("extracting text from %s: %w", name, err)
		}
		return File{Name: name, Text: text}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return File{}, fmt.Errorf("reading %s: not a UTF-8 text file", name)
	}
	return File{Name: name, Text: string(data)}, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ReadFiles extracts every path concurrently and returns the results in
// input order. The first failure cancels the rest.
func ReadFiles(ctx context.Context, paths []string) ([]File, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	files := make([]File, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, p := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			f, err := ReadFile(p)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
