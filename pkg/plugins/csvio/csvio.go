// Package csvio reads and writes tables as delimited text files.
package csvio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Option keys of the CSV plugins.
const (
	// OptPath is the file read or written.
	OptPath = "path"
	// OptDelimiter is the single character separating cells.
	OptDelimiter = "delimiter"
)

func delimiter(o *plugin.Options) (rune, error) {
	s, err := o.String(OptDelimiter)
	if err != nil {
		return 0, err
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, &plugin.InvalidOptionError{Key: OptDelimiter, Reason: "must be a single character"}
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func path(o *plugin.Options) (string, error) {
	p, err := o.String(OptPath)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", &plugin.InvalidOptionError{Key: OptPath, Reason: "is empty"}
	}
	return p, nil
}

func newOptions() *plugin.Options {
	return plugin.NewOptions().
		Default(OptPath, "").
		Default(OptDelimiter, ",")
}

// Reader loads a delimited file with a header row.
type Reader struct {
	opts *plugin.Options
}

// NewReader creates a CSV reader.
func NewReader() *Reader {
	return &Reader{opts: newOptions()}
}

// Describe returns the catalogue entry of Reader.
func (r *Reader) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "CSV Reader",
		Synopsis:    "Loads a delimited text file",
		Description: "Reads a file with a header row; the delimiter defaults to a comma.",
		Version:     "1.0",
		MaxInputs:   0,
		MaxOutputs:  plugin.Unlimited,
	}
}

// Options returns the options of Reader.
func (r *Reader) Options() *plugin.Options { return r.opts }

// Read loads the file; the table is named after the file.
func (r *Reader) Read(ctx context.Context) (*domain.Table, error) {
	p, err := path(r.opts)
	if err != nil {
		return nil, err
	}
	d, err := delimiter(r.opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	t, err := domain.ReadCSV(filepath.Base(p), f, d)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return t, nil
}

// Writer saves a table as a delimited file, replacing it atomically.
type Writer struct {
	opts *plugin.Options
}

// NewWriter creates a CSV writer.
func NewWriter() *Writer {
	return &Writer{opts: newOptions()}
}

// Describe returns the catalogue entry of Writer.
func (w *Writer) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "CSV Writer",
		Synopsis:   "Saves a table as a delimited text file",
		Version:    "1.0",
		MaxInputs:  1,
		MaxOutputs: 1,
	}
}

// Options returns the options of Writer.
func (w *Writer) Options() *plugin.Options { return w.opts }

// Write replaces the file with t. The file is written to a temporary
// name first and renamed into place.
func (w *Writer) Write(ctx context.Context, t *domain.Table, aux domain.DataCollection) error {
	if t == nil {
		return errors.New("nothing to write")
	}
	p, err := path(w.opts)
	if err != nil {
		return err
	}
	d, err := delimiter(w.opts)
	if err != nil {
		return err
	}

	data, err := domain.EncodeCSV(t, d)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".pdq-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace %s: %w", p, err)
	}
	return nil
}
