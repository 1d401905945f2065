package fasta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

// DefaultWidth is the number of sequence characters per output line.
const DefaultWidth = 70

// Writer writes FASTA records with a fixed line width.
type Writer struct {
	w     *bufio.Writer
	width int
}

// NewWriter creates a FASTA writer. A width <= 0 selects DefaultWidth.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Writer{
		w:     bufio.NewWriterSize(w, 1<<20),
		width: width,
	}
}

// WriteRecord writes a header line ">id desc" followed by seq wrapped at the
// configured width. The description is omitted when empty.
func (fw *Writer) WriteRecord(id, desc string, seq []byte) error {
	header := ">" + id
	if desc != "" {
		header += " " + desc
	}
	if _, err := fw.w.WriteString(header + "\n"); err != nil {
		return err
	}

	for off := 0; off < len(seq); off += fw.width {
		end := min(off+fw.width, len(seq))
		if _, err := fw.w.Write(seq[off:end]); err != nil {
			return err
		}
		if err := fw.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}

// WriteFile writes a single-record FASTA file. Output goes to a temporary
// file in the destination directory and is renamed into place only after
// it has been completely written, so a failed write never leaves a partial
// file at path. Paths ending in ".gz" are gzip-compressed.
func WriteFile(path, id, desc string, seq []byte, width int) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var (
		out io.Writer = tmp
		gz  *pgzip.Writer
	)
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz = pgzip.NewWriter(tmp)
		out = gz
	}

	fw := NewWriter(out, width)
	if err := fw.WriteRecord(id, desc, seq); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := fw.Flush(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return &WriteError{Path: path, Err: fmt.Errorf("close gzip stream: %w", err)}
		}
	}
	if err := tmp.Sync(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// WriteError reports a failure writing patched output.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write FASTA: %v", e.Err)
	}
	return fmt.Sprintf("write FASTA %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
