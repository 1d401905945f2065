// Package fileio opens plain or gzip-compressed input files.
package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// gzip magic number (0x1f, 0x8b)
const (
	gzipMagic0 = 0x1f
	gzipMagic1 = 0x8b
)

// Source is an opened input stream. Close releases the decompressor and the
// underlying file, if any.
type Source struct {
	io.Reader
	file *os.File
	gz   *pgzip.Reader
}

// Option configures Open.
type Option func(*options)

type options struct {
	wrap func(io.Reader) io.Reader
}

// WithRawReader wraps the raw (possibly compressed) byte stream before
// decompression. It is used to attach byte-level progress reporting.
func WithRawReader(wrap func(io.Reader) io.Reader) Option {
	return func(o *options) {
		o.wrap = wrap
	}
}

// Open opens path for reading. Gzipped content is detected by magic bytes,
// not by extension. The path "-" reads from stdin.
func Open(path string, opts ...Option) (*Source, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if path == "-" {
		return NewSource(o.apply(os.Stdin))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	src, err := NewSource(o.apply(file))
	if err != nil {
		file.Close()
		return nil, err
	}
	src.file = file
	return src, nil
}

func (o options) apply(r io.Reader) io.Reader {
	if o.wrap == nil {
		return r
	}
	return o.wrap(r)
}

// NewSource wraps r, transparently decompressing gzip content.
func NewSource(r io.Reader) (*Source, error) {
	br := bufio.NewReaderSize(r, 1<<20)

	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek header: %w", err)
	}

	src := &Source{Reader: br}
	if len(magic) == 2 && magic[0] == gzipMagic0 && magic[1] == gzipMagic1 {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		src.gz = gz
		src.Reader = gz
	}
	return src, nil
}

// Close closes the decompressor and underlying file.
func (s *Source) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
