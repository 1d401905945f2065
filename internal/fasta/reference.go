// Package fasta provides reference sequence loading and patched sequence output.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-patch/internal/fileio"
)

// maxLineSize allows unwrapped chromosome-length sequence lines.
const maxLineSize = 512 * 1024 * 1024

var (
	errNoRecord      = errors.New("no FASTA record found")
	errEmptySequence = errors.New("first record has an empty sequence")
	errNoHeader      = errors.New("sequence data before first '>' header")
)

// Reference is a single reference sequence held in memory.
// Seq is uppercase and 0-indexed; its length is fixed once loaded.
type Reference struct {
	ID          string // first word of the header
	Description string // remainder of the header, if any
	Seq         []byte
	MoreRecords bool // another record follows the first; it was not read
}

// Len returns the sequence length.
func (r *Reference) Len() int {
	return len(r.Seq)
}

// LoadReference reads the first record of a FASTA file.
// Plain and gzipped files are supported. Reading stops at the next header,
// so a multi-record file costs no more than its first record.
func LoadReference(path string) (*Reference, error) {
	src, err := fileio.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer src.Close()

	ref, err := ParseReference(src)
	if err != nil {
		var lerr *LoadError
		if errors.As(err, &lerr) {
			lerr.Path = path
			return nil, lerr
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return ref, nil
}

// ParseReference parses FASTA content and returns its first record.
// It stops reading at the second header and sets MoreRecords.
func ParseReference(r io.Reader) (*Reference, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, maxLineSize)

	var (
		ref *Reference
		seq bytes.Buffer
	)

	for scanner.Scan() {
		line := scanner.Bytes()

		if len(line) > 0 && line[0] == '>' {
			if ref != nil {
				ref.MoreRecords = true
				break
			}
			ref = &Reference{}
			ref.ID, ref.Description = parseHeader(string(line))
			continue
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if ref == nil {
			return nil, &LoadError{Err: errNoHeader}
		}
		seq.Write(bytes.ToUpper(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("scan FASTA: %w", err)}
	}

	if ref == nil {
		return nil, &LoadError{Err: errNoRecord}
	}
	if seq.Len() == 0 {
		return nil, &LoadError{Err: errEmptySequence}
	}

	ref.Seq = seq.Bytes()
	return ref, nil
}

// ReadHeader returns the ID and description of the first record in a FASTA
// file without reading its sequence.
func ReadHeader(path string) (id, desc string, err error) {
	src, err := fileio.Open(path)
	if err != nil {
		return "", "", &LoadError{Path: path, Err: err}
	}
	defer src.Close()

	br := bufio.NewReader(src)
	for {
		line, rerr := br.ReadString('\n')
		if len(line) > 0 && line[0] == '>' {
			id, desc = parseHeader(strings.TrimRight(line, "\r\n"))
			return id, desc, nil
		}
		if strings.TrimSpace(line) != "" {
			return "", "", &LoadError{Path: path, Err: errNoHeader}
		}
		if rerr == io.EOF {
			return "", "", &LoadError{Path: path, Err: errNoRecord}
		}
		if rerr != nil {
			return "", "", &LoadError{Path: path, Err: rerr}
		}
	}
}

// parseHeader splits a header line into ID and description.
func parseHeader(header string) (id, desc string) {
	header = strings.TrimSpace(strings.TrimPrefix(header, ">"))
	id, desc, _ = strings.Cut(header, " ")
	if i := strings.IndexByte(id, '\t'); i != -1 {
		desc = strings.TrimSpace(id[i+1:] + " " + desc)
		id = id[:i]
	}
	return id, strings.TrimSpace(desc)
}

// LoadError reports a reference that is missing, empty or unparsable.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load reference: %v", e.Err)
	}
	return fmt.Sprintf("load reference %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
