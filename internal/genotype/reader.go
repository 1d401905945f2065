package genotype

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-patch/internal/fileio"
)

// numFields is the column count of a raw data row: rsid, chromosome, position, genotype.
const numFields = 4

// CommentPrefix marks lines that are skipped without parsing.
const CommentPrefix = "#"

// Reader streams genotype calls for one chromosome from a tab-delimited file.
// It is forward-only: once a record has been returned it cannot be re-read.
type Reader struct {
	reader     *bufio.Reader
	src        *fileio.Source
	path       string
	chrom      string
	lineNumber int
	records    int
	malformed  int
	otherChrom int
	logger     *zap.Logger
}

// NewReader opens a raw genotype file and filters it to chrom.
// Supports plain and gzipped files; "-" reads from stdin.
// A missing or unreadable file is reported as a *FileError.
func NewReader(path, chrom string, opts ...fileio.Option) (*Reader, error) {
	src, err := fileio.Open(path, opts...)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	r := newReader(src, chrom)
	r.src = src
	r.path = path
	return r, nil
}

// NewReaderFromReader creates a reader over an io.Reader (e.g., stdin or a test fixture).
func NewReaderFromReader(rd io.Reader, chrom string) *Reader {
	return newReader(rd, chrom)
}

func newReader(rd io.Reader, chrom string) *Reader {
	return &Reader{
		reader: bufio.NewReaderSize(rd, 64*1024),
		chrom:  NormalizeChrom(chrom),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used to report skipped rows.
func (r *Reader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Next reads the next call on the target chromosome.
// Returns nil, nil when there are no more calls.
func (r *Reader) Next() (*Record, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, &FileError{Path: r.path, Err: fmt.Errorf("read line %d: %w", r.lineNumber+1, err)}
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}

		rec, perr := r.parseLine(line)
		if perr != nil {
			r.malformed++
			r.logger.Debug("skipping malformed row",
				zap.Int("line", perr.Line),
				zap.String("reason", perr.Message))
			continue
		}

		if NormalizeChrom(rec.Chrom) != r.chrom {
			r.otherChrom++
			continue
		}

		r.records++
		return rec, nil
	}
}

// parseLine parses a single data row. Rows are validated before the
// chromosome filter, so a corrupt row is counted wherever it appears.
func (r *Reader) parseLine(line string) (*Record, *ParseError) {
	fields := strings.Split(line, "\t")
	if len(fields) != numFields {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("expected %d columns, found %d", numFields, len(fields)),
		}
	}

	pos, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil || pos < 1 {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("invalid position: %q", fields[2]),
		}
	}

	gt := strings.TrimSpace(fields[3])
	if gt == "" {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: "empty genotype",
		}
	}

	return &Record{
		ID:       strings.TrimSpace(fields[0]),
		Chrom:    strings.TrimSpace(fields[1]),
		Pos:      pos,
		Genotype: gt,
	}, nil
}

// MalformedRows returns the number of rows skipped because they could not be parsed.
// The count is final once Next has returned nil, nil.
func (r *Reader) MalformedRows() int {
	return r.malformed
}

// Records returns the number of calls returned so far.
func (r *Reader) Records() int {
	return r.records
}

// OtherChromRows returns the number of well-formed rows on other chromosomes.
func (r *Reader) OtherChromRows() int {
	return r.otherChrom
}

// Chrom returns the normalized target chromosome.
func (r *Reader) Chrom() string {
	return r.chrom
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.src != nil {
		return r.src.Close()
	}
	return nil
}

// ParseError describes a malformed row. Malformed rows are skipped, not returned.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("genotype parse error at line %d: %s", e.Line, e.Message)
}

// FileError reports a call file that is missing or cannot be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("genotype file: %v", e.Err)
	}
	return fmt.Sprintf("genotype file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
