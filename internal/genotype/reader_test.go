package genotype

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTestFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("test file %s not found", path)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []*Record {
	t.Helper()
	var out []*Record
	for {
		rec, err := r.Next()
		require.NoError(t, err)
		if rec == nil {
			return out
		}
		out = append(out, rec)
	}
}

func TestReader_SampleFile(t *testing.T) {
	r, err := NewReader(findTestFile(t, "sample_calls.txt"), "22")
	require.NoError(t, err)
	defer r.Close()

	recs := readAll(t, r)
	require.Len(t, recs, 8)

	assert.Equal(t, "rs3094315", recs[0].ID)
	assert.Equal(t, "22", recs[0].Chrom)
	assert.Equal(t, int64(3), recs[0].Pos)
	assert.Equal(t, "TT", recs[0].Genotype)

	// File order is preserved.
	var positions []int64
	for _, rec := range recs {
		positions = append(positions, rec.Pos)
	}
	assert.Equal(t, []int64{3, 5, 6, 7, 8, 1, 100, 4}, positions)

	assert.Equal(t, 2, r.MalformedRows())
	assert.Equal(t, 2, r.OtherChromRows())
	assert.Equal(t, 8, r.Records())
}

func TestReader_ChromPrefixInsensitive(t *testing.T) {
	r, err := NewReader(findTestFile(t, "sample_calls.txt"), "chr22")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "22", r.Chrom())
	assert.Len(t, readAll(t, r), 8)
}

func TestReader_SkipsComments(t *testing.T) {
	input := "# rsid\tchromosome\tposition\tgenotype\n#22\t22\t1\tAA\nrs1\t22\t1\tAA\n"
	r := NewReaderFromReader(strings.NewReader(input), "22")

	recs := readAll(t, r)
	require.Len(t, recs, 1)
	assert.Equal(t, "rs1", recs[0].ID)
	assert.Equal(t, 0, r.MalformedRows())
}

func TestReader_MalformedRowDoesNotHaltProcessing(t *testing.T) {
	input := strings.Join([]string{
		"rs1\t22\t1\tAA",
		"rs2\t22\t2", // 3 fields
		"rs3\t22\t3\tCC",
		"rs4\t22\t4\tGG",
	}, "\n") + "\n"

	r := NewReaderFromReader(strings.NewReader(input), "22")
	recs := readAll(t, r)

	require.Len(t, recs, 3)
	assert.Equal(t, "rs3", recs[1].ID)
	assert.Equal(t, "rs4", recs[2].ID)
	assert.Equal(t, 1, r.MalformedRows())
}

func TestReader_MalformedRows(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "rs1\t22\t10"},
		{"too many fields", "rs1\t22\t10\tAA\textra"},
		{"non-numeric position", "rs1\t22\tten\tAA"},
		{"zero position", "rs1\t22\t0\tAA"},
		{"negative position", "rs1\t22\t-5\tAA"},
		{"empty genotype", "rs1\t22\t10\t"},
		{"space-separated", "rs1 22 10 AA"},
		{"other chromosome, corrupt", "rs1\t7\tx\tAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReaderFromReader(strings.NewReader(tt.line+"\n"), "22")
			assert.Empty(t, readAll(t, r))
			assert.Equal(t, 1, r.MalformedRows())
		})
	}
}

func TestReader_LastLineWithoutNewline(t *testing.T) {
	r := NewReaderFromReader(strings.NewReader("rs1\t22\t1\tAA\r\nrs2\t22\t2\tCT"), "22")

	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, "AA", recs[0].Genotype)
	assert.Equal(t, "CT", recs[1].Genotype)
}

func TestReader_ExhaustedStaysExhausted(t *testing.T) {
	r := NewReaderFromReader(strings.NewReader("rs1\t22\t1\tAA\n"), "22")
	readAll(t, r)

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReader_EmptyInput(t *testing.T) {
	r := NewReaderFromReader(strings.NewReader(""), "22")
	assert.Empty(t, readAll(t, r))
	assert.Equal(t, 0, r.MalformedRows())
}

func TestNewReader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	_, err := NewReader(path, "22")
	require.Error(t, err)

	var ferr *FileError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, path, ferr.Path)
	assert.True(t, os.IsNotExist(ferr.Err))
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Line: 7, Message: "empty genotype"}
	assert.Equal(t, "genotype parse error at line 7: empty genotype", err.Error())
}
