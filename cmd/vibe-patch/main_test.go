package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

// execute runs the CLI with an isolated home directory and viper state.
func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	args = append(args, "--log-level", "error")
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestPatch_WritesPatchedSequence(t *testing.T) {
	isolateHome(t)
	out := filepath.Join(t.TempDir(), "jane_chr22.fa")

	code, _, stderr := execute(t, "patch",
		"-r", testdata("sample_ref.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "22",
		"--sample", "Jane",
		"--wrap", "6",
		"-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">Jane_chr22 patched_genotype_calls\nTCTTGC\nGTACGT\nAC\n", string(data))

	assert.Contains(t, stderr, "Jane_chr22 (14 bp)")
	assert.Contains(t, stderr, "Malformed rows:      2")
}

func TestPatch_ChromPrefixAccepted(t *testing.T) {
	isolateHome(t)
	out := filepath.Join(t.TempDir(), "out.fa")

	code, _, stderr := execute(t, "patch",
		"-r", testdata("sample_ref.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "chr22",
		"-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ">chr22 patched_genotype_calls\nTCTTGCGTACGTAC\n"))
}

func TestPatch_WrapFromEnvironment(t *testing.T) {
	isolateHome(t)
	t.Setenv("VIBE_PATCH_PATCH_WRAP", "7")
	out := filepath.Join(t.TempDir(), "out.fa")

	code, _, stderr := execute(t, "patch",
		"-r", testdata("sample_ref.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "22",
		"-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">chr22 patched_genotype_calls\nTCTTGCG\nTACGTAC\n", string(data))
}

func TestPatch_UsageErrors(t *testing.T) {
	isolateHome(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing reference", []string{"patch", "-c", "x", "--chrom", "22", "-o", "y"}, "--reference is required"},
		{"missing calls", []string{"patch", "-r", "x", "--chrom", "22", "-o", "y"}, "--calls is required"},
		{"missing chrom", []string{"patch", "-r", "x", "-c", "y", "-o", "z"}, "--chrom is required"},
		{"missing output", []string{"patch", "-r", "x", "-c", "y", "--chrom", "22"}, "--output is required"},
		{"sample and id", []string{"patch", "-r", "x", "-c", "y", "--chrom", "22", "-o", "z", "--sample", "a", "--id", "b"}, "mutually exclusive"},
		{"substitutions without ledger", []string{"patch", "-r", "x", "-c", "y", "--chrom", "22", "--dry-run", "--record-substitutions"}, "requires --ledger"},
		{"unknown flag", []string{"patch", "--bogus"}, "unknown flag"},
		{"extra args", []string{"patch", "extra"}, "accepts 0 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr, tt.want)
			assert.Contains(t, stderr, "--help")
		})
	}
}

func TestPatch_MissingReference(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	code, _, stderr := execute(t, "patch",
		"-r", filepath.Join(dir, "missing.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "22",
		"-o", filepath.Join(dir, "out.fa"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "load stage failed")
	assert.Contains(t, stderr, "Hint:")

	_, err := os.Stat(filepath.Join(dir, "out.fa"))
	assert.True(t, os.IsNotExist(err))
}

func TestPatch_LedgerAndHistory(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	ledger := filepath.Join(dir, "ledger.duckdb")
	out := filepath.Join(dir, "out.fa")

	args := []string{"patch",
		"-r", testdata("sample_ref.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "22",
		"-o", out,
		"--ledger", ledger,
		"--record-substitutions",
		"--skip-unchanged"}

	code, _, stderr := execute(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.NotContains(t, stderr, "Up to date")

	// Identical inputs with an intact output are skipped.
	code, _, stderr = execute(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "Up to date: "+out)

	code, stdout, stderr := execute(t, "history", "--ledger", ledger)
	require.Equal(t, ExitSuccess, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#run_id"))

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 11)
	assert.Equal(t, "22", fields[2])
	assert.Equal(t, "chr22", fields[3])
	assert.Equal(t, "8", fields[4])
	assert.Equal(t, "3", fields[5])
	assert.Equal(t, "3", fields[9])
	assert.Equal(t, out, fields[10])

	code, stdout, stderr = execute(t, "history", "--ledger", ledger, fields[0])
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t,
		"#record_id\tchrom\tpos\tref\talt\n"+
			"rs4475691\t22\t1\tA\tT\n"+
			"rs3094315\t22\t3\tG\tT\n"+
			"rs3131972\t22\t5\tA\tG\n",
		stdout)

	code, _, stderr = execute(t, "history", "--ledger", ledger, "no-such-run")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "not found")

	// A different sample writes a different header, so the run is not skipped.
	code, _, stderr = execute(t, append(args, "--sample", "Bob")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.NotContains(t, stderr, "Up to date")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ">Bob_chr22 "))

	code, stdout, stderr = execute(t, "history", "--ledger", ledger, "--delete", fields[0])
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "Deleted run "+fields[0]+"\n", stdout)

	code, stdout, stderr = execute(t, "history", "--ledger", ledger)
	require.Equal(t, ExitSuccess, code, stderr)
	lines = strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[1], fields[0])
	assert.Contains(t, lines[1], "Bob_chr22")

	code, _, stderr = execute(t, "history", "--ledger", ledger, "--delete", fields[0])
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "not found")
}

func TestHistory_RequiresLedger(t *testing.T) {
	isolateHome(t)
	code, _, stderr := execute(t, "history")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "--ledger is required")
}

func TestWindow(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	patched := filepath.Join(dir, "patched.fa")

	code, _, stderr := execute(t, "patch",
		"-r", testdata("sample_ref.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "22",
		"--sample", "Jane",
		"-o", patched)
	require.Equal(t, ExitSuccess, code, stderr)

	code, stdout, stderr := execute(t, "window", patched, "--start", "2", "--size", "4")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, ">Jane_chr22:2-6\nTTGC\n", stdout)

	windowOut := filepath.Join(dir, "window.fa")
	code, _, stderr = execute(t, "window", patched, "--start", "0", "--size", "14", "--id", "full", "-o", windowOut)
	require.Equal(t, ExitSuccess, code, stderr)
	data, err := os.ReadFile(windowOut)
	require.NoError(t, err)
	assert.Equal(t, ">full\nTCTTGCGTACGTAC\n", string(data))
}

func TestWindow_Errors(t *testing.T) {
	isolateHome(t)

	code, _, stderr := execute(t, "window", testdata("sample_ref.fa"))
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "--start is required")

	// Default size is larger than the sample reference.
	code, _, stderr = execute(t, "window", testdata("sample_ref.fa"), "--start", "0")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "exceeds sequence length 14")
}

func TestConfigSetGet(t *testing.T) {
	isolateHome(t)
	cfg := filepath.Join(t.TempDir(), "vibe-patch.yaml")

	code, stdout, stderr := execute(t, "config", "set", "patch.description", "hg19_patched", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Set patch.description = hg19_patched in "+cfg)

	code, stdout, stderr = execute(t, "config", "get", "patch.description", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "hg19_patched\n", stdout)

	// The stored description is used by patch.
	out := filepath.Join(t.TempDir(), "out.fa")
	code, _, stderr = execute(t, "patch",
		"-r", testdata("sample_ref.fa"),
		"-c", testdata("sample_calls.txt"),
		"--chrom", "22",
		"-o", out,
		"--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ">chr22 hg19_patched\n"))

	code, stdout, _ = execute(t, "config", "--config", cfg)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "description: hg19_patched")

	code, _, stderr = execute(t, "config", "get", "ledger.path", "--config", cfg)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `key "ledger.path" is not set`)

	code, _, stderr = execute(t, "config", "set", "no.such.key", "1", "--config", cfg)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, `unknown config key "no.such.key"`)

	code, _, stderr = execute(t, "config", "set", "patch.wrap", "wide", "--config", cfg)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "patch.wrap must be an integer")
}

func TestVersion(t *testing.T) {
	isolateHome(t)
	code, stdout, _ := execute(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "vibe-patch version dev")
}
