package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileFingerprint identifies an input file by path, size and modification
// time. Runs over equal fingerprints read identical inputs.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StdinFingerprint stands in for a call stream read from stdin. It has no
// size or modification time and never matches a recorded run.
func StdinFingerprint() FileFingerprint {
	return FileFingerprint{Path: "-"}
}

// StatFile fingerprints the regular file at path. The path is made absolute
// so runs started from different working directories compare equal.
func StatFile(path string) (FileFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	if info.IsDir() {
		return FileFingerprint{}, fmt.Errorf("%s is a directory", path)
	}
	return FileFingerprint{Path: abs, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// modTimeKey is the stored form of ModTime. It keeps nanosecond precision,
// which a TIMESTAMP column would truncate.
func (f FileFingerprint) modTimeKey() string {
	if f.ModTime.IsZero() {
		return ""
	}
	return f.ModTime.UTC().Format(time.RFC3339Nano)
}

func parseModTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
