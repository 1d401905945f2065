package pipeline

import "fmt"

// Stage names a pipeline step for error reporting.
type Stage string

// Pipeline stages, in execution order.
const (
	StageLoad   Stage = "load"
	StageRead   Stage = "read"
	StagePatch  Stage = "patch"
	StageWrite  Stage = "write"
	StageRecord Stage = "record"
)

// StageError is a fatal failure in one pipeline stage.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
