package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a branch, file, commit or entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a branch name collision.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict indicates a stale revision reference on tag or update.
	ErrConflict = errors.New("conflict")
	// ErrTransport indicates a fetch, push or clone that failed after its retry.
	ErrTransport = errors.New("transport failure")
	// ErrCorrupt indicates file content the codec could not decode.
	ErrCorrupt = errors.New("corrupt data")
	// ErrInvalidPath indicates a beamline set path that cannot be stored.
	ErrInvalidPath = errors.New("invalid path")
)

// CorruptError 记录解码失败的文件位置，便于诊断。
type CorruptError struct {
	Branch string
	Path   string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s:%s: %v: %v", e.Branch, e.Path, ErrCorrupt, e.Err)
}

func (e *CorruptError) Unwrap() []error {
	return []error{ErrCorrupt, e.Err}
}
