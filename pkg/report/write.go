// Package report writes and reads the artifacts of a batch: the XLSX
// triage report, the bulk scan CSV and JSON dumps of the records.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alexflint/go-filemutex"
	"github.com/pkg/errors"

	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/util/fileutil"
)

var ErrReportWrite = errors.New("failed to write report")

// A writeError is returned for all failures to produce an artifact. It
// matches ErrReportWrite via errors.Is and unwraps to the cause.
type writeError struct {
	path string
	err  error
}

func (e *writeError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrReportWrite.Error(), e.path, e.err)
}

func (e *writeError) Unwrap() error {
	return e.err
}

func (e *writeError) Is(target error) bool {
	return target == ErrReportWrite
}

func wrapWriteError(path string, err error) error {
	return errors.WithStack(&writeError{path: path, err: err})
}

// Prepare checks that an artifact can be written to path before any
// work is done: the parent directory is created and the lock file is
// acquired and released again.
func Prepare(path string) error {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return wrapWriteError(path, errors.New("is a directory"))
	}
	mutex, err := lock(path)
	if err != nil {
		return err
	}
	defer mutex.Close()
	err = mutex.Unlock()
	if err != nil {
		return wrapWriteError(path, err)
	}
	return nil
}

// lock creates the parent directory of path and acquires the lock file
// "<path>.lock".
func lock(path string) (*filemutex.FileMutex, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, wrapWriteError(path, err)
	}

	mutex, err := filemutex.New(path + ".lock")
	if err != nil {
		return nil, wrapWriteError(path, err)
	}
	err = mutex.Lock()
	if err != nil {
		_ = mutex.Close()
		return nil, wrapWriteError(path, err)
	}
	return mutex, nil
}

// WriteFile produces the artifact at path. While write is running, the
// lock file "<path>.lock" is held, so concurrent invocations writing
// the same artifact are serialized. The content is written to a
// temporary file which replaces path only once write succeeded.
func WriteFile(path string, write func(w io.Writer) error) error {
	mutex, err := lock(path)
	if err != nil {
		return err
	}
	defer mutex.Close()
	defer func() {
		err := mutex.Unlock()
		if err != nil {
			log.Warnf("Failed to release lock of %s: %v", path, err)
		}
	}()

	err = fileutil.WriteAtomic(path, 0o644, write)
	if err != nil {
		return wrapWriteError(path, err)
	}
	log.Debugf("Wrote %s", path)
	return nil
}
