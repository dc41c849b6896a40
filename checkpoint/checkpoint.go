// Package checkpoint decorates errors with the file and line they passed through,
// which results in something similar to a stacktrace.
// Each error added to a checkpoint can be checked by errors.Is and retrieved by errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps an error by a new checkpoint which adds the caller information to the error.
// It returns nil, if err == nil.
func From(err error) error {
	// io.EOF must be returned as io.EOF directly
	// https://github.com/golang/go/issues/39155
	if err == io.EOF {
		return io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return io.ErrUnexpectedEOF
	}

	if err == nil {
		return nil
	}

	return newCheckpoint(nil, err)
}

// Wrap adds a checkpoint to the cause prev and describes it by err.
// Returns nil if prev == nil.
// This allows to predefine errors and still keep the cause:
//  var ErrReadDirectory = errors.New("could not read the directory")
//
//  func readDirectory() error {
//  	_, err := device.ReadSector(sector, buf)
//  	return checkpoint.Wrap(err, ErrReadDirectory)
//  }
// errors.Is matches ErrReadDirectory as well as the error returned by ReadSector.
func Wrap(prev, err error) error {
	// io.EOF must be returned as io.EOF directly
	// https://github.com/golang/go/issues/39155
	if prev == io.EOF {
		return io.EOF
	}

	if prev == nil {
		return nil
	}

	return newCheckpoint(prev, err)
}

func newCheckpoint(prev, err error) *checkpoint {
	// Skip newCheckpoint and From / Wrap.
	_, file, line, ok := runtime.Caller(2)

	return &checkpoint{
		err:  err,
		prev: prev,

		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	err  error
	prev error

	callerOk bool
	file     string
	line     int
}

func (e *checkpoint) Error() string {
	location := "unknown"
	if e.callerOk {
		location = fmt.Sprintf("%s:%d", e.file, e.line)
	}

	msg := fmt.Sprintf("File: %s\n\t%v", location, e.err)
	if e.prev == nil {
		return msg
	}

	// Use different formatting for the prev error if it was not also a checkpoint.
	prevErrString := e.prev.Error()
	if _, ok := e.prev.(*checkpoint); !ok {
		prevErrString = "File: unknown\n\t" + strings.ReplaceAll(prevErrString, "\n", "\n\t")
	}
	return msg + "\n" + prevErrString
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	return errors.As(e.err, target)
}
