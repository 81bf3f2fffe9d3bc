package core

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryClean = errors.New("directory clean failed")
	ErrSourceNotFound = errors.New("source not found")
	ErrCopy           = errors.New("copy failed")
	ErrTransform      = errors.New("transform failed")
	ErrCompile        = errors.New("compile failed")
	ErrGeneration     = errors.New("generation failed")
	ErrPackage        = errors.New("package failed")
)

// StepError is the failure detail of one step. It matches both its Kind and
// the underlying cause with errors.Is and errors.As.
type StepError struct {
	Step StepType
	Kind error
	// Path is the file or pattern the step was working on, if any.
	Path string
	Err  error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Step, e.Kind)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// kindError is the sentinel reported for failures of a step of kind k that
// did not classify themselves.
func kindError(k Kind) error {
	switch k {
	case KindCleanup:
		return ErrDirectoryClean
	case KindCopy:
		return ErrCopy
	case KindTransform:
		return ErrTransform
	case KindCompile:
		return ErrCompile
	case KindGenerate:
		return ErrGeneration
	default:
		return ErrPackage
	}
}

// asStepError returns err as a *StepError, wrapping it for step s if needed.
func asStepError(s Step, err error) *StepError {
	var se *StepError
	if errors.As(err, &se) {
		return se
	}
	return &StepError{Step: s.Type(), Kind: kindError(s.Kind()), Err: err}
}
