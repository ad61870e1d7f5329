package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures along the capture/translate/settings paths.
type ErrorKind string

const (
	KindSourceUnavailable ErrorKind = "SOURCE_UNAVAILABLE"
	KindSourceLaunch      ErrorKind = "SOURCE_LAUNCH"
	KindTranslation       ErrorKind = "TRANSLATION"
	KindSettingsField     ErrorKind = "SETTINGS_FIELD"
)

var (
	// ErrSourceUnavailable is transient: the cached caption element went away.
	ErrSourceUnavailable = errors.New("caption source unavailable")
	// ErrSourceLaunch is fatal for the capture session only.
	ErrSourceLaunch = errors.New("caption source launch failed")
)

// CaptureError carries the kind and operation of a failure. errors.Is matches
// it against the sentinel of its kind.
type CaptureError struct {
	Kind ErrorKind
	Op   string // ex: "PTYSource.GetText"
	Err  error
}

func (e *CaptureError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *CaptureError) Unwrap() error { return e.Err }

func (e *CaptureError) Is(target error) bool {
	switch target {
	case ErrSourceUnavailable:
		return e.Kind == KindSourceUnavailable
	case ErrSourceLaunch:
		return e.Kind == KindSourceLaunch
	}
	return false
}

func sourceUnavailable(op string, err error) error {
	return &CaptureError{Kind: KindSourceUnavailable, Op: op, Err: err}
}

func sourceLaunchFailed(op string, err error) error {
	return &CaptureError{Kind: KindSourceLaunch, Op: op, Err: err}
}
