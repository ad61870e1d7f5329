package main

import (
	"context"
	"time"
)

const (
	launchAttempts = 100
	launchInterval = 200 * time.Millisecond
)

// CaptionSource is the external live-caption engine. GetText returns the
// whole accumulated caption buffer; it fails with ErrSourceUnavailable when
// the cached text element went away, after which Reset discards it.
type CaptionSource interface {
	// Launch (re)starts the engine and waits, with bounded retries, for its
	// caption window to appear. Failure wraps ErrSourceLaunch.
	Launch(ctx context.Context) error
	GetText() (string, error)
	Reset()
	// Hide and Reveal conceal or restore the engine's own window.
	Hide()
	Reveal()
	Close() error
}
