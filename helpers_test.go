package main

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out after %s waiting for %s", timeout, what)
}

// lockedBuffer is a bytes.Buffer safe for one writer goroutine and a reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// recordingSurface remembers the last value of every RenderSurface call.
type recordingSurface struct {
	mu              sync.Mutex
	original        string
	translated      string
	status          string
	opacity         float64
	showOriginal    bool
	showTranslation bool
	controls        bool
	settings        DisplaySettings
	originalCalls   int
	statuses        []string
}

func (r *recordingSurface) SetOriginalText(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.original = s
	r.originalCalls++
}

func (r *recordingSurface) SetTranslatedText(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translated = s
}

func (r *recordingSurface) SetOpacity(f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opacity = f
}

func (r *recordingSurface) SetVisible(original, translation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showOriginal, r.showTranslation = original, translation
}

func (r *recordingSurface) SetStatus(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = message
	r.statuses = append(r.statuses, message)
}

func (r *recordingSurface) SetControlsVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = visible
}

func (r *recordingSurface) ApplySettings(s DisplaySettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
}

func (r *recordingSurface) snapshot() recordingSurface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recordingSurface{
		original:        r.original,
		translated:      r.translated,
		status:          r.status,
		opacity:         r.opacity,
		showOriginal:    r.showOriginal,
		showTranslation: r.showTranslation,
		controls:        r.controls,
		settings:        r.settings,
		originalCalls:   r.originalCalls,
		statuses:        append([]string(nil), r.statuses...),
	}
}
