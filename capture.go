package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	pollInterval      = 25 * time.Millisecond
	reconnectDelay    = 1 * time.Second
	startupClearDelay = 2 * time.Second
)

const (
	statusStarting      = "🚀 Starting caption source..."
	statusLaunchFailed  = "❌ Failed to launch caption source!"
	statusStarted       = "✅ Caption source started! Speak into microphone..."
	statusReconnecting  = "⚠️ Connection to caption source lost, reconnecting..."
	statusErrorTemplate = "❌ Error: %s"
)

// CaptionSink receives what the capture loop produces. The presenter
// implements it by enqueueing messages.
type CaptionSink interface {
	CaptionUpdated(text string)
	TranslationCompleted(text string)
	Status(message string)
	ClearSubtitles()
}

// CaptureLoop polls a caption source, turns its buffer into the latest
// normalized sentence and hands changes to the sink. Each change is
// translated on its own goroutine; completions race and the last one wins.
type CaptureLoop struct {
	source     CaptionSource
	sink       CaptionSink
	translator Translator
	language   func() string
	log        *logrus.Entry

	pollEvery      time.Duration
	reconnectAfter time.Duration
	clearAfter     time.Duration

	detector     ChangeDetector
	capturing    atomic.Bool
	translations sync.WaitGroup
}

// NewCaptureLoop wires a loop. The target language is read from settings on
// every change so edits apply to the next caption.
func NewCaptureLoop(source CaptionSource, sink CaptionSink, translator Translator, settings *SettingsStore, log *logrus.Logger) *CaptureLoop {
	if log == nil {
		log = discardLogger()
	}
	return &CaptureLoop{
		source:         source,
		sink:           sink,
		translator:     translator,
		language:       settings.TargetLanguage,
		log:            log.WithField("component", "capture"),
		pollEvery:      pollInterval,
		reconnectAfter: reconnectDelay,
		clearAfter:     startupClearDelay,
	}
}

// Run launches the source and polls it until ctx is done or Stop is called.
// A launch failure ends the session with a status message; it is not
// returned as an error because the rest of the application keeps running.
func (c *CaptureLoop) Run(ctx context.Context) error {
	c.log = c.log.WithField("session", uuid.NewString())
	c.capturing.Store(true)
	defer c.capturing.Store(false)
	defer c.translations.Wait()

	c.log.Info("🚀 starting capture session")
	c.sink.Status(statusStarting)
	if err := c.source.Launch(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Error("caption source launch failed")
		c.sink.Status(statusLaunchFailed)
		return nil
	}
	c.source.Hide()
	defer c.source.Reveal()
	c.sink.Status(statusStarted)
	if !sleepCtx(ctx, c.clearAfter) {
		return nil
	}
	c.sink.ClearSubtitles()

	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for c.capturing.Load() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := c.poll(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrSourceUnavailable):
			c.log.WithError(err).Warn("caption source lost")
			c.sink.Status(statusReconnecting)
			c.source.Reset()
			if !sleepCtx(ctx, c.reconnectAfter) {
				return nil
			}
		default:
			c.log.WithError(err).Error("poll failed")
			c.sink.Status(fmt.Sprintf(statusErrorTemplate, err))
		}
	}
	c.log.Info("capture stopped")
	return nil
}

// Stop ends polling after the current tick.
func (c *CaptureLoop) Stop() { c.capturing.Store(false) }

// Capturing reports whether the loop is running.
func (c *CaptureLoop) Capturing() bool { return c.capturing.Load() }

func (c *CaptureLoop) poll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	raw, err := c.source.GetText()
	if err != nil {
		return err
	}

	caption := Normalize(ExtractSentence(CleanText(raw)), MaxCaptionBytes, CompactLength)
	if !c.detector.Changed(caption) {
		return nil
	}
	c.log.Debugf("caption: %q", caption)
	c.sink.CaptionUpdated(caption)
	c.translate(ctx, caption)
	return nil
}

func (c *CaptureLoop) translate(ctx context.Context, text string) {
	lang := c.language()
	c.translations.Add(1)
	go func() {
		defer c.translations.Done()
		c.sink.TranslationCompleted(c.translator.Translate(ctx, text, lang))
	}()
}

// sleepCtx waits d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
