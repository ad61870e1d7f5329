package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestApp(t *testing.T, console bool, out io.Writer, src CaptionSource) *App {
	t.Helper()
	srv, _ := newTestTranslateServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[["T(%s)","en"]]`, r.URL.Query().Get("q"))
	})

	app := NewApp(AppConfig{
		Options: Options{
			ListenAddr:        "127.0.0.1:0",
			TranslateEndpoint: srv.URL,
			TranslateClient:   "dict-chrome-ex",
		},
		SettingsPath: filepath.Join(t.TempDir(), "settings.json"),
		Console:      console,
		ConsoleOut:   out,
		Source:       src,
	}, nil)
	app.capture.pollEvery = time.Millisecond
	app.capture.clearAfter = 0
	return app
}

func startApp(t *testing.T, app *App, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
}

func captionScript(text string) *fakeSource {
	return &fakeSource{script: func(int) (string, error) { return text, nil }}
}

func TestAppConsoleEndToEnd(t *testing.T) {
	var out lockedBuffer
	src := captionScript("Good morning everyone. How are you today?")
	app := newTestApp(t, true, &out, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := startApp(t, app, ctx)

	waitFor(t, 3*time.Second, "caption and translation on console", func() bool {
		s := out.String()
		return strings.Contains(s, "] How are you today?") && strings.Contains(s, "→ T(How are you today?)")
	})
	cancel()
	waitRun(t, done)

	if !strings.Contains(out.String(), statusStarted) {
		t.Errorf("console output missing started status:\n%s", out.String())
	}
	src.mu.Lock()
	closed := src.closed
	src.mu.Unlock()
	if !closed {
		t.Error("caption source not closed on shutdown")
	}
}

func TestAppOverlayMode(t *testing.T) {
	src := captionScript("This goes to the overlay.")
	app := newTestApp(t, false, nil, src)
	if app.overlay == nil {
		t.Fatal("overlay not built in overlay mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startApp(t, app, ctx)

	waitFor(t, 3*time.Second, "overlay view", func() bool {
		v := app.overlay.View()
		return v.Original == "This goes to the overlay." && v.Translation == "T(This goes to the overlay.)"
	})
	cancel()
	waitRun(t, done)
}

func TestAppCloseControlStops(t *testing.T) {
	var out lockedBuffer
	app := newTestApp(t, true, &out, captionScript(""))
	done := startApp(t, app, context.Background())

	waitFor(t, 3*time.Second, "capture running", func() bool {
		return app.capture.Capturing()
	})
	app.presenter.Control(ActionClose)
	waitRun(t, done)
}

func TestAppStopBeforeRun(t *testing.T) {
	app := newTestApp(t, true, &lockedBuffer{}, captionScript(""))
	app.Stop()
	waitRun(t, startApp(t, app, context.Background()))
}

func TestAppSettingsReachPresenter(t *testing.T) {
	src := captionScript("")
	app := newTestApp(t, false, nil, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := startApp(t, app, ctx)

	waitFor(t, 3*time.Second, "capture running", func() bool {
		return app.capture.Capturing()
	})
	if _, err := app.settings.Update(func(s *DisplaySettings) { s.FontSize = 33 }); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	waitFor(t, 3*time.Second, "settings on overlay", func() bool {
		return app.overlay.View().Settings.FontSize == 33
	})
	cancel()
	waitRun(t, done)
}
