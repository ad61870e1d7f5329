package main

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const translatorShutdownWait = 3 * time.Second

// App owns one instance of every component and the goroutines that run
// them. Nothing is looked up globally; components get references here.
type App struct {
	log *logrus.Logger

	settings   *SettingsStore
	translator *TranslationClient
	presenter  *Presenter
	overlay    *OverlayServer
	relay      *TelegramRelay
	source     CaptionSource
	capture    *CaptureLoop

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// AppConfig selects what NewApp builds.
type AppConfig struct {
	Options      Options
	SettingsPath string
	// Console prints captions to ConsoleOut instead of serving the overlay.
	Console    bool
	ConsoleOut io.Writer
	// Source replaces the PTY caption source when set.
	Source CaptionSource
}

// NewApp wires the components. The Telegram relay is skipped, with a
// warning, when it cannot log in.
func NewApp(cfg AppConfig, log *logrus.Logger) *App {
	if log == nil {
		log = discardLogger()
	}
	opts := cfg.Options
	a := &App{log: log}

	a.settings = LoadSettings(cfg.SettingsPath, log)
	a.translator = NewTranslationClient(opts.TranslateEndpoint, opts.TranslateClient, log)

	var surfaces MultiSurface
	if cfg.Console {
		out := cfg.ConsoleOut
		if out == nil {
			out = os.Stdout
		}
		surfaces = append(surfaces, NewConsoleSurface(out))
	} else {
		a.overlay = NewOverlayServer(opts.ListenAddr, opts.Config.OverlayPasswordHash, log)
		surfaces = append(surfaces, a.overlay)
	}

	if opts.Config.TelegramBotToken != "" && len(opts.Config.TelegramChats) > 0 {
		relay, err := NewTelegramRelay(opts.Config.TelegramBotToken, opts.Config.TelegramChats, log)
		if err != nil {
			log.WithError(err).Warn("telegram relay disabled")
		} else {
			a.relay = relay
			surfaces = append(surfaces, relay)
		}
	}

	a.presenter = NewPresenter(a.settings, surfaces, log, a.Stop)
	if a.overlay != nil {
		a.overlay.SetControls(a.presenter)
	}

	a.source = cfg.Source
	if a.source == nil {
		var mirror io.Writer
		if cfg.Console {
			mirror = io.Discard
		} else {
			mirror = log.WriterLevel(logrus.DebugLevel)
		}
		a.source = NewPTYSource(opts.CaptionCommand, opts.CaptionArgs, mirror, log)
	}
	a.capture = NewCaptureLoop(a.source, a.presenter, a.translator, a.settings, log)
	return a
}

// Run starts every component and blocks until ctx is done, Stop is called,
// or a component fails. Cleanup always runs before it returns.
func (a *App) Run(ctx context.Context) error {
	defer a.translator.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	stopped := a.closed
	a.mu.Unlock()
	if stopped {
		cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.presenter.Run(gctx) })
	g.Go(func() error {
		a.forwardSettings(gctx)
		return nil
	})
	if a.overlay != nil {
		g.Go(func() error { return a.overlay.Serve(gctx) })
	}
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	g.Go(func() error { return a.capture.Run(gctx) })

	err := g.Wait()
	a.shutdown()
	return err
}

// forwardSettings hands saved settings to the presenter.
func (a *App) forwardSettings(ctx context.Context) {
	updates := a.settings.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			a.presenter.SettingsChanged(s)
		}
	}
}

// Stop asks Run to return. It is safe to call from any goroutine and before
// Run starts.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), translatorShutdownWait)
	defer cancel()
	if err := a.translator.Shutdown(ctx); err != nil {
		a.log.WithError(err).Warn("translator shutdown did not finish")
	}
	if err := a.source.Close(); err != nil {
		a.log.WithError(err).Warn("caption source close error")
	}
	a.log.Info("👋 shut down")
}
