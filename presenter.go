package main

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	fadeInterval     = 1 * time.Second
	fadeHold         = 10 * time.Second
	fadeSpan         = 20.0 // seconds for a full 1.0 -> 0.0 decay
	fadeFloor        = 0.3
	controlHideDelay = 300 * time.Millisecond
	mailboxSize      = 256
	opacityStep      = 20
	maxOpacityStep   = 251
)

// FadePhase is where the overlay is in its opacity decay.
type FadePhase int

const (
	PhaseFresh FadePhase = iota
	PhaseFading
	PhaseIdle
)

func (p FadePhase) String() string {
	switch p {
	case PhaseFresh:
		return "fresh"
	case PhaseFading:
		return "fading"
	case PhaseIdle:
		return "idle"
	}
	return "unknown"
}

// Pointer targets reported by the overlay.
const (
	TargetOverlay  = "overlay"
	TargetControls = "controls"
)

// Control actions accepted from the overlay's control panel.
const (
	ActionFontUp       = "font_up"
	ActionFontDown     = "font_down"
	ActionColor        = "color"
	ActionBackground   = "background"
	ActionOpacityUp    = "opacity_up"
	ActionOpacityDown  = "opacity_down"
	ActionDisplayMode  = "mode"
	ActionResetDefault = "reset"
	ActionClose        = "close"
)

// fadeOpacity is the overlay opacity elapsed after the last caption: the
// baseline for the hold period, then a linear decay to the floor.
func fadeOpacity(baseline float64, elapsed time.Duration) float64 {
	if elapsed <= fadeHold {
		return baseline
	}
	faded := baseline - (elapsed-fadeHold).Seconds()/fadeSpan
	return math.Max(fadeFloor, faded)
}

type presenterMsg interface{}

type (
	captionMsg     struct{ text string }
	translationMsg struct{ text string }
	statusMsg      struct{ text string }
	clearMsg       struct{}
	pointerMsg     struct {
		target string
		inside bool
	}
	controlMsg      struct{ action string }
	settingsMsg     struct{ settings DisplaySettings }
	settingsEditMsg struct{ patch SettingsPatch }
)

// Presenter owns the caption state and everything visible on the render
// surface. Other goroutines talk to it only through Post and the wrappers
// below; messages are handled in arrival order on the Run goroutine, which
// also drives the fade and control-panel timers.
type Presenter struct {
	settings *SettingsStore
	surface  RenderSurface
	log      *logrus.Entry
	now      func() time.Time
	onClose  func()

	fadeEvery time.Duration
	hideAfter time.Duration

	mailbox chan presenterMsg
	// parked holds the newest translation that did not fit in the mailbox.
	parked chan translationMsg

	// Run goroutine only.
	state           CaptionState
	opacity         float64
	phase           FadePhase
	decayed         bool
	controlsVisible bool
	overOverlay     bool
	overControls    bool
	fade            *time.Ticker
	hide            *time.Timer
}

// NewPresenter creates a presenter drawing on surface. onClose is called when
// the overlay asks the application to quit.
func NewPresenter(settings *SettingsStore, surface RenderSurface, log *logrus.Logger, onClose func()) *Presenter {
	if log == nil {
		log = discardLogger()
	}
	p := &Presenter{
		settings:  settings,
		surface:   surface,
		log:       log.WithField("component", "presenter"),
		now:       time.Now,
		onClose:   onClose,
		fadeEvery: fadeInterval,
		hideAfter: controlHideDelay,
		mailbox:   make(chan presenterMsg, mailboxSize),
		parked:    make(chan translationMsg, 1),
	}
	s := settings.Snapshot()
	p.state = newCaptionState(s, p.now())
	p.opacity = s.BaselineOpacity()
	p.phase = PhaseIdle
	return p
}

// Post enqueues a message without blocking. When the mailbox is full a
// translation is parked, replacing any translation parked before it, so the
// newest one still reaches the surface. Other messages are dropped: a later
// caption or status supersedes them.
func (p *Presenter) Post(msg presenterMsg) {
	select {
	case p.mailbox <- msg:
		return
	default:
	}
	if m, ok := msg.(translationMsg); ok {
		offerLatest(p.parked, m)
		p.log.Debug("presenter mailbox full, parking translation")
		return
	}
	p.log.Warnf("presenter mailbox full, dropping %T", msg)
}

func (p *Presenter) CaptionUpdated(text string) { p.Post(captionMsg{text}) }

func (p *Presenter) TranslationCompleted(text string) { p.Post(translationMsg{text}) }

func (p *Presenter) Status(message string) { p.Post(statusMsg{message}) }

func (p *Presenter) ClearSubtitles() { p.Post(clearMsg{}) }

// Pointer reports the pointer entering or leaving the overlay or its controls.
func (p *Presenter) Pointer(target string, inside bool) {
	p.Post(pointerMsg{target: target, inside: inside})
}

func (p *Presenter) Control(action string) { p.Post(controlMsg{action}) }

func (p *Presenter) SettingsChanged(s DisplaySettings) { p.Post(settingsMsg{s}) }

// EditSettings saves a partial edit from the overlay settings panel.
func (p *Presenter) EditSettings(patch SettingsPatch) { p.Post(settingsEditMsg{patch}) }

// Run processes messages and timers until ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	defer p.stopTimers()

	p.apply(p.settings.Snapshot())
	p.surface.SetOpacity(p.opacity)
	p.surface.SetStatus(p.state.OverlayText)
	p.surface.SetControlsVisible(false)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-p.mailbox:
			p.handle(msg)
		case msg := <-p.parked:
			p.handle(msg)
		case now := <-p.fadeC():
			p.onFadeTick(now)
		case <-p.hideC():
			p.onControlHide()
		}
	}
}

func (p *Presenter) fadeC() <-chan time.Time {
	if p.fade == nil {
		return nil
	}
	return p.fade.C
}

func (p *Presenter) hideC() <-chan time.Time {
	if p.hide == nil {
		return nil
	}
	return p.hide.C
}

func (p *Presenter) handle(msg presenterMsg) {
	switch m := msg.(type) {
	case captionMsg:
		if !p.state.setOriginal(m.text, p.now()) {
			return
		}
		p.surface.SetStatus("")
		p.surface.SetOriginalText(p.state.OriginalText)
		p.restartFade()
	case translationMsg:
		if p.state.setTranslated(m.text) {
			p.surface.SetTranslatedText(p.state.TranslatedText)
		}
	case statusMsg:
		p.state.OverlayText = m.text
		p.surface.SetStatus(m.text)
	case clearMsg:
		p.state.clear()
		p.stopFade()
		p.opacity = p.settings.Snapshot().BaselineOpacity()
		p.phase = PhaseIdle
		p.decayed = false
		p.surface.SetOriginalText("")
		p.surface.SetTranslatedText("")
		p.surface.SetStatus(p.state.OverlayText)
		p.surface.SetOpacity(p.opacity)
	case pointerMsg:
		p.onPointer(m.target, m.inside)
	case controlMsg:
		p.onControl(m.action)
	case settingsMsg:
		p.apply(m.settings)
	case settingsEditMsg:
		next, _ := p.settings.Update(m.patch.Apply)
		p.apply(next)
	default:
		p.log.Warnf("unknown presenter message %T", msg)
	}
}

// restartFade resets opacity to the baseline and restarts the fade ticker.
func (p *Presenter) restartFade() {
	p.opacity = p.settings.Snapshot().BaselineOpacity()
	p.phase = PhaseFresh
	p.decayed = false
	p.surface.SetOpacity(p.opacity)
	p.stopFade()
	p.fade = time.NewTicker(p.fadeEvery)
}

func (p *Presenter) stopFade() {
	if p.fade != nil {
		p.fade.Stop()
		p.fade = nil
	}
}

func (p *Presenter) onFadeTick(now time.Time) {
	baseline := p.settings.Snapshot().BaselineOpacity()
	elapsed := now.Sub(p.state.LastUpdateTime)
	next := fadeOpacity(baseline, elapsed)

	switch {
	case elapsed <= fadeHold:
		p.phase = PhaseFresh
	case next > fadeFloor:
		p.phase = PhaseFading
	default:
		p.phase = PhaseIdle
		p.decayed = true
		p.stopFade()
	}
	if next != p.opacity {
		p.opacity = next
		p.surface.SetOpacity(next)
	}
}

func (p *Presenter) onPointer(target string, inside bool) {
	switch target {
	case TargetControls:
		p.overControls = inside
	default:
		p.overOverlay = inside
	}

	if inside {
		p.stopHide()
		if !p.controlsVisible {
			p.controlsVisible = true
			p.surface.SetControlsVisible(true)
		}
		return
	}
	p.stopHide()
	p.hide = time.NewTimer(p.hideAfter)
}

func (p *Presenter) stopHide() {
	if p.hide != nil {
		p.hide.Stop()
		p.hide = nil
	}
}

// onControlHide hides the control panel unless the pointer came back.
func (p *Presenter) onControlHide() {
	p.hide = nil
	if p.overOverlay || p.overControls || !p.controlsVisible {
		return
	}
	p.controlsVisible = false
	p.surface.SetControlsVisible(false)
}

func (p *Presenter) onControl(action string) {
	var change func(*DisplaySettings)
	switch action {
	case ActionFontUp:
		change = func(s *DisplaySettings) { s.FontSize = min(s.FontSize+1, MaxFontSize) }
	case ActionFontDown:
		change = func(s *DisplaySettings) { s.FontSize = max(s.FontSize-1, MinFontSize) }
	case ActionColor:
		change = func(s *DisplaySettings) { s.ColorIndex = cycleColor(s.ColorIndex) }
	case ActionBackground:
		change = func(s *DisplaySettings) { s.BackgroundColorIndex = cycleColor(s.BackgroundColorIndex) }
	case ActionOpacityUp:
		change = func(s *DisplaySettings) { s.Opacity = uint8(min(int(s.Opacity)+opacityStep, maxOpacityStep)) }
	case ActionOpacityDown:
		change = func(s *DisplaySettings) { s.Opacity = uint8(max(int(s.Opacity)-opacityStep, 1)) }
	case ActionDisplayMode:
		change = func(s *DisplaySettings) { s.SetDisplayMode(s.DisplayMode.Next()) }
	case ActionResetDefault:
		change = func(s *DisplaySettings) { *s = DefaultSettings() }
	case ActionClose:
		p.log.Info("close requested from overlay")
		if p.onClose != nil {
			p.onClose()
		}
		return
	default:
		p.log.Warnf("unknown control action %q", action)
		return
	}

	next, _ := p.settings.Update(change)
	p.apply(next)
}

func cycleColor(i int) int {
	i++
	if i > MaxColorIndex {
		return MinColorIndex
	}
	return i
}

// apply pushes display settings to the surface and keeps the visibility pair
// in step with the display mode.
func (p *Presenter) apply(s DisplaySettings) {
	p.state.ShowOriginal, p.state.ShowTranslation = s.DisplayMode.Visibility()
	p.surface.ApplySettings(s)
	p.surface.SetVisible(p.state.ShowOriginal, p.state.ShowTranslation)
	if p.phase == PhaseFading || p.decayed {
		return
	}
	if o := s.BaselineOpacity(); o != p.opacity {
		p.opacity = o
		p.surface.SetOpacity(o)
	}
}

func (p *Presenter) stopTimers() {
	p.stopFade()
	p.stopHide()
}
