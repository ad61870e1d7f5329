package main

import (
	"strings"
	"time"
)

const waitingStatus = "🎤 Waiting for subtitles..."

// CaptionState is the caption currently on screen. It lives inside the
// presenter and is only touched from its goroutine.
type CaptionState struct {
	OriginalText    string
	TranslatedText  string
	OverlayText     string
	LastUpdateTime  time.Time
	ShowOriginal    bool
	ShowTranslation bool
}

func newCaptionState(settings DisplaySettings, now time.Time) CaptionState {
	return CaptionState{
		OverlayText:     waitingStatus,
		LastUpdateTime:  now,
		ShowOriginal:    settings.ShowOriginal,
		ShowTranslation: settings.ShowTranslation,
	}
}

// setOriginal stores a new caption. It reports false for blank text or text
// identical to the current caption.
func (c *CaptionState) setOriginal(text string, now time.Time) bool {
	if strings.TrimSpace(text) == "" || text == c.OriginalText {
		return false
	}
	c.OriginalText = text
	c.OverlayText = text
	c.LastUpdateTime = now
	return true
}

// setTranslated stores a translation; whichever completion arrives last wins.
func (c *CaptionState) setTranslated(text string) bool {
	if text == c.TranslatedText {
		return false
	}
	c.TranslatedText = text
	return true
}

func (c *CaptionState) clear() {
	c.OriginalText = ""
	c.TranslatedText = ""
	c.OverlayText = waitingStatus
}
