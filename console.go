package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ConsoleSurface prints captions, translations and status changes as
// timestamped lines. Opacity and the control panel have no meaning here.
type ConsoleSurface struct {
	out   io.Writer
	now   func() time.Time
	width int

	showOriginal    bool
	showTranslation bool
	lastStatus      string
}

// NewConsoleSurface writes to out, wrapping long captions at the console
// width.
func NewConsoleSurface(out io.Writer) *ConsoleSurface {
	return &ConsoleSurface{
		out:             out,
		now:             time.Now,
		width:           defaultWrapLength,
		showOriginal:    true,
		showTranslation: true,
	}
}

func (c *ConsoleSurface) printf(prefix, text string) {
	stamp := c.now().Format("15:04:05")
	lines := strings.Split(WrapTextToLines(text, c.width), "\n")
	fmt.Fprintf(c.out, "[%s] %s%s\n", stamp, prefix, lines[0])
	pad := strings.Repeat(" ", len(stamp)+3+len([]rune(prefix)))
	for _, line := range lines[1:] {
		fmt.Fprintf(c.out, "%s%s\n", pad, line)
	}
}

func (c *ConsoleSurface) SetOriginalText(s string) {
	if c.showOriginal && s != "" {
		c.printf("", s)
	}
}

func (c *ConsoleSurface) SetTranslatedText(s string) {
	if c.showTranslation && s != "" {
		c.printf("→ ", s)
	}
}

func (c *ConsoleSurface) SetStatus(message string) {
	if message == "" || message == c.lastStatus {
		return
	}
	c.lastStatus = message
	c.printf("", message)
}

func (c *ConsoleSurface) SetVisible(original, translation bool) {
	c.showOriginal, c.showTranslation = original, translation
}

func (c *ConsoleSurface) SetOpacity(float64) {}

func (c *ConsoleSurface) SetControlsVisible(bool) {}

func (c *ConsoleSurface) ApplySettings(DisplaySettings) {}
