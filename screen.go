package main

import (
	"strings"
	"sync"

	"github.com/charmbracelet/x/vt"
)

// captionScreen composes a captioning program's terminal output into the text
// a viewer would see. Captioners redraw the current line with \r and cursor
// moves, so stripping escape codes is not enough; the virtual terminal gives
// us the settled screen.
//
// The PTY reader writes while the capture loop reads, and the emulator's
// String does not take the SafeEmulator lock, so mu guards both.
type captionScreen struct {
	mu  sync.Mutex
	emu *vt.SafeEmulator
}

func newCaptionScreen(cols, rows int) *captionScreen {
	return &captionScreen{emu: vt.NewSafeEmulator(cols, rows)}
}

// Write feeds raw PTY output into the emulator.
func (cs *captionScreen) Write(data []byte) (int, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.emu.Write(data)
}

// Text returns the visible screen with trailing blanks removed from each row
// and trailing empty rows dropped.
func (cs *captionScreen) Text() string {
	cs.mu.Lock()
	raw := cs.emu.String()
	cs.mu.Unlock()

	lines := strings.Split(raw, "\n")

	last := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimRight(lines[i], " \t\r") != "" {
			last = i
			break
		}
	}
	if last < 0 {
		return ""
	}

	rows := make([]string, last+1)
	for i := 0; i <= last; i++ {
		rows[i] = strings.TrimRight(lines[i], " \t\r")
	}
	return strings.Join(rows, "\n")
}
