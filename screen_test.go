package main

import (
	"fmt"
	"strings"
	"testing"
)

func TestCaptionScreenPlainText(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	cs.Write([]byte("Hello, World!"))

	if got := cs.Text(); got != "Hello, World!" {
		t.Errorf("Text() = %q, want %q", got, "Hello, World!")
	}
}

func TestCaptionScreenEmpty(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	if got := cs.Text(); got != "" {
		t.Errorf("Text() = %q, want empty", got)
	}
}

func TestCaptionScreenMultipleLines(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	cs.Write([]byte("Line 1\r\nLine 2\r\nLine 3"))

	got := cs.Text()
	for _, want := range []string{"Line 1", "Line 2", "Line 3"} {
		if !strings.Contains(got, want) {
			t.Errorf("Text() = %q, missing %q", got, want)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("Text() = %q, trailing empty rows not dropped", got)
	}
	if strings.Contains(got, " \n") {
		t.Errorf("Text() = %q, trailing blanks not trimmed", got)
	}
}

// Captioners rewrite the current line in place while a sentence is still
// being recognized.
func TestCaptionScreenCarriageReturnOverwrite(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	cs.Write([]byte("hello wrld"))
	cs.Write([]byte("\rhello world, how are you"))

	got := cs.Text()
	if !strings.Contains(got, "hello world, how are you") {
		t.Errorf("Text() = %q, want rewritten line", got)
	}
	if strings.Contains(got, "wrld") {
		t.Errorf("Text() = %q, stale text survived the redraw", got)
	}
}

func TestCaptionScreenANSIStripped(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	cs.Write([]byte("\x1b[31mRed text\x1b[0m Normal text"))

	got := cs.Text()
	if !strings.Contains(got, "Red text") || !strings.Contains(got, "Normal text") {
		t.Errorf("Text() = %q, missing content", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("Text() = %q, escape codes leaked", got)
	}
}

func TestCaptionScreenCursorPositioning(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	cs.Write([]byte("\x1b[2;1HWorld"))
	cs.Write([]byte("\x1b[1;1HHello"))

	lines := strings.Split(cs.Text(), "\n")
	if len(lines) != 2 {
		t.Fatalf("Text() rows = %q, want 2 rows", lines)
	}
	if !strings.Contains(lines[0], "Hello") || !strings.Contains(lines[1], "World") {
		t.Errorf("rows = %q, want Hello above World", lines)
	}
}

func TestCaptionScreenClear(t *testing.T) {
	cs := newCaptionScreen(80, 24)
	cs.Write([]byte("old caption"))
	cs.Write([]byte("\x1b[2J\x1b[Hnew caption"))

	got := cs.Text()
	if strings.Contains(got, "old caption") {
		t.Errorf("Text() = %q, screen not cleared", got)
	}
	if !strings.Contains(got, "new caption") {
		t.Errorf("Text() = %q, missing new caption", got)
	}
}

func TestCaptionScreenConcurrentReadWrite(t *testing.T) {
	cs := newCaptionScreen(80, 24)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			fmt.Fprintf(cs, "\rcaption line %d being recognized", i)
		}
	}()
	for i := 0; i < 2000; i++ {
		cs.Text()
	}
	<-done

	if got := cs.Text(); !strings.Contains(got, "caption line 1999") {
		t.Errorf("Text() = %q, want the last redraw", got)
	}
}
