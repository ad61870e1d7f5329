package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
)

const (
	screenCols = 120
	screenRows = 50
)

var errCaptionerExited = errors.New("captioning process exited")

// PTYSource runs a live-captioning program in a pseudo-terminal and reads its
// settled screen as the caption buffer. The program's first output counts as
// its caption window appearing.
type PTYSource struct {
	command string
	args    []string
	log     *logrus.Entry

	attempts int
	interval time.Duration

	// mirror receives raw output while the source is revealed.
	mirror io.Writer
	hidden atomic.Bool

	mu       sync.Mutex
	proc     *captionProcess
	launched bool
}

// NewPTYSource creates a source for command. mirror may be nil.
func NewPTYSource(command string, args []string, mirror io.Writer, log *logrus.Logger) *PTYSource {
	if log == nil {
		log = discardLogger()
	}
	return &PTYSource{
		command:  command,
		args:     args,
		log:      log.WithField("component", "source"),
		attempts: launchAttempts,
		interval: launchInterval,
		mirror:   mirror,
	}
}

// captionProcess is one running instance of the captioning program.
type captionProcess struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	screen *captionScreen

	ready     chan struct{} // closed on first output
	readyOnce sync.Once
	exited    chan struct{} // closed after Wait returns
	closeOnce sync.Once
}

// captionEnv returns the environment for the captioning program.
func captionEnv() []string {
	env := os.Environ()
	cleaned := make([]string, 0, len(env)+3)
	for _, e := range env {
		if strings.HasPrefix(e, "LIVESUB_DAEMON=") {
			continue
		}
		cleaned = append(cleaned, e)
	}
	return append(cleaned,
		"TERM=xterm-256color",
		fmt.Sprintf("COLUMNS=%d", screenCols),
		fmt.Sprintf("LINES=%d", screenRows),
	)
}

func (s *PTYSource) start() (*captionProcess, error) {
	cmd := exec.Command(s.command, s.args...)
	cmd.Env = captionEnv()
	setProcAttr(cmd)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	ws := &pty.Winsize{Rows: screenRows, Cols: screenCols}
	if err := pty.Setsize(ptmx, ws); err != nil {
		s.log.WithError(err).Warn("couldn't set caption terminal size")
	}

	p := &captionProcess{
		cmd:    cmd,
		ptmx:   ptmx,
		screen: newCaptionScreen(screenCols, screenRows),
		ready:  make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.readOutput(p)
	s.log.WithField("pid", cmd.Process.Pid).Infof("started %s", s.command)
	return p, nil
}

func (s *PTYSource) readOutput(p *captionProcess) {
	buf := make([]byte, 8192)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			p.screen.Write(buf[:n])
			p.readyOnce.Do(func() { close(p.ready) })
			if s.mirror != nil && !s.hidden.Load() {
				s.mirror.Write(buf[:n])
			}
		}
		if err != nil {
			break
		}
	}
	p.cmd.Wait()
	close(p.exited)
}

func (p *captionProcess) alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (p *captionProcess) close() {
	p.closeOnce.Do(func() {
		if p.alive() {
			killProcessGroup(p.cmd)
		}
		p.ptmx.Close()
		select {
		case <-p.exited:
		case <-time.After(2 * time.Second):
		}
	})
}

// Launch terminates any running instance, starts a fresh one and polls for
// its first output.
func (s *PTYSource) Launch(ctx context.Context) error {
	const op = "PTYSource.Launch"

	s.mu.Lock()
	old := s.proc
	s.proc = nil
	s.mu.Unlock()
	if old != nil {
		old.close()
	}

	p, err := s.start()
	if err != nil {
		return sourceLaunchFailed(op, err)
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		select {
		case <-p.ready:
			s.mu.Lock()
			s.proc = p
			s.launched = true
			s.mu.Unlock()
			s.log.WithField("attempt", attempt).Info("caption window found")
			return nil
		case <-p.exited:
			p.close()
			return sourceLaunchFailed(op, errCaptionerExited)
		case <-ctx.Done():
			p.close()
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
	p.close()
	return sourceLaunchFailed(op, fmt.Errorf("no caption window after %d attempts", s.attempts))
}

// GetText returns the current screen. Before the first Launch it returns "".
// Once the program has exited the element is gone; after Reset the next call
// starts the program again.
func (s *PTYSource) GetText() (string, error) {
	const op = "PTYSource.GetText"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		if !s.launched {
			return "", nil
		}
		p, err := s.start()
		if err != nil {
			return "", sourceUnavailable(op, err)
		}
		s.proc = p
		return "", nil
	}
	if !s.proc.alive() {
		return "", sourceUnavailable(op, errCaptionerExited)
	}
	return s.proc.screen.Text(), nil
}

// Reset drops the cached screen. A dead process is released here.
func (s *PTYSource) Reset() {
	s.mu.Lock()
	p := s.proc
	if p != nil && !p.alive() {
		s.proc = nil
	} else {
		p = nil
	}
	s.mu.Unlock()
	if p != nil {
		p.close()
	}
}

// Hide stops mirroring raw output.
func (s *PTYSource) Hide() { s.hidden.Store(true) }

// Reveal resumes mirroring raw output.
func (s *PTYSource) Reveal() { s.hidden.Store(false) }

// Close terminates the captioning program.
func (s *PTYSource) Close() error {
	s.mu.Lock()
	p := s.proc
	s.proc = nil
	s.launched = false
	s.mu.Unlock()
	if p != nil {
		p.close()
	}
	return nil
}
