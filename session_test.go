package termemu

import (
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestSessionBeforeSpawn(t *testing.T) {
	sess := NewSession(80, 24, WithConfig(DefaultConfig()))
	defer sess.Close()

	if fd := sess.PtyFd(); fd != -1 {
		t.Errorf("expected fd -1 before spawn, got %d", fd)
	}
	if _, err := sess.ReadPty(); !errors.Is(err, ErrNoShell) {
		t.Errorf("expected ErrNoShell from ReadPty, got %v", err)
	}
	if _, err := sess.WritePty([]byte("x")); !errors.Is(err, ErrNoShell) {
		t.Errorf("expected ErrNoShell from WritePty, got %v", err)
	}
	if got := sess.ExitStatus(); got != -1 {
		t.Errorf("expected exit status -1, got %d", got)
	}

	// Resize without a child only reshapes the grid.
	if err := sess.Resize(40, 10, 0, 0); err != nil {
		t.Errorf("expected resize to succeed, got %v", err)
	}
	cols, rows := sess.GridSize()
	if cols != 40 || rows != 10 {
		t.Errorf("expected 40x10, got %dx%d", cols, rows)
	}
}

func TestSessionClosed(t *testing.T) {
	sess := NewSession(80, 24, WithConfig(DefaultConfig()))
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("expected idempotent close, got %v", err)
	}

	if _, err := sess.ReadPty(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := sess.SpawnShell(""); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed from spawn, got %v", err)
	}
}

func TestSessionGridAccessorsDefensive(t *testing.T) {
	sess := NewSession(10, 5, WithConfig(DefaultConfig()))
	defer sess.Close()

	if got := sess.CellChar(-1, -1); got != 0 {
		t.Errorf("expected zero cell out of range, got %q", got)
	}
	if got := sess.CellChar(99, 99); got != 0 {
		t.Errorf("expected zero cell out of range, got %q", got)
	}
	if got := sess.ScrollbackCellChar(0, 0); got != 0 {
		t.Errorf("expected zero scrollback cell, got %q", got)
	}
	if got := sess.CommandPromptRow(5); got != -1 {
		t.Errorf("expected -1 for missing record, got %d", got)
	}
	if got := sess.CommandDurationMs(0); got != -1 {
		t.Errorf("expected -1 for missing record, got %d", got)
	}
}

func TestSessionFacadeReads(t *testing.T) {
	sess := NewSession(20, 5, WithConfig(DefaultConfig()))
	defer sess.Close()

	sess.Terminal().WriteString("\x1b[31mhi\x1b]0;t\x07\x1b[?1h\x1b[?2004h")

	if got := sess.CellChar(0, 0); got != 'h' {
		t.Errorf("expected 'h', got %q", got)
	}
	if got := sess.CellFg(0, 0); got != PackRGB(DefaultPalette[1]) {
		t.Errorf("expected red fg, got %06x", got)
	}
	if got := sess.CellBg(0, 0); got != PackRGB(DefaultBackground) {
		t.Errorf("expected default bg, got %06x", got)
	}
	if got := sess.Title(); got != "t" {
		t.Errorf("expected title \"t\", got %q", got)
	}
	if !sess.CursorKeysApp() {
		t.Error("expected cursor keys application mode")
	}
	if !sess.BracketedPaste() {
		t.Error("expected bracketed paste mode")
	}
	if row, col := sess.CursorPos(); row != 0 || col != 2 {
		t.Errorf("expected cursor (0,2), got (%d,%d)", row, col)
	}
}

func TestSessionShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty unsupported on windows")
	}

	sess := NewSession(80, 24, WithConfig(DefaultConfig()))
	defer sess.Close()

	if err := sess.SpawnShell("/bin/sh"); err != nil {
		t.Skipf("cannot spawn shell: %v", err)
	}
	if fd := sess.PtyFd(); fd < 0 {
		t.Fatalf("expected valid fd, got %d", fd)
	}

	sess.DrainFor(200*time.Millisecond, 3*time.Second)

	if _, err := sess.WritePty([]byte("echo termemu-ok\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	sess.DrainFor(200*time.Millisecond, 5*time.Second)

	if matches := sess.Terminal().Search("termemu-ok"); len(matches) == 0 {
		t.Errorf("expected echoed marker on screen:\n%s", sess.Terminal().String())
	}

	// Ask the shell to exit and watch the EOF sequence.
	sess.WritePty([]byte("exit\n"))

	deadline := time.Now().Add(10 * time.Second)
	sawEOF := false
	for time.Now().Before(deadline) {
		_, err := sess.ReadPty()
		if errors.Is(err, ErrPtyEOF) {
			sawEOF = true
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !sawEOF {
		t.Fatal("expected EOF after shell exit")
	}
	if got := sess.ExitStatus(); got != 0 {
		t.Errorf("expected exit status 0, got %d", got)
	}
}

func TestSessionResizePropagates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty unsupported on windows")
	}

	sess := NewSession(80, 24, WithConfig(DefaultConfig()))
	defer sess.Close()

	if err := sess.SpawnShell("/bin/sh"); err != nil {
		t.Skipf("cannot spawn shell: %v", err)
	}

	if err := sess.Resize(100, 30, 800, 600); err != nil {
		t.Fatalf("resize: %v", err)
	}
	cols, rows := sess.GridSize()
	if cols != 100 || rows != 30 {
		t.Errorf("expected 100x30, got %dx%d", cols, rows)
	}
}
