package termemu

import (
	"testing"
	"time"
)

// fakeClock hands out scripted times.
type fakeClock struct {
	times []time.Time
	i     int
}

func (c *fakeClock) now() time.Time {
	if c.i >= len(c.times) {
		return c.times[len(c.times)-1]
	}
	t := c.times[c.i]
	c.i++
	return t
}

func TestCommandTracking(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{base, base.Add(1500 * time.Millisecond)}}
	term := New(WithSize(5, 20), WithClock(clock.now))

	term.WriteString("\x1b]133;A\x07")
	term.WriteString("$ ")
	term.WriteString("\x1b]133;B\x07")
	term.WriteString("false\r\n")
	term.WriteString("\x1b]133;C\x07")
	term.WriteString("some output\r\n")
	term.WriteString("\x1b]133;D;1\x07")

	if got := term.CommandCount(); got != 1 {
		t.Fatalf("expected 1 command record, got %d", got)
	}

	cmd, ok := term.Command(0)
	if !ok {
		t.Fatal("expected record 0 present")
	}
	if cmd.PromptRow != 0 {
		t.Errorf("expected prompt row 0, got %d", cmd.PromptRow)
	}
	if cmd.CommandRow != 0 {
		t.Errorf("expected command row 0, got %d", cmd.CommandRow)
	}
	if cmd.OutputRow != 1 {
		t.Errorf("expected output row 1, got %d", cmd.OutputRow)
	}
	if !cmd.Finished {
		t.Error("expected record finished")
	}
	if cmd.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", cmd.ExitCode)
	}
	if cmd.Duration != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s, got %v", cmd.Duration)
	}
	if cmd.ID == [16]byte{} {
		t.Error("expected a non-zero record ID")
	}
}

func TestCommandDefaultExitCode(t *testing.T) {
	term := New()
	term.WriteString("\x1b]133;A\x07\x1b]133;C\x07\x1b]133;D\x07")

	cmd, _ := term.Command(0)
	if cmd.ExitCode != 0 {
		t.Errorf("expected default exit code 0, got %d", cmd.ExitCode)
	}
}

func TestCommandRowsAreAbsolute(t *testing.T) {
	term := New(WithSize(3, 10), WithScrollback(NewMemoryScrollback(10)))

	// Push two rows into scrollback, then mark a prompt.
	term.WriteString("a\r\nb\r\nc\r\nd\r\ne")
	term.WriteString("\x1b]133;A\x07")

	cmd, _ := term.Command(0)
	want := term.ScrollbackLen() + 2 // cursor on the bottom row
	if cmd.PromptRow != want {
		t.Errorf("expected absolute prompt row %d, got %d", want, cmd.PromptRow)
	}
}

func TestCommandsIgnoredOnAlternateScreen(t *testing.T) {
	term := New()
	term.WriteString("\x1b[?1049h\x1b]133;A\x07\x1b[?1049l")

	if got := term.CommandCount(); got != 0 {
		t.Errorf("expected no records from alternate screen, got %d", got)
	}
}

func TestMultipleCommands(t *testing.T) {
	term := New(WithSize(10, 20))
	for i := 0; i < 3; i++ {
		term.WriteString("\x1b]133;A\x07$ cmd\r\n\x1b]133;C\x07out\r\n\x1b]133;D;0\x07")
	}

	if got := term.CommandCount(); got != 3 {
		t.Fatalf("expected 3 records, got %d", got)
	}
	records := term.Commands()
	for i := 1; i < len(records); i++ {
		if records[i].PromptRow <= records[i-1].PromptRow {
			t.Errorf("expected increasing prompt rows, got %d then %d",
				records[i-1].PromptRow, records[i].PromptRow)
		}
		if records[i].ID == records[i-1].ID {
			t.Error("expected distinct record IDs")
		}
	}
}

func TestLastCommandOutput(t *testing.T) {
	term := New(WithSize(10, 20))
	term.WriteString("\x1b]133;A\x07$ echo hi\r\n")
	term.WriteString("\x1b]133;C\x07hi\r\n\x1b]133;D;0\x07")

	if got := term.LastCommandOutput(); got != "hi" {
		t.Errorf("expected output \"hi\", got %q", got)
	}
}
