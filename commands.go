package termemu

import (
	"time"

	"github.com/google/uuid"
)

// CommandRecord tracks one shell command delimited by OSC 133 shell
// integration marks. Rows are absolute: scrollback rows come first, the
// visible grid follows, so a record stays addressable after its rows
// scroll out. Records live for the primary-grid lifetime and are dropped
// on RIS.
type CommandRecord struct {
	// ID is a stable identity for the record, usable as a host-side key.
	ID uuid.UUID
	// PromptRow is the absolute row of the OSC 133;A prompt mark.
	PromptRow int
	// CommandRow is the absolute row where command text starts (133;B),
	// -1 until seen.
	CommandRow int
	// OutputRow is the absolute row where output starts (133;C),
	// -1 until seen.
	OutputRow int
	// ExitCode is the command exit status from 133;D;N, -1 until finished.
	ExitCode int
	// Duration is the wall-clock time between the C and D marks.
	// Zero until finished.
	Duration time.Duration
	// Finished reports whether the D mark arrived.
	Finished bool

	started time.Time
}

// shellIntegration processes an OSC 133 sequence. The selector is the
// second parameter: A (prompt start), B (command start), C (command
// executed), D;N (command finished with exit code N).
func (t *Terminal) shellIntegration(params [][]byte) {
	if len(params) < 2 || len(params[1]) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Marks only make sense on the primary grid.
	if t.activeBuffer != t.primaryBuffer {
		return
	}

	absRow := t.cursor.Row + t.primaryBuffer.ScrollbackLen()

	switch params[1][0] {
	case 'A':
		t.commands = append(t.commands, CommandRecord{
			ID:         uuid.New(),
			PromptRow:  absRow,
			CommandRow: -1,
			OutputRow:  -1,
			ExitCode:   -1,
		})
		t.openCmd = len(t.commands) - 1

	case 'B':
		if t.openCmd >= 0 {
			t.commands[t.openCmd].CommandRow = absRow
		}

	case 'C':
		if t.openCmd >= 0 {
			cmd := &t.commands[t.openCmd]
			cmd.OutputRow = absRow
			cmd.started = t.now()
		}

	case 'D':
		if t.openCmd < 0 {
			return
		}
		cmd := &t.commands[t.openCmd]
		cmd.Finished = true
		if len(params) >= 3 {
			if code, ok := atoi(params[2]); ok {
				cmd.ExitCode = code
			}
		} else {
			cmd.ExitCode = 0
		}
		if !cmd.started.IsZero() {
			cmd.Duration = t.now().Sub(cmd.started)
		}
		t.openCmd = -1
	}
}

// CommandCount returns the number of recorded commands.
func (t *Terminal) CommandCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.commands)
}

// Command returns a copy of the i-th command record and true, or a zero
// record and false if i is out of range.
func (t *Terminal) Command(i int) (CommandRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i < 0 || i >= len(t.commands) {
		return CommandRecord{}, false
	}
	return t.commands[i], true
}

// Commands returns a copy of all recorded command records.
func (t *Terminal) Commands() []CommandRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]CommandRecord, len(t.commands))
	copy(out, t.commands)
	return out
}

// LastCommandOutput returns the output text of the most recent finished
// command: the rows between its C mark and the following prompt (or the
// cursor). Returns "" when no finished command exists.
func (t *Terminal) LastCommandOutput() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.commands) - 1; i >= 0; i-- {
		cmd := t.commands[i]
		if !cmd.Finished || cmd.OutputRow < 0 {
			continue
		}
		end := t.cursor.Row + t.primaryBuffer.ScrollbackLen()
		if i+1 < len(t.commands) {
			end = t.commands[i+1].PromptRow
		}
		return t.textBetweenRowsLocked(cmd.OutputRow, end)
	}
	return ""
}

// textBetweenRowsLocked extracts text from startRow (inclusive) to endRow
// (exclusive) in absolute coordinates (caller must hold lock).
func (t *Terminal) textBetweenRowsLocked(startRow, endRow int) string {
	scrollbackLen := t.primaryBuffer.ScrollbackLen()

	var lines []string
	for absRow := startRow; absRow < endRow; absRow++ {
		var lineContent string

		if absRow < 0 {
			continue
		}
		if absRow < scrollbackLen {
			if line := t.primaryBuffer.ScrollbackLine(absRow); line != nil {
				lineContent = cellsToString(line)
			}
		} else {
			bufferRow := absRow - scrollbackLen
			if bufferRow < t.rows {
				lineContent = t.primaryBuffer.LineContent(bufferRow)
			}
		}

		lines = append(lines, lineContent)
	}

	lastNonEmpty := -1
	for i, line := range lines {
		if line != "" {
			lastNonEmpty = i
		}
	}
	if lastNonEmpty < 0 {
		return ""
	}

	result := ""
	for i := 0; i <= lastNonEmpty; i++ {
		if i > 0 {
			result += "\n"
		}
		result += lines[i]
	}
	return result
}
