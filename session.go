package termemu

import (
	"errors"
	"sync"
	"time"
)

// Errors surfaced by the Session façade.
var (
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("termemu: session closed")
	// ErrNoShell is returned by PTY operations before SpawnShell.
	ErrNoShell = errors.New("termemu: no shell spawned")
)

// readChunk is the drain buffer size for one PTY read pass.
const readChunk = 32 * 1024

// Session ties a Terminal to a PTY and exposes the thread-safe API hosts
// drive. All mutation happens on the caller's thread: the host wakes on
// PtyFd becoming readable, calls ReadPty, then samples the accessors to
// paint. PTY I/O, resize, close and configuration calls are serialized by
// one session lock, so replies the handler emits while parsing cannot
// interleave with host input. Grid, cursor, scrollback, title,
// working-directory and command reads do not take the session lock; they
// go through the Terminal's own lock.
type Session struct {
	mu   sync.Mutex
	term *Terminal
	pty  *Pty

	readBuf []byte
	closed  bool
	// drained marks that the post-EOF zero-length read was delivered.
	drained bool

	cfg       *Config
	configGen uint64

	termProgram string
}

// SessionOption configures a Session during construction.
type SessionOption func(*Session)

// WithConfig seeds the session with a configuration snapshot instead of
// loading one from disk.
func WithConfig(cfg *Config) SessionOption {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithTermProgram sets the TERM_PROGRAM value advertised to the child.
func WithTermProgram(name string) SessionOption {
	return func(s *Session) {
		s.termProgram = name
	}
}

// NewSession creates a session with a cols x rows terminal and no child
// process yet. Dimensions <= 0 fall back to 80x24.
func NewSession(cols, rows int, opts ...SessionOption) *Session {
	s := &Session{
		readBuf:   make([]byte, readChunk),
		configGen: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cfg == nil {
		cfg, err := LoadConfig()
		if err != nil {
			cfg = DefaultConfig()
		}
		s.cfg = cfg
	}

	s.term = New(
		WithSize(rows, cols),
		WithScrollback(NewMemoryScrollback(s.cfg.ScrollbackLines)),
	)
	return s
}

// Terminal returns the underlying emulator for direct access.
func (s *Session) Terminal() *Terminal {
	return s.term
}

// SpawnShell starts the configured shell on a fresh PTY. An empty path
// uses the config value, then the user's login shell. A failed spawn
// leaves the session usable so the host can retry.
func (s *Session) SpawnShell(shellPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.pty != nil {
		if !s.pty.Eof() {
			return errors.New("termemu: shell already running")
		}
		s.pty.Close()
		s.pty = nil
	}

	if shellPath == "" {
		shellPath = s.cfg.Shell
	}

	p, err := SpawnPty(PtyConfig{
		Shell:       shellPath,
		Cols:        s.term.Cols(),
		Rows:        s.term.Rows(),
		TermProgram: s.termProgram,
	})
	if err != nil {
		return err
	}

	s.pty = p
	s.drained = false
	// Replies (DA, DSR, color queries) go straight to the child.
	s.term.SetResponseProvider(p)
	return nil
}

// PtyFd returns the master-side fd for event loop integration, or -1 when
// no shell is running.
func (s *Session) PtyFd() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pty == nil {
		return -1
	}
	return s.pty.Fd()
}

// ReadPty drains available PTY bytes into the parser and returns the
// number of bytes consumed. A dead child produces one final zero-count
// read after draining, then ErrPtyEOF on the next call.
func (s *Session) ReadPty() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}
	if s.pty == nil {
		return 0, ErrNoShell
	}

	total := 0
	for {
		n, err := s.pty.Read(s.readBuf)
		if n > 0 {
			s.term.Write(s.readBuf[:n])
			total += n
		}
		if err != nil {
			if errors.Is(err, ErrPtyEOF) {
				if !s.drained {
					s.drained = true
					s.pty.Reap()
					return total, nil
				}
				return 0, ErrPtyEOF
			}
			return total, err
		}
		if n < len(s.readBuf) {
			return total, nil
		}
	}
}

// WritePty sends host key bytes to the child. Returns the number of bytes
// written; short writes mean the pty buffer stayed full.
func (s *Session) WritePty(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}
	if s.pty == nil {
		return 0, ErrNoShell
	}
	return s.pty.Write(data)
}

// Resize changes the terminal geometry and signals the child via
// TIOCSWINSZ with both character and pixel dimensions.
func (s *Session) Resize(cols, rows, pixelWidth, pixelHeight int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.term.Resize(rows, cols)
	if s.pty == nil {
		return nil
	}
	return s.pty.Resize(cols, rows, pixelWidth, pixelHeight)
}

// ExitStatus returns the child's exit status, or -1 while it is running
// or before a shell was spawned.
func (s *Session) ExitStatus() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pty == nil {
		return -1
	}
	return s.pty.ExitStatus()
}

// Close joins the reader state, terminates and reaps the child, and
// releases the PTY. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.pty != nil {
		return s.pty.Close()
	}
	return nil
}

// --- Grid reads ---

// GridSize returns the terminal dimensions.
func (s *Session) GridSize() (cols, rows int) {
	return s.term.Cols(), s.term.Rows()
}

// CellChar returns the primary code point at (row, col), 0 for empty or
// out-of-range cells.
func (s *Session) CellChar(row, col int) rune {
	return s.term.CellValue(row, col).Char
}

// CellFg returns the resolved foreground at (row, col) packed 0x00RRGGBB.
func (s *Session) CellFg(row, col int) uint32 {
	fg, _ := s.term.CellColors(row, col)
	return fg
}

// CellBg returns the resolved background at (row, col) packed 0x00RRGGBB.
func (s *Session) CellBg(row, col int) uint32 {
	_, bg := s.term.CellColors(row, col)
	return bg
}

// CellAttr returns the style bitfield at (row, col).
func (s *Session) CellAttr(row, col int) CellFlags {
	return s.term.CellValue(row, col).Flags &^ CellFlagDirty
}

// CursorPos returns the cursor position (0-based).
func (s *Session) CursorPos() (row, col int) {
	return s.term.CursorPos()
}

// CursorVisible reports whether the cursor is visible.
func (s *Session) CursorVisible() bool {
	return s.term.CursorVisible()
}

// CursorKeysApp reports whether cursor keys are in application mode
// (DECCKM), which changes the byte sequences arrow keys should send.
func (s *Session) CursorKeysApp() bool {
	return s.term.HasMode(ModeCursorKeys)
}

// BracketedPaste reports whether pasted text should be wrapped in
// bracketed paste markers.
func (s *Session) BracketedPaste() bool {
	return s.term.HasMode(ModeBracketedPaste)
}

// --- Scrollback reads ---

// ScrollbackLen returns the number of scrollback rows.
func (s *Session) ScrollbackLen() int {
	return s.term.ScrollbackLen()
}

// ScrollbackCellChar returns the code point at (sbRow, col) in scrollback.
func (s *Session) ScrollbackCellChar(sbRow, col int) rune {
	return s.term.ScrollbackCell(sbRow, col).Char
}

// ScrollbackCellFg returns the resolved foreground of a scrollback cell
// packed 0x00RRGGBB.
func (s *Session) ScrollbackCellFg(sbRow, col int) uint32 {
	c := s.term.ScrollbackCell(sbRow, col)
	return PackRGB(resolveColor(c.Fg, nil, true))
}

// ScrollbackCellBg returns the resolved background of a scrollback cell
// packed 0x00RRGGBB.
func (s *Session) ScrollbackCellBg(sbRow, col int) uint32 {
	c := s.term.ScrollbackCell(sbRow, col)
	return PackRGB(resolveColor(c.Bg, nil, false))
}

// ExtractText returns the text between two absolute positions; see
// Terminal.ExtractText.
func (s *Session) ExtractText(startRow, startCol, endRow, endCol int) string {
	return s.term.ExtractText(startRow, startCol, endRow, endCol)
}

// --- Titles / CWD ---

// Title returns the current window title.
func (s *Session) Title() string {
	return s.term.Title()
}

// WorkingDir returns the child's working directory path (OSC 7).
func (s *Session) WorkingDir() string {
	return s.term.WorkingDirectoryPath()
}

// --- Command records ---

// CommandCount returns the number of shell-integration command records.
func (s *Session) CommandCount() int {
	return s.term.CommandCount()
}

// CommandPromptRow returns the absolute prompt row of the i-th command,
// or -1 if i is out of range.
func (s *Session) CommandPromptRow(i int) int {
	cmd, ok := s.term.Command(i)
	if !ok {
		return -1
	}
	return cmd.PromptRow
}

// CommandExitCode returns the exit code of the i-th command, or -1 if it
// has not finished or i is out of range.
func (s *Session) CommandExitCode(i int) int {
	cmd, ok := s.term.Command(i)
	if !ok {
		return -1
	}
	return cmd.ExitCode
}

// CommandDurationMs returns the wall-clock duration of the i-th command
// in milliseconds, or -1 if it has not finished or i is out of range.
func (s *Session) CommandDurationMs(i int) int64 {
	cmd, ok := s.term.Command(i)
	if !ok || !cmd.Finished {
		return -1
	}
	return cmd.Duration.Milliseconds()
}

// --- Config snapshot ---

// Config returns the current configuration snapshot.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cfg
}

// PollConfig returns the monotonic configuration generation. The counter
// increments whenever ReloadConfig swaps in a changed snapshot.
func (s *Session) PollConfig() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configGen
}

// ReloadConfig re-reads the config file and, if the snapshot changed,
// swaps it in and bumps the generation.
func (s *Session) ReloadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if *cfg != *s.cfg {
		s.cfg = cfg
		s.configGen++
		s.term.SetMaxScrollback(cfg.ScrollbackLines)
	}
	return nil
}

// DrainFor is a convenience for hosts without an event loop: it polls
// ReadPty until no bytes arrive for the quiet window or the deadline
// passes. Returns total bytes consumed.
func (s *Session) DrainFor(quiet, deadline time.Duration) int {
	start := time.Now()
	last := start
	total := 0
	for time.Since(start) < deadline {
		n, err := s.ReadPty()
		total += n
		if err != nil {
			return total
		}
		if n > 0 {
			last = time.Now()
			continue
		}
		if time.Since(last) > quiet {
			return total
		}
		time.Sleep(5 * time.Millisecond)
	}
	return total
}
