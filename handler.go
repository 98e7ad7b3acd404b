package termemu

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"strings"
)

// Print writes a decoded code point at the cursor position.
// Implements Performer.
func (t *Terminal) Print(r rune) {
	t.input(r)
}

// Execute runs a C0 control byte. Implements Performer.
func (t *Terminal) Execute(b byte) {
	switch b {
	case 0x07: // BEL
		t.Bell()
	case 0x08: // BS
		t.Backspace()
	case 0x09: // HT
		t.Tab(1)
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		t.LineFeed()
	case 0x0D: // CR
		t.CarriageReturn()
	case 0x0E: // SO: shift to G1
		t.SetActiveCharset(1)
	case 0x0F: // SI: shift to G0
		t.SetActiveCharset(0)
	case 0x18, 0x1A: // CAN, SUB: aborted sequence shows a replacement char
		t.input('�')
	}
}

// EscDispatch handles a complete ESC sequence. Implements Performer.
func (t *Terminal) EscDispatch(final byte, intermediates []byte) {
	if len(intermediates) > 0 {
		switch intermediates[0] {
		case '(': // designate G0
			t.ConfigureCharset(CharsetIndexG0, charsetFor(final))
		case ')': // designate G1
			t.ConfigureCharset(CharsetIndexG1, charsetFor(final))
		case '*':
			t.ConfigureCharset(CharsetIndexG2, charsetFor(final))
		case '+':
			t.ConfigureCharset(CharsetIndexG3, charsetFor(final))
		case '#':
			if final == '8' { // DECALN
				t.Decaln()
			}
		}
		return
	}

	switch final {
	case 'D': // IND
		t.LineFeed()
	case 'E': // NEL
		t.CarriageReturn()
		t.LineFeed()
	case 'H': // HTS
		t.HorizontalTabSet()
	case 'M': // RI
		t.ReverseIndex()
	case '7': // DECSC
		t.SaveCursorPosition()
	case '8': // DECRC
		t.RestoreCursorPosition()
	case '=': // DECKPAM
		t.setMode(ModeKeypadApplication, true)
	case '>': // DECKPNM
		t.setMode(ModeKeypadApplication, false)
	case 'c': // RIS
		t.Reset()
	case '\\': // ST terminating a string sequence
	}
}

func charsetFor(final byte) Charset {
	if final == '0' {
		return CharsetLineDrawing
	}
	return CharsetASCII
}

// CsiDispatch handles a complete CSI sequence. Implements Performer.
// Unknown finals are consumed without mutating state.
func (t *Terminal) CsiDispatch(final byte, intermediates []byte, params []Param, private byte) {
	arg := func(i, def int) int {
		if i < len(params) && params[i].Value != 0 {
			return params[i].Value
		}
		return def
	}
	argZero := func(i, def int) int {
		if i < len(params) {
			return params[i].Value
		}
		return def
	}

	if len(intermediates) > 0 {
		switch {
		case intermediates[0] == ' ' && final == 'q': // DECSCUSR
			n := argZero(0, 0)
			if n <= 1 {
				n = 1
			}
			t.SetCursorStyle(CursorStyle(clamp(n-1, 0, int(CursorStyleSteadyBar))))
		case intermediates[0] == '!' && final == 'p': // DECSTR
			t.SoftReset()
		}
		return
	}

	switch private {
	case '?':
		switch final {
		case 'h':
			for i := range params {
				t.setDecMode(params[i].Value, true)
			}
		case 'l':
			for i := range params {
				t.setDecMode(params[i].Value, false)
			}
		}
		return
	case '>':
		if final == 'c' { // DA2
			t.writeResponseString("\x1b[>0;0;0c")
		}
		return
	case 0:
	default:
		return
	}

	switch final {
	case 'A': // CUU
		t.MoveUp(arg(0, 1))
	case 'B': // CUD
		t.MoveDown(arg(0, 1))
	case 'C': // CUF
		t.MoveForward(arg(0, 1))
	case 'D': // CUB
		t.MoveBackward(arg(0, 1))
	case 'E': // CNL
		t.MoveDownCr(arg(0, 1))
	case 'F': // CPL
		t.MoveUpCr(arg(0, 1))
	case 'G', '`': // CHA, HPA
		t.GotoCol(arg(0, 1) - 1)
	case 'H', 'f': // CUP, HVP
		t.Goto(arg(0, 1)-1, arg(1, 1)-1)
	case 'I': // CHT
		t.Tab(arg(0, 1))
	case 'J': // ED
		t.ClearScreen(argZero(0, 0))
	case 'K': // EL
		t.ClearLine(argZero(0, 0))
	case 'L': // IL
		t.InsertBlankLines(arg(0, 1))
	case 'M': // DL
		t.DeleteLines(arg(0, 1))
	case 'P': // DCH
		t.DeleteChars(arg(0, 1))
	case 'S': // SU
		t.ScrollUp(arg(0, 1))
	case 'T': // SD
		t.ScrollDown(arg(0, 1))
	case 'X': // ECH
		t.EraseChars(arg(0, 1))
	case 'Z': // CBT
		t.MoveBackwardTabs(arg(0, 1))
	case 'b': // REP: repeat the preceding printable
		t.repeatLast(arg(0, 1))
	case 'c': // DA1
		t.writeResponseString("\x1b[?1;2c")
	case 'd': // VPA
		t.GotoLine(arg(0, 1) - 1)
	case 'g': // TBC
		t.ClearTabs(argZero(0, 0))
	case 'h': // SM
		for i := range params {
			t.setAnsiMode(params[i].Value, true)
		}
	case 'l': // RM
		for i := range params {
			t.setAnsiMode(params[i].Value, false)
		}
	case 'm': // SGR
		t.applySGR(params)
	case 'n': // DSR
		t.DeviceStatus(argZero(0, 0))
	case 'r': // DECSTBM
		t.SetScrollingRegion(arg(0, 1), argZero(1, t.Rows()))
	case 's': // SCOSC
		t.SaveCursorPosition()
	case 't': // XTWINOPS (title stack only)
		switch argZero(0, 0) {
		case 22:
			t.PushTitle()
		case 23:
			t.PopTitle()
		}
	case 'u': // SCORC
		t.RestoreCursorPosition()
	case '@': // ICH
		t.InsertBlank(arg(0, 1))
	}
}

// OscDispatch handles a complete OSC string. Implements Performer.
func (t *Terminal) OscDispatch(params [][]byte, bellTerminated bool) {
	if len(params) == 0 {
		return
	}

	terminator := "\x1b\\"
	if bellTerminated {
		terminator = "\a"
	}

	num, ok := atoi(params[0])
	if !ok {
		return
	}

	switch num {
	case 0, 1, 2: // window title (and icon name, treated the same)
		t.SetTitle(string(joinOsc(params[1:])))

	case 4: // palette set/query: pairs of index;spec
		for i := 1; i+1 < len(params); i += 2 {
			idx, ok := atoi(params[i])
			if !ok || idx < 0 || idx > 255 {
				continue
			}
			spec := string(params[i+1])
			if spec == "?" {
				t.reportColor(fmt.Sprintf("4;%d", idx), idx, terminator)
				continue
			}
			if rgba, ok := parseXColor(spec); ok {
				t.SetColor(idx, rgba)
			}
		}

	case 7: // working directory URI
		t.SetWorkingDirectory(string(joinOsc(params[1:])))

	case 8: // hyperlink
		t.setHyperlinkFromOsc(params)

	case 10: // default foreground
		t.dynamicColor(NamedColorForeground, "10", params, terminator)
	case 11: // default background
		t.dynamicColor(NamedColorBackground, "11", params, terminator)
	case 12: // cursor color
		t.dynamicColor(NamedColorCursor, "12", params, terminator)

	case 52: // clipboard
		t.clipboard(params, terminator)

	case 104: // palette reset
		if len(params) == 1 {
			t.ResetAllColors()
			return
		}
		for _, p := range params[1:] {
			if idx, ok := atoi(p); ok {
				t.ResetColor(idx)
			}
		}

	case 133: // shell integration marks
		t.shellIntegration(params)
	}
}

// DcsHook begins a DCS sequence. The payload is consumed and dropped: no
// DCS-carried protocol is implemented. Implements Performer.
func (t *Terminal) DcsHook(final byte, intermediates []byte, params []Param) {}

// DcsPut consumes one DCS payload byte. Implements Performer.
func (t *Terminal) DcsPut(b byte) {}

// DcsUnhook ends a DCS sequence. Implements Performer.
func (t *Terminal) DcsUnhook() {}

// joinOsc reassembles a payload that the OSC splitter cut on ';'.
func joinOsc(params [][]byte) []byte {
	if len(params) == 0 {
		return nil
	}
	out := make([]byte, 0, len(params[0]))
	for i, p := range params {
		if i > 0 {
			out = append(out, ';')
		}
		out = append(out, p...)
	}
	return out
}

func atoi(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > 0xFFFF {
			return 0, false
		}
	}
	return n, true
}

// --- Printing ---

// input writes a character to the active buffer at the cursor position.
// Handles wide characters, pending wrap, insert mode, and charset
// translation.
func (t *Terminal) input(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.activeCharset >= 0 && t.activeCharset < 4 && t.charsets[t.activeCharset] == CharsetLineDrawing {
		r = translateLineDrawing(r)
	}

	width := runeWidth(r)
	if width == 0 {
		// Combining marks are not attached; zero-width input is dropped.
		return
	}
	if width > 2 {
		width = 2
	}

	// Resolve pending wrap: the cursor may sit one past the last column
	// after printing there, and a wide glyph may not fit at the edge.
	if t.cursor.Col+width > t.cols {
		if t.modes&ModeLineWrap != 0 {
			if width == 2 && t.cursor.Col == t.cols-1 {
				// A wide glyph at the last column leaves a styled space
				// behind and wraps first.
				pad := t.activeBuffer.Cell(t.cursor.Row, t.cursor.Col)
				if pad != nil {
					t.clearWidePairLocked(t.cursor.Row, t.cursor.Col)
					pad.Char = ' '
					pad.Fg = t.template.Fg
					pad.Bg = t.template.Bg
					pad.Flags = t.template.Flags &^ (CellFlagWideChar | CellFlagWideCharSpacer)
					t.activeBuffer.MarkDirty(t.cursor.Row, t.cursor.Col)
				}
			}
			t.activeBuffer.SetWrapped(t.cursor.Row, true)
			t.cursor.Col = 0
			t.linefeedLocked()
		} else {
			t.cursor.Col = t.cols - width
			if t.cursor.Col < 0 {
				t.cursor.Col = 0
			}
		}
	}

	if t.modes&ModeInsert != 0 {
		t.activeBuffer.InsertBlanks(t.cursor.Row, t.cursor.Col, width, t.template.Bg)
	}

	if t.cursor.Row < 0 || t.cursor.Row >= t.rows || t.cursor.Col < 0 || t.cursor.Col >= t.cols {
		return
	}

	t.clearWidePairLocked(t.cursor.Row, t.cursor.Col)

	cell := t.activeBuffer.Cell(t.cursor.Row, t.cursor.Col)
	cell.Char = r
	cell.Fg = t.template.Fg
	cell.Bg = t.template.Bg
	cell.Flags = t.template.Flags &^ (CellFlagWideChar | CellFlagWideCharSpacer)
	cell.Hyperlink = t.currentHyperlink
	if width == 2 {
		cell.SetFlag(CellFlagWideChar)
	}
	t.activeBuffer.MarkDirty(t.cursor.Row, t.cursor.Col)
	t.lastPrinted = r

	if width == 2 {
		t.clearWidePairLocked(t.cursor.Row, t.cursor.Col+1)
		spacer := t.activeBuffer.Cell(t.cursor.Row, t.cursor.Col+1)
		spacer.Reset()
		spacer.Fg = t.template.Fg
		spacer.Bg = t.template.Bg
		spacer.SetFlag(CellFlagWideCharSpacer)
		t.activeBuffer.MarkDirty(t.cursor.Row, t.cursor.Col+1)
	}

	// Col may now equal cols: that is the pending-wrap state.
	t.cursor.Col += width
}

// clearWidePairLocked breaks any wide pair that overlaps (row, col) so the
// primary/spacer pairing invariant survives partial overwrites.
func (t *Terminal) clearWidePairLocked(row, col int) {
	cell := t.activeBuffer.Cell(row, col)
	if cell == nil {
		return
	}
	if cell.IsWide() {
		if spacer := t.activeBuffer.Cell(row, col+1); spacer != nil && spacer.IsWideSpacer() {
			spacer.Reset()
			t.activeBuffer.MarkDirty(row, col+1)
		}
	}
	if cell.IsWideSpacer() {
		if primary := t.activeBuffer.Cell(row, col-1); primary != nil && primary.IsWide() {
			primary.Reset()
			t.activeBuffer.MarkDirty(row, col-1)
		}
	}
}

// repeatLast re-prints the last printable character n times (REP).
func (t *Terminal) repeatLast(n int) {
	t.mu.RLock()
	r := t.lastPrinted
	t.mu.RUnlock()

	if r == 0 {
		return
	}
	for i := 0; i < n && i < 0xFFFF; i++ {
		t.input(r)
	}
}

// translateLineDrawing translates characters for the DEC line drawing
// charset.
func translateLineDrawing(r rune) rune {
	switch r {
	case 'j':
		return '┘'
	case 'k':
		return '┐'
	case 'l':
		return '┌'
	case 'm':
		return '└'
	case 'n':
		return '┼'
	case 'q':
		return '─'
	case 't':
		return '├'
	case 'u':
		return '┤'
	case 'v':
		return '┴'
	case 'w':
		return '┬'
	case 'x':
		return '│'
	default:
		return r
	}
}

// --- Cursor movement ---

// Backspace moves the cursor one column left, stopping at column 0.
// Also resolves a pending wrap back onto the last column.
func (t *Terminal) Backspace() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.Col > 0 {
		t.cursor.Col--
	}
}

// Bell notifies the bell provider.
func (t *Terminal) Bell() {
	t.mu.RLock()
	provider := t.bellProvider
	t.mu.RUnlock()

	if provider != nil {
		provider.Ring()
	}
}

// CarriageReturn moves the cursor to column 0 of the current row.
func (t *Terminal) CarriageReturn() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Col = 0
}

// LineFeed moves the cursor down one row, scrolling the region when the
// cursor is on its bottom line. If ModeLineFeedNewLine is set, also moves
// to column 0.
func (t *Terminal) LineFeed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Explicit newline clears the wrapped flag for this line.
	t.activeBuffer.SetWrapped(t.cursor.Row, false)

	if t.modes&ModeLineFeedNewLine != 0 {
		t.cursor.Col = 0
	}

	t.linefeedLocked()
}

// linefeedLocked advances the cursor one row, scrolling the region if the
// cursor sits on its bottom line (caller must hold lock).
func (t *Terminal) linefeedLocked() {
	if t.cursor.Row == t.scrollBottom-1 {
		t.activeBuffer.ScrollUp(t.scrollTop, t.scrollBottom, 1)
	} else if t.cursor.Row < t.rows-1 {
		t.cursor.Row++
	}
}

// ReverseIndex moves the cursor up one row. If at the top of the scroll
// region, scrolls down instead.
func (t *Terminal) ReverseIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.Row == t.scrollTop {
		t.activeBuffer.ScrollDown(t.scrollTop, t.scrollBottom, 1)
	} else if t.cursor.Row > 0 {
		t.cursor.Row--
	}
}

// Goto moves the cursor to (row, col), adjusting for origin mode.
func (t *Terminal) Goto(row, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row = t.effectiveRow(row)
	t.cursor.Row = clamp(row, 0, t.maxRow())
	t.cursor.Col = clamp(col, 0, t.cols-1)
}

// GotoCol moves the cursor to the specified column, keeping the row.
func (t *Terminal) GotoCol(col int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Col = clamp(col, 0, t.cols-1)
}

// GotoLine moves the cursor to the specified row, adjusting for origin mode.
func (t *Terminal) GotoLine(row int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row = t.effectiveRow(row)
	t.cursor.Row = clamp(row, 0, t.maxRow())
}

// MoveUp moves the cursor up n rows, stopping at row 0.
func (t *Terminal) MoveUp(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Row = clamp(t.cursor.Row-n, 0, t.rows-1)
}

// MoveDown moves the cursor down n rows, stopping at the last row.
func (t *Terminal) MoveDown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Row = clamp(t.cursor.Row+n, 0, t.rows-1)
}

// MoveForward moves the cursor right n columns, stopping at the last column.
func (t *Terminal) MoveForward(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Col = clamp(t.cursor.Col+n, 0, t.cols-1)
}

// MoveBackward moves the cursor left n columns, stopping at column 0.
func (t *Terminal) MoveBackward(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Col = clamp(t.cursor.Col-n, 0, t.cols-1)
}

// MoveDownCr moves the cursor down n rows and to column 0.
func (t *Terminal) MoveDownCr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Row = clamp(t.cursor.Row+n, 0, t.rows-1)
	t.cursor.Col = 0
}

// MoveUpCr moves the cursor up n rows and to column 0.
func (t *Terminal) MoveUpCr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Row = clamp(t.cursor.Row-n, 0, t.rows-1)
	t.cursor.Col = 0
}

// Tab moves the cursor right to the next n tab stops.
func (t *Terminal) Tab(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < n; i++ {
		t.cursor.Col = t.activeBuffer.NextTabStop(clamp(t.cursor.Col, 0, t.cols-1))
	}
}

// MoveBackwardTabs moves the cursor left to the previous n tab stops.
func (t *Terminal) MoveBackwardTabs(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < n; i++ {
		t.cursor.Col = t.activeBuffer.PrevTabStop(clamp(t.cursor.Col, 0, t.cols-1))
	}
}

// --- Erase / insert / delete ---

// ClearLine clears portions of the current line: 0 right of cursor, 1 left
// of cursor, 2 entire line. Erased cells carry the current background.
func (t *Terminal) ClearLine(mode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	col := clamp(t.cursor.Col, 0, t.cols-1)
	switch mode {
	case 0:
		t.activeBuffer.ClearRowRange(t.cursor.Row, col, t.cols, t.template.Bg)
	case 1:
		t.activeBuffer.ClearRowRange(t.cursor.Row, 0, col+1, t.template.Bg)
	case 2:
		t.activeBuffer.ClearRow(t.cursor.Row, t.template.Bg)
	}
}

// ClearScreen clears screen regions: 0 below cursor, 1 above cursor,
// 2 entire screen, 3 entire screen plus scrollback.
func (t *Terminal) ClearScreen(mode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	col := clamp(t.cursor.Col, 0, t.cols-1)
	switch mode {
	case 0:
		t.activeBuffer.ClearRowRange(t.cursor.Row, col, t.cols, t.template.Bg)
		for row := t.cursor.Row + 1; row < t.rows; row++ {
			t.activeBuffer.ClearRow(row, t.template.Bg)
		}
	case 1:
		for row := 0; row < t.cursor.Row; row++ {
			t.activeBuffer.ClearRow(row, t.template.Bg)
		}
		t.activeBuffer.ClearRowRange(t.cursor.Row, 0, col+1, t.template.Bg)
	case 2:
		t.activeBuffer.ClearAll(t.template.Bg)
	case 3:
		t.activeBuffer.ClearAll(t.template.Bg)
		t.primaryBuffer.ClearScrollback()
	}
}

// EraseChars resets n characters at the cursor without shifting.
func (t *Terminal) EraseChars(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	col := clamp(t.cursor.Col, 0, t.cols-1)
	t.activeBuffer.ClearRowRange(t.cursor.Row, col, col+n, t.template.Bg)
}

// InsertBlank inserts n blank cells at the cursor, shifting characters
// right. The rightmost cells fall off the row.
func (t *Terminal) InsertBlank(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer.InsertBlanks(t.cursor.Row, clamp(t.cursor.Col, 0, t.cols-1), n, t.template.Bg)
}

// DeleteChars removes n characters at the cursor, shifting the rest left.
func (t *Terminal) DeleteChars(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer.DeleteChars(t.cursor.Row, clamp(t.cursor.Col, 0, t.cols-1), n, t.template.Bg)
}

// InsertBlankLines inserts n blank lines at the cursor within the scroll
// region, shifting the rest down.
func (t *Terminal) InsertBlankLines(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.Row >= t.scrollTop && t.cursor.Row < t.scrollBottom {
		t.activeBuffer.InsertLines(t.cursor.Row, n, t.scrollBottom)
	}
}

// DeleteLines removes n lines at the cursor within the scroll region,
// shifting the rest up.
func (t *Terminal) DeleteLines(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.Row >= t.scrollTop && t.cursor.Row < t.scrollBottom {
		t.activeBuffer.DeleteLines(t.cursor.Row, n, t.scrollBottom)
	}
}

// ScrollUp shifts lines up within the scroll region.
func (t *Terminal) ScrollUp(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer.ScrollUp(t.scrollTop, t.scrollBottom, n)
}

// ScrollDown shifts lines down within the scroll region.
func (t *Terminal) ScrollDown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer.ScrollDown(t.scrollTop, t.scrollBottom, n)
}

// --- Tab stops ---

// HorizontalTabSet enables a tab stop at the current column.
func (t *Terminal) HorizontalTabSet() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer.SetTabStop(clamp(t.cursor.Col, 0, t.cols-1))
}

// ClearTabs removes tab stops: 0 at the current column, 3 at all columns.
func (t *Terminal) ClearTabs(mode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch mode {
	case 0:
		t.activeBuffer.ClearTabStop(clamp(t.cursor.Col, 0, t.cols-1))
	case 3:
		t.activeBuffer.ClearAllTabStops()
	}
}

// --- Save / restore cursor ---

// SaveCursorPosition saves cursor position, attributes, charset state, and
// origin mode for later restoration (DECSC).
func (t *Terminal) SaveCursorPosition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveCursorLocked()
}

func (t *Terminal) saveCursorLocked() {
	saved := &SavedCursor{
		Row:          t.cursor.Row,
		Col:          t.cursor.Col,
		Attrs:        t.template,
		OriginMode:   t.modes&ModeOrigin != 0,
		CharsetIndex: t.activeCharset,
		Charsets:     t.charsets,
	}
	if t.activeBuffer == t.alternateBuffer {
		t.savedAlternate = saved
	} else {
		t.savedPrimary = saved
	}
}

// RestoreCursorPosition restores cursor position, attributes, and charset
// state from the saved slot of the active buffer (DECRC).
func (t *Terminal) RestoreCursorPosition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restoreCursorLocked()
}

func (t *Terminal) restoreCursorLocked() {
	saved := t.savedPrimary
	if t.activeBuffer == t.alternateBuffer {
		saved = t.savedAlternate
	}
	if saved == nil {
		return
	}

	t.cursor.Row = clamp(saved.Row, 0, t.rows-1)
	t.cursor.Col = clamp(saved.Col, 0, t.cols)
	t.template = saved.Attrs

	if saved.OriginMode {
		t.modes |= ModeOrigin
	} else {
		t.modes &^= ModeOrigin
	}

	t.activeCharset = saved.CharsetIndex
	t.charsets = saved.Charsets
}

// --- Modes ---

// setAnsiMode sets or resets an ECMA-48 mode (SM/RM).
func (t *Terminal) setAnsiMode(mode int, set bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch mode {
	case 4: // IRM
		t.setModeBitLocked(ModeInsert, set)
	case 20: // LNM
		t.setModeBitLocked(ModeLineFeedNewLine, set)
	}
}

// setDecMode sets or resets a DEC private mode (DECSET/DECRST).
func (t *Terminal) setDecMode(mode int, set bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch mode {
	case 1: // DECCKM
		t.setModeBitLocked(ModeCursorKeys, set)
	case 3: // DECCOLM: 80/132 columns; geometry is host-owned, flag only
		t.setModeBitLocked(ModeColumnMode, set)
	case 6: // DECOM: toggling homes the cursor
		t.setModeBitLocked(ModeOrigin, set)
		if set {
			t.cursor.Row = t.scrollTop
		} else {
			t.cursor.Row = 0
		}
		t.cursor.Col = 0
	case 7: // DECAWM
		t.setModeBitLocked(ModeLineWrap, set)
	case 12: // cursor blink
		t.setModeBitLocked(ModeBlinkingCursor, set)
	case 25: // DECTCEM
		t.setModeBitLocked(ModeShowCursor, set)
		t.cursor.Visible = set
	case 1000:
		t.setModeBitLocked(ModeReportMouseClicks, set)
	case 1002:
		t.setModeBitLocked(ModeReportCellMouseMotion, set)
	case 1003:
		t.setModeBitLocked(ModeReportAllMouseMotion, set)
	case 1004:
		t.setModeBitLocked(ModeReportFocusInOut, set)
	case 1006:
		t.setModeBitLocked(ModeSGRMouse, set)
	case 47, 1047:
		if set {
			t.enterAlternateLocked()
		} else {
			t.leaveAlternateLocked()
		}
	case 1048:
		if set {
			t.saveCursorLocked()
		} else {
			t.restoreCursorLocked()
		}
	case 1049:
		t.setModeBitLocked(ModeSwapScreenAndSetRestoreCursor, set)
		if set {
			t.saveCursorLocked()
			t.enterAlternateLocked()
		} else {
			t.leaveAlternateLocked()
			t.restoreCursorLocked()
		}
	case 2004:
		t.setModeBitLocked(ModeBracketedPaste, set)
	case 2026:
		t.setModeBitLocked(ModeSyncUpdate, set)
	}
}

func (t *Terminal) setModeBitLocked(m TerminalMode, set bool) {
	if set {
		t.modes |= m
	} else {
		t.modes &^= m
	}
}

// setMode sets or resets a mode bit under the lock.
func (t *Terminal) setMode(m TerminalMode, set bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setModeBitLocked(m, set)
}

// enterAlternateLocked switches to the alternate buffer, clearing it.
// Switching never writes to scrollback.
func (t *Terminal) enterAlternateLocked() {
	if t.activeBuffer == t.alternateBuffer {
		return
	}
	t.activeBuffer = t.alternateBuffer
	t.activeBuffer.ClearAll(nil)
	t.savedAlternate = nil
}

// leaveAlternateLocked switches back to the primary buffer. The alternate
// buffer is cleared so stale content never leaks into the next session.
func (t *Terminal) leaveAlternateLocked() {
	if t.activeBuffer != t.alternateBuffer {
		return
	}
	t.alternateBuffer.ClearAll(nil)
	t.activeBuffer = t.primaryBuffer
}

// --- Charsets ---

// ConfigureCharset sets the character set for one of the four slots (G0-G3).
func (t *Terminal) ConfigureCharset(index CharsetIndex, charset Charset) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index >= 0 && index <= CharsetIndexG3 {
		t.charsets[index] = charset
	}
}

// SetActiveCharset selects which charset slot (0-3, G0-G3) is active.
func (t *Terminal) SetActiveCharset(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n >= 0 && n < 4 {
		t.activeCharset = n
	}
}

// --- Scroll region ---

// SetScrollingRegion sets the scroll boundaries (1-based, converted to
// 0-based internally). Moves the cursor to the home position.
func (t *Terminal) SetScrollingRegion(top, bottom int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	top--
	if top < 0 {
		top = 0
	}
	if bottom <= 0 || bottom > t.rows {
		bottom = t.rows
	}
	if top >= bottom {
		return
	}

	t.scrollTop = top
	t.scrollBottom = bottom

	if t.modes&ModeOrigin != 0 {
		t.cursor.Row = t.scrollTop
	} else {
		t.cursor.Row = 0
	}
	t.cursor.Col = 0
}

// --- Device queries ---

// DeviceStatus sends a device status report (DSR): ready (n=5) or cursor
// position (n=6).
func (t *Terminal) DeviceStatus(n int) {
	t.mu.RLock()
	row := t.cursor.Row
	col := clamp(t.cursor.Col, 0, t.cols-1)
	t.mu.RUnlock()

	var response string
	switch n {
	case 5:
		response = "\x1b[0n"
	case 6:
		response = fmt.Sprintf("\x1b[%d;%dR", row+1, col+1)
	}

	if response != "" {
		t.writeResponseString(response)
	}
}

// --- SGR ---

// applySGR applies a Select Graphic Rendition parameter list to the cell
// template.
func (t *Terminal) applySGR(params []Param) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(params) == 0 {
		t.template = NewCellTemplate()
		return
	}

	for i := 0; i < len(params); i++ {
		switch params[i].Value {
		case 0:
			t.template = NewCellTemplate()
		case 1:
			t.template.SetFlag(CellFlagBold)
		case 2:
			t.template.SetFlag(CellFlagDim)
		case 3:
			t.template.SetFlag(CellFlagItalic)
		case 4:
			t.template.SetFlag(CellFlagUnderline)
		case 5, 6:
			t.template.SetFlag(CellFlagBlink)
		case 7:
			t.template.SetFlag(CellFlagReverse)
		case 8:
			t.template.SetFlag(CellFlagHidden)
		case 9:
			t.template.SetFlag(CellFlagStrike)
		case 21, 24:
			t.template.ClearFlag(CellFlagUnderline)
		case 22:
			t.template.ClearFlag(CellFlagBold | CellFlagDim)
		case 23:
			t.template.ClearFlag(CellFlagItalic)
		case 25:
			t.template.ClearFlag(CellFlagBlink)
		case 27:
			t.template.ClearFlag(CellFlagReverse)
		case 28:
			t.template.ClearFlag(CellFlagHidden)
		case 29:
			t.template.ClearFlag(CellFlagStrike)
		case 38:
			c, consumed := parseExtendedColor(params[i+1:])
			if c != nil {
				t.template.Fg = c
			}
			i += consumed
		case 39:
			t.template.Fg = &NamedColor{Name: NamedColorForeground}
		case 48:
			c, consumed := parseExtendedColor(params[i+1:])
			if c != nil {
				t.template.Bg = c
			}
			i += consumed
		case 49:
			t.template.Bg = &NamedColor{Name: NamedColorBackground}
		default:
			v := params[i].Value
			switch {
			case v >= 30 && v <= 37:
				t.template.Fg = &IndexedColor{Index: v - 30}
			case v >= 40 && v <= 47:
				t.template.Bg = &IndexedColor{Index: v - 40}
			case v >= 90 && v <= 97:
				t.template.Fg = &IndexedColor{Index: v - 90 + 8}
			case v >= 100 && v <= 107:
				t.template.Bg = &IndexedColor{Index: v - 100 + 8}
			}
		}
	}
}

// parseExtendedColor parses the tail of an SGR 38/48 extended color:
// ;5;n or ;2;r;g;b, with colon-joined subparameters accepted as well
// (including the colorspace form 38:2::r:g:b). Returns the color (nil if
// malformed) and the number of parameters consumed.
func parseExtendedColor(rest []Param) (color.Color, int) {
	if len(rest) == 0 {
		return nil, 0
	}

	switch rest[0].Value {
	case 5:
		if len(rest) < 2 {
			return nil, len(rest)
		}
		return &IndexedColor{Index: clamp(rest[1].Value, 0, 255)}, 2
	case 2:
		args := rest[1:]
		consumed := 1
		// 38:2::r:g:b carries an empty colorspace subparameter.
		if len(args) >= 4 && args[0].Colon && args[0].Value == 0 && args[3].Colon {
			args = args[1:]
			consumed++
		}
		if len(args) < 3 {
			return nil, consumed + len(args)
		}
		return color.RGBA{
			R: uint8(clamp(args[0].Value, 0, 255)),
			G: uint8(clamp(args[1].Value, 0, 255)),
			B: uint8(clamp(args[2].Value, 0, 255)),
			A: 255,
		}, consumed + 3
	default:
		return nil, 0
	}
}

// --- Title ---

// SetTitle updates the window title and notifies the title provider.
func (t *Terminal) SetTitle(title string) {
	t.mu.Lock()
	t.title = title
	provider := t.titleProvider
	t.mu.Unlock()

	if provider != nil {
		provider.SetTitle(title)
	}
}

// PushTitle saves the current title to the stack.
func (t *Terminal) PushTitle() {
	t.mu.Lock()
	t.titleStack = append(t.titleStack, t.title)
	provider := t.titleProvider
	t.mu.Unlock()

	if provider != nil {
		provider.PushTitle()
	}
}

// PopTitle restores the previous title from the stack.
func (t *Terminal) PopTitle() {
	t.mu.Lock()
	if len(t.titleStack) > 0 {
		t.title = t.titleStack[len(t.titleStack)-1]
		t.titleStack = t.titleStack[:len(t.titleStack)-1]
	}
	provider := t.titleProvider
	t.mu.Unlock()

	if provider != nil {
		provider.PopTitle()
	}
}

// --- Colors (OSC 4/10/11/104) ---

// SetColor stores a palette override at the given index.
func (t *Terminal) SetColor(index int, c color.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.colors[index] = c
}

// ResetColor removes the palette override at the given index.
func (t *Terminal) ResetColor(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.colors, index)
}

// ResetAllColors removes all palette overrides.
func (t *Terminal) ResetAllColors() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.colors = make(map[int]color.Color)
}

// dynamicColor sets or reports a dynamic color (OSC 10/11/12).
func (t *Terminal) dynamicColor(name int, prefix string, params [][]byte, terminator string) {
	if len(params) < 2 {
		return
	}
	spec := string(params[1])
	if spec == "?" {
		t.reportColor(prefix, name, terminator)
		return
	}
	if rgba, ok := parseXColor(spec); ok {
		t.SetColor(name, rgba)
	}
}

// reportColor replies to a color query with the resolved palette value.
func (t *Terminal) reportColor(prefix string, index int, terminator string) {
	t.mu.RLock()
	var rgba color.RGBA
	if c, ok := t.colors[index]; ok {
		rgba = toRGBA(c)
	} else {
		switch {
		case index >= 0 && index < 256:
			rgba = DefaultPalette[index]
		case index == NamedColorBackground:
			rgba = DefaultBackground
		default:
			rgba = DefaultForeground
		}
	}
	t.mu.RUnlock()

	t.writeResponseString(fmt.Sprintf("\x1b]%s;rgb:%02x%02x/%02x%02x/%02x%02x%s",
		prefix, rgba.R, rgba.R, rgba.G, rgba.G, rgba.B, rgba.B, terminator))
}

// --- Hyperlink (OSC 8) ---

func (t *Terminal) setHyperlinkFromOsc(params [][]byte) {
	if len(params) < 3 {
		return
	}

	// OSC 8 ; params ; URI — an empty URI ends the link.
	uri := string(joinOsc(params[2:]))

	t.mu.Lock()
	defer t.mu.Unlock()

	if uri == "" {
		t.currentHyperlink = nil
		return
	}

	id := ""
	for _, kv := range strings.Split(string(params[1]), ":") {
		if strings.HasPrefix(kv, "id=") {
			id = kv[3:]
		}
	}
	t.currentHyperlink = &Hyperlink{ID: id, URI: uri}
}

// --- Working directory (OSC 7) ---

// SetWorkingDirectory stores the current working directory URI.
func (t *Terminal) SetWorkingDirectory(uri string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workingDir = uri
}

// --- Clipboard (OSC 52) ---

func (t *Terminal) clipboard(params [][]byte, terminator string) {
	if len(params) < 3 {
		return
	}

	target := byte('c')
	if len(params[1]) > 0 {
		target = params[1][0]
	}

	t.mu.RLock()
	provider := t.clipboardProvider
	t.mu.RUnlock()
	if provider == nil {
		return
	}

	payload := string(params[2])
	if payload == "?" {
		// Read query. The default provider denies by returning "".
		content := provider.Read(target)
		if content == "" {
			return
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(content))
		t.writeResponseString("\x1b]52;" + string(target) + ";" + encoded + terminator)
		return
	}

	if decoded, err := base64.StdEncoding.DecodeString(payload); err == nil {
		provider.Write(target, decoded)
	}
}

// --- Reset ---

// Decaln fills the entire screen with 'E' (DEC screen alignment test).
func (t *Terminal) Decaln() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer.FillWithE()
}

// SoftReset performs DECSTR: modes, attributes, charsets, and scroll
// region return to defaults; the screen and scrollback are untouched.
func (t *Terminal) SoftReset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.template = NewCellTemplate()
	t.modes = defaultModes
	t.cursor.Visible = true
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.charsets = [4]Charset{}
	t.activeCharset = 0
	t.savedPrimary = nil
	t.savedAlternate = nil
	t.currentHyperlink = nil
}

// Reset performs RIS: screen, cursor, modes, tab stops, scroll region, and
// attributes return to their defaults; scrollback and command records are
// cleared.
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeBuffer = t.primaryBuffer
	t.primaryBuffer.ClearAll(nil)
	t.alternateBuffer.ClearAll(nil)
	t.primaryBuffer.ClearScrollback()
	t.primaryBuffer.ResetTabStops()
	t.alternateBuffer.ResetTabStops()

	t.cursor.Row = 0
	t.cursor.Col = 0
	t.cursor.Visible = true
	t.cursor.Style = CursorStyleBlinkingBlock

	t.template = NewCellTemplate()
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.modes = defaultModes

	t.charsets = [4]Charset{}
	t.activeCharset = 0
	t.savedPrimary = nil
	t.savedAlternate = nil

	t.colors = make(map[int]color.Color)
	t.currentHyperlink = nil
	t.title = ""
	t.titleStack = nil
	t.workingDir = ""
	t.lastPrinted = 0

	t.commands = nil
	t.openCmd = -1
}

// SetCursorStyle changes the cursor rendering style (DECSCUSR).
func (t *Terminal) SetCursorStyle(style CursorStyle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Style = style
}
