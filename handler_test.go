package termemu

import (
	"image/color"
	"testing"
)

func TestEraseInLine(t *testing.T) {
	term := New(WithSize(2, 10))
	term.WriteString("abcdefghij\x1b[1;5H")

	term.WriteString("\x1b[K") // right of cursor
	if got := term.LineContent(0); got != "abcd" {
		t.Errorf("EL 0: expected \"abcd\", got %q", got)
	}

	term.WriteString("\x1b[1K") // left of cursor (inclusive)
	for col := 0; col <= 4; col++ {
		if got := term.Cell(0, col).Char; got != 0 {
			t.Errorf("EL 1: cell (0,%d) not cleared: %q", col, got)
		}
	}

	term.WriteString("\x1b[2K")
	if got := term.LineContent(0); got != "" {
		t.Errorf("EL 2: expected empty line, got %q", got)
	}
}

func TestEraseInDisplay(t *testing.T) {
	term := New(WithSize(3, 5))
	term.WriteString("aaaaa\r\nbbbbb\r\nccccc\x1b[2;3H")

	term.WriteString("\x1b[J") // below
	if got := term.LineContent(0); got != "aaaaa" {
		t.Errorf("ED 0: row 0 expected intact, got %q", got)
	}
	if got := term.LineContent(1); got != "bb" {
		t.Errorf("ED 0: row 1 expected \"bb\", got %q", got)
	}
	if got := term.LineContent(2); got != "" {
		t.Errorf("ED 0: row 2 expected cleared, got %q", got)
	}

	term.WriteString("\x1b[1J") // above
	if got := term.LineContent(0); got != "" {
		t.Errorf("ED 1: row 0 expected cleared, got %q", got)
	}
}

func TestEraseDisplayAndScrollback(t *testing.T) {
	term := New(WithSize(2, 5), WithScrollback(NewMemoryScrollback(10)))
	term.WriteString("a\r\nb\r\nc\r\nd")

	if term.ScrollbackLen() == 0 {
		t.Fatal("expected scrollback content")
	}
	term.WriteString("\x1b[3J")
	if got := term.ScrollbackLen(); got != 0 {
		t.Errorf("ED 3: expected scrollback cleared, got %d", got)
	}
}

// Erased cells carry the current background (BCE).
func TestBackgroundColorErase(t *testing.T) {
	term := New(WithSize(2, 5))
	term.WriteString("\x1b[41m\x1b[2J")

	bg, ok := term.Cell(1, 3).Bg.(*IndexedColor)
	if !ok || bg.Index != 1 {
		t.Errorf("expected erased cell to carry red background, got %#v", term.Cell(1, 3).Bg)
	}
	if got := term.Cell(1, 3).Char; got != 0 {
		t.Errorf("expected erased cell empty, got %q", got)
	}
}

func TestInsertDeleteChars(t *testing.T) {
	term := New(WithSize(1, 8))
	term.WriteString("abcdef\x1b[1;2H")

	term.WriteString("\x1b[2@")
	if got := term.LineContent(0); got != "a  bcdef" {
		t.Errorf("ICH: expected \"a  bcdef\", got %q", got)
	}

	term.WriteString("\x1b[2P")
	if got := term.LineContent(0); got != "abcdef" {
		t.Errorf("DCH: expected \"abcdef\", got %q", got)
	}
}

func TestEraseChars(t *testing.T) {
	term := New(WithSize(1, 8))
	term.WriteString("abcdef\x1b[1;2H\x1b[3X")

	if got := term.LineContent(0); got != "a   ef" {
		t.Errorf("ECH: expected \"a   ef\", got %q", got)
	}
	// ECH does not move the cursor.
	if _, col := term.CursorPos(); col != 1 {
		t.Errorf("ECH: expected cursor at col 1, got %d", col)
	}
}

func TestInsertDeleteLines(t *testing.T) {
	term := New(WithSize(4, 5))
	term.WriteString("one\r\ntwo\r\nthree\r\nfour\x1b[2;1H")

	term.WriteString("\x1b[1L")
	if got := term.LineContent(1); got != "" {
		t.Errorf("IL: expected blank row 1, got %q", got)
	}
	if got := term.LineContent(2); got != "two" {
		t.Errorf("IL: expected \"two\" on row 2, got %q", got)
	}
	if got := term.LineContent(3); got != "three" {
		t.Errorf("IL: expected \"three\" on row 3, got %q", got)
	}

	term.WriteString("\x1b[1M")
	if got := term.LineContent(1); got != "two" {
		t.Errorf("DL: expected \"two\" back on row 1, got %q", got)
	}
}

func TestScrollRegion(t *testing.T) {
	term := New(WithSize(5, 5))
	term.WriteString("a\r\nb\r\nc\r\nd\r\ne")
	term.WriteString("\x1b[2;4r") // rows 1..3 (0-based)

	top, bottom := term.ScrollRegion()
	if top != 1 || bottom != 4 {
		t.Fatalf("expected region (1,4), got (%d,%d)", top, bottom)
	}

	// Cursor homes after DECSTBM; move to the region bottom and feed LF.
	term.WriteString("\x1b[4;1H\n")

	if got := term.LineContent(0); got != "a" {
		t.Errorf("row 0 outside region should not move, got %q", got)
	}
	if got := term.LineContent(1); got != "c" {
		t.Errorf("expected \"c\" scrolled to row 1, got %q", got)
	}
	if got := term.LineContent(2); got != "d" {
		t.Errorf("expected \"d\" scrolled to row 2, got %q", got)
	}
	if got := term.LineContent(3); got != "" {
		t.Errorf("expected revealed blank at region bottom, got %q", got)
	}
	if got := term.LineContent(4); got != "e" {
		t.Errorf("row 4 outside region should not move, got %q", got)
	}
}

// Scrolling inside a partial region never feeds scrollback.
func TestPartialRegionNoScrollback(t *testing.T) {
	term := New(WithSize(5, 5), WithScrollback(NewMemoryScrollback(10)))
	term.WriteString("\x1b[1;3r\x1b[3;1H\n\n\n")

	if got := term.ScrollbackLen(); got != 0 {
		t.Errorf("expected no scrollback from partial region, got %d", got)
	}
}

func TestScrollUpDown(t *testing.T) {
	term := New(WithSize(3, 5))
	term.WriteString("a\r\nb\r\nc")

	term.WriteString("\x1b[1S")
	if got := term.LineContent(0); got != "b" {
		t.Errorf("SU: expected \"b\" on row 0, got %q", got)
	}

	term.WriteString("\x1b[1T")
	if got := term.LineContent(0); got != "" {
		t.Errorf("SD: expected blank row 0, got %q", got)
	}
	if got := term.LineContent(1); got != "b" {
		t.Errorf("SD: expected \"b\" on row 1, got %q", got)
	}
}

func TestCursorMovement(t *testing.T) {
	term := New(WithSize(10, 10))
	term.WriteString("\x1b[5;5H")

	steps := []struct {
		seq      string
		row, col int
	}{
		{"\x1b[2A", 2, 4},
		{"\x1b[3B", 5, 4},
		{"\x1b[2C", 5, 6},
		{"\x1b[4D", 5, 2},
		{"\x1b[2E", 7, 0},
		{"\x1b[1F", 6, 0},
		{"\x1b[8G", 6, 7},
		{"\x1b[3d", 2, 7},
		{"\x1b[H", 0, 0},
		{"\x1b[99;99H", 9, 9},
	}
	for _, step := range steps {
		term.WriteString(step.seq)
		row, col := term.CursorPos()
		if row != step.row || col != step.col {
			t.Errorf("%q: expected (%d,%d), got (%d,%d)", step.seq, step.row, step.col, row, col)
		}
	}
}

func TestOriginMode(t *testing.T) {
	term := New(WithSize(10, 10))
	term.WriteString("\x1b[3;8r\x1b[?6h")

	row, col := term.CursorPos()
	if row != 2 || col != 0 {
		t.Fatalf("expected cursor homed to region top (2,0), got (%d,%d)", row, col)
	}

	term.WriteString("\x1b[1;1H")
	if row, _ := term.CursorPos(); row != 2 {
		t.Errorf("origin CUP: expected row 2, got %d", row)
	}

	// Addressing clamps to the region bottom while origin mode is on.
	term.WriteString("\x1b[99;1H")
	if row, _ := term.CursorPos(); row != 7 {
		t.Errorf("origin CUP past bottom: expected row 7, got %d", row)
	}

	term.WriteString("\x1b[?6l\x1b[1;1H")
	if row, _ := term.CursorPos(); row != 0 {
		t.Errorf("absolute CUP: expected row 0, got %d", row)
	}
}

func TestInsertMode(t *testing.T) {
	term := New(WithSize(1, 8))
	term.WriteString("abc\x1b[1;1H\x1b[4hXY\x1b[4l")

	if got := term.LineContent(0); got != "XYabc" {
		t.Errorf("IRM: expected \"XYabc\", got %q", got)
	}
}

func TestAutoWrapDisabled(t *testing.T) {
	term := New(WithSize(2, 5))
	term.WriteString("\x1b[?7l")
	term.WriteString("ABCDEFG")

	if got := term.LineContent(0); got != "ABCDG" {
		t.Errorf("expected last column overwritten, got %q", got)
	}
	if got := term.LineContent(1); got != "" {
		t.Errorf("expected no wrap to row 1, got %q", got)
	}
}

func TestModes(t *testing.T) {
	term := New()

	cases := []struct {
		set, reset string
		mode       TerminalMode
	}{
		{"\x1b[?1h", "\x1b[?1l", ModeCursorKeys},
		{"\x1b[?7h", "\x1b[?7l", ModeLineWrap},
		{"\x1b[?12h", "\x1b[?12l", ModeBlinkingCursor},
		{"\x1b[?1000h", "\x1b[?1000l", ModeReportMouseClicks},
		{"\x1b[?1002h", "\x1b[?1002l", ModeReportCellMouseMotion},
		{"\x1b[?1003h", "\x1b[?1003l", ModeReportAllMouseMotion},
		{"\x1b[?1004h", "\x1b[?1004l", ModeReportFocusInOut},
		{"\x1b[?1006h", "\x1b[?1006l", ModeSGRMouse},
		{"\x1b[?2004h", "\x1b[?2004l", ModeBracketedPaste},
		{"\x1b[?2026h", "\x1b[?2026l", ModeSyncUpdate},
	}
	for _, c := range cases {
		term.WriteString(c.set)
		if !term.HasMode(c.mode) {
			t.Errorf("%q: expected mode set", c.set)
		}
		term.WriteString(c.reset)
		if term.HasMode(c.mode) {
			t.Errorf("%q: expected mode reset", c.reset)
		}
	}
}

func TestCursorVisibilityMode(t *testing.T) {
	term := New()
	term.WriteString("\x1b[?25l")
	if term.CursorVisible() {
		t.Error("expected cursor hidden after DECRST 25")
	}
	term.WriteString("\x1b[?25h")
	if !term.CursorVisible() {
		t.Error("expected cursor visible after DECSET 25")
	}
}

func TestTabStops(t *testing.T) {
	term := New()

	term.WriteString("\t")
	if _, col := term.CursorPos(); col != 8 {
		t.Errorf("expected tab to col 8, got %d", col)
	}
	term.WriteString("\t")
	if _, col := term.CursorPos(); col != 16 {
		t.Errorf("expected tab to col 16, got %d", col)
	}

	term.WriteString("\x1b[Z")
	if _, col := term.CursorPos(); col != 8 {
		t.Errorf("expected back tab to col 8, got %d", col)
	}

	// Set a custom stop at column 3, clear all defaults first.
	term.WriteString("\x1b[3g\x1b[1;4H\x1bH\x1b[1;1H\t")
	if _, col := term.CursorPos(); col != 3 {
		t.Errorf("expected tab to custom stop at col 3, got %d", col)
	}

	// With the only stop cleared, tab runs to the last column.
	term.WriteString("\x1b[1;4H\x1b[g\x1b[1;1H\t")
	if _, col := term.CursorPos(); col != 79 {
		t.Errorf("expected tab to last column, got %d", col)
	}
}

func TestSGRExtendedColors(t *testing.T) {
	term := New()

	term.WriteString("\x1b[38;5;196mA")
	if fg, ok := term.Cell(0, 0).Fg.(*IndexedColor); !ok || fg.Index != 196 {
		t.Errorf("38;5: expected index 196, got %#v", term.Cell(0, 0).Fg)
	}

	term.WriteString("\x1b[48;2;10;20;30mB")
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if bg, ok := term.Cell(0, 1).Bg.(color.RGBA); !ok || bg != want {
		t.Errorf("48;2: expected %v, got %#v", want, term.Cell(0, 1).Bg)
	}

	// Colon-separated subparameters, including the colorspace form.
	term.WriteString("\x1b[0m\x1b[38:2::40:50:60mC")
	want = color.RGBA{R: 40, G: 50, B: 60, A: 255}
	if fg, ok := term.Cell(0, 2).Fg.(color.RGBA); !ok || fg != want {
		t.Errorf("38:2::: expected %v, got %#v", want, term.Cell(0, 2).Fg)
	}

	term.WriteString("\x1b[0m\x1b[38:5:99mD")
	if fg, ok := term.Cell(0, 3).Fg.(*IndexedColor); !ok || fg.Index != 99 {
		t.Errorf("38:5: expected index 99, got %#v", term.Cell(0, 3).Fg)
	}
}

func TestSGRAttributes(t *testing.T) {
	term := New()
	term.WriteString("\x1b[1;3;4;7;9mA")

	c := term.Cell(0, 0)
	for _, flag := range []CellFlags{CellFlagBold, CellFlagItalic, CellFlagUnderline, CellFlagReverse, CellFlagStrike} {
		if !c.HasFlag(flag) {
			t.Errorf("expected flag %b set", flag)
		}
	}

	term.WriteString("\x1b[22;23;24;27;29mB")
	c = term.Cell(0, 1)
	if c.Flags&^CellFlagDirty != 0 {
		t.Errorf("expected all attributes cancelled, got %b", c.Flags)
	}
}

func TestSGRBrightColors(t *testing.T) {
	term := New()
	term.WriteString("\x1b[91mA\x1b[104mB")

	if fg, ok := term.Cell(0, 0).Fg.(*IndexedColor); !ok || fg.Index != 9 {
		t.Errorf("91: expected bright red (9), got %#v", term.Cell(0, 0).Fg)
	}
	if bg, ok := term.Cell(0, 1).Bg.(*IndexedColor); !ok || bg.Index != 12 {
		t.Errorf("104: expected bright blue (12), got %#v", term.Cell(0, 1).Bg)
	}
}

func TestReverseIndex(t *testing.T) {
	term := New(WithSize(3, 5))
	term.WriteString("a\r\nb\r\nc\x1b[1;1H\x1bM")

	if got := term.LineContent(0); got != "" {
		t.Errorf("RI at top: expected blank row 0, got %q", got)
	}
	if got := term.LineContent(1); got != "a" {
		t.Errorf("RI at top: expected \"a\" on row 1, got %q", got)
	}
	// "c" scrolled out the bottom of the region.
	if got := term.LineContent(2); got != "b" {
		t.Errorf("RI at top: expected \"b\" on row 2, got %q", got)
	}
}

func TestLineDrawingCharset(t *testing.T) {
	term := New()
	term.WriteString("\x1b(0qx\x1b(Bq")

	if got := term.Cell(0, 0).Char; got != '─' {
		t.Errorf("expected box drawing q, got %q", got)
	}
	if got := term.Cell(0, 1).Char; got != '│' {
		t.Errorf("expected box drawing x, got %q", got)
	}
	if got := term.Cell(0, 2).Char; got != 'q' {
		t.Errorf("expected plain q after ESC ( B, got %q", got)
	}
}

func TestShiftOutIn(t *testing.T) {
	term := New()
	term.WriteString("\x1b)0q\x0eq\x0fq")

	if got := term.Cell(0, 0).Char; got != 'q' {
		t.Errorf("G0 before SO: expected plain q, got %q", got)
	}
	if got := term.Cell(0, 1).Char; got != '─' {
		t.Errorf("after SO: expected line drawing via G1, got %q", got)
	}
	if got := term.Cell(0, 2).Char; got != 'q' {
		t.Errorf("after SI: expected plain q, got %q", got)
	}
}

func TestDecaln(t *testing.T) {
	term := New(WithSize(2, 3))
	term.WriteString("\x1b#8")

	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			if got := term.Cell(row, col).Char; got != 'E' {
				t.Errorf("cell (%d,%d): expected 'E', got %q", row, col, got)
			}
		}
	}
}

func TestSoftReset(t *testing.T) {
	term := New(WithSize(5, 10))
	term.WriteString("keep\x1b[31m\x1b[?25l\x1b[2;4r\x1b[?6h")
	term.WriteString("\x1b[!p")

	if !term.CursorVisible() {
		t.Error("expected cursor visible after DECSTR")
	}
	if term.HasMode(ModeOrigin) {
		t.Error("expected origin mode reset")
	}
	top, bottom := term.ScrollRegion()
	if top != 0 || bottom != 5 {
		t.Errorf("expected full region, got (%d,%d)", top, bottom)
	}
	// The screen survives a soft reset.
	if got := term.LineContent(0); got != "keep" {
		t.Errorf("expected screen kept, got %q", got)
	}
}

func TestCursorStyle(t *testing.T) {
	term := New()
	term.WriteString("\x1b[4 q")

	if got := term.CursorStyle(); got != CursorStyleSteadyUnderline {
		t.Errorf("expected steady underline, got %d", got)
	}
}

func TestRepeatLast(t *testing.T) {
	term := New()
	term.WriteString("x\x1b[4b")

	if got := term.LineContent(0); got != "xxxxx" {
		t.Errorf("REP: expected \"xxxxx\", got %q", got)
	}
}

func TestUnknownSequencesIgnored(t *testing.T) {
	term := New()
	term.WriteString("a\x1b[=99z\x1b[?77y\x1b[>1;2;3Tb")

	if got := term.LineContent(0); got != "ab" {
		t.Errorf("expected unknown finals consumed, got %q", got)
	}
}

func TestPaletteOverride(t *testing.T) {
	term := New()
	term.WriteString("\x1b]4;1;rgb:ff/00/00\x07")
	term.WriteString("\x1b[31mA")

	fg, _ := term.CellColors(0, 0)
	if fg != 0xff0000 {
		t.Errorf("expected overridden red 0xff0000, got %06x", fg)
	}

	term.WriteString("\x1b]104;1\x07")
	fg, _ = term.CellColors(0, 0)
	if fg != PackRGB(DefaultPalette[1]) {
		t.Errorf("expected default red after reset, got %06x", fg)
	}
}

func TestHyperlink(t *testing.T) {
	term := New()
	term.WriteString("\x1b]8;;https://example.com\x1b\\link\x1b]8;;\x1b\\plain")

	c := term.Cell(0, 0)
	if c.Hyperlink == nil || c.Hyperlink.URI != "https://example.com" {
		t.Errorf("expected hyperlink on linked text, got %#v", c.Hyperlink)
	}
	if term.Cell(0, 4).Hyperlink != nil {
		t.Error("expected no hyperlink after the closing OSC 8")
	}
}

type recordClipboard struct {
	data    []byte
	answers string
}

func (c *recordClipboard) Read(clipboard byte) string        { return c.answers }
func (c *recordClipboard) Write(clipboard byte, data []byte) { c.data = data }

func TestClipboardWrite(t *testing.T) {
	clip := &recordClipboard{}
	term := New(WithClipboard(clip))

	term.WriteString("\x1b]52;c;aGVsbG8=\x07") // "hello"
	if string(clip.data) != "hello" {
		t.Errorf("expected clipboard write \"hello\", got %q", clip.data)
	}
}

func TestClipboardReadDefaultDeny(t *testing.T) {
	var reply recorder
	term := New(WithResponse(&reply))

	term.WriteString("\x1b]52;c;?\x07")
	if len(reply.data) != 0 {
		t.Errorf("expected read query denied by default, got %q", reply.data)
	}
}

type recorder struct {
	data []byte
}

func (r *recorder) Write(p []byte) (int, error) {
	r.data = append(r.data, p...)
	return len(p), nil
}
