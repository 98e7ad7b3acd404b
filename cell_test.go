package termemu

import "testing"

func TestNewCellIsEmpty(t *testing.T) {
	c := NewCell()

	if !c.IsEmpty() {
		t.Error("expected new cell empty")
	}
	if c.Char != 0 {
		t.Errorf("expected zero char, got %q", c.Char)
	}
	if fg, ok := c.Fg.(*NamedColor); !ok || fg.Name != NamedColorForeground {
		t.Errorf("expected default foreground, got %#v", c.Fg)
	}
}

func TestCellFlags(t *testing.T) {
	c := NewCell()

	c.SetFlag(CellFlagBold | CellFlagItalic)
	if !c.HasFlag(CellFlagBold) || !c.HasFlag(CellFlagItalic) {
		t.Error("expected bold and italic set")
	}

	c.ClearFlag(CellFlagBold)
	if c.HasFlag(CellFlagBold) {
		t.Error("expected bold cleared")
	}
	if !c.HasFlag(CellFlagItalic) {
		t.Error("expected italic untouched")
	}
}

func TestCellReset(t *testing.T) {
	c := NewCell()
	c.Char = 'x'
	c.Flags = CellFlagBold | CellFlagWideChar
	c.Hyperlink = &Hyperlink{URI: "https://example.com"}

	c.Reset()

	if !c.IsEmpty() || c.Flags != 0 || c.Hyperlink != nil {
		t.Errorf("expected fully reset cell, got %+v", c)
	}
}

func TestCellResetWithBackground(t *testing.T) {
	c := NewCell()
	c.Char = 'x'

	bg := &IndexedColor{Index: 4}
	c.ResetWithBackground(bg)

	if c.Char != 0 {
		t.Errorf("expected cleared char, got %q", c.Char)
	}
	if c.Bg != bg {
		t.Errorf("expected background carried, got %#v", c.Bg)
	}
}

func TestCellWideFlags(t *testing.T) {
	c := NewCell()
	c.SetFlag(CellFlagWideChar)
	if !c.IsWide() || c.IsWideSpacer() {
		t.Error("expected wide primary")
	}

	s := NewCell()
	s.SetFlag(CellFlagWideCharSpacer)
	if !s.IsWideSpacer() || s.IsWide() {
		t.Error("expected wide spacer")
	}
	if s.IsEmpty() {
		t.Error("expected spacer not counted as empty")
	}
}

func TestCellDirty(t *testing.T) {
	c := NewCell()
	if c.IsDirty() {
		t.Error("expected clean cell")
	}
	c.MarkDirty()
	if !c.IsDirty() {
		t.Error("expected dirty cell")
	}
	c.ClearDirty()
	if c.IsDirty() {
		t.Error("expected clean after ClearDirty")
	}
}

func TestCellCopySharesHyperlink(t *testing.T) {
	c := NewCell()
	c.Char = 'a'
	c.Hyperlink = &Hyperlink{ID: "1", URI: "https://example.com"}

	d := c.Copy()
	if d.Char != 'a' || d.Hyperlink != c.Hyperlink {
		t.Errorf("unexpected copy: %+v", d)
	}
}
