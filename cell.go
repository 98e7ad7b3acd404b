package termemu

import "image/color"

// CellFlags is a bitmask of cell rendering attributes.
type CellFlags uint16

const (
	CellFlagBold CellFlags = 1 << iota
	CellFlagDim
	CellFlagItalic
	CellFlagUnderline
	CellFlagBlink
	CellFlagReverse
	CellFlagHidden
	CellFlagStrike
	CellFlagWideChar
	CellFlagWideCharSpacer
	CellFlagDirty
)

// Cell stores the character, colors, and formatting attributes for one grid
// position. An empty cell has Char == 0. Wide characters (2 columns) use a
// spacer cell in the second position.
type Cell struct {
	Char      rune
	Fg        color.Color
	Bg        color.Color
	Flags     CellFlags
	Hyperlink *Hyperlink
}

// Hyperlink associates a cell with a clickable link (OSC 8).
type Hyperlink struct {
	ID  string
	URI string
}

// NewCell creates an empty cell with default colors.
func NewCell() Cell {
	return Cell{
		Char: 0,
		Fg:   &NamedColor{Name: NamedColorForeground},
		Bg:   &NamedColor{Name: NamedColorBackground},
	}
}

// Reset clears all attributes and sets the cell to default state.
func (c *Cell) Reset() {
	c.Char = 0
	c.Fg = &NamedColor{Name: NamedColorForeground}
	c.Bg = &NamedColor{Name: NamedColorBackground}
	c.Flags = 0
	c.Hyperlink = nil
}

// ResetWithBackground clears the cell but keeps the given background color.
// Erase operations use this so erased cells carry the current background
// (background color erase).
func (c *Cell) ResetWithBackground(bg color.Color) {
	c.Reset()
	if bg != nil {
		c.Bg = bg
	}
}

// HasFlag returns true if the specified flag is set.
func (c *Cell) HasFlag(flag CellFlags) bool {
	return c.Flags&flag != 0
}

// SetFlag enables the specified flag without affecting others.
func (c *Cell) SetFlag(flag CellFlags) {
	c.Flags |= flag
}

// ClearFlag disables the specified flag without affecting others.
func (c *Cell) ClearFlag(flag CellFlags) {
	c.Flags &^= flag
}

// IsDirty returns true if the cell was modified since the last ClearDirty call.
func (c *Cell) IsDirty() bool {
	return c.HasFlag(CellFlagDirty)
}

// MarkDirty marks the cell as modified for dirty tracking.
func (c *Cell) MarkDirty() {
	c.SetFlag(CellFlagDirty)
}

// ClearDirty resets the dirty tracking flag.
func (c *Cell) ClearDirty() {
	c.ClearFlag(CellFlagDirty)
}

// IsWide returns true if this cell contains a wide character (CJK, emoji)
// that occupies 2 columns.
func (c *Cell) IsWide() bool {
	return c.HasFlag(CellFlagWideChar)
}

// IsWideSpacer returns true if this is the second cell of a wide character
// (skipped during rendering).
func (c *Cell) IsWideSpacer() bool {
	return c.HasFlag(CellFlagWideCharSpacer)
}

// IsEmpty returns true if the cell holds no character.
func (c *Cell) IsEmpty() bool {
	return c.Char == 0 && !c.IsWideSpacer()
}

// Copy returns a copy of the cell, sharing the hyperlink pointer.
func (c *Cell) Copy() Cell {
	return Cell{
		Char:      c.Char,
		Fg:        c.Fg,
		Bg:        c.Bg,
		Flags:     c.Flags,
		Hyperlink: c.Hyperlink,
	}
}
