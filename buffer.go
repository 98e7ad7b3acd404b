package termemu

import "image/color"

// Buffer stores a 2D grid of cells and tracks line wrapping state.
// Supports optional scrollback storage for lines scrolled off the top.
type Buffer struct {
	rows       int
	cols       int
	cells      [][]Cell
	wrapped    []bool // true if the line continues onto the next row
	tabStop    []bool
	scrollback ScrollbackProvider
	hasDirty   bool
}

// NewBuffer creates a buffer with the given dimensions and no scrollback.
func NewBuffer(rows, cols int) *Buffer {
	return NewBufferWithStorage(rows, cols, NoopScrollback{})
}

// NewBufferWithStorage creates a buffer with custom scrollback storage.
// Tab stops are initialized every 8 columns.
func NewBufferWithStorage(rows, cols int, storage ScrollbackProvider) *Buffer {
	b := &Buffer{
		rows:       rows,
		cols:       cols,
		cells:      make([][]Cell, rows),
		wrapped:    make([]bool, rows),
		tabStop:    make([]bool, cols),
		scrollback: storage,
	}

	for i := range b.cells {
		b.cells[i] = newRow(cols)
	}

	for i := 0; i < cols; i += 8 {
		b.tabStop[i] = true
	}

	return b
}

func newRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = NewCell()
	}
	return row
}

// Rows returns the buffer height in character rows.
func (b *Buffer) Rows() int {
	return b.rows
}

// Cols returns the buffer width in character columns.
func (b *Buffer) Cols() int {
	return b.cols
}

// Cell returns a pointer to the cell at (row, col).
// Returns nil if coordinates are out of bounds.
func (b *Buffer) Cell(row, col int) *Cell {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return nil
	}
	return &b.cells[row][col]
}

// MarkDirty marks the cell at (row, col) as modified.
func (b *Buffer) MarkDirty(row, col int) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return
	}
	b.cells[row][col].MarkDirty()
	b.hasDirty = true
}

// HasDirty returns true if any cell has been modified since the last
// ClearAllDirty call.
func (b *Buffer) HasDirty() bool {
	return b.hasDirty
}

// DirtyCells returns positions of all modified cells.
func (b *Buffer) DirtyCells() []Position {
	var positions []Position
	for row := range b.cells {
		for col := range b.cells[row] {
			if b.cells[row][col].IsDirty() {
				positions = append(positions, Position{Row: row, Col: col})
			}
		}
	}
	return positions
}

// ClearAllDirty resets the dirty state of all cells.
func (b *Buffer) ClearAllDirty() {
	for row := range b.cells {
		for col := range b.cells[row] {
			b.cells[row][col].ClearDirty()
		}
	}
	b.hasDirty = false
}

// ClearRow resets all cells in the row, carrying the given background color
// (background color erase). Pass nil for the default background.
func (b *Buffer) ClearRow(row int, bg color.Color) {
	b.ClearRowRange(row, 0, b.cols, bg)
}

// ClearRowRange resets cells in the row from startCol (inclusive) to endCol
// (exclusive), carrying the given background color.
func (b *Buffer) ClearRowRange(row, startCol, endCol int, bg color.Color) {
	if row < 0 || row >= b.rows {
		return
	}
	if startCol < 0 {
		startCol = 0
	}
	if endCol > b.cols {
		endCol = b.cols
	}
	for col := startCol; col < endCol; col++ {
		b.cells[row][col].ResetWithBackground(bg)
		b.cells[row][col].MarkDirty()
	}
	b.hasDirty = true
}

// ClearAll resets all cells in the buffer.
func (b *Buffer) ClearAll(bg color.Color) {
	for row := range b.cells {
		b.ClearRow(row, bg)
		b.wrapped[row] = false
	}
}

// ScrollUp shifts lines up by n positions within [top, bottom).
// Lines scrolled off the top are pushed to scrollback if enabled and the
// region covers the whole buffer (top==0 and bottom==rows).
// Revealed bottom lines are cleared and marked dirty.
func (b *Buffer) ScrollUp(top, bottom, n int) {
	if n <= 0 || top >= bottom {
		return
	}
	if top < 0 {
		top = 0
	}
	if bottom > b.rows {
		bottom = b.rows
	}
	if n > bottom-top {
		n = bottom - top
	}

	// Evicted rows move (not copy) into scrollback, but only when the
	// scroll region covers the whole buffer.
	if b.scrollback != nil && b.scrollback.MaxLines() > 0 && top == 0 && bottom == b.rows {
		for i := 0; i < n; i++ {
			b.scrollback.Push(b.cells[i])
		}
	}

	for row := top; row < bottom-n; row++ {
		b.cells[row] = b.cells[row+n]
		b.wrapped[row] = b.wrapped[row+n]
		for col := range b.cells[row] {
			b.cells[row][col].MarkDirty()
		}
	}

	for row := bottom - n; row < bottom; row++ {
		b.cells[row] = newRow(b.cols)
		b.wrapped[row] = false
		for col := range b.cells[row] {
			b.cells[row][col].MarkDirty()
		}
	}
	b.hasDirty = true
}

// ScrollDown shifts lines down by n positions within [top, bottom).
// Revealed top lines are cleared and marked dirty.
func (b *Buffer) ScrollDown(top, bottom, n int) {
	if n <= 0 || top >= bottom {
		return
	}
	if top < 0 {
		top = 0
	}
	if bottom > b.rows {
		bottom = b.rows
	}
	if n > bottom-top {
		n = bottom - top
	}

	for row := bottom - 1; row >= top+n; row-- {
		b.cells[row] = b.cells[row-n]
		b.wrapped[row] = b.wrapped[row-n]
		for col := 0; col < b.cols; col++ {
			b.cells[row][col].MarkDirty()
		}
	}

	for row := top; row < top+n; row++ {
		b.cells[row] = newRow(b.cols)
		b.wrapped[row] = false
		for col := 0; col < b.cols; col++ {
			b.cells[row][col].MarkDirty()
		}
	}
	b.hasDirty = true
}

// InsertLines inserts n blank lines at row, shifting existing lines down
// within [row, bottom).
func (b *Buffer) InsertLines(row, n, bottom int) {
	if row < 0 || row >= bottom || n <= 0 {
		return
	}
	b.ScrollDown(row, bottom, n)
}

// DeleteLines removes n lines at row, shifting remaining lines up within
// [row, bottom).
func (b *Buffer) DeleteLines(row, n, bottom int) {
	if row < 0 || row >= bottom || n <= 0 {
		return
	}
	b.ScrollUp(row, bottom, n)
}

// InsertBlanks inserts n blank cells at (row, col), shifting existing
// characters right. The rightmost cells fall off the row.
func (b *Buffer) InsertBlanks(row, col, n int, bg color.Color) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols || n <= 0 {
		return
	}

	for c := b.cols - 1; c >= col+n; c-- {
		b.cells[row][c] = b.cells[row][c-n]
		b.cells[row][c].MarkDirty()
	}

	for c := col; c < col+n && c < b.cols; c++ {
		b.cells[row][c].ResetWithBackground(bg)
		b.cells[row][c].MarkDirty()
	}
	b.hasDirty = true
}

// DeleteChars removes n characters at (row, col), shifting remaining
// characters left and clearing the end of the line.
func (b *Buffer) DeleteChars(row, col, n int, bg color.Color) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols || n <= 0 {
		return
	}
	if n > b.cols-col {
		n = b.cols - col
	}

	for c := col; c < b.cols-n; c++ {
		b.cells[row][c] = b.cells[row][c+n]
		b.cells[row][c].MarkDirty()
	}

	for c := b.cols - n; c < b.cols; c++ {
		b.cells[row][c].ResetWithBackground(bg)
		b.cells[row][c].MarkDirty()
	}
	b.hasDirty = true
}

// Resize changes buffer dimensions without reflow, preserving existing cells
// at the top-left. Used for the alternate buffer: content beyond the new
// bounds is lost.
func (b *Buffer) Resize(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}

	newCells := make([][]Cell, rows)
	for i := range newCells {
		newCells[i] = make([]Cell, cols)
		for j := range newCells[i] {
			if i < b.rows && j < b.cols {
				newCells[i][j] = b.cells[i][j]
			} else {
				newCells[i][j] = NewCell()
			}
			newCells[i][j].MarkDirty()
		}
	}

	newWrapped := make([]bool, rows)
	copy(newWrapped, b.wrapped)

	b.cells = newCells
	b.wrapped = newWrapped
	b.rows = rows
	b.cols = cols
	b.hasDirty = true

	b.resizeTabStops(cols)
}

func (b *Buffer) resizeTabStops(cols int) {
	newTabStop := make([]bool, cols)
	n := copy(newTabStop, b.tabStop)
	start := ((n + 7) / 8) * 8
	for i := start; i < cols; i += 8 {
		newTabStop[i] = true
	}
	b.tabStop = newTabStop
}

// ReflowResize changes dimensions re-wrapping logical lines reconstructed
// from the wrapped flags. Used for the primary buffer. Rows pushed off the
// top by a height shrink move into scrollback. The cursor follows the cell
// it was on where possible and is clamped otherwise.
func (b *Buffer) ReflowResize(rows, cols int, cursor *Cursor) {
	if rows <= 0 || cols <= 0 {
		return
	}

	// Reconstruct logical lines. Each logical line is the concatenation of
	// a run of rows whose wrapped flag chains them together, trimmed of
	// trailing empty cells (except the row the cursor sits on, which keeps
	// cells up to the cursor column so the cursor can be tracked).
	type logical struct {
		cells     []Cell
		cursorOff int // offset of the cursor within the line, -1 if absent
	}

	var lines []logical
	for row := 0; row < b.rows; {
		line := logical{cursorOff: -1}
		for {
			trim := b.cols
			for trim > 0 && b.cells[row][trim-1].IsEmpty() {
				trim--
			}
			if cursor != nil && cursor.Row == row {
				keep := cursor.Col
				if keep > b.cols {
					keep = b.cols
				}
				if keep > trim {
					trim = keep
				}
				line.cursorOff = len(line.cells) + cursor.Col
			}
			line.cells = append(line.cells, b.cells[row][:trim]...)
			wrapped := b.wrapped[row]
			row++
			if !wrapped || row >= b.rows {
				break
			}
		}
		lines = append(lines, line)
	}

	// Re-wrap each logical line to the new width. Wide pairs never split:
	// a wide primary that would land on the last column wraps early.
	newCells := make([][]Cell, 0, rows)
	newWrapped := make([]bool, 0, rows)
	curRow, curCol := -1, -1

	for _, line := range lines {
		row := newRow(cols)
		col := 0
		emit := func(wrapped bool) {
			newCells = append(newCells, row)
			newWrapped = append(newWrapped, wrapped)
			row = newRow(cols)
			col = 0
		}
		if len(line.cells) == 0 && line.cursorOff < 0 {
			emit(false)
			continue
		}
		for i := 0; i < len(line.cells); i++ {
			c := line.cells[i]
			if c.IsWideSpacer() {
				continue
			}
			width := 1
			if c.IsWide() {
				width = 2
			}
			if col+width > cols {
				emit(true)
			}
			if line.cursorOff == i {
				curRow = len(newCells)
				curCol = col
			}
			row[col] = c
			row[col].MarkDirty()
			col++
			if width == 2 && col < cols {
				row[col].Reset()
				row[col].SetFlag(CellFlagWideCharSpacer)
				col++
			}
		}
		if line.cursorOff >= len(line.cells) {
			off := line.cursorOff - len(line.cells) + col
			curRow = len(newCells) + off/cols
			curCol = off % cols
		}
		emit(false)
	}

	// Trailing blank rows below both the content and the cursor are
	// dropped rather than pushed through scrollback.
	lastUsed := -1
	for i := range newCells {
		for j := range newCells[i] {
			if !newCells[i][j].IsEmpty() {
				lastUsed = i
				break
			}
		}
	}
	if curRow > lastUsed {
		lastUsed = curRow
	}
	if lastUsed+1 < len(newCells) {
		newCells = newCells[:lastUsed+1]
		newWrapped = newWrapped[:lastUsed+1]
	}

	// Fit to the new height: overflow at the top moves to scrollback,
	// missing rows are padded at the bottom.
	if len(newCells) > rows {
		overflow := len(newCells) - rows
		// Keep the cursor on screen: never push its row out.
		if curRow >= 0 && curRow < overflow {
			overflow = curRow
		}
		if b.scrollback != nil && b.scrollback.MaxLines() > 0 {
			for i := 0; i < overflow; i++ {
				b.scrollback.Push(newCells[i])
			}
		}
		newCells = newCells[overflow:]
		newWrapped = newWrapped[overflow:]
		if curRow >= 0 {
			curRow -= overflow
		}
		if len(newCells) > rows {
			newCells = newCells[:rows]
			newWrapped = newWrapped[:rows]
		}
	}
	for len(newCells) < rows {
		newCells = append(newCells, newRow(cols))
		newWrapped = append(newWrapped, false)
	}

	b.cells = newCells
	b.wrapped = newWrapped
	b.rows = rows
	b.cols = cols
	b.hasDirty = true
	b.resizeTabStops(cols)

	if cursor != nil {
		if curRow >= 0 {
			cursor.Row = curRow
			cursor.Col = curCol
		}
		cursor.Row = clamp(cursor.Row, 0, rows-1)
		cursor.Col = clamp(cursor.Col, 0, cols-1)
	}
}

// SetTabStop enables a tab stop at the specified column.
func (b *Buffer) SetTabStop(col int) {
	if col >= 0 && col < b.cols {
		b.tabStop[col] = true
	}
}

// ClearTabStop disables the tab stop at the specified column.
func (b *Buffer) ClearTabStop(col int) {
	if col >= 0 && col < b.cols {
		b.tabStop[col] = false
	}
}

// ClearAllTabStops disables all tab stops.
func (b *Buffer) ClearAllTabStops() {
	for i := range b.tabStop {
		b.tabStop[i] = false
	}
}

// ResetTabStops restores the default stops every 8 columns.
func (b *Buffer) ResetTabStops() {
	for i := range b.tabStop {
		b.tabStop[i] = i%8 == 0
	}
}

// NextTabStop returns the column index of the next enabled tab stop after
// col, or the last column if none is found.
func (b *Buffer) NextTabStop(col int) int {
	for c := col + 1; c < b.cols; c++ {
		if b.tabStop[c] {
			return c
		}
	}
	return b.cols - 1
}

// PrevTabStop returns the column index of the previous enabled tab stop
// before col, or 0 if none is found.
func (b *Buffer) PrevTabStop(col int) int {
	for c := col - 1; c >= 0; c-- {
		if b.tabStop[c] {
			return c
		}
	}
	return 0
}

// FillWithE fills all cells with 'E' (DECALN alignment test pattern).
func (b *Buffer) FillWithE() {
	for row := range b.cells {
		for col := range b.cells[row] {
			b.cells[row][col].Reset()
			b.cells[row][col].Char = 'E'
			b.cells[row][col].MarkDirty()
		}
	}
	b.hasDirty = true
}

// ScrollbackLen returns the number of lines stored in scrollback.
func (b *Buffer) ScrollbackLen() int {
	if b.scrollback == nil {
		return 0
	}
	return b.scrollback.Len()
}

// ScrollbackLine returns a line from scrollback, where 0 is the oldest line.
// Returns nil if index is out of range or scrollback is disabled.
func (b *Buffer) ScrollbackLine(index int) []Cell {
	if b.scrollback == nil {
		return nil
	}
	return b.scrollback.Line(index)
}

// ClearScrollback removes all stored scrollback lines.
func (b *Buffer) ClearScrollback() {
	if b.scrollback != nil {
		b.scrollback.Clear()
	}
}

// SetMaxScrollback sets the maximum number of scrollback lines to retain.
func (b *Buffer) SetMaxScrollback(max int) {
	if b.scrollback != nil {
		b.scrollback.SetMaxLines(max)
	}
}

// MaxScrollback returns the current maximum scrollback capacity.
func (b *Buffer) MaxScrollback() int {
	if b.scrollback == nil {
		return 0
	}
	return b.scrollback.MaxLines()
}

// LineContent returns the text content of a line, trimming trailing blanks.
// Wide character spacers are skipped.
func (b *Buffer) LineContent(row int) string {
	if row < 0 || row >= b.rows {
		return ""
	}
	return cellsToString(b.cells[row])
}

// IsWrapped returns true if the line was wrapped due to column overflow,
// false if it ended with an explicit newline.
func (b *Buffer) IsWrapped(row int) bool {
	if row < 0 || row >= b.rows {
		return false
	}
	return b.wrapped[row]
}

// SetWrapped sets whether the line was wrapped or ended with an explicit
// newline.
func (b *Buffer) SetWrapped(row int, wrapped bool) {
	if row < 0 || row >= b.rows {
		return
	}
	b.wrapped[row] = wrapped
}

// cellsToString converts a row of cells to a string, trimming trailing
// blanks and skipping wide spacers.
func cellsToString(cells []Cell) string {
	lastNonBlank := -1
	for i := len(cells) - 1; i >= 0; i-- {
		c := &cells[i]
		if c.Char != ' ' && c.Char != 0 && !c.IsWideSpacer() {
			lastNonBlank = i
			break
		}
	}

	if lastNonBlank < 0 {
		return ""
	}

	runes := make([]rune, 0, lastNonBlank+1)
	for i := 0; i <= lastNonBlank; i++ {
		c := &cells[i]
		if c.IsWideSpacer() {
			continue
		}
		if c.Char == 0 {
			runes = append(runes, ' ')
		} else {
			runes = append(runes, c.Char)
		}
	}

	return string(runes)
}

// Position identifies a cell location in the terminal grid (0-based).
type Position struct {
	Row int
	Col int
}

// Before returns true if this position comes before other in reading order.
func (p Position) Before(other Position) bool {
	if p.Row < other.Row {
		return true
	}
	return p.Row == other.Row && p.Col < other.Col
}

// Equal returns true if both row and column match.
func (p Position) Equal(other Position) bool {
	return p.Row == other.Row && p.Col == other.Col
}
