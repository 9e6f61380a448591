package vterm

// maxCombining bounds the marks attached to one base glyph.
const maxCombining = 8

// putGlyph writes a glyph of the given width at the cursor and advances it,
// deferring the wrap until the next glyph as xterm does.
func (t *Terminal) putGlyph(runes []rune, width int) {
	if width == 2 && t.cols < 2 {
		width = 1
	}
	if t.wrapNext {
		t.wrapNext = false
		t.cursor.Col = 0
		t.lineFeed()
	}
	if width == 2 && t.cursor.Col == t.cols-1 {
		if !t.modes.autowrap {
			return
		}
		// A wide glyph never straddles the margin.
		line := t.screen[t.cursor.Row]
		t.clearWide(line, t.cursor.Col)
		line[t.cursor.Col] = blankCell(t.pen.Bg)
		t.damageCells(t.cursor.Row, t.cursor.Col, t.cols)
		t.cursor.Col = 0
		t.lineFeed()
	}

	row, col := t.cursor.Row, t.cursor.Col
	line := t.screen[row]
	t.clearWide(line, col)
	if width == 2 {
		t.clearWide(line, col+1)
	}

	line[col] = Cell{Runes: runes, Width: width, Fg: t.pen.Fg, Bg: t.pen.Bg, Attrs: t.pen.Attrs}
	if width == 2 {
		line[col+1] = Cell{Width: 0, Fg: t.pen.Fg, Bg: t.pen.Bg, Attrs: t.pen.Attrs}
	}
	t.damageCells(row, max(col-1, 0), min(col+width+1, t.cols))

	if col+width >= t.cols {
		t.cursor.Col = t.cols - 1
		t.wrapNext = t.modes.autowrap
		return
	}
	t.cursor.Col = col + width
}

// clearWide blanks the other half of a wide glyph that overlaps col.
func (t *Terminal) clearWide(line []Cell, col int) {
	if col < 0 || col >= len(line) {
		return
	}
	switch line[col].Width {
	case 0:
		if col > 0 && line[col-1].Width == 2 {
			line[col-1] = blankCell(line[col-1].Bg)
		}
	case 2:
		if col+1 < len(line) {
			line[col+1] = blankCell(line[col+1].Bg)
		}
	}
}

// combine attaches zero-width marks to the glyph before the cursor.
func (t *Terminal) combine(marks []rune) {
	col := t.cursor.Col
	if !t.wrapNext {
		col--
	}
	line := t.screen[t.cursor.Row]
	if col >= 0 && line[col].Width == 0 {
		col--
	}
	if col < 0 || line[col].Erased() {
		return
	}
	cell := &line[col]
	if len(cell.Runes)+len(marks) > 1+maxCombining {
		return
	}
	cell.Runes = append(cell.Runes[:len(cell.Runes):len(cell.Runes)], marks...)
	t.damageCells(t.cursor.Row, col, col+cell.Width)
}

// lineFeed moves down one row, scrolling the region at its bottom margin.
func (t *Terminal) lineFeed() {
	switch {
	case t.cursor.Row == t.bottom-1:
		t.scrollUp(1)
	case t.cursor.Row < t.rows-1:
		t.cursor.Row++
	}
}

// reverseIndex moves up one row, scrolling the region at its top margin.
func (t *Terminal) reverseIndex() {
	switch {
	case t.cursor.Row == t.top:
		t.scrollDown(1)
	case t.cursor.Row > 0:
		t.cursor.Row--
	}
}

// scrollUp scrolls the region [top, bottom) up by n lines.
func (t *Terminal) scrollUp(n int) {
	t.scrollRegion(t.top, t.bottom, n)
}

// scrollDown scrolls the region [top, bottom) down by n lines.
func (t *Terminal) scrollDown(n int) {
	t.scrollRegion(t.top, t.bottom, -n)
}

// scrollRegion shifts rows [top, bottom) by n; positive n moves content up.
// Rows shifted out are recycled as the blank rows shifted in.
func (t *Terminal) scrollRegion(top, bottom, n int) {
	height := bottom - top
	if n == 0 || height <= 0 {
		return
	}
	count := min(abs(n), height)
	region := t.screen[top:bottom]
	recycled := make([][]Cell, count)
	if n > 0 {
		copy(recycled, region[:count])
		copy(region, region[count:])
		copy(region[height-count:], recycled)
		for _, line := range region[height-count:] {
			t.blankLine(line)
		}
	} else {
		copy(recycled, region[height-count:])
		copy(region[count:], region[:height-count])
		copy(region, recycled)
		for _, line := range region[:count] {
			t.blankLine(line)
		}
	}
	t.damageRows(top, bottom)
}

func (t *Terminal) blankLine(line []Cell) {
	for i := range line {
		line[i] = blankCell(t.pen.Bg)
	}
}

// eraseCells blanks [start, end) on row and repairs wide glyphs cut at
// either edge.
func (t *Terminal) eraseCells(row, start, end int) {
	start, end = max(start, 0), min(end, t.cols)
	if start >= end {
		return
	}
	line := t.screen[row]
	t.clearWide(line, start)
	t.clearWide(line, end-1)
	for i := start; i < end; i++ {
		line[i] = blankCell(t.pen.Bg)
	}
	t.damageCells(row, max(start-1, 0), min(end+1, t.cols))
}

// eraseDisplay implements ED.
func (t *Terminal) eraseDisplay(mode int) {
	row := t.cursor.Row
	switch mode {
	case 0:
		t.eraseCells(row, t.cursor.Col, t.cols)
		for r := row + 1; r < t.rows; r++ {
			t.eraseCells(r, 0, t.cols)
		}
	case 1:
		for r := 0; r < row; r++ {
			t.eraseCells(r, 0, t.cols)
		}
		t.eraseCells(row, 0, t.cursor.Col+1)
	case 2, 3:
		for r := 0; r < t.rows; r++ {
			t.eraseCells(r, 0, t.cols)
		}
	}
}

// eraseLine implements EL.
func (t *Terminal) eraseLine(mode int) {
	row := t.cursor.Row
	switch mode {
	case 0:
		t.eraseCells(row, t.cursor.Col, t.cols)
	case 1:
		t.eraseCells(row, 0, t.cursor.Col+1)
	case 2:
		t.eraseCells(row, 0, t.cols)
	}
}

// insertLines implements IL; it is a no-op outside the scroll region.
func (t *Terminal) insertLines(n int) {
	if t.cursor.Row < t.top || t.cursor.Row >= t.bottom {
		return
	}
	t.scrollRegion(t.cursor.Row, t.bottom, -n)
	t.cursor.Col = 0
}

// deleteLines implements DL; it is a no-op outside the scroll region.
func (t *Terminal) deleteLines(n int) {
	if t.cursor.Row < t.top || t.cursor.Row >= t.bottom {
		return
	}
	t.scrollRegion(t.cursor.Row, t.bottom, n)
	t.cursor.Col = 0
}

// insertChars implements ICH.
func (t *Terminal) insertChars(n int) {
	line := t.screen[t.cursor.Row]
	col := t.cursor.Col
	n = min(n, t.cols-col)
	copy(line[col+n:], line[col:t.cols-n])
	for i := col; i < col+n; i++ {
		line[i] = blankCell(t.pen.Bg)
	}
	normalizeLine(line)
	t.damageCells(t.cursor.Row, max(col-1, 0), t.cols)
}

// deleteChars implements DCH.
func (t *Terminal) deleteChars(n int) {
	line := t.screen[t.cursor.Row]
	col := t.cursor.Col
	n = min(n, t.cols-col)
	copy(line[col:], line[col+n:])
	for i := t.cols - n; i < t.cols; i++ {
		line[i] = blankCell(t.pen.Bg)
	}
	normalizeLine(line)
	t.damageCells(t.cursor.Row, max(col-1, 0), t.cols)
}

// eraseChars implements ECH.
func (t *Terminal) eraseChars(n int) {
	t.eraseCells(t.cursor.Row, t.cursor.Col, t.cursor.Col+n)
}

func (t *Terminal) snapshotCursor() savedCursor {
	return savedCursor{pos: t.cursor, pen: t.pen, origin: t.modes.origin, wrapNext: t.wrapNext}
}

func (t *Terminal) applyCursor(s savedCursor) {
	t.cursor = t.clampPos(s.pos)
	t.pen = s.pen
	t.modes.origin = s.origin
	t.wrapNext = s.wrapNext
}

func (t *Terminal) saveCursor() {
	t.saved = t.snapshotCursor()
}

func (t *Terminal) restoreCursor() {
	t.applyCursor(t.saved)
}

// setAltScreen switches between the primary and alternate screens. The
// alternate screen is always entered blank.
func (t *Terminal) setAltScreen(on bool) {
	if on == t.modes.altScreen {
		return
	}
	if on {
		t.mainScreen = t.screen
		t.screen = t.makeScreen()
	} else {
		t.screen = t.mainScreen
		t.mainScreen = nil
	}
	t.modes.altScreen = on
	t.damageAll()
	t.setProperty(PropAltScreen, Value{Bool: on})
}

// fullReset implements RIS.
func (t *Terminal) fullReset() {
	wasVisible, wasBlink, wasAlt, wasReverse := t.modes.cursorVisible, t.modes.cursorBlink, t.modes.altScreen, t.modes.reverse
	t.reset()
	t.title = ""
	t.damageAll()
	if !wasVisible {
		t.setProperty(PropCursorVisible, Value{Bool: true})
	}
	if !wasBlink {
		t.setProperty(PropCursorBlink, Value{Bool: true})
	}
	if wasAlt {
		t.setProperty(PropAltScreen, Value{Bool: false})
	}
	if wasReverse {
		t.setProperty(PropReverse, Value{Bool: false})
	}
	t.setProperty(PropCursorShape, Value{Int: int(CursorBlock)})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
