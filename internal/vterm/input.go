package vterm

import (
	"fmt"
	"unicode/utf8"

	"github.com/andyrewlee/ncte/internal/logging"
)

// Key identifies a non-text key. KeyRune means the event carries a rune.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPgUp
	KeyPgDn
	KeyInsert
	KeyDelete
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// Mod is a modifier bit set.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModAlt
	ModCtrl
)

// KeyEvent is one keystroke from the display.
type KeyEvent struct {
	Key  Key
	Rune rune
	Mod  Mod
}

// EncodeInput appends the byte sequence for ev to the outbound buffer. A
// sequence that does not fit is dropped whole.
func (t *Terminal) EncodeInput(ev KeyEvent) {
	seq := t.encodeKey(ev)
	if len(seq) == 0 {
		return
	}
	if t.out.Free() < len(seq) {
		logging.Warn("vterm: output buffer full, dropped key %+v", ev)
		return
	}
	t.out.Append(seq)
}

// EncodeRemaining returns the free space in the outbound buffer.
func (t *Terminal) EncodeRemaining() int {
	return t.out.Free()
}

// EncodePending returns the number of bytes waiting to be drained.
func (t *Terminal) EncodePending() int {
	return t.out.Len()
}

// EncodeDrain removes and returns up to limit bytes of encoded output.
func (t *Terminal) EncodeDrain(limit int) []byte {
	n := min(limit, t.out.Len())
	if n <= 0 {
		return nil
	}
	p := append([]byte(nil), t.out.Bytes()[:n]...)
	t.out.Consume(n)
	return p
}

// modParam is the xterm modifier parameter: 1 + shift + 2*alt + 4*ctrl.
func modParam(m Mod) int {
	n := 1
	if m&ModShift != 0 {
		n++
	}
	if m&ModAlt != 0 {
		n += 2
	}
	if m&ModCtrl != 0 {
		n += 4
	}
	return n
}

var cursorFinals = map[Key]byte{
	KeyUp:    'A',
	KeyDown:  'B',
	KeyRight: 'C',
	KeyLeft:  'D',
	KeyHome:  'H',
	KeyEnd:   'F',
	KeyF1:    'P',
	KeyF2:    'Q',
	KeyF3:    'R',
	KeyF4:    'S',
}

var tildeCodes = map[Key]int{
	KeyInsert: 2,
	KeyDelete: 3,
	KeyPgUp:   5,
	KeyPgDn:   6,
	KeyF5:     15,
	KeyF6:     17,
	KeyF7:     18,
	KeyF8:     19,
	KeyF9:     20,
	KeyF10:    21,
	KeyF11:    23,
	KeyF12:    24,
}

func (t *Terminal) encodeKey(ev KeyEvent) []byte {
	switch ev.Key {
	case KeyRune:
		return encodeRune(ev.Rune, ev.Mod)
	case KeyEnter:
		return withAlt([]byte{'\r'}, ev.Mod)
	case KeyTab:
		if ev.Mod&ModShift != 0 {
			return []byte("\x1b[Z")
		}
		return withAlt([]byte{'\t'}, ev.Mod)
	case KeyBacktab:
		return []byte("\x1b[Z")
	case KeyBackspace:
		if ev.Mod&ModCtrl != 0 {
			return withAlt([]byte{0x08}, ev.Mod)
		}
		return withAlt([]byte{0x7f}, ev.Mod)
	case KeyEscape:
		return withAlt([]byte{0x1b}, ev.Mod)
	}

	if final, ok := cursorFinals[ev.Key]; ok {
		if ev.Mod != 0 {
			return fmt.Appendf(nil, "\x1b[1;%d%c", modParam(ev.Mod), final)
		}
		isFn := ev.Key >= KeyF1 && ev.Key <= KeyF4
		if isFn || t.modes.cursorKeys {
			return []byte{0x1b, 'O', final}
		}
		return []byte{0x1b, '[', final}
	}
	if code, ok := tildeCodes[ev.Key]; ok {
		if ev.Mod != 0 {
			return fmt.Appendf(nil, "\x1b[%d;%d~", code, modParam(ev.Mod))
		}
		return fmt.Appendf(nil, "\x1b[%d~", code)
	}
	return nil
}

func encodeRune(r rune, m Mod) []byte {
	if m&ModCtrl != 0 {
		if c, ok := ctrlByte(r); ok {
			return withAlt([]byte{c}, m)
		}
	}
	if !utf8.ValidRune(r) {
		return nil
	}
	return withAlt(utf8.AppendRune(nil, r), m)
}

// ctrlByte maps a rune to its C0 control code under Ctrl.
func ctrlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r - 'a' + 1), true
	case r >= '@' && r <= '_':
		return byte(r - '@'), true
	case r == ' ' || r == '2':
		return 0, true
	case r == '?' || r == '8':
		return 0x7f, true
	case r >= '3' && r <= '7':
		return byte(r-'3') + 0x1b, true
	}
	return 0, false
}

func withAlt(p []byte, m Mod) []byte {
	if m&ModAlt == 0 {
		return p
	}
	return append([]byte{0x1b}, p...)
}
