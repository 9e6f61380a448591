package vterm

import (
	"bytes"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/andyrewlee/ncte/internal/logging"
)

// Parse processes bytes from PTY output. Sequences and UTF-8 runes split
// across calls are carried over to the next call.
func (t *Terminal) Parse(data []byte) {
	if len(t.pending) > 0 {
		data = append(t.pending, data...)
		t.pending = nil
	}

	for len(data) > 0 {
		if c := data[0]; c >= 0xC0 && !utf8.FullRune(data) {
			t.stash(data)
			break
		}

		seq, width, n, state := ansi.DecodeSequence(data, ansi.NormalState, t.parser)
		if state != ansi.NormalState {
			t.stash(data)
			break
		}
		if n <= 0 {
			seq, n = data[:1], 1
		}
		t.handle(seq, width)
		data = data[n:]
	}

	t.flush()
}

func (t *Terminal) stash(data []byte) {
	if len(data) > maxPending {
		logging.Debug("vterm: dropping %d byte unterminated sequence", len(data))
		return
	}
	t.pending = append([]byte(nil), data...)
}

func (t *Terminal) handle(seq []byte, width int) {
	c := seq[0]
	switch {
	case c == ansi.ESC:
		t.escape(seq)
	case c == ansi.CSI:
		t.executeCSI()
	case c == ansi.OSC:
		t.executeOSC(seq[1:])
	case c < 0x20 || c == ansi.DEL:
		t.control(c)
	case c >= 0x80 && c < 0xC0 && len(seq) == 1:
		// C1 controls and stray continuation bytes.
	default:
		t.print(seq, width)
	}
}

func (t *Terminal) control(c byte) {
	switch c {
	case ansi.BEL:
		t.bell()
	case ansi.BS:
		t.wrapNext = false
		if t.cursor.Col > 0 {
			t.cursor.Col--
		}
	case ansi.HT:
		t.wrapNext = false
		t.cursor.Col = min((t.cursor.Col/8+1)*8, t.cols-1)
	case ansi.LF, ansi.VT, ansi.FF:
		t.wrapNext = false
		t.lineFeed()
	case ansi.CR:
		t.wrapNext = false
		t.cursor.Col = 0
	}
}

func (t *Terminal) escape(seq []byte) {
	if len(seq) < 2 {
		return
	}
	switch seq[1] {
	case '[':
		t.executeCSI()
		return
	case ']':
		t.executeOSC(seq[2:])
		return
	case 'P', 'X', '^', '_':
		return
	}
	if len(seq) != 2 {
		// Charset designation and other intermediate forms.
		return
	}

	switch seq[1] {
	case '7': // DECSC
		t.saveCursor()
	case '8': // DECRC
		t.restoreCursor()
	case 'D': // IND
		t.wrapNext = false
		t.lineFeed()
	case 'E': // NEL
		t.wrapNext = false
		t.cursor.Col = 0
		t.lineFeed()
	case 'M': // RI
		t.wrapNext = false
		t.reverseIndex()
	case 'c': // RIS
		t.fullReset()
	case '=', '>': // keypad modes
	default:
		logging.Debug("vterm: unhandled ESC %q", seq[1:])
	}
}

func (t *Terminal) executeOSC(body []byte) {
	body = bytes.TrimSuffix(body, []byte{ansi.BEL})
	body = bytes.TrimSuffix(body, []byte{ansi.ESC, '\\'})
	body = bytes.TrimSuffix(body, []byte{ansi.ST})

	cmd, arg, _ := bytes.Cut(body, []byte{';'})
	switch string(cmd) {
	case "0", "2":
		t.title = string(arg)
		t.setProperty(PropTitle, Value{String: t.title})
	}
}

// print places one grapheme cluster at the cursor.
func (t *Terminal) print(seq []byte, seqWidth int) {
	text := string(seq)
	width := runewidth.StringWidth(text)
	if width == 0 && seqWidth > 0 {
		width = seqWidth
	}
	runes := []rune(text)
	if width == 0 {
		t.combine(runes)
		return
	}
	t.putGlyph(runes, min(width, 2))
}
