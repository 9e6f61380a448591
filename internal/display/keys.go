package display

import (
	"github.com/gdamore/tcell/v2"

	"github.com/andyrewlee/ncte/internal/vterm"
)

var namedKeys = map[tcell.Key]vterm.Key{
	tcell.KeyUp:      vterm.KeyUp,
	tcell.KeyDown:    vterm.KeyDown,
	tcell.KeyRight:   vterm.KeyRight,
	tcell.KeyLeft:    vterm.KeyLeft,
	tcell.KeyHome:    vterm.KeyHome,
	tcell.KeyEnd:     vterm.KeyEnd,
	tcell.KeyPgUp:    vterm.KeyPgUp,
	tcell.KeyPgDn:    vterm.KeyPgDn,
	tcell.KeyInsert:  vterm.KeyInsert,
	tcell.KeyDelete:  vterm.KeyDelete,
	tcell.KeyBacktab: vterm.KeyBacktab,
	tcell.KeyF1:      vterm.KeyF1,
	tcell.KeyF2:      vterm.KeyF2,
	tcell.KeyF3:      vterm.KeyF3,
	tcell.KeyF4:      vterm.KeyF4,
	tcell.KeyF5:      vterm.KeyF5,
	tcell.KeyF6:      vterm.KeyF6,
	tcell.KeyF7:      vterm.KeyF7,
	tcell.KeyF8:      vterm.KeyF8,
	tcell.KeyF9:      vterm.KeyF9,
	tcell.KeyF10:     vterm.KeyF10,
	tcell.KeyF11:     vterm.KeyF11,
	tcell.KeyF12:     vterm.KeyF12,
}

func convertMod(m tcell.ModMask) vterm.Mod {
	var mod vterm.Mod
	if m&tcell.ModShift != 0 {
		mod |= vterm.ModShift
	}
	if m&(tcell.ModAlt|tcell.ModMeta) != 0 {
		mod |= vterm.ModAlt
	}
	if m&tcell.ModCtrl != 0 {
		mod |= vterm.ModCtrl
	}
	return mod
}

// convertKey maps a tcell key event onto the emulator's key model. Control
// keys arrive either as dedicated key codes or as runes with ModCtrl.
func convertKey(ev *tcell.EventKey) (vterm.KeyEvent, bool) {
	mod := convertMod(ev.Modifiers())
	switch k := ev.Key(); {
	case k == tcell.KeyRune:
		return vterm.KeyEvent{Key: vterm.KeyRune, Rune: ev.Rune(), Mod: mod}, true
	case k == tcell.KeyEnter:
		return vterm.KeyEvent{Key: vterm.KeyEnter, Mod: mod &^ vterm.ModCtrl}, true
	case k == tcell.KeyTab:
		return vterm.KeyEvent{Key: vterm.KeyTab, Mod: mod &^ vterm.ModCtrl}, true
	case k == tcell.KeyBackspace, k == tcell.KeyBackspace2:
		return vterm.KeyEvent{Key: vterm.KeyBackspace, Mod: mod &^ vterm.ModCtrl}, true
	case k == tcell.KeyEscape:
		return vterm.KeyEvent{Key: vterm.KeyEscape, Mod: mod &^ vterm.ModCtrl}, true
	case k == tcell.KeyCtrlSpace:
		return vterm.KeyEvent{Key: vterm.KeyRune, Rune: ' ', Mod: mod | vterm.ModCtrl}, true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return vterm.KeyEvent{Key: vterm.KeyRune, Rune: rune('a' + k - tcell.KeyCtrlA), Mod: mod | vterm.ModCtrl}, true
	case k >= tcell.KeyCtrlLeftSq && k <= tcell.KeyCtrlUnderscore:
		return vterm.KeyEvent{Key: vterm.KeyRune, Rune: rune('[' + k - tcell.KeyCtrlLeftSq), Mod: mod | vterm.ModCtrl}, true
	}
	if key, ok := namedKeys[ev.Key()]; ok {
		return vterm.KeyEvent{Key: key, Mod: mod}, true
	}
	return vterm.KeyEvent{}, false
}
