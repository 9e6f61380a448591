package render

import (
	"fmt"

	"github.com/andyrewlee/ncte/internal/display"
)

// slots is one default slot plus the eight base colors.
const slots = 9

// PairCount is the number of color pairs registered with the display.
const PairCount = slots * slots

// PairID returns the pair for a foreground/background bucket combination.
// Pair 0 is default on default.
func PairID(fg, bg Bucket) int {
	return fg.Slot()*slots + bg.Slot()
}

func slotColor(slot int) int {
	if slot == 0 {
		return display.DefaultColor
	}
	return slot - 1
}

// RegisterPairs defines all PairCount pairs on the surface.
func RegisterPairs(s display.Surface) error {
	for fg := range slots {
		for bg := range slots {
			id := fg*slots + bg
			if err := s.InitPair(id, slotColor(fg), slotColor(bg)); err != nil {
				return fmt.Errorf("init pair %d: %w", id, err)
			}
		}
	}
	return nil
}
