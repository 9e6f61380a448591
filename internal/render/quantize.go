package render

import "github.com/andyrewlee/ncte/internal/vterm"

// Bucket is a quantized color: BucketDefault or an ANSI index 0-15.
type Bucket int

// BucketDefault is the display's own color.
const BucketDefault Bucket = -1

// Bright reports whether the bucket is one of the upper eight colors.
func (b Bucket) Bright() bool {
	return b >= 8
}

// Base returns the 0-7 display color of the bucket, or DefaultColor.
func (b Bucket) Base() int {
	if b == BucketDefault {
		return -1
	}
	return int(b) % 8
}

// Slot returns the pair-table slot: 0 for default, base+1 otherwise.
func (b Bucket) Slot() int {
	return b.Base() + 1
}

// Quantize maps c to its bucket. Default stays default, an exact palette hit
// returns that index, and anything else goes to the nearest entry by squared
// RGB distance with ties resolved to the lowest index. exact reports whether
// no approximation was needed.
func (p *Palette) Quantize(c vterm.Color) (b Bucket, exact bool) {
	if c.Default {
		return BucketDefault, true
	}
	best, bestDist := 0, -1
	for i, ref := range p {
		d := distance(c, ref)
		if d == 0 {
			return Bucket(i), true
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return Bucket(best), false
}

func distance(a, b vterm.Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}
