package vterm

// ansiColors is the reference table for the 16 ANSI colors.
var ansiColors = [16]Color{
	{R: 0, G: 0, B: 0},
	{R: 224, G: 0, B: 0},
	{R: 0, G: 224, B: 0},
	{R: 224, G: 224, B: 0},
	{R: 0, G: 0, B: 224},
	{R: 224, G: 0, B: 224},
	{R: 0, G: 224, B: 224},
	{R: 224, G: 224, B: 224},
	{R: 128, G: 128, B: 128},
	{R: 255, G: 64, B: 64},
	{R: 64, G: 255, B: 64},
	{R: 255, G: 255, B: 64},
	{R: 64, G: 64, B: 255},
	{R: 255, G: 64, B: 255},
	{R: 64, G: 255, B: 255},
	{R: 255, G: 255, B: 255},
}

var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

// ANSIColors returns the 16 reference colors in index order.
func ANSIColors() [16]Color {
	return ansiColors
}

// IndexedColor resolves a 256-color palette index to RGB. Out-of-range
// indexes yield the default color.
func IndexedColor(idx int) Color {
	switch {
	case idx < 0 || idx > 255:
		return DefaultColor
	case idx < 16:
		return ansiColors[idx]
	case idx < 232:
		idx -= 16
		return RGB(cubeLevels[idx/36], cubeLevels[(idx/6)%6], cubeLevels[idx%6])
	default:
		gray := uint8(8 + (idx-232)*10)
		return RGB(gray, gray, gray)
	}
}
