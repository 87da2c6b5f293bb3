package protocol

import "math/rand/v2"

// Palette is the set of display colours assigned to events created from
// assistant output. The pick is cosmetic, not security-sensitive.
var Palette = [6]string{
	"#e55e5e",
	"#f28c48",
	"#f6be23",
	"#47b881",
	"#2d9cdb",
	"#9c6ade",
}

// ColourPicker selects a display colour for a newly created event.
type ColourPicker func() string

// RandomColour picks uniformly from Palette.
func RandomColour() string {
	return Palette[rand.IntN(len(Palette))]
}
