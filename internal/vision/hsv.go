package vision

import "math"

// HSV is a colour on the 8-bit scale used by the thresholds:
// hue 0-179 (degrees halved), saturation and value 0-255.
type HSV struct {
	H, S, V uint8
}

// Range is an inclusive HSV box
type Range struct {
	Lower HSV
	Upper HSV
}

// Contains reports whether c lies inside the range on every channel
func (r Range) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// RGBToHSV converts an 8-bit RGB colour to 8-bit HSV
func RGBToHSV(r, g, b uint8) HSV {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case maxC == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if maxC > 0 {
		s = delta / maxC
	}

	hue := math.Round(h / 2)
	if hue >= 180 {
		hue -= 180
	}
	return HSV{
		H: uint8(hue),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(maxC * 255)),
	}
}
