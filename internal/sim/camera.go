package sim

import (
	"image"
	"image/color"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Frame geometry
const (
	FrameWidth  = 200
	FrameHeight = 150

	fruitRadius    = 50  // px
	pixelsPerMetre = 500 // horizontal image shift per metre of belt offset
)

// Rendering colours
var (
	ColorBelt   = color.RGBA{128, 128, 128, 255}
	ColorOrange = color.RGBA{255, 140, 0, 255}
	ColorApple  = color.RGBA{60, 180, 40, 255}
	ColorRotten = color.RGBA{22, 20, 19, 255}
)

// FruitColor returns the rendering colour of a fruit
func FruitColor(kind core.FruitType) color.RGBA {
	switch kind {
	case core.FruitOrange:
		return ColorOrange
	case core.FruitApple:
		return ColorApple
	case core.FruitRottenApple:
		return ColorRotten
	default:
		return ColorBelt
	}
}

// render draws the belt and the item in the pick window, if any, as a disc
// that slides across the frame with the belt.
func (w *World) render(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = ColorBelt.R
		img.Pix[i+1] = ColorBelt.G
		img.Pix[i+2] = ColorBelt.B
		img.Pix[i+3] = 255
	}

	idx, ok := w.itemInWindow()
	if !ok {
		return img
	}
	it := w.items[idx]
	fill := FruitColor(it.Kind)
	cx := width/2 + int((it.Position-w.cfg.PickPosition)*pixelsPerMetre)
	cy := height / 2

	for y := cy - fruitRadius; y <= cy+fruitRadius; y++ {
		for x := cx - fruitRadius; x <= cx+fruitRadius; x++ {
			if x < 0 || y < 0 || x >= width || y >= height {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= fruitRadius*fruitRadius {
				img.SetRGBA(x, y, fill)
			}
		}
	}
	return img
}
