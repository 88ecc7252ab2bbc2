// Package vision classifies fruit in camera frames with fixed HSV thresholds.
package vision

import (
	"image"
	"image/color"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Default thresholds and geometry
var (
	OrangeRange = Range{Lower: HSV{10, 135, 135}, Upper: HSV{32, 255, 255}}
	GreenRange  = Range{Lower: HSV{30, 50, 50}, Upper: HSV{90, 255, 255}}
	RottenRange = Range{Lower: HSV{0, 0, 0}, Upper: HSV{179, 50, 30}}

	// DefaultROI is the part of the 200x150 frame that sees the pick window
	DefaultROI = image.Rect(35, 0, 165, 150)
)

const (
	DefaultMinBlobWidth = 80
	DefaultKernelSize   = 5
)

// Detection is a classified blob in frame coordinates
type Detection struct {
	Fruit core.FruitType
	Box   image.Rectangle
}

type class struct {
	fruit core.FruitType
	rng   Range
}

// Classifier segments the region of interest per colour class and reports
// the class whose blob is wider than MinBlobWidth. When several classes
// match, the last one in threshold order (orange, green, rotten) wins.
type Classifier struct {
	ROI          image.Rectangle
	MinBlobWidth int
	KernelSize   int
	classes      []class
}

// NewClassifier returns a classifier with the default thresholds
func NewClassifier() *Classifier {
	return &Classifier{
		ROI:          DefaultROI,
		MinBlobWidth: DefaultMinBlobWidth,
		KernelSize:   DefaultKernelSize,
		classes: []class{
			{fruit: core.FruitOrange, rng: OrangeRange},
			{fruit: core.FruitApple, rng: GreenRange},
			{fruit: core.FruitRottenApple, rng: RottenRange},
		},
	}
}

// Classify returns the fruit type in the frame, or FruitNone
func (c *Classifier) Classify(frame image.Image) core.FruitType {
	d, ok := c.Detect(frame)
	if !ok {
		return core.FruitNone
	}
	return d.Fruit
}

// Detect returns the winning detection, if any
func (c *Classifier) Detect(frame image.Image) (Detection, bool) {
	if frame == nil {
		return Detection{}, false
	}
	roi := c.ROI.Intersect(frame.Bounds())
	if roi.Empty() {
		return Detection{}, false
	}

	hsv := toHSV(frame, roi)
	var (
		found Detection
		ok    bool
	)
	for _, cl := range c.classes {
		m := newMask(roi.Dx(), roi.Dy())
		for i, px := range hsv {
			m.bits[i] = cl.rng.Contains(px)
		}
		m = m.close(c.KernelSize).open(c.KernelSize)

		for _, box := range m.blobs() {
			if box.Dx() > c.MinBlobWidth {
				found = Detection{Fruit: cl.fruit, Box: box.Add(roi.Min)}
				ok = true
			}
		}
	}
	return found, ok
}

func toHSV(frame image.Image, roi image.Rectangle) []HSV {
	out := make([]HSV, 0, roi.Dx()*roi.Dy())
	if rgba, isRGBA := frame.(*image.RGBA); isRGBA {
		for y := roi.Min.Y; y < roi.Max.Y; y++ {
			for x := roi.Min.X; x < roi.Max.X; x++ {
				i := rgba.PixOffset(x, y)
				out = append(out, RGBToHSV(rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]))
			}
		}
		return out
	}
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			px := color.RGBAModel.Convert(frame.At(x, y)).(color.RGBA)
			out = append(out, RGBToHSV(px.R, px.G, px.B))
		}
	}
	return out
}
