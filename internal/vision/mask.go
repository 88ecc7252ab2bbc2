package vision

import "image"

// mask is a binary image over a region of interest
type mask struct {
	w, h int
	bits []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, bits: make([]bool, w*h)}
}

func (m *mask) at(x, y int) bool {
	return m.bits[y*m.w+x]
}

func (m *mask) set(x, y int, v bool) {
	m.bits[y*m.w+x] = v
}

// morph applies a square erosion (erode=true) or dilation with the given
// kernel size. Pixels outside the mask do not take part, so borders are
// neither eroded nor grown. The square kernel is applied as a row pass
// followed by a column pass.
func (m *mask) morph(kernel int, erode bool) *mask {
	r := kernel / 2
	rows := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			rows.set(x, y, m.window(x, y, r, true, erode))
		}
	}
	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			out.set(x, y, rows.window(x, y, r, false, erode))
		}
	}
	return out
}

func (m *mask) window(x, y, r int, horizontal, erode bool) bool {
	for d := -r; d <= r; d++ {
		xx, yy := x, y
		if horizontal {
			xx += d
		} else {
			yy += d
		}
		if xx < 0 || yy < 0 || xx >= m.w || yy >= m.h {
			continue
		}
		v := m.at(xx, yy)
		if erode && !v {
			return false
		}
		if !erode && v {
			return true
		}
	}
	return erode
}

// close fills small holes: dilate then erode
func (m *mask) close(kernel int) *mask {
	return m.morph(kernel, false).morph(kernel, true)
}

// open removes small specks: erode then dilate
func (m *mask) open(kernel int) *mask {
	return m.morph(kernel, true).morph(kernel, false)
}

// blobs returns the bounding boxes of 8-connected components
func (m *mask) blobs() []image.Rectangle {
	seen := make([]bool, len(m.bits))
	var boxes []image.Rectangle
	var stack []int

	for start, on := range m.bits {
		if !on || seen[start] {
			continue
		}
		box := image.Rect(start%m.w, start/m.w, start%m.w+1, start/m.w+1)
		seen[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.w, i/m.w
			box = box.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
						continue
					}
					j := ny*m.w + nx
					if m.bits[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		boxes = append(boxes, box)
	}
	return boxes
}
