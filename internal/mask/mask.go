// Package mask rasterizes detected regions into a per-pixel erase mask.
//
// A Mask has the same dimensions as the image it describes. A value of 1 marks
// a pixel to erase and 0 marks a pixel to keep. Regions passed to Rasterize are
// clipped to the mask bounds, so callers may pass padded boxes that extend past
// the image edges.
package mask

import (
	"image"

	"github.com/ironsheep/answer-eraser/internal/geometry"
)

const (
	// Keep marks a pixel that must pass through untouched.
	Keep uint8 = 0
	// Erase marks a pixel to be filled by an inpainter.
	Erase uint8 = 1
)

// Mask is a row-major width×height grid of Keep/Erase values.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// New returns an all-keep mask.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Rasterize builds a mask for an image of width×height with every region set
// to Erase. Regions are clipped to the image.
func Rasterize(width, height int, regions []geometry.Region) *Mask {
	m := New(width, height)
	for _, r := range regions {
		m.Fill(r)
	}
	return m
}

// Fill marks every pixel of r that lies inside the mask as Erase.
func (m *Mask) Fill(r geometry.Region) {
	r = geometry.Clip(r, m.Width, m.Height)
	if r.Empty() {
		return
	}
	for y := r.Y; y < r.MaxY(); y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.X; x < r.MaxX(); x++ {
			row[x] = Erase
		}
	}
}

// At returns the value at (x, y). Out-of-range coordinates read as Keep.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Keep
	}
	return m.Pix[y*m.Width+x]
}

// Set writes v at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of Erase pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != Keep {
			n++
		}
	}
	return n
}

// MatchesImage reports whether the mask has the same size as img.
func (m *Mask) MatchesImage(img image.Image) bool {
	b := img.Bounds()
	return m.Width == b.Dx() && m.Height == b.Dy() && len(m.Pix) == m.Width*m.Height
}

// Alpha returns the mask as an *image.Alpha with erase pixels opaque, for
// compositing and previews.
func (m *Mask) Alpha() *image.Alpha {
	a := image.NewAlpha(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != Keep {
			a.Pix[i] = 0xff
		}
	}
	return a
}
