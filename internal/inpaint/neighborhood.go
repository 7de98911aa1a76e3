package inpaint

import (
	"image"
	"image/draw"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/mask"
)

// DefaultMaxRadius bounds the ring search of Neighborhood.
const DefaultMaxRadius = 50

// Inpainter produces a copy of img with every erase pixel of m filled.
type Inpainter interface {
	Inpaint(img *image.NRGBA, m *mask.Mask) (*image.NRGBA, error)
}

// Neighborhood fills erase pixels with the mean of the nearest keep pixels.
type Neighborhood struct {
	// MaxRadius is the largest ring searched. Zero means DefaultMaxRadius.
	MaxRadius int
}

// NewNeighborhood returns a Neighborhood inpainter with the default radius.
func NewNeighborhood() *Neighborhood {
	return &Neighborhood{MaxRadius: DefaultMaxRadius}
}

// Inpaint implements Inpainter.
func (n *Neighborhood) Inpaint(img *image.NRGBA, m *mask.Mask) (*image.NRGBA, error) {
	src, err := normalizeInput(img, m)
	if err != nil {
		return nil, err
	}

	maxRadius := n.MaxRadius
	if maxRadius <= 0 {
		maxRadius = DefaultMaxRadius
	}

	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) == mask.Keep {
				continue
			}
			r, g, b, ok := ringMean(src, m, x, y, maxRadius)
			if !ok {
				r, g, b = 0xff, 0xff, 0xff
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = b
		}
	}
	return dst, nil
}

// ringMean returns the mean RGB of the keep pixels on the first ring around
// (x, y) that has any.
func ringMean(src *image.NRGBA, m *mask.Mask, x, y, maxRadius int) (uint8, uint8, uint8, bool) {
	for r := 1; r <= maxRadius; r++ {
		var sumR, sumG, sumB, count int
		visit := func(px, py int) {
			if px < 0 || py < 0 || px >= m.Width || py >= m.Height {
				return
			}
			if m.At(px, py) != mask.Keep {
				return
			}
			i := src.PixOffset(px, py)
			sumR += int(src.Pix[i+0])
			sumG += int(src.Pix[i+1])
			sumB += int(src.Pix[i+2])
			count++
		}

		// Top and bottom rows, then the side columns without their corners.
		for dx := -r; dx <= r; dx++ {
			visit(x+dx, y-r)
			visit(x+dx, y+r)
		}
		for dy := -r + 1; dy <= r-1; dy++ {
			visit(x-r, y+dy)
			visit(x+r, y+dy)
		}

		if count > 0 {
			return uint8(sumR / count), uint8(sumG / count), uint8(sumB / count), true
		}
	}
	return 0, 0, 0, false
}

// normalizeInput checks the mask size and returns img with a zero origin and
// packed rows, copying when img is offset or shares a wider parent's stride.
func normalizeInput(img *image.NRGBA, m *mask.Mask) (*image.NRGBA, error) {
	if img == nil || m == nil {
		return nil, failure.Inpaintingf("inpaint", "image and mask are required")
	}
	if !m.MatchesImage(img) {
		b := img.Bounds()
		return nil, failure.Inpaintingf("inpaint", "mask is %dx%d but image is %dx%d",
			m.Width, m.Height, b.Dx(), b.Dy())
	}
	if img.Rect.Min == (image.Point{}) && img.Stride == 4*img.Rect.Dx() {
		return img, nil
	}
	rebased := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	draw.Draw(rebased, rebased.Bounds(), img, img.Rect.Min, draw.Src)
	return rebased, nil
}
