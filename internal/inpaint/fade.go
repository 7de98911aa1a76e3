package inpaint

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blend"

	"github.com/ironsheep/answer-eraser/internal/mask"
)

// Fade blends white over erase pixels with a fixed opacity.
type Fade struct {
	// Strength is the opacity of the white layer, clamped to [0, 1].
	Strength float64
}

// NewWhiteFill returns a Fade that paints erase pixels solid white.
func NewWhiteFill() *Fade {
	return &Fade{Strength: 1}
}

// NewCrossFade returns a Fade with the given white opacity.
func NewCrossFade(strength float64) *Fade {
	return &Fade{Strength: strength}
}

// Inpaint implements Inpainter.
func (f *Fade) Inpaint(img *image.NRGBA, m *mask.Mask) (*image.NRGBA, error) {
	src, err := normalizeInput(img, m)
	if err != nil {
		return nil, err
	}

	strength := f.Strength
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}

	// blend works on premultiplied RGBA. An opaque copy keeps its output
	// equal to straight color; the original alpha is restored below.
	opaque := image.NewNRGBA(src.Rect)
	copy(opaque.Pix, src.Pix)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}

	// blend clones both layers, so the white layer must be finite.
	white := image.NewNRGBA(src.Rect)
	draw.Draw(white, white.Rect, image.NewUniform(color.White), image.Point{}, draw.Src)
	faded := blend.Opacity(opaque, white, strength)

	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) == mask.Keep {
				continue
			}
			si := faded.PixOffset(x, y)
			di := dst.PixOffset(x, y)
			dst.Pix[di+0] = faded.Pix[si+0]
			dst.Pix[di+1] = faded.Pix[si+1]
			dst.Pix[di+2] = faded.Pix[si+2]
		}
	}
	return dst, nil
}
