package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/answer-eraser/internal/geometry"
)

// DefaultTint is the overlay color used when an Overlay has none.
const DefaultTint = "#E53935"

// Overlay is one region to highlight in a preview.
type Overlay struct {
	Region geometry.Region
	// Label is drawn at the region's top-left corner when non-empty.
	Label string
	// Tint is a "#RRGGBB" color. Empty means DefaultTint.
	Tint string
}

// PreviewResult contains the annotated image.
type PreviewResult struct {
	EncodedImage
	RegionCount int `json:"region_count"`
}

// Preview renders img with every overlay tinted, outlined and labelled.
//
// Tinting blends each covered pixel toward the tint in CIE-L*a*b* space with
// the given strength (0-1), which keeps printed text readable under the
// highlight. Regions are clipped to the image.
func Preview(img image.Image, overlays []Overlay, strength float64) (*PreviewResult, error) {
	if strength <= 0 || strength > 1 {
		strength = 0.45
	}
	canvas := ToNRGBA(img)
	bounds := canvas.Bounds()

	for _, o := range overlays {
		hex := o.Tint
		if hex == "" {
			hex = DefaultTint
		}
		tint, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid tint %q: %w", hex, err)
		}

		r := geometry.Clip(o.Region, bounds.Dx(), bounds.Dy())
		if r.Empty() {
			continue
		}
		tintRegion(canvas, r, tint, strength)
		outlineRegion(canvas, r, tint)
		if o.Label != "" {
			drawLabel(canvas, r.X+2, r.Y+2, o.Label, color.NRGBA{255, 255, 255, 255}, toNRGBA(tint))
		}
	}

	encoded, err := EncodePNG(canvas)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{EncodedImage: *encoded, RegionCount: len(overlays)}, nil
}

func tintRegion(img *image.NRGBA, r geometry.Region, tint colorful.Color, strength float64) {
	for y := r.Y; y < r.MaxY(); y++ {
		for x := r.X; x < r.MaxX(); x++ {
			px := img.NRGBAAt(x, y)
			base := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}
			mixed := base.BlendLab(tint, strength).Clamped()
			cr, cg, cb := mixed.RGB255()
			img.SetNRGBA(x, y, color.NRGBA{cr, cg, cb, px.A})
		}
	}
}

func outlineRegion(img *image.NRGBA, r geometry.Region, tint colorful.Color) {
	c := toNRGBA(tint)
	for x := r.X; x < r.MaxX(); x++ {
		img.SetNRGBA(x, r.Y, c)
		img.SetNRGBA(x, r.MaxY()-1, c)
	}
	for y := r.Y; y < r.MaxY(); y++ {
		img.SetNRGBA(r.X, y, c)
		img.SetNRGBA(r.MaxX()-1, y, c)
	}
}

// drawLabel draws text on a filled background box with its top-left at (x, y).
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	box := image.Rect(x-1, y-1, x+width+1, y+face.Height).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{r, g, b, 255}
}
