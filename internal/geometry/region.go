package geometry

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Region is an axis-aligned rectangle in pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts an image.Rectangle to a Region.
func FromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// MaxX returns the exclusive right edge.
func (r Region) MaxX() int { return r.X + r.Width }

// MaxY returns the exclusive bottom edge.
func (r Region) MaxY() int { return r.Y + r.Height }

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the number of pixels covered, or 0 for an empty region.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Intersects reports whether a and b overlap with non-zero area.
func Intersects(a, b Region) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	return a.X < b.MaxX() && a.MaxX() > b.X && a.Y < b.MaxY() && a.MaxY() > b.Y
}

// Intersection returns the overlapping part of a and b. The result is empty
// when they do not intersect.
func Intersection(a, b Region) Region {
	if !Intersects(a, b) {
		return Region{}
	}
	x1, y1 := maxInt(a.X, b.X), maxInt(a.Y, b.Y)
	x2, y2 := minInt(a.MaxX(), b.MaxX()), minInt(a.MaxY(), b.MaxY())
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Union returns the smallest region containing both a and b. Empty inputs are
// ignored.
func Union(a, b Region) Region {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	x1, y1 := minInt(a.X, b.X), minInt(a.Y, b.Y)
	x2, y2 := maxInt(a.MaxX(), b.MaxX()), maxInt(a.MaxY(), b.MaxY())
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Inset shrinks the region by d pixels on every side. A negative d grows it.
// A region shrunk past zero size is returned empty at its center.
func Inset(r Region, d int) Region {
	out := Region{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
	if out.Width < 0 {
		out.X += out.Width / 2
		out.Width = 0
	}
	if out.Height < 0 {
		out.Y += out.Height / 2
		out.Height = 0
	}
	return out
}

// Pad grows the region by d pixels on every side.
func Pad(r Region, d int) Region {
	return Inset(r, -d)
}

// Clip clamps the region to an image of the given size. The result may be
// empty if the region lies entirely outside the image.
func Clip(r Region, width, height int) Region {
	x1, y1 := maxInt(r.X, 0), maxInt(r.Y, 0)
	x2, y2 := minInt(r.MaxX(), width), minInt(r.MaxY(), height)
	if x2 <= x1 || y2 <= y1 {
		return Region{}
	}
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// NormalizedRegion is a rectangle expressed as fractions (0..1) of the image
// width and height, top-left origin.
type NormalizedRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Denormalize converts to pixel coordinates for an image of width×height.
// Fractions are clamped to [0,1] first. Edges are rounded outward so that a
// thin stroke never collapses to zero pixels.
func (n NormalizedRegion) Denormalize(width, height int) Region {
	x1 := clamp01(n.X)
	y1 := clamp01(n.Y)
	x2 := clamp01(n.X + n.Width)
	y2 := clamp01(n.Y + n.Height)

	px1 := int(math.Floor(x1 * float64(width)))
	py1 := int(math.Floor(y1 * float64(height)))
	px2 := int(math.Ceil(x2 * float64(width)))
	py2 := int(math.Ceil(y2 * float64(height)))
	if px2 <= px1 || py2 <= py1 {
		return Region{}
	}
	return Region{X: px1, Y: py1, Width: px2 - px1, Height: py2 - py1}
}

// FromBottomLeft converts a normalized box whose origin is the bottom-left
// corner into a top-left pixel region.
func FromBottomLeft(n NormalizedRegion, width, height int) Region {
	flipped := NormalizedRegion{X: n.X, Y: 1 - n.Y - n.Height, Width: n.Width, Height: n.Height}
	return flipped.Denormalize(width, height)
}

// Less orders regions by Y, then X, then Width, then Height.
func Less(a, b Region) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Width != b.Width {
		return a.Width < b.Width
	}
	return a.Height < b.Height
}

// Sort orders regions in place using Less.
func Sort(regions []Region) {
	sort.Slice(regions, func(i, j int) bool { return Less(regions[i], regions[j]) })
}

// Dedupe returns the regions sorted with exact duplicates removed.
func Dedupe(regions []Region) []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	Sort(out)
	n := 0
	for i, r := range out {
		if i > 0 && r == out[n-1] {
			continue
		}
		out[n] = r
		n++
	}
	return out[:n]
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
