package detection

import (
	"context"
	"image"
	"sort"

	"github.com/ironsheep/answer-eraser/internal/geometry"
)

// Strategy finds handwritten regions in a page.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, img *image.NRGBA) ([]Detection, error)
}

// Source tells how a region was found, which sets its padding.
type Source int

const (
	// Precise regions come from the text detector.
	Precise Source = iota
	// Rough regions come from the AI pass alone.
	Rough
)

// String returns "precise" or "rough".
func (s Source) String() string {
	if s == Rough {
		return "rough"
	}
	return "precise"
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Padding per source, in pixels.
const (
	PrecisePadding = 8
	RoughPadding   = 4
)

// Detection is one region to erase.
type Detection struct {
	Region geometry.Region `json:"region"`
	Source Source          `json:"source"`
}

// Padding returns the outward padding for the detection's source.
func (d Detection) Padding() int {
	if d.Source == Rough {
		return RoughPadding
	}
	return PrecisePadding
}

// Fuse combines rough AI boxes with precise text boxes. Precise boxes that
// overlap a rough box are kept, as are rough boxes that overlap no precise
// box. Empty boxes are ignored. The result is sorted and free of duplicates.
func Fuse(rough, precise []geometry.Region) []Detection {
	rough = nonEmpty(rough)
	precise = nonEmpty(precise)

	out := make([]Detection, 0, len(precise)+len(rough))
	for _, p := range precise {
		if intersectsAny(p, rough) {
			out = append(out, Detection{Region: p, Source: Precise})
		}
	}
	for _, r := range rough {
		if !intersectsAny(r, precise) {
			out = append(out, Detection{Region: r, Source: Rough})
		}
	}
	return normalize(out)
}

// Regions returns the detections' regions in order.
func Regions(dets []Detection) []geometry.Region {
	out := make([]geometry.Region, len(dets))
	for i, d := range dets {
		out[i] = d.Region
	}
	return out
}

// Padded grows every detection by its source padding and clips it to a
// width x height image. Regions left empty after clipping are dropped.
func Padded(dets []Detection, width, height int) []geometry.Region {
	out := make([]geometry.Region, 0, len(dets))
	for _, d := range dets {
		r := geometry.Clip(geometry.Pad(d.Region, d.Padding()), width, height)
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

func intersectsAny(r geometry.Region, set []geometry.Region) bool {
	for _, s := range set {
		if geometry.Intersects(r, s) {
			return true
		}
	}
	return false
}

func nonEmpty(regions []geometry.Region) []geometry.Region {
	out := make([]geometry.Region, 0, len(regions))
	for _, r := range regions {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// normalize sorts detections by region, then source, and removes repeats.
func normalize(dets []Detection) []Detection {
	sort.Slice(dets, func(i, j int) bool {
		if dets[i].Region != dets[j].Region {
			return geometry.Less(dets[i].Region, dets[j].Region)
		}
		return dets[i].Source < dets[j].Source
	})
	out := dets[:0]
	for i, d := range dets {
		if i > 0 && d == dets[i-1] {
			continue
		}
		out = append(out, d)
	}
	return out
}
