package ocr

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/geometry"
)

// EdgeDensity is a TextDetector that needs no OCR engine. It slides windows
// of typical text-line sizes over the page and keeps those whose edge density
// and horizontal structure look like writing. Blocks carry no text, so it can
// feed geometric fusion but not classification.
type EdgeDensity struct {
	// MinConfidence is the window score (0-1) needed to keep a window.
	MinConfidence float64
}

// NewEdgeDensity returns an EdgeDensity detector with a 0.5 threshold.
func NewEdgeDensity() *EdgeDensity {
	return &EdgeDensity{MinConfidence: 0.5}
}

// edgeThreshold is the grayscale step that counts as an edge.
const edgeThreshold = 30

var textWindows = []struct{ w, h int }{
	{100, 30}, // Small text
	{150, 40}, // Medium text
	{200, 50}, // Large text
	{80, 25},  // Very small text
}

// DetectText returns merged text-like areas in reading order.
func (e *EdgeDensity) DetectText(ctx context.Context, img image.Image) ([]TextBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, failure.Detectionf("ocr.edge_density", "empty image")
	}

	gray := imaging.Grayscale(img)
	width, height := gray.Bounds().Dx(), gray.Bounds().Dy()
	edges := detectEdges(gray)

	var candidates []geometry.Region
	for _, ws := range textWindows {
		stepX, stepY := ws.w/2, ws.h/2
		for y := 0; y <= height-ws.h; y += stepY {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for x := 0; x <= width-ws.w; x += stepX {
				count := 0
				for wy := y; wy < y+ws.h; wy++ {
					for wx := x; wx < x+ws.w; wx++ {
						if edges[wy][wx] {
							count++
						}
					}
				}

				// Text has medium edge density: not too sparse, not too dense.
				density := float64(count) / float64(ws.w*ws.h)
				if density < 0.05 || density > 0.4 {
					continue
				}
				score := horizontalScore(edges, x, y, ws.w, ws.h) * (1.0 - math.Abs(density-0.2)/0.2)
				if score >= e.MinConfidence {
					candidates = append(candidates, geometry.Region{X: x, Y: y, Width: ws.w, Height: ws.h})
				}
			}
		}
	}

	merged := mergeOverlapping(candidates)
	geometry.Sort(merged)

	blocks := make([]TextBlock, len(merged))
	for i, r := range merged {
		blocks[i] = TextBlock{Index: i, Bounds: r}
	}
	return blocks, nil
}

// detectEdges marks pixels whose right or lower neighbor differs by more
// than edgeThreshold. Border pixels are never edges.
func detectEdges(gray *image.NRGBA) [][]bool {
	width, height := gray.Bounds().Dx(), gray.Bounds().Dy()
	at := func(x, y int) int { return int(gray.Pix[y*gray.Stride+x*4]) }

	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			c := at(x, y)
			if absInt(c-at(x+1, y)) > edgeThreshold || absInt(c-at(x, y+1)) > edgeThreshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// horizontalScore is the share of horizontal edge runs among all runs in the
// window. A row scan across a text line crosses many short strokes; ruled
// lines give few horizontal runs and many vertical ones.
func horizontalScore(edges [][]bool, x, y, w, h int) float64 {
	horizontal, vertical := 0, 0
	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] && !inRun {
				horizontal++
			}
			inRun = edges[row][col]
		}
	}
	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] && !inRun {
				vertical++
			}
			inRun = edges[row][col]
		}
	}
	if horizontal+vertical == 0 {
		return 0
	}
	return float64(horizontal) / float64(horizontal+vertical)
}

// mergeOverlapping folds every region into the first merged region it
// overlaps, repeating until no two merged regions overlap.
func mergeOverlapping(regions []geometry.Region) []geometry.Region {
	merged := append([]geometry.Region(nil), regions...)
	for changed := true; changed; {
		changed = false
		out := make([]geometry.Region, 0, len(merged))
		for _, r := range merged {
			folded := false
			for i := range out {
				if geometry.Intersects(r, out[i]) {
					out[i] = geometry.Union(out[i], r)
					folded, changed = true, true
					break
				}
			}
			if !folded {
				out = append(out, r)
			}
		}
		merged = out
	}
	return merged
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
