package ocr

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/geometry"
)

func TestEdgeDensity_BlankPage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	blocks, err := NewEdgeDensity().DetectText(context.Background(), img)
	if err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks on a blank page, got %+v", blocks)
	}
}

func TestEdgeDensity_FindsTextLine(t *testing.T) {
	img := createWorksheet([]string{"THE QUICK BROWN FOX JUMPS", "OVER THE LAZY DOG 12345"}, 2)

	det := &EdgeDensity{MinConfidence: 0.1}
	blocks, err := det.DetectText(context.Background(), img)
	if err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatal("expected text-like regions")
	}

	b := img.Bounds()
	for i, block := range blocks {
		if block.Index != i {
			t.Errorf("block %d has index %d", i, block.Index)
		}
		if block.Text != "" {
			t.Errorf("edge blocks carry no text, got %q", block.Text)
		}
		if block.Bounds.MaxX() > b.Dx() || block.Bounds.MaxY() > b.Dy() {
			t.Errorf("block %v outside image %v", block.Bounds, b)
		}
	}
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if geometry.Intersects(blocks[i].Bounds, blocks[j].Bounds) {
				t.Errorf("blocks %d and %d overlap after merging", i, j)
			}
		}
	}
}

func TestEdgeDensity_SmallImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 50, 20))
	blocks, err := NewEdgeDensity().DetectText(context.Background(), img)
	if err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("image smaller than every window should give no blocks, got %d", len(blocks))
	}
}

func TestEdgeDensity_EmptyImage(t *testing.T) {
	_, err := NewEdgeDensity().DetectText(context.Background(), nil)
	if failure.KindOf(err) != failure.KindDetection {
		t.Errorf("expected detection failure, got %v", err)
	}
}

func TestHorizontalScore(t *testing.T) {
	tests := []struct {
		name     string
		mark     func(x, y int) bool
		min, max float64
	}{
		{"glyph strokes", func(x, y int) bool { return x%4 == 0 }, 0.9, 1.0},
		{"ruled lines", func(x, y int) bool { return y%4 == 0 }, 0.0, 0.1},
		{"empty", func(x, y int) bool { return false }, 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := make([][]bool, 20)
			for y := range edges {
				edges[y] = make([]bool, 20)
				for x := range edges[y] {
					edges[y][x] = tt.mark(x, y)
				}
			}
			got := horizontalScore(edges, 0, 0, 20, 20)
			if got < tt.min || got > tt.max {
				t.Errorf("got %.3f, want within [%.1f, %.1f]", got, tt.min, tt.max)
			}
		})
	}
}

func TestDetectEdges_IgnoresBorder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	img.Set(5, 5, color.Black)
	img.Set(0, 0, color.Black)

	edges := detectEdges(img)
	if !edges[5][4] || !edges[4][5] || !edges[5][5] {
		t.Error("pixels next to the black dot should be edges")
	}
	if edges[0][0] {
		t.Error("border pixels are never edges")
	}
}

func TestMergeOverlapping(t *testing.T) {
	regions := []geometry.Region{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 50, Y: 50, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: 10},
		{X: 14, Y: 14, Width: 40, Height: 40},
	}
	got := mergeOverlapping(regions)
	if len(got) != 1 {
		t.Fatalf("chained overlaps should merge to one region, got %v", got)
	}
	if want := (geometry.Region{X: 0, Y: 0, Width: 60, Height: 60}); got[0] != want {
		t.Errorf("got %v, want %v", got[0], want)
	}
	if len(mergeOverlapping(nil)) != 0 {
		t.Error("empty input should merge to nothing")
	}
}
