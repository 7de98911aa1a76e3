package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/geometry"
)

// TextBlock is one recognized text line.
type TextBlock struct {
	// Index is the block's position in the detector's output, starting at 0.
	Index int `json:"index"`
	// Text is the recognized content with surrounding whitespace removed.
	Text string `json:"text"`
	// Bounds is the line's box in pixels, top-left origin.
	Bounds geometry.Region `json:"bounds"`
}

// TextDetector locates text blocks in an image.
type TextDetector interface {
	DetectText(ctx context.Context, img image.Image) ([]TextBlock, error)
}

// DefaultLanguages are the Tesseract language hints used when none are
// configured.
var DefaultLanguages = []string{"chi_tra", "chi_sim", "eng"}

// Tesseract is a TextDetector backed by the Tesseract engine.
type Tesseract struct {
	// Languages are Tesseract language codes. Empty uses DefaultLanguages.
	Languages []string
	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string
	// MinConfidence drops lines whose confidence (0-100) is below it.
	MinConfidence float64
}

// NewTesseract returns a Tesseract detector for the given languages.
func NewTesseract(languages []string, tessdataPrefix string) *Tesseract {
	return &Tesseract{Languages: languages, TessdataPrefix: tessdataPrefix}
}

type detectResult struct {
	blocks []TextBlock
	err    error
}

// DetectText runs Tesseract on img and returns its text lines.
func (t *Tesseract) DetectText(ctx context.Context, img image.Image) ([]TextBlock, error) {
	const op = "ocr.detect_text"

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, failure.Detectionf(op, "empty image")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, failure.Detection(op, fmt.Errorf("failed to encode image: %w", err))
	}

	done := make(chan detectResult, 1)
	go func() {
		blocks, err := t.recognize(buf.Bytes(), img.Bounds().Dx(), img.Bounds().Dy())
		done <- detectResult{blocks: blocks, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, failure.Detection(op, res.err)
		}
		return res.blocks, nil
	}
}

func (t *Tesseract) recognize(png []byte, width, height int) ([]TextBlock, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	langs := t.Languages
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	if err := client.SetLanguage(langs...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract text line detection failed: %w", err)
	}
	return blocksFromBoxes(boxes, width, height, t.MinConfidence), nil
}

// blocksFromBoxes converts Tesseract boxes into numbered blocks clipped to
// the image. Blank lines, boxes outside the image and lines under
// minConfidence are skipped.
func blocksFromBoxes(boxes []gosseract.BoundingBox, width, height int, minConfidence float64) []TextBlock {
	blocks := make([]TextBlock, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" || box.Confidence < minConfidence {
			continue
		}
		bounds := geometry.Clip(geometry.FromRect(box.Box), width, height)
		if bounds.Empty() {
			continue
		}
		blocks = append(blocks, TextBlock{
			Index:  len(blocks),
			Text:   text,
			Bounds: bounds,
		})
	}
	return blocks
}

// Version reports the installed Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
