package detection

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/gateway"
	"github.com/ironsheep/answer-eraser/internal/geometry"
	"github.com/ironsheep/answer-eraser/internal/ocr"
)

// RoughPrompt asks the completion backend for handwriting boxes.
const RoughPrompt = "Analyze this worksheet image. Find every handwritten element: names, dates, " +
	"answers, numbers, ticks, crosses, circles and any other marks written by hand. " +
	"Do NOT include printed text such as questions, instructions, labels or table headers.\n\n" +
	"Return many small, tight boxes rather than a few large ones. Use normalized " +
	"coordinates (0.0 to 1.0) relative to the image size, with x,y the top-left corner:\n\n" +
	"[{\"x\": 0.1, \"y\": 0.2, \"width\": 0.3, \"height\": 0.05}]\n\n" +
	"If there is no handwriting, return []. Return ONLY the JSON array, no other text."

// Option configures a strategy.
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Fusion finds handwriting by fusing an AI pass with a text detector pass.
type Fusion struct {
	completer gateway.Completer
	text      ocr.TextDetector
	log       logrus.FieldLogger
}

// NewFusion returns the geometric fusion strategy.
func NewFusion(c gateway.Completer, text ocr.TextDetector, opts ...Option) *Fusion {
	o := buildOptions(opts)
	return &Fusion{completer: c, text: text, log: o.log}
}

// Name implements Strategy.
func (f *Fusion) Name() string { return "fusion" }

// Detect runs both passes concurrently and fuses their boxes. If either pass
// fails the other is cancelled and the first error is returned.
func (f *Fusion) Detect(ctx context.Context, img *image.NRGBA) ([]Detection, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, failure.Detectionf("detection.fusion", "empty image")
	}
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	var rough, precise []geometry.Region
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rough, err = f.roughPass(gctx, img, width, height)
		return err
	})
	g.Go(func() error {
		blocks, err := f.text.DetectText(gctx, img)
		if err != nil {
			return err
		}
		precise = make([]geometry.Region, len(blocks))
		for i, b := range blocks {
			precise[i] = b.Bounds
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	dets := Fuse(rough, precise)
	f.log.WithFields(logrus.Fields{
		"strategy": f.Name(),
		"rough":    len(rough),
		"precise":  len(precise),
		"fused":    len(dets),
	}).Debug("fused handwriting regions")
	return dets, nil
}

func (f *Fusion) roughPass(ctx context.Context, img *image.NRGBA, width, height int) ([]geometry.Region, error) {
	answer, err := f.completer.Complete(ctx, RoughPrompt, img)
	if err != nil {
		return nil, err
	}
	boxes, err := parseBoxes(answer)
	if err != nil {
		return nil, failure.Detection("detection.rough_pass", err)
	}

	regions := make([]geometry.Region, 0, len(boxes))
	for _, b := range boxes {
		if r := b.Denormalize(width, height); !r.Empty() {
			regions = append(regions, r)
		}
	}
	return regions, nil
}
