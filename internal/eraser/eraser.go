package eraser

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/answer-eraser/internal/detection"
	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/imaging"
	"github.com/ironsheep/answer-eraser/internal/inpaint"
	"github.com/ironsheep/answer-eraser/internal/mask"
)

// Cleaner removes handwriting from a whole page in one call.
type Cleaner interface {
	CleanWorksheet(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// Mode is the pipeline an Eraser runs.
type Mode string

const (
	Local  Mode = "local"
	Remote Mode = "remote"
)

// Eraser removes handwritten answers from worksheet images. It holds no
// per-call state and is safe for concurrent use.
type Eraser struct {
	mode      Mode
	strategy  detection.Strategy
	inpainter inpaint.Inpainter
	cleaner   Cleaner

	log      logrus.FieldLogger
	observer Observer
	maxDim   int
}

// Option configures an Eraser.
type Option func(*Eraser)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Eraser) { e.log = l }
}

// WithObserver registers a function called on every state transition.
func WithObserver(o Observer) Option {
	return func(e *Eraser) { e.observer = o }
}

// WithMaxDimension downscales input so its longer side is at most n pixels
// before any stage runs. Zero, the default, keeps the input size.
func WithMaxDimension(n int) Option {
	return func(e *Eraser) { e.maxDim = n }
}

// NewLocal returns an Eraser that detects, masks and inpaints locally.
func NewLocal(strategy detection.Strategy, inpainter inpaint.Inpainter, opts ...Option) *Eraser {
	e := &Eraser{mode: Local, strategy: strategy, inpainter: inpainter}
	return e.apply(opts)
}

// NewRemote returns an Eraser that delegates the whole page to cleaner.
func NewRemote(cleaner Cleaner, opts ...Option) *Eraser {
	e := &Eraser{mode: Remote, cleaner: cleaner}
	return e.apply(opts)
}

func (e *Eraser) apply(opts []Option) *Eraser {
	e.log = logrus.StandardLogger()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode reports which pipeline the Eraser runs.
func (e *Eraser) Mode() Mode { return e.mode }

// MaxDimension reports the processing size limit; 0 means none.
func (e *Eraser) MaxDimension() int { return e.maxDim }

// EraseAnswers returns a copy of img with the handwritten answers removed.
// The result has the processing size (see WithMaxDimension). img is never
// modified.
func (e *Eraser) EraseAnswers(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	r := e.newRun()
	start := time.Now()

	work, err := e.prepare(img)
	if err != nil {
		return nil, r.fail(err)
	}
	r.log = r.log.WithFields(logrus.Fields{
		"width":  work.Bounds().Dx(),
		"height": work.Bounds().Dy(),
	})

	var out *image.NRGBA
	if e.mode == Remote {
		out, err = e.eraseRemote(ctx, r, work)
	} else {
		out, err = e.eraseLocal(ctx, r, work)
	}
	if err != nil {
		return nil, r.fail(err)
	}

	r.to(Completed)
	r.log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("answers erased")
	return out, nil
}

// Detect runs only the detection stage and returns the working image the
// detections refer to. It is unavailable in remote mode.
func (e *Eraser) Detect(ctx context.Context, img image.Image) (*image.NRGBA, []detection.Detection, error) {
	if e.mode == Remote {
		return nil, nil, failure.Detectionf("eraser.detect", "remote pipeline has no detection stage")
	}
	work, err := e.prepare(img)
	if err != nil {
		return nil, nil, err
	}
	dets, err := e.strategy.Detect(ctx, work)
	if err != nil {
		return nil, nil, err
	}
	return work, dets, nil
}

// prepare converts img into an owned NRGBA at processing size.
func (e *Eraser) prepare(img image.Image) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, failure.Detectionf("eraser.prepare", "empty or undecodable image")
	}
	return imaging.ResizeForProcessing(img, e.maxDim), nil
}

func (e *Eraser) eraseLocal(ctx context.Context, r *run, work *image.NRGBA) (*image.NRGBA, error) {
	width, height := work.Bounds().Dx(), work.Bounds().Dy()

	r.to(Detecting)
	dets, err := e.strategy.Detect(ctx, work)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.to(Masking)
	regions := detection.Padded(dets, width, height)
	m := mask.Rasterize(width, height, regions)
	r.log = r.log.WithFields(logrus.Fields{
		"detections":   len(dets),
		"erase_pixels": m.Count(),
	})

	r.to(Inpainting)
	if m.Count() == 0 {
		return work, nil
	}
	return e.inpainter.Inpaint(work, m)
}

func (e *Eraser) eraseRemote(ctx context.Context, r *run, work *image.NRGBA) (*image.NRGBA, error) {
	r.to(Inpainting)
	return e.cleaner.CleanWorksheet(ctx, work)
}

// newRun starts the bookkeeping for one EraseAnswers call.
func (e *Eraser) newRun() *run {
	id := uuid.New().String()
	fields := logrus.Fields{"request_id": id, "mode": string(e.mode)}
	if e.strategy != nil {
		fields["strategy"] = e.strategy.Name()
	}
	return &run{
		id:       id,
		state:    Idle,
		log:      e.log.WithFields(fields),
		observer: e.observer,
	}
}
