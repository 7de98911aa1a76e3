package detection

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/gateway"
	"github.com/ironsheep/answer-eraser/internal/ocr"
)

// ClassifyFailurePolicy decides what happens when the classifier's answer
// cannot be parsed.
type ClassifyFailurePolicy int

const (
	// EmptyResult treats an unparseable answer as "nothing handwritten".
	EmptyResult ClassifyFailurePolicy = iota
	// Propagate returns a failure.KindDetection error.
	Propagate
)

// String returns the policy's configuration name.
func (p ClassifyFailurePolicy) String() string {
	if p == Propagate {
		return "propagate"
	}
	return "empty"
}

// ParseClassifyFailurePolicy maps "empty" or "propagate" to a policy. An
// empty string yields EmptyResult.
func ParseClassifyFailurePolicy(s string) (ClassifyFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "empty":
		return EmptyResult, nil
	case "propagate":
		return Propagate, nil
	}
	return EmptyResult, fmt.Errorf("unknown classify failure policy %q (want empty or propagate)", s)
}

const classifyPreamble = "Below are text blocks recognized on a scanned worksheet, one per line as " +
	"[index] \"text\". Some are printed (questions, instructions, labels) and some are " +
	"handwritten student answers, names or marks.\n\n"

const classifyInstruction = "\nReturn ONLY a JSON array with the indices of the handwritten blocks, " +
	"for example [0, 3, 4]. If none are handwritten, return []."

// ClassifyPrompt lists blocks as [index] "text" lines for the classifier.
func ClassifyPrompt(blocks []ocr.TextBlock) string {
	var b strings.Builder
	b.WriteString(classifyPreamble)
	for _, block := range blocks {
		fmt.Fprintf(&b, "[%d] %q\n", block.Index, block.Text)
	}
	b.WriteString(classifyInstruction)
	return b.String()
}

// Classifier finds handwriting by asking the backend which text blocks are
// handwritten.
type Classifier struct {
	completer gateway.Completer
	text      ocr.TextDetector
	policy    ClassifyFailurePolicy
	log       logrus.FieldLogger
}

// NewClassifier returns the detect-then-classify strategy.
func NewClassifier(c gateway.Completer, text ocr.TextDetector, policy ClassifyFailurePolicy, opts ...Option) *Classifier {
	o := buildOptions(opts)
	return &Classifier{completer: c, text: text, policy: policy, log: o.log}
}

// Name implements Strategy.
func (c *Classifier) Name() string { return "classify" }

// Detect lists the page's text blocks to the backend and returns the blocks
// it classifies as handwritten. A page without text blocks returns no
// detections and makes no backend call.
func (c *Classifier) Detect(ctx context.Context, img *image.NRGBA) ([]Detection, error) {
	const op = "detection.classify"

	if img == nil || img.Bounds().Empty() {
		return nil, failure.Detectionf(op, "empty image")
	}

	blocks, err := c.text.DetectText(ctx, img)
	if err != nil {
		return nil, err
	}
	log := c.log.WithFields(logrus.Fields{"strategy": c.Name(), "blocks": len(blocks)})
	if len(blocks) == 0 {
		log.Debug("no text blocks, skipping classification")
		return []Detection{}, nil
	}

	answer, err := c.completer.Complete(ctx, ClassifyPrompt(blocks), nil)
	if err != nil {
		return nil, err
	}

	indices, err := parseIndices(answer)
	if err != nil {
		if c.policy == Propagate {
			return nil, failure.Detection(op, err)
		}
		log.WithError(err).Warn("unparseable classification, treating page as unanswered")
		return []Detection{}, nil
	}

	byIndex := make(map[int]ocr.TextBlock, len(blocks))
	for _, b := range blocks {
		byIndex[b.Index] = b
	}

	dets := make([]Detection, 0, len(indices))
	dropped := 0
	for _, i := range indices {
		b, ok := byIndex[i]
		if !ok {
			dropped++
			continue
		}
		dets = append(dets, Detection{Region: b.Bounds, Source: Precise})
	}
	dets = normalize(dets)

	log.WithFields(logrus.Fields{
		"handwritten": len(dets),
		"dropped":     dropped,
	}).Debug("classified text blocks")
	return dets, nil
}
