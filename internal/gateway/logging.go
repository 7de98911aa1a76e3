package gateway

import (
	"context"
	"image"
	"time"

	"github.com/sirupsen/logrus"
)

type loggingCompleter struct {
	wrapped Completer
	log     logrus.FieldLogger
}

// NewLoggingCompleter wraps c so every call logs its prompt size, whether an
// image was attached, the answer size and the latency. Prompts and answers
// are logged in full only at trace level.
func NewLoggingCompleter(c Completer, log logrus.FieldLogger) Completer {
	return &loggingCompleter{wrapped: c, log: log}
}

func (l *loggingCompleter) Complete(ctx context.Context, prompt string, img image.Image) (string, error) {
	log := l.log.WithFields(logrus.Fields{
		"prompt_chars": len(prompt),
		"with_image":   img != nil,
	})
	log.WithField("prompt", prompt).Trace("completion prompt")

	start := time.Now()
	answer, err := l.wrapped.Complete(ctx, prompt, img)
	log = log.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.WithError(err).Warn("completion failed")
		return "", err
	}

	log.WithField("answer_chars", len(answer)).Debug("completion finished")
	log.WithField("answer", answer).Trace("completion answer")
	return answer, nil
}
