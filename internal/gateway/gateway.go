package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/imaging"
)

// Completer answers a prompt, optionally about an image.
type Completer interface {
	Complete(ctx context.Context, prompt string, img image.Image) (string, error)
}

const (
	// DefaultRequestTimeout bounds completion requests and image downloads.
	DefaultRequestTimeout = 60 * time.Second
	// DefaultCleanTimeout bounds each attempt of the cleaning request.
	DefaultCleanTimeout = 120 * time.Second

	completionMaxDimension = 1568
	completionJPEGQuality  = 80
	cleanMaxDimension      = 1024
	cleanJPEGQuality       = 70

	maxResponseBytes = 64 << 20
	errorSnippetSize = 1024
)

// Gateway talks to one completion backend.
type Gateway struct {
	backend        Backend
	client         *http.Client
	log            logrus.FieldLogger
	retry          RetryPolicy
	requestTimeout time.Duration
	cleanTimeout   time.Duration
	now            func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client, e.g. with one using a test
// transport.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithRetryPolicy replaces the retry policy of the cleaning request.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *Gateway) { g.retry = p }
}

// WithTimeouts sets the completion and per-attempt cleaning timeouts. Zero
// values keep the defaults.
func WithTimeouts(request, clean time.Duration) Option {
	return func(g *Gateway) {
		if request > 0 {
			g.requestTimeout = request
		}
		if clean > 0 {
			g.cleanTimeout = clean
		}
	}
}

// New returns a Gateway for backend. Empty backend fields take the provider
// defaults.
func New(backend Backend, opts ...Option) (*Gateway, error) {
	backend = backend.WithDefaults()
	if err := backend.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		backend:        backend,
		client:         &http.Client{},
		log:            logrus.StandardLogger(),
		retry:          DefaultRetryPolicy(),
		requestTimeout: DefaultRequestTimeout,
		cleanTimeout:   DefaultCleanTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithFields(logrus.Fields{
		"component": "gateway",
		"provider":  backend.Provider,
	})
	return g, nil
}

// Backend returns the effective backend configuration.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// Complete sends prompt and an optional image and returns the answer text.
// Completion requests are not retried.
func (g *Gateway) Complete(ctx context.Context, prompt string, img image.Image) (string, error) {
	const op = "gateway.complete"

	var enc *imaging.EncodedImage
	if img != nil {
		var err error
		enc, err = imaging.EncodeForTransmission(img, completionMaxDimension, completionJPEGQuality)
		if err != nil {
			return "", failure.Detection(op, err)
		}
	}

	body, err := g.backend.buildBody(g.backend.Model, prompt, enc, g.backend.MaxTokens)
	if err != nil {
		return "", failure.Transport(op, err)
	}

	msg, err := g.post(ctx, op, g.backend.Model, body, g.requestTimeout)
	if err != nil {
		return "", err
	}

	text := msg.Text()
	if text == "" {
		return "", failure.InvalidResponse(op, fmt.Errorf("empty answer"))
	}
	return text, nil
}

// post sends one request and decodes the assistant message. Non-2xx statuses
// become KindHTTP errors carrying any Retry-After delay.
func (g *Gateway) post(ctx context.Context, op, model string, body []byte, timeout time.Duration) (*message, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, g.backend.url(model), bytes.NewReader(body))
	if err != nil {
		return nil, failure.Transport(op, err)
	}
	g.backend.authorize(req.Header)

	start := g.now()
	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Transport(op, err)
	}
	defer resp.Body.Close()

	log := g.log.WithFields(logrus.Fields{
		"op":          op,
		"model":       model,
		"status":      resp.StatusCode,
		"duration_ms": g.now().Sub(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetSize))
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), g.now())
		log.WithField("retry_after", retryAfter).Warn("backend returned an error status")
		var cause error
		if s := bytes.TrimSpace(snippet); len(s) > 0 {
			cause = errors.New(string(s))
		}
		return nil, failure.HTTP(op, resp.StatusCode, retryAfter, cause)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Transport(op, fmt.Errorf("failed to read response: %w", err))
	}
	log.Debug("backend request completed")

	msg, err := g.backend.parseBody(data)
	if err != nil {
		return nil, failure.InvalidResponse(op, err)
	}
	return msg, nil
}
