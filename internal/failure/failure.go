// Package failure defines the error taxonomy shared by every stage of the
// erasure pipeline.
//
// Each stage returns an *Error tagged with a Kind. The orchestrator never
// rewraps these, so callers can classify a pipeline failure with KindOf,
// StatusOf, IsRetryLater and IsCredentials regardless of which stage produced
// it. Context cancellation is never converted: a cancelled run returns an
// error for which errors.Is(err, context.Canceled) holds.
package failure

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a pipeline error.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate here.
	KindUnknown Kind = iota
	// KindTransport is a request that could not be completed (network, TLS, encoding).
	KindTransport
	// KindInvalidResponse is a response that was received but could not be understood.
	KindInvalidResponse
	// KindHTTP is a non-2xx status from a backend.
	KindHTTP
	// KindDetection is a failure to produce handwriting regions.
	KindDetection
	// KindInpainting is a failure to produce the cleaned image.
	KindInpainting
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindInvalidResponse:
		return "invalid_response"
	case KindHTTP:
		return "http"
	case KindDetection:
		return "detection"
	case KindInpainting:
		return "inpainting"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "gateway.complete".
	Op string
	// Status is the HTTP status code for KindHTTP, otherwise 0.
	Status int
	// RetryAfter is the delay the server asked for, if any.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindHTTP && e.Status != 0 {
		msg = fmt.Sprintf("http %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the backend asked the caller to come back later.
func (e *Error) Retryable() bool {
	return e.Kind == KindHTTP && (e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable)
}

// Transport returns a KindTransport error.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// InvalidResponse returns a KindInvalidResponse error.
func InvalidResponse(op string, err error) *Error {
	return &Error{Kind: KindInvalidResponse, Op: op, Err: err}
}

// HTTP returns a KindHTTP error for the given status.
func HTTP(op string, status int, retryAfter time.Duration, err error) *Error {
	return &Error{Kind: KindHTTP, Op: op, Status: status, RetryAfter: retryAfter, Err: err}
}

// Detection returns a KindDetection error.
func Detection(op string, err error) *Error {
	return &Error{Kind: KindDetection, Op: op, Err: err}
}

// Inpainting returns a KindInpainting error.
func Inpainting(op string, err error) *Error {
	return &Error{Kind: KindInpainting, Op: op, Err: err}
}

// Detectionf is Detection with a formatted message.
func Detectionf(op, format string, args ...interface{}) *Error {
	return Detection(op, fmt.Errorf(format, args...))
}

// Inpaintingf is Inpainting with a formatted message.
func Inpaintingf(op, format string, args ...interface{}) *Error {
	return Inpainting(op, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindHTTP {
		return e.Status
	}
	return 0
}

// IsRetryLater reports whether err is a 429 or 503 from a backend.
func IsRetryLater(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// IsCredentials reports whether err is a 401 or 403 from a backend.
func IsCredentials(err error) bool {
	s := StatusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}
