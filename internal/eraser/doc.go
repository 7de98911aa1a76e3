// Package eraser runs the answer-erasing pipeline on one worksheet image.
//
// An Eraser is built in one of two modes:
//
//   - local: a detection.Strategy finds handwriting, the detections are
//     padded and rasterized into a mask, and an inpaint.Inpainter fills the
//     masked pixels from their surroundings.
//   - remote: the whole page goes to a Cleaner (the gateway's full-image
//     cleaning path) and the returned image is the result.
//
// Both modes expose EraseAnswers.
//
// # States
//
// Every call moves through
//
//	Idle -> Detecting -> Masking -> Inpainting -> Completed
//
// or ends in Failed from any of them. Remote calls go straight from Idle to
// Inpainting. Transitions are logged with a per-call request id and passed
// to an optional observer.
//
// # Errors
//
// A failing stage aborts the call and its error is returned unchanged. The
// eraser never retries; the gateway's cleaning path is the only place that
// does. Cancelling the context returns ctx.Err(), never a partial image.
package eraser
