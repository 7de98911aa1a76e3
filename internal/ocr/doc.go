// Package ocr finds printed and handwritten text lines on a worksheet page.
//
// The erasure pipeline only needs to know where text is and what it says, so
// the package exposes a single TextDetector interface returning TextBlock
// values in image pixel space with a top-left origin. Blocks are numbered in
// reading order as Tesseract reports them; the index is what the
// classification strategy sends to the completion backend.
//
// # Tesseract
//
// Tesseract is the default detector, driven through gosseract. It must be
// installed on the system together with the language data for every
// configured language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-chi-tra tesseract-ocr-chi-sim
//   - macOS: brew install tesseract tesseract-lang
//
// The default language hints are traditional Chinese, simplified Chinese and
// English. Boxes are taken at text-line level.
//
// # Cancellation
//
// gosseract calls cannot be interrupted. DetectText returns ctx.Err() as soon
// as the context is done and lets the running recognition finish in the
// background.
//
// # Error Handling
//
// Recognition failures are returned as failure.KindDetection errors.
package ocr
