// Package detection decides which parts of a worksheet hold handwritten
// answers.
//
// Two strategies implement the Strategy interface and can be swapped by
// configuration without touching the eraser:
//
//   - Fusion runs an AI pass that returns rough handwriting boxes and a text
//     detector pass that returns precise text-line boxes, concurrently, then
//     fuses them geometrically.
//   - Classifier runs the text detector once, lists every block to the AI
//     backend and keeps the blocks it names as handwritten.
//
// # Fusion Rule
//
// Fuse keeps every precise box that overlaps at least one rough box (with
// non-zero area) and every rough box that overlaps no precise box. The
// first set gives tight geometry for handwriting the AI recognized; the
// second covers marks the text detector missed, such as ticks or drawings.
// The result does not depend on input order, and fusing a fused set with
// itself returns it unchanged.
//
// # Coordinate System
//
// All regions use image pixels with the origin at the top-left corner. The AI
// pass answers in normalized 0..1 coordinates, which are converted with
// geometry.NormalizedRegion.Denormalize.
//
// # Padding
//
// Padded grows each detection before rasterizing so anti-aliased stroke
// edges are covered: 8 px for precise boxes, 4 px for rough ones.
//
// # Error Handling
//
// Gateway and text detector errors are returned unchanged. AI answers that
// cannot be parsed are failure.KindDetection errors, except in the
// classifier, where ClassifyFailurePolicy decides between an empty result
// and an error.
package detection
