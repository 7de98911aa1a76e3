// Package geometry provides the rectangle arithmetic shared by the detection,
// masking and preview stages of the answer eraser.
//
// # Coordinate System
//
// Pixel regions use the same convention as the rest of the module: (0,0) is the
// top-left corner, X increases rightward and Y increases downward. A Region is
// described by its top-left corner and its size, so the covered pixel range is
// [X, X+Width) × [Y, Y+Height).
//
// Detectors that report fractions of the image size produce a NormalizedRegion
// instead. NormalizedRegion.Denormalize converts to pixels for a given image
// size. FromBottomLeft converts boxes from detectors whose origin is the
// bottom-left corner.
//
// # Intersection
//
// Two regions intersect only when their overlap has non-zero area. Regions that
// merely share an edge do not intersect, and an empty region intersects
// nothing. Fusion of detection signals depends on this definition.
//
// # Ordering
//
// Sort and Dedupe give region sets a canonical order, which lets callers
// compare results from order-independent computations directly.
package geometry
