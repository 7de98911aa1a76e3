// Package imaging provides the raster helpers around the erasure pipeline.
//
// It decodes worksheet scans into upright *image.NRGBA buffers, caches them for
// the tool server, prepares images for transmission to completion backends and
// renders region previews for inspecting detection results.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (X, Y) is inclusive and X+Width, Y+Height are exclusive
//
// Every image returned by this package has its origin at (0,0).
//
// # Orientation
//
// DecodeUpright applies EXIF orientation while decoding. Images captured on
// phones are frequently stored sideways with a rotation tag, and detection
// boxes would otherwise land on the wrong pixels. No perspective correction
// is attempted: an image without a detectable page outline is returned as
// decoded.
//
// # Transmission Encoding
//
// EncodeForTransmission produces the base64 JPEG payload sent to completion
// backends. Images larger than the backend's maximum dimension are downscaled
// with Lanczos resampling, preserving aspect ratio. Images are never
// upscaled.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Cached images must be
// treated as read-only; every function here returns a new image rather than
// modifying its input.
package imaging
