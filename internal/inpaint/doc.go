// Package inpaint fills the erase pixels of a mask with background color.
//
// All inpainters share one guarantee: every pixel whose mask value is keep is
// copied to the output byte-for-byte, alpha included. Only erase pixels change.
// The input image is never modified; each call works on its own copy.
//
// # Neighborhood Fill
//
// Neighborhood replaces each erase pixel with the mean color of the nearest
// keep pixels. It searches square rings around the pixel at radius 1, 2, ...
// up to MaxRadius, visiting only the cells on the ring border. The first ring
// that contains at least one in-bounds keep pixel supplies the color: the
// per-channel integer mean of those pixels' RGB values. The erased pixel keeps
// its own alpha. When no keep pixel exists within MaxRadius the pixel becomes
// white.
//
// Colors are always read from the source image, so an erase pixel never
// contributes to another erase pixel's fill.
//
// # Fade Compositing
//
// Fade is the fast alternative. It blends white over the source with a fixed
// opacity and composites the result only through the mask. Strength 1 gives a
// flat white fill. Lower strengths cross-fade and leave a trace of the
// original strokes.
//
// # Error Handling
//
// A mask whose size differs from the image is rejected with an inpainting
// failure from package failure.
package inpaint
