package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"

	"github.com/disintegration/imaging"
)

// DecodeUpright decodes an image and applies its EXIF orientation.
//
// This is the document normalizer the pipeline relies on. Scans without
// orientation metadata, or where no document boundary could be found, come
// back unchanged apart from the conversion to NRGBA. It never fails for lack
// of a detectable page.
func DecodeUpright(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns an owned NRGBA copy of img with its origin at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// ResizeForProcessing downscales img so its longer side is at most maxDim,
// preserving aspect ratio with Lanczos resampling. Smaller images and a
// non-positive maxDim return an unscaled copy.
func ResizeForProcessing(img image.Image, maxDim int) *image.NRGBA {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return ToNRGBA(img)
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// ResizeTo scales img to exactly width×height with Lanczos resampling. An
// image already of that size is copied unscaled.
func ResizeTo(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return ToNRGBA(img)
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}
