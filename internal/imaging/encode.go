package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// EncodedImage is an image serialized for transport to a model or client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// DataURI returns the image as a data: URI.
func (e *EncodedImage) DataURI() string {
	return "data:" + e.MimeType + ";base64," + e.ImageBase64
}

// EncodeForTransmission downscales img to fit within maxDim (never upscaling)
// and encodes it as base64 JPEG at the given quality (1-100).
func EncodeForTransmission(img image.Image, maxDim, quality int) (*EncodedImage, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot encode an empty image")
	}
	resized := ResizeForProcessing(img, maxDim)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       resized.Bounds().Dx(),
		Height:      resized.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/jpeg",
	}, nil
}

// EncodePNG encodes img losslessly as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Save writes img to path, choosing the format from the file extension.
// JPEG output uses quality 95.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
