// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package thumbnail turns an image file into a small PNG encoded as standard Base64.
//
// The input format is sniffed from content (PNG, JPEG, GIF, BMP, TIFF, WebP), the
// image is shrunk with Lanczos resampling to fit the bounding box while keeping its
// aspect ratio, and the result is always re-encoded as PNG. EXIF orientation is
// ignored: pixels are used as stored, so an image inside the box keeps its size.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"assistbridge/cli/internal/errors"
)

// Default bounding box.
const (
	DefaultMaxWidth  = 48
	DefaultMaxHeight = 48
)

// Encode reads the image at path and returns its thumbnail as padded standard Base64.
// A read failure is an IO error; undecodable content is a Decode error.
func Encode(path string, maxW, maxH int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.IO, "read image "+path, err)
	}
	return EncodeBytes(data, maxW, maxH)
}

// EncodeBytes is Encode for in-memory image data.
func EncodeBytes(data []byte, maxW, maxH int) (string, error) {
	if maxW <= 0 || maxH <= 0 {
		return "", errors.New(errors.InvalidInput, fmt.Sprintf("thumbnail bounds must be positive, got %dx%d", maxW, maxH))
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(errors.Decode, "decode image", err)
	}

	b := img.Bounds()
	if w, h := Size(b.Dx(), b.Dy(), maxW, maxH); w != b.Dx() || h != b.Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(errors.IO, "encode png", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Size returns the output dimensions for a w×h image in a maxW×maxH box. Images
// that already fit are left alone; larger ones are scaled by the factor that makes
// the limiting axis fit, rounded, and clamped to at least one pixel.
func Size(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := clamp(int(math.Round(float64(w)*scale)), 1, maxW)
	nh := clamp(int(math.Round(float64(h)*scale)), 1, maxH)
	return nw, nh
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Bounds reports the decoded dimensions of a Base64 PNG produced by Encode.
func Bounds(encoded string) (image.Rectangle, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return image.Rectangle{}, errors.Wrap(errors.Decode, "decode base64", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return image.Rectangle{}, errors.Wrap(errors.Decode, "decode png header", err)
	}
	return image.Rect(0, 0, cfg.Width, cfg.Height), nil
}
