// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging processes uploaded news images using pure Go
// libraries: EXIF auto-rotation, metadata stripping, and thumbnail
// generation.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Supported image MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// ThumbnailWidth is the pixel width of generated list-view thumbnails.
const ThumbnailWidth = 400

// thumbnailQuality is the JPEG quality used for thumbnail encoding.
const thumbnailQuality = 85

// Result describes a processed image ready for storage.
type Result struct {
	Data     []byte
	Width    int
	Height   int
	MimeType string
}

// IsSupportedType reports whether a MIME type can be processed.
func IsSupportedType(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	default:
		return false
	}
}

// DetectMimeType sniffs the MIME type of image data.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	// http.DetectContentType may append "; charset=..."
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}

// Process decodes an uploaded image, applies its EXIF orientation, and
// re-encodes it. Re-encoding with the pure Go encoders also drops EXIF
// metadata (GPS position included) before the file becomes public.
// WebP input is re-encoded as JPEG since x/image provides no encoder.
func Process(data []byte) (*Result, error) {
	mimeType := DetectMimeType(data)
	if !IsSupportedType(mimeType) {
		return nil, fmt.Errorf("unsupported image type %s", mimeType)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	if mimeType == MimeTypeWebP {
		mimeType = MimeTypeJPEG
	}

	encoded, err := encode(img, mimeType, 95)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	bounds := img.Bounds()
	return &Result{
		Data:     encoded,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: mimeType,
	}, nil
}

// Thumbnail produces a JPEG thumbnail no wider than ThumbnailWidth.
// Returns nil if the source is already narrow enough.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if img.Bounds().Dx() <= ThumbnailWidth {
		return nil, nil
	}

	resized := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	return encode(resized, MimeTypeJPEG, thumbnailQuality)
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies an EXIF orientation transform to an image.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encode serializes an image in the given MIME type.
func encode(img image.Image, mimeType string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch mimeType {
	case MimeTypeJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case MimeTypePNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case MimeTypeGIF:
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no encoder for %s", mimeType)
	}

	return buf.Bytes(), nil
}
