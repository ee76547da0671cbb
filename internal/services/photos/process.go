package photos

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	thumbSize    = 320
	thumbQuality = 70
)

// processed is the result of inspecting an uploaded blob
type processed struct {
	contentType string
	width       int
	height      int
	thumb       []byte
}

// inspect sniffs the content type and, for decodable images, builds a JPEG
// thumbnail that respects the EXIF orientation. A returned error means the
// blob looked like an image but could not be decoded; p is still usable.
func inspect(data []byte) (processed, error) {
	p := processed{contentType: http.DetectContentType(data)}
	if !strings.HasPrefix(p.contentType, "image/") {
		return p, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return p, fmt.Errorf("failed to decode %s: %w", p.contentType, err)
	}
	p.width, p.height = img.Bounds().Dx(), img.Bounds().Dy()

	p.thumb, err = thumbnail(img)
	if err != nil {
		return p, err
	}
	return p, nil
}

func thumbnail(img image.Image) ([]byte, error) {
	var resized image.Image = img
	if img.Bounds().Dx() > thumbSize || img.Bounds().Dy() > thumbSize {
		resized = imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
