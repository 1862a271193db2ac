package faceengine

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/doorlock/internal/constants"
)

// cropRegion cuts box out of the encoded image, grown by margin (a fraction
// of the box size on each side) and clamped to the image bounds.
func cropRegion(data []byte, box image.Rectangle, margin float64) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	rect := expand(box, margin).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v outside frame %v", box, img.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

func expand(box image.Rectangle, margin float64) image.Rectangle {
	dx := int(float64(box.Dx()) * margin)
	dy := int(float64(box.Dy()) * margin)
	return image.Rect(box.Min.X-dx, box.Min.Y-dy, box.Max.X+dx, box.Max.Y+dy)
}
