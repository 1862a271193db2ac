// Package camera captures still frames for the recognition pipeline.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/constants"
)

// ErrUnavailable is returned when no frame could be obtained.
var ErrUnavailable = errors.New("camera unavailable")

// Frame is one encoded still image.
type Frame struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
	CapturedAt  time.Time
}

// Device produces frames on demand. Every returned frame is owned by the caller.
type Device interface {
	Capture(ctx context.Context) (*Frame, error)
}

// Drivers accepted by Open.
const (
	DriverHTTP = "http"
	DriverFile = "file"
)

// Open builds the configured capture device.
func Open(cfg config.CameraConfig) (Device, error) {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = constants.DefaultMaxFrameWidth
	}
	switch cfg.Driver {
	case DriverHTTP:
		if cfg.URL == "" {
			return nil, errors.New("camera url is required for the http driver")
		}
		return NewHTTPCamera(cfg.URL, cfg.Timeout, cfg.MaxWidth), nil
	case DriverFile:
		return NewFileCamera(cfg.Path, cfg.MaxWidth)
	default:
		return nil, fmt.Errorf("unknown camera driver %q", cfg.Driver)
	}
}

// NewFrame validates encoded image data and downscales it when it is wider
// than maxWidth. A maxWidth of zero disables downscaling.
func NewFrame(data []byte, maxWidth int, capturedAt time.Time) (*Frame, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	if maxWidth <= 0 || cfg.Width <= maxWidth {
		return &Frame{
			Data:        data,
			Width:       cfg.Width,
			Height:      cfg.Height,
			ContentType: "image/" + format,
			CapturedAt:  capturedAt,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	resized := downscale(img, maxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode resized frame: %w", err)
	}

	b := resized.Bounds()
	return &Frame{
		Data:        buf.Bytes(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		ContentType: "image/jpeg",
		CapturedAt:  capturedAt,
	}, nil
}

// downscale resizes img to maxWidth keeping the aspect ratio.
func downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	newHeight := max(int(float64(bounds.Dy())*float64(maxWidth)/float64(bounds.Dx())), 1)

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
