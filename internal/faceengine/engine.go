// Package faceengine detects faces, extracts embeddings and matches them
// against enrolled templates.
package faceengine

import (
	"context"
	"errors"
	"image"

	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

var (
	// ErrAlignmentFailed is returned when no embedding can be produced for a region.
	ErrAlignmentFailed = errors.New("face alignment failed")
	// ErrUnavailable is returned when the embedding backend cannot be reached.
	ErrUnavailable = errors.New("face engine unavailable")
)

// Region is one detected face within a frame.
type Region struct {
	Index int
	Box   image.Rectangle // pixel coordinates within the frame
	Score float64         // detector confidence

	// Embedding is set when the detector already computed the face embedding.
	Embedding gallery.Embedding
}

// Engine is the face detection and recognition capability consumed by the
// door lock core. Detect returns regions in detector order.
type Engine interface {
	Detect(ctx context.Context, frame *camera.Frame) ([]Region, error)
	ExtractEmbedding(ctx context.Context, frame *camera.Frame, region Region) (gallery.Embedding, error)
	gallery.Matcher
}
