// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Actuator timing constants
const (
	// DefaultDwell is how long the door stays unlocked per grant
	DefaultDwell = 3 * time.Second

	// SuccessBeep is the length of the single success pulse
	SuccessBeep = 200 * time.Millisecond

	// AlarmPulse is the on and off length of each alarm pulse
	AlarmPulse = 100 * time.Millisecond

	// AlarmPulses is the number of pulses in the alarm pattern
	AlarmPulses = 3
)

// Face matching constants
const (
	// DefaultMatchThreshold is the default maximum cosine distance for a match.
	// Lower values = stricter matching
	DefaultMatchThreshold = 0.5

	// DefaultMinDetScore is the minimum detector score a region needs to be aligned
	DefaultMinDetScore = 0.5

	// DefaultMinFaceSize is the minimum face width and height in pixels
	DefaultMinFaceSize = 40

	// HNSWMaxNeighbors is the M parameter of the HNSW graph
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the candidate list size used during HNSW search
	HNSWEfSearch = 64

	// DefaultHNSWMinTemplates is the gallery size from which matching uses HNSW
	DefaultHNSWMinTemplates = 64

	// CropMargin is the fraction of the face box added on each side before re-embedding
	CropMargin = 0.2
)

// Gallery constants
const (
	// DefaultGalleryCapacity is the number of faces that fit in the gallery by default
	DefaultGalleryCapacity = 7
)

// Scheduler constants
const (
	// DefaultIdleYield is the pause between scheduler iterations
	DefaultIdleYield = 100 * time.Millisecond

	// DefaultRequestQueue is the number of control requests that may wait for the scheduler
	DefaultRequestQueue = 16
)

// Camera constants
const (
	// DefaultCaptureTimeout bounds a single snapshot request
	DefaultCaptureTimeout = 5 * time.Second

	// DefaultMaxFrameWidth is the widest frame passed to the face engine
	DefaultMaxFrameWidth = 1280

	// JPEGQuality is used when frames are re-encoded after resizing
	JPEGQuality = 90
)

// Web constants
const (
	// EventChannelBuffer is the buffer size for event stream listeners
	EventChannelBuffer = 100

	// RequestTimeout bounds a control request, which can wait out a full unlock
	RequestTimeout = 30 * time.Second

	// MaxSnapshotBytes is the largest camera snapshot accepted
	MaxSnapshotBytes = 8 << 20
)
