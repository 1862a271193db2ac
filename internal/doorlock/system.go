// Package doorlock orchestrates face recognition and door actuation.
//
// A System owns the gallery, the recognition flag and the collaborators.
// Every operation on it is meant to run on the Scheduler goroutine, one at
// a time; read-only accessors are safe from any goroutine.
package doorlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/doorlock/internal/actuator"
	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/faceengine"
	"github.com/kozaktomas/doorlock/internal/gallery"
	"github.com/kozaktomas/doorlock/internal/metrics"
)

// Actuator is the door output sequencer.
type Actuator interface {
	GrantAccess()
	DenyAccess()
	Tick(now time.Time)
	State() actuator.State
}

// Deps are the collaborators of a System.
type Deps struct {
	Camera   camera.Device
	Engine   faceengine.Engine
	Gallery  *gallery.Gallery
	Actuator Actuator
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

// System is the door lock context shared by the scheduler, the control
// surface and both workflows.
type System struct {
	camera   camera.Device
	engine   faceengine.Engine
	gallery  *gallery.Gallery
	actuator Actuator
	log      zerolog.Logger
	metrics  *metrics.Metrics

	recognition *Flag
	events      *Broadcaster
	now         func() time.Time
}

// NewSystem creates a system with recognition enabled.
func NewSystem(d Deps) *System {
	s := &System{
		camera:      d.Camera,
		engine:      d.Engine,
		gallery:     d.Gallery,
		actuator:    d.Actuator,
		log:         d.Logger,
		metrics:     d.Metrics,
		recognition: NewFlag(true),
		events:      &Broadcaster{},
		now:         time.Now,
	}
	s.metrics.SetGallerySize(s.gallery.Count())
	return s
}

// Status is a point-in-time view of the system.
type Status struct {
	Lock               string `json:"lock"`
	RecognitionEnabled bool   `json:"recognition_enabled"`
	GalleryCount       int    `json:"gallery_count"`
	GalleryCapacity    int    `json:"gallery_capacity"`
	LastEvent          *Event `json:"last_event,omitempty"`
}

// Status returns the current status. Safe for concurrent use.
func (s *System) Status() Status {
	st := Status{
		Lock:               s.actuator.State().String(),
		RecognitionEnabled: s.recognition.Enabled(),
		GalleryCount:       s.gallery.Count(),
		GalleryCapacity:    s.gallery.Capacity(),
	}
	if e, ok := s.events.Last(); ok {
		st.LastEvent = &e
	}
	return st
}

// RecognitionEnabled reports whether background recognition may run.
func (s *System) RecognitionEnabled() bool {
	return s.recognition.Enabled()
}

// Events returns the event broadcaster.
func (s *System) Events() *Broadcaster {
	return s.events
}

// Gallery returns the identity gallery.
func (s *System) Gallery() *gallery.Gallery {
	return s.gallery
}

// Snapshot captures and returns one frame.
func (s *System) Snapshot(ctx context.Context) (*camera.Frame, error) {
	frame, err := s.camera.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	return frame, nil
}

// Enroll captures a frame and enrolls the first detected face.
// Recognition is suspended for the duration and restored on every path.
func (s *System) Enroll(ctx context.Context) (int, error) {
	restore := s.recognition.Suspend()
	defer restore()

	id, err := s.enroll(ctx)
	s.metrics.ObserveEnrollment(enrollmentResult(err))
	if err != nil {
		s.log.Warn().Err(err).Msg("enrollment failed")
		return 0, err
	}

	s.metrics.SetGallerySize(s.gallery.Count())
	s.log.Info().Int("id", id).Msg("face enrolled")
	s.events.Publish(Event{Type: EventEnrolled, ID: id, At: s.now()})
	return id, nil
}

func (s *System) enroll(ctx context.Context) (int, error) {
	frame, err := s.camera.Capture(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	regions, err := s.engine.Detect(ctx, frame)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	if len(regions) == 0 {
		return 0, ErrNoFaceDetected
	}

	embedding, err := s.engine.ExtractEmbedding(ctx, frame, regions[0])
	if err != nil {
		if errors.Is(err, faceengine.ErrUnavailable) {
			return 0, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
		}
		return 0, fmt.Errorf("%w: %w", ErrAlignmentFailed, err)
	}

	id, err := s.gallery.Enroll(ctx, embedding)
	if err != nil {
		return 0, fmt.Errorf("enrolling face: %w", err)
	}
	return id, nil
}

func enrollmentResult(err error) string {
	switch {
	case err == nil:
		return "enrolled"
	case errors.Is(err, ErrCaptureUnavailable):
		return "capture_unavailable"
	case errors.Is(err, ErrEngineUnavailable):
		return "engine_unavailable"
	case errors.Is(err, ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, ErrAlignmentFailed):
		return "alignment_failed"
	case errors.Is(err, gallery.ErrGalleryFull):
		return "gallery_full"
	default:
		return "store_error"
	}
}

// DeleteLast removes the most recently enrolled face.
func (s *System) DeleteLast(ctx context.Context) (int, error) {
	id, err := s.gallery.DeleteLast(ctx)
	if err != nil {
		return 0, err
	}

	s.metrics.SetGallerySize(s.gallery.Count())
	s.log.Info().Int("id", id).Msg("face deleted")
	s.events.Publish(Event{Type: EventDeleted, ID: id, At: s.now()})
	return id, nil
}

// ManualUnlock runs the grant sequence without recognition.
func (s *System) ManualUnlock() {
	s.log.Info().Msg("manual unlock")
	s.events.Publish(Event{Type: EventManualUnlock, ID: -1, At: s.now()})
	s.actuator.GrantAccess()
}
