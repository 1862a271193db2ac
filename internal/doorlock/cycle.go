package doorlock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/faceengine"
)

// Cycle outcomes.
const (
	OutcomeProcessed          = "processed"
	OutcomeNoFace             = "no_face"
	OutcomeCaptureUnavailable = "capture_unavailable"
	OutcomeEngineUnavailable  = "engine_unavailable"
)

// CycleReport describes one recognition cycle.
type CycleReport struct {
	ID      string  `json:"id"`
	Outcome string  `json:"outcome"`
	Faces   int     `json:"faces"`
	Events  []Event `json:"events"`
}

// RunCycle captures one frame and grants or denies access for every detected
// face, in detector order. Each grant runs the full actuator sequence before
// the next face is considered. The returned error is set only when the cycle
// was aborted before detection finished.
func (s *System) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.New().String(), Events: []Event{}}
	log := s.log.With().Str("cycle_id", report.ID).Logger()

	frame, err := s.camera.Capture(ctx)
	if err != nil {
		report.Outcome = OutcomeCaptureUnavailable
		s.metrics.ObserveCycle(report.Outcome)
		log.Debug().Err(err).Msg("capture failed")
		return report, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	regions, err := s.engine.Detect(ctx, frame)
	if err != nil {
		report.Outcome = OutcomeEngineUnavailable
		s.metrics.ObserveCycle(report.Outcome)
		log.Warn().Err(err).Msg("face detection failed")
		return report, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	report.Faces = len(regions)
	if len(regions) == 0 {
		report.Outcome = OutcomeNoFace
		s.metrics.ObserveCycle(report.Outcome)
		return report, nil
	}

	for _, region := range regions {
		event := s.decide(ctx, frame, region, report.ID)
		report.Events = append(report.Events, event)
	}

	report.Outcome = OutcomeProcessed
	s.metrics.ObserveCycle(report.Outcome)
	return report, nil
}

// decide recognizes one region and actuates. A region whose embedding cannot
// be extracted counts as unrecognized.
func (s *System) decide(ctx context.Context, frame *camera.Frame, region faceengine.Region, cycleID string) Event {
	event := Event{Type: EventDenied, ID: -1, CycleID: cycleID, Region: region.Index}

	embedding, err := s.engine.ExtractEmbedding(ctx, frame, region)
	switch {
	case errors.Is(err, faceengine.ErrUnavailable):
		event.Reason = "engine_unavailable"
	case err != nil:
		event.Reason = "alignment_failed"
	default:
		if id, ok := s.gallery.Match(embedding); ok {
			event.Type = EventGranted
			event.ID = id
		}
	}
	if err != nil {
		s.log.Debug().Err(err).Int("region", region.Index).Msg("embedding extraction failed")
	}

	event.At = s.now()
	s.metrics.ObserveDecision(string(event.Type))
	s.events.Publish(event)

	if event.Type == EventGranted {
		s.log.Info().Str("cycle_id", cycleID).Int("id", event.ID).Msg("access granted")
		s.actuator.GrantAccess()
	} else {
		s.log.Info().Str("cycle_id", cycleID).Int("region", region.Index).Msg("access denied")
		s.actuator.DenyAccess()
	}
	return event
}
