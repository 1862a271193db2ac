package doorlock

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/doorlock/internal/actuator"
	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

// Operation is a control surface request.
type Operation string

const (
	OpSnapshot     Operation = "snapshot"
	OpEnroll       Operation = "enroll"
	OpRecognizeNow Operation = "recognize_now"
	OpDeleteLast   Operation = "delete_last"
	OpManualUnlock Operation = "manual_unlock"
)

// Response is the outcome of one control operation. Err is nil on success;
// Message is always set.
type Response struct {
	Operation Operation
	Message   string
	ID        *int
	Frame     *camera.Frame
	Cycle     *CycleReport
	Err       error
}

// Handle runs op to completion and builds its response.
func (s *System) Handle(ctx context.Context, op Operation) Response {
	resp := s.handle(ctx, op)
	s.metrics.ObserveRequest(string(op), requestStatus(resp.Err))
	return resp
}

func (s *System) handle(ctx context.Context, op Operation) Response {
	resp := Response{Operation: op}

	switch op {
	case OpSnapshot:
		frame, err := s.Snapshot(ctx)
		if err != nil {
			return failed(resp, "Camera capture failed", err)
		}
		resp.Frame = frame
		resp.Message = fmt.Sprintf("Captured %dx%d frame", frame.Width, frame.Height)

	case OpEnroll:
		id, err := s.Enroll(ctx)
		if err != nil {
			return failed(resp, enrollFailureMessage(err), err)
		}
		resp.ID = &id
		resp.Message = fmt.Sprintf("Face enrolled with ID %d", id)

	case OpRecognizeNow:
		report, err := s.RunCycle(ctx)
		resp.Cycle = report
		if err != nil {
			return failed(resp, "Recognition cycle aborted", err)
		}
		resp.Message = fmt.Sprintf("Recognition cycle completed, %d face(s) processed", report.Faces)

	case OpDeleteLast:
		id, err := s.DeleteLast(ctx)
		if errors.Is(err, gallery.ErrGalleryEmpty) {
			return failed(resp, "No faces to delete", err)
		}
		if err != nil {
			return failed(resp, "Failed to delete face", err)
		}
		resp.ID = &id
		resp.Message = fmt.Sprintf("Deleted face ID %d", id)

	case OpManualUnlock:
		s.ManualUnlock()
		resp.Message = "Door unlocked and locked again"
		if s.actuator.State() == actuator.Unlocking {
			resp.Message = "Door unlocked"
		}

	default:
		return failed(resp, "Unknown operation", fmt.Errorf("unknown operation %q", op))
	}

	return resp
}

func failed(resp Response, message string, err error) Response {
	resp.Message = message
	resp.Err = err
	return resp
}

func enrollFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrCaptureUnavailable):
		return "Camera capture failed"
	case errors.Is(err, ErrNoFaceDetected):
		return "No face detected"
	case errors.Is(err, ErrAlignmentFailed):
		return "Face alignment failed"
	case errors.Is(err, ErrEngineUnavailable):
		return "Face engine unavailable"
	case errors.Is(err, gallery.ErrGalleryFull):
		return "Gallery is full"
	default:
		return "Enrollment failed"
	}
}

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
