package doorlock

import "errors"

var (
	// ErrCaptureUnavailable is returned when the camera produced no frame.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	// ErrNoFaceDetected is returned when the frame holds no face region.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrAlignmentFailed is returned when no embedding could be extracted.
	ErrAlignmentFailed = errors.New("face alignment failed")
	// ErrEngineUnavailable is returned when the face engine cannot be reached.
	ErrEngineUnavailable = errors.New("face engine unavailable")
	// ErrSchedulerStopped is returned by Submit once the scheduler has exited.
	ErrSchedulerStopped = errors.New("scheduler stopped")
)
