package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/doorlock/internal/doorlock"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

// Submitter queues an operation on the scheduler and waits for its result.
type Submitter interface {
	Submit(ctx context.Context, op doorlock.Operation) (doorlock.Response, error)
}

// ControlHandler serves the five door lock operations.
type ControlHandler struct {
	scheduler Submitter
	timeout   time.Duration
	log       zerolog.Logger
}

// NewControlHandler creates a control handler. A request waits at most
// timeout for its operation; the operation itself is never cancelled.
func NewControlHandler(scheduler Submitter, timeout time.Duration, log zerolog.Logger) *ControlHandler {
	return &ControlHandler{scheduler: scheduler, timeout: timeout, log: log}
}

// OperationResponse is the JSON body of a successful operation.
type OperationResponse struct {
	Operation string                `json:"operation"`
	Message   string                `json:"message"`
	ID        *int                  `json:"id,omitempty"`
	Cycle     *doorlock.CycleReport `json:"cycle,omitempty"`
}

// Capture returns one camera frame as an image.
func (h *ControlHandler) Capture(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.submit(w, r, doorlock.OpSnapshot)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", resp.Frame.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Frame.Data)
}

// Enroll enrolls the face currently in front of the camera.
func (h *ControlHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, doorlock.OpEnroll, http.StatusCreated)
}

// Recognize runs one recognition cycle and reports its decisions.
func (h *ControlHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, doorlock.OpRecognizeNow, http.StatusOK)
}

// DeleteLast removes the most recently enrolled face.
func (h *ControlHandler) DeleteLast(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, doorlock.OpDeleteLast, http.StatusOK)
}

// Unlock opens the door without recognition. It replies once the door has
// locked again.
func (h *ControlHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, doorlock.OpManualUnlock, http.StatusOK)
}

func (h *ControlHandler) run(w http.ResponseWriter, r *http.Request, op doorlock.Operation, okStatus int) {
	resp, ok := h.submit(w, r, op)
	if !ok {
		return
	}

	respondJSON(w, okStatus, OperationResponse{
		Operation: string(resp.Operation),
		Message:   resp.Message,
		ID:        resp.ID,
		Cycle:     resp.Cycle,
	})
}

// submit runs op and writes the error response when it did not succeed.
func (h *ControlHandler) submit(w http.ResponseWriter, r *http.Request, op doorlock.Operation) (doorlock.Response, bool) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.scheduler.Submit(ctx, op)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		h.log.Warn().Err(err).Str("operation", string(op)).Msg("request not completed")
		respondError(w, status, "operation did not complete: "+err.Error())
		return resp, false
	}

	if resp.Err != nil {
		status := statusFor(resp.Err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(resp.Err).Str("operation", string(op)).Msg("operation failed")
		}
		respondError(w, status, resp.Message)
		return resp, false
	}
	return resp, true
}

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, doorlock.ErrCaptureUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, doorlock.ErrNoFaceDetected), errors.Is(err, doorlock.ErrAlignmentFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gallery.ErrGalleryFull):
		return http.StatusConflict
	case errors.Is(err, gallery.ErrGalleryEmpty):
		return http.StatusNotFound
	case errors.Is(err, doorlock.ErrEngineUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
