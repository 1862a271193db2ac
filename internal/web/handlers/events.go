package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/doorlock/internal/doorlock"
)

// EventSource hands out event listeners.
type EventSource interface {
	AddListener() chan doorlock.Event
	RemoveListener(ch chan doorlock.Event)
}

// EventsHandler streams door lock events as server-sent events.
type EventsHandler struct {
	events EventSource
	status StatusSource
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(events EventSource, status StatusSource) *EventsHandler {
	return &EventsHandler{events: events, status: status}
}

// Stream sends the current status, then every event until the client
// disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The stream outlives the server write timeout.
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	eventCh := h.events.AddListener()
	defer h.events.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", h.status.Status())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
		}
	}
}

// sendSSEEvent writes one named event with a JSON payload.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	flusher.Flush()
}
