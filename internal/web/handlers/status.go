package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/doorlock/internal/doorlock"
	"github.com/kozaktomas/doorlock/internal/gallery"
	"github.com/kozaktomas/doorlock/internal/web/static"
)

// StatusSource reports the current system status.
type StatusSource interface {
	Status() doorlock.Status
}

// TemplateLister lists enrolled templates.
type TemplateLister interface {
	Templates() []gallery.Template
}

// StatusHandler serves read-only views. It never goes through the scheduler.
type StatusHandler struct {
	status  StatusSource
	gallery TemplateLister
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(status StatusSource, gallery TemplateLister) *StatusHandler {
	return &StatusHandler{status: status, gallery: gallery}
}

// Get returns the system status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.status.Status())
}

// FaceResponse describes one enrolled face. Embeddings are never exposed.
type FaceResponse struct {
	ID         int       `json:"id"`
	Dim        int       `json:"dim"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// ListFaces returns the enrolled faces in id order.
func (h *StatusHandler) ListFaces(w http.ResponseWriter, r *http.Request) {
	templates := h.gallery.Templates()
	faces := make([]FaceResponse, len(templates))
	for i, t := range templates {
		faces[i] = FaceResponse{ID: t.ID, Dim: len(t.Embedding), EnrolledAt: t.EnrolledAt}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(faces),
		"faces": faces,
	})
}

// Index renders the HTML control page.
func (h *StatusHandler) Index(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	static.Index.Execute(w, static.PageData{
		Lock:               st.Lock,
		RecognitionEnabled: st.RecognitionEnabled,
		GalleryCount:       st.GalleryCount,
		GalleryCapacity:    st.GalleryCapacity,
	})
}
