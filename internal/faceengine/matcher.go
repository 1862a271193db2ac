package faceengine

import (
	"sync"

	"github.com/kozaktomas/doorlock/internal/constants"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

// Matcher finds the closest template by cosine distance. Small galleries are
// scanned linearly; from hnswMin templates on, candidates come from an HNSW
// graph that is rebuilt whenever the gallery changes.
type Matcher struct {
	threshold float64
	hnswMin   int

	mu    sync.Mutex
	index *templateIndex
}

// NewMatcher creates a matcher accepting distances up to threshold.
// A non-positive hnswMin disables the graph.
func NewMatcher(threshold float64, hnswMin int) *Matcher {
	if threshold <= 0 {
		threshold = constants.DefaultMatchThreshold
	}
	return &Matcher{threshold: threshold, hnswMin: hnswMin}
}

// Threshold returns the maximum accepted cosine distance.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindMatch implements gallery.Matcher. Ties resolve to the lowest id.
// Graph candidates are approximate; when none of them is accepted the whole
// gallery is scanned, so an enrolled face is never missed.
func (m *Matcher) FindMatch(embedding gallery.Embedding, templates []gallery.Template) (int, bool) {
	if len(embedding) == 0 || len(templates) == 0 {
		return 0, false
	}

	if m.hnswMin > 0 && len(templates) >= m.hnswMin {
		if id, ok := m.best(embedding, m.candidates(embedding, templates)); ok {
			return id, true
		}
	}
	return m.best(embedding, templates)
}

// best returns the closest accepted template among candidates.
func (m *Matcher) best(embedding gallery.Embedding, candidates []gallery.Template) (int, bool) {
	bestID, bestDist := 0, 2.0
	found := false
	for _, t := range candidates {
		d := CosineDistance(embedding, t.Embedding)
		if d > m.threshold {
			continue
		}
		if !found || d < bestDist || (d == bestDist && t.ID < bestID) {
			bestID, bestDist, found = t.ID, d, true
		}
	}
	return bestID, found
}

func (m *Matcher) candidates(embedding gallery.Embedding, templates []gallery.Template) []gallery.Template {
	m.mu.Lock()
	if m.index == nil || !m.index.matches(templates) {
		m.index = buildIndex(templates)
	}
	index := m.index
	m.mu.Unlock()

	byID := make(map[int]int, len(templates))
	for i, t := range templates {
		byID[t.ID] = i
	}

	ids := index.nearest(embedding, min(max(searchWidth, constants.HNSWEfSearch), len(templates)))
	out := make([]gallery.Template, 0, len(ids))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			out = append(out, templates[i])
		}
	}
	return out
}
