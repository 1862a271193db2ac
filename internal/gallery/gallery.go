// Package gallery holds the enrolled face templates the door lock recognizes.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	// ErrGalleryFull is returned when enrolling into a gallery at capacity.
	ErrGalleryFull = errors.New("gallery is full")
	// ErrGalleryEmpty is returned when deleting from an empty gallery.
	ErrGalleryEmpty = errors.New("gallery is empty")
)

// Embedding is a fixed-length face descriptor produced by the face engine.
type Embedding []float32

// Template is one enrolled identity. It is never modified after creation.
type Template struct {
	ID         int
	Embedding  Embedding
	EnrolledAt time.Time
}

// Matcher compares an embedding against enrolled templates and returns the
// id of the best accepted match.
type Matcher interface {
	FindMatch(embedding Embedding, templates []Template) (int, bool)
}

// Store persists templates across restarts.
type Store interface {
	// Load returns all stored templates ordered by id.
	Load(ctx context.Context) ([]Template, error)
	// Append stores a newly enrolled template.
	Append(ctx context.Context, tpl Template) error
	// Remove deletes the template with the given id.
	Remove(ctx context.Context, id int) error
}

// Gallery is an ordered, capacity-bounded set of templates.
// Ids equal the template's position, so they are assigned in enrollment
// order and deletion only ever removes the last one.
type Gallery struct {
	mu        sync.RWMutex
	templates []Template
	capacity  int
	matcher   Matcher
	store     Store
	now       func() time.Time
}

// New creates an empty in-memory gallery.
func New(capacity int, matcher Matcher) *Gallery {
	if capacity < 0 {
		capacity = 0
	}
	return &Gallery{
		templates: make([]Template, 0, capacity),
		capacity:  capacity,
		matcher:   matcher,
		now:       time.Now,
	}
}

// Restore loads templates from the store and attaches it, so every later
// mutation is written through.
func (g *Gallery) Restore(ctx context.Context, store Store) error {
	templates, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	if len(templates) > g.capacity {
		return fmt.Errorf("stored gallery has %d templates, capacity is %d", len(templates), g.capacity)
	}
	for i, tpl := range templates {
		if tpl.ID != i {
			return fmt.Errorf("stored gallery is not contiguous: position %d has id %d", i, tpl.ID)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.templates = append(g.templates[:0], templates...)
	g.store = store
	return nil
}

// Enroll appends a template for the embedding and returns its id.
func (g *Gallery) Enroll(ctx context.Context, embedding Embedding) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.templates) >= g.capacity {
		return 0, ErrGalleryFull
	}

	tpl := Template{
		ID:         len(g.templates),
		Embedding:  slices.Clone(embedding),
		EnrolledAt: g.now(),
	}

	if g.store != nil {
		if err := g.store.Append(ctx, tpl); err != nil {
			return 0, fmt.Errorf("persisting template %d: %w", tpl.ID, err)
		}
	}

	g.templates = append(g.templates, tpl)
	return tpl.ID, nil
}

// Match returns the id of the enrolled template that best matches embedding.
func (g *Gallery) Match(embedding Embedding) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.templates) == 0 || g.matcher == nil {
		return 0, false
	}
	return g.matcher.FindMatch(embedding, g.templates)
}

// DeleteLast removes the most recently enrolled template and returns its id.
func (g *Gallery) DeleteLast(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.templates) == 0 {
		return 0, ErrGalleryEmpty
	}

	last := g.templates[len(g.templates)-1]
	if g.store != nil {
		if err := g.store.Remove(ctx, last.ID); err != nil {
			return 0, fmt.Errorf("removing template %d: %w", last.ID, err)
		}
	}

	g.templates[len(g.templates)-1] = Template{}
	g.templates = g.templates[:len(g.templates)-1]
	return last.ID, nil
}

// Count returns the number of enrolled templates.
func (g *Gallery) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.templates)
}

// Capacity returns the maximum number of templates.
func (g *Gallery) Capacity() int {
	return g.capacity
}

// Templates returns a copy of the enrolled templates.
func (g *Gallery) Templates() []Template {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.templates)
}
