package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/doorlock/internal/doorlock"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

// fakeScheduler answers Submit with canned responses per operation.
type fakeScheduler struct {
	mu        sync.Mutex
	responses map[doorlock.Operation]doorlock.Response
	err       error
	block     bool
	submitted []doorlock.Operation
}

func (f *fakeScheduler) Submit(ctx context.Context, op doorlock.Operation) (doorlock.Response, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, op)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return doorlock.Response{}, ctx.Err()
	}
	if f.err != nil {
		return doorlock.Response{}, f.err
	}
	resp := f.responses[op]
	resp.Operation = op
	return resp, nil
}

// fakeStatus is a fixed status source.
type fakeStatus struct {
	status doorlock.Status
}

func (f fakeStatus) Status() doorlock.Status { return f.status }

// fakeGallery is a fixed template list.
type fakeGallery []gallery.Template

func (f fakeGallery) Templates() []gallery.Template { return f }

func intPtr(v int) *int { return &v }

var enrolledAt = time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
