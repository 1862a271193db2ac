package doorlock

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/doorlock/internal/actuator"
	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/faceengine"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

var (
	embA = gallery.Embedding{1, 0, 0}
	embB = gallery.Embedding{0, 1, 0}
	embC = gallery.Embedding{0, 0, 1}
)

// fakeCamera returns a fixed frame, or err when set.
type fakeCamera struct {
	mu        sync.Mutex
	err       error
	captures  int
	onCapture func()
}

func (c *fakeCamera) Capture(ctx context.Context) (*camera.Frame, error) {
	c.mu.Lock()
	c.captures++
	hook, err := c.onCapture, c.err
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &camera.Frame{Data: []byte{0xFF, 0xD8, 0xFF}, Width: 320, Height: 240, ContentType: "image/jpeg"}, nil
}

func (c *fakeCamera) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// fakeEngine "detects" one region per configured face embedding. A nil
// embedding makes extraction of that region fail alignment.
type fakeEngine struct {
	*faceengine.Matcher

	mu        sync.Mutex
	faces     []gallery.Embedding
	detectErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{Matcher: faceengine.NewMatcher(0.1, 0)}
}

func (e *fakeEngine) show(faces ...gallery.Embedding) {
	e.mu.Lock()
	e.faces = faces
	e.mu.Unlock()
}

func (e *fakeEngine) Detect(ctx context.Context, frame *camera.Frame) ([]faceengine.Region, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detectErr != nil {
		return nil, e.detectErr
	}
	regions := make([]faceengine.Region, len(e.faces))
	for i := range e.faces {
		regions[i] = faceengine.Region{Index: i, Box: image.Rect(0, 0, 100, 100), Score: 0.99}
	}
	return regions, nil
}

func (e *fakeEngine) ExtractEmbedding(ctx context.Context, frame *camera.Frame, region faceengine.Region) (gallery.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if region.Index >= len(e.faces) || e.faces[region.Index] == nil {
		return nil, faceengine.ErrAlignmentFailed
	}
	return e.faces[region.Index], nil
}

// fakeActuator records the sequences it was asked to run.
type fakeActuator struct {
	mu    sync.Mutex
	calls []string
	ticks int
	hold  time.Duration
}

func (a *fakeActuator) GrantAccess() {
	a.record("grant")
	if a.hold > 0 {
		time.Sleep(a.hold)
	}
}

func (a *fakeActuator) DenyAccess() { a.record("deny") }

func (a *fakeActuator) Tick(time.Time) {
	a.mu.Lock()
	a.ticks++
	a.mu.Unlock()
}

func (a *fakeActuator) State() actuator.State { return actuator.Locked }

func (a *fakeActuator) record(call string) {
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
}

func (a *fakeActuator) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// levelRecorder is an actuator output that records every level written.
type levelRecorder struct {
	mu     sync.Mutex
	levels []bool
}

func (r *levelRecorder) Set(on bool) error {
	r.mu.Lock()
	r.levels = append(r.levels, on)
	r.mu.Unlock()
	return nil
}

func (r *levelRecorder) Levels() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.levels...)
}

var errCameraOffline = errors.New("camera offline")

func newTestSystem(capacity int) (*System, *fakeCamera, *fakeEngine, *fakeActuator) {
	cam := &fakeCamera{}
	engine := newFakeEngine()
	act := &fakeActuator{}
	sys := NewSystem(Deps{
		Camera:   cam,
		Engine:   engine,
		Gallery:  gallery.New(capacity, engine),
		Actuator: act,
		Logger:   zerolog.Nop(),
	})
	return sys, cam, engine, act
}
