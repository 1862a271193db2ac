package doorlock

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/constants"
)

type request struct {
	ctx   context.Context
	op    Operation
	reply chan Response
}

// Scheduler is the single execution context of a System. Each iteration it
// advances the actuator clock, serves at most one control request, runs one
// recognition cycle when recognition is enabled and then idles.
type Scheduler struct {
	system   *System
	requests chan request
	idle     time.Duration
	log      zerolog.Logger
	now      func() time.Time

	done chan struct{}
}

// NewScheduler creates a scheduler for sys.
func NewScheduler(sys *System, cfg config.SchedulerConfig, log zerolog.Logger) *Scheduler {
	if cfg.Idle <= 0 {
		cfg.Idle = constants.DefaultIdleYield
	}
	if cfg.Queue <= 0 {
		cfg.Queue = constants.DefaultRequestQueue
	}
	return &Scheduler{
		system:   sys,
		requests: make(chan request, cfg.Queue),
		idle:     cfg.Idle,
		log:      log,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Run executes the loop until ctx is cancelled. Cancellation is only
// observed between iterations; a started operation always completes.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)

	s.log.Info().Dur("idle", s.idle).Msg("scheduler started")
	defer s.log.Info().Msg("scheduler stopped")

	// Operations must not be cut short by shutdown.
	opCtx := context.WithoutCancel(ctx)

	idle := time.NewTimer(s.idle)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.Step(opCtx)

		idle.Reset(s.idle)
		select {
		case <-ctx.Done():
			return nil
		case <-idle.C:
		}
	}
}

// Step runs one iteration without the idle yield.
func (s *Scheduler) Step(ctx context.Context) {
	s.system.actuator.Tick(s.now())

	select {
	case req := <-s.requests:
		s.serve(req)
	default:
	}

	if s.system.RecognitionEnabled() {
		// Background cycle failures are only logged inside RunCycle.
		_, _ = s.system.RunCycle(ctx)
	}
}

func (s *Scheduler) serve(req request) {
	resp := s.system.Handle(context.WithoutCancel(req.ctx), req.op)
	if resp.Err != nil {
		s.log.Debug().Err(resp.Err).Str("operation", string(req.op)).Msg("control request failed")
	}
	// reply is buffered, so an abandoned caller never blocks the loop.
	req.reply <- resp
}

// Submit queues op and waits for its response. If ctx ends first, Submit
// returns ctx.Err() and the operation still runs once dequeued.
func (s *Scheduler) Submit(ctx context.Context, op Operation) (Response, error) {
	req := request{ctx: ctx, op: op, reply: make(chan Response, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-s.done:
		return Response{}, ErrSchedulerStopped
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-s.done:
		// The request may have been served just before the loop exited.
		select {
		case resp := <-req.reply:
			return resp, nil
		default:
			return Response{}, ErrSchedulerStopped
		}
	}
}
