// Package actuator drives the door relay, status indicator and buzzer.
//
// Every output write is fire-and-forget: a failed write is logged and the
// sequence continues, so callers never see actuator errors.
package actuator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/doorlock/internal/constants"
	"github.com/kozaktomas/doorlock/internal/metrics"
)

// State is the lock state of the door.
type State int

const (
	Locked State = iota
	Unlocking
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	default:
		return "unknown"
	}
}

// Pattern selects a buzzer sequence.
type Pattern int

const (
	PatternSuccess Pattern = 1 // single 200 ms pulse
	PatternAlarm   Pattern = 2 // three 100 ms pulses
)

// DwellMode controls how the unlocked hold is timed.
type DwellMode string

const (
	// DwellBlocking holds the caller for the whole dwell.
	DwellBlocking DwellMode = "blocking"
	// DwellDeadline returns after opening and relocks on a later Tick.
	DwellDeadline DwellMode = "deadline"
)

// Output is a single boolean digital output.
type Output interface {
	Set(on bool) error
}

// Outputs groups the three physical outputs.
type Outputs struct {
	Relay     Output // on = unlocked
	Indicator Output
	Buzzer    Output
}

// Options configures a Controller.
type Options struct {
	Dwell   time.Duration
	Mode    DwellMode
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Controller sequences the outputs through Locked and Unlocking.
type Controller struct {
	outputs Outputs
	dwell   time.Duration
	mode    DwellMode
	log     zerolog.Logger
	metrics *metrics.Metrics

	sleep func(time.Duration)
	now   func() time.Time

	// seq serializes whole output sequences.
	seq sync.Mutex

	mu       sync.Mutex
	state    State
	deadline time.Time
}

// NewController creates a controller in the Locked state.
func NewController(outputs Outputs, opts Options) *Controller {
	if opts.Dwell <= 0 {
		opts.Dwell = constants.DefaultDwell
	}
	if opts.Mode != DwellDeadline {
		opts.Mode = DwellBlocking
	}
	return &Controller{
		outputs: outputs,
		dwell:   opts.Dwell,
		mode:    opts.Mode,
		log:     opts.Logger,
		metrics: opts.Metrics,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// Ready drives the outputs to the idle, system-ready levels.
func (c *Controller) Ready() {
	c.seq.Lock()
	defer c.seq.Unlock()

	c.write("relay", c.outputs.Relay, false)
	c.write("buzzer", c.outputs.Buzzer, false)
	c.write("indicator", c.outputs.Indicator, true)
	c.setState(Locked)
}

// Close locks the door and switches every output off.
func (c *Controller) Close() {
	c.seq.Lock()
	defer c.seq.Unlock()

	c.write("relay", c.outputs.Relay, false)
	c.write("buzzer", c.outputs.Buzzer, false)
	c.write("indicator", c.outputs.Indicator, false)
	c.setState(Locked)
}

// GrantAccess unlocks the door for the dwell interval.
// In blocking mode it returns only after the door is locked again.
func (c *Controller) GrantAccess() {
	c.seq.Lock()
	defer c.seq.Unlock()

	start := c.now()
	if c.mode == DwellDeadline {
		c.grantWithDeadline()
		c.metrics.ObserveActuation("grant", c.now().Sub(start))
		return
	}

	c.setState(Unlocking)
	c.log.Info().Dur("dwell", c.dwell).Msg("door unlocked")
	c.write("relay", c.outputs.Relay, true)
	c.write("indicator", c.outputs.Indicator, true)
	c.buzz(PatternSuccess)

	c.sleep(c.dwell)

	c.relock()
	c.metrics.ObserveActuation("grant", c.now().Sub(start))
}

func (c *Controller) grantWithDeadline() {
	c.mu.Lock()
	alreadyOpen := c.state == Unlocking
	c.state = Unlocking
	c.mu.Unlock()

	if !alreadyOpen {
		c.log.Info().Dur("dwell", c.dwell).Msg("door unlocked")
		c.write("relay", c.outputs.Relay, true)
		c.write("indicator", c.outputs.Indicator, true)
	}
	c.buzz(PatternSuccess)

	deadline := c.now().Add(c.dwell)
	c.mu.Lock()
	c.deadline = deadline
	c.mu.Unlock()
	if alreadyOpen {
		c.log.Debug().Time("deadline", deadline).Msg("unlock extended")
	}
}

// Tick relocks the door once the unlock deadline has passed.
// It does nothing in blocking mode.
func (c *Controller) Tick(now time.Time) {
	if c.mode != DwellDeadline {
		return
	}

	c.mu.Lock()
	due := c.state == Unlocking && !now.Before(c.deadline)
	c.mu.Unlock()
	if !due {
		return
	}

	c.seq.Lock()
	defer c.seq.Unlock()
	c.relock()
}

// DenyAccess plays the alarm pattern. The relay is not touched.
func (c *Controller) DenyAccess() {
	c.seq.Lock()
	defer c.seq.Unlock()

	start := c.now()
	c.log.Info().Msg("access denied")
	c.buzz(PatternAlarm)
	c.metrics.ObserveActuation("deny", c.now().Sub(start))
}

// Buzzer plays a pattern. Unknown patterns only make sure the buzzer is off.
func (c *Controller) Buzzer(p Pattern) {
	c.seq.Lock()
	defer c.seq.Unlock()
	c.buzz(p)
}

// State returns the current lock state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dwell returns the configured unlock hold.
func (c *Controller) Dwell() time.Duration {
	return c.dwell
}

// Mode returns the dwell mode in effect.
func (c *Controller) Mode() DwellMode {
	return c.mode
}

func (c *Controller) buzz(p Pattern) {
	switch p {
	case PatternSuccess:
		c.pulse(constants.SuccessBeep, 0)
	case PatternAlarm:
		for range constants.AlarmPulses {
			c.pulse(constants.AlarmPulse, constants.AlarmPulse)
		}
	default:
		c.log.Warn().Int("pattern", int(p)).Msg("unknown buzzer pattern")
		c.write("buzzer", c.outputs.Buzzer, false)
	}
}

func (c *Controller) pulse(on, off time.Duration) {
	c.write("buzzer", c.outputs.Buzzer, true)
	c.sleep(on)
	c.write("buzzer", c.outputs.Buzzer, false)
	if off > 0 {
		c.sleep(off)
	}
}

// relock must be called with seq held.
func (c *Controller) relock() {
	c.write("relay", c.outputs.Relay, false)
	c.write("indicator", c.outputs.Indicator, true)
	c.setState(Locked)
	c.log.Info().Msg("door locked")
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) write(name string, out Output, on bool) {
	if out == nil {
		return
	}
	if err := out.Set(on); err != nil {
		c.log.Warn().Err(err).Str("output", name).Bool("level", on).Msg("output write failed")
	}
}
