package actuator

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/kozaktomas/doorlock/internal/config"
)

// Drivers accepted by OpenOutputs.
const (
	DriverGPIO = "gpio"
	DriverLog  = "log"
)

// PinOutput drives a GPIO pin. With ActiveLow set, on maps to a low level.
type PinOutput struct {
	Pin       gpio.PinOut
	ActiveLow bool
}

// Set implements Output.
func (p *PinOutput) Set(on bool) error {
	level := gpio.Level(on)
	if p.ActiveLow {
		level = !level
	}
	if err := p.Pin.Out(level); err != nil {
		return fmt.Errorf("pin %s: %w", p.Pin.String(), err)
	}
	return nil
}

// LogOutput records its level and logs every change. It stands in for
// hardware on development hosts.
type LogOutput struct {
	name string
	log  zerolog.Logger

	mu sync.Mutex
	on bool
}

// NewLogOutput creates a log-backed output.
func NewLogOutput(name string, log zerolog.Logger) *LogOutput {
	return &LogOutput{name: name, log: log}
}

// Set implements Output.
func (l *LogOutput) Set(on bool) error {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()

	if changed {
		l.log.Debug().Str("output", l.name).Bool("on", on).Msg("output changed")
	}
	return nil
}

// On reports the last level written.
func (l *LogOutput) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// OpenOutputs builds the three outputs for the configured driver.
func OpenOutputs(cfg config.ActuatorConfig, log zerolog.Logger) (Outputs, error) {
	switch cfg.Driver {
	case DriverLog, "":
		return Outputs{
			Relay:     NewLogOutput("relay", log),
			Indicator: NewLogOutput("indicator", log),
			Buzzer:    NewLogOutput("buzzer", log),
		}, nil
	case DriverGPIO:
		return openGPIO(cfg)
	default:
		return Outputs{}, fmt.Errorf("unknown actuator driver %q", cfg.Driver)
	}
}

func openGPIO(cfg config.ActuatorConfig) (Outputs, error) {
	if _, err := host.Init(); err != nil {
		return Outputs{}, fmt.Errorf("initializing gpio host: %w", err)
	}

	lookup := func(name string) (gpio.PinIO, error) {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		return pin, nil
	}

	relay, err := lookup(cfg.RelayPin)
	if err != nil {
		return Outputs{}, err
	}
	indicator, err := lookup(cfg.IndicatorPin)
	if err != nil {
		return Outputs{}, err
	}
	buzzer, err := lookup(cfg.BuzzerPin)
	if err != nil {
		return Outputs{}, err
	}

	return Outputs{
		Relay:     &PinOutput{Pin: relay, ActiveLow: cfg.RelayActiveLow},
		Indicator: &PinOutput{Pin: indicator},
		Buzzer:    &PinOutput{Pin: buzzer},
	}, nil
}
