package actuator

import (
	"testing"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/kozaktomas/doorlock/internal/config"
)

func TestPinOutputLevels(t *testing.T) {
	tests := []struct {
		name      string
		activeLow bool
		on        bool
		want      gpio.Level
	}{
		{"active high on", false, true, gpio.High},
		{"active high off", false, false, gpio.Low},
		{"active low on", true, true, gpio.Low},
		{"active low off", true, false, gpio.High},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pin := &gpiotest.Pin{N: "GPIO12"}
			out := &PinOutput{Pin: pin, ActiveLow: tt.activeLow}

			if err := out.Set(tt.on); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got := pin.Read(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenOutputsLogDriver(t *testing.T) {
	outs, err := OpenOutputs(config.ActuatorConfig{Driver: DriverLog}, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenOutputs: %v", err)
	}
	if outs.Relay == nil || outs.Indicator == nil || outs.Buzzer == nil {
		t.Fatal("log driver left an output nil")
	}

	_ = outs.Indicator.Set(true)
	if !outs.Indicator.(*LogOutput).On() {
		t.Error("indicator level not recorded")
	}
}

func TestOpenOutputsUnknownDriver(t *testing.T) {
	if _, err := OpenOutputs(config.ActuatorConfig{Driver: "serial"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}
