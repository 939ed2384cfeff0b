package control

import (
	"math/rand"
	"testing"
)

func TestManualOverrideClamps(t *testing.T) {
	p := NewPID()
	if err := p.SetOutputLimits(5, 10); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in, want float64
	}{
		{6, 6},
		{15, 10},
		{2, 5},
	}
	for _, tt := range tests {
		if got := p.SetManualOutput(tt.in); got != tt.want {
			t.Errorf("SetManualOutput(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestManualOverrideEnablesManualMode(t *testing.T) {
	p := NewPID()
	p.SetManualMode(false, at(0))
	p.SetManualOutput(6)

	if !p.ManualMode() {
		t.Error("override should enable manual mode")
	}
}

func TestManualModeIdempotent(t *testing.T) {
	p := NewPID()
	p.Ki = 1
	p.Setpoint = 1
	p.Compute(0, at(0))
	p.Compute(0, at(1))
	ci := p.Ci()

	p.SetManualMode(false, at(2))
	p.SetManualMode(false, at(3))
	if p.ManualMode() || p.Ci() != ci {
		t.Errorf("false->false must not reset state: Ci=%f want %f", p.Ci(), ci)
	}

	p.SetManualMode(true, at(4))
	p.SetManualMode(true, at(5))
	if !p.ManualMode() || p.Ci() != ci {
		t.Errorf("true->true must not reset state: Ci=%f want %f", p.Ci(), ci)
	}

	p.SetManualMode(false, at(6))
	if p.ManualMode() || p.Ci() != 0 {
		t.Errorf("true->false must reset integral, got Ci=%f", p.Ci())
	}

	// timing restarts at the switch instant
	p.Compute(0, at(7))
	if p.Ci() != 1 {
		t.Errorf("expected Ci 1 one second after resuming, got %f", p.Ci())
	}
}

func TestManualComputeIgnoresLaw(t *testing.T) {
	p := NewPID()
	p.Kp = 100
	p.Setpoint = 50
	p.SetManualOutput(3)

	for i := 0; i < 3; i++ {
		if out := p.Compute(float64(i), at(float64(i))); out != 3 {
			t.Errorf("manual compute returned %f, want 3", out)
		}
	}
	if p.Ci() != 0 || p.Cp() != 0 {
		t.Error("manual mode must not touch the law state")
	}
	if last, ok := p.LastOutput(); !ok || last != 3 {
		t.Errorf("last output should record the override, got %f", last)
	}
}

func TestManualOutputBeforeCompute(t *testing.T) {
	p := NewPID()
	want := p.SetManualOutput(float64(rand.Intn(10) + 1))

	if got := p.ManualOutput(); got != want {
		t.Errorf("ManualOutput() = %v, want %v", got, want)
	}
}

func TestManualOutputAfterCompute(t *testing.T) {
	p := NewPID()
	p.Kp = 1
	p.Setpoint = 4
	p.Compute(0, at(0))

	p.SetManualOutput(9)
	if got := p.ManualOutput(); got != 9 {
		t.Errorf("pending override should win before compute, got %v", got)
	}

	p.Compute(0, at(1))
	p.SetManualMode(false, at(1))
	p.Compute(0, at(2))
	if got := p.ManualOutput(); got != 4 {
		t.Errorf("expected last computed output 4, got %v", got)
	}
}
