package control

import "time"

func (p *PID) ManualMode() bool { return p.manual }

// SetManualMode switches between manual and automatic operation. Leaving manual mode resets
// the timing, derivative and integral state so automatic control starts clean at now.
func (p *PID) SetManualMode(enabled bool, now time.Time) {
	if enabled {
		p.manual = true
		return
	}
	if !p.manual {
		return
	}
	p.manual = false
	p.prevT, p.prevPV, p.hasPrev = now, 0, true
	p.ci = 0
}

// SetManualOutput forces the output to v, clamped to the output limits, and enables manual
// mode. It returns the level actually set.
func (p *PID) SetManualOutput(v float64) float64 {
	v = p.clamp(v)
	p.manual = true
	p.manualOut, p.hasManualOut = v, true
	p.ranSinceSet = false
	return v
}

// ManualOutput returns the output in effect: the last computed output once Compute has run
// after the override was set, the pending override otherwise.
func (p *PID) ManualOutput() float64 {
	if p.ranSinceSet && p.hasLastOut {
		return p.lastOut
	}
	return p.manualOut
}

// holdManual is Compute in manual mode. Without an override the last output is held.
func (p *PID) holdManual() float64 {
	out := p.lastOut
	if p.hasManualOut {
		out = p.manualOut
	}
	p.record(out)
	return out
}
