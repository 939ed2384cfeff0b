package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/sim"
)

// Build returns a fresh closed loop for one candidate gain set.
type Build func(g control.Gains) (*sim.Loop, sim.LoopConfig, error)

// GridSearch scales a base gain set over a grid of factors and keeps the combination that
// minimises a loop metric. Parameter names follow control.PID.SetParam ("Kp", "Ki", "Kd").
type GridSearch struct {
	paramNames []string
	factors    [][]float64
}

func NewGridSearch(params []string, factors [][]float64) (*GridSearch, error) {
	if len(params) != len(factors) {
		return nil, fmt.Errorf("%w: %d parameters but %d factor ranges", dynamo.ErrInvalidArgument, len(params), len(factors))
	}
	scratch := control.NewPID()
	for i, name := range params {
		if err := scratch.SetParam(name, 0); err != nil {
			return nil, err
		}
		if len(factors[i]) == 0 {
			return nil, fmt.Errorf("%w: no factors for %s", dynamo.ErrInvalidArgument, name)
		}
	}
	return &GridSearch{paramNames: params, factors: factors}, nil
}

type Candidate struct {
	Gains control.Gains
	Score float64
}

// Search runs every grid point and returns the best candidate. Candidates whose loop fails or
// whose metric is not finite are skipped; cancellation aborts the search.
func (g *GridSearch) Search(ctx context.Context, base control.Gains, build Build, metricName string) (Candidate, error) {
	best := Candidate{Score: math.Inf(1)}
	found := false

	err := g.searchRecursive(ctx, 0, base, base, build, metricName, &best, &found)
	if err != nil {
		return Candidate{}, err
	}
	if !found {
		return Candidate{}, fmt.Errorf("%w: no candidate produced metric %q", dynamo.ErrUnavailable, metricName)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	base, current control.Gains,
	build Build,
	metricName string,
	best *Candidate,
	found *bool,
) error {
	if err := ctx.Err(); err != nil {
		return dynamo.Canceled(err)
	}

	if depth == len(g.paramNames) {
		loop, cfg, err := build(current)
		if err != nil {
			return err
		}

		trace, err := loop.Run(ctx, cfg)
		if errors.Is(err, dynamo.ErrCanceled) {
			return err
		}
		if err != nil {
			return nil
		}

		val, ok := trace.Metrics[metricName]
		if ok && dynamo.IsFinite(val) && val < best.Score {
			*best = Candidate{Gains: current, Score: val}
			*found = true
		}
		return nil
	}

	name := g.paramNames[depth]
	for _, f := range g.factors[depth] {
		pid := control.NewPID()
		pid.SetGains(current)
		if err := pid.SetParam(name, f*baseParam(base, name)); err != nil {
			return err
		}

		if err := g.searchRecursive(ctx, depth+1, base, pid.Gains(), build, metricName, best, found); err != nil {
			return err
		}
	}
	return nil
}

func baseParam(g control.Gains, name string) float64 {
	switch name {
	case "Kp":
		return g.Kp
	case "Ki":
		return g.Ki
	case "Kd":
		return g.Kd
	}
	return 0
}
