package sim

import (
	"context"
	"sync"
)

// Setup builds an independent loop for one ensemble member. Each member needs its own plant
// and clock; loops are not safe for concurrent use.
type Setup func() (*Loop, LoopConfig, error)

// RunEnsemble runs every member concurrently and returns their traces in order.
func RunEnsemble(ctx context.Context, setups []Setup) ([]*Trace, error) {
	traces := make([]*Trace, len(setups))
	errs := make([]error, len(setups))

	var wg sync.WaitGroup
	for i, setup := range setups {
		wg.Add(1)
		go func(idx int, setup Setup) {
			defer wg.Done()

			loop, cfg, err := setup()
			if err != nil {
				errs[idx] = err
				return
			}
			traces[idx], errs[idx] = loop.Run(ctx, cfg)
		}(i, setup)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return traces, nil
}
