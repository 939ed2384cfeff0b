package autotune_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/dynamo"
)

var _ = Describe("VerifyStability", func() {
	var (
		clock  *dynamo.ManualClock
		logger *logrus.Logger
		hook   *test.Hook
	)

	BeforeEach(func() {
		clock = dynamo.NewManualClock(t0)
		logger, hook = test.NewNullLogger()
	})

	newTuner := func(p dynamo.Plant) *autotune.Autotuner {
		a := autotune.New(p, clock)
		a.Logger = logger
		return a
	}

	It("accepts a constant plant after the full check", func() {
		p := constantPlant(50, 3)
		Expect(newTuner(p).VerifyStability(context.Background())).To(Succeed())
		Expect(clock.Now().Sub(t0)).To(Equal(100 * time.Second))
		Expect(p.measures).To(Equal(6))
		Expect(p.sets).To(BeEmpty())
	})

	It("tolerates drift inside half a percent", func() {
		p := &scriptedPlant{measure: func(n int) (float64, error) {
			if n == 0 {
				return 50, nil
			}
			return 50.2, nil
		}}
		Expect(newTuner(p).VerifyStability(context.Background())).To(Succeed())
	})

	It("reports a drifting measurement", func() {
		p := &scriptedPlant{measure: func(n int) (float64, error) {
			if n < 3 {
				return 50, nil
			}
			return 51, nil
		}}

		err := newTuner(p).VerifyStability(context.Background())
		Expect(err).To(MatchError(dynamo.ErrNotStable))

		var ns *dynamo.NotStableError
		Expect(errors.As(err, &ns)).To(BeTrue())
		Expect(ns.Measured).To(Equal(51.0))
		Expect(ns.Expected).To(Equal(50.0))
		Expect(ns.Elapsed).To(Equal(time.Second))
		Expect(ns.Output).To(BeFalse())
		Expect(hook.LastEntry().Level).To(Equal(logrus.WarnLevel))
	})

	It("reports an output that fluctuates between checks", func() {
		p := constantPlant(50, 0)
		p.read = func(n int) float64 { return float64(1 + n%2) }

		err := newTuner(p).VerifyStability(context.Background())

		var ns *dynamo.NotStableError
		Expect(errors.As(err, &ns)).To(BeTrue())
		Expect(ns.Output).To(BeTrue())
		Expect(ns.Measured).To(Equal(2.0))
		Expect(ns.Expected).To(Equal(1.0))
		Expect(ns.Elapsed).To(Equal(10 * time.Millisecond))
	})

	It("stops on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newTuner(constantPlant(50, 0)).VerifyStability(ctx)
		Expect(err).To(MatchError(dynamo.ErrCanceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(errors.Is(err, dynamo.ErrNotStable)).To(BeFalse())
	})

	It("propagates measurement failures", func() {
		p := &scriptedPlant{measure: func(n int) (float64, error) {
			if n == 2 {
				return 0, errBoom
			}
			return 50, nil
		}}
		Expect(newTuner(p).VerifyStability(context.Background())).To(MatchError(errBoom))
	})

	It("needs a plant", func() {
		Expect(autotune.New(nil, clock).VerifyStability(context.Background())).To(MatchError(dynamo.ErrInvalidArgument))
	})
})
