package autotune_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/sim"
)

var _ = Describe("Tune", func() {
	var (
		plant  *sim.Plant
		clock  *dynamo.ManualClock
		tuner  *autotune.Autotuner
		hook   *test.Hook
		logger *logrus.Logger
	)

	configure := func(a *autotune.Autotuner) *autotune.Autotuner {
		a.OutputStep = 10
		a.NoiseBand = 0.2
		a.SetLookback(time.Second)
		a.Logger = logger
		return a
	}

	BeforeEach(func() {
		logger, hook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		plant, clock = labPlant(5)
		tuner = configure(autotune.New(plant, clock))
	})

	Context("on a three lag process", func() {
		It("finds the ultimate gain and period", func() {
			var samples []dynamo.Sample
			tuner.AddObserver(dynamo.ObserverFunc(func(s dynamo.Sample) { samples = append(samples, s) }))

			res, err := tuner.Tune(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Ku).To(BeNumerically("~", 8, 3))
			Expect(res.Pu).To(BeNumerically(">=", 5*time.Second))
			Expect(res.Pu).To(BeNumerically("<=", 11*time.Second))
			Expect(res.ControlType).To(Equal(autotune.PID))
			Expect(len(res.Peaks)).To(BeNumerically("<=", autotune.MaxPeaks))
			Expect(res.Samples).To(Equal(len(samples)))
			Expect(res.Amplitude).To(BeNumerically("~", 8*10/(math.Pi*res.Ku), 1e-9))
			Expect(res.Elapsed).To(BeNumerically(">", 0))

			ku, err := tuner.UltimateGain()
			Expect(err).NotTo(HaveOccurred())
			Expect(ku).To(Equal(res.Ku))
			pu, err := tuner.UltimatePeriod()
			Expect(err).NotTo(HaveOccurred())
			Expect(pu).To(Equal(res.Pu))

			g, err := autotune.GainsFor(res.Ku, res.Pu, autotune.PID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Gains).To(Equal(g))
			kd, _ := tuner.Kd()
			Expect(kd).To(Equal(g.Kd))
		})

		It("toggles between two absolute levels and restores the start", func() {
			var outputs []float64
			tuner.AddObserver(dynamo.ObserverFunc(func(s dynamo.Sample) {
				outputs = append(outputs, s.Output)
				Expect(s.Setpoint).To(BeNumerically("~", 25, 1e-9))
			}))

			_, err := tuner.Tune(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(outputs).To(ContainElement(15.0))
			Expect(outputs).To(ContainElement(-5.0))
			for _, o := range outputs {
				Expect(o).To(Or(Equal(15.0), Equal(-5.0)))
			}

			out, err := dynamo.ReadOutput(plant)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(5.0))
		})

		It("reports inflections to observers and the log", func() {
			inflections := 0
			tuner.AddObserver(dynamo.ObserverFunc(func(s dynamo.Sample) {
				if s.Inflection {
					inflections++
				}
			}))

			_, err := tuner.Tune(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(inflections).To(BeNumerically(">=", 3))

			debug := 0
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.DebugLevel && e.Message == "inflection" {
					debug++
				}
			}
			Expect(debug).To(Equal(inflections))
			Expect(hook.LastEntry().Message).To(Equal("autotune finished"))
		})

		It("uses the PI rule when asked", func() {
			Expect(tuner.SetControlType(autotune.PI)).To(Succeed())
			res, err := tuner.Tune(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Gains.Kd).To(BeZero())
			Expect(res.Gains.Kp).To(BeNumerically("~", 0.4*res.Ku, 1e-12))
		})
	})

	It("stops on the peak budget when the oscillation never settles", func() {
		p := &scriptedPlant{measure: func(n int) (float64, error) {
			if n < 7 {
				return 50, nil
			}
			k := float64(n - 7)
			amp := math.Pow(1.3, k/20)
			return 50 + amp*math.Sin(2*math.Pi*k/20), nil
		}}
		a := configure(autotune.New(p, dynamo.NewManualClock(t0)))

		res, err := a.Tune(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged).To(BeFalse())
		Expect(a.Detector().Count()).To(BeNumerically(">", autotune.MaxPeaks))
		// The budget runs out as a new HIGH phase opens, so the gap ends at its first sample.
		Expect(res.Pu).To(BeNumerically(">", 0))
		Expect(res.Pu).To(BeNumerically("<=", 5250*time.Millisecond))
		Expect(p.sets[len(p.sets)-1]).To(Equal(0.0))
	})

	Context("validation", func() {
		It("rejects a non-positive output step before touching the plant", func() {
			p := constantPlant(50, 0)
			a := configure(autotune.New(p, clock))
			a.OutputStep = 0

			_, err := a.Tune(context.Background())
			Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
			Expect(p.measures).To(BeZero())
			Expect(p.sets).To(BeEmpty())
		})

		It("rejects a negative noise band", func() {
			a := configure(autotune.New(constantPlant(50, 0), clock))
			a.NoiseBand = -1
			_, err := a.Tune(context.Background())
			Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
		})
	})

	It("refuses to start on an unstable plant", func() {
		p := &scriptedPlant{measure: func(n int) (float64, error) { return 50 + float64(n), nil }}
		a := configure(autotune.New(p, clock))

		_, err := a.Tune(context.Background())
		Expect(err).To(MatchError(dynamo.ErrNotStable))
		Expect(p.sets).To(BeEmpty())
		_, err = a.UltimateGain()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
	})

	It("restores the output when canceled mid-experiment", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		n := 0
		tuner.AddObserver(dynamo.ObserverFunc(func(dynamo.Sample) {
			if n++; n == 20 {
				cancel()
			}
		}))

		_, err := tuner.Tune(ctx)
		Expect(err).To(MatchError(dynamo.ErrCanceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())

		out, _ := dynamo.ReadOutput(plant)
		Expect(out).To(Equal(5.0))
		_, err = tuner.UltimatePeriod()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
	})

	It("propagates plant failures and restores the output", func() {
		fp := &faultyPlant{Plant: plant, measureBudget: 40, setBudget: -1}
		a := configure(autotune.New(fp, clock))

		_, err := a.Tune(context.Background())
		Expect(err).To(MatchError(errBoom))

		out, _ := dynamo.ReadOutput(plant)
		Expect(out).To(Equal(5.0))
	})

	It("reports a failed restore alongside the original error", func() {
		fp := &faultyPlant{Plant: plant, measureBudget: -1, setBudget: 2}
		a := configure(autotune.New(fp, clock))

		_, err := a.Tune(context.Background())
		Expect(err).To(MatchError(errBoom))
		Expect(err.Error()).To(ContainSubstring("set output"))
		Expect(err.Error()).To(ContainSubstring("restore output"))
	})

	It("leaves no result behind when only the restore fails", func() {
		a := configure(autotune.New(&stuckPlant{Plant: plant, refuse: 5}, clock))

		res, err := a.Tune(context.Background())
		Expect(err).To(MatchError(errBoom))
		Expect(err.Error()).To(ContainSubstring("restore output"))
		Expect(res).To(BeNil())

		_, err = a.UltimateGain()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
		_, err = a.UltimatePeriod()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
		_, err = a.Gains()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))

		for _, e := range hook.AllEntries() {
			Expect(e.Message).NotTo(Equal("autotune finished"))
		}
	})
})
