package autotune_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/dynamo"
)

var _ = Describe("Autotuner", func() {
	var (
		tuner *autotune.Autotuner
		hook  *test.Hook
	)

	BeforeEach(func() {
		tuner = autotune.New(constantPlant(50, 0), dynamo.NewManualClock(t0))
		var logger *logrus.Logger
		logger, hook = test.NewNullLogger()
		tuner.Logger = logger
	})

	It("starts with the documented defaults", func() {
		Expect(tuner.OutputStep).To(Equal(200.0))
		Expect(tuner.NoiseBand).To(Equal(0.5))
		Expect(tuner.ControlType()).To(Equal(autotune.PID))
		Expect(tuner.Lookback()).To(Equal(10 * time.Second))
		Expect(tuner.SampleTime()).To(Equal(250 * time.Millisecond))
		Expect(tuner.LookbackSamples()).To(Equal(40))
		Expect(hook.Entries).To(BeEmpty())
	})

	DescribeTable("lookback",
		func(in time.Duration, sample time.Duration, samples int) {
			tuner.SetLookback(in)
			Expect(tuner.SampleTime()).To(Equal(sample))
			Expect(tuner.LookbackSamples()).To(Equal(samples))
			Expect(tuner.Lookback()).To(Equal(sample * time.Duration(samples)))
		},
		Entry("zero is raised to one second", time.Duration(0), 250*time.Millisecond, 4),
		Entry("sub-second part counts in whole samples", 1500*time.Millisecond, 250*time.Millisecond, 6),
		Entry("partial samples are dropped", 1600*time.Millisecond, 250*time.Millisecond, 6),
		Entry("ten seconds", 10*time.Second, 250*time.Millisecond, 40),
		Entry("just under the limit", 24900*time.Millisecond, 250*time.Millisecond, 99),
		Entry("at the limit", 25*time.Second, 250*time.Millisecond, 100),
		Entry("forty three seconds", 43*time.Second, 430*time.Millisecond, 100),
		Entry("forty three and a half seconds", 43500*time.Millisecond, 435*time.Millisecond, 100),
		Entry("one hundred seconds", 100*time.Second, time.Second, 100),
	)

	DescribeTable("lookback round trip",
		func(in, want time.Duration) {
			tuner.SetLookback(in)
			Expect(tuner.Lookback()).To(Equal(want))

			tuner.SetLookback(tuner.Lookback())
			Expect(tuner.Lookback()).To(Equal(want))
		},
		Entry("0s clamps to 1s", time.Duration(0), time.Second),
		Entry("10s", 10*time.Second, 10*time.Second),
		Entry("43s", 43*time.Second, 43*time.Second),
		Entry("100s", 100*time.Second, 100*time.Second),
	)

	It("rejects an unknown control type and keeps the old one", func() {
		Expect(tuner.SetControlType(autotune.ControlType(3))).To(MatchError(dynamo.ErrInvalidArgument))
		Expect(tuner.ControlType()).To(Equal(autotune.PID))

		Expect(tuner.SetControlType(autotune.PI)).To(Succeed())
		Expect(tuner.ControlType()).To(Equal(autotune.PI))
	})

	It("has no results before a tune", func() {
		_, err := tuner.UltimateGain()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
		_, err = tuner.UltimatePeriod()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
		_, err = tuner.Kp()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
		_, err = tuner.Ki()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
		_, err = tuner.Kd()
		Expect(err).To(MatchError(dynamo.ErrUnavailable))
	})

	It("falls back to the system clock", func() {
		Expect(autotune.New(constantPlant(1, 0), nil).Detector()).NotTo(BeNil())
	})
})
