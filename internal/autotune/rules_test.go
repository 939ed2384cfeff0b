package autotune_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/dynamo"
)

var _ = Describe("GainsFor", func() {
	It("applies the PID rule", func() {
		g, err := autotune.GainsFor(10, 4*time.Second, autotune.PID)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Kp).To(BeNumerically("~", 6, 1e-12))
		Expect(g.Ki).To(BeNumerically("~", 3, 1e-12))
		Expect(g.Kd).To(BeNumerically("~", 3, 1e-12))
	})

	It("applies the PI rule", func() {
		g, err := autotune.GainsFor(10, 4*time.Second, autotune.PI)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Kp).To(BeNumerically("~", 4, 1e-12))
		Expect(g.Ki).To(BeNumerically("~", 1.2, 1e-12))
		Expect(g.Kd).To(BeZero())
	})

	It("uses fractional seconds", func() {
		g, err := autotune.GainsFor(2, 500*time.Millisecond, autotune.PID)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Ki).To(BeNumerically("~", 4.8, 1e-12))
		Expect(g.Kd).To(BeNumerically("~", 0.075, 1e-12))
	})

	It("rejects an unknown control type", func() {
		_, err := autotune.GainsFor(10, time.Second, autotune.ControlType(7))
		Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
	})

	It("rejects a non-positive period", func() {
		_, err := autotune.GainsFor(10, 0, autotune.PI)
		Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
	})
})

var _ = Describe("ControlType", func() {
	DescribeTable("parsing",
		func(in string, want autotune.ControlType) {
			ct, err := autotune.ParseControlType(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(ct).To(Equal(want))
			Expect(ct.String()).To(Equal(want.String()))
		},
		Entry("pi", "pi", autotune.PI),
		Entry("pid", "pid", autotune.PID),
		Entry("upper case", "PID", autotune.PID),
		Entry("padded", " pi ", autotune.PI),
	)

	It("rejects anything else", func() {
		_, err := autotune.ParseControlType("pd")
		Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
	})
})
