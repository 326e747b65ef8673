package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should convert between time and cycles", func() {
		Expect((1 * GHz).Period()).To(BeNumerically("==", 1e-9))
		Expect((2 * GHz).Cycle(21e-9)).To(Equal(uint64(42)))
		Expect(func() { Freq(0).Period() }).To(Panic())
	})

	DescribeTable("ThisTick",
		func(f Freq, now, want float64) {
			Expect(f.ThisTick(VTimeInSec(now))).
				To(BeNumerically("~", want, 1e-12))
		},
		Entry("on an edge", 1*Hz, 1.0, 1.0),
		Entry("between edges", 1*GHz, 5.2e-9, 6e-9),
		Entry("noise below an edge", 1*GHz, 7.00000001e-9, 7e-9),
	)

	DescribeTable("NextTick",
		func(f Freq, now, want float64) {
			Expect(f.NextTick(VTimeInSec(now))).
				To(BeNumerically("~", want, 1e-12))
		},
		Entry("on an edge", 1*GHz, 16.0, 16.000000001),
		Entry("small time", 1*GHz, 31e-9, 32e-9),
		Entry("large time", 1*GHz, 102.000000001, 102.000000002),
		Entry("between edges", 1*GHz, 102.0000000011, 102.000000002),
		Entry("slow clock", 500*MHz, 3e-9, 4e-9),
	)

	DescribeTable("NCyclesLater",
		func(n int, now, want float64) {
			Expect((1 * GHz).NCyclesLater(n, VTimeInSec(now))).
				To(BeNumerically("~", want, 1e-12))
		},
		Entry("from an edge", 12, 102.000000001, 102.000000013),
		Entry("from between edges", 12, 102.0000000011, 102.000000014),
		Entry("zero cycles", 0, 4e-9, 4e-9),
	)
})
