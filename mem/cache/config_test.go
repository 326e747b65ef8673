package cache

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	It("should accept the default configuration", func() {
		config, err := DefaultConfig().Validate()

		Expect(err).ToNot(HaveOccurred())
		Expect(config.NumSets()).To(Equal(64))
		Expect(config.BeatsPerLine()).To(Equal(16))
	})

	It("should make NumWays 0 fully associative", func() {
		c := DefaultConfig()
		c.NumWays = 0

		config, err := c.Validate()

		Expect(err).ToNot(HaveOccurred())
		Expect(config.NumWays).To(Equal(256))
		Expect(config.NumSets()).To(Equal(1))
	})

	DescribeTable("invalid configurations",
		func(mutate func(c *Config), field string, sentinel error) {
			c := DefaultConfig()
			mutate(&c)

			_, err := c.Validate()

			Expect(errors.Is(err, sentinel)).To(BeTrue())

			var configErr *ConfigError
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(configErr.Field).To(Equal(field))
		},
		Entry("line width",
			func(c *Config) { c.LineByteWidth = 48 },
			"LineByteWidth", ErrNotPowerOfTwo),
		Entry("access width",
			func(c *Config) { c.AccessByteWidth = 3 },
			"AccessByteWidth", ErrNotPowerOfTwo),
		Entry("line wider than 16 accesses",
			func(c *Config) { c.AccessByteWidth = 2 },
			"LineByteWidth", ErrLineRatio),
		Entry("access wider than line",
			func(c *Config) { c.AccessByteWidth = 128 },
			"LineByteWidth", ErrLineRatio),
		Entry("size not a multiple of the line",
			func(c *Config) { c.ByteSize = 1000 },
			"ByteSize", ErrCapacity),
		Entry("lines not a multiple of the ways",
			func(c *Config) { c.NumWays = 3 },
			"ByteSize", ErrCapacity),
		Entry("set count",
			func(c *Config) { c.ByteSize = 64 * 4 * 3 },
			"NumSets", ErrNotPowerOfTwo),
		Entry("policy",
			func(c *Config) { c.Policy = Policy(42) },
			"Policy", ErrPolicy),
		Entry("access mode",
			func(c *Config) { c.ReadOnly, c.WriteOnly = true, true },
			"WriteOnly", ErrAccessMode),
		Entry("hit latency",
			func(c *Config) { c.HitLatency = 0 },
			"HitLatency", ErrOutOfRange),
		Entry("MSHR size",
			func(c *Config) { c.NumMSHREntry = 0 },
			"NumMSHREntry", ErrOutOfRange),
	)

	It("should fail to build a cache with an invalid configuration", func() {
		c, err := MakeBuilder().WithLineByteWidth(24).Build("Cache")

		Expect(c).To(BeNil())
		Expect(errors.Is(err, ErrNotPowerOfTwo)).To(BeTrue())
	})

	It("should parse policy names", func() {
		p, err := ParsePolicy("RANDOM")
		Expect(err).ToNot(HaveOccurred())
		Expect(p).To(Equal(PolicyRandom))

		_, err = ParsePolicy("MRU")
		Expect(errors.Is(err, ErrPolicy)).To(BeTrue())
	})
})
