package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

var _ = Describe("Profile", func() {
	It("should compute the hit rate", func() {
		p := Profile{ReadHits: 3, WriteHits: 1, ReadMisses: 2, WriteMisses: 2}

		Expect(p.HitRate()).To(BeNumerically("~", 0.5))
		Expect(Profile{}.HitRate()).To(Equal(0.0))
	})
})

var _ = Describe("ProfileRecorder", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		engine   sim.Engine
		c        *Comp
		r        *ProfileRecorder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)
		engine = sim.NewSerialEngine()

		var err error
		c, err = smallCache().
			WithEngine(engine).
			WithLowModule("MemCtrl.TopPort").
			Build("Cache")
		Expect(err).ToNot(HaveOccurred())

		recorder.EXPECT().CreateTable("cache_profile", profileEntry{})
		r = NewProfileRecorder(c, engine, recorder, 2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should attach to the cache", func() {
		Expect(c.NumHooks()).To(Equal(1))
	})

	It("should record every interval of completed tasks", func() {
		c.profile.ReadHits = 5

		recorder.EXPECT().
			InsertData("cache_profile", gomock.Any()).
			Do(func(_ string, entry any) {
				e := entry.(profileEntry)
				Expect(e.Cache).To(Equal("Cache"))
				Expect(e.ReadHits).To(Equal(uint64(5)))
			})

		r.Func(sim.HookCtx{Pos: tracing.HookPosTaskEnd})
		r.Func(sim.HookCtx{Pos: tracing.HookPosTaskStart})
		r.Func(sim.HookCtx{Pos: tracing.HookPosTaskEnd})
	})

	It("should record and flush when the simulation ends", func() {
		recorder.EXPECT().InsertData("cache_profile", gomock.Any())
		recorder.EXPECT().Flush()

		engine.Finished()
	})
})
