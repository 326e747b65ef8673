package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/linecache/mem/cache"
	"github.com/sarchlab/linecache/mem/idealmemcontroller"
	"github.com/sarchlab/linecache/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {
	// Do nothing
}

func (c *sampleComponent) NotifyPortFree(_ sim.Port) {
	// Do nothing
}

func newSampleComponent(name string) *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase(name),
		buffer:        sim.NewBuffer(name+".Buf", 10),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, 2, name+".Port1"))

	return c
}

func get(router http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	return rec
}

func post(router http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
		m.RegisterEngine(sim.NewSerialEngine())
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent("Comp")
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should list components", func() {
		m.RegisterComponent(newSampleComponent("A"))
		m.RegisterComponent(newSampleComponent("B"))

		rec := get(m.Router(), "/api/list_components")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"A", "B"}))
	})

	It("should return 404 for unknown components", func() {
		rec := get(m.Router(), "/api/component/Nobody")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	Context("buffers", func() {
		var full, half *sampleComponent

		BeforeEach(func() {
			full = newSampleComponent("Full")
			half = newSampleComponent("Half")

			for i := 0; i < 10; i++ {
				full.buffer.Push(i)
			}

			for i := 0; i < 5; i++ {
				half.buffer.Push(i)
			}

			m.RegisterComponent(half)
			m.RegisterComponent(full)
		})

		It("should sort by percentage", func() {
			rec := get(m.Router(), "/api/hangdetector/buffers?limit=2")

			var levels []bufferLevel
			Expect(json.Unmarshal(rec.Body.Bytes(), &levels)).To(Succeed())
			Expect(levels).To(HaveLen(2))
			Expect(levels[0]).To(Equal(bufferLevel{
				Buffer: "Full.Buf", Level: 10, Cap: 10,
			}))
			Expect(levels[1].Buffer).To(Equal("Half.Buf"))
		})

		It("should return the rest after the offset when there is no limit",
			func() {
				buffers := m.sortAndSelectBuffers("level", 0, 1)

				Expect(buffers).To(HaveLen(len(m.buffers) - 1))
				Expect(buffers[0].Name()).To(Equal("Half.Buf"))
			})

		It("should return nothing when the offset is too large", func() {
			Expect(m.sortAndSelectBuffers("level", 2, 100)).To(BeEmpty())
		})

		It("should reject unknown sort methods", func() {
			rec := get(m.Router(), "/api/hangdetector/buffers?sort=name")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("Requests", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		rec := get(m.Router(), "/api/progress")
		Expect(rec.Body.String()).To(ContainSubstring(`"name":"Requests"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"in_progress":1`))
		Expect(rec.Body.String()).To(ContainSubstring(`"finished":2`))

		m.CompleteProgressBar(bar)

		Expect(m.progressBars).To(BeEmpty())
	})

	It("should not open a browser before the server starts", func() {
		Expect(m.OpenInBrowser()).NotTo(Succeed())
	})
})

var _ = Describe("Cache endpoints", func() {
	var (
		engine  sim.Engine
		m       *Monitor
		c       *cache.Comp
		memCtrl *idealmemcontroller.Comp
		agent   *memaccessagent.MemAccessAgent
		router  http.Handler
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()

		memCtrl = idealmemcontroller.MakeBuilder().
			WithEngine(engine).
			WithLatency(10).
			WithNewStorage(1 * mem.MB).
			Build("MemCtrl")

		var err error
		c, err = cache.MakeBuilder().
			WithEngine(engine).
			WithByteSize(256).
			WithLineByteWidth(16).
			WithAccessByteWidth(4).
			WithNumWays(4).
			WithLowModule(memCtrl.TopPort().AsRemote()).
			WithBackingStore(memCtrl).
			Build("Cache")
		Expect(err).NotTo(HaveOccurred())

		agent = memaccessagent.MakeBuilder().
			WithEngine(engine).
			WithLowModule(c.TopPort().AsRemote()).
			Build("Agent")

		m = NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterCache(c)

		conn := sim.NewDirectConnection("Conn", engine, 1*sim.GHz)
		conn.PlugIn(agent.MemPort())
		conn.PlugIn(c.TopPort())
		conn.PlugIn(c.BottomPort())
		conn.PlugIn(c.ControlPort())
		conn.PlugIn(memCtrl.TopPort())
		conn.PlugIn(m.ControlPort())

		router = m.Router()
	})

	It("should dump the configuration", func() {
		rec := get(router, "/api/cache/Cache/config")

		Expect(rec.Code).To(Equal(http.StatusOK))

		fields := map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &fields)).To(Succeed())
		Expect(fields["ByteSize"]).To(BeNumerically("==", 256))
		Expect(fields["NumWays"]).To(BeNumerically("==", 4))
		Expect(fields["NumSets"]).To(BeNumerically("==", 4))
		Expect(fields["Policy"]).To(Equal(c.DumpConfig().Policy.String()))
	})

	It("should return 404 for unknown caches", func() {
		Expect(get(router, "/api/cache/L2/config").Code).
			To(Equal(http.StatusNotFound))
		Expect(post(router, "/api/cache/L2/flush").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should dump the profile", func() {
		agent.Issue(mem.MakeAccessReqBuilder().
			WithKind(mem.KindRead).
			WithAddress(0x40).
			WithByteSize(4).
			Build())
		Expect(engine.Run()).To(Succeed())

		rec := get(router, "/api/cache/Cache/profile")

		fields := map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &fields)).To(Succeed())
		Expect(fields["Reads"]).To(BeNumerically("==", 1))
		Expect(fields["ReadMisses"]).To(BeNumerically("==", 1))
		Expect(fields["HitRate"]).To(BeNumerically("==", 0))
	})

	It("should flush through the engine", func() {
		agent.Issue(mem.MakeAccessReqBuilder().
			WithKind(mem.KindWrite).
			WithAddress(0x40).
			WithByteSize(4).
			WithData([]byte{1, 2, 3, 4}).
			Build())
		Expect(engine.Run()).To(Succeed())

		Expect(get(router, "/api/cache/Cache/flush").Code).
			To(Equal(http.StatusNotFound))

		rec := post(router, "/api/cache/Cache/flush")
		Expect(rec.Code).To(Equal(http.StatusAccepted))

		issued := FlushStatus{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &issued)).To(Succeed())
		Expect(issued.Cache).To(Equal("Cache"))
		Expect(issued.Done).To(BeFalse())

		Expect(engine.Run()).To(Succeed())

		rec = get(router, "/api/cache/Cache/flush")

		status := FlushStatus{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
		Expect(status.ID).To(Equal(issued.ID))
		Expect(status.Done).To(BeTrue())
		Expect(status.NumFlushed).To(Equal(1))

		data, err := memCtrl.Peek(0x40, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{1, 2, 3, 4}))
	})
})
