package tracing

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/linecache/datarecording"
	"github.com/sarchlab/linecache/sim"
)

type tracedDomain struct {
	sim.HookableBase
}

func (d *tracedDomain) Name() string {
	return "Domain"
}

// hooksOnly exposes nothing beyond sim.Named and sim.Hookable, like a
// sim.Component seen through its interface.
type hooksOnly struct {
	sim.Hookable
}

func (hooksOnly) Name() string {
	return "Component"
}

var _ = Describe("Tracers", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		domain     *tracedDomain
		now        sim.VTimeInSec
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		timeTeller.EXPECT().CurrentTime().
			DoAndReturn(func() sim.VTimeInSec { return now }).
			AnyTimes()
		domain = &tracedDomain{}
		now = 0
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should count steps and tasks with steps", func() {
		tracer := NewStepCountTracer(func(Task) bool { return true })
		CollectTrace(domain, tracer)

		StartTask("1", "", domain, "req_in", "read", nil)
		StartTask("2", "", domain, "req_in", "read", nil)
		AddTaskStep("1", domain, "read-miss")
		AddTaskStep("1", domain, "read-miss")
		AddTaskStep("2", domain, "read-hit")
		EndTask("1", domain)
		EndTask("2", domain)

		Expect(tracer.GetStepNames()).To(ConsistOf("read-miss", "read-hit"))
		Expect(tracer.GetStepCount("read-miss")).To(Equal(uint64(2)))
		Expect(tracer.GetTaskCount("read-miss")).To(Equal(uint64(1)))
		Expect(tracer.GetTaskCount("read-hit")).To(Equal(uint64(1)))
	})

	It("should attach to any named hookable", func() {
		target := hooksOnly{Hookable: &sim.HookableBase{}}
		tracer := NewStepCountTracer(func(Task) bool { return true })

		CollectTrace(target, tracer)

		Expect(target.NumHooks()).To(Equal(1))
		Expect(func() { CollectTrace(target, tracer) }).To(Panic())
	})

	It("should not collect the same tracer twice", func() {
		tracer := NewStepCountTracer(func(Task) bool { return true })
		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})

	It("should sum and average task time", func() {
		tracer := NewTotalTimeTracer(timeTeller,
			func(t Task) bool { return t.Kind == "req_in" })
		CollectTrace(domain, tracer)

		now = 1
		StartTask("1", "", domain, "req_in", "read", nil)
		StartTask("x", "", domain, "req_out", "read", nil)
		now = 3
		StartTask("2", "", domain, "req_in", "read", nil)
		EndTask("1", domain)
		now = 7
		EndTask("2", domain)
		EndTask("x", domain)

		Expect(tracer.TaskCount()).To(Equal(uint64(2)))
		Expect(tracer.TotalTime()).To(BeNumerically("~", 6, 1e-9))
		Expect(tracer.AverageTime()).To(BeNumerically("~", 3, 1e-9))
	})

	It("should write completed tasks to the database", func() {
		recorder := datarecording.NewSQLiteWriter(
			filepath.Join(GinkgoT().TempDir(), "trace"))
		recorder.Init()
		defer recorder.Close()

		tracer := NewDBTracer(timeTeller, recorder)
		CollectTrace(domain, tracer)

		now = 2
		StartTask("1", "", domain, "req_in", "read", nil)
		AddTaskStep("1", domain, "read-hit")
		StartTask("2", "", domain, "req_in", "write", nil)
		now = 4
		EndTask("1", domain)
		tracer.Terminate()

		var count int
		Expect(recorder.QueryRow("SELECT COUNT(*) FROM trace").
			Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))

		var what string
		var start, end float64
		Expect(recorder.QueryRow(
			"SELECT What, StartTime, EndTime FROM trace WHERE ID = '1'").
			Scan(&what, &start, &end)).To(Succeed())
		Expect(what).To(Equal("read"))
		Expect(start).To(Equal(2.0))
		Expect(end).To(Equal(4.0))

		Expect(recorder.QueryRow("SELECT COUNT(*) FROM trace_step").
			Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})
	It("should skip tasks outside the recording window", func() {
		recorder := datarecording.NewSQLiteWriter(
			filepath.Join(GinkgoT().TempDir(), "window"))
		recorder.Init()
		defer recorder.Close()

		tracer := NewDBTracer(timeTeller, recorder)
		tracer.SetTimeRange(5, 10)
		CollectTrace(domain, tracer)

		now = 1
		StartTask("early", "", domain, "req_in", "read", nil)
		now = 3
		EndTask("early", domain)
		StartTask("inside", "", domain, "req_in", "write", nil)
		now = 6
		EndTask("inside", domain)
		now = 11
		StartTask("late", "", domain, "req_in", "read", nil)
		now = 12
		EndTask("late", domain)
		tracer.Terminate()

		var id string
		Expect(recorder.QueryRow("SELECT ID FROM trace").Scan(&id)).
			To(Succeed())
		Expect(id).To(Equal("inside"))
	})
})
