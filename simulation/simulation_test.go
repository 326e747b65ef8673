package simulation

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/linecache/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Simulation", func() {
	var (
		mockCtrl   *gomock.Controller
		simulation *Simulation
		comp       *MockComponent
		port       *MockPort
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		simulation = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(filepath.Join(GinkgoT().TempDir(), "sim")).
			Build()

		comp = NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("comp").AnyTimes()

		port = NewMockPort(mockCtrl)
		port.EXPECT().Name().Return("port").AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()

		simulation.Terminate()
	})

	It("should write to the named output file", func() {
		Expect(simulation.OutputFile()).To(HaveSuffix("sim.sqlite3"))
		Expect(simulation.OutputFile()).To(BeAnExistingFile())
	})

	It("should name the output after the simulation by default", func() {
		Expect(MakeBuilder().outputName("abc")).To(Equal("linecache_sim_abc"))
		Expect(MakeBuilder().WithOutputFileName("run").outputName("abc")).
			To(Equal("run"))
	})

	It("should register a component", func() {
		comp.EXPECT().Ports().Return([]sim.Port{port}).AnyTimes()

		simulation.RegisterComponent(comp)

		Expect(simulation.GetComponentByName("comp")).To(Equal(comp))
		Expect(simulation.GetPortByName("port")).To(Equal(port))
		Expect(simulation.GetComponentByName("other")).To(BeNil())
	})

	It("should return all registered components", func() {
		comp.EXPECT().Ports().Return([]sim.Port{port}).AnyTimes()

		simulation.RegisterComponent(comp)

		comps := simulation.Components()
		Expect(comps).To(HaveLen(1))
		Expect(comps[0]).To(Equal(comp))
	})

	It("should refuse to register a component twice", func() {
		comp.EXPECT().Ports().Return(nil).AnyTimes()

		simulation.RegisterComponent(comp)

		Expect(func() { simulation.RegisterComponent(comp) }).To(Panic())
	})

	It("should not have a monitor when monitoring is disabled", func() {
		Expect(simulation.GetMonitor()).To(BeNil())
		Expect(simulation.MonitorControlPort()).To(BeNil())
	})

	It("should refuse a monitor port without monitoring", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	Context("with tracing", func() {
		var traced *Simulation

		BeforeEach(func() {
			traced = MakeBuilder().
				WithoutMonitoring().
				WithTracing().
				WithOutputFileName(
					filepath.Join(GinkgoT().TempDir(), "traced")).
				Build()
		})

		AfterEach(func() {
			traced.Terminate()
		})

		It("should attach the tracer to registered components", func() {
			comp.EXPECT().Ports().Return(nil).AnyTimes()
			comp.EXPECT().Hooks().Return(nil)
			comp.EXPECT().AcceptHook(gomock.Any())

			traced.RegisterComponent(comp)

			Expect(traced.GetVisTracer()).NotTo(BeNil())
			Expect(traced.GetDataRecorder().ListTables()).
				To(ContainElements("trace", "trace_step"))
		})
	})
})
