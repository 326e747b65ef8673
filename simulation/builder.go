package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/linecache/datarecording"
	"github.com/sarchlab/linecache/monitoring"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

// Builder configures a Simulation. By default the monitor is served on a
// random port, tracing is off, and results go to linecache_sim_<id>.sqlite3.
type Builder struct {
	noMonitor bool
	port      int
	trace     bool
	output    string
}

// MakeBuilder returns a Builder with the default settings.
func MakeBuilder() Builder {
	return Builder{}
}

// WithoutMonitoring disables the monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.noMonitor = true
	return b
}

// WithMonitorPort serves the monitor on a fixed port.
func (b Builder) WithMonitorPort(port int) Builder {
	b.port = port
	return b
}

// WithTracing records the tasks of registered components into the output
// database.
func (b Builder) WithTracing() Builder {
	b.trace = true
	return b
}

// WithOutputFileName names the output database. The ".sqlite3" suffix is
// added automatically.
func (b Builder) WithOutputFileName(name string) Builder {
	b.output = name
	return b
}

// Build creates the simulation and starts the monitoring server if enabled.
// It panics if a monitor port is given with monitoring disabled.
func (b Builder) Build() *Simulation {
	if b.noMonitor && b.port != 0 {
		panic("simulation: monitor port given without monitoring")
	}

	id := xid.New().String()
	b.output = b.outputName(id)

	engine := sim.NewSerialEngine()
	s := &Simulation{
		id:            id,
		engine:        engine,
		dataRecorder:  datarecording.New(b.output),
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}

	if b.trace {
		s.visTracer = tracing.NewDBTracer(engine, s.dataRecorder)
	}

	if !b.noMonitor {
		s.monitor = monitoring.NewMonitor()
		if b.port > 0 {
			s.monitor.WithPortNumber(b.port)
		}

		s.monitor.RegisterEngine(engine)
		s.monitor.StartServer()
	}

	return s
}

func (b Builder) outputName(id string) string {
	if b.output != "" {
		return b.output
	}

	return "linecache_sim_" + id
}
