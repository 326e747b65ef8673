// Package simulation bundles the services that a simulation run needs: the
// engine, the output database, the task tracer and the monitor.
package simulation

import (
	"github.com/sarchlab/linecache/datarecording"
	"github.com/sarchlab/linecache/monitoring"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id     string
	engine sim.Engine

	dataRecorder *datarecording.SQLiteWriter
	monitor      *monitoring.Monitor
	visTracer    *tracing.DBTracer

	components    []sim.Component
	compNameIndex map[string]int
	ports         []sim.Port
	portNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// OutputFile returns the database file that the simulation writes to.
func (s *Simulation) OutputFile() string {
	return s.dataRecorder.Filename()
}

// GetMonitor returns the monitor used in the simulation. It is nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetVisTracer returns the tracer used in the simulation. It is nil if
// tracing is disabled.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// RegisterComponent registers a component with the simulation. Registered
// components are traced and monitored.
func (s *Simulation) RegisterComponent(c sim.Component) {
	s.addComponent(c)

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// RegisterCache registers a cache. On top of what RegisterComponent does,
// the cache can be inspected and flushed from the monitor.
func (s *Simulation) RegisterCache(c monitoring.CacheInspector) {
	s.addComponent(c)

	if s.monitor != nil {
		s.monitor.RegisterCache(c)
	}
}

// MonitorControlPort returns the port that the monitor sends cache control
// requests from, or nil if monitoring is disabled.
func (s *Simulation) MonitorControlPort() sim.Port {
	if s.monitor == nil {
		return nil
	}

	return s.monitor.ControlPort()
}

func (s *Simulation) addComponent(c sim.Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}

	if s.visTracer != nil {
		tracing.CollectTrace(c, s.visTracer)
	}
}

func (s *Simulation) registerPort(p sim.Port) {
	portName := p.Name()
	if _, found := s.portNameIndex[portName]; found {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// GetPortByName returns the port with the given name, or nil.
func (s *Simulation) GetPortByName(name string) sim.Port {
	i, found := s.portNameIndex[name]
	if !found {
		return nil
	}

	return s.ports[i]
}

// Terminate flushes the traces and closes the output database.
func (s *Simulation) Terminate() {
	if s.visTracer != nil {
		s.visTracer.Terminate()
	}

	s.dataRecorder.Close()
}
