package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/linecache/mem/cache"
	"github.com/sarchlab/linecache/mem/idealmemcontroller"
	"github.com/sarchlab/linecache/monitoring"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/simulation"
	"github.com/sarchlab/linecache/tracing"
)

// flusher sends a single flush request to the cache after the traffic ends.
type flusher struct {
	*sim.TickingComponent

	port sim.Port
	req  *cache.FlushReq
	rsp  *cache.FlushRsp
}

func newFlusher(engine sim.Engine) *flusher {
	f := &flusher{}
	f.TickingComponent = sim.NewTickingComponent("Flusher", engine, 1*sim.GHz, f)
	f.port = sim.NewPort(f, 1, 1, "Flusher.ControlPort")

	return f
}

func (f *flusher) flush(dst sim.RemotePort) {
	f.req = cache.FlushReqBuilder{}.
		WithSrc(f.port.AsRemote()).
		WithDst(dst).
		InvalidateAll().
		Build()
	f.TickLater()
}

func (f *flusher) Tick() bool {
	if msg := f.port.RetrieveIncoming(); msg != nil {
		f.rsp = msg.(*cache.FlushRsp)
		return true
	}

	if f.req != nil && f.port.Send(f.req) == nil {
		f.req = nil
		return true
	}

	return false
}

// progressHook moves a progress bar whenever the cache finishes an access.
type progressHook struct {
	bar     *monitoring.ProgressBar
	started map[string]bool
}

func newProgressHook(bar *monitoring.ProgressBar) *progressHook {
	return &progressHook{bar: bar, started: make(map[string]bool)}
}

func (h *progressHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(tracing.Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case tracing.HookPosTaskStart:
		if isIncomingReq(task) && task.What == "*mem.AccessReq" {
			h.started[task.ID] = true
			h.bar.IncrementInProgress(1)
		}
	case tracing.HookPosTaskEnd:
		if h.started[task.ID] {
			delete(h.started, task.ID)
			h.bar.MoveInProgressToFinished(1)
		}
	}
}

func isIncomingReq(t tracing.Task) bool {
	return t.Kind == "req_in"
}

type report struct {
	time       sim.VTimeInSec
	profile    cache.Profile
	steps      map[string]uint64
	avgLatency sim.VTimeInSec
	numFlushed int
	numErrors  int
	mismatches []string
	output     string
}

func (r *report) passed() bool {
	return len(r.mismatches) == 0 && r.numErrors == 0
}

func (r *report) print(w io.Writer) {
	p := r.profile

	fmt.Fprintf(w, "simulated time: %.9fs\n", r.time)
	fmt.Fprintf(w, "reads: %d, writes: %d, hit rate: %.4f\n",
		p.Reads, p.Writes, p.HitRate())
	fmt.Fprintf(w, "read hits: %d, read misses: %d\n", p.ReadHits, p.ReadMisses)
	fmt.Fprintf(w, "write hits: %d, write misses: %d\n",
		p.WriteHits, p.WriteMisses)
	fmt.Fprintf(w, "bypasses: %d, evictions: %d, write-backs: %d, fills: %d\n",
		p.Bypasses, p.Evictions, p.WriteBacks, p.Fills)
	fmt.Fprintf(w, "average request latency: %.9fs\n", r.avgLatency)
	fmt.Fprintf(w, "lines flushed at the end: %d\n", r.numFlushed)

	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "step %s: %d\n", name, r.steps[name])
	}

	fmt.Fprintf(w, "recorded to %s\n", r.output)

	if r.numErrors > 0 {
		fmt.Fprintf(w, "%d error responses\n", r.numErrors)
	}

	for _, m := range r.mismatches {
		fmt.Fprintln(w, m)
	}

	if r.passed() {
		fmt.Fprintln(w, "PASS")
	} else {
		fmt.Fprintln(w, "FAIL")
	}
}

func (o runOptions) cacheBuilder() (cache.Builder, error) {
	policy, err := cache.ParsePolicy(o.policy)
	if err != nil {
		return cache.Builder{}, err
	}

	return cache.MakeBuilder().
		WithByteSize(o.byteSize).
		WithLineByteWidth(o.lineByteWidth).
		WithAccessByteWidth(o.accessByteWidth).
		WithNumWays(o.numWays).
		WithPolicy(policy).
		WithRandomSeed(o.randomSeed).
		WithReadAllocate(!o.noReadAllocate).
		WithWriteAllocate(!o.noWriteAllocate).
		WithWriteBack(!o.writeThrough).
		WithHitLatency(o.hitLatency).
		WithNumMSHREntry(o.numMSHREntry), nil
}

func (o runOptions) simulation() *simulation.Simulation {
	b := simulation.MakeBuilder().WithOutputFileName(o.output)

	if o.monitor {
		b = b.WithMonitorPort(o.monitorPort)
	} else {
		b = b.WithoutMonitoring()
	}

	if o.trace {
		b = b.WithTracing()
	}

	return b.Build()
}

func memCapacity(maxAddress uint64) uint64 {
	capacity := uint64(1 * mem.MB)
	for capacity < maxAddress {
		capacity *= 2
	}

	return capacity
}

// runAcceptance runs the traffic, flushes the cache and compares the memory
// with the values the traffic generator wrote.
func runAcceptance(o runOptions) (*report, error) {
	cacheBuilder, err := o.cacheBuilder()
	if err != nil {
		return nil, err
	}

	s := o.simulation()
	defer s.Terminate()

	engine := s.GetEngine()

	memCtrl := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithLatency(o.memLatency).
		WithNewStorage(memCapacity(o.maxAddress)).
		Build("MemCtrl")

	c, err := cacheBuilder.
		WithEngine(engine).
		WithLowModule(memCtrl.TopPort().AsRemote()).
		WithBackingStore(memCtrl).
		Build("Cache")
	if err != nil {
		return nil, err
	}

	agent := memaccessagent.MakeBuilder().
		WithEngine(engine).
		WithLowModule(c.TopPort().AsRemote()).
		WithMaxAddress(o.maxAddress).
		WithReadLeft(o.numReads).
		WithWriteLeft(o.numWrites).
		WithSeed(o.seed).
		Build("Agent")

	f := newFlusher(engine)

	s.RegisterComponent(agent)
	s.RegisterCache(c)
	s.RegisterComponent(memCtrl)

	conn := sim.NewDirectConnection("Conn", engine, 1*sim.GHz)
	conn.PlugIn(agent.MemPort())
	conn.PlugIn(c.TopPort())
	conn.PlugIn(c.BottomPort())
	conn.PlugIn(memCtrl.TopPort())

	controlConn := sim.NewDirectConnection("ControlConn", engine, 1*sim.GHz)
	controlConn.PlugIn(c.ControlPort())
	controlConn.PlugIn(f.port)

	if port := s.MonitorControlPort(); port != nil {
		controlConn.PlugIn(port)
	}

	if o.profileInterval > 0 {
		cache.NewProfileRecorder(c, engine, s.GetDataRecorder(), o.profileInterval)
	}

	if o.msgLog != "" {
		closeLog, err := logPortMsgs(o.msgLog, engine, c.Ports())
		if err != nil {
			return nil, err
		}
		defer closeLog()
	}

	steps := tracing.NewStepCountTracer(isIncomingReq)
	tracing.CollectTrace(c, steps)

	latency := tracing.NewTotalTimeTracer(engine, isIncomingReq)
	tracing.CollectTrace(c, latency)

	if m := s.GetMonitor(); m != nil {
		bar := m.CreateProgressBar("Requests", uint64(o.numReads+o.numWrites))
		defer m.CompleteProgressBar(bar)

		c.AcceptHook(newProgressHook(bar))

		if o.openBrowser {
			if err := m.OpenInBrowser(); err != nil {
				return nil, err
			}
		}
	}

	agent.TickLater()

	if err := engine.Run(); err != nil {
		return nil, err
	}

	f.flush(c.ControlPort().AsRemote())

	if err := engine.Run(); err != nil {
		return nil, err
	}

	engine.Finished()

	r := &report{
		time:       engine.CurrentTime(),
		profile:    c.DumpProfile(),
		steps:      make(map[string]uint64),
		avgLatency: latency.AverageTime(),
		numErrors:  len(agent.ErrorRsps),
		mismatches: append([]string(nil), agent.Mismatches...),
		output:     s.OutputFile(),
	}

	for _, name := range steps.GetStepNames() {
		r.steps[name] = steps.GetStepCount(name)
	}

	if f.rsp != nil {
		r.numFlushed = f.rsp.NumFlushed
	} else {
		r.mismatches = append(r.mismatches, "the cache did not finish flushing")
	}

	r.mismatches = append(r.mismatches, verifyMemory(memCtrl, agent)...)

	return r, nil
}

func logPortMsgs(
	path string,
	engine sim.Engine,
	ports []sim.Port,
) (func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	logger := sim.NewPortMsgLogger(log.New(file, "", 0), engine)
	for _, p := range ports {
		p.AcceptHook(logger)
	}

	return func() { file.Close() }, nil
}

func verifyMemory(
	memCtrl *idealmemcontroller.Comp,
	agent *memaccessagent.MemAccessAgent,
) []string {
	addrs := make([]uint64, 0, len(agent.KnownMemValue))
	for addr := range agent.KnownMemValue {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var mismatches []string

	for _, addr := range addrs {
		values := agent.KnownMemValue[addr]
		expected := values[len(values)-1]

		data, err := memCtrl.Peek(addr, 4)
		if err != nil {
			mismatches = append(mismatches,
				fmt.Sprintf("cannot read 0x%x: %v", addr, err))
			continue
		}

		actual := binary.LittleEndian.Uint32(data)
		if actual != expected {
			mismatches = append(mismatches, fmt.Sprintf(
				"memory at 0x%x is 0x%08x, want 0x%08x", addr, actual, expected))
		}
	}

	return mismatches
}
