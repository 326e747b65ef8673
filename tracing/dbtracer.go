package tracing

import (
	"sync"

	"github.com/sarchlab/linecache/datarecording"
	"github.com/sarchlab/linecache/sim"
	"github.com/tebeka/atexit"
)

const (
	taskTableName = "trace"
	stepTableName = "trace_step"
)

type taskRow struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
}

type stepRow struct {
	TaskID string
	What   string
	Time   float64
}

// DBTracer writes every finished task, together with its steps, to a data
// recorder. Only tasks overlapping the recording window are kept.
type DBTracer struct {
	mu      sync.Mutex
	clock   sim.TimeTeller
	sink    datarecording.DataRecorder
	from    sim.VTimeInSec
	until   sim.VTimeInSec
	pending map[string]*Task
}

// NewDBTracer creates a DBTracer and registers a flush at program exit. Tasks
// still open at that point are never written.
func NewDBTracer(
	clock sim.TimeTeller,
	sink datarecording.DataRecorder,
) *DBTracer {
	sink.CreateTable(taskTableName, taskRow{})
	sink.CreateTable(stepTableName, stepRow{})

	t := &DBTracer{
		clock:   clock,
		sink:    sink,
		pending: make(map[string]*Task),
	}
	atexit.Register(t.Terminate)

	return t
}

// SetTimeRange sets the recording window. Zero leaves a side open.
func (t *DBTracer) SetTimeRange(from, until sim.VTimeInSec) {
	t.mu.Lock()
	t.from, t.until = from, until
	t.mu.Unlock()
}

func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.CurrentTime()
	if t.until > 0 && now > t.until {
		return
	}

	task.StartTime = now
	t.pending[task.ID] = &task
}

func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	open := t.pending[task.ID]
	if open == nil {
		return
	}

	now := t.clock.CurrentTime()
	for _, s := range task.Steps {
		s.Time = now
		open.Steps = append(open.Steps, s)
	}
}

func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	open := t.pending[task.ID]
	if open == nil {
		return
	}
	delete(t.pending, task.ID)

	open.EndTime = t.clock.CurrentTime()
	if t.from > 0 && open.EndTime < t.from {
		return
	}

	t.write(open)
}

func (t *DBTracer) write(task *Task) {
	t.sink.InsertData(taskTableName, taskRow{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Location,
		StartTime: float64(task.StartTime),
		EndTime:   float64(task.EndTime),
	})

	for _, s := range task.Steps {
		t.sink.InsertData(stepTableName, stepRow{
			TaskID: task.ID,
			What:   s.What,
			Time:   float64(s.Time),
		})
	}
}

// Terminate drops the open tasks and flushes the recorder.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.pending)
	t.sink.Flush()
}
