package monitoring

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/sarchlab/linecache/sim"
)

// A ProgressBar counts how many of a known number of items are in progress
// or finished. It is safe to update from hooks while the monitor serves it.
type ProgressBar struct {
	mu         sync.Mutex
	id         string
	name       string
	startTime  time.Time
	total      uint64
	finished   uint64
	inProgress uint64
}

// IncrementInProgress marks n more items as started.
func (b *ProgressBar) IncrementInProgress(n uint64) {
	b.mu.Lock()
	b.inProgress += n
	b.mu.Unlock()
}

// IncrementFinished marks n more items as finished without having been
// counted as started.
func (b *ProgressBar) IncrementFinished(n uint64) {
	b.mu.Lock()
	b.finished += n
	b.mu.Unlock()
}

// MoveInProgressToFinished marks n started items as finished.
func (b *ProgressBar) MoveInProgressToFinished(n uint64) {
	b.mu.Lock()
	b.inProgress -= n
	b.finished += n
	b.mu.Unlock()
}

// MarshalJSON encodes a consistent snapshot of the bar.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return json.Marshal(struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		StartTime  time.Time `json:"start_time"`
		Total      uint64    `json:"total"`
		Finished   uint64    `json:"finished"`
		InProgress uint64    `json:"in_progress"`
	}{b.id, b.name, b.startTime, b.total, b.finished, b.inProgress})
}

// CreateProgressBar adds a bar with the given total to the monitor page.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        sim.GetIDGenerator().Generate(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressBarsLock.Lock()
	m.progressBars = append(m.progressBars, bar)
	m.progressBarsLock.Unlock()

	return bar
}

// CompleteProgressBar removes the bar from the monitor page.
func (m *Monitor) CompleteProgressBar(bar *ProgressBar) {
	m.progressBarsLock.Lock()
	m.progressBars = slices.DeleteFunc(m.progressBars,
		func(b *ProgressBar) bool { return b == bar })
	m.progressBarsLock.Unlock()
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) error {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	return writeJSON(w, http.StatusOK, m.progressBars)
}
