package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/pprof"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/linecache/sim"
)

type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string {
	return e.msg
}

func notFound(format string, args ...any) error {
	return &httpError{code: http.StatusNotFound, msg: fmt.Sprintf(format, args...)}
}

func badRequest(err error) error {
	return &httpError{code: http.StatusBadRequest, msg: err.Error()}
}

// apiFunc is an HTTP handler that reports failures as errors. An httpError
// selects the status code; any other error is a 500.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (f apiFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	var he *httpError
	if errors.As(err, &he) {
		http.Error(w, he.msg, he.code)
		return
	}

	log.Printf("monitoring: %s %s: %v", r.Method, r.URL.Path, err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(data)

	return err
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK,
		map[string]sim.VTimeInSec{"now": m.engine.CurrentTime()})
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) error {
	m.engine.Pause()
	return m.now(w, nil)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) error {
	m.engine.Continue()
	return m.now(w, nil)
}

func (m *Monitor) run(w http.ResponseWriter, _ *http.Request) error {
	go func() {
		if err := m.engine.Run(); err != nil {
			log.Panic(err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)

	return nil
}

func (m *Monitor) component(name string) (sim.Component, error) {
	i := slices.IndexFunc(m.components,
		func(c sim.Component) bool { return c.Name() == name })
	if i < 0 {
		return nil, notFound("component %s not found", name)
	}

	return m.components[i], nil
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) error {
	names := make([]string, len(m.components))
	for i, c := range m.components {
		names[i] = c.Name()
	}

	return writeJSON(w, http.StatusOK, names)
}

func (m *Monitor) tick(w http.ResponseWriter, r *http.Request) error {
	c, err := m.component(mux.Vars(r)["name"])
	if err != nil {
		return err
	}

	t, ok := c.(interface{ TickLater() })
	if !ok {
		return &httpError{
			code: http.StatusMethodNotAllowed,
			msg:  c.Name() + " does not tick",
		}
	}

	t.TickLater()
	w.WriteHeader(http.StatusOK)

	return nil
}

func serializeComponent(
	w http.ResponseWriter,
	c sim.Component,
	path []string,
) error {
	s := goseth.NewSerializer()
	s.SetRoot(c)
	s.SetMaxDepth(1)

	if len(path) > 0 {
		if err := s.SetEntryPoint(path); err != nil {
			return badRequest(err)
		}
	}

	w.Header().Set("Content-Type", "application/json")

	return s.Serialize(w)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) error {
	c, err := m.component(mux.Vars(r)["name"])
	if err != nil {
		return err
	}

	return serializeComponent(w, c, nil)
}

// listFieldValue serializes one field of a component. The route variable is
// a JSON object such as {"comp_name":"Cache","field_name":"mshr.entries"}.
func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		CompName  string `json:"comp_name"`
		FieldName string `json:"field_name"`
	}

	if err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req); err != nil {
		return badRequest(err)
	}

	c, err := m.component(req.CompName)
	if err != nil {
		return err
	}

	return serializeComponent(w, c, strings.Split(req.FieldName, "."))
}

type bufferLevel struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}

	return n, nil
}

// hangDetectorBuffers lists buffer fill levels, fullest first. Query
// parameters: sort (percent or level), limit, offset.
func (m *Monitor) hangDetectorBuffers(w http.ResponseWriter, r *http.Request) error {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return badRequest(fmt.Errorf(
			"sort must be level or percent, got %q", sortMethod))
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		return badRequest(err)
	}

	offset, err := queryInt(r, "offset")
	if err != nil {
		return badRequest(err)
	}

	levels := []bufferLevel{}
	for _, b := range m.sortAndSelectBuffers(sortMethod, limit, offset) {
		levels = append(levels, bufferLevel{
			Buffer: b.Name(),
			Level:  b.Size(),
			Cap:    b.Capacity(),
		})
	}

	return writeJSON(w, http.StatusOK, levels)
}

func fillRatio(b sim.Buffer) float64 {
	return float64(b.Size()) / float64(b.Capacity())
}

// sortAndSelectBuffers orders the buffers by fill level or by fill ratio and
// returns limit of them starting at offset. A zero limit returns the rest.
func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []sim.Buffer {
	byLevel := func(a, b sim.Buffer) int { return b.Size() - a.Size() }
	byRatio := func(a, b sim.Buffer) int {
		ra, rb := fillRatio(a), fillRatio(b)
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}

		return 0
	}

	primary, secondary := byRatio, byLevel
	if sortMethod == "level" {
		primary, secondary = byLevel, byRatio
	}

	sorted := slices.Clone(m.buffers)
	slices.SortStableFunc(sorted, func(a, b sim.Buffer) int {
		if c := primary(a, b); c != 0 {
			return c
		}

		return secondary(a, b)
	})

	offset = min(offset, len(sorted))
	end := len(sorted)
	if limit > 0 {
		end = min(end, offset+limit)
	}

	return sorted[offset:end]
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	cpu, err := proc.CPUPercent()
	if err != nil {
		return err
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, struct {
		CPUPercent float64 `json:"cpu_percent"`
		MemorySize uint64  `json:"memory_size"`
	}{cpu, mem.RSS})
}

// collectProfile samples the CPU for one second and returns the parsed
// profile.
func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) error {
	var buf bytes.Buffer

	if err := pprof.StartCPUProfile(&buf); err != nil {
		return err
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, prof)
}
