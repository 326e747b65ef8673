// Package monitoring turns a running simulation into an HTTP server so that
// the simulation can be inspected and controlled from outside.
package monitoring

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof" // serves /debug/pprof/
	"os"
	"reflect"
	"strconv"
	"sync"
	"unsafe"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"

	"github.com/sarchlab/linecache/sim"
)

// Monitor serves a running simulation over HTTP. It can pause and resume the
// engine, inspect components and buffers, and dump or flush caches.
type Monitor struct {
	engine     sim.Engine
	components []sim.Component
	caches     map[string]CacheInspector
	buffers    []sim.Buffer
	portNumber int
	url        string

	controller *cacheController

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		caches: make(map[string]CacheInspector),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation. The
// monitor also creates the component that sends control requests to caches.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
	m.controller = newCacheController("Monitor", e)
}

// ControlPort returns the port that the monitor sends cache control requests
// from. It must share a connection with the control ports of the registered
// caches.
func (m *Monitor) ControlPort() sim.Port {
	return m.controller.port
}

// RegisterComponent register a component to be monitored.
func (m *Monitor) RegisterComponent(c sim.Component) {
	m.components = append(m.components, c)

	m.registerBuffers(c)
}

// RegisterCache registers a cache. The cache can be inspected and flushed
// through the cache endpoints.
func (m *Monitor) RegisterCache(c CacheInspector) {
	m.RegisterComponent(c)
	m.caches[c.Name()] = c
}

var bufferType = reflect.TypeFor[sim.Buffer]()

func (m *Monitor) registerBuffers(c sim.Component) {
	m.collectBuffers(c)

	for _, p := range c.Ports() {
		m.collectBuffers(p)
	}
}

// collectBuffers finds the sim.Buffer fields of a struct pointer, including
// unexported ones.
func (m *Monitor) collectBuffers(owner any) {
	v := reflect.ValueOf(owner)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}

	v = v.Elem()
	for i := range v.NumField() {
		f := v.Field(i)
		if f.Type() != bufferType || f.IsNil() {
			continue
		}

		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
		m.buffers = append(m.buffers, f.Interface().(sim.Buffer))
	}
}

// Router returns the routes that the monitor serves.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	routes := []struct {
		path string
		fn   apiFunc
	}{
		{"/now", m.now},
		{"/pause", m.pauseEngine},
		{"/continue", m.continueEngine},
		{"/run", m.run},
		{"/tick/{name}", m.tick},
		{"/list_components", m.listComponents},
		{"/component/{name}", m.listComponentDetails},
		{"/field/{json}", m.listFieldValue},
		{"/hangdetector/buffers", m.hangDetectorBuffers},
		{"/progress", m.listProgressBars},
		{"/resource", m.listResources},
		{"/profile", m.collectProfile},
		{"/cache/{name}/config", m.cacheConfig},
		{"/cache/{name}/profile", m.cacheProfile},
	}

	index := make([]string, 0, len(routes)+1)
	for _, rt := range routes {
		api.Handle(rt.path, rt.fn)
		index = append(index, "/api"+rt.path)
	}

	api.Handle("/cache/{name}/flush", apiFunc(m.flushCache)).
		Methods(http.MethodPost)
	api.Handle("/cache/{name}/flush", apiFunc(m.flushStatus)).
		Methods(http.MethodGet)
	index = append(index, "/api/cache/{name}/flush")

	r.Handle("/", apiFunc(func(w http.ResponseWriter, _ *http.Request) error {
		return writeJSON(w, http.StatusOK, index)
	}))
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		log.Panic(err)
	}

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	router := m.Router()

	go func() {
		log.Panic(http.Serve(listener, router))
	}()

	return m.url
}

// OpenInBrowser opens the monitor page with the default browser.
func (m *Monitor) OpenInBrowser() error {
	if m.url == "" {
		return errors.New("monitoring server is not started")
	}

	return browser.OpenURL(m.url)
}
