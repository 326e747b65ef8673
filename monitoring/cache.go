package monitoring

import (
	"log"
	"net/http"
	"sync"

	"github.com/fatih/structs"
	"github.com/gorilla/mux"
	"github.com/sarchlab/linecache/mem/cache"
	"github.com/sarchlab/linecache/sim"
)

// CacheInspector is a cache that the monitor can inspect and flush.
type CacheInspector interface {
	sim.Component
	DumpConfig() cache.Config
	DumpProfile() cache.Profile
	ControlPort() sim.Port
}

// FlushStatus tracks a flush requested through the monitor.
type FlushStatus struct {
	ID         string         `json:"id"`
	Cache      string         `json:"cache"`
	IssuedAt   sim.VTimeInSec `json:"issued_at"`
	Sent       bool           `json:"sent"`
	Done       bool           `json:"done"`
	NumFlushed int            `json:"num_flushed"`
}

// cacheController is the component that sends flush requests on behalf of
// the monitor. HTTP handlers and the engine both touch it.
type cacheController struct {
	*sim.TickingComponent

	port sim.Port

	lock    sync.Mutex
	queue   []*cache.FlushReq
	flushes map[string]*FlushStatus
	latest  map[string]*FlushStatus
}

func newCacheController(name string, engine sim.Engine) *cacheController {
	c := &cacheController{
		flushes: make(map[string]*FlushStatus),
		latest:  make(map[string]*FlushStatus),
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, c)
	c.port = sim.NewPort(c, 4, 4, name+".ControlPort")

	return c
}

func (c *cacheController) requestFlush(
	target CacheInspector,
	invalidateAll bool,
) *FlushStatus {
	b := cache.FlushReqBuilder{}.
		WithSrc(c.port.AsRemote()).
		WithDst(target.ControlPort().AsRemote())
	if invalidateAll {
		b = b.InvalidateAll()
	}

	req := b.Build()

	c.lock.Lock()
	status := &FlushStatus{
		ID:       req.ID,
		Cache:    target.Name(),
		IssuedAt: c.CurrentTime(),
	}
	c.flushes[req.ID] = status
	c.latest[target.Name()] = status
	c.queue = append(c.queue, req)
	c.lock.Unlock()

	c.TickLater()

	return status
}

func (c *cacheController) status(cacheName string) (FlushStatus, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.latest[cacheName]
	if !ok {
		return FlushStatus{}, false
	}

	return *s, true
}

func (c *cacheController) Tick() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	madeProgress := false

	if msg := c.port.RetrieveIncoming(); msg != nil {
		c.handleRsp(msg)
		madeProgress = true
	}

	if len(c.queue) > 0 && c.port.Send(c.queue[0]) == nil {
		c.flushes[c.queue[0].ID].Sent = true
		c.queue = c.queue[1:]
		madeProgress = true
	}

	return madeProgress
}

func (c *cacheController) handleRsp(msg sim.Msg) {
	rsp, ok := msg.(*cache.FlushRsp)
	if !ok {
		log.Printf("%s: unexpected message %T", c.Name(), msg)
		return
	}

	status, ok := c.flushes[rsp.RspTo]
	if !ok {
		return
	}

	status.Done = true
	status.NumFlushed = rsp.NumFlushed
}

func (m *Monitor) cache(r *http.Request) (CacheInspector, error) {
	name := mux.Vars(r)["name"]

	c, ok := m.caches[name]
	if !ok {
		return nil, notFound("cache %s not found", name)
	}

	return c, nil
}

func (m *Monitor) cacheConfig(w http.ResponseWriter, r *http.Request) error {
	c, err := m.cache(r)
	if err != nil {
		return err
	}

	config := c.DumpConfig()
	fields := structs.Map(config)
	fields["Policy"] = config.Policy.String()
	fields["NumSets"] = config.NumSets()
	fields["BeatsPerLine"] = config.BeatsPerLine()

	return writeJSON(w, http.StatusOK, fields)
}

func (m *Monitor) cacheProfile(w http.ResponseWriter, r *http.Request) error {
	c, err := m.cache(r)
	if err != nil {
		return err
	}

	profile := c.DumpProfile()
	fields := structs.Map(profile)
	fields["HitRate"] = profile.HitRate()

	return writeJSON(w, http.StatusOK, fields)
}

// flushCache asks the cache to write back its dirty lines. The query
// parameter invalidate=true also drops the clean lines.
func (m *Monitor) flushCache(w http.ResponseWriter, r *http.Request) error {
	c, err := m.cache(r)
	if err != nil {
		return err
	}

	invalidateAll := r.URL.Query().Get("invalidate") == "true"
	status := m.controller.requestFlush(c, invalidateAll)

	return writeJSON(w, http.StatusAccepted, status)
}

func (m *Monitor) flushStatus(w http.ResponseWriter, r *http.Request) error {
	c, err := m.cache(r)
	if err != nil {
		return err
	}

	status, ok := m.controller.status(c.Name())
	if !ok {
		return notFound("no flush requested for %s", c.Name())
	}

	return writeJSON(w, http.StatusOK, status)
}
