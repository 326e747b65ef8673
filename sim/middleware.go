package sim

// Middleware is one stage of a component. A component that holds several
// middlewares ticks them in the order they were added.
type Middleware interface {
	Tick() bool
}

// MiddlewareHolder can be embedded in a component to hold its stages.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware appends a stage.
func (h *MiddlewareHolder) AddMiddleware(m Middleware) {
	h.middlewares = append(h.middlewares, m)
}

// Middlewares returns the stages in tick order.
func (h *MiddlewareHolder) Middlewares() []Middleware {
	return h.middlewares
}

// Tick ticks every stage once and reports if any of them made progress.
func (h *MiddlewareHolder) Tick() (madeProgress bool) {
	for _, m := range h.middlewares {
		madeProgress = m.Tick() || madeProgress
	}

	return madeProgress
}
