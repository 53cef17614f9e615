package dsousb

import (
	"log"
	"sync"
)

// Handle lazily owns a single Transport, opening it on first use and
// reopening it after a caller reports it bad. This is comm.Pool's
// acquire/destroy discipline cut down to a pool of one: only one DSO is
// ever addressed at a time, so there is no lease queue, just a mutex
// guarding (re)connection.
type Handle struct {
	mu  sync.Mutex
	t   *Transport
	log *log.Logger
}

// NewHandle returns a Handle that opens its Transport lazily.
func NewHandle(logger *log.Logger) *Handle {
	return &Handle{log: logger}
}

// Get returns the current Transport, opening one if none is held yet.
func (h *Handle) Get() (*Transport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.t != nil {
		return h.t, nil
	}
	t, err := Open(h.log)
	if err != nil {
		return nil, err
	}
	h.t = t
	return h.t, nil
}

// Destroy closes and discards the held Transport, if any, so the next Get
// reopens the device from scratch. Callers reach for this after an error
// that suggests the connection itself is no longer trustworthy, mirroring
// comm.Pool.Destroy's "this one has gone bad" contract.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.t == nil {
		return
	}
	if err := h.t.Close(); err != nil && h.log != nil {
		h.log.Printf("dsousb: close on destroy: %v", err)
	}
	h.t = nil
}

// Close releases any held Transport. A Handle may be reused afterward; Get
// will simply reopen.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.t == nil {
		return nil
	}
	err := h.t.Close()
	h.t = nil
	return err
}
