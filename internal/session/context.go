// Package session holds the per-page application context: the saved user name
// for the device and the single pending cancellation target.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

const persistTimeout = 5 * time.Second

// Context is owned by one page session and only touched from its loop.
// Saved names are written to the store in the background.
type Context struct {
	deviceID string
	names    NameStore
	logger   *logging.Logger

	savedName string
	pending   *view.BookingRef
	saveSeq   uint64

	writeMu sync.Mutex
	written uint64
	writes  sync.WaitGroup
}

// New loads the device's saved name and returns a context for it. A store
// failure leaves the saved name empty; the page keeps working without it.
func New(ctx context.Context, deviceID string, names NameStore, logger *logging.Logger) *Context {
	if logger == nil {
		logger = logging.Default()
	}
	if names == nil {
		names = NewMemoryNameStore()
	}
	c := &Context{deviceID: deviceID, names: names, logger: logger}
	if deviceID == "" {
		return c
	}
	name, err := names.GetName(ctx, deviceID)
	if err != nil {
		logger.Warn("session: load saved name failed", "device_id", deviceID, "error", err)
		return c
	}
	c.savedName = name
	return c
}

// DeviceID identifies the browser the page runs in.
func (c *Context) DeviceID() string { return c.deviceID }

// SavedName is the name used to prefill prompts.
func (c *Context) SavedName() string { return c.savedName }

// SaveName remembers name for this tab at once and persists it for the
// device without blocking the caller. When saves overlap only the latest is
// written. Failures are logged.
func (c *Context) SaveName(ctx context.Context, name string) {
	c.savedName = name
	if c.deviceID == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// the write outlives a page that closes right after booking
	ctx = context.WithoutCancel(ctx)
	c.saveSeq++
	seq := c.saveSeq

	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if seq < c.written {
			return
		}
		c.written = seq

		ctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		if err := c.names.SetName(ctx, c.deviceID, name); err != nil {
			c.logger.Warn("session: persist saved name failed", "device_id", c.deviceID, "error", err)
		}
	}()
}

// WaitSaved blocks until background name writes have finished.
func (c *Context) WaitSaved() { c.writes.Wait() }

// SetPending replaces the pending cancellation target.
func (c *Context) SetPending(ref view.BookingRef) {
	r := ref
	c.pending = &r
}

// Pending returns the pending cancellation target, if any.
func (c *Context) Pending() (view.BookingRef, bool) {
	if c.pending == nil {
		return view.BookingRef{}, false
	}
	return *c.pending, true
}

// ClearPending drops the pending cancellation target.
func (c *Context) ClearPending() { c.pending = nil }
