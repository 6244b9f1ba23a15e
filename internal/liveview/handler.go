// Package liveview serves booking pages over WebSocket. Each connection gets
// its own page session: the server-rendered page is fetched and parsed, the
// interaction components are mounted on a private event loop, render
// operations stream to a small browser shim, and user events stream back.
package liveview

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/markup"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/page"
	"github.com/MEPPERDONAS/185-reservas/internal/session"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

//go:embed static/reservas.js
var ShimJS []byte

const (
	defaultEventRate  = 20
	defaultEventBurst = 40
)

// PageSource supplies the server-rendered booking page.
type PageSource interface {
	FetchPage(ctx context.Context) ([]byte, error)
}

// Inbound is what the shim sends.
type Inbound struct {
	Type  string      `json:"type"` // "event", "prompt_reply", "ping"
	Event *page.Event `json:"event,omitempty"`
	ID    string      `json:"id,omitempty"`
	Value string      `json:"value,omitempty"`
	OK    bool        `json:"ok,omitempty"`
}

// Options tune page sessions.
type Options struct {
	Page       page.Options
	EventRate  float64
	EventBurst int
	Clock      clock.Clock
}

// Handler runs one page session per WebSocket connection.
type Handler struct {
	pages   PageSource
	api     bookingapi.API
	names   session.NameStore
	metrics *metrics.InteractionMetrics
	opts    Options
	shimJS  []byte
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*surface
}

// NewHandler creates a page session handler. A nil shim serves the embedded one.
func NewHandler(pages PageSource, api bookingapi.API, names session.NameStore, m *metrics.InteractionMetrics, opts Options, shimJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.EventRate <= 0 {
		opts.EventRate = defaultEventRate
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = defaultEventBurst
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if shimJS == nil {
		shimJS = ShimJS
	}
	if names == nil {
		names = session.NewMemoryNameStore()
	}
	return &Handler{
		pages:    pages,
		api:      api,
		names:    names,
		metrics:  m,
		opts:     opts,
		shimJS:   shimJS,
		logger:   logger,
		sessions: make(map[string]*surface),
	}
}

// ActiveSessions reports how many page sessions are connected.
func (h *Handler) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleWebSocket upgrades to WebSocket and runs a page session.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	deviceID := strings.TrimSpace(r.URL.Query().Get("device"))
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	sessionID := uuid.NewString()
	logger := h.logger.With("session_id", sessionID, "device_id", deviceID)

	surf := newSurface(conn, logger)
	defer surf.close()
	surf.send(Op{Type: "session", SessionID: sessionID, DeviceID: deviceID})

	body, err := h.pages.FetchPage(ctx)
	if err != nil {
		logger.Error("liveview: fetch page failed", "error", err)
		surf.send(Op{Type: "error", Text: "The booking page is unavailable. Please reload."})
		return
	}
	layout, err := markup.Parse(bytes.NewReader(body))
	if err != nil {
		logger.Error("liveview: parse page failed", "error", err)
		surf.send(Op{Type: "error", Text: "The booking page is unavailable. Please reload."})
		return
	}

	loop := eventloop.New(h.opts.Clock, logger)
	p := page.New(page.Deps{
		Loop:     loop,
		Renderer: surf,
		Prompter: surf,
		Session:  session.New(ctx, deviceID, h.names, logger),
		API:      h.api,
		Metrics:  h.metrics,
		Options:  h.opts.Page,
		Logger:   logger,
	})
	loop.Post(func() { p.Mount(layout) })

	h.mu.Lock()
	h.sessions[sessionID] = surf
	h.mu.Unlock()
	h.metrics.SessionOpened()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, sessionID)
		h.mu.Unlock()
		h.metrics.SessionClosed()
	}()

	logger.Info("liveview: page session opened")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error {
		// a closed connection ends the whole session
		defer cancel()
		return h.readEvents(gctx, conn, surf, loop, p, logger)
	})
	g.Go(func() error {
		// unblocks the reader on server shutdown
		<-gctx.Done()
		surf.close()
		return conn.Close()
	})
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("liveview: page session ended", "error", err)
	}
	logger.Info("liveview: page session closed")
}

func (h *Handler) readEvents(ctx context.Context, conn *websocket.Conn, surf *surface, loop *eventloop.Loop, p *page.Page, logger *logging.Logger) error {
	limiter := rate.NewLimiter(rate.Limit(h.opts.EventRate), h.opts.EventBurst)
	for {
		var msg Inbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch msg.Type {
		case "ping":
			surf.send(Op{Type: "pong"})
		case "prompt_reply":
			if !surf.deliver(msg.ID, msg.Value, msg.OK) {
				logger.Debug("liveview: reply for unknown prompt", "prompt_id", msg.ID)
			}
		case "event":
			if msg.Event == nil {
				continue
			}
			if !limiter.Allow() {
				logger.Warn("liveview: event rate limited", "type", msg.Event.Type)
				surf.send(Op{Type: "error", Text: "Too many actions. Slow down and try again."})
				continue
			}
			ev := *msg.Event
			loop.Post(func() {
				if err := p.Dispatch(ctx, ev); err != nil {
					logger.Warn("liveview: event rejected", "type", ev.Type, "error", err)
					surf.send(Op{Type: "error", Text: err.Error()})
				}
			})
		}
	}
}

// HandleShimJS serves the browser shim.
func (h *Handler) HandleShimJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(h.shimJS)
}
