package liveview

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// ErrClosed is returned by prompts still open when the connection ends.
var ErrClosed = errors.New("liveview: connection closed")

// Op is one operation sent to the browser shim.
type Op struct {
	Type      string             `json:"type"` // "session", "slot", "modal", "toast", "toast_remove", "countdown", "search", "days", "scroll", "highlight", "prompt", "pong", "error"
	SessionID string             `json:"session_id,omitempty"`
	DeviceID  string             `json:"device_id,omitempty"`
	Slot      *view.SlotView     `json:"slot,omitempty"`
	Modal     *view.ModalView    `json:"modal,omitempty"`
	Toast     *view.ToastView    `json:"toast,omitempty"`
	Search    *view.SearchResult `json:"search,omitempty"`
	Days      *view.DaysView     `json:"days,omitempty"`
	ID        string             `json:"id,omitempty"`
	Text      string             `json:"text,omitempty"`
	Date      string             `json:"date,omitempty"`
	Time      string             `json:"time,omitempty"`
	On        bool               `json:"on,omitempty"`
	Default   string             `json:"default,omitempty"`
}

type promptReply struct {
	value string
	ok    bool
}

// surface renders a page session over one WebSocket connection.
type surface struct {
	conn   *websocket.Conn
	logger *logging.Logger

	sendMu sync.Mutex

	mu      sync.Mutex
	prompts map[string]chan promptReply
	closed  chan struct{}
	once    sync.Once
}

var (
	_ view.Renderer = (*surface)(nil)
	_ view.Prompter = (*surface)(nil)
)

func newSurface(conn *websocket.Conn, logger *logging.Logger) *surface {
	return &surface{
		conn:    conn,
		logger:  logger,
		prompts: make(map[string]chan promptReply),
		closed:  make(chan struct{}),
	}
}

func (s *surface) send(op Op) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := websocket.JSON.Send(s.conn, op); err != nil {
		s.logger.Debug("liveview: send failed", "type", op.Type, "error", err)
	}
}

func (s *surface) RenderSlot(v view.SlotView) { s.send(Op{Type: "slot", Slot: &v}) }
func (s *surface) RenderModal(m view.ModalView) { s.send(Op{Type: "modal", Modal: &m}) }
func (s *surface) ShowToast(t view.ToastView) { s.send(Op{Type: "toast", Toast: &t}) }
func (s *surface) RemoveToast(id string) { s.send(Op{Type: "toast_remove", ID: id}) }
func (s *surface) RenderCountdown(text string) { s.send(Op{Type: "countdown", Text: text}) }
func (s *surface) ScrollToDay(date string) { s.send(Op{Type: "scroll", Date: date}) }

func (s *surface) RenderSearchResult(r view.SearchResult) { s.send(Op{Type: "search", Search: &r}) }
func (s *surface) RenderDays(d view.DaysView) { s.send(Op{Type: "days", Days: &d}) }

func (s *surface) HighlightRow(date, time string, on bool) {
	s.send(Op{Type: "highlight", Date: date, Time: time, On: on})
}

// Prompt asks the shim to run a native prompt and waits for its reply.
func (s *surface) Prompt(ctx context.Context, message, defaultValue string) (string, bool, error) {
	id := uuid.NewString()
	ch := make(chan promptReply, 1)
	s.mu.Lock()
	s.prompts[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.prompts, id)
		s.mu.Unlock()
	}()

	s.send(Op{Type: "prompt", ID: id, Text: message, Default: defaultValue})

	select {
	case reply := <-ch:
		return reply.value, reply.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-s.closed:
		return "", false, ErrClosed
	}
}

// deliver hands a prompt reply to its waiting Prompt call. Replies to
// unknown or finished prompts are dropped.
func (s *surface) deliver(id, value string, ok bool) bool {
	s.mu.Lock()
	ch, found := s.prompts[id]
	s.mu.Unlock()
	if !found {
		return false
	}
	select {
	case ch <- promptReply{value: value, ok: ok}:
		return true
	default:
		return false
	}
}

func (s *surface) close() {
	s.once.Do(func() { close(s.closed) })
}
