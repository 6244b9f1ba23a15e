// Package toast shows transient notifications. Only one notification exists
// at a time: every Show discards the previous surface together with its
// dismiss timer.
package toast

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

const (
	DefaultDuration = 3 * time.Second
	DefaultStagger  = 400 * time.Millisecond
)

// Observer receives a count of shown notifications.
type Observer interface {
	ObserveToast(kind string)
}

// Options tune a Toaster. Zero values take the defaults.
type Options struct {
	Duration time.Duration
	Stagger  time.Duration
	Metrics  Observer
	// NewID generates surface ids; uuid by default.
	NewID func() string
}

// FlashMessage is one pre-rendered (category, message) pair.
type FlashMessage struct {
	Category string
	Message  string
}

// Toaster owns the page's single notification surface.
type Toaster struct {
	loop     *eventloop.Loop
	renderer view.Renderer
	logger   *logging.Logger
	opts     Options

	current string
	dismiss clock.Timer
}

// New creates a Toaster drawing through renderer.
func New(loop *eventloop.Loop, renderer view.Renderer, opts Options, logger *logging.Logger) *Toaster {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Stagger <= 0 {
		opts.Stagger = DefaultStagger
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Toaster{loop: loop, renderer: renderer, logger: logger, opts: opts}
}

// Show replaces any visible notification with message and arms its dismissal.
func (t *Toaster) Show(message string, kind view.ToastKind) {
	t.discard()

	id := t.opts.NewID()
	t.current = id
	t.renderer.ShowToast(view.ToastView{ID: id, Message: message, Kind: kind})
	if t.opts.Metrics != nil {
		t.opts.Metrics.ObserveToast(string(kind))
	}

	t.dismiss = t.loop.AfterFunc(t.opts.Duration, func() {
		// a timer that fired just before being stopped must not remove a newer toast
		if t.current != id {
			return
		}
		t.renderer.RemoveToast(id)
		t.current = ""
		t.dismiss = nil
	})
}

// Current returns the id of the visible notification.
func (t *Toaster) Current() (string, bool) {
	return t.current, t.current != ""
}

func (t *Toaster) discard() {
	if t.dismiss != nil {
		t.dismiss.Stop()
		t.dismiss = nil
	}
	if t.current != "" {
		t.renderer.RemoveToast(t.current)
		t.current = ""
	}
}

// ReplayFlash shows messages one after another, Stagger apart, starting now.
func (t *Toaster) ReplayFlash(messages []FlashMessage) {
	for i, msg := range messages {
		msg := msg
		show := func() { t.Show(msg.Message, KindForCategory(msg.Category)) }
		if i == 0 {
			t.loop.Post(show)
			continue
		}
		t.loop.AfterFunc(time.Duration(i)*t.opts.Stagger, show)
	}
	if len(messages) > 0 {
		t.logger.Debug("toast: replaying flash messages", "count", len(messages))
	}
}

// KindForCategory maps server flash categories onto notification kinds.
func KindForCategory(category string) view.ToastKind {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "error":
		return view.ToastError
	case "warning":
		return view.ToastInfo
	default:
		return view.ToastSuccess
	}
}
