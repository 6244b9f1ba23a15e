// Package page wires the interaction components to one rendered page and
// routes user events to them.
package page

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/cancellation"
	"github.com/MEPPERDONAS/185-reservas/internal/countdown"
	"github.com/MEPPERDONAS/185-reservas/internal/days"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/markup"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/search"
	"github.com/MEPPERDONAS/185-reservas/internal/session"
	"github.com/MEPPERDONAS/185-reservas/internal/slots"
	"github.com/MEPPERDONAS/185-reservas/internal/toast"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// Event types accepted by Dispatch.
const (
	EventSlotClick    = "slot_click"
	EventCancelClick  = "cancel_click"
	EventModalClose   = "modal_close"
	EventModalPointer = "modal_pointer"
	EventModalConfirm = "modal_confirm"
	EventToggleDays   = "toggle_days"
	EventSearchSubmit = "search_submit"
)

var (
	// ErrUnknownEvent is returned for event types the page does not handle.
	ErrUnknownEvent = errors.New("page: unknown event")
	// ErrNotMounted is returned when events arrive before Mount.
	ErrNotMounted = errors.New("page: not mounted")
)

// Event is one user interaction forwarded from the surface.
type Event struct {
	Type    string           `json:"type"`
	Slot    *view.SlotKey    `json:"slot,omitempty"`
	Booking *view.BookingRef `json:"booking,omitempty"`
	Target  string           `json:"target,omitempty"`
	Name    string           `json:"name,omitempty"`
	Form    url.Values       `json:"form,omitempty"`
}

// Options carries the timing knobs from config.
type Options struct {
	ToastDuration     time.Duration
	FlashStagger      time.Duration
	HighlightDuration time.Duration
}

// Deps are everything a page needs.
type Deps struct {
	Loop     *eventloop.Loop
	Renderer view.Renderer
	Prompter view.Prompter
	Session  *session.Context
	API      bookingapi.API
	Metrics  *metrics.InteractionMetrics
	Options  Options
	Logger   *logging.Logger
}

// Page is one mounted booking page.
type Page struct {
	deps   Deps
	logger *logging.Logger

	Toasts    *toast.Toaster
	Countdown *countdown.Countdown
	Grid      *slots.Grid
	Modal     *cancellation.Modal
	Days      *days.Toggle
	Search    *search.Search
}

// New builds the page components. Nothing is drawn until Mount.
func New(deps Deps) *Page {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Session == nil {
		deps.Session = session.New(context.Background(), "", nil, logger)
	}
	p := &Page{deps: deps, logger: logger}

	p.Toasts = toast.New(deps.Loop, deps.Renderer, toast.Options{
		Duration: deps.Options.ToastDuration,
		Stagger:  deps.Options.FlashStagger,
		Metrics:  deps.Metrics,
	}, logger.Component("toast"))
	p.Countdown = countdown.New(deps.Loop, deps.Renderer, deps.Metrics, logger.Component("countdown"))
	p.Grid = slots.NewGrid(slots.Deps{
		Loop:     deps.Loop,
		Renderer: deps.Renderer,
		Prompter: deps.Prompter,
		Session:  deps.Session,
		API:      deps.API,
		Toasts:   p.Toasts,
		Metrics:  deps.Metrics,
		Logger:   logger.Component("slots"),
	})
	p.Modal = cancellation.New(cancellation.Deps{
		Loop:     deps.Loop,
		Renderer: deps.Renderer,
		Session:  deps.Session,
		API:      deps.API,
		Cells:    p.Grid,
		Toasts:   p.Toasts,
		Metrics:  deps.Metrics,
		Logger:   logger.Component("cancellation"),
	})
	return p
}

// Mount binds the components to the parsed page: cells are created, extra
// days forced hidden and the flash messages replayed.
func (p *Page) Mount(layout *markup.Layout) {
	if layout == nil {
		layout = &markup.Layout{}
	}
	for _, v := range layout.Slots {
		p.Grid.Add(v)
	}
	for _, ref := range layout.Affordances {
		if _, ok := p.Grid.ByBookingID(ref.BookingID); !ok {
			p.logger.Warn("cancel affordance outside a slot cell", "booking_id", ref.BookingID)
		}
	}
	p.Days = days.New(p.deps.Renderer, layout.ExtraDays)
	p.Days.Init()
	p.Search = search.New(p.deps.Loop, p.deps.API, p.Countdown, p.Days, p.deps.Renderer, p.deps.Options.HighlightDuration, p.logger.Component("search"))
	p.Toasts.ReplayFlash(layout.Flash)

	p.logger.Info("page mounted",
		"slots", len(layout.Slots),
		"cancel_affordances", len(layout.Affordances),
		"extra_days", len(layout.ExtraDays),
		"toggle", layout.HasToggle,
		"flash", len(layout.Flash),
	)
}

// Dispatch routes ev to its component. It must run on the page loop.
func (p *Page) Dispatch(ctx context.Context, ev Event) error {
	if p.Search == nil {
		return ErrNotMounted
	}
	switch ev.Type {
	case EventSlotClick:
		if ev.Slot == nil {
			return fmt.Errorf("page: %s without slot", ev.Type)
		}
		cell, ok := p.Grid.Lookup(*ev.Slot)
		if !ok {
			return fmt.Errorf("page: unknown slot %s", ev.Slot)
		}
		cell.Activate(ctx)
	case EventCancelClick:
		if ev.Booking == nil || ev.Booking.BookingID == "" {
			return fmt.Errorf("page: %s without booking", ev.Type)
		}
		// the affordance swallows the click; the cell never sees it
		p.Modal.Affordance(*ev.Booking)
	case EventModalClose:
		p.Modal.Close()
	case EventModalPointer:
		p.Modal.PointerDown(cancellation.PointerTarget(ev.Target))
	case EventModalConfirm:
		p.Modal.Confirm(ctx, ev.Name)
	case EventToggleDays:
		p.Days.Toggle()
	case EventSearchSubmit:
		p.Search.Submit(ctx, ev.Form)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}
