// Package slots implements click-to-book on slot cells, with an optimistic
// loading state that is rolled back exactly when the booking fails.
package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
)

const (
	promptFormat         = "Book slot for %s at %s in %s. Please enter your name:"
	NameRequiredMessage  = "Name is required to make a reservation."
	PastMessage          = "This slot has already passed and cannot be booked."
	AlreadyBookedMessage = "This slot is already booked."
	successFormat        = "Reservation confirmed for %s in %s."
)

// Cell is one rendered slot. It is created once per cell and lives for the
// page; all methods run on the page loop.
type Cell struct {
	grid *Grid
	view view.SlotView

	// bound is false while a booking is in flight: the activation trigger
	// is detached.
	bound     bool
	prompting bool
}

// Key identifies the cell.
func (c *Cell) Key() view.SlotKey { return c.view.Key }

// View is the cell's current rendering.
func (c *Cell) View() view.SlotView { return c.view }

// State is the cell's availability state.
func (c *Cell) State() view.SlotState { return c.view.State }

// Bound reports whether the activation trigger is attached.
func (c *Cell) Bound() bool { return c.bound }

// Activate handles a click on the cell.
func (c *Cell) Activate(ctx context.Context) {
	if !c.bound || c.prompting {
		c.grid.logger.Debug("slots: activation ignored", "slot", c.view.Key.String(), "state", c.view.State)
		return
	}
	switch c.view.State {
	case view.StateAvailable:
	case view.StatePast:
		c.grid.deps.Toasts.Show(PastMessage, view.ToastInfo)
		return
	case view.StateBooked:
		c.grid.deps.Toasts.Show(AlreadyBookedMessage, view.ToastInfo)
		return
	default:
		return
	}

	key := c.view.Key
	c.prompting = true
	message := fmt.Sprintf(promptFormat, key.Date, key.Time, key.Queue)
	prefill := c.grid.deps.Session.SavedName()
	eventloop.Await(c.grid.deps.Loop, ctx, func(ctx context.Context) (promptAnswer, error) {
		value, ok, err := c.grid.deps.Prompter.Prompt(ctx, message, prefill)
		return promptAnswer{value: value, ok: ok}, err
	}, func(answer promptAnswer, err error) {
		c.prompting = false
		c.answered(ctx, answer, err)
	})
}

type promptAnswer struct {
	value string
	ok    bool
}

func (c *Cell) answered(ctx context.Context, answer promptAnswer, err error) {
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.grid.logger.Warn("slots: name prompt failed", "slot", c.view.Key.String(), "error", err)
		}
		return
	}
	if !answer.ok {
		return
	}
	name := strings.TrimSpace(answer.value)
	if name == "" {
		c.grid.observe(metrics.OutcomeInvalid)
		c.grid.deps.Toasts.Show(NameRequiredMessage, view.ToastError)
		return
	}
	// the cell may have changed while the prompt was open
	if c.view.State != view.StateAvailable || !c.bound {
		return
	}

	c.grid.deps.Session.SaveName(ctx, name)
	snapshot := c.view
	c.bound = false
	c.render(view.LoadingSlot(snapshot.Key, name))

	req := bookingapi.BookRequest{
		Date:     snapshot.Key.Date,
		Queue:    snapshot.Key.Queue,
		Time:     snapshot.Key.Time,
		BookedBy: name,
	}
	eventloop.Await(c.grid.deps.Loop, ctx, func(ctx context.Context) (*bookingapi.BookResponse, error) {
		return c.grid.deps.API.Book(ctx, req)
	}, func(resp *bookingapi.BookResponse, err error) {
		c.booked(snapshot, name, resp, err)
	})
}

func (c *Cell) booked(snapshot view.SlotView, name string, resp *bookingapi.BookResponse, err error) {
	key := snapshot.Key
	if err != nil || resp == nil || !resp.Success {
		outcome := metrics.OutcomeRejected
		serverMessage := ""
		if err != nil || resp == nil {
			outcome = metrics.OutcomeTransport
			c.grid.logger.Warn("slots: booking request failed", "slot", key.String(), "error", err)
		} else {
			serverMessage = resp.Message
			c.grid.logger.Info("slots: booking rejected", "slot", key.String(), "message", resp.Message)
		}
		c.grid.observe(outcome)
		c.render(snapshot)
		c.Rebind()
		c.grid.deps.Toasts.Show(bookingapi.FailureMessage(serverMessage, err), view.ToastError)
		return
	}

	ref := view.BookingRef{BookingID: resp.BookingID.String(), BookedBy: name}
	if ref.BookingID == "" {
		c.grid.logger.Warn("slots: booking succeeded without an id", "slot", key.String())
	}
	c.grid.observe(metrics.OutcomeSuccess)
	c.MarkBooked(ref)
	c.grid.deps.Toasts.Show(fmt.Sprintf(successFormat, name, key.Queue), view.ToastSuccess)
}

// MarkBooked renders the cell booked by ref, with its cancel affordance.
func (c *Cell) MarkBooked(ref view.BookingRef) {
	c.render(view.BookedSlot(c.view.Key, ref))
	c.bound = true
}

// Reset reverts the cell to the empty available state and rebinds it.
func (c *Cell) Reset() {
	c.render(view.AvailableSlot(c.view.Key))
	c.Rebind()
}

// Rebind reattaches the activation trigger.
func (c *Cell) Rebind() { c.bound = true }

func (c *Cell) render(v view.SlotView) {
	prev := c.view
	c.view = v
	c.grid.reindex(c, prev)
	c.grid.deps.Renderer.RenderSlot(v)
}
