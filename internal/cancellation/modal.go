// Package cancellation drives the modal that confirms and cancels an existing
// booking.
package cancellation

import (
	"context"
	"strings"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

const (
	NameRequiredMessage = "Name is required to confirm the cancellation."
	NameMismatchMessage = "The name does not match the booking."
	SuccessMessage      = "Booking cancelled successfully."
)

// PointerTarget says where a pointer press on the modal landed.
type PointerTarget string

const (
	TargetBackdrop PointerTarget = "backdrop"
	TargetContent  PointerTarget = "content"
)

// Canceller is the slice of the booking API the modal needs.
type Canceller interface {
	CancelBooking(ctx context.Context, req bookingapi.CancelRequest) (*bookingapi.CancelResponse, error)
}

// Target holds the single pending cancellation target.
type Target interface {
	SavedName() string
	SetPending(ref view.BookingRef)
	Pending() (view.BookingRef, bool)
	ClearPending()
}

// Cells reverts the cell that shows a booking.
type Cells interface {
	ResetBooking(bookingID string) bool
}

// Notifier shows user feedback.
type Notifier interface {
	Show(message string, kind view.ToastKind)
}

// Observer counts cancellation outcomes.
type Observer interface {
	ObserveCancellation(outcome string)
}

// Deps wire a Modal to its page.
type Deps struct {
	Loop     *eventloop.Loop
	Renderer view.Renderer
	Session  Target
	API      Canceller
	Cells    Cells
	Toasts   Notifier
	Metrics  Observer
	Logger   *logging.Logger
}

// Modal is the page's one cancellation modal.
type Modal struct {
	deps   Deps
	logger *logging.Logger
	state  view.ModalView
}

// New creates a hidden modal.
func New(deps Deps) *Modal {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Modal{deps: deps, logger: logger}
}

// View is the modal's current rendering.
func (m *Modal) View() view.ModalView { return m.state }

// Open targets ref, replacing any previous target, and shows the modal with
// the confirmation input prefilled.
func (m *Modal) Open(ref view.BookingRef) {
	m.deps.Session.SetPending(ref)
	m.state = view.ModalView{
		Visible:   true,
		BookingID: ref.BookingID,
		BookedBy:  ref.BookedBy,
		NameInput: m.deps.Session.SavedName(),
	}
	m.render()
}

// Affordance is the click handler shared by every cancel control. It opens
// the modal for ref and reports that the click must not reach the cell.
func (m *Modal) Affordance(ref view.BookingRef) (stopPropagation bool) {
	m.Open(ref)
	return true
}

// Close hides the modal and drops the pending target.
func (m *Modal) Close() {
	m.deps.Session.ClearPending()
	m.state = view.ModalView{}
	m.render()
}

// PointerDown closes the modal when the press landed on the backdrop itself.
func (m *Modal) PointerDown(target PointerTarget) {
	if target == TargetBackdrop {
		m.Close()
	}
}

// Confirm checks entered against the pending target and asks the server to
// cancel. A blank name is required; anything else must equal the booked-by
// name exactly, surrounding spaces included. Local failures are shown inline
// without a request.
func (m *Modal) Confirm(ctx context.Context, entered string) {
	ref, ok := m.deps.Session.Pending()
	if !ok {
		m.logger.Debug("cancellation: confirm without a pending target")
		return
	}
	if m.state.Busy {
		return
	}
	m.state.NameInput = entered

	switch {
	case strings.TrimSpace(entered) == "":
		m.fail(metrics.OutcomeInvalid, NameRequiredMessage)
		return
	case entered != ref.BookedBy:
		m.fail(metrics.OutcomeInvalid, NameMismatchMessage)
		return
	}

	m.state.Error = ""
	m.state.Busy = true
	m.render()

	req := bookingapi.CancelRequest{BookingID: ref.BookingID, BookedByUser: entered}
	eventloop.Await(m.deps.Loop, ctx, func(ctx context.Context) (*bookingapi.CancelResponse, error) {
		return m.deps.API.CancelBooking(ctx, req)
	}, func(resp *bookingapi.CancelResponse, err error) {
		m.cancelled(ref, resp, err)
	})
}

func (m *Modal) cancelled(ref view.BookingRef, resp *bookingapi.CancelResponse, err error) {
	// the modal may have been closed or retargeted while the request ran
	current, open := m.deps.Session.Pending()
	stillTargeted := open && current.BookingID == ref.BookingID
	if stillTargeted {
		m.state.Busy = false
	}

	if err != nil || resp == nil || !resp.Success {
		outcome := metrics.OutcomeRejected
		serverMessage := ""
		if err != nil || resp == nil {
			outcome = metrics.OutcomeTransport
			m.logger.Warn("cancellation: request failed", "booking_id", ref.BookingID, "error", err)
		} else {
			serverMessage = resp.Message
			m.logger.Info("cancellation: rejected", "booking_id", ref.BookingID, "message", resp.Message)
		}
		message := bookingapi.FailureMessage(serverMessage, err)
		if !stillTargeted {
			m.observe(outcome)
			m.deps.Toasts.Show(message, view.ToastError)
			return
		}
		m.fail(outcome, message)
		return
	}

	m.observe(metrics.OutcomeSuccess)
	if stillTargeted {
		m.Close()
	}
	if !m.deps.Cells.ResetBooking(ref.BookingID) {
		m.logger.Warn("cancellation: no cell shows booking", "booking_id", ref.BookingID)
	}
	m.deps.Toasts.Show(SuccessMessage, view.ToastSuccess)
}

func (m *Modal) fail(outcome, message string) {
	m.observe(outcome)
	m.state.Error = message
	m.render()
}

func (m *Modal) observe(outcome string) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.ObserveCancellation(outcome)
	}
}

func (m *Modal) render() {
	m.deps.Renderer.RenderModal(m.state)
}
