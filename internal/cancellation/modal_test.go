package cancellation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/session"
	"github.com/MEPPERDONAS/185-reservas/internal/slots"
	"github.com/MEPPERDONAS/185-reservas/internal/toast"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/internal/view/viewtest"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

var (
	slotKey = view.SlotKey{Date: "2026-05-04", Queue: "research", Time: "10:00"}
	booking = view.BookingRef{BookingID: "17", BookedBy: "Ana"}
)

type fakeCanceller struct {
	requests []bookingapi.CancelRequest
	resp     *bookingapi.CancelResponse
	err      error
	onCancel func()
}

func (f *fakeCanceller) CancelBooking(_ context.Context, req bookingapi.CancelRequest) (*bookingapi.CancelResponse, error) {
	f.requests = append(f.requests, req)
	if f.onCancel != nil {
		f.onCancel()
	}
	return f.resp, f.err
}

type outcomes struct{ seen []string }

func (o *outcomes) ObserveCancellation(outcome string) { o.seen = append(o.seen, outcome) }

type fixture struct {
	loop     *eventloop.Loop
	rec      *viewtest.Recorder
	api      *fakeCanceller
	session  *session.Context
	grid     *slots.Grid
	modal    *Modal
	outcomes *outcomes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.New("error")
	loop := eventloop.New(clock.NewFake(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)), logger)
	rec := viewtest.New()
	sc := session.New(context.Background(), "device-1", session.NewMemoryNameStore(), logger)
	toasts := toast.New(loop, rec, toast.Options{}, logger)
	grid := slots.NewGrid(slots.Deps{Loop: loop, Renderer: rec, Prompter: rec, Session: sc, Toasts: toasts, Logger: logger})
	grid.Add(view.BookedSlot(slotKey, booking))
	api := &fakeCanceller{}
	obs := &outcomes{}
	modal := New(Deps{
		Loop:     loop,
		Renderer: rec,
		Session:  sc,
		API:      api,
		Cells:    grid,
		Toasts:   toasts,
		Metrics:  obs,
		Logger:   logger,
	})
	return &fixture{loop: loop, rec: rec, api: api, session: sc, grid: grid, modal: modal, outcomes: obs}
}

func (f *fixture) confirm(name string) {
	f.modal.Confirm(context.Background(), name)
	f.loop.Flush()
}

func TestOpenPrefillsSavedName(t *testing.T) {
	f := newFixture(t)
	f.session.SaveName(context.Background(), "Ana")

	stop := f.modal.Affordance(booking)

	assert.True(t, stop, "cancel clicks never reach the cell")
	assert.Equal(t, view.ModalView{Visible: true, BookingID: "17", BookedBy: "Ana", NameInput: "Ana"}, f.rec.Modal)
	pending, ok := f.session.Pending()
	require.True(t, ok)
	assert.Equal(t, booking, pending)
}

func TestOpenReplacesPendingTarget(t *testing.T) {
	f := newFixture(t)
	f.modal.Open(booking)
	f.modal.Open(view.BookingRef{BookingID: "18", BookedBy: "Bea"})

	pending, _ := f.session.Pending()
	assert.Equal(t, "18", pending.BookingID)
	assert.Equal(t, "Bea", f.rec.Modal.BookedBy)
}

func TestCloseAndPointer(t *testing.T) {
	f := newFixture(t)
	f.modal.Open(booking)

	f.modal.PointerDown(TargetContent)
	assert.True(t, f.rec.Modal.Visible, "presses inside the content keep the modal open")

	f.modal.PointerDown(TargetBackdrop)
	assert.False(t, f.rec.Modal.Visible)
	_, ok := f.session.Pending()
	assert.False(t, ok)

	f.modal.Open(booking)
	f.modal.Close()
	assert.Equal(t, view.ModalView{}, f.rec.Modal)
	_, ok = f.session.Pending()
	assert.False(t, ok)
}

func TestConfirmLocalFailuresNeverCallServer(t *testing.T) {
	cases := []struct {
		entered string
		want    string
	}{
		{"", NameRequiredMessage},
		{"   ", NameRequiredMessage},
		{"Bea", NameMismatchMessage},
		{"ana", NameMismatchMessage},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.modal.Open(booking)
		f.confirm(tc.entered)

		assert.Empty(t, f.api.requests, tc.entered)
		assert.Equal(t, tc.want, f.rec.Modal.Error)
		assert.True(t, f.rec.Modal.Visible)
		assert.Equal(t, []string{metrics.OutcomeInvalid}, f.outcomes.seen)
	}
}

func TestConfirmRequiresExactName(t *testing.T) {
	f := newFixture(t)
	f.modal.Open(booking)

	for _, entered := range []string{" Ana ", "ana", "Ana\t"} {
		f.confirm(entered)
		assert.Equal(t, NameMismatchMessage, f.rec.Modal.Error, entered)
	}
	assert.Empty(t, f.api.requests)
	assert.True(t, f.rec.Modal.Visible)
}

func TestConfirmSuccessResetsCell(t *testing.T) {
	f := newFixture(t)
	f.api.resp = &bookingapi.CancelResponse{Success: true}
	f.api.onCancel = func() {
		f.loop.Post(func() { assert.True(t, f.rec.Modal.Busy) })
	}
	f.modal.Open(booking)

	f.confirm("Ana")

	require.Len(t, f.api.requests, 1)
	assert.Equal(t, bookingapi.CancelRequest{BookingID: "17", BookedByUser: "Ana"}, f.api.requests[0])
	assert.False(t, f.rec.Modal.Visible)
	_, ok := f.session.Pending()
	assert.False(t, ok)

	cell, ok := f.grid.Lookup(slotKey)
	require.True(t, ok)
	assert.Equal(t, view.AvailableSlot(slotKey), cell.View())
	assert.True(t, cell.Bound())
	_, ok = f.grid.ByBookingID("17")
	assert.False(t, ok)

	last, _ := f.rec.LastToast()
	assert.Equal(t, view.ToastView{ID: last.ID, Message: SuccessMessage, Kind: view.ToastSuccess}, last)
	assert.Equal(t, []string{metrics.OutcomeSuccess}, f.outcomes.seen)
}

func TestConfirmFailureKeepsModalOpen(t *testing.T) {
	cases := []struct {
		name    string
		resp    *bookingapi.CancelResponse
		err     error
		want    string
		outcome string
	}{
		{"server", &bookingapi.CancelResponse{Success: false, Message: "Booking not found"}, nil, "Booking not found", metrics.OutcomeRejected},
		{"transport", nil, fmt.Errorf("%w: timeout", bookingapi.ErrTransport), bookingapi.NetworkErrorMessage, metrics.OutcomeTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.api.resp, f.api.err = tc.resp, tc.err
			f.modal.Open(booking)

			f.confirm("Ana")

			assert.True(t, f.rec.Modal.Visible)
			assert.False(t, f.rec.Modal.Busy)
			assert.Equal(t, tc.want, f.rec.Modal.Error)
			assert.Equal(t, "Ana", f.rec.Modal.NameInput)
			_, ok := f.session.Pending()
			assert.True(t, ok)

			cell, _ := f.grid.Lookup(slotKey)
			assert.Equal(t, view.StateBooked, cell.State())
			assert.Equal(t, []string{tc.outcome}, f.outcomes.seen)
		})
	}
}

func TestConfirmWithoutPendingTarget(t *testing.T) {
	f := newFixture(t)
	f.confirm("Ana")
	assert.Empty(t, f.api.requests)
	assert.Zero(t, f.rec.ModalRenders)
}

func TestClosedWhileInFlightStillResetsCell(t *testing.T) {
	f := newFixture(t)
	f.api.resp = &bookingapi.CancelResponse{Success: true}
	f.api.onCancel = func() { f.loop.Post(f.modal.Close) }
	f.modal.Open(booking)

	f.confirm("Ana")

	assert.False(t, f.rec.Modal.Visible)
	cell, _ := f.grid.Lookup(slotKey)
	assert.Equal(t, view.StateAvailable, cell.State())
}
