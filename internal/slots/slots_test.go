package slots

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/session"
	"github.com/MEPPERDONAS/185-reservas/internal/toast"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/internal/view/viewtest"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

var key = view.SlotKey{Date: "2026-05-04", Queue: "research", Time: "10:00"}

type fakeBooker struct {
	mu       sync.Mutex
	requests []bookingapi.BookRequest
	resp     *bookingapi.BookResponse
	err      error
	// onBook runs before the answer is returned, to observe in-flight state
	onBook func()
}

func (f *fakeBooker) Book(_ context.Context, req bookingapi.BookRequest) (*bookingapi.BookResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	hook := f.onBook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.resp, f.err
}

type outcomes struct{ seen []string }

func (o *outcomes) ObserveBooking(outcome string) { o.seen = append(o.seen, outcome) }

type fixture struct {
	loop     *eventloop.Loop
	rec      *viewtest.Recorder
	api      *fakeBooker
	session  *session.Context
	names    session.NameStore
	grid     *Grid
	outcomes *outcomes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, session.NewMemoryNameStore())
}

func newFixtureWithStore(t *testing.T, names session.NameStore) *fixture {
	t.Helper()
	logger := logging.New("error")
	clk := clock.NewFake(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	loop := eventloop.New(clk, logger)
	rec := viewtest.New()
	sc := session.New(context.Background(), "device-1", names, logger)
	api := &fakeBooker{}
	obs := &outcomes{}
	grid := NewGrid(Deps{
		Loop:     loop,
		Renderer: rec,
		Prompter: rec,
		Session:  sc,
		API:      api,
		Toasts:   toast.New(loop, rec, toast.Options{}, logger),
		Metrics:  obs,
		Logger:   logger,
	})
	return &fixture{loop: loop, rec: rec, api: api, session: sc, names: names, grid: grid, outcomes: obs}
}

func (f *fixture) click(c *Cell) {
	c.Activate(context.Background())
	f.loop.Flush()
}

func serverMarkup(k view.SlotKey) view.SlotView {
	return view.SlotView{
		Key:    k,
		State:  view.StateAvailable,
		Class:  "slot available",
		Markup: `<span class="free">Free</span>`,
	}
}

func lastToast(t *testing.T, rec *viewtest.Recorder) view.ToastView {
	t.Helper()
	got, ok := rec.LastToast()
	require.True(t, ok, "expected a toast")
	return got
}

func TestBookingSuccess(t *testing.T) {
	f := newFixture(t)
	cell := f.grid.Add(serverMarkup(key))
	f.api.resp = &bookingapi.BookResponse{Success: true, BookingID: "42"}
	f.rec.Submit("  Ana  ")

	f.click(cell)

	require.Len(t, f.api.requests, 1)
	assert.Equal(t, bookingapi.BookRequest{Date: "2026-05-04", Queue: "research", Time: "10:00", BookedBy: "Ana"}, f.api.requests[0])

	got, ok := f.rec.Slot(key)
	require.True(t, ok)
	assert.Equal(t, view.StateBooked, got.State)
	assert.Equal(t, "Ana", got.BookedBy)
	require.NotNil(t, got.Booking)
	assert.Equal(t, view.BookingRef{BookingID: "42", BookedBy: "Ana"}, *got.Booking)
	assert.Contains(t, got.Markup, `data-booking-id="42"`)
	assert.Contains(t, got.Markup, `class="cancel-btn"`)

	found, ok := f.grid.ByBookingID("42")
	require.True(t, ok)
	assert.Same(t, cell, found)
	assert.True(t, cell.Bound())

	toastView := lastToast(t, f.rec)
	assert.Equal(t, view.ToastSuccess, toastView.Kind)
	assert.Contains(t, toastView.Message, "research")
	assert.Equal(t, []string{metrics.OutcomeSuccess}, f.outcomes.seen)
}

func TestPromptUsesSavedNameAndPersistsBeforeRequest(t *testing.T) {
	f := newFixture(t)
	f.session.SaveName(context.Background(), "Bea")
	cell := f.grid.Add(serverMarkup(key))

	f.api.onBook = func() {
		assert.Equal(t, "Carla", f.session.SavedName(), "name is saved before the request goes out")
	}
	f.api.resp = &bookingapi.BookResponse{Success: true, BookingID: "1"}
	f.rec.Submit("Carla")
	f.click(cell)

	require.Len(t, f.rec.Prompts, 1)
	assert.Equal(t, "Bea", f.rec.Prompts[0].DefaultValue)
	assert.Equal(t, "Book slot for 2026-05-04 at 10:00 in research. Please enter your name:", f.rec.Prompts[0].Message)
	assert.Equal(t, "Carla", f.session.SavedName())

	f.session.WaitSaved()
	name, err := f.names.GetName(context.Background(), "device-1")
	require.NoError(t, err)
	assert.Equal(t, "Carla", name)
}

type slowNameStore struct {
	*session.MemoryNameStore
	release chan struct{}
}

func (s *slowNameStore) SetName(ctx context.Context, deviceID, name string) error {
	<-s.release
	return s.MemoryNameStore.SetName(ctx, deviceID, name)
}

func TestSlowNameStoreDoesNotStallLoop(t *testing.T) {
	store := &slowNameStore{MemoryNameStore: session.NewMemoryNameStore(), release: make(chan struct{})}
	f := newFixtureWithStore(t, store)
	cell := f.grid.Add(serverMarkup(key))
	f.api.resp = &bookingapi.BookResponse{Success: true, BookingID: "5"}
	f.rec.Submit("Bob")

	ran := false
	cell.Activate(context.Background())
	f.loop.Post(func() { ran = true })
	f.loop.Flush()

	assert.True(t, ran, "later callbacks run while the name is still being written")
	assert.Equal(t, view.StateBooked, cell.State())
	require.Len(t, f.api.requests, 1)

	close(store.release)
	f.session.WaitSaved()
	name, err := store.GetName(context.Background(), "device-1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
}

func TestDismissedPromptDoesNothing(t *testing.T) {
	f := newFixture(t)
	cell := f.grid.Add(serverMarkup(key))
	f.rec.Dismiss()

	f.click(cell)

	assert.Empty(t, f.api.requests)
	assert.Empty(t, f.rec.ToastHistory)
	assert.Empty(t, f.rec.SlotHistory)
	assert.True(t, cell.Bound())
}

func TestBlankNameNeverCallsServer(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		f := newFixture(t)
		cell := f.grid.Add(serverMarkup(key))
		f.rec.Submit(name)

		f.click(cell)

		assert.Empty(t, f.api.requests)
		toastView := lastToast(t, f.rec)
		assert.Equal(t, NameRequiredMessage, toastView.Message)
		assert.Equal(t, view.ToastError, toastView.Kind)
		assert.Equal(t, view.StateAvailable, cell.State())
		assert.Empty(t, f.session.SavedName())
	}
}

func TestFailureRestoresExactMarkup(t *testing.T) {
	cases := []struct {
		name    string
		resp    *bookingapi.BookResponse
		err     error
		message string
		outcome string
	}{
		{"business", &bookingapi.BookResponse{Success: false, Message: "Slot already booked"}, nil, "Slot already booked", metrics.OutcomeRejected},
		{"business without message", &bookingapi.BookResponse{Success: false}, nil, bookingapi.NetworkErrorMessage, metrics.OutcomeRejected},
		{"transport", nil, fmt.Errorf("%w: refused", bookingapi.ErrTransport), bookingapi.NetworkErrorMessage, metrics.OutcomeTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			before := serverMarkup(key)
			cell := f.grid.Add(before)
			f.api.resp, f.api.err = tc.resp, tc.err
			f.rec.Submit("Ana")

			f.click(cell)

			require.Len(t, f.rec.SlotHistory, 2)
			assert.Equal(t, view.StateLoading, f.rec.SlotHistory[0].State)
			after, _ := f.rec.Slot(key)
			assert.Equal(t, before.Class, after.Class)
			assert.Equal(t, before.Markup, after.Markup)
			assert.Equal(t, before, cell.View())
			assert.True(t, cell.Bound(), "trigger is reattached")

			toastView := lastToast(t, f.rec)
			assert.Equal(t, tc.message, toastView.Message)
			assert.Equal(t, view.ToastError, toastView.Kind)
			assert.Equal(t, []string{tc.outcome}, f.outcomes.seen)
		})
	}
}

func TestInFlightCellIgnoresActivation(t *testing.T) {
	f := newFixture(t)
	cell := f.grid.Add(serverMarkup(key))
	f.api.resp = &bookingapi.BookResponse{Success: true, BookingID: "9"}
	f.api.onBook = func() {
		// a second click lands while the booking is in flight
		f.loop.Post(func() {
			assert.False(t, cell.Bound())
			assert.Equal(t, view.StateLoading, cell.State())
			cell.Activate(context.Background())
		})
	}
	f.rec.Submit("Ana")
	f.rec.Submit("Other")

	f.click(cell)

	assert.Len(t, f.api.requests, 1)
	assert.Len(t, f.rec.Prompts, 1)
}

func TestNonAvailableCellsShowInfo(t *testing.T) {
	f := newFixture(t)
	past := f.grid.Add(view.SlotView{Key: view.SlotKey{Date: "2026-05-01", Queue: "research", Time: "08:00"}, State: view.StatePast, Class: "slot past-slot"})
	booked := f.grid.Add(view.SlotView{
		Key:      view.SlotKey{Date: "2026-05-04", Queue: "training", Time: "09:00"},
		State:    view.StateBooked,
		BookedBy: "Dan",
		Booking:  &view.BookingRef{BookingID: "5", BookedBy: "Dan"},
		Class:    "slot booked",
	})

	f.click(past)
	assert.Equal(t, PastMessage, lastToast(t, f.rec).Message)
	assert.Equal(t, view.ToastInfo, lastToast(t, f.rec).Kind)

	f.click(booked)
	assert.Equal(t, AlreadyBookedMessage, lastToast(t, f.rec).Message)
	assert.Equal(t, view.ToastInfo, lastToast(t, f.rec).Kind)

	assert.Empty(t, f.api.requests)
	assert.Empty(t, f.rec.Prompts)
}

func TestResetBookingRevertsToAvailable(t *testing.T) {
	f := newFixture(t)
	ref := view.BookingRef{BookingID: "5", BookedBy: "Dan"}
	cell := f.grid.Add(view.BookedSlot(key, ref))

	assert.Equal(t, []string{"5"}, f.grid.Bookings())
	assert.False(t, f.grid.ResetBooking("missing"))
	require.True(t, f.grid.ResetBooking("5"))

	assert.Equal(t, view.AvailableSlot(key), cell.View())
	assert.Empty(t, f.grid.Bookings())
	_, ok := f.grid.ByBookingID("5")
	assert.False(t, ok)

	f.api.resp = &bookingapi.BookResponse{Success: true, BookingID: "6"}
	f.rec.Submit("Eve")
	f.click(cell)
	assert.Len(t, f.api.requests, 1, "a reset cell is bookable again")
}

func TestGridLookupAndOrder(t *testing.T) {
	f := newFixture(t)
	second := view.SlotKey{Date: "2026-05-04", Queue: "building", Time: "11:00"}
	a := f.grid.Add(serverMarkup(key))
	b := f.grid.Add(serverMarkup(second))

	got, ok := f.grid.Lookup(second)
	require.True(t, ok)
	assert.Same(t, b, got)
	_, ok = f.grid.Lookup(view.SlotKey{})
	assert.False(t, ok)
	assert.Equal(t, []*Cell{a, b}, f.grid.All())

	again := f.grid.Add(view.BookedSlot(key, view.BookingRef{BookingID: "3", BookedBy: "Ana"}))
	assert.Same(t, a, again)
	assert.Len(t, f.grid.All(), 2)
	assert.Equal(t, []string{"3"}, f.grid.Bookings())
}
