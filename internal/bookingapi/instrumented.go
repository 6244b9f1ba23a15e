package bookingapi

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// NetworkErrorMessage is shown when a booking or cancellation got no usable
// answer from the server.
const NetworkErrorMessage = "Network error. Please try again."

// FailureMessage picks the text a user sees for a failed call: the server's
// own message when it sent one, the generic network message otherwise.
func FailureMessage(serverMessage string, err error) string {
	if err != nil || strings.TrimSpace(serverMessage) == "" {
		return NetworkErrorMessage
	}
	return serverMessage
}

// IsTransport reports whether err means the server never answered usefully.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// LatencyObserver records booking server call durations.
type LatencyObserver interface {
	ObserveAPILatency(endpoint string, seconds float64)
}

// Instrumented wraps an API and records the latency of every call.
type Instrumented struct {
	next     API
	observer LatencyObserver
	now      func() time.Time
}

var _ API = (*Instrumented)(nil)

// NewInstrumented decorates next. A nil observer makes it a passthrough.
func NewInstrumented(next API, observer LatencyObserver) *Instrumented {
	return &Instrumented{next: next, observer: observer, now: time.Now}
}

func (i *Instrumented) observe(endpoint string, start time.Time) {
	if i.observer == nil {
		return
	}
	i.observer.ObserveAPILatency(endpoint, i.now().Sub(start).Seconds())
}

func (i *Instrumented) Book(ctx context.Context, req BookRequest) (*BookResponse, error) {
	defer i.observe("book", i.now())
	return i.next.Book(ctx, req)
}

func (i *Instrumented) CancelBooking(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	defer i.observe("cancel_booking", i.now())
	return i.next.CancelBooking(ctx, req)
}

func (i *Instrumented) FindClosestSlot(ctx context.Context, form url.Values) (*ClosestSlotResponse, error) {
	defer i.observe("find_closest_slot", i.now())
	return i.next.FindClosestSlot(ctx, form)
}
