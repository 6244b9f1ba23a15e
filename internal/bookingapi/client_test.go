package bookingapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, time.Second, logging.New("error"))
}

func TestClient_Book_SendsForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/book", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2026-03-02", r.PostForm.Get("date"))
		assert.Equal(t, "research", r.PostForm.Get("queue"))
		assert.Equal(t, "10:00", r.PostForm.Get("time"))
		assert.Equal(t, "Ana", r.PostForm.Get("booked_by"))
		_, _ = w.Write([]byte(`{"success":true,"booking_id":17}`))
	})

	resp, err := client.Book(context.Background(), BookRequest{Date: "2026-03-02", Queue: "research", Time: "10:00", BookedBy: "Ana"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, ID("17"), resp.BookingID)
}

func TestClient_Book_BusinessFailureOnNon2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"message":"Slot already booked"}`))
	})

	resp, err := client.Book(context.Background(), BookRequest{Date: "d", Queue: "q", Time: "t", BookedBy: "n"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Slot already booked", resp.Message)
}

func TestClient_Book_UndecodableIsTransport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failed", http.StatusBadGateway)
	})

	_, err := client.Book(context.Background(), BookRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestClient_NetworkErrorIsTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := ts.URL
	ts.Close()

	client := NewClient(addr, time.Second, logging.New("error"))
	_, err := client.CancelBooking(context.Background(), CancelRequest{BookingID: "1", BookedByUser: "Ana"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_CancelBooking(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cancel_booking", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "b-9", r.PostForm.Get("booking_id"))
		assert.Equal(t, "Ana", r.PostForm.Get("booked_by_user"))
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	resp, err := client.CancelBooking(context.Background(), CancelRequest{BookingID: "b-9", BookedByUser: "Ana"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestClient_FindClosestSlot_PassesFormThrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/find_closest_slot", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "training", r.PostForm.Get("queue_type"))
		_, _ = w.Write([]byte(`{"success":true,"message":"Next slot","date":"2026-03-02","time":"14:00","timestamp_utc":1772460000000}`))
	})

	resp, err := client.FindClosestSlot(context.Background(), url.Values{"queue_type": {"training"}})
	require.NoError(t, err)
	target, err := resp.Target()
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1772460000000).UTC(), target)
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Book(ctx, BookRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_FetchPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/", r.URL.Path)
		_, _ = w.Write([]byte(`<html><body><td class="slot available"></td></body></html>`))
	})

	body, err := client.FetchPage(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(body), "slot available")
}

func TestClient_FetchPage_Non2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchPage(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestClient_NoTimeoutByDefault(t *testing.T) {
	assert.Zero(t, NewClient("http://booking.local", 0, nil).httpClient.Timeout)
	assert.Zero(t, NewClient("http://booking.local", -time.Second, nil).httpClient.Timeout)
	assert.Equal(t, 5*time.Second, NewClient("http://booking.local", 5*time.Second, nil).httpClient.Timeout)
}

func TestClient_SlowServerFollowsContextOnly(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"booking_id":7}`))
	}))
	t.Cleanup(ts.Close)
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	client := NewClient(ts.URL, 0, logging.New("error"))

	done := make(chan error, 1)
	go func() {
		_, err := client.Book(context.Background(), BookRequest{Date: "2026-05-04", Queue: "research", Time: "10:00", BookedBy: "Ana"})
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("request finished before the server answered: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	unblock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("request did not finish after the server answered")
	}
}
