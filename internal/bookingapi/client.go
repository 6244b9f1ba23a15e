package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

const (
	maxLoggedBody   = 300
	maxPageBodySize = 4 << 20
)

var tracer = otel.Tracer("reservas.internal.bookingapi")

// ErrTransport marks failures where no usable answer came back from the
// booking server: network errors, unreadable or undecodable bodies.
var ErrTransport = errors.New("bookingapi: transport failure")

// API is the booking server surface the page components depend on.
type API interface {
	Book(ctx context.Context, req BookRequest) (*BookResponse, error)
	CancelBooking(ctx context.Context, req CancelRequest) (*CancelResponse, error)
	FindClosestSlot(ctx context.Context, form url.Values) (*ClosestSlotResponse, error)
}

// Client calls the booking server with form-encoded POSTs and decodes JSON
// answers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
}

var _ API = (*Client)(nil)

// NewClient constructs a booking server client. A non-positive timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout < 0 {
		timeout = 0
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Book asks the server to reserve a slot.
func (c *Client) Book(ctx context.Context, req BookRequest) (*BookResponse, error) {
	form := url.Values{}
	form.Set("date", req.Date)
	form.Set("queue", req.Queue)
	form.Set("time", req.Time)
	form.Set("booked_by", req.BookedBy)

	var resp BookResponse
	if err := c.postForm(ctx, "/book", form, &resp); err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}
	return &resp, nil
}

// CancelBooking asks the server to release a booking made under the given name.
func (c *Client) CancelBooking(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	form := url.Values{}
	form.Set("booking_id", req.BookingID)
	form.Set("booked_by_user", req.BookedByUser)

	var resp CancelResponse
	if err := c.postForm(ctx, "/cancel_booking", form, &resp); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return &resp, nil
}

// FindClosestSlot posts the search form as-is.
func (c *Client) FindClosestSlot(ctx context.Context, form url.Values) (*ClosestSlotResponse, error) {
	var resp ClosestSlotResponse
	if err := c.postForm(ctx, "/find_closest_slot", form, &resp); err != nil {
		return nil, fmt.Errorf("find closest slot: %w", err)
	}
	return &resp, nil
}

// FetchPage downloads the server-rendered booking page.
func (c *Client) FetchPage(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "bookingapi.fetch_page")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch page: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch page: %w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w: read body: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("fetch page: booking server returned %d", resp.StatusCode)
	}
	return body, nil
}

// postForm submits form to path and decodes the JSON answer into out. A
// non-2xx answer that still decodes is returned as-is: the server reports
// business failures that way.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	ctx, span := tracer.Start(ctx, "bookingapi.post "+path)
	defer span.End()
	span.SetAttributes(attribute.String("reservas.path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http request failed")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		msg := string(body)
		if len(msg) > maxLoggedBody {
			msg = msg[:maxLoggedBody]
		}
		c.logger.Warn("booking server returned undecodable body", "status", resp.StatusCode, "path", path, "body", msg)
		span.SetStatus(codes.Error, "decode response")
		return fmt.Errorf("%w: status %d: decode response: %v", ErrTransport, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("booking server rejected request", "status", resp.StatusCode, "path", path)
	}
	return nil
}
