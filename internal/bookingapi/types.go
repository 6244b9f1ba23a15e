// Package bookingapi is the HTTP client for the remote booking server that
// owns slot availability.
package bookingapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// BookRequest is the form posted to /book.
type BookRequest struct {
	Date     string
	Queue    string
	Time     string
	BookedBy string
}

// BookResponse is the JSON returned by /book.
type BookResponse struct {
	Success   bool   `json:"success"`
	BookingID ID     `json:"booking_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// CancelRequest is the form posted to /cancel_booking.
type CancelRequest struct {
	BookingID    string
	BookedByUser string
}

// CancelResponse is the JSON returned by /cancel_booking.
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ClosestSlotResponse is the JSON returned by /find_closest_slot.
type ClosestSlotResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	TimestampUTC Timestamp `json:"timestamp_utc"`
}

// Target returns the instant the closest slot starts. The server timestamp
// wins; without one the instant is composed from date and time in UTC.
func (r *ClosestSlotResponse) Target() (time.Time, error) {
	if r.TimestampUTC.Valid {
		return r.TimestampUTC.Time, nil
	}
	date := strings.TrimSpace(r.Date)
	clock := strings.TrimSpace(r.Time)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("bookingapi: closest slot has no timestamp, date or time")
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bookingapi: parse closest slot %q %q", date, clock)
}

// ID accepts booking identifiers encoded as JSON strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("booking_id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// secondsCutoff separates epoch seconds from epoch milliseconds: numbers
// below it are read as seconds.
const secondsCutoff = 1e11

// Timestamp accepts epoch milliseconds, epoch seconds, or RFC 3339 strings.
// Any other value decodes as absent, with Raw holding what was sent.
type Timestamp struct {
	Time  time.Time
	Valid bool
	Raw   string
}

// FromEpochMillis builds a Timestamp from epoch milliseconds.
func FromEpochMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms).UTC(), Valid: true}
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*ts = Timestamp{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*ts = Timestamp{Time: t.UTC(), Valid: true}
			return nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*ts = fromNumber(n)
			return nil
		}
		ts.Raw = s
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		ts.Raw = string(data)
		return nil
	}
	*ts = fromNumber(n)
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(ts.Time.UnixMilli(), 10)), nil
}

func fromNumber(n float64) Timestamp {
	if math.Abs(n) < secondsCutoff {
		ms := int64(math.Round(n * 1000))
		return FromEpochMillis(ms)
	}
	return FromEpochMillis(int64(n))
}
