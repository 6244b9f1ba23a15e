// Package search runs the closest-slot search: it asks the booking server for
// the nearest free slot, starts the countdown to it and points the user at
// the matching row.
package search

import (
	"context"
	"net/url"
	"time"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// CalculationErrorMessage is rendered when the search got no usable answer.
const CalculationErrorMessage = "Error calculating the closest slot."

const DefaultHighlightDuration = 2500 * time.Millisecond

// Finder is the slice of the booking API the search needs.
type Finder interface {
	FindClosestSlot(ctx context.Context, form url.Values) (*bookingapi.ClosestSlotResponse, error)
}

// Countdown is started with the found slot's instant.
type Countdown interface {
	Start(target time.Time)
}

// DayRevealer temporarily expands hidden extra days holding date.
type DayRevealer interface {
	Reveal(date string) bool
	Conceal()
}

// Search is the closest-slot form handler.
type Search struct {
	loop      *eventloop.Loop
	finder    Finder
	countdown Countdown
	days      DayRevealer
	renderer  view.Renderer
	highlight time.Duration
	logger    *logging.Logger

	highlighted *highlight
}

type highlight struct {
	date, time string
	timer      clock.Timer
}

// New creates a search handler. A non-positive highlight takes the default.
func New(loop *eventloop.Loop, finder Finder, countdown Countdown, days DayRevealer, renderer view.Renderer, highlightFor time.Duration, logger *logging.Logger) *Search {
	if highlightFor <= 0 {
		highlightFor = DefaultHighlightDuration
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Search{
		loop:      loop,
		finder:    finder,
		countdown: countdown,
		days:      days,
		renderer:  renderer,
		highlight: highlightFor,
		logger:    logger,
	}
}

// Submit sends the search form fields as they are.
func (s *Search) Submit(ctx context.Context, form url.Values) {
	eventloop.Await(s.loop, ctx, func(ctx context.Context) (*bookingapi.ClosestSlotResponse, error) {
		return s.finder.FindClosestSlot(ctx, form)
	}, s.complete)
}

func (s *Search) complete(resp *bookingapi.ClosestSlotResponse, err error) {
	if err != nil {
		s.logger.Warn("search: find closest slot failed", "error", err)
		s.renderer.RenderSearchResult(view.SearchResult{Message: CalculationErrorMessage, Error: true})
		return
	}
	if !resp.Success {
		s.renderer.RenderSearchResult(view.SearchResult{Message: resp.Message, Error: true})
		return
	}

	if ts := resp.TimestampUTC; !ts.Valid && ts.Raw != "" {
		s.logger.Warn("search: ignoring unparseable timestamp", "timestamp_utc", ts.Raw, "date", resp.Date, "time", resp.Time)
	}
	target, err := resp.Target()
	if err != nil {
		s.logger.Warn("search: closest slot without a usable instant", "date", resp.Date, "time", resp.Time, "error", err)
		s.renderer.RenderSearchResult(view.SearchResult{Message: CalculationErrorMessage, Error: true})
		return
	}

	s.countdown.Start(target)
	s.renderer.RenderSearchResult(view.SearchResult{Message: resp.Message})

	if resp.Date == "" {
		return
	}
	if s.days != nil {
		s.days.Reveal(resp.Date)
	}
	s.renderer.ScrollToDay(resp.Date)
	s.pulse(resp.Date, resp.Time)
}

// pulse highlights one hour row for the highlight duration, then collapses
// any days the search revealed. A newer pulse clears the previous row first
// and takes over the collapse.
func (s *Search) pulse(date, hour string) {
	if prev := s.highlighted; prev != nil {
		prev.timer.Stop()
		if prev.time != "" {
			s.renderer.HighlightRow(prev.date, prev.time, false)
		}
		s.highlighted = nil
	}

	h := &highlight{date: date, time: hour}
	if hour != "" {
		s.renderer.HighlightRow(date, hour, true)
	}
	h.timer = s.loop.AfterFunc(s.highlight, func() {
		if s.highlighted != h {
			return
		}
		if hour != "" {
			s.renderer.HighlightRow(date, hour, false)
		}
		s.highlighted = nil
		if s.days != nil {
			s.days.Conceal()
		}
	})
	s.highlighted = h
}
