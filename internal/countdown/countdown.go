// Package countdown renders the time left until a target instant, once per
// second, until it reaches zero.
package countdown

import (
	"fmt"
	"time"

	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// PassedMessage is the terminal rendering.
const PassedMessage = "The time has passed"

const tick = time.Second

// Observer counts started countdowns.
type Observer interface {
	ObserveCountdownStart()
}

// Countdown owns the page's single countdown timer.
type Countdown struct {
	loop     *eventloop.Loop
	renderer view.Renderer
	metrics  Observer
	logger   *logging.Logger

	target time.Time
	timer  clock.Timer
	// generation invalidates ticks of a superseded countdown that were
	// already queued on the loop when it was replaced
	generation uint64
	active     bool
}

// New creates an idle countdown.
func New(loop *eventloop.Loop, renderer view.Renderer, metrics Observer, logger *logging.Logger) *Countdown {
	if logger == nil {
		logger = logging.Default()
	}
	return &Countdown{loop: loop, renderer: renderer, metrics: metrics, logger: logger}
}

// Start cancels any running countdown and counts down to target, rendering
// immediately.
func (c *Countdown) Start(target time.Time) {
	c.Stop()
	c.target = target
	c.active = true
	if c.metrics != nil {
		c.metrics.ObserveCountdownStart()
	}
	c.logger.Debug("countdown: started", "target", target.UTC().Format(time.RFC3339))
	c.render(c.generation)
}

// StartEpochMillis starts a countdown to the instant ms milliseconds after
// the Unix epoch.
func (c *Countdown) StartEpochMillis(ms int64) {
	c.Start(time.UnixMilli(ms))
}

// Stop halts updates without rendering anything.
func (c *Countdown) Stop() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.active = false
}

// Active reports whether the countdown is still ticking.
func (c *Countdown) Active() bool { return c.active }

// Target is the instant being counted down to.
func (c *Countdown) Target() time.Time { return c.target }

func (c *Countdown) render(generation uint64) {
	if generation != c.generation {
		return
	}
	remaining := c.target.Sub(c.loop.Now())
	if remaining <= 0 {
		c.renderer.RenderCountdown(PassedMessage)
		c.timer = nil
		c.active = false
		return
	}
	c.renderer.RenderCountdown(Format(remaining))
	c.timer = c.loop.AfterFunc(tick, func() { c.render(generation) })
}

// Format splits d into whole days, hours, minutes and seconds. Anything below
// a second is dropped.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}
