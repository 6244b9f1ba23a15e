package slots

import (
	"context"
	"sort"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	"github.com/MEPPERDONAS/185-reservas/internal/eventloop"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// Booker is the slice of the booking API cells need.
type Booker interface {
	Book(ctx context.Context, req bookingapi.BookRequest) (*bookingapi.BookResponse, error)
}

// Notifier shows user feedback.
type Notifier interface {
	Show(message string, kind view.ToastKind)
}

// NameKeeper is the saved-name half of the page session.
type NameKeeper interface {
	SavedName() string
	SaveName(ctx context.Context, name string)
}

// BookingObserver counts booking outcomes.
type BookingObserver interface {
	ObserveBooking(outcome string)
}

// Deps are shared by every cell on a page.
type Deps struct {
	Loop     *eventloop.Loop
	Renderer view.Renderer
	Prompter view.Prompter
	Session  NameKeeper
	API      Booker
	Toasts   Notifier
	Metrics  BookingObserver
	Logger   *logging.Logger
}

// Grid owns the page's cells and finds them by slot or by booking id.
type Grid struct {
	deps   Deps
	logger *logging.Logger

	cells     map[view.SlotKey]*Cell
	order     []view.SlotKey
	byBooking map[string]*Cell
}

// NewGrid creates an empty grid.
func NewGrid(deps Deps) *Grid {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Grid{
		deps:      deps,
		logger:    logger,
		cells:     make(map[view.SlotKey]*Cell),
		byBooking: make(map[string]*Cell),
	}
}

// Add constructs the cell for a server-rendered slot. A second Add for the
// same key replaces the first cell's view.
func (g *Grid) Add(v view.SlotView) *Cell {
	if c, ok := g.cells[v.Key]; ok {
		prev := c.view
		c.view = v
		g.reindex(c, prev)
		return c
	}
	c := &Cell{grid: g, view: v, bound: true}
	g.cells[v.Key] = c
	g.order = append(g.order, v.Key)
	g.reindex(c, view.SlotView{})
	return c
}

// Lookup finds the cell for key.
func (g *Grid) Lookup(key view.SlotKey) (*Cell, bool) {
	c, ok := g.cells[key]
	return c, ok
}

// ByBookingID finds the cell currently showing bookingID.
func (g *Grid) ByBookingID(bookingID string) (*Cell, bool) {
	c, ok := g.byBooking[bookingID]
	return c, ok
}

// All returns the cells in the order they were added.
func (g *Grid) All() []*Cell {
	out := make([]*Cell, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.cells[key])
	}
	return out
}

// Bookings lists the booking ids currently shown, sorted.
func (g *Grid) Bookings() []string {
	out := make([]string, 0, len(g.byBooking))
	for id := range g.byBooking {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ResetBooking reverts the cell showing bookingID to available. It reports
// whether such a cell exists.
func (g *Grid) ResetBooking(bookingID string) bool {
	c, ok := g.byBooking[bookingID]
	if !ok {
		return false
	}
	c.Reset()
	return true
}

func (g *Grid) reindex(c *Cell, prev view.SlotView) {
	if prev.Booking != nil && g.byBooking[prev.Booking.BookingID] == c {
		delete(g.byBooking, prev.Booking.BookingID)
	}
	if b := c.view.Booking; b != nil && b.BookingID != "" {
		g.byBooking[b.BookingID] = c
	}
}

func (g *Grid) observe(outcome string) {
	if g.deps.Metrics != nil {
		g.deps.Metrics.ObserveBooking(outcome)
	}
}
