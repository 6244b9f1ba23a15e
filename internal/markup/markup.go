// Package markup reads the booking server's rendered page and extracts the
// elements the interaction layer binds to.
package markup

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/MEPPERDONAS/185-reservas/internal/toast"
	"github.com/MEPPERDONAS/185-reservas/internal/view"
)

const (
	classSlot        = "slot"
	classAvailable   = "available"
	classBooked      = "booked"
	classPast        = "past-slot"
	classLoading     = "loading"
	classCancel      = "cancel-btn"
	classHiddenDay   = "hidden-day-container"
	classFlash       = "flash-message"
	toggleDaysButton = "toggleDaysButton"
)

// Layout is everything the page initializer wires up.
type Layout struct {
	Slots []view.SlotView
	// Affordances are the cancel controls present at load, in document order.
	Affordances []view.BookingRef
	// ExtraDays are the dates of the hidden-day containers.
	ExtraDays []string
	HasToggle bool
	Flash     []toast.FlashMessage
}

// Parse reads a full page.
func Parse(r io.Reader) (*Layout, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("markup: parse: %w", err)
	}
	layout := &Layout{}
	seen := make(map[view.SlotKey]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			classes := classSet(attr(n, "class"))
			switch {
			case classes[classSlot] && hasAttr(n, "data-date"):
				if v, ok := slotView(n, classes); ok && !seen[v.Key] {
					seen[v.Key] = true
					layout.Slots = append(layout.Slots, v)
				}
			case classes[classHiddenDay]:
				date := attr(n, "data-date")
				if date == "" {
					date = attr(n, "id")
				}
				if date != "" {
					layout.ExtraDays = append(layout.ExtraDays, date)
				}
			case classes[classFlash]:
				msg := attr(n, "data-message")
				if msg == "" {
					msg = strings.TrimSpace(text(n))
				}
				if msg != "" {
					layout.Flash = append(layout.Flash, toast.FlashMessage{Category: attr(n, "data-category"), Message: msg})
				}
			}
			if classes[classCancel] {
				if ref, ok := bookingRef(n); ok {
					layout.Affordances = append(layout.Affordances, ref)
				}
			}
			if attr(n, "id") == toggleDaysButton {
				layout.HasToggle = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return layout, nil
}

func slotView(n *html.Node, classes map[string]bool) (view.SlotView, bool) {
	key := view.SlotKey{
		Date:  attr(n, "data-date"),
		Queue: attr(n, "data-queue"),
		Time:  attr(n, "data-time"),
	}
	if key.Date == "" || key.Queue == "" || key.Time == "" {
		return view.SlotView{}, false
	}
	v := view.SlotView{
		Key:    key,
		Class:  attr(n, "class"),
		Markup: innerHTML(n),
	}
	switch {
	case classes[classPast]:
		v.State = view.StatePast
	case classes[classLoading]:
		v.State = view.StateLoading
	case classes[classAvailable]:
		v.State = view.StateAvailable
	default:
		v.State = view.StateBooked
	}
	if v.State == view.StateBooked || v.State == view.StatePast {
		if btn := find(n, classCancel); btn != nil {
			if ref, ok := bookingRef(btn); ok {
				v.Booking = &ref
				v.BookedBy = ref.BookedBy
			}
		}
		if v.BookedBy == "" {
			v.BookedBy = attr(n, "data-booked-by")
		}
	}
	return v, true
}

func bookingRef(n *html.Node) (view.BookingRef, bool) {
	ref := view.BookingRef{
		BookingID: attr(n, "data-booking-id"),
		BookedBy:  attr(n, "data-booked-by"),
	}
	return ref, ref.BookingID != ""
}

func find(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && classSet(attr(c, "class"))[class] {
			return c
		}
		if found := find(c, class); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func classSet(class string) map[string]bool {
	set := make(map[string]bool)
	for _, c := range strings.Fields(class) {
		set[c] = true
	}
	return set
}

func innerHTML(n *html.Node) string {
	var b bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// rendering a parsed tree into a buffer does not fail
		_ = html.Render(&b, c)
	}
	return strings.TrimSpace(b.String())
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
