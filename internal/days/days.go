// Package days shows or hides the extra-day panels as a group.
package days

import "github.com/MEPPERDONAS/185-reservas/internal/view"

const (
	LabelShowMore = "Show More Days"
	LabelShowLess = "Show Less Days"
)

// Toggle controls a fixed set of extra-day containers, identified by date.
type Toggle struct {
	renderer   view.Renderer
	containers []string
	index      map[string]struct{}
	showing    bool

	// revealed is set while the days are visible only because of Reveal.
	revealed bool
}

// New creates a toggle over containers. Call Init before use.
func New(renderer view.Renderer, containers []string) *Toggle {
	t := &Toggle{
		renderer:   renderer,
		containers: append([]string(nil), containers...),
		index:      make(map[string]struct{}, len(containers)),
	}
	for _, date := range containers {
		t.index[date] = struct{}{}
	}
	return t
}

// Init forces every extra day hidden. With no extra days the control itself
// is hidden.
func (t *Toggle) Init() {
	t.showing = false
	t.revealed = false
	t.render()
}

// Toggle flips every container together. It does nothing without containers.
func (t *Toggle) Toggle() {
	if len(t.containers) == 0 {
		return
	}
	t.showing = !t.showing
	t.revealed = false
	t.render()
}

// Reveal temporarily shows the extra days if date is one of them and they
// are hidden; Conceal undoes it. It reports whether date belongs to the
// extra days.
func (t *Toggle) Reveal(date string) bool {
	if _, ok := t.index[date]; !ok {
		return false
	}
	if !t.showing {
		t.showing = true
		t.revealed = true
		t.render()
	}
	return true
}

// Conceal hides the extra days again if Reveal was what showed them. A user
// Toggle since the reveal wins and makes this a no-op.
func (t *Toggle) Conceal() {
	if !t.revealed {
		return
	}
	t.revealed = false
	t.showing = false
	t.render()
}

// Showing reports whether the extra days are visible.
func (t *Toggle) Showing() bool { return t.showing }

// Label is the control's current text.
func (t *Toggle) Label() string {
	if t.showing {
		return LabelShowLess
	}
	return LabelShowMore
}

func (t *Toggle) render() {
	t.renderer.RenderDays(view.DaysView{
		Containers:    append([]string(nil), t.containers...),
		Showing:       t.showing,
		Label:         t.Label(),
		ControlHidden: len(t.containers) == 0,
	})
}
