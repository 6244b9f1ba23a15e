package view

import (
	"html/template"
	"strings"
)

var slotTemplates = template.Must(template.New("slot").Parse(`
{{- define "available" -}}
<span class="slot-status">Available</span>
{{- end -}}
{{- define "loading" -}}
<span class="booked-name">{{.Name}}</span><span class="slot-spinner" aria-hidden="true"></span>
{{- end -}}
{{- define "booked" -}}
<span class="booked-name">{{.Name}}</span><button type="button" class="cancel-btn" data-booking-id="{{.BookingID}}" data-booked-by="{{.Name}}" title="Cancel booking">&times;</button>
{{- end -}}
`))

type slotData struct {
	Name      string
	BookingID string
}

func renderSlot(name string, data slotData) string {
	var b strings.Builder
	// templates are static and data holds only strings, so Execute cannot fail
	_ = slotTemplates.ExecuteTemplate(&b, name, data)
	return b.String()
}

// AvailableSlot is the empty, bookable representation of a cell.
func AvailableSlot(key SlotKey) SlotView {
	return SlotView{
		Key:    key,
		State:  StateAvailable,
		Class:  "slot available",
		Markup: renderSlot("available", slotData{}),
	}
}

// LoadingSlot is the optimistic representation while a booking is in flight.
func LoadingSlot(key SlotKey, name string) SlotView {
	return SlotView{
		Key:      key,
		State:    StateLoading,
		BookedBy: name,
		Class:    "slot booked loading",
		Markup:   renderSlot("loading", slotData{Name: name}),
	}
}

// BookedSlot shows the booked name and a cancel affordance for ref.
func BookedSlot(key SlotKey, ref BookingRef) SlotView {
	r := ref
	return SlotView{
		Key:      key,
		State:    StateBooked,
		BookedBy: ref.BookedBy,
		Booking:  &r,
		Class:    "slot booked",
		Markup:   renderSlot("booked", slotData{Name: ref.BookedBy, BookingID: ref.BookingID}),
	}
}
