package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var key = SlotKey{Date: "2026-03-02", Queue: "research", Time: "10:00"}

func TestBookedSlotCarriesCancelAffordance(t *testing.T) {
	v := BookedSlot(key, BookingRef{BookingID: "17", BookedBy: "Ana"})

	assert.Equal(t, StateBooked, v.State)
	assert.Equal(t, "slot booked", v.Class)
	assert.Contains(t, v.Markup, `data-booking-id="17"`)
	assert.Contains(t, v.Markup, `data-booked-by="Ana"`)
	assert.Equal(t, "17", v.Booking.BookingID)
}

func TestSlotMarkupEscapesNames(t *testing.T) {
	v := LoadingSlot(key, `<script>x</script>`)

	assert.NotContains(t, v.Markup, "<script>")
	assert.True(t, strings.Contains(v.Markup, "&lt;script&gt;"))
}

func TestAvailableSlotIsEmptyState(t *testing.T) {
	v := AvailableSlot(key)

	assert.Equal(t, StateAvailable, v.State)
	assert.Empty(t, v.BookedBy)
	assert.Nil(t, v.Booking)
	assert.Equal(t, "slot available", v.Class)
}

func TestSlotKeyString(t *testing.T) {
	assert.Equal(t, "2026-03-02/research/10:00", key.String())
}
