// Package view defines the rendering adapter the interaction components draw
// through, and the view models they hand it. Components never touch a
// document tree directly; a Renderer turns these models into whatever the
// surface needs.
package view

import (
	"context"
	"fmt"
)

// SlotState is the availability state shown by a slot cell.
type SlotState string

const (
	StateAvailable SlotState = "available"
	StateBooked    SlotState = "booked"
	StatePast      SlotState = "past"
	StateLoading   SlotState = "loading"
)

// SlotKey identifies a bookable slot.
type SlotKey struct {
	Date  string `json:"date"`
	Queue string `json:"queue"`
	Time  string `json:"time"`
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Date, k.Queue, k.Time)
}

// BookingRef is the payload carried by a cancel affordance.
type BookingRef struct {
	BookingID string `json:"booking_id"`
	BookedBy  string `json:"booked_by"`
}

// SlotView is everything a renderer needs to draw one slot cell. Class and
// Markup are the cell's class attribute and inner HTML; restoring a previous
// SlotView restores the cell exactly.
type SlotView struct {
	Key      SlotKey     `json:"key"`
	State    SlotState   `json:"state"`
	BookedBy string      `json:"booked_by,omitempty"`
	Booking  *BookingRef `json:"booking,omitempty"`
	Class    string      `json:"class"`
	Markup   string      `json:"markup"`
}

// ModalView is the cancellation modal.
type ModalView struct {
	Visible   bool   `json:"visible"`
	BookingID string `json:"booking_id,omitempty"`
	BookedBy  string `json:"booked_by,omitempty"`
	NameInput string `json:"name_input,omitempty"`
	Error     string `json:"error,omitempty"`
	Busy      bool   `json:"busy,omitempty"`
}

// ToastKind selects the notification style.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// ToastView is one notification surface.
type ToastView struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Kind    ToastKind `json:"kind"`
}

// DaysView is the extra-days toggle and the containers it controls.
type DaysView struct {
	Containers    []string `json:"containers"`
	Showing       bool     `json:"showing"`
	Label         string   `json:"label"`
	ControlHidden bool     `json:"control_hidden"`
}

// SearchResult is the closest-slot search outcome area.
type SearchResult struct {
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

// Renderer draws interaction state. Calls arrive from a single page loop.
type Renderer interface {
	RenderSlot(SlotView)
	RenderModal(ModalView)
	ShowToast(ToastView)
	RemoveToast(id string)
	RenderCountdown(text string)
	RenderSearchResult(SearchResult)
	RenderDays(DaysView)
	ScrollToDay(date string)
	HighlightRow(date, time string, on bool)
}

// Prompter asks the user for a line of text and blocks until they answer.
// ok is false when the user dismissed the prompt instead of submitting.
type Prompter interface {
	Prompt(ctx context.Context, message, defaultValue string) (value string, ok bool, err error)
}
