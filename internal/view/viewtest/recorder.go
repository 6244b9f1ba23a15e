// Package viewtest provides an in-memory view.Renderer and view.Prompter for
// exercising interaction components without a document tree.
package viewtest

import (
	"context"
	"sync"

	"github.com/MEPPERDONAS/185-reservas/internal/view"
)

// Answer is one scripted reply to a prompt.
type Answer struct {
	Value     string
	Dismissed bool
	Err       error
}

// PromptCall records a prompt the component raised.
type PromptCall struct {
	Message      string
	DefaultValue string
}

// Recorder keeps the latest rendered state plus a history of calls.
type Recorder struct {
	mu sync.Mutex

	Slots        map[view.SlotKey]view.SlotView
	SlotHistory  []view.SlotView
	Modal        view.ModalView
	ModalRenders int

	Toasts       map[string]view.ToastView
	ToastHistory []view.ToastView
	Removed      []string

	Countdowns   []string
	Searches     []view.SearchResult
	Days         []view.DaysView
	Scrolls      []string
	Highlights   map[string]bool
	HighlightLog []string

	Prompts []PromptCall
	answers []Answer
}

var (
	_ view.Renderer = (*Recorder)(nil)
	_ view.Prompter = (*Recorder)(nil)
)

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		Slots:      make(map[view.SlotKey]view.SlotView),
		Toasts:     make(map[string]view.ToastView),
		Highlights: make(map[string]bool),
	}
}

// Answer queues replies for upcoming prompts, consumed in order.
func (r *Recorder) Answer(answers ...Answer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, answers...)
}

// Submit queues a submitted prompt value.
func (r *Recorder) Submit(value string) { r.Answer(Answer{Value: value}) }

// Dismiss queues a dismissed prompt.
func (r *Recorder) Dismiss() { r.Answer(Answer{Dismissed: true}) }

func (r *Recorder) Prompt(_ context.Context, message, defaultValue string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prompts = append(r.Prompts, PromptCall{Message: message, DefaultValue: defaultValue})
	if len(r.answers) == 0 {
		return "", false, nil
	}
	a := r.answers[0]
	r.answers = r.answers[1:]
	if a.Err != nil {
		return "", false, a.Err
	}
	if a.Dismissed {
		return "", false, nil
	}
	return a.Value, true, nil
}

func (r *Recorder) RenderSlot(v view.SlotView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Slots[v.Key] = v
	r.SlotHistory = append(r.SlotHistory, v)
}

func (r *Recorder) RenderModal(m view.ModalView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Modal = m
	r.ModalRenders++
}

func (r *Recorder) ShowToast(t view.ToastView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Toasts[t.ID] = t
	r.ToastHistory = append(r.ToastHistory, t)
}

func (r *Recorder) RemoveToast(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Toasts, id)
	r.Removed = append(r.Removed, id)
}

func (r *Recorder) RenderCountdown(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Countdowns = append(r.Countdowns, text)
}

func (r *Recorder) RenderSearchResult(s view.SearchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Searches = append(r.Searches, s)
}

func (r *Recorder) RenderDays(d view.DaysView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Days = append(r.Days, d)
}

func (r *Recorder) ScrollToDay(date string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scrolls = append(r.Scrolls, date)
}

func (r *Recorder) HighlightRow(date, time string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := date + " " + time
	if on {
		r.Highlights[k] = true
		r.HighlightLog = append(r.HighlightLog, "+"+k)
	} else {
		delete(r.Highlights, k)
		r.HighlightLog = append(r.HighlightLog, "-"+k)
	}
}

// Slot returns the last rendered view of key.
func (r *Recorder) Slot(key view.SlotKey) (view.SlotView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.Slots[key]
	return v, ok
}

// VisibleToasts returns the toasts currently on screen.
func (r *Recorder) VisibleToasts() []view.ToastView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]view.ToastView, 0, len(r.Toasts))
	for _, t := range r.Toasts {
		out = append(out, t)
	}
	return out
}

// LastToast returns the most recently shown toast.
func (r *Recorder) LastToast() (view.ToastView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ToastHistory) == 0 {
		return view.ToastView{}, false
	}
	return r.ToastHistory[len(r.ToastHistory)-1], true
}

// LastCountdown returns the most recent countdown text.
func (r *Recorder) LastCountdown() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Countdowns) == 0 {
		return ""
	}
	return r.Countdowns[len(r.Countdowns)-1]
}

// LastDays returns the most recent days rendering.
func (r *Recorder) LastDays() view.DaysView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Days) == 0 {
		return view.DaysView{}
	}
	return r.Days[len(r.Days)-1]
}
