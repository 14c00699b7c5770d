package client

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period a search box waits for before fetching.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs the last triggered function once no trigger arrived for the delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger replaces any pending call with fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop cancels the pending call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

// SuggestFunc fetches suggestions for one keyword; Tours.Suggestions fits.
type SuggestFunc func(ctx context.Context, keyword string) ([]string, error)

// SuggestionBox wires a search input to the suggestion endpoint.
// Results are delivered only for the latest keystroke; older responses are dropped.
type SuggestionBox struct {
	fetch   SuggestFunc
	deliver func(keyword string, items []string, err error)
	deb     *Debouncer

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelFunc
	ctx      context.Context
	stop     context.CancelFunc
}

func NewSuggestionBox(fetch SuggestFunc, delay time.Duration, deliver func(keyword string, items []string, err error)) *SuggestionBox {
	ctx, stop := context.WithCancel(context.Background())
	return &SuggestionBox{fetch: fetch, deliver: deliver, deb: NewDebouncer(delay), ctx: ctx, stop: stop}
}

// Type records a keystroke. A blank keyword clears the list at once without a request.
func (b *SuggestionBox) Type(keyword string) {
	kw := strings.TrimSpace(keyword)

	b.mu.Lock()
	b.seq++
	seq := b.seq
	if b.inflight != nil {
		b.inflight()
		b.inflight = nil
	}
	b.mu.Unlock()

	if kw == "" {
		b.deb.Cancel()
		b.deliver(kw, nil, nil)
		return
	}
	b.deb.Trigger(func() { b.run(seq, kw) })
}

func (b *SuggestionBox) run(seq uint64, kw string) {
	b.mu.Lock()
	if seq != b.seq || b.ctx.Err() != nil {
		b.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(b.ctx)
	b.inflight = cancel
	b.mu.Unlock()
	defer cancel()

	items, err := b.fetch(ctx, kw)

	b.mu.Lock()
	current := seq == b.seq && b.ctx.Err() == nil
	b.mu.Unlock()
	if current {
		b.deliver(kw, items, err)
	}
}

// Stop cancels the pending timer and any request in flight.
func (b *SuggestionBox) Stop() {
	b.deb.Stop()
	b.stop()
}
