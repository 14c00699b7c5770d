package client

import (
	"context"
	"sync"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/utils"
)

// DefaultPollInterval is how often an open payment dialog asks for the link status.
const DefaultPollInterval = 5 * time.Second

// PaymentStatusAPI reads one payment link; Payments satisfies it.
type PaymentStatusAPI interface {
	Status(ctx context.Context, orderCode int64) (models.PaymentLink, error)
}

// PaymentWatcher polls a payment link until it settles.
type PaymentWatcher struct {
	API      PaymentStatusAPI
	Interval time.Duration
	// Storage holds the payment_<bookingId> record; nil skips bookkeeping.
	Storage Storage
	Logger  utils.Logger
}

// Subscription is the handle of one running watch. Stop must be called when the dialog closes.
type Subscription struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// Stop ends the watch; safe to call more than once and from the update callback.
func (s *Subscription) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Done is closed once the polling goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func terminalLink(s domain.LinkStatus) bool {
	return s == domain.LinkPaid || s == domain.LinkCancelled || s == domain.LinkExpired
}

// Watch starts polling orderCode. onUpdate sees every status read (or error);
// polling stops by itself once the link is PAID, CANCELLED or EXPIRED.
func (w PaymentWatcher) Watch(ctx context.Context, bookingID, orderCode int64, onUpdate func(models.PaymentLink, error)) *Subscription {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := w.Logger
	if log == nil {
		log = utils.L()
	}
	sub := &Subscription{stop: make(chan struct{}), done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			case <-ticker.C:
			}

			link, err := w.API.Status(ctx, orderCode)
			select {
			case <-sub.stop:
				return
			default:
			}
			if err != nil {
				log.Warn("payment status poll failed", "order_code", orderCode, "error", err)
				if onUpdate != nil {
					onUpdate(link, err)
				}
				continue
			}
			w.record(bookingID, link)
			if onUpdate != nil {
				onUpdate(link, nil)
			}
			if terminalLink(link.Status) {
				sub.Stop()
				return
			}
		}
	}()
	return sub
}

// record forgets paid and cancelled links; an expired one stays so the user can see what happened.
func (w PaymentWatcher) record(bookingID int64, link models.PaymentLink) {
	if w.Storage == nil {
		return
	}
	switch link.Status {
	case domain.LinkPaid, domain.LinkCancelled:
		_ = ClearPaymentRecord(w.Storage, bookingID)
	default:
		rec, ok := LoadPaymentRecord(w.Storage, bookingID)
		if !ok || rec.Status == string(link.Status) {
			return
		}
		rec.Status = string(link.Status)
		_ = SavePaymentRecord(w.Storage, rec)
	}
}
