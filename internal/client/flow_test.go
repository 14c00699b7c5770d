package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

func TestSuggestionBoxDebouncesKeystrokes(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var fetched []string
	delivered := make(chan string, 4)

	box := NewSuggestionBox(func(_ context.Context, kw string) ([]string, error) {
		calls.Add(1)
		mu.Lock()
		fetched = append(fetched, kw)
		mu.Unlock()
		return []string{kw + " bay"}, nil
	}, DefaultDebounce, func(kw string, items []string, err error) {
		delivered <- kw
	})
	defer box.Stop()

	box.Type("ha")
	time.Sleep(100 * time.Millisecond)
	box.Type("ha long")

	select {
	case kw := <-delivered:
		if kw != "ha long" {
			t.Fatalf("delivered %q, want final keyword", kw)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no suggestions delivered")
	}
	time.Sleep(2 * DefaultDebounce)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if fetched[0] != "ha long" {
		t.Fatalf("fetched %v", fetched)
	}
}

func TestSuggestionBoxBlankClearsWithoutRequest(t *testing.T) {
	var calls atomic.Int32
	var got []string
	cleared := false
	box := NewSuggestionBox(func(context.Context, string) ([]string, error) {
		calls.Add(1)
		return nil, nil
	}, 20*time.Millisecond, func(kw string, items []string, err error) {
		cleared = kw == "" && items == nil
		got = items
	})
	defer box.Stop()

	box.Type("sa")
	box.Type("   ")
	if !cleared || got != nil {
		t.Fatalf("blank keyword did not clear suggestions synchronously")
	}
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("pending request for %q was not cancelled", "sa")
	}
}

func TestDebouncerStopDropsPending(t *testing.T) {
	var fired atomic.Bool
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger(func() { fired.Store(true) })
	d.Stop()
	d.Trigger(func() { fired.Store(true) })
	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("debounced call ran after Stop")
	}
}

type scriptedStatus struct {
	mu       sync.Mutex
	statuses []domain.LinkStatus
	calls    int
}

func (s *scriptedStatus) Status(_ context.Context, orderCode int64) (models.PaymentLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.statuses[min(s.calls, len(s.statuses)-1)]
	s.calls++
	return models.PaymentLink{OrderCode: orderCode, BookingID: 7, Status: st}, nil
}

func (s *scriptedStatus) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestPaymentWatcherStopsWhenPaid(t *testing.T) {
	api := &scriptedStatus{statuses: []domain.LinkStatus{domain.LinkPending, domain.LinkPaid}}
	store := NewMemoryStorage()
	_ = SavePaymentRecord(store, PaymentRecord{BookingID: 7, OrderCode: 555, Status: "PENDING"})

	var mu sync.Mutex
	var seen []domain.LinkStatus
	w := PaymentWatcher{API: api, Interval: 10 * time.Millisecond, Storage: store}
	sub := w.Watch(context.Background(), 7, 555, func(l models.PaymentLink, err error) {
		mu.Lock()
		seen = append(seen, l.Status)
		mu.Unlock()
	})
	waitDone(t, sub)

	if api.count() != 2 {
		t.Fatalf("expected polling to stop after PAID, got %d calls", api.count())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[1] != domain.LinkPaid {
		t.Fatalf("unexpected updates %v", seen)
	}
	if _, ok := LoadPaymentRecord(store, 7); ok {
		t.Fatalf("paid record was not cleared")
	}
	sub.Stop()
}

func TestPaymentWatcherKeepsExpiredRecord(t *testing.T) {
	api := &scriptedStatus{statuses: []domain.LinkStatus{domain.LinkExpired}}
	store := NewMemoryStorage()
	_ = SavePaymentRecord(store, PaymentRecord{BookingID: 7, OrderCode: 555, Status: "PENDING"})

	sub := PaymentWatcher{API: api, Interval: 10 * time.Millisecond, Storage: store}.Watch(context.Background(), 7, 555, nil)
	waitDone(t, sub)

	rec, ok := LoadPaymentRecord(store, 7)
	if !ok || rec.Status != "EXPIRED" {
		t.Fatalf("expected expired record to be kept, got %+v (found %v)", rec, ok)
	}
}

func TestPaymentWatcherStopBeforeFirstPoll(t *testing.T) {
	api := &scriptedStatus{statuses: []domain.LinkStatus{domain.LinkPending}}
	sub := PaymentWatcher{API: api, Interval: time.Hour}.Watch(context.Background(), 7, 555, nil)
	sub.Stop()
	sub.Stop()
	waitDone(t, sub)
	if api.count() != 0 {
		t.Fatalf("polled after Stop")
	}
}

type fakeCart struct {
	added   []int
	updates []int
	removed []int64
	pending models.Booking
}

func (f *fakeCart) Add(_ context.Context, tripID int64, q int) (models.CartItem, error) {
	f.added = append(f.added, q)
	return models.CartItem{ID: 11, TripID: tripID, Quantity: q, AvailableSeats: 5}, nil
}

func (f *fakeCart) UpdateQuantity(_ context.Context, id int64, q int) (models.CartItem, error) {
	f.updates = append(f.updates, q)
	return models.CartItem{ID: id, Quantity: q, AvailableSeats: 5}, nil
}

func (f *fakeCart) Remove(_ context.Context, id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeCart) PendingBooking(_ context.Context, id int64) (models.Booking, error) {
	return f.pending, nil
}

type fakeBookings struct {
	travelers []models.Traveler
	confirmed int
}

func (f *fakeBookings) Travelers(context.Context, int64) ([]models.Traveler, error) {
	return f.travelers, nil
}

func (f *fakeBookings) Confirm(_ context.Context, id int64, method domain.PaymentMethod) (models.Booking, error) {
	f.confirmed++
	return models.Booking{ID: id, Status: domain.BookingConfirmed}, nil
}

func (f *fakeBookings) Cancel(_ context.Context, id int64) (models.Booking, error) {
	return models.Booking{ID: id, Status: domain.BookingCanceled}, nil
}

type signedIn bool

func (s signedIn) Authenticated() bool { return bool(s) }

func TestQuantityClampsToAvailableSeats(t *testing.T) {
	co := &Checkout{}
	co.SelectTrip(models.Trip{ID: 4, AvailableSeats: 5})
	cases := map[int]int{99: 5, -3: 0, 3: 3, 5: 5, 0: 0}
	for in, want := range cases {
		if got := co.SetQuantity(in); got != want {
			t.Errorf("SetQuantity(%d) = %d, want %d", in, got, want)
		}
	}
	co.SetQuantity(4)
	co.SelectTrip(models.Trip{ID: 6, AvailableSeats: 10})
	if co.Quantity() != 0 {
		t.Fatalf("selecting another trip kept quantity %d", co.Quantity())
	}
}

func TestAddToCartNeedsLogin(t *testing.T) {
	cart := &fakeCart{}
	co := &Checkout{Cart: cart, Session: signedIn(false)}
	co.SelectTrip(models.Trip{ID: 4, RouteID: 2, AvailableSeats: 5})
	co.SetQuantity(2)

	_, err := co.AddToCart(context.Background())
	var login *LoginRequiredError
	if !errors.As(err, &login) || login.ReturnTo != "/tours/2?tripId=4" {
		t.Fatalf("expected login redirect, got %v", err)
	}
	if len(cart.added) != 0 || co.State() != TripSelected {
		t.Fatalf("cart touched while signed out")
	}
}

func TestConfirmBlockedUntilTravelersComplete(t *testing.T) {
	cart := &fakeCart{pending: models.Booking{ID: 21, SeatCount: 2, Status: domain.BookingPending,
		Travelers: []models.Traveler{{ID: 1}}}}
	bookings := &fakeBookings{}
	co := &Checkout{Cart: cart, Bookings: bookings, Session: signedIn(true)}
	ctx := context.Background()

	co.SelectTrip(models.Trip{ID: 4, AvailableSeats: 5})
	co.SetQuantity(2)
	if _, err := co.AddToCart(ctx); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if _, err := co.OpenTravelers(ctx); err != nil {
		t.Fatalf("OpenTravelers: %v", err)
	}

	_, err := co.Confirm(ctx, domain.MethodCash)
	var incomplete *TravelersIncompleteError
	if !errors.As(err, &incomplete) || incomplete.Needed != 1 {
		t.Fatalf("expected one traveler missing, got %v", err)
	}
	if bookings.confirmed != 0 {
		t.Fatalf("confirmed with missing travelers")
	}

	bookings.travelers = []models.Traveler{{ID: 1}, {ID: 2}}
	if _, err := co.ReloadTravelers(ctx); err != nil {
		t.Fatalf("ReloadTravelers: %v", err)
	}
	if _, err := co.Confirm(ctx, domain.MethodPayOS); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if co.State() != Confirmed {
		t.Fatalf("state %s", co.State())
	}
	if err := co.MarkPaid(); err != nil || co.State() != Paid {
		t.Fatalf("MarkPaid: %v (%s)", err, co.State())
	}
	if err := co.Cancel(ctx); err == nil {
		t.Fatalf("paid checkout was cancelled")
	}
}

func TestDecrementLastUnitAsksFirst(t *testing.T) {
	cart := &fakeCart{}
	asked := 0
	ed := CartEditor{Cart: cart, ConfirmRemove: func(models.CartItem) bool { asked++; return false }}
	it := models.CartItem{ID: 11, Quantity: 1, AvailableSeats: 5}

	out, removed, err := ed.Decrement(context.Background(), it)
	if err != nil || removed || out.Quantity != 1 {
		t.Fatalf("declined removal changed the line: %+v, %v, %v", out, removed, err)
	}
	if asked != 1 || len(cart.removed) != 0 {
		t.Fatalf("asked %d, removed %v", asked, cart.removed)
	}

	ed.ConfirmRemove = func(models.CartItem) bool { return true }
	if _, removed, err := ed.Decrement(context.Background(), it); err != nil || !removed || len(cart.removed) != 1 {
		t.Fatalf("confirmed removal did not delete: %v, %v", removed, err)
	}

	if _, _, err := ed.Decrement(context.Background(), models.CartItem{ID: 11, Quantity: 2, TravelerCount: 2}); err == nil {
		t.Fatalf("expected quantity below traveler count to be refused")
	}
	if _, err := ed.Increment(context.Background(), models.CartItem{ID: 11, Quantity: 5, AvailableSeats: 5}); err == nil {
		t.Fatalf("expected increment past available seats to be refused")
	}
}

type flakyFavorites struct {
	err error
}

func (f flakyFavorites) ToggleFavorite(context.Context, int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func TestFavoriteToggleRollsBackOnFailure(t *testing.T) {
	fav := NewFavorites(flakyFavorites{err: &APIError{Status: 500}}, []models.Route{{ID: 1}})
	on, err := fav.Toggle(context.Background(), 2)
	if err == nil || on || fav.IsFavorite(2) {
		t.Fatalf("failed toggle changed state: %v, %v", on, err)
	}
	if !fav.IsFavorite(1) || fav.Pending(2) {
		t.Fatalf("unexpected state after failure")
	}

	fav.API = flakyFavorites{}
	if on, err := fav.Toggle(context.Background(), 2); err != nil || !on || !fav.IsFavorite(2) {
		t.Fatalf("confirmed toggle not applied: %v, %v", on, err)
	}
}
