package client

import (
	"context"
	"fmt"
	"sync"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

// CheckoutState is a step of the storefront purchase flow.
type CheckoutState int

const (
	Browsing CheckoutState = iota
	TripSelected
	InCart
	PendingBooking
	Confirmed
	Paid
	Canceled
)

func (s CheckoutState) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case TripSelected:
		return "trip_selected"
	case InCart:
		return "in_cart"
	case PendingBooking:
		return "pending_booking"
	case Confirmed:
		return "confirmed"
	case Paid:
		return "paid"
	case Canceled:
		return "canceled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StateError is returned when an action does not apply to the current step.
type StateError struct {
	State  CheckoutState
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.State)
}

// CartAPI is the part of the cart endpoints the flow needs; Cart satisfies it.
type CartAPI interface {
	Add(ctx context.Context, tripID int64, quantity int) (models.CartItem, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) (models.CartItem, error)
	Remove(ctx context.Context, id int64) error
	PendingBooking(ctx context.Context, id int64) (models.Booking, error)
}

// BookingAPI is satisfied by Bookings.
type BookingAPI interface {
	Travelers(ctx context.Context, id int64) ([]models.Traveler, error)
	Confirm(ctx context.Context, id int64, method domain.PaymentMethod) (models.Booking, error)
	Cancel(ctx context.Context, id int64) (models.Booking, error)
}

type sessionState interface {
	Authenticated() bool
}

// Checkout drives one purchase: trip, cart line, pending booking with travelers, confirmation, payment.
type Checkout struct {
	Cart     CartAPI
	Bookings BookingAPI
	Session  sessionState

	mu        sync.Mutex
	state     CheckoutState
	trip      models.Trip
	quantity  int
	item      models.CartItem
	booking   models.Booking
	travelers []models.Traveler
}

func NewCheckout(c *Client) *Checkout {
	return &Checkout{Cart: c.Cart(), Bookings: c.Bookings(), Session: c}
}

func (co *Checkout) State() CheckoutState {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.state
}

func (co *Checkout) Quantity() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.quantity
}

func (co *Checkout) Booking() models.Booking {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.booking
}

// SelectTrip starts over on a trip; any chosen quantity is dropped.
func (co *Checkout) SelectTrip(t models.Trip) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.state = TripSelected
	co.trip = t
	co.quantity = 0
	co.item = models.CartItem{}
	co.booking = models.Booking{}
	co.travelers = nil
}

// SetQuantity clamps n to the seats still available and returns the value kept.
func (co *Checkout) SetQuantity(n int) int {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.state != TripSelected {
		return co.quantity
	}
	co.quantity = domain.ClampQuantity(n, co.trip.AvailableSeats)
	return co.quantity
}

// AddToCart needs a signed-in user; otherwise a LoginRequiredError says where to come back to.
func (co *Checkout) AddToCart(ctx context.Context) (models.CartItem, error) {
	co.mu.Lock()
	state, trip, qty := co.state, co.trip, co.quantity
	co.mu.Unlock()

	if state != TripSelected {
		return models.CartItem{}, &StateError{State: state, Action: "add to cart"}
	}
	if qty <= 0 {
		return models.CartItem{}, &FieldError{Field: "quantity", Msg: "select at least one seat"}
	}
	if co.Session == nil || !co.Session.Authenticated() {
		return models.CartItem{}, &LoginRequiredError{ReturnTo: fmt.Sprintf("/tours/%d?tripId=%d", trip.RouteID, trip.ID)}
	}
	it, err := co.Cart.Add(ctx, trip.ID, qty)
	if err != nil {
		return models.CartItem{}, err
	}

	co.mu.Lock()
	defer co.mu.Unlock()
	co.state = InCart
	co.item = it
	co.quantity = it.Quantity
	return it, nil
}

// ResumeCartItem continues the flow from a line already in the cart.
func (co *Checkout) ResumeCartItem(it models.CartItem) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.state = InCart
	co.item = it
	co.quantity = it.Quantity
	co.booking = models.Booking{}
	co.travelers = nil
}

// OpenTravelers promotes the cart line to a pending booking the first time passenger entry opens.
func (co *Checkout) OpenTravelers(ctx context.Context) (models.Booking, error) {
	co.mu.Lock()
	state, item, booking := co.state, co.item, co.booking
	co.mu.Unlock()

	switch state {
	case PendingBooking:
		return booking, nil
	case InCart:
	default:
		return models.Booking{}, &StateError{State: state, Action: "enter travelers"}
	}
	b, err := co.Cart.PendingBooking(ctx, item.ID)
	if err != nil {
		return models.Booking{}, err
	}

	co.mu.Lock()
	defer co.mu.Unlock()
	co.state = PendingBooking
	co.booking = b
	co.travelers = b.Travelers
	if b.SeatCount > 0 {
		co.quantity = b.SeatCount
	}
	return b, nil
}

// ReloadTravelers refreshes the passenger list after a form was saved.
func (co *Checkout) ReloadTravelers(ctx context.Context) ([]models.Traveler, error) {
	co.mu.Lock()
	state, id := co.state, co.booking.ID
	co.mu.Unlock()
	if state != PendingBooking {
		return nil, &StateError{State: state, Action: "reload travelers"}
	}
	ts, err := co.Bookings.Travelers(ctx, id)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	co.travelers = ts
	co.mu.Unlock()
	return ts, nil
}

// TravelersNeeded is how many more passengers must be entered before confirming.
func (co *Checkout) TravelersNeeded() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.travelersNeeded()
}

func (co *Checkout) travelersNeeded() int {
	return domain.TravelersShortfall(len(co.travelers), co.quantity)
}

// Confirm is blocked until every seat has a traveler.
func (co *Checkout) Confirm(ctx context.Context, method domain.PaymentMethod) (models.Booking, error) {
	co.mu.Lock()
	state, id, needed := co.state, co.booking.ID, co.travelersNeeded()
	co.mu.Unlock()

	if state != PendingBooking {
		return models.Booking{}, &StateError{State: state, Action: "confirm"}
	}
	if needed > 0 {
		return models.Booking{}, &TravelersIncompleteError{Needed: needed}
	}
	b, err := co.Bookings.Confirm(ctx, id, method)
	if err != nil {
		return models.Booking{}, err
	}

	co.mu.Lock()
	defer co.mu.Unlock()
	co.state = Confirmed
	co.booking = b
	return b, nil
}

// MarkPaid records a settled payment, normally reported by a PaymentWatcher.
func (co *Checkout) MarkPaid() error {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.state != Confirmed {
		return &StateError{State: co.state, Action: "mark paid"}
	}
	co.state = Paid
	return nil
}

// Cancel abandons the flow, cancelling the booking server side when one exists.
func (co *Checkout) Cancel(ctx context.Context) error {
	co.mu.Lock()
	state, id := co.state, co.booking.ID
	co.mu.Unlock()

	if state == Paid || state == Canceled {
		return &StateError{State: state, Action: "cancel"}
	}
	if id != 0 {
		b, err := co.Bookings.Cancel(ctx, id)
		if err != nil {
			return err
		}
		co.mu.Lock()
		co.booking = b
		co.mu.Unlock()
	}
	co.mu.Lock()
	co.state = Canceled
	co.mu.Unlock()
	return nil
}

// CartEditor backs the plus and minus buttons of a cart line.
type CartEditor struct {
	Cart CartAPI
	// ConfirmRemove is asked before the last unit is removed; nil means no.
	ConfirmRemove func(models.CartItem) bool
}

func (e CartEditor) Increment(ctx context.Context, it models.CartItem) (models.CartItem, error) {
	if it.Quantity >= it.AvailableSeats {
		return it, &FieldError{Field: "quantity", Msg: fmt.Sprintf("only %d seat(s) available", it.AvailableSeats)}
	}
	return e.Cart.UpdateQuantity(ctx, it.ID, it.Quantity+1)
}

// Decrement lowers the quantity by one. On the last unit it deletes the line only after
// ConfirmRemove agrees; removed reports whether the line is gone.
func (e CartEditor) Decrement(ctx context.Context, it models.CartItem) (out models.CartItem, removed bool, err error) {
	if it.Quantity > 1 {
		if it.TravelerCount >= it.Quantity {
			return it, false, &FieldError{Field: "quantity", Msg: "remove a traveler before lowering the quantity"}
		}
		out, err = e.Cart.UpdateQuantity(ctx, it.ID, it.Quantity-1)
		return out, false, err
	}
	if e.ConfirmRemove == nil || !e.ConfirmRemove(it) {
		return it, false, nil
	}
	if err := e.Cart.Remove(ctx, it.ID); err != nil {
		return it, false, err
	}
	it.Quantity = 0
	return it, true, nil
}

// FavoritesAPI is satisfied by Tours.
type FavoritesAPI interface {
	ToggleFavorite(ctx context.Context, routeID int64) (bool, error)
}

// Favorites tracks the heart icons. A toggle changes local state only after the server answers.
type Favorites struct {
	API FavoritesAPI

	mu      sync.Mutex
	on      map[int64]bool
	pending map[int64]bool
}

func NewFavorites(api FavoritesAPI, routes []models.Route) *Favorites {
	f := &Favorites{API: api, on: map[int64]bool{}, pending: map[int64]bool{}}
	for _, r := range routes {
		f.on[r.ID] = true
	}
	return f
}

func (f *Favorites) IsFavorite(routeID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on[routeID]
}

// Pending reports a toggle in flight, for disabling the button.
func (f *Favorites) Pending(routeID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[routeID]
}

// Toggle returns the confirmed state; on failure the previous state is kept and returned.
func (f *Favorites) Toggle(ctx context.Context, routeID int64) (bool, error) {
	f.mu.Lock()
	if f.pending[routeID] {
		on := f.on[routeID]
		f.mu.Unlock()
		return on, nil
	}
	f.pending[routeID] = true
	f.mu.Unlock()

	on, err := f.API.ToggleFavorite(ctx, routeID)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, routeID)
	if err != nil {
		return f.on[routeID], err
	}
	if on {
		f.on[routeID] = true
	} else {
		delete(f.on, routeID)
	}
	return on, nil
}
