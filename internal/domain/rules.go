package domain

import (
	"fmt"
	"time"
)

// PaymentEditWindow is how close to departure a paid invoice's method freezes.
const PaymentEditWindow = 3 * 24 * time.Hour

// ClampQuantity bounds a requested seat count to [0, available].
func ClampQuantity(requested, available int) int {
	if available < 0 {
		available = 0
	}
	if requested < 0 {
		return 0
	}
	if requested > available {
		return available
	}
	return requested
}

// TravelersShortfall is how many more travelers a booking needs before it can be confirmed.
func TravelersShortfall(travelers, quantity int) int {
	if travelers >= quantity {
		return 0
	}
	return quantity - travelers
}

// CheckTravelersComplete returns a ValidationError naming the shortfall, or nil.
func CheckTravelersComplete(travelers, quantity int) error {
	if n := TravelersShortfall(travelers, quantity); n > 0 {
		return ValidationError{
			Field: "travelers",
			Msg:   fmt.Sprintf("%d more traveler(s) needed before confirming", n),
		}
	}
	return nil
}

// CanEditPaymentMethod is true while the invoice is unpaid, or while departure
// is still further away than PaymentEditWindow. Refunded invoices are final.
func CanEditPaymentMethod(status PaymentStatus, departure, now time.Time) bool {
	switch status {
	case PaymentUnpaid:
		return true
	case PaymentRefunded:
		return false
	}
	return departure.Sub(now) > PaymentEditWindow
}

// CanCancelBooking reports whether a booking can still be cancelled.
func CanCancelBooking(status BookingStatus, invoice PaymentStatus) bool {
	switch status {
	case BookingCanceled, BookingCompleted:
		return false
	}
	return invoice != PaymentRefunded
}

var tripTransitions = map[TripStatus][]TripStatus{
	TripScheduled: {TripOngoing, TripCanceled},
	TripOngoing:   {TripFinished, TripCanceled},
}

func ValidTripTransition(from, to TripStatus) bool {
	if from == to {
		return true
	}
	for _, next := range tripTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsCartItemExpired: a cart line is stale once its trip has left or is no longer scheduled.
func IsCartItemExpired(status TripStatus, departure, now time.Time) bool {
	if status != TripScheduled {
		return true
	}
	return !departure.After(now)
}

// DaysUntil counts whole calendar days from now to t, negative when t is past.
func DaysUntil(t, now time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.In(now.Location()).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
