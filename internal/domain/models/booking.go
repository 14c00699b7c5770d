package models

import (
	"time"

	"tourbooking/internal/domain"
)

// CartItem is a user's seat reservation against a trip, not yet a booking.
type CartItem struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	TripID           int64     `json:"tripId"`
	RouteID          int64     `json:"routeId"`
	RouteName        string    `json:"routeName"`
	DepartureDate    time.Time `json:"departureDate"`
	AvailableSeats   int       `json:"availableSeats"`
	Quantity         int       `json:"quantity"`
	UnitPrice        int64     `json:"unitPrice"`
	Subtotal         int64     `json:"subtotal"`
	Expired          bool      `json:"expired"`
	PendingBookingID *int64    `json:"pendingBookingId,omitempty"`
	TravelerCount    int       `json:"travelerCount"`
	CreatedAt        time.Time `json:"createdAt"`

	TripStatus domain.TripStatus `json:"-"`
}

// Booking ties travelers to a trip and is backed by an invoice once confirmed.
type Booking struct {
	ID            int64                `json:"id"`
	Code          string               `json:"code"`
	TripID        int64                `json:"tripId"`
	UserID        int64                `json:"userId"`
	SeatCount     int                  `json:"seatCount"`
	Status        domain.BookingStatus `json:"status"`
	Note          string               `json:"note,omitempty"`
	Travelers     []Traveler           `json:"travelers"`
	Invoice       *Invoice             `json:"invoice,omitempty"`
	RouteName     string               `json:"routeName,omitempty"`
	DepartureDate time.Time            `json:"departureDate"`
	UnitPrice     int64                `json:"unitPrice"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Traveler is a named passenger; belongs to exactly one booking.
type Traveler struct {
	ID             int64         `json:"id"`
	BookingID      int64         `json:"bookingId"`
	FullName       string        `json:"fullName"`
	Gender         domain.Gender `json:"gender"`
	DateOfBirth    string        `json:"dateOfBirth"`
	IdentityNumber string        `json:"identityNumber"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone"`
}
