package models

import (
	"time"

	"tourbooking/internal/domain"
)

// ItineraryDay is one day of a route's program.
type ItineraryDay struct {
	Day         int      `json:"day"`
	Title       string   `json:"title"`
	Attractions []string `json:"attractions"`
}

// Route is a tour product template from which trips are scheduled.
type Route struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Code          string         `json:"code"`
	StartLocation string         `json:"startLocation"`
	EndLocation   string         `json:"endLocation"`
	DurationDays  int            `json:"durationDays"`
	Description   string         `json:"description"`
	Itinerary     []ItineraryDay `json:"itinerary"`
	Images        []string       `json:"images"`
	MinPrice      int64          `json:"minPrice,omitempty"`
	Favorited     bool           `json:"favorited,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Trip is one dated departure of a route with its own price and seat inventory.
type Trip struct {
	ID             int64             `json:"id"`
	RouteID        int64             `json:"routeId"`
	RouteName      string            `json:"routeName,omitempty"`
	DepartureDate  time.Time         `json:"departureDate"`
	ReturnDate     time.Time         `json:"returnDate"`
	Price          int64             `json:"price"`
	TotalSeats     int               `json:"totalSeats"`
	AvailableSeats int               `json:"availableSeats"`
	BookedSeats    int               `json:"bookedSeats"`
	PickUpTime     string            `json:"pickUpTime"`
	PickUpLocation string            `json:"pickUpLocation"`
	Status         domain.TripStatus `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// TripInput is the write shape for trips; pointers mark fields present in a PUT.
type TripInput struct {
	RouteID        *int64  `json:"routeId"`
	DepartureDate  *string `json:"departureDate"`
	ReturnDate     *string `json:"returnDate"`
	Price          *int64  `json:"price"`
	TotalSeats     *int    `json:"totalSeats"`
	PickUpTime     *string `json:"pickUpTime"`
	PickUpLocation *string `json:"pickUpLocation"`
}

// Availability answers "can I still book n seats on this trip".
type Availability struct {
	TripID         int64             `json:"tripId"`
	AvailableSeats int               `json:"availableSeats"`
	Status         domain.TripStatus `json:"status"`
	Bookable       bool              `json:"bookable"`
}
