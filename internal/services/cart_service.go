package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"
)

type CartService struct {
	Cart      repositories.CartRepository
	Trips     repositories.TripRepository
	Bookings  repositories.BookingRepository
	Travelers repositories.TravelerRepository
	DB        *sql.DB
	Now       func() time.Time
	RequestID string
}

// List returns the cart with each line's expired flag computed against now.
func (s CartService) List(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items, err := s.Cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	now := nowOr(s.Now)
	for i := range items {
		items[i].Expired = domain.IsCartItemExpired(items[i].TripStatus, items[i].DepartureDate, now)
	}
	return items, nil
}

func (s CartService) Get(ctx context.Context, userID, id int64) (models.CartItem, error) {
	it, err := s.Cart.GetByID(ctx, id)
	if err != nil {
		return models.CartItem{}, internal(err)
	}
	if it.UserID != userID {
		return models.CartItem{}, domain.NotFoundError{Resource: "cart item"}
	}
	it.Expired = domain.IsCartItemExpired(it.TripStatus, it.DepartureDate, nowOr(s.Now))
	return it, nil
}

// Add puts quantity seats of a trip in the cart. Adding a trip that is
// already there merges into the existing line.
func (s CartService) Add(ctx context.Context, userID, tripID int64, quantity int) (models.CartItem, error) {
	if quantity < 1 {
		return models.CartItem{}, domain.ValidationError{Field: "quantity", Msg: "must be at least 1"}
	}
	t, err := s.Trips.GetByID(ctx, tripID)
	if err != nil {
		return models.CartItem{}, internal(err)
	}
	if domain.IsCartItemExpired(t.Status, t.DepartureDate, nowOr(s.Now)) {
		return models.CartItem{}, domain.ConflictError{Resource: "trip", Msg: "trip is no longer open for booking"}
	}

	existing, found, err := s.Cart.FindByTrip(ctx, userID, tripID)
	if err != nil {
		return models.CartItem{}, internal(err)
	}
	total := quantity
	if found {
		total += existing.Quantity
	}
	if total > t.AvailableSeats {
		return models.CartItem{}, domain.ValidationError{Field: "quantity",
			Msg: fmt.Sprintf("only %d seat(s) available", t.AvailableSeats)}
	}

	id := existing.ID
	if found {
		if err := s.Cart.UpdateQuantity(ctx, id, total); err != nil {
			return models.CartItem{}, internal(err)
		}
		if existing.PendingBookingID != nil {
			if err := s.Bookings.UpdateSeatCount(ctx, *existing.PendingBookingID, total); err != nil {
				return models.CartItem{}, internal(err)
			}
		}
	} else if id, err = s.Cart.Create(ctx, userID, tripID, total, t.Price); err != nil {
		return models.CartItem{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "cart", "add", fmt.Sprintf("user_id=%d trip_id=%d quantity=%d", userID, tripID, total))
	return s.Get(ctx, userID, id)
}

// UpdateQuantity sets a line's quantity. It cannot drop below the travelers
// already entered on the line's pending booking.
func (s CartService) UpdateQuantity(ctx context.Context, userID, id int64, quantity int) (models.CartItem, error) {
	it, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.CartItem{}, err
	}
	if quantity < 1 {
		return models.CartItem{}, domain.ValidationError{Field: "quantity", Msg: "must be at least 1; remove the item instead"}
	}
	if it.Expired {
		return models.CartItem{}, domain.ConflictError{Resource: "cart item", Msg: "trip is no longer open for booking"}
	}
	if quantity > it.AvailableSeats {
		return models.CartItem{}, domain.ValidationError{Field: "quantity",
			Msg: fmt.Sprintf("only %d seat(s) available", it.AvailableSeats)}
	}
	if it.PendingBookingID != nil && quantity < it.TravelerCount {
		return models.CartItem{}, domain.ConflictError{Resource: "cart item",
			Msg: fmt.Sprintf("%d traveler(s) already entered; remove travelers first", it.TravelerCount)}
	}

	err = intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		if err := s.Cart.InTx(tx).UpdateQuantity(ctx, id, quantity); err != nil {
			return err
		}
		if it.PendingBookingID != nil {
			return s.Bookings.InTx(tx).UpdateSeatCount(ctx, *it.PendingBookingID, quantity)
		}
		return nil
	})
	if err != nil {
		return models.CartItem{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "cart", "update_quantity", fmt.Sprintf("cart_id=%d quantity=%d", id, quantity))
	return s.Get(ctx, userID, id)
}

// Remove deletes a line and cancels its unconfirmed booking, if any.
func (s CartService) Remove(ctx context.Context, userID, id int64) error {
	it, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	err = intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		if err := s.dropPending(ctx, tx, it); err != nil {
			return err
		}
		return s.Cart.InTx(tx).Delete(ctx, userID, id)
	})
	if err != nil {
		return internal(err)
	}
	utils.LogEvent(s.RequestID, "cart", "remove", fmt.Sprintf("cart_id=%d", id))
	return nil
}

// RemoveMany deletes the given lines, or the whole cart when ids is empty.
func (s CartService) RemoveMany(ctx context.Context, userID int64, ids []int64) (int64, error) {
	items, err := s.Cart.ListByUser(ctx, userID)
	if err != nil {
		return 0, internal(err)
	}
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	targets := make([]int64, 0, len(items))
	var removed int64
	err = intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		for _, it := range items {
			if len(ids) > 0 && !want[it.ID] {
				continue
			}
			if err := s.dropPending(ctx, tx, it); err != nil {
				return err
			}
			targets = append(targets, it.ID)
		}
		if len(targets) == 0 {
			return nil
		}
		var err error
		removed, err = s.Cart.InTx(tx).DeleteMany(ctx, userID, targets)
		return err
	})
	if err != nil {
		return 0, internal(err)
	}
	utils.LogEvent(s.RequestID, "cart", "remove_many", fmt.Sprintf("user_id=%d removed=%d", userID, removed))
	return removed, nil
}

func (s CartService) Exists(ctx context.Context, userID, tripID int64) (bool, error) {
	ok, err := s.Cart.Exists(ctx, userID, tripID)
	return ok, internal(err)
}

// PromoteToBooking opens the PENDING booking that collects travelers for a
// cart line. Calling it again returns the same booking.
func (s CartService) PromoteToBooking(ctx context.Context, userID, id int64) (models.Booking, error) {
	it, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.Booking{}, err
	}
	if it.PendingBookingID != nil {
		b, err := s.Bookings.GetByID(ctx, *it.PendingBookingID)
		if err == nil && b.Status == domain.BookingPending {
			return s.withTravelers(ctx, b)
		}
		if err != nil && !domain.IsNotFound(err) {
			return models.Booking{}, internal(err)
		}
	}
	if it.Expired {
		return models.Booking{}, domain.ConflictError{Resource: "cart item", Msg: "trip is no longer open for booking"}
	}

	var bookingID int64
	err = intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		var err error
		bookingID, err = s.Bookings.InTx(tx).Create(ctx, models.Booking{
			Code:      newCode("BK"),
			TripID:    it.TripID,
			UserID:    userID,
			SeatCount: it.Quantity,
			UnitPrice: it.UnitPrice,
			Status:    domain.BookingPending,
		})
		if err != nil {
			return err
		}
		return s.Cart.InTx(tx).SetPendingBooking(ctx, id, bookingID)
	})
	if err != nil {
		return models.Booking{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "cart", "promote", fmt.Sprintf("cart_id=%d booking_id=%d", id, bookingID))
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return models.Booking{}, internal(err)
	}
	return b, nil
}

func (s CartService) withTravelers(ctx context.Context, b models.Booking) (models.Booking, error) {
	travelers, err := s.Travelers.ListByBooking(ctx, b.ID)
	if err != nil {
		return models.Booking{}, internal(err)
	}
	b.Travelers = travelers
	return b, nil
}

func (s CartService) dropPending(ctx context.Context, tx *sql.Tx, it models.CartItem) error {
	if it.PendingBookingID == nil {
		return nil
	}
	bookings := s.Bookings.InTx(tx)
	b, err := bookings.GetByID(ctx, *it.PendingBookingID)
	if domain.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != domain.BookingPending {
		return nil
	}
	return bookings.UpdateStatus(ctx, b.ID, domain.BookingCanceled)
}
