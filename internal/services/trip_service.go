package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/metrics"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"
)

type TripService struct {
	Trips     repositories.TripRepository
	Routes    repositories.RouteRepository
	Bookings  repositories.BookingRepository
	Invoices  repositories.InvoiceRepository
	Tours     TourService
	DB        *sql.DB
	Now       func() time.Time
	RequestID string
}

func (s TripService) List(ctx context.Context, q domain.ListQuery) (domain.Page[models.Trip], error) {
	trips, total, err := s.Trips.List(ctx, q)
	if err != nil {
		return domain.Page[models.Trip]{}, internal(err)
	}
	return domain.NewPage(trips, q, total), nil
}

func (s TripService) Get(ctx context.Context, id int64) (models.Trip, error) {
	t, err := s.Trips.GetByID(ctx, id)
	return t, internal(err)
}

// Availability reports whether the trip can still take bookings.
func (s TripService) Availability(ctx context.Context, id int64) (models.Availability, error) {
	t, err := s.Trips.GetByID(ctx, id)
	if err != nil {
		return models.Availability{}, internal(err)
	}
	return models.Availability{
		TripID:         t.ID,
		AvailableSeats: t.AvailableSeats,
		Status:         t.Status,
		Bookable:       tripBookable(t, nowOr(s.Now)),
	}, nil
}

func tripBookable(t models.Trip, now time.Time) bool {
	return !domain.IsCartItemExpired(t.Status, t.DepartureDate, now) && t.AvailableSeats > 0
}

func (s TripService) Create(ctx context.Context, in models.TripInput) (models.Trip, error) {
	if in.RouteID == nil || in.DepartureDate == nil || in.ReturnDate == nil || in.Price == nil || in.TotalSeats == nil {
		return models.Trip{}, domain.ValidationError{Msg: "routeId, departureDate, returnDate, price and totalSeats are required"}
	}
	t := models.Trip{Status: domain.TripScheduled}
	if err := applyTripInput(&t, in); err != nil {
		return models.Trip{}, err
	}
	if !t.DepartureDate.After(nowOr(s.Now)) {
		return models.Trip{}, domain.ValidationError{Field: "departureDate", Msg: "must be in the future"}
	}
	t.AvailableSeats = t.TotalSeats
	if _, err := s.Routes.GetByID(ctx, t.RouteID); err != nil {
		return models.Trip{}, internal(err)
	}

	id, err := s.Trips.Create(ctx, t)
	if err != nil {
		return models.Trip{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "trips", "create", fmt.Sprintf("trip_id=%d route_id=%d", id, t.RouteID))
	s.Tours.InvalidateHome(ctx)
	return s.Get(ctx, id)
}

// Update edits a scheduled trip. Seats already booked stay booked, so
// totalSeats cannot drop below them.
func (s TripService) Update(ctx context.Context, id int64, in models.TripInput) (models.Trip, error) {
	err := intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		trips := s.Trips.InTx(tx)
		t, err := trips.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != domain.TripScheduled {
			return domain.ConflictError{Resource: "trip", Msg: fmt.Sprintf("cannot edit a %s trip", strings.ToLower(string(t.Status)))}
		}
		booked := t.TotalSeats - t.AvailableSeats
		if err := applyTripInput(&t, in); err != nil {
			return err
		}
		if t.TotalSeats < booked {
			return domain.ConflictError{Resource: "trip", Msg: fmt.Sprintf("%d seats are already booked", booked)}
		}
		t.AvailableSeats = t.TotalSeats - booked
		if in.RouteID != nil {
			if _, err := s.Routes.GetByID(ctx, t.RouteID); err != nil {
				return err
			}
		}
		return trips.Update(ctx, t)
	})
	if err != nil {
		return models.Trip{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "trips", "update", fmt.Sprintf("trip_id=%d", id))
	s.Tours.InvalidateHome(ctx)
	return s.Get(ctx, id)
}

// Delete removes a trip nobody has booked.
func (s TripService) Delete(ctx context.Context, id int64) error {
	n, err := s.Bookings.CountByTrip(ctx, id)
	if err != nil {
		return internal(err)
	}
	if n > 0 {
		return domain.ConflictError{Resource: "trip", Msg: fmt.Sprintf("trip has %d booking(s); cancel it instead", n)}
	}
	if err := s.Trips.Delete(ctx, id); err != nil {
		return internal(err)
	}
	utils.LogEvent(s.RequestID, "trips", "delete", fmt.Sprintf("trip_id=%d", id))
	s.Tours.InvalidateHome(ctx)
	return nil
}

// ChangeStatus moves a trip along its lifecycle and cascades to bookings:
// FINISHED completes confirmed bookings, CANCELED cancels every active one.
func (s TripService) ChangeStatus(ctx context.Context, id int64, status domain.TripStatus) (models.Trip, error) {
	err := intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		trips := s.Trips.InTx(tx)
		t, err := trips.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !domain.ValidTripTransition(t.Status, status) {
			return domain.ConflictError{Resource: "trip", Msg: fmt.Sprintf("cannot move from %s to %s", t.Status, status)}
		}
		if t.Status == status {
			return nil
		}
		if err := trips.SetStatus(ctx, id, status); err != nil {
			return err
		}

		bookings := s.Bookings.InTx(tx)
		invoices := s.Invoices.InTx(tx)
		active, err := bookings.ListActiveByTrip(ctx, id)
		if err != nil {
			return err
		}
		for _, b := range active {
			switch {
			case status == domain.TripFinished && b.Status == domain.BookingConfirmed:
				err = bookings.UpdateStatus(ctx, b.ID, domain.BookingCompleted)
			case status == domain.TripFinished, status == domain.TripCanceled:
				err = cancelBookingTx(ctx, trips, bookings, invoices, b)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Trip{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "trips", "change_status", fmt.Sprintf("trip_id=%d status=%s", id, status))
	s.Tours.InvalidateHome(ctx)
	return s.Get(ctx, id)
}

// cancelBookingTx cancels b, returning its seats when they were reserved and
// refunding a paid invoice.
func cancelBookingTx(ctx context.Context, trips repositories.TripRepository, bookings repositories.BookingRepository,
	invoices repositories.InvoiceRepository, b models.Booking) error {
	if b.Status == domain.BookingConfirmed {
		if err := trips.AdjustSeats(ctx, b.TripID, b.SeatCount); err != nil {
			return err
		}
	}
	inv, ok, err := invoices.FindByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	if ok && inv.PaymentStatus == domain.PaymentPaid {
		if err := invoices.SetStatus(ctx, inv.ID, domain.PaymentRefunded); err != nil {
			return err
		}
	}
	if err := bookings.UpdateStatus(ctx, b.ID, domain.BookingCanceled); err != nil {
		return err
	}
	metrics.BookingsCanceled.Inc()
	return nil
}

func applyTripInput(t *models.Trip, in models.TripInput) error {
	if in.RouteID != nil {
		if *in.RouteID <= 0 {
			return domain.ValidationError{Field: "routeId", Msg: "invalid id"}
		}
		t.RouteID = *in.RouteID
	}
	if in.PickUpTime != nil {
		clock := strings.TrimSpace(*in.PickUpTime)
		if clock != "" {
			if _, err := utils.ParseClock(clock); err != nil {
				return domain.ValidationError{Field: "pickUpTime", Msg: "expected HH:MM", Err: err}
			}
		}
		t.PickUpTime = clock
	}
	if in.PickUpLocation != nil {
		t.PickUpLocation = utils.NormalizeSpace(*in.PickUpLocation)
	}
	if in.DepartureDate != nil {
		d, err := parseTripTime(*in.DepartureDate, t.PickUpTime)
		if err != nil {
			return domain.ValidationError{Field: "departureDate", Msg: "expected YYYY-MM-DD or YYYY-MM-DD HH:MM", Err: err}
		}
		t.DepartureDate = d
	}
	if in.ReturnDate != nil {
		d, err := parseTripTime(*in.ReturnDate, "")
		if err != nil {
			return domain.ValidationError{Field: "returnDate", Msg: "expected YYYY-MM-DD or YYYY-MM-DD HH:MM", Err: err}
		}
		t.ReturnDate = d
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return domain.ValidationError{Field: "price", Msg: "must be positive"}
		}
		t.Price = *in.Price
	}
	if in.TotalSeats != nil {
		if *in.TotalSeats <= 0 {
			return domain.ValidationError{Field: "totalSeats", Msg: "must be positive"}
		}
		t.TotalSeats = *in.TotalSeats
	}
	if t.ReturnDate.Before(t.DepartureDate) {
		return domain.ValidationError{Field: "returnDate", Msg: "is before departureDate"}
	}
	return nil
}

// parseTripTime accepts a date, a date with time, or RFC3339. A bare date
// takes its clock from clock when given.
func parseTripTime(v, clock string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, utils.LayoutDateTime, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	d, err := utils.ParseDate(v)
	if err != nil {
		return time.Time{}, err
	}
	if clock != "" {
		if c, err := utils.ParseClock(clock); err == nil {
			d = d.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
		}
	}
	return d, nil
}
