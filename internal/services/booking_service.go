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

type BookingService struct {
	Bookings  repositories.BookingRepository
	Travelers repositories.TravelerRepository
	Trips     repositories.TripRepository
	Invoices  repositories.InvoiceRepository
	Cart      repositories.CartRepository
	Links     repositories.PaymentLinkRepository
	Gateway   PaymentGateway
	DB        *sql.DB
	Now       func() time.Time
	RequestID string
}

type TravelerInput struct {
	FullName       string `json:"fullName"`
	Gender         string `json:"gender"`
	DateOfBirth    string `json:"dateOfBirth"`
	IdentityNumber string `json:"identityNumber"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
}

// BookingUpdate is the staff edit shape; nil fields are left alone.
type BookingUpdate struct {
	Status *string `json:"status"`
	Note   *string `json:"note"`
}

func (s BookingService) List(ctx context.Context, rc domain.RequestContext, q domain.ListQuery) (domain.Page[models.Booking], error) {
	if !rc.IsStaff() && q.Filters != nil {
		delete(q.Filters, "userId")
	}
	items, total, err := s.Bookings.List(ctx, scopeUser(rc), q)
	if err != nil {
		return domain.Page[models.Booking]{}, internal(err)
	}
	return domain.NewPage(items, q, total), nil
}

// Get loads a booking with its travelers and invoice.
func (s BookingService) Get(ctx context.Context, rc domain.RequestContext, id int64) (models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, internal(err)
	}
	if err := checkOwner(rc, b.UserID, "booking"); err != nil {
		return models.Booking{}, err
	}
	if b.Travelers, err = s.Travelers.ListByBooking(ctx, id); err != nil {
		return models.Booking{}, internal(err)
	}
	inv, ok, err := s.Invoices.FindByBooking(ctx, id)
	if err != nil {
		return models.Booking{}, internal(err)
	}
	if ok {
		inv.Editable = domain.CanEditPaymentMethod(inv.PaymentStatus, inv.DepartureDate, nowOr(s.Now))
		b.Invoice = &inv
	}
	return b, nil
}

func (s BookingService) ListTravelers(ctx context.Context, rc domain.RequestContext, bookingID int64) ([]models.Traveler, error) {
	b, err := s.Get(ctx, rc, bookingID)
	if err != nil {
		return nil, err
	}
	return b.Travelers, nil
}

// AddTraveler appends a traveler to a pending booking, up to its seat count.
func (s BookingService) AddTraveler(ctx context.Context, rc domain.RequestContext, bookingID int64, in TravelerInput) (models.Traveler, error) {
	b, err := s.Get(ctx, rc, bookingID)
	if err != nil {
		return models.Traveler{}, err
	}
	if b.Status != domain.BookingPending {
		return models.Traveler{}, domain.ConflictError{Resource: "booking", Msg: "travelers can only be added before confirmation"}
	}
	if len(b.Travelers) >= b.SeatCount {
		return models.Traveler{}, domain.ConflictError{Resource: "booking",
			Msg: fmt.Sprintf("booking already has %d of %d traveler(s)", len(b.Travelers), b.SeatCount)}
	}
	t, err := in.toTraveler(nowOr(s.Now))
	if err != nil {
		return models.Traveler{}, err
	}
	t.BookingID = bookingID
	if t.ID, err = s.Travelers.Create(ctx, t); err != nil {
		return models.Traveler{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "bookings", "add_traveler", fmt.Sprintf("booking_id=%d traveler_id=%d", bookingID, t.ID))
	return t, nil
}

// UpdateTraveler corrects a traveler's details while the booking is still active.
func (s BookingService) UpdateTraveler(ctx context.Context, rc domain.RequestContext, bookingID, travelerID int64, in TravelerInput) (models.Traveler, error) {
	b, err := s.Get(ctx, rc, bookingID)
	if err != nil {
		return models.Traveler{}, err
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed {
		return models.Traveler{}, domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s", strings.ToLower(string(b.Status)))}
	}
	if _, err := s.Travelers.GetByID(ctx, bookingID, travelerID); err != nil {
		return models.Traveler{}, internal(err)
	}
	t, err := in.toTraveler(nowOr(s.Now))
	if err != nil {
		return models.Traveler{}, err
	}
	t.ID, t.BookingID = travelerID, bookingID
	if err := s.Travelers.Update(ctx, t); err != nil {
		return models.Traveler{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "bookings", "update_traveler", fmt.Sprintf("booking_id=%d traveler_id=%d", bookingID, travelerID))
	return t, nil
}

// DeleteTraveler removes a traveler; confirmed bookings keep their full list.
func (s BookingService) DeleteTraveler(ctx context.Context, rc domain.RequestContext, bookingID, travelerID int64) error {
	b, err := s.Get(ctx, rc, bookingID)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingPending {
		return domain.ConflictError{Resource: "booking", Msg: "travelers can only be removed before confirmation"}
	}
	if err := s.Travelers.Delete(ctx, bookingID, travelerID); err != nil {
		return internal(err)
	}
	utils.LogEvent(s.RequestID, "bookings", "delete_traveler", fmt.Sprintf("booking_id=%d traveler_id=%d", bookingID, travelerID))
	return nil
}

// Confirm reserves the booking's seats and issues its UNPAID invoice in one
// transaction. Every seat must have a traveler first.
func (s BookingService) Confirm(ctx context.Context, rc domain.RequestContext, id int64, method domain.PaymentMethod) (models.Booking, error) {
	if method == "" {
		method = domain.MethodCash
	}
	err := intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		bookings := s.Bookings.InTx(tx)
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwner(rc, b.UserID, "booking"); err != nil {
			return err
		}
		if b.Status != domain.BookingPending {
			return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is already %s", strings.ToLower(string(b.Status)))}
		}
		n, err := s.Travelers.InTx(tx).Count(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CheckTravelersComplete(n, b.SeatCount); err != nil {
			return err
		}

		trips := s.Trips.InTx(tx)
		t, err := trips.GetForUpdate(ctx, b.TripID)
		if err != nil {
			return err
		}
		if domain.IsCartItemExpired(t.Status, t.DepartureDate, nowOr(s.Now)) {
			return domain.ConflictError{Resource: "trip", Msg: "trip is no longer open for booking"}
		}
		if err := trips.AdjustSeats(ctx, t.ID, -b.SeatCount); err != nil {
			return err
		}
		if err := bookings.UpdateStatus(ctx, id, domain.BookingConfirmed); err != nil {
			return err
		}
		if _, err := s.Invoices.InTx(tx).Create(ctx, models.Invoice{
			Code:          newCode("INV"),
			BookingID:     id,
			TotalAmount:   b.UnitPrice * int64(b.SeatCount),
			PaymentStatus: domain.PaymentUnpaid,
			PaymentMethod: method,
		}); err != nil {
			return err
		}
		return s.Cart.InTx(tx).DeleteByPendingBooking(ctx, id)
	})
	if err != nil {
		return models.Booking{}, internal(err)
	}
	metrics.BookingsConfirmed.Inc()
	utils.LogEvent(s.RequestID, "bookings", "confirm", fmt.Sprintf("booking_id=%d method=%s", id, method))
	return s.Get(ctx, rc, id)
}

// Cancel cancels a booking, releasing reserved seats and refunding a paid invoice.
func (s BookingService) Cancel(ctx context.Context, rc domain.RequestContext, id int64) (models.Booking, error) {
	var pending []models.PaymentLink
	err := intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		bookings := s.Bookings.InTx(tx)
		invoices := s.Invoices.InTx(tx)
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwner(rc, b.UserID, "booking"); err != nil {
			return err
		}
		var invStatus domain.PaymentStatus
		if inv, ok, err := invoices.FindByBooking(ctx, id); err != nil {
			return err
		} else if ok {
			invStatus = inv.PaymentStatus
		}
		if !domain.CanCancelBooking(b.Status, invStatus) {
			return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("a %s booking cannot be cancelled", strings.ToLower(string(b.Status)))}
		}
		if err := cancelBookingTx(ctx, s.Trips.InTx(tx), bookings, invoices, b); err != nil {
			return err
		}
		links := s.Links.InTx(tx)
		if l, ok, err := links.FindPending(ctx, id); err != nil {
			return err
		} else if ok {
			pending = append(pending, l)
			if err := links.UpdateStatus(ctx, l.OrderCode, domain.LinkCancelled); err != nil {
				return err
			}
		}
		return s.Cart.InTx(tx).DeleteByPendingBooking(ctx, id)
	})
	if err != nil {
		return models.Booking{}, internal(err)
	}
	for _, l := range pending {
		if s.Gateway == nil {
			continue
		}
		if _, err := s.Gateway.CancelPaymentLink(ctx, l.OrderCode, "booking cancelled"); err != nil {
			utils.L().Warn("cancel payment link failed", "order_code", l.OrderCode, "error", err)
		}
	}
	utils.LogEvent(s.RequestID, "bookings", "cancel", fmt.Sprintf("booking_id=%d", id))
	return s.Get(ctx, rc, id)
}

// Update is the staff edit: note changes and status moves to CANCELED or COMPLETED.
func (s BookingService) Update(ctx context.Context, rc domain.RequestContext, id int64, in BookingUpdate) (models.Booking, error) {
	if err := requireStaff(rc); err != nil {
		return models.Booking{}, err
	}
	b, err := s.Get(ctx, rc, id)
	if err != nil {
		return models.Booking{}, err
	}
	if in.Note != nil {
		if err := s.Bookings.UpdateNote(ctx, id, strings.TrimSpace(*in.Note)); err != nil {
			return models.Booking{}, internal(err)
		}
	}
	if in.Status != nil {
		status, ok := domain.ParseBookingStatus(*in.Status)
		if !ok {
			return models.Booking{}, domain.ValidationError{Field: "status", Msg: "unknown booking status"}
		}
		switch {
		case status == b.Status:
		case status == domain.BookingCanceled:
			return s.Cancel(ctx, rc, id)
		case status == domain.BookingConfirmed:
			return s.Confirm(ctx, rc, id, domain.MethodCash)
		case status == domain.BookingCompleted && b.Status == domain.BookingConfirmed:
			if err := s.Bookings.UpdateStatus(ctx, id, status); err != nil {
				return models.Booking{}, internal(err)
			}
		default:
			return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("cannot move from %s to %s", b.Status, status)}
		}
	}
	utils.LogEvent(s.RequestID, "bookings", "update", fmt.Sprintf("booking_id=%d", id))
	return s.Get(ctx, rc, id)
}

// Delete removes a booking that never reserved seats or was already cancelled.
func (s BookingService) Delete(ctx context.Context, rc domain.RequestContext, id int64) error {
	if err := requireStaff(rc); err != nil {
		return err
	}
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return internal(err)
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingCanceled {
		return domain.ConflictError{Resource: "booking", Msg: "cancel the booking before deleting it"}
	}
	if _, ok, err := s.Invoices.FindByBooking(ctx, id); err != nil {
		return internal(err)
	} else if ok {
		return domain.ConflictError{Resource: "booking", Msg: "booking has an invoice"}
	}
	if err := s.Bookings.Delete(ctx, id); err != nil {
		return internal(err)
	}
	utils.LogEvent(s.RequestID, "bookings", "delete", fmt.Sprintf("booking_id=%d", id))
	return nil
}

func (in TravelerInput) toTraveler(now time.Time) (models.Traveler, error) {
	t := models.Traveler{
		FullName:       utils.NormalizeSpace(in.FullName),
		DateOfBirth:    strings.TrimSpace(in.DateOfBirth),
		IdentityNumber: strings.TrimSpace(in.IdentityNumber),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:          utils.NormalizePhone(in.Phone),
	}
	if t.FullName == "" {
		return t, domain.ValidationError{Field: "fullName", Msg: "required"}
	}
	g, ok := domain.ParseGender(in.Gender)
	if !ok {
		return t, domain.ValidationError{Field: "gender", Msg: "must be MALE, FEMALE or OTHER"}
	}
	t.Gender = g
	if t.DateOfBirth != "" {
		dob, err := utils.ParseDate(t.DateOfBirth)
		if err != nil {
			return t, domain.ValidationError{Field: "dateOfBirth", Msg: "expected YYYY-MM-DD", Err: err}
		}
		if dob.After(now) {
			return t, domain.ValidationError{Field: "dateOfBirth", Msg: "is in the future"}
		}
	}
	if t.Email != "" && !utils.IsValidEmail(t.Email) {
		return t, domain.ValidationError{Field: "email", Msg: "invalid email address"}
	}
	if t.Phone != "" && !utils.IsValidPhone(t.Phone) {
		return t, domain.ValidationError{Field: "phone", Msg: "invalid phone number"}
	}
	return t, nil
}
