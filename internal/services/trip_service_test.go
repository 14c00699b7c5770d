package services

import (
	"context"
	"testing"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTripService(t *testing.T) (TripService, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return TripService{
		Trips:    repositories.NewTripRepository(db),
		Routes:   repositories.NewRouteRepository(db),
		Bookings: repositories.NewBookingRepository(db),
		Invoices: repositories.NewInvoiceRepository(db),
		DB:       db,
		Now:      fixedNow,
	}, mock
}

func TestChangeStatusRejectsSkippingOngoing(t *testing.T) {
	svc, mock := newTripService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripScheduled, testDeparture, 20, 18))
	mock.ExpectRollback()

	if _, err := svc.ChangeStatus(context.Background(), 4, domain.TripFinished); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestChangeStatusCancelCascades(t *testing.T) {
	svc, mock := newTripService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripScheduled, testDeparture, 20, 18))
	mock.ExpectExec("UPDATE trips SET status").WithArgs("CANCELED", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	active := bookingRows()
	addBooking(active, 1, 5, 2, domain.BookingConfirmed)
	addBooking(active, 2, 6, 1, domain.BookingPending)
	mock.ExpectQuery("FROM bookings b").WithArgs(int64(4), "PENDING", "CONFIRMED").WillReturnRows(active)

	mock.ExpectExec("UPDATE trips SET available_seats").WithArgs(2, int64(4), 2, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM invoices i").WithArgs(int64(1)).
		WillReturnRows(addInvoice(invoiceRows(), 9, 1, 5, domain.PaymentPaid, testDeparture))
	mock.ExpectExec("UPDATE invoices SET payment_status").WithArgs("REFUNDED", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status").WithArgs("CANCELED", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("FROM invoices i").WithArgs(int64(2)).WillReturnRows(invoiceRows())
	mock.ExpectExec("UPDATE bookings SET status").WithArgs("CANCELED", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripCanceled, testDeparture, 20, 20))

	trip, err := svc.ChangeStatus(context.Background(), 4, domain.TripCanceled)
	if err != nil {
		t.Fatalf("ChangeStatus error: %v", err)
	}
	if trip.Status != domain.TripCanceled || trip.BookedSeats != 0 {
		t.Fatalf("unexpected trip %+v", trip)
	}
	expectationsMet(t, mock)
}

func TestTripUpdateKeepsBookedSeats(t *testing.T) {
	svc, mock := newTripService(t)
	seats := 1

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripScheduled, testDeparture, 20, 18))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 4, models.TripInput{TotalSeats: &seats})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict when shrinking below booked seats, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTripCreateValidation(t *testing.T) {
	svc, mock := newTripService(t)
	route := int64(3)
	price := int64(1500000)
	seats := 20
	past := "2020-01-01"
	ret := "2020-01-03"

	if _, err := svc.Create(context.Background(), models.TripInput{RouteID: &route}); !domain.IsValidation(err) {
		t.Fatalf("expected missing fields error, got %v", err)
	}
	_, err := svc.Create(context.Background(), models.TripInput{
		RouteID: &route, DepartureDate: &past, ReturnDate: &ret, Price: &price, TotalSeats: &seats,
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected past departure to be rejected, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestParseTripTimeUsesPickUpClock(t *testing.T) {
	got, err := parseTripTime("2026-05-01", "07:30")
	if err != nil {
		t.Fatalf("parseTripTime error: %v", err)
	}
	if got.Hour() != 7 || got.Minute() != 30 || got.Day() != 1 {
		t.Fatalf("unexpected time %v", got)
	}
	if _, err := parseTripTime("01/05/2026", ""); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}
