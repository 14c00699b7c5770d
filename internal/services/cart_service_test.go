package services

import (
	"context"
	"database/sql"
	"testing"

	"tourbooking/internal/domain"
	"tourbooking/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func newCartService(db *sql.DB) CartService {
	return CartService{
		Cart:      repositories.NewCartRepository(db),
		Trips:     repositories.NewTripRepository(db),
		Bookings:  repositories.NewBookingRepository(db),
		Travelers: repositories.NewTravelerRepository(db),
		DB:        db,
		Now:       fixedNow,
	}
}

func TestCartAddMergesSameTrip(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripScheduled, testDeparture, 20, 3))
	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(5), int64(4)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 1, nil, 0))
	mock.ExpectExec("UPDATE cart_items SET quantity").WithArgs(3, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 3, nil, 0))

	it, err := svc.Add(context.Background(), 5, 4, 2)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if it.Quantity != 3 || it.Subtotal != 4500000 || it.Expired {
		t.Fatalf("unexpected merged item %+v", it)
	}
	expectationsMet(t, mock)
}

func TestCartAddRejectsMoreThanAvailable(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripScheduled, testDeparture, 20, 3))
	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(5), int64(4)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 2, nil, 0))

	_, err := svc.Add(context.Background(), 5, 4, 2)
	if !domain.IsValidation(err) || err.Error() != "quantity: only 3 seat(s) available" {
		t.Fatalf("expected capacity validation, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCartAddRejectsDepartedTrip(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM trips t LEFT JOIN routes r").WithArgs(int64(4)).
		WillReturnRows(addTrip(tripRows(), 4, domain.TripScheduled, testNow.Add(-1), 20, 3))

	if _, err := svc.Add(context.Background(), 5, 4, 1); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCartQuantityCannotDropBelowTravelers(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 3, int64(20), 2))

	_, err := svc.UpdateQuantity(context.Background(), 5, 10, 1)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCartUpdateQuantitySyncsPendingBooking(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 3, int64(20), 2))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cart_items SET quantity").WithArgs(2, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET seat_count").WithArgs(2, int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 2, int64(20), 2))

	it, err := svc.UpdateQuantity(context.Background(), 5, 10, 2)
	if err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}
	if it.Quantity != 2 || it.PendingBookingID == nil || *it.PendingBookingID != 20 {
		t.Fatalf("unexpected item %+v", it)
	}
	expectationsMet(t, mock)
}

func TestPromoteToBookingIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 2, int64(20), 1))
	mock.ExpectQuery("FROM bookings b").WithArgs(int64(20)).
		WillReturnRows(addBooking(bookingRows(), 20, 5, 2, domain.BookingPending))
	mock.ExpectQuery("FROM travelers WHERE booking_id").WithArgs(int64(20)).
		WillReturnRows(travelerRows().AddRow(1, 20, "Nguyen Van A", "MALE", "", "", "", ""))

	b, err := svc.PromoteToBooking(context.Background(), 5, 10)
	if err != nil {
		t.Fatalf("PromoteToBooking error: %v", err)
	}
	if b.ID != 20 || len(b.Travelers) != 1 {
		t.Fatalf("expected existing booking 20, got %+v", b)
	}
	expectationsMet(t, mock)
}

func TestPromoteToBookingCreatesPending(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 5, 4, 2, nil, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").WithArgs(sqlmock.AnyArg(), int64(4), int64(5), 2, int64(1500000), "PENDING", "").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec("UPDATE cart_items SET pending_booking_id").WithArgs(int64(21), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM bookings b").WithArgs(int64(21)).
		WillReturnRows(addBooking(bookingRows(), 21, 5, 2, domain.BookingPending))

	b, err := svc.PromoteToBooking(context.Background(), 5, 10)
	if err != nil {
		t.Fatalf("PromoteToBooking error: %v", err)
	}
	if b.ID != 21 || b.Status != domain.BookingPending {
		t.Fatalf("unexpected booking %+v", b)
	}
	expectationsMet(t, mock)
}

func TestCartOtherUsersItemIsHidden(t *testing.T) {
	db, mock := newMock(t)
	svc := newCartService(db)

	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(10)).
		WillReturnRows(addCart(cartRows(), 10, 99, 4, 2, nil, 0))

	if err := svc.Remove(context.Background(), 5, 10); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	expectationsMet(t, mock)
}
