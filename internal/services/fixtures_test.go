package services

import (
	"database/sql"
	"testing"
	"time"

	"tourbooking/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
)

var (
	testNow       = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	testDeparture = testNow.Add(10 * 24 * time.Hour)
)

func fixedNow() time.Time { return testNow }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func tripRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "route_id", "route_name", "departure_date", "return_date", "price",
		"total_seats", "available_seats", "pick_up_time", "pick_up_location", "status", "created_at", "updated_at"})
}

func addTrip(rows *sqlmock.Rows, id int64, status domain.TripStatus, departure time.Time, total, available int) *sqlmock.Rows {
	return rows.AddRow(id, 3, "Ha Long Bay 3D2N", departure, departure.Add(48*time.Hour), 1500000,
		total, available, "07:30", "Hanoi Opera House", string(status), testNow, testNow)
}

func cartRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "trip_id", "route_id", "route_name", "departure_date", "available_seats",
		"status", "quantity", "unit_price", "pending_booking_id", "traveler_count", "created_at"})
}

func addCart(rows *sqlmock.Rows, id, userID, tripID int64, quantity int, pending any, travelers int) *sqlmock.Rows {
	return rows.AddRow(id, userID, tripID, 3, "Ha Long Bay 3D2N", testDeparture, 10,
		string(domain.TripScheduled), quantity, 1500000, pending, travelers, testNow)
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "trip_id", "user_id", "seat_count", "unit_price", "status", "note",
		"route_name", "departure_date", "created_at", "updated_at"})
}

func addBooking(rows *sqlmock.Rows, id, userID int64, seats int, status domain.BookingStatus) *sqlmock.Rows {
	return rows.AddRow(id, "BK-0000TEST", 4, userID, seats, 1500000, string(status), "",
		"Ha Long Bay 3D2N", testDeparture, testNow, testNow)
}

func travelerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "booking_id", "full_name", "gender", "date_of_birth", "identity_number", "email", "phone"})
}

func invoiceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "booking_id", "user_id", "total_amount", "payment_status", "payment_method",
		"departure_date", "paid_at", "created_at"})
}

func addInvoice(rows *sqlmock.Rows, id, bookingID, userID int64, status domain.PaymentStatus, departure time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "INV-0000TEST", bookingID, userID, 3000000, string(status), string(domain.MethodCash),
		departure, nil, testNow)
}

func linkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"order_code", "booking_id", "invoice_id", "amount", "checkout_url", "qr_code", "status", "created_at"})
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "password_hash", "role", "locked", "active", "created_at", "updated_at"})
}
