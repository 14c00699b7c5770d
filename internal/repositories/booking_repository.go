package repositories

import (
	"context"
	"database/sql"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type BookingRepository struct {
	conn
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return BookingRepository{conn{DB: db}}
}

func (r BookingRepository) InTx(tx *sql.Tx) BookingRepository {
	r.tx = tx
	return r
}

const bookingSelect = `
	SELECT b.id, b.code, b.trip_id, b.user_id, b.seat_count, b.unit_price, b.status, b.note,
		COALESCE(rt.name,''), t.departure_date, b.created_at, b.updated_at
	FROM bookings b
	JOIN trips t ON t.id = b.trip_id
	LEFT JOIN routes rt ON rt.id = t.route_id`

func scanBooking(s rowScanner) (models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := s.Scan(&b.ID, &b.Code, &b.TripID, &b.UserID, &b.SeatCount, &b.UnitPrice, &status, &b.Note,
		&b.RouteName, &b.DepartureDate, &b.CreatedAt, &b.UpdatedAt)
	b.Status = domain.BookingStatus(status)
	b.Travelers = []models.Traveler{}
	return b, err
}

func (r BookingRepository) Create(ctx context.Context, b models.Booking) (int64, error) {
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO bookings (code, trip_id, user_id, seat_count, unit_price, status, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Code, b.TripID, b.UserID, b.SeatCount, b.UnitPrice, string(b.Status), b.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r BookingRepository) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	b, err := scanBooking(r.q().QueryRowContext(ctx, bookingSelect+` WHERE b.id=? LIMIT 1`, id))
	if err != nil {
		return models.Booking{}, notFound("booking", err)
	}
	return b, nil
}

// GetForUpdate locks the booking row; must run inside a transaction.
func (r BookingRepository) GetForUpdate(ctx context.Context, id int64) (models.Booking, error) {
	b, err := scanBooking(r.q().QueryRowContext(ctx, bookingSelect+` WHERE b.id=? LIMIT 1 FOR UPDATE`, id))
	if err != nil {
		return models.Booking{}, notFound("booking", err)
	}
	return b, nil
}

// List filters bookings; userID > 0 restricts to one customer.
func (r BookingRepository) List(ctx context.Context, userID int64, q domain.ListQuery) ([]models.Booking, int, error) {
	q = q.Normalize()
	var w intdb.Where
	if userID > 0 {
		w.Add("b.user_id=?", userID)
	}
	if q.Status != "" {
		w.Add("b.status=?", q.Status)
	}
	if v := q.Filter("tripId"); v != "" {
		w.Add("b.trip_id=?", v)
	}
	if v := q.Filter("userId"); v != "" {
		w.Add("b.user_id=?", v)
	}
	if q.Keyword != "" {
		w.Add("(b.code LIKE ? OR rt.name LIKE ?)", like(q.Keyword), like(q.Keyword))
	}

	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings b JOIN trips t ON t.id = b.trip_id LEFT JOIN routes rt ON rt.id = t.route_id WHERE `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(q.SortField, q.SortDesc, map[string]string{
		"createdAt":     "b.created_at",
		"departureDate": "t.departure_date",
		"status":        "b.status",
	}, "b.created_at DESC, b.id DESC")
	args := append(w.Args(), q.PageSize, q.Offset())
	rows, err := r.q().QueryContext(ctx, bookingSelect+` WHERE `+w.SQL()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// ListActiveByTrip returns PENDING and CONFIRMED bookings of a trip.
func (r BookingRepository) ListActiveByTrip(ctx context.Context, tripID int64) ([]models.Booking, error) {
	rows, err := r.q().QueryContext(ctx, bookingSelect+` WHERE b.trip_id=? AND b.status IN (?, ?)`,
		tripID, string(domain.BookingPending), string(domain.BookingConfirmed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountByTrip counts every booking of a trip regardless of status.
func (r BookingRepository) CountByTrip(ctx context.Context, tripID int64) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE trip_id=?`, tripID).Scan(&n)
	return n, err
}

func (r BookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	_, err := r.q().ExecContext(ctx, `UPDATE bookings SET status=? WHERE id=?`, string(status), id)
	return err
}

func (r BookingRepository) UpdateSeatCount(ctx context.Context, id int64, seats int) error {
	_, err := r.q().ExecContext(ctx, `UPDATE bookings SET seat_count=? WHERE id=?`, seats, id)
	return err
}

func (r BookingRepository) UpdateNote(ctx context.Context, id int64, note string) error {
	_, err := r.q().ExecContext(ctx, `UPDATE bookings SET note=? WHERE id=?`, note, id)
	return err
}

func (r BookingRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q().ExecContext(ctx, `DELETE FROM travelers WHERE booking_id=?`, id); err != nil {
		return err
	}
	res, err := r.q().ExecContext(ctx, `DELETE FROM bookings WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

// TravelerRepository manages the traveler sub-resource of bookings.
type TravelerRepository struct {
	conn
}

func NewTravelerRepository(db *sql.DB) TravelerRepository {
	return TravelerRepository{conn{DB: db}}
}

func (r TravelerRepository) InTx(tx *sql.Tx) TravelerRepository {
	r.tx = tx
	return r
}

const travelerColumns = `id, booking_id, full_name, gender, COALESCE(DATE_FORMAT(date_of_birth, '%Y-%m-%d'), ''),
	identity_number, email, phone`

func scanTraveler(s rowScanner) (models.Traveler, error) {
	var (
		t      models.Traveler
		gender string
	)
	err := s.Scan(&t.ID, &t.BookingID, &t.FullName, &gender, &t.DateOfBirth, &t.IdentityNumber, &t.Email, &t.Phone)
	t.Gender = domain.Gender(gender)
	return t, err
}

func (r TravelerRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.Traveler, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+travelerColumns+` FROM travelers WHERE booking_id=? ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Traveler{}
	for rows.Next() {
		t, err := scanTraveler(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r TravelerRepository) Count(ctx context.Context, bookingID int64) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM travelers WHERE booking_id=?`, bookingID).Scan(&n)
	return n, err
}

func (r TravelerRepository) GetByID(ctx context.Context, bookingID, id int64) (models.Traveler, error) {
	t, err := scanTraveler(r.q().QueryRowContext(ctx, `SELECT `+travelerColumns+` FROM travelers WHERE id=? AND booking_id=? LIMIT 1`, id, bookingID))
	if err != nil {
		return models.Traveler{}, notFound("traveler", err)
	}
	return t, nil
}

func (r TravelerRepository) Create(ctx context.Context, t models.Traveler) (int64, error) {
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO travelers (booking_id, full_name, gender, date_of_birth, identity_number, email, phone)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.BookingID, t.FullName, string(t.Gender), intdb.NullIfEmpty(t.DateOfBirth), t.IdentityNumber, t.Email, t.Phone)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r TravelerRepository) Update(ctx context.Context, t models.Traveler) error {
	_, err := r.q().ExecContext(ctx, `
		UPDATE travelers SET full_name=?, gender=?, date_of_birth=?, identity_number=?, email=?, phone=?
		WHERE id=? AND booking_id=?`,
		t.FullName, string(t.Gender), intdb.NullIfEmpty(t.DateOfBirth), t.IdentityNumber, t.Email, t.Phone, t.ID, t.BookingID)
	return err
}

func (r TravelerRepository) Delete(ctx context.Context, bookingID, id int64) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM travelers WHERE id=? AND booking_id=?`, id, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "traveler"}
	}
	return nil
}
