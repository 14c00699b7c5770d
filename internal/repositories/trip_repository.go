package repositories

import (
	"context"
	"database/sql"
	"time"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type TripRepository struct {
	conn
}

func NewTripRepository(db *sql.DB) TripRepository {
	return TripRepository{conn{DB: db}}
}

func (r TripRepository) InTx(tx *sql.Tx) TripRepository {
	r.tx = tx
	return r
}

const tripColumns = `t.id, t.route_id, COALESCE(r.name,''), t.departure_date, t.return_date, t.price,
	t.total_seats, t.available_seats, t.pick_up_time, t.pick_up_location, t.status, t.created_at, t.updated_at`

const tripFrom = ` FROM trips t LEFT JOIN routes r ON r.id = t.route_id`

func scanTrip(s rowScanner) (models.Trip, error) {
	var (
		t      models.Trip
		status string
	)
	err := s.Scan(&t.ID, &t.RouteID, &t.RouteName, &t.DepartureDate, &t.ReturnDate, &t.Price,
		&t.TotalSeats, &t.AvailableSeats, &t.PickUpTime, &t.PickUpLocation, &status, &t.CreatedAt, &t.UpdatedAt)
	t.Status = domain.TripStatus(status)
	t.BookedSeats = t.TotalSeats - t.AvailableSeats
	return t, err
}

func (r TripRepository) Create(ctx context.Context, t models.Trip) (int64, error) {
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO trips (route_id, departure_date, return_date, price, total_seats, available_seats, pick_up_time, pick_up_location, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RouteID, t.DepartureDate, t.ReturnDate, t.Price, t.TotalSeats, t.AvailableSeats, t.PickUpTime, t.PickUpLocation, string(t.Status))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update writes the editable fields; seat counters are written as given.
func (r TripRepository) Update(ctx context.Context, t models.Trip) error {
	_, err := r.q().ExecContext(ctx, `
		UPDATE trips SET route_id=?, departure_date=?, return_date=?, price=?, total_seats=?, available_seats=?,
			pick_up_time=?, pick_up_location=?
		WHERE id=?`,
		t.RouteID, t.DepartureDate, t.ReturnDate, t.Price, t.TotalSeats, t.AvailableSeats, t.PickUpTime, t.PickUpLocation, t.ID)
	return err
}

func (r TripRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM trips WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "trip"}
	}
	return nil
}

func (r TripRepository) GetByID(ctx context.Context, id int64) (models.Trip, error) {
	t, err := scanTrip(r.q().QueryRowContext(ctx, `SELECT `+tripColumns+tripFrom+` WHERE t.id=? LIMIT 1`, id))
	if err != nil {
		return models.Trip{}, notFound("trip", err)
	}
	return t, nil
}

// GetForUpdate locks the trip row; must run inside a transaction.
func (r TripRepository) GetForUpdate(ctx context.Context, id int64) (models.Trip, error) {
	t, err := scanTrip(r.q().QueryRowContext(ctx, `SELECT `+tripColumns+tripFrom+` WHERE t.id=? LIMIT 1 FOR UPDATE`, id))
	if err != nil {
		return models.Trip{}, notFound("trip", err)
	}
	return t, nil
}

// AdjustSeats moves delta seats into (positive) or out of (negative) availability.
// The WHERE guard keeps available_seats within [0, total_seats].
func (r TripRepository) AdjustSeats(ctx context.Context, id int64, delta int) error {
	res, err := r.q().ExecContext(ctx, `
		UPDATE trips SET available_seats = available_seats + ?
		WHERE id=? AND available_seats + ? >= 0 AND available_seats + ? <= total_seats`,
		delta, id, delta, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ConflictError{Resource: "trip", Msg: "not enough seats available"}
	}
	return nil
}

func (r TripRepository) SetStatus(ctx context.Context, id int64, status domain.TripStatus) error {
	_, err := r.q().ExecContext(ctx, `UPDATE trips SET status=? WHERE id=?`, string(status), id)
	return err
}

func (r TripRepository) List(ctx context.Context, q domain.ListQuery) ([]models.Trip, int, error) {
	q = q.Normalize()
	var w intdb.Where
	if q.Status != "" {
		w.Add("t.status=?", q.Status)
	}
	if v := q.Filter("routeId"); v != "" {
		w.Add("t.route_id=?", v)
	}
	if v := q.Filter("departureFrom"); v != "" {
		w.Add("t.departure_date>=?", v)
	}
	if v := q.Filter("departureTo"); v != "" {
		w.Add("t.departure_date<=?", v)
	}
	if q.Keyword != "" {
		w.Add("(r.name LIKE ? OR r.code LIKE ? OR t.pick_up_location LIKE ?)", like(q.Keyword), like(q.Keyword), like(q.Keyword))
	}

	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*)`+tripFrom+` WHERE `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(q.SortField, q.SortDesc, map[string]string{
		"departureDate":  "t.departure_date",
		"price":          "t.price",
		"availableSeats": "t.available_seats",
	}, "t.departure_date DESC, t.id DESC")
	args := append(w.Args(), q.PageSize, q.Offset())
	trips, err := r.collect(ctx, `SELECT `+tripColumns+tripFrom+` WHERE `+w.SQL()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	return trips, total, err
}

// ListBookable returns scheduled trips of a route departing after now with seats left.
func (r TripRepository) ListBookable(ctx context.Context, routeID int64, now time.Time) ([]models.Trip, error) {
	return r.collect(ctx, `SELECT `+tripColumns+tripFrom+`
		WHERE t.route_id=? AND t.status=? AND t.departure_date>? AND t.available_seats>0
		ORDER BY t.departure_date ASC`, routeID, string(domain.TripScheduled), now)
}

// Upcoming returns the soonest bookable trips across all routes.
func (r TripRepository) Upcoming(ctx context.Context, now time.Time, limit int) ([]models.Trip, error) {
	return r.collect(ctx, `SELECT `+tripColumns+tripFrom+`
		WHERE t.status=? AND t.departure_date>? AND t.available_seats>0
		ORDER BY t.departure_date ASC LIMIT ?`, string(domain.TripScheduled), now, limit)
}

func (r TripRepository) collect(ctx context.Context, query string, args ...any) ([]models.Trip, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
