package repositories

import (
	"context"
	"database/sql"
	"errors"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type CartRepository struct {
	conn
}

func NewCartRepository(db *sql.DB) CartRepository {
	return CartRepository{conn{DB: db}}
}

func (r CartRepository) InTx(tx *sql.Tx) CartRepository {
	r.tx = tx
	return r
}

const cartSelect = `
	SELECT c.id, c.user_id, c.trip_id, t.route_id, COALESCE(rt.name,''), t.departure_date, t.available_seats, t.status,
		c.quantity, c.unit_price, c.pending_booking_id,
		(SELECT COUNT(*) FROM travelers tv WHERE tv.booking_id = c.pending_booking_id), c.created_at
	FROM cart_items c
	JOIN trips t ON t.id = c.trip_id
	LEFT JOIN routes rt ON rt.id = t.route_id`

func scanCartItem(s rowScanner) (models.CartItem, error) {
	var (
		it      models.CartItem
		status  string
		pending sql.NullInt64
	)
	err := s.Scan(&it.ID, &it.UserID, &it.TripID, &it.RouteID, &it.RouteName, &it.DepartureDate, &it.AvailableSeats, &status,
		&it.Quantity, &it.UnitPrice, &pending, &it.TravelerCount, &it.CreatedAt)
	it.TripStatus = domain.TripStatus(status)
	if pending.Valid {
		id := pending.Int64
		it.PendingBookingID = &id
	}
	it.Subtotal = it.UnitPrice * int64(it.Quantity)
	return it, err
}

func (r CartRepository) ListByUser(ctx context.Context, userID int64) ([]models.CartItem, error) {
	rows, err := r.q().QueryContext(ctx, cartSelect+` WHERE c.user_id=? ORDER BY c.created_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.CartItem{}
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r CartRepository) GetByID(ctx context.Context, id int64) (models.CartItem, error) {
	it, err := scanCartItem(r.q().QueryRowContext(ctx, cartSelect+` WHERE c.id=? LIMIT 1`, id))
	if err != nil {
		return models.CartItem{}, notFound("cart item", err)
	}
	return it, nil
}

// FindByTrip returns the user's cart line for a trip, if any.
func (r CartRepository) FindByTrip(ctx context.Context, userID, tripID int64) (models.CartItem, bool, error) {
	it, err := scanCartItem(r.q().QueryRowContext(ctx, cartSelect+` WHERE c.user_id=? AND c.trip_id=? LIMIT 1`, userID, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CartItem{}, false, nil
	}
	if err != nil {
		return models.CartItem{}, false, err
	}
	return it, true, nil
}

func (r CartRepository) Create(ctx context.Context, userID, tripID int64, quantity int, unitPrice int64) (int64, error) {
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO cart_items (user_id, trip_id, quantity, unit_price) VALUES (?, ?, ?, ?)`,
		userID, tripID, quantity, unitPrice)
	if err != nil {
		if isDuplicate(err) {
			return 0, domain.ConflictError{Resource: "cart item", Msg: "trip already in cart", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r CartRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	_, err := r.q().ExecContext(ctx, `UPDATE cart_items SET quantity=? WHERE id=?`, quantity, id)
	return err
}

func (r CartRepository) SetPendingBooking(ctx context.Context, id, bookingID int64) error {
	_, err := r.q().ExecContext(ctx, `UPDATE cart_items SET pending_booking_id=? WHERE id=?`, bookingID, id)
	return err
}

func (r CartRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM cart_items WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "cart item"}
	}
	return nil
}

// DeleteMany removes the given lines owned by userID and reports how many went.
func (r CartRepository) DeleteMany(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.q().ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=? AND id IN (`+intdb.Placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByPendingBooking drops the cart line once its booking is confirmed.
func (r CartRepository) DeleteByPendingBooking(ctx context.Context, bookingID int64) error {
	_, err := r.q().ExecContext(ctx, `DELETE FROM cart_items WHERE pending_booking_id=?`, bookingID)
	return err
}

func (r CartRepository) Exists(ctx context.Context, userID, tripID int64) (bool, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_items WHERE user_id=? AND trip_id=?`, userID, tripID).Scan(&n)
	return n > 0, err
}
