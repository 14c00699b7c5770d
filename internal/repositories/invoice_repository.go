package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type InvoiceRepository struct {
	conn
}

func NewInvoiceRepository(db *sql.DB) InvoiceRepository {
	return InvoiceRepository{conn{DB: db}}
}

func (r InvoiceRepository) InTx(tx *sql.Tx) InvoiceRepository {
	r.tx = tx
	return r
}

const invoiceSelect = `
	SELECT i.id, i.code, i.booking_id, b.user_id, i.total_amount, i.payment_status, i.payment_method,
		t.departure_date, i.paid_at, i.created_at
	FROM invoices i
	JOIN bookings b ON b.id = i.booking_id
	JOIN trips t ON t.id = b.trip_id`

func scanInvoice(s rowScanner) (models.Invoice, error) {
	var (
		inv            models.Invoice
		status, method string
		paidAt         sql.NullTime
	)
	err := s.Scan(&inv.ID, &inv.Code, &inv.BookingID, &inv.UserID, &inv.TotalAmount, &status, &method,
		&inv.DepartureDate, &paidAt, &inv.CreatedAt)
	inv.PaymentStatus = domain.PaymentStatus(status)
	inv.PaymentMethod = domain.PaymentMethod(method)
	if paidAt.Valid {
		t := paidAt.Time
		inv.PaidAt = &t
	}
	return inv, err
}

func (r InvoiceRepository) Create(ctx context.Context, inv models.Invoice) (int64, error) {
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO invoices (code, booking_id, total_amount, payment_status, payment_method)
		VALUES (?, ?, ?, ?, ?)`,
		inv.Code, inv.BookingID, inv.TotalAmount, string(inv.PaymentStatus), string(inv.PaymentMethod))
	if err != nil {
		if isDuplicate(err) {
			return 0, domain.ConflictError{Resource: "invoice", Msg: "booking already invoiced", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r InvoiceRepository) GetByID(ctx context.Context, id int64) (models.Invoice, error) {
	inv, err := scanInvoice(r.q().QueryRowContext(ctx, invoiceSelect+` WHERE i.id=? LIMIT 1`, id))
	if err != nil {
		return models.Invoice{}, notFound("invoice", err)
	}
	return inv, nil
}

// FindByBooking returns (invoice, false, nil) when the booking has not been invoiced yet.
func (r InvoiceRepository) FindByBooking(ctx context.Context, bookingID int64) (models.Invoice, bool, error) {
	inv, err := scanInvoice(r.q().QueryRowContext(ctx, invoiceSelect+` WHERE i.booking_id=? LIMIT 1`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, false, nil
	}
	if err != nil {
		return models.Invoice{}, false, err
	}
	return inv, true, nil
}

func (r InvoiceRepository) List(ctx context.Context, userID int64, q domain.ListQuery) ([]models.Invoice, int, error) {
	q = q.Normalize()
	var w intdb.Where
	if userID > 0 {
		w.Add("b.user_id=?", userID)
	}
	if q.Status != "" {
		w.Add("i.payment_status=?", q.Status)
	}
	if v := q.Filter("paymentMethod"); v != "" {
		w.Add("i.payment_method=?", v)
	}
	if v := q.Filter("bookingId"); v != "" {
		w.Add("i.booking_id=?", v)
	}
	if q.Keyword != "" {
		w.Add("(i.code LIKE ? OR b.code LIKE ?)", like(q.Keyword), like(q.Keyword))
	}

	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices i JOIN bookings b ON b.id = i.booking_id WHERE `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(q.SortField, q.SortDesc, map[string]string{
		"createdAt":   "i.created_at",
		"totalAmount": "i.total_amount",
	}, "i.created_at DESC, i.id DESC")
	args := append(w.Args(), q.PageSize, q.Offset())
	rows, err := r.q().QueryContext(ctx, invoiceSelect+` WHERE `+w.SQL()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r InvoiceRepository) UpdateMethod(ctx context.Context, id int64, method domain.PaymentMethod) error {
	_, err := r.q().ExecContext(ctx, `UPDATE invoices SET payment_method=? WHERE id=?`, string(method), id)
	return err
}

// MarkPaid is idempotent: an already-paid invoice is left untouched.
func (r InvoiceRepository) MarkPaid(ctx context.Context, id int64, method domain.PaymentMethod, at time.Time) (bool, error) {
	res, err := r.q().ExecContext(ctx, `
		UPDATE invoices SET payment_status=?, payment_method=?, paid_at=?
		WHERE id=? AND payment_status=?`,
		string(domain.PaymentPaid), string(method), at, id, string(domain.PaymentUnpaid))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r InvoiceRepository) SetStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	_, err := r.q().ExecContext(ctx, `UPDATE invoices SET payment_status=? WHERE id=?`, string(status), id)
	return err
}

// PaymentLinkRepository keeps the gateway links issued per invoice.
type PaymentLinkRepository struct {
	conn
}

func NewPaymentLinkRepository(db *sql.DB) PaymentLinkRepository {
	return PaymentLinkRepository{conn{DB: db}}
}

func (r PaymentLinkRepository) InTx(tx *sql.Tx) PaymentLinkRepository {
	r.tx = tx
	return r
}

const linkColumns = `order_code, booking_id, invoice_id, amount, checkout_url, COALESCE(qr_code,''), status, created_at`

func scanLink(s rowScanner) (models.PaymentLink, error) {
	var (
		l      models.PaymentLink
		status string
	)
	err := s.Scan(&l.OrderCode, &l.BookingID, &l.InvoiceID, &l.Amount, &l.CheckoutURL, &l.QRCode, &status, &l.CreatedAt)
	l.Status = domain.LinkStatus(status)
	return l, err
}

func (r PaymentLinkRepository) Create(ctx context.Context, l models.PaymentLink) error {
	_, err := r.q().ExecContext(ctx, `
		INSERT INTO payment_links (order_code, booking_id, invoice_id, amount, checkout_url, qr_code, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.OrderCode, l.BookingID, l.InvoiceID, l.Amount, l.CheckoutURL, l.QRCode, string(l.Status))
	return err
}

func (r PaymentLinkRepository) GetByOrderCode(ctx context.Context, orderCode int64) (models.PaymentLink, error) {
	l, err := scanLink(r.q().QueryRowContext(ctx, `SELECT `+linkColumns+` FROM payment_links WHERE order_code=? LIMIT 1`, orderCode))
	if err != nil {
		return models.PaymentLink{}, notFound("payment link", err)
	}
	return l, nil
}

// FindPending returns the open link of a booking, if any.
func (r PaymentLinkRepository) FindPending(ctx context.Context, bookingID int64) (models.PaymentLink, bool, error) {
	l, err := scanLink(r.q().QueryRowContext(ctx, `SELECT `+linkColumns+` FROM payment_links
		WHERE booking_id=? AND status=? ORDER BY created_at DESC LIMIT 1`, bookingID, string(domain.LinkPending)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentLink{}, false, nil
	}
	if err != nil {
		return models.PaymentLink{}, false, err
	}
	return l, true, nil
}

func (r PaymentLinkRepository) UpdateStatus(ctx context.Context, orderCode int64, status domain.LinkStatus) error {
	_, err := r.q().ExecContext(ctx, `UPDATE payment_links SET status=? WHERE order_code=?`, string(status), orderCode)
	return err
}
