package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/payos"
	"tourbooking/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

type fakeGateway struct {
	created   []payos.CreateRequest
	cancelled []int64
	status    string
	valid     bool
}

func (f *fakeGateway) CreatePaymentLink(_ context.Context, req payos.CreateRequest) (payos.CheckoutData, error) {
	f.created = append(f.created, req)
	return payos.CheckoutData{OrderCode: req.OrderCode, Amount: req.Amount, Status: "PENDING",
		CheckoutURL: "https://pay.payos.vn/web/test", QRCode: "000201"}, nil
}

func (f *fakeGateway) GetPaymentLink(_ context.Context, orderCode int64) (payos.LinkInfo, error) {
	return payos.LinkInfo{OrderCode: orderCode, Status: f.status}, nil
}

func (f *fakeGateway) CancelPaymentLink(_ context.Context, orderCode int64, _ string) (payos.LinkInfo, error) {
	f.cancelled = append(f.cancelled, orderCode)
	return payos.LinkInfo{OrderCode: orderCode, Status: "CANCELLED"}, nil
}

func (f *fakeGateway) VerifyWebhook(payos.Webhook) bool { return f.valid }

func newPaymentService(db *sql.DB, gw PaymentGateway) PaymentService {
	return PaymentService{
		Bookings:  repositories.NewBookingRepository(db),
		Invoices:  repositories.NewInvoiceRepository(db),
		Links:     repositories.NewPaymentLinkRepository(db),
		Gateway:   gw,
		ReturnURL: "http://localhost:5173/payment/success",
		CancelURL: "http://localhost:5173/payment/cancel",
		DB:        db,
		Now:       fixedNow,
	}
}

func TestCreateLinkForUnpaidInvoice(t *testing.T) {
	db, mock := newMock(t)
	gw := &fakeGateway{}
	svc := newPaymentService(db, gw)
	wantCode := testNow.UnixMilli()*1000 + 1

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(1)).
		WillReturnRows(addBooking(bookingRows(), 1, 5, 2, domain.BookingConfirmed))
	mock.ExpectQuery("FROM invoices i").WithArgs(int64(1)).
		WillReturnRows(addInvoice(invoiceRows(), 9, 1, 5, domain.PaymentUnpaid, testDeparture))
	mock.ExpectQuery("FROM payment_links").WithArgs(int64(1), "PENDING").
		WillReturnRows(linkRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_links").
		WithArgs(wantCode, int64(1), int64(9), int64(3000000), "https://pay.payos.vn/web/test", "000201", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE invoices SET payment_method").WithArgs("PAYOS", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	link, err := svc.CreateLink(context.Background(), customer, 1)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}
	if link.OrderCode != wantCode || link.Status != domain.LinkPending || link.CheckoutURL == "" {
		t.Fatalf("unexpected link %+v", link)
	}
	if len(gw.created) != 1 || gw.created[0].Amount != 3000000 || gw.created[0].Description != "TT BK-0000TEST" {
		t.Fatalf("unexpected gateway request %+v", gw.created)
	}
	expectationsMet(t, mock)
}

func TestCreateLinkReusesOpenLink(t *testing.T) {
	db, mock := newMock(t)
	gw := &fakeGateway{}
	svc := newPaymentService(db, gw)

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(1)).
		WillReturnRows(addBooking(bookingRows(), 1, 5, 2, domain.BookingConfirmed))
	mock.ExpectQuery("FROM invoices i").WithArgs(int64(1)).
		WillReturnRows(addInvoice(invoiceRows(), 9, 1, 5, domain.PaymentUnpaid, testDeparture))
	mock.ExpectQuery("FROM payment_links").WithArgs(int64(1), "PENDING").
		WillReturnRows(linkRows().AddRow(int64(555), 1, 9, 3000000, "https://pay.payos.vn/web/old", "", "PENDING", testNow))

	link, err := svc.CreateLink(context.Background(), customer, 1)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}
	if link.OrderCode != 555 || len(gw.created) != 0 {
		t.Fatalf("expected the open link to be reused, got %+v (gateway calls %d)", link, len(gw.created))
	}
	expectationsMet(t, mock)
}

func TestCreateLinkNeedsConfirmedBooking(t *testing.T) {
	db, mock := newMock(t)
	svc := newPaymentService(db, &fakeGateway{})

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(1)).
		WillReturnRows(addBooking(bookingRows(), 1, 5, 2, domain.BookingPending))

	if _, err := svc.CreateLink(context.Background(), customer, 1); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestStatusSettlesPaidLink(t *testing.T) {
	db, mock := newMock(t)
	svc := newPaymentService(db, &fakeGateway{status: "PAID"})

	mock.ExpectQuery("FROM payment_links WHERE order_code").WithArgs(int64(555)).
		WillReturnRows(linkRows().AddRow(int64(555), 1, 9, 3000000, "https://pay.payos.vn/web/x", "", "PENDING", testNow))
	mock.ExpectQuery("FROM bookings b").WithArgs(int64(1)).
		WillReturnRows(addBooking(bookingRows(), 1, 5, 2, domain.BookingConfirmed))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE invoices SET payment_status").
		WithArgs("PAID", "PAYOS", testNow, int64(9), "UNPAID").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payment_links SET status").WithArgs("PAID", int64(555)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	link, err := svc.Status(context.Background(), customer, 555)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if link.Status != domain.LinkPaid {
		t.Fatalf("expected PAID, got %s", link.Status)
	}
	expectationsMet(t, mock)
}

func TestStatusOfTerminalLinkSkipsGateway(t *testing.T) {
	db, mock := newMock(t)
	svc := newPaymentService(db, nil)

	mock.ExpectQuery("FROM payment_links WHERE order_code").WithArgs(int64(555)).
		WillReturnRows(linkRows().AddRow(int64(555), 1, 9, 3000000, "", "", "CANCELLED", testNow))
	mock.ExpectQuery("FROM bookings b").WithArgs(int64(1)).
		WillReturnRows(addBooking(bookingRows(), 1, 5, 2, domain.BookingConfirmed))

	link, err := svc.Status(context.Background(), customer, 555)
	if err != nil || link.Status != domain.LinkCancelled {
		t.Fatalf("expected cancelled link without gateway call, got %+v, %v", link, err)
	}
	expectationsMet(t, mock)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db, mock := newMock(t)
	svc := newPaymentService(db, &fakeGateway{valid: false})

	err := svc.HandleWebhook(context.Background(), payos.Webhook{Code: "00", Data: payos.WebhookData{"orderCode": float64(555)}})
	if !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestWebhookUnknownOrderIsAcknowledged(t *testing.T) {
	db, mock := newMock(t)
	svc := newPaymentService(db, &fakeGateway{valid: true})

	mock.ExpectQuery("FROM payment_links WHERE order_code").WithArgs(int64(123)).
		WillReturnError(sql.ErrNoRows)

	err := svc.HandleWebhook(context.Background(), payos.Webhook{Code: "00", Data: payos.WebhookData{"orderCode": float64(123), "code": "00"}})
	if err != nil {
		t.Fatalf("expected unknown order to be acknowledged, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestChangeMethodLockedNearDeparture(t *testing.T) {
	db, mock := newMock(t)
	svc := InvoiceService{
		Invoices: repositories.NewInvoiceRepository(db),
		Bookings: repositories.NewBookingRepository(db),
		Links:    repositories.NewPaymentLinkRepository(db),
		Now:      fixedNow,
	}

	mock.ExpectQuery("FROM invoices i").WithArgs(int64(9)).
		WillReturnRows(addInvoice(invoiceRows(), 9, 1, 5, domain.PaymentPaid, testNow.Add(2*24*time.Hour)))

	_, err := svc.ChangeMethod(context.Background(), customer, 9, domain.MethodBankTransfer)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err.Error() != "invoice conflict: payment method is locked 2 day(s) before departure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	expectationsMet(t, mock)
}

func TestChangeMethodUnpaidAlwaysEditable(t *testing.T) {
	db, mock := newMock(t)
	gw := &fakeGateway{}
	svc := InvoiceService{
		Invoices: repositories.NewInvoiceRepository(db),
		Bookings: repositories.NewBookingRepository(db),
		Links:    repositories.NewPaymentLinkRepository(db),
		Gateway:  gw,
		Now:      fixedNow,
	}
	soon := testNow.Add(12 * time.Hour)

	mock.ExpectQuery("FROM invoices i").WithArgs(int64(9)).
		WillReturnRows(addInvoice(invoiceRows(), 9, 1, 5, domain.PaymentUnpaid, soon))
	mock.ExpectExec("UPDATE invoices SET payment_method").WithArgs("BANK_TRANSFER", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payment_links").WithArgs(int64(1), "PENDING").
		WillReturnRows(linkRows().AddRow(int64(555), 1, 9, 3000000, "", "", "PENDING", testNow))
	mock.ExpectExec("UPDATE payment_links SET status").WithArgs("CANCELLED", int64(555)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM invoices i").WithArgs(int64(9)).
		WillReturnRows(invoiceRows().AddRow(9, "INV-0000TEST", 1, 5, 3000000, "UNPAID", "BANK_TRANSFER", soon, nil, testNow))

	inv, err := svc.ChangeMethod(context.Background(), customer, 9, domain.MethodBankTransfer)
	if err != nil {
		t.Fatalf("ChangeMethod error: %v", err)
	}
	if inv.PaymentMethod != domain.MethodBankTransfer || !inv.Editable {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if len(gw.cancelled) != 1 || gw.cancelled[0] != 555 {
		t.Fatalf("expected open link to be cancelled, got %v", gw.cancelled)
	}
	expectationsMet(t, mock)
}

func TestMarkPaidIsStaffOnly(t *testing.T) {
	svc := InvoiceService{}
	if _, err := svc.MarkPaid(context.Background(), customer, 9, domain.MethodCash); !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRefundedInvoiceIsNotEditable(t *testing.T) {
	db, mock := newMock(t)
	svc := InvoiceService{Invoices: repositories.NewInvoiceRepository(db), Now: fixedNow}

	mock.ExpectQuery("FROM invoices i").WithArgs(int64(9)).
		WillReturnRows(addInvoice(invoiceRows(), 9, 1, 5, domain.PaymentRefunded, testNow.Add(10*24*time.Hour)))

	inv, err := svc.Get(context.Background(), customer, 9)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if inv.Editable {
		t.Fatalf("refunded invoice reported as editable: %+v", inv)
	}
	expectationsMet(t, mock)
}
