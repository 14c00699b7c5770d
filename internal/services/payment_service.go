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
	"tourbooking/internal/payos"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"
)

// PaymentGateway is the subset of the PayOS client the services use.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req payos.CreateRequest) (payos.CheckoutData, error)
	GetPaymentLink(ctx context.Context, orderCode int64) (payos.LinkInfo, error)
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) (payos.LinkInfo, error)
	VerifyWebhook(w payos.Webhook) bool
}

type PaymentService struct {
	Bookings  repositories.BookingRepository
	Invoices  repositories.InvoiceRepository
	Links     repositories.PaymentLinkRepository
	Gateway   PaymentGateway
	ReturnURL string
	CancelURL string
	DB        *sql.DB
	Now       func() time.Time
	RequestID string
}

func (s PaymentService) gateway() (PaymentGateway, error) {
	if s.Gateway == nil {
		return nil, domain.InternalError{Msg: "payment gateway is not configured"}
	}
	return s.Gateway, nil
}

// CreateLink opens a checkout link for a confirmed booking's unpaid invoice.
// An open link for the booking is reused.
func (s PaymentService) CreateLink(ctx context.Context, rc domain.RequestContext, bookingID int64) (models.PaymentLink, error) {
	gw, err := s.gateway()
	if err != nil {
		return models.PaymentLink{}, err
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return models.PaymentLink{}, internal(err)
	}
	if err := checkOwner(rc, b.UserID, "booking"); err != nil {
		return models.PaymentLink{}, err
	}
	if b.Status != domain.BookingConfirmed {
		return models.PaymentLink{}, domain.ConflictError{Resource: "booking", Msg: "only confirmed bookings can be paid"}
	}
	inv, ok, err := s.Invoices.FindByBooking(ctx, bookingID)
	if err != nil {
		return models.PaymentLink{}, internal(err)
	}
	if !ok {
		return models.PaymentLink{}, domain.NotFoundError{Resource: "invoice"}
	}
	if inv.PaymentStatus != domain.PaymentUnpaid {
		return models.PaymentLink{}, domain.ConflictError{Resource: "invoice", Msg: "invoice is already " + strings.ToLower(string(inv.PaymentStatus))}
	}
	if l, ok, err := s.Links.FindPending(ctx, bookingID); err != nil {
		return models.PaymentLink{}, internal(err)
	} else if ok && l.Amount == inv.TotalAmount {
		return l, nil
	}

	now := nowOr(s.Now)
	orderCode := now.UnixMilli()*1000 + bookingID%1000
	checkout, err := gw.CreatePaymentLink(ctx, payos.CreateRequest{
		OrderCode:   orderCode,
		Amount:      inv.TotalAmount,
		Description: "TT " + b.Code,
		ReturnURL:   s.ReturnURL,
		CancelURL:   s.CancelURL,
		ExpiredAt:   now.Add(24 * time.Hour).Unix(),
	})
	if err != nil {
		return models.PaymentLink{}, domain.InternalError{Msg: "could not create payment link", Err: err}
	}

	link := models.PaymentLink{
		OrderCode:   orderCode,
		BookingID:   bookingID,
		InvoiceID:   inv.ID,
		Amount:      inv.TotalAmount,
		CheckoutURL: checkout.CheckoutURL,
		QRCode:      checkout.QRCode,
		Status:      domain.LinkPending,
		CreatedAt:   now,
	}
	err = intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		if err := s.Links.InTx(tx).Create(ctx, link); err != nil {
			return err
		}
		return s.Invoices.InTx(tx).UpdateMethod(ctx, inv.ID, domain.MethodPayOS)
	})
	if err != nil {
		return models.PaymentLink{}, internal(err)
	}
	metrics.PaymentLinksCreated.Inc()
	utils.LogEvent(s.RequestID, "payment", "create_link", fmt.Sprintf("booking_id=%d order_code=%d", bookingID, orderCode))
	return link, nil
}

// Status reconciles a link with the gateway and settles the invoice once paid.
func (s PaymentService) Status(ctx context.Context, rc domain.RequestContext, orderCode int64) (models.PaymentLink, error) {
	l, err := s.ownedLink(ctx, rc, orderCode)
	if err != nil {
		return models.PaymentLink{}, err
	}
	if l.Status.Terminal() {
		return l, nil
	}
	gw, err := s.gateway()
	if err != nil {
		return models.PaymentLink{}, err
	}
	info, err := gw.GetPaymentLink(ctx, orderCode)
	if err != nil {
		return models.PaymentLink{}, domain.InternalError{Msg: "could not reach payment gateway", Err: err}
	}
	status := linkStatus(info.Status)
	switch status {
	case domain.LinkPaid:
		if err := s.settle(ctx, l); err != nil {
			return models.PaymentLink{}, err
		}
	case domain.LinkCancelled, domain.LinkExpired:
		if err := s.Links.UpdateStatus(ctx, orderCode, status); err != nil {
			return models.PaymentLink{}, internal(err)
		}
	}
	l.Status = status
	return l, nil
}

// Cancel abandons an open link at the gateway and locally.
func (s PaymentService) Cancel(ctx context.Context, rc domain.RequestContext, orderCode int64) (models.PaymentLink, error) {
	l, err := s.ownedLink(ctx, rc, orderCode)
	if err != nil {
		return models.PaymentLink{}, err
	}
	if l.Status != domain.LinkPending {
		return models.PaymentLink{}, domain.ConflictError{Resource: "payment link", Msg: "link is already " + strings.ToLower(string(l.Status))}
	}
	gw, err := s.gateway()
	if err != nil {
		return models.PaymentLink{}, err
	}
	if _, err := gw.CancelPaymentLink(ctx, orderCode, "cancelled by customer"); err != nil {
		return models.PaymentLink{}, domain.InternalError{Msg: "could not cancel payment link", Err: err}
	}
	if err := s.Links.UpdateStatus(ctx, orderCode, domain.LinkCancelled); err != nil {
		return models.PaymentLink{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "payment", "cancel_link", fmt.Sprintf("order_code=%d", orderCode))
	l.Status = domain.LinkCancelled
	return l, nil
}

// HandleWebhook settles the invoice behind a signed PayOS notification.
// Unknown order codes are acknowledged so the gateway stops retrying.
func (s PaymentService) HandleWebhook(ctx context.Context, wh payos.Webhook) error {
	gw, err := s.gateway()
	if err != nil {
		return err
	}
	if !gw.VerifyWebhook(wh) {
		return domain.UnauthorizedError{Msg: "invalid webhook signature"}
	}
	orderCode := wh.Data.OrderCode()
	l, err := s.Links.GetByOrderCode(ctx, orderCode)
	if domain.IsNotFound(err) {
		utils.LogEvent(s.RequestID, "payment", "webhook_unknown", fmt.Sprintf("order_code=%d", orderCode))
		return nil
	}
	if err != nil {
		return internal(err)
	}
	if wh.Code != "00" || wh.Data.PaymentCode() != "00" {
		utils.LogEvent(s.RequestID, "payment", "webhook_failed", fmt.Sprintf("order_code=%d code=%s", orderCode, wh.Data.PaymentCode()))
		return nil
	}
	return s.settle(ctx, l)
}

func (s PaymentService) ownedLink(ctx context.Context, rc domain.RequestContext, orderCode int64) (models.PaymentLink, error) {
	l, err := s.Links.GetByOrderCode(ctx, orderCode)
	if err != nil {
		return models.PaymentLink{}, internal(err)
	}
	b, err := s.Bookings.GetByID(ctx, l.BookingID)
	if err != nil {
		return models.PaymentLink{}, internal(err)
	}
	if err := checkOwner(rc, b.UserID, "payment link"); err != nil {
		return models.PaymentLink{}, err
	}
	return l, nil
}

// settle marks the link and its invoice paid; repeated calls are no-ops.
func (s PaymentService) settle(ctx context.Context, l models.PaymentLink) error {
	var changed bool
	err := intdb.WithTx(ctx, dbOr(s.DB), func(tx *sql.Tx) error {
		var err error
		if changed, err = s.Invoices.InTx(tx).MarkPaid(ctx, l.InvoiceID, domain.MethodPayOS, nowOr(s.Now)); err != nil {
			return err
		}
		return s.Links.InTx(tx).UpdateStatus(ctx, l.OrderCode, domain.LinkPaid)
	})
	if err != nil {
		return internal(err)
	}
	if changed {
		metrics.InvoicesPaid.WithLabelValues(string(domain.MethodPayOS)).Inc()
		utils.LogEvent(s.RequestID, "payment", "settled", fmt.Sprintf("order_code=%d invoice_id=%d", l.OrderCode, l.InvoiceID))
	}
	return nil
}

func linkStatus(s string) domain.LinkStatus {
	switch v := domain.LinkStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case domain.LinkPaid, domain.LinkCancelled, domain.LinkExpired:
		return v
	}
	return domain.LinkPending
}
