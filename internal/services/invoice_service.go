package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/metrics"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"
)

type InvoiceService struct {
	Invoices  repositories.InvoiceRepository
	Bookings  repositories.BookingRepository
	Links     repositories.PaymentLinkRepository
	Gateway   PaymentGateway
	Now       func() time.Time
	RequestID string
}

func (s InvoiceService) List(ctx context.Context, rc domain.RequestContext, q domain.ListQuery) (domain.Page[models.Invoice], error) {
	items, total, err := s.Invoices.List(ctx, scopeUser(rc), q)
	if err != nil {
		return domain.Page[models.Invoice]{}, internal(err)
	}
	now := nowOr(s.Now)
	for i := range items {
		items[i].Editable = domain.CanEditPaymentMethod(items[i].PaymentStatus, items[i].DepartureDate, now)
	}
	return domain.NewPage(items, q, total), nil
}

func (s InvoiceService) Get(ctx context.Context, rc domain.RequestContext, id int64) (models.Invoice, error) {
	inv, err := s.Invoices.GetByID(ctx, id)
	if err != nil {
		return models.Invoice{}, internal(err)
	}
	if err := checkOwner(rc, inv.UserID, "invoice"); err != nil {
		return models.Invoice{}, err
	}
	inv.Editable = domain.CanEditPaymentMethod(inv.PaymentStatus, inv.DepartureDate, nowOr(s.Now))
	return inv, nil
}

// ChangeMethod switches the payment method. Paid invoices freeze once
// departure is within the edit window.
func (s InvoiceService) ChangeMethod(ctx context.Context, rc domain.RequestContext, id int64, method domain.PaymentMethod) (models.Invoice, error) {
	inv, err := s.Get(ctx, rc, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if inv.PaymentStatus == domain.PaymentRefunded {
		return models.Invoice{}, domain.ConflictError{Resource: "invoice", Msg: "invoice was refunded"}
	}
	if !inv.Editable {
		days := domain.DaysUntil(inv.DepartureDate, nowOr(s.Now))
		return models.Invoice{}, domain.ConflictError{Resource: "invoice",
			Msg: fmt.Sprintf("payment method is locked %d day(s) before departure", days)}
	}
	if inv.PaymentMethod == method {
		return inv, nil
	}
	if err := s.Invoices.UpdateMethod(ctx, id, method); err != nil {
		return models.Invoice{}, internal(err)
	}
	if method != domain.MethodPayOS {
		s.dropOpenLink(ctx, inv.BookingID)
	}
	utils.LogEvent(s.RequestID, "invoices", "change_method", fmt.Sprintf("invoice_id=%d method=%s", id, method))
	return s.Get(ctx, rc, id)
}

// MarkPaid records an offline (cash or transfer) payment taken by staff.
func (s InvoiceService) MarkPaid(ctx context.Context, rc domain.RequestContext, id int64, method domain.PaymentMethod) (models.Invoice, error) {
	if err := requireStaff(rc); err != nil {
		return models.Invoice{}, err
	}
	inv, err := s.Get(ctx, rc, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if inv.PaymentStatus != domain.PaymentUnpaid {
		return models.Invoice{}, domain.ConflictError{Resource: "invoice", Msg: "invoice is already " + strings.ToLower(string(inv.PaymentStatus))}
	}
	b, err := s.Bookings.GetByID(ctx, inv.BookingID)
	if err != nil {
		return models.Invoice{}, internal(err)
	}
	if b.Status == domain.BookingCanceled {
		return models.Invoice{}, domain.ConflictError{Resource: "booking", Msg: "booking is cancelled"}
	}
	if method == "" {
		method = inv.PaymentMethod
	}
	changed, err := s.Invoices.MarkPaid(ctx, id, method, nowOr(s.Now))
	if err != nil {
		return models.Invoice{}, internal(err)
	}
	if changed {
		metrics.InvoicesPaid.WithLabelValues(string(method)).Inc()
		s.dropOpenLink(ctx, inv.BookingID)
	}
	utils.LogEvent(s.RequestID, "invoices", "mark_paid", fmt.Sprintf("invoice_id=%d method=%s", id, method))
	return s.Get(ctx, rc, id)
}

// dropOpenLink cancels a now-pointless checkout link; failures are only logged.
func (s InvoiceService) dropOpenLink(ctx context.Context, bookingID int64) {
	l, ok, err := s.Links.FindPending(ctx, bookingID)
	if err != nil || !ok {
		return
	}
	if err := s.Links.UpdateStatus(ctx, l.OrderCode, domain.LinkCancelled); err != nil {
		utils.L().Warn("mark payment link cancelled failed", "order_code", l.OrderCode, "error", err)
		return
	}
	if s.Gateway != nil {
		if _, err := s.Gateway.CancelPaymentLink(ctx, l.OrderCode, "payment method changed"); err != nil {
			utils.L().Warn("cancel payment link failed", "order_code", l.OrderCode, "error", err)
		}
	}
}
