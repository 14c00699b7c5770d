package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

func TestDocsServiceGenerate(t *testing.T) {
	loader := func(_ context.Context, _ domain.RequestContext, id int64) (models.Booking, error) {
		return models.Booking{
			ID:            id,
			Code:          "BK-TEST0001",
			SeatCount:     2,
			UnitPrice:     1500000,
			Status:        domain.BookingConfirmed,
			RouteName:     "Ha Long Bay 3D2N",
			DepartureDate: time.Now().Add(72 * time.Hour),
			Travelers: []models.Traveler{
				{ID: 7, BookingID: id, FullName: "Nguyen Van A", Gender: domain.GenderMale},
				{ID: 8, BookingID: id, FullName: "Tran Thi B", Gender: domain.GenderFemale},
			},
			Invoice: &models.Invoice{
				Code:          "INV-TEST0001",
				BookingID:     id,
				TotalAmount:   3000000,
				PaymentStatus: domain.PaymentUnpaid,
				PaymentMethod: domain.MethodCash,
				CreatedAt:     time.Now(),
			},
		}, nil
	}

	svc := DocsService{Loader: loader}
	ctx := context.Background()

	pdf, filename, err := svc.GenerateETicket(ctx, domain.RequestContext{}, 1, 8)
	if err != nil {
		t.Fatalf("GenerateETicket returned error: %v", err)
	}
	if len(pdf) == 0 || !strings.HasPrefix(filename, "ETICKET_BK-TEST0001") {
		t.Fatalf("GenerateETicket returned %d bytes, name %q", len(pdf), filename)
	}

	invoice, invName, err := svc.GenerateInvoice(ctx, domain.RequestContext{}, 1)
	if err != nil {
		t.Fatalf("GenerateInvoice returned error: %v", err)
	}
	if len(invoice) == 0 || invName != "INVOICE_INV-TEST0001.pdf" {
		t.Fatalf("GenerateInvoice returned %d bytes, name %q", len(invoice), invName)
	}

	if _, _, err := svc.GenerateETicket(ctx, domain.RequestContext{}, 1, 99); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown traveler, got %v", err)
	}
}

func TestDocsServiceETicketNeedsConfirmation(t *testing.T) {
	svc := DocsService{Loader: func(_ context.Context, _ domain.RequestContext, id int64) (models.Booking, error) {
		return models.Booking{ID: id, Status: domain.BookingPending, Travelers: []models.Traveler{{ID: 1}}}, nil
	}}
	if _, _, err := svc.GenerateETicket(context.Background(), domain.RequestContext{}, 1, 1); !domain.IsConflict(err) {
		t.Fatalf("expected conflict for pending booking, got %v", err)
	}
}
