package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders the invoice PDF of a booking and one e-ticket per traveler.
type DocsService struct {
	Bookings  BookingService
	RequestID string
	Loader    func(ctx context.Context, rc domain.RequestContext, bookingID int64) (models.Booking, error)
}

func (s DocsService) load(ctx context.Context, rc domain.RequestContext, bookingID int64) (models.Booking, error) {
	if s.Loader != nil {
		return s.Loader(ctx, rc, bookingID)
	}
	return s.Bookings.Get(ctx, rc, bookingID)
}

func (s DocsService) GenerateInvoice(ctx context.Context, rc domain.RequestContext, bookingID int64) ([]byte, string, error) {
	b, err := s.load(ctx, rc, bookingID)
	if err != nil {
		return nil, "", err
	}
	if b.Invoice == nil {
		return nil, "", domain.NotFoundError{Resource: "invoice"}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_invoice", fmt.Sprintf("booking_id=%d", bookingID))
	return buildInvoicePDF(b, *b.Invoice)
}

func (s DocsService) GenerateETicket(ctx context.Context, rc domain.RequestContext, bookingID, travelerID int64) ([]byte, string, error) {
	b, err := s.load(ctx, rc, bookingID)
	if err != nil {
		return nil, "", err
	}
	if b.Status != domain.BookingConfirmed && b.Status != domain.BookingCompleted {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "e-tickets are issued once the booking is confirmed"}
	}
	for _, t := range b.Travelers {
		if t.ID == travelerID {
			utils.LogEvent(s.RequestID, "docs", "generate_eticket", fmt.Sprintf("booking_id=%d traveler_id=%d", bookingID, travelerID))
			return buildETicketPDF(b, t)
		}
	}
	return nil, "", domain.NotFoundError{Resource: "traveler"}
}

func buildETicketPDF(b models.Booking, t models.Traveler) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Traveler      : %s", safe(t.FullName, "-")),
		fmt.Sprintf("Gender        : %s", safe(string(t.Gender), "-")),
		fmt.Sprintf("ID number     : %s", safe(t.IdentityNumber, "-")),
		fmt.Sprintf("Tour          : %s", safe(b.RouteName, "-")),
		fmt.Sprintf("Departure     : %s", b.DepartureDate.Format("2006-01-02 15:04")),
		fmt.Sprintf("Booking code  : %s", b.Code),
		fmt.Sprintf("Ticket code   : %s-%d", b.Code, t.ID),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This e-ticket admits one traveler. Please present it at the pick-up point.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", utils.SafeFilenamePart(b.Code), utils.SafeFilenamePart(t.FullName))
	return buf.Bytes(), filename, nil
}

func buildInvoicePDF(b models.Booking, inv models.Invoice) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice no : "+inv.Code)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+inv.CreatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Booking    : "+b.Code)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Travelers:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for i, t := range b.Travelers {
		pdf.Cell(0, 6, fmt.Sprintf("%d) %s", i+1, safe(t.FullName, "-")))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	desc := fmt.Sprintf("%s, departing %s", safe(b.RouteName, "Tour"), b.DepartureDate.Format("2006-01-02"))
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Details:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, desc, "", "", false)
	pdf.Ln(2)
	pdf.Cell(0, 6, fmt.Sprintf("%d seat(s) x %s", b.SeatCount, utils.FormatVND(b.UnitPrice)))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatVND(inv.TotalAmount))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	status := string(inv.PaymentStatus)
	if inv.PaidAt != nil {
		status += " (" + inv.PaidAt.Format("2006-01-02 15:04") + ")"
	}
	pdf.Cell(0, 6, fmt.Sprintf("Method: %s   Status: %s", inv.PaymentMethod, status))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf("Generated %s.", time.Now().Format("2006-01-02 15:04")), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("INVOICE_%s.pdf", utils.SafeFilenamePart(inv.Code))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
