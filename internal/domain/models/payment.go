package models

import (
	"time"

	"tourbooking/internal/domain"
)

// Invoice is the payment record of a confirmed booking.
type Invoice struct {
	ID            int64                `json:"id"`
	Code          string               `json:"code"`
	BookingID     int64                `json:"bookingId"`
	UserID        int64                `json:"userId"`
	TotalAmount   int64                `json:"totalAmount"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	DepartureDate time.Time            `json:"departureDate"`
	Editable      bool                 `json:"editable"`
	PaidAt        *time.Time           `json:"paidAt,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// PaymentLink is a checkout link created with the payment gateway.
type PaymentLink struct {
	OrderCode   int64             `json:"orderCode"`
	BookingID   int64             `json:"bookingId"`
	InvoiceID   int64             `json:"invoiceId"`
	Amount      int64             `json:"amount"`
	CheckoutURL string            `json:"checkoutUrl"`
	QRCode      string            `json:"qrCode"`
	Status      domain.LinkStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
}
