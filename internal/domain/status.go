package domain

import "strings"

type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripOngoing   TripStatus = "ONGOING"
	TripFinished  TripStatus = "FINISHED"
	TripCanceled  TripStatus = "CANCELED"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCanceled  BookingStatus = "CANCELED"
	BookingCompleted BookingStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodPayOS        PaymentMethod = "PAYOS"
)

// LinkStatus mirrors the payment-link states reported by PayOS.
type LinkStatus string

const (
	LinkPending   LinkStatus = "PENDING"
	LinkPaid      LinkStatus = "PAID"
	LinkCancelled LinkStatus = "CANCELLED"
	LinkExpired   LinkStatus = "EXPIRED"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func ParseTripStatus(s string) (TripStatus, bool) {
	switch v := TripStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case TripScheduled, TripOngoing, TripFinished, TripCanceled:
		return v, true
	}
	return "", false
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch v := BookingStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case BookingPending, BookingConfirmed, BookingCanceled, BookingCompleted:
		return v, true
	}
	return "", false
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch v := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); v {
	case MethodCash, MethodBankTransfer, MethodPayOS:
		return v, true
	}
	return "", false
}

func ParseGender(s string) (Gender, bool) {
	switch v := Gender(strings.ToUpper(strings.TrimSpace(s))); v {
	case GenderMale, GenderFemale, GenderOther:
		return v, true
	}
	return "", false
}

func (s LinkStatus) Terminal() bool {
	return s == LinkPaid || s == LinkCancelled || s == LinkExpired
}
