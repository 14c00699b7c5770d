package domain

import (
	"testing"
	"time"
)

func TestClampQuantity(t *testing.T) {
	cases := []struct {
		requested, available, want int
	}{
		{99, 5, 5},
		{3, 5, 3},
		{-2, 5, 0},
		{0, 5, 0},
		{5, 5, 5},
		{4, 0, 0},
		{1, -1, 0},
	}
	for _, tc := range cases {
		if got := ClampQuantity(tc.requested, tc.available); got != tc.want {
			t.Fatalf("ClampQuantity(%d, %d) = %d, want %d", tc.requested, tc.available, got, tc.want)
		}
	}
}

func TestCheckTravelersComplete(t *testing.T) {
	err := CheckTravelersComplete(1, 3)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := err.Error(); got != "travelers: 2 more traveler(s) needed before confirming" {
		t.Fatalf("unexpected message %q", got)
	}
	if err := CheckTravelersComplete(3, 3); err != nil {
		t.Fatalf("expected no error when complete, got %v", err)
	}
}

func TestCanEditPaymentMethod(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	far := now.Add(5 * 24 * time.Hour)
	edge := now.Add(PaymentEditWindow)
	near := now.Add(24 * time.Hour)

	cases := []struct {
		name      string
		status    PaymentStatus
		departure time.Time
		want      bool
	}{
		{"unpaid near departure", PaymentUnpaid, near, true},
		{"unpaid far away", PaymentUnpaid, far, true},
		{"paid far away", PaymentPaid, far, true},
		{"paid within window", PaymentPaid, near, false},
		{"paid exactly at window", PaymentPaid, edge, false},
		{"refunded within window", PaymentRefunded, near, false},
		{"refunded far away", PaymentRefunded, far, false},
	}
	for _, tc := range cases {
		if got := CanEditPaymentMethod(tc.status, tc.departure, now); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanCancelBooking(t *testing.T) {
	if !CanCancelBooking(BookingPending, PaymentUnpaid) {
		t.Fatalf("pending booking should be cancellable")
	}
	if !CanCancelBooking(BookingConfirmed, PaymentPaid) {
		t.Fatalf("paid confirmed booking should be cancellable")
	}
	for _, st := range []BookingStatus{BookingCanceled, BookingCompleted} {
		if CanCancelBooking(st, PaymentUnpaid) {
			t.Fatalf("%s should not be cancellable", st)
		}
	}
	if CanCancelBooking(BookingConfirmed, PaymentRefunded) {
		t.Fatalf("refunded booking should not be cancellable")
	}
}

func TestValidTripTransition(t *testing.T) {
	if !ValidTripTransition(TripScheduled, TripOngoing) || !ValidTripTransition(TripOngoing, TripFinished) {
		t.Fatalf("forward transitions rejected")
	}
	if ValidTripTransition(TripFinished, TripScheduled) {
		t.Fatalf("finished trip must not be rescheduled")
	}
	if ValidTripTransition(TripCanceled, TripOngoing) {
		t.Fatalf("canceled trip must stay canceled")
	}
}

func TestIsCartItemExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if IsCartItemExpired(TripScheduled, now.Add(time.Hour), now) {
		t.Fatalf("future scheduled trip should not be expired")
	}
	if !IsCartItemExpired(TripScheduled, now.Add(-time.Hour), now) {
		t.Fatalf("departed trip should be expired")
	}
	if !IsCartItemExpired(TripCanceled, now.Add(48*time.Hour), now) {
		t.Fatalf("canceled trip should be expired")
	}
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Page: 0, PageSize: 500, Status: " pending "}.Normalize()
	if q.Page != 1 || q.PageSize != MaxPageSize || q.Status != "PENDING" {
		t.Fatalf("unexpected normalized query %+v", q)
	}
	if off := (ListQuery{Page: 3, PageSize: 20}).Offset(); off != 40 {
		t.Fatalf("offset = %d", off)
	}
}
