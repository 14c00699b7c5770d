package utils

import "testing"

func TestFormatVND(t *testing.T) {
	cases := map[int64]string{
		0:        "0 VND",
		950:      "950 VND",
		1250000:  "1.250.000 VND",
		-3000000: "-3.000.000 VND",
	}
	for in, want := range cases {
		if got := FormatVND(in); got != want {
			t.Fatalf("FormatVND(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseVND(t *testing.T) {
	for _, in := range []string{"1.250.000", "1,250,000 VND", "1250000đ", " 1 250 000 "} {
		got, err := ParseVND(in)
		if err != nil {
			t.Fatalf("ParseVND(%q) error: %v", in, err)
		}
		if got != 1250000 {
			t.Fatalf("ParseVND(%q) = %d", in, got)
		}
	}
	if _, err := ParseVND("vnd"); err == nil {
		t.Fatalf("expected error for empty amount")
	}
}

func TestContactValidation(t *testing.T) {
	if !IsValidEmail("an.nguyen@example.vn") {
		t.Fatalf("valid email rejected")
	}
	if IsValidEmail("an.nguyen@") {
		t.Fatalf("invalid email accepted")
	}
	if !IsValidPhone("0912 345 678") || !IsValidPhone("+84912345678") {
		t.Fatalf("valid phone rejected")
	}
	if IsValidPhone("12345") {
		t.Fatalf("invalid phone accepted")
	}
}
