package payos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentLinkSignsRequest(t *testing.T) {
	var got CreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/payment-requests" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-client-id") != "cid" || r.Header.Get("x-api-key") != "key" {
			t.Errorf("missing credentials headers")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"orderCode":123,"amount":500000,"status":"PENDING","checkoutUrl":"https://pay.payos.vn/web/abc","qrCode":"000201"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "cid", "key", "secret")
	out, err := c.CreatePaymentLink(context.Background(), CreateRequest{
		OrderCode:   123,
		Amount:      500000,
		Description: "Thanh toan BK-0001 tour Ha Long",
		CancelURL:   "http://x/cancel",
		ReturnURL:   "http://x/return",
	})
	if err != nil {
		t.Fatalf("CreatePaymentLink error: %v", err)
	}
	if out.CheckoutURL == "" || out.Status != "PENDING" {
		t.Fatalf("unexpected checkout data %+v", out)
	}
	if len(got.Description) != maxDescription {
		t.Fatalf("description not truncated: %q", got.Description)
	}
	want := c.sign("amount=500000&cancelUrl=http://x/cancel&description=" + got.Description + "&orderCode=123&returnUrl=http://x/return")
	if got.Signature != want {
		t.Fatalf("signature mismatch: got %s want %s", got.Signature, want)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"101","desc":"Đơn thanh toán không tồn tại","data":null}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "cid", "key", "secret").GetPaymentLink(context.Background(), 9)
	apiErr, ok := err.(APIError)
	if !ok || apiErr.Code != "101" {
		t.Fatalf("expected APIError 101, got %v", err)
	}
}

func TestVerifyWebhook(t *testing.T) {
	c := New("http://unused", "cid", "key", "secret")
	data := WebhookData{
		"orderCode":   float64(123),
		"amount":      float64(500000),
		"description": "BK0001",
		"code":        "00",
		"reference":   nil,
	}
	wh := Webhook{Code: "00", Success: true, Data: data, Signature: c.sign(SortedQuery(data))}
	if !c.VerifyWebhook(wh) {
		t.Fatalf("valid signature rejected")
	}
	if SortedQuery(data) != "amount=500000&code=00&description=BK0001&orderCode=123&reference=" {
		t.Fatalf("unexpected canonical form %q", SortedQuery(data))
	}
	wh.Data["amount"] = float64(1)
	if c.VerifyWebhook(wh) {
		t.Fatalf("tampered payload accepted")
	}
	if wh.Data.OrderCode() != 123 || wh.Data.PaymentCode() != "00" {
		t.Fatalf("accessors broken")
	}
}
