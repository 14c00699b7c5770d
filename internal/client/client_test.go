package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type fakeAPI struct {
	*httptest.Server
	refreshes atomic.Int32
	cartCalls atomic.Int32
	// rejectAll makes the protected endpoint refuse even the rotated token.
	rejectAll    atomic.Bool
	refreshFails atomic.Bool
	refreshDelay atomic.Int64
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshes.Add(1)
		time.Sleep(time.Duration(api.refreshDelay.Load()))
		if api.refreshFails.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "code": "unauthorized", "message": "refresh token revoked"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"accessToken": "fresh", "refreshToken": "r2", "expiresAt": time.Now().Add(time.Hour),
		}})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "code": "unauthorized", "message": "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"accessToken": "a1", "refreshToken": "r1", "user": map[string]any{"id": 5, "email": body["email"]},
		}})
	})
	mux.HandleFunc("/api/v1/cart", func(w http.ResponseWriter, r *http.Request) {
		api.cartCalls.Add(1)
		if !api.rejectAll.Load() && r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": 1, "quantity": 2}}})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "code": "unauthorized", "message": "token expired"})
	})
	mux.HandleFunc("/api/v1/payment/links", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
			"orderCode": 555, "bookingId": 7, "amount": 3000000, "checkoutUrl": "https://pay.payos.vn/web/x", "status": "PENDING",
		}})
	})
	mux.HandleFunc("/api/v1/tour-bookings/7/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 7, "status": "CANCELED"}})
	})
	mux.HandleFunc("/api/v1/tour-bookings/8/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "code": "conflict", "message": "booking cannot be cancelled"})
	})
	mux.HandleFunc("/api/v1/invoices/9/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.3"))
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func newSignedInClient(t *testing.T, api *fakeAPI, remember bool) (*Client, *[]string) {
	t.Helper()
	var redirects []string
	c := New(Options{
		BaseURL:  api.URL,
		OnLogout: func(to string) { redirects = append(redirects, to) },
	})
	if err := c.Tokens().Save(Tokens{AccessToken: "stale", RefreshToken: "r1"}, remember); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	return c, &redirects
}

func TestUnauthorizedRefreshesOnceAndReplays(t *testing.T) {
	api := newFakeAPI(t)
	c, redirects := newSignedInClient(t, api, true)

	items, err := c.Cart().List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", items)
	}
	if got := api.refreshes.Load(); got != 1 {
		t.Fatalf("expected one refresh, got %d", got)
	}
	if got := api.cartCalls.Load(); got != 2 {
		t.Fatalf("expected original call plus one replay, got %d", got)
	}
	if tok := c.Tokens().Load(); tok.AccessToken != "fresh" || tok.RefreshToken != "r2" {
		t.Fatalf("tokens not rotated: %+v", tok)
	}
	if !c.Tokens().Remembered() {
		t.Fatalf("rotated tokens left the remembered store")
	}
	if len(*redirects) != 0 {
		t.Fatalf("unexpected logout %v", *redirects)
	}
}

func TestSecondUnauthorizedForcesLogout(t *testing.T) {
	api := newFakeAPI(t)
	api.rejectAll.Store(true)
	c, redirects := newSignedInClient(t, api, false)

	_, err := c.Cart().List(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
	if api.refreshes.Load() != 1 || api.cartCalls.Load() != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got %d and %d", api.refreshes.Load(), api.cartCalls.Load())
	}
	if len(*redirects) != 1 || (*redirects)[0] != LoginPath {
		t.Fatalf("expected redirect to %s, got %v", LoginPath, *redirects)
	}
	if c.Authenticated() {
		t.Fatalf("tokens survived forced logout")
	}
}

func TestFailedRefreshForcesLogoutWithoutReplay(t *testing.T) {
	api := newFakeAPI(t)
	api.refreshFails.Store(true)
	c, redirects := newSignedInClient(t, api, true)

	_, err := c.Cart().List(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
	if api.cartCalls.Load() != 1 {
		t.Fatalf("request replayed after failed refresh")
	}
	if len(*redirects) != 1 {
		t.Fatalf("expected forced logout, got %v", *redirects)
	}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	api := newFakeAPI(t)
	api.refreshDelay.Store(int64(50 * time.Millisecond))
	c, _ := newSignedInClient(t, api, true)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Cart().List(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("List error: %v", err)
		}
	}
	if got := api.refreshes.Load(); got != 1 {
		t.Fatalf("expected a single shared refresh, got %d", got)
	}
}

func TestAuthEndpointsAreNotRefreshed(t *testing.T) {
	api := newFakeAPI(t)
	c := New(Options{BaseURL: api.URL})

	_, err := c.Auth().Login(context.Background(), "an@example.com", "wrong", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "invalid email or password" {
		t.Fatalf("expected server message, got %v", err)
	}
	if api.refreshes.Load() != 0 {
		t.Fatalf("login failure triggered a refresh")
	}
}

func TestLoginRememberChoosesStore(t *testing.T) {
	api := newFakeAPI(t)
	local, session := NewMemoryStorage(), NewMemoryStorage()
	c := New(Options{BaseURL: api.URL, Local: local, Session: session})

	u, err := c.Auth().Login(context.Background(), "an@example.com", "secret123", false)
	if err != nil || u.ID != 5 {
		t.Fatalf("Login: %+v, %v", u, err)
	}
	if _, ok := local.Get(keyAccessToken); ok {
		t.Fatalf("session login leaked into local storage")
	}
	if v, _ := session.Get(keyAccessToken); v != "a1" {
		t.Fatalf("expected session token, got %q", v)
	}

	if _, err := c.Auth().Login(context.Background(), "an@example.com", "secret123", true); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, ok := session.Get(keyAccessToken); ok {
		t.Fatalf("remembered login left a session copy")
	}
	if !c.Tokens().Remembered() {
		t.Fatalf("expected remembered tokens")
	}
}

func TestCreateLinkStoresPaymentRecord(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newSignedInClient(t, api, true)

	link, err := c.Payments().CreateLink(context.Background(), 7)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}
	rec, ok := LoadPaymentRecord(c.LocalStorage(), 7)
	if !ok || rec.OrderCode != link.OrderCode || rec.Status != "PENDING" {
		t.Fatalf("unexpected record %+v (found %v)", rec, ok)
	}
}

func TestBookingCancelForgetsPaymentRecord(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newSignedInClient(t, api, true)
	for _, id := range []int64{7, 8} {
		if err := SavePaymentRecord(c.LocalStorage(), PaymentRecord{BookingID: id, OrderCode: 555, Status: "PENDING"}); err != nil {
			t.Fatalf("save record: %v", err)
		}
	}

	b, err := c.Bookings().Cancel(context.Background(), 7)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if b.Status != domain.BookingCanceled {
		t.Fatalf("unexpected booking %+v", b)
	}
	if rec, ok := LoadPaymentRecord(c.LocalStorage(), 7); ok {
		t.Fatalf("record survived booking cancel: %+v", rec)
	}

	if _, err := c.Bookings().Cancel(context.Background(), 8); err == nil {
		t.Fatalf("expected refused cancel to fail")
	}
	if _, ok := LoadPaymentRecord(c.LocalStorage(), 8); !ok {
		t.Fatalf("record dropped although the cancel was refused")
	}
}

func TestRawBodyDownload(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newSignedInClient(t, api, true)

	pdf, err := c.Invoices().PDF(context.Background(), 9)
	if err != nil || string(pdf) != "%PDF-1.3" {
		t.Fatalf("PDF: %q, %v", pdf, err)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&APIError{Status: 409, Message: "trip is full"}, "trip is full"},
		{&APIError{Status: 500, Message: "something went wrong, please try again"}, GenericMessage},
		{&APIError{Status: 404}, GenericMessage},
		{errors.New("dial tcp: refused"), GenericMessage},
		{&TravelersIncompleteError{Needed: 2}, "please add 2 more traveler(s) before confirming"},
		{&FieldError{Field: "email", Msg: "is required"}, "email: is required"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFileStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	s := NewFileStorage(path)
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := SavePaymentRecord(s, PaymentRecord{BookingID: 3, OrderCode: 42, Status: "PENDING"}); err != nil {
		t.Fatalf("SavePaymentRecord: %v", err)
	}

	reopened := NewFileStorage(path)
	if v, ok := reopened.Get("k"); !ok || v != "v" {
		t.Fatalf("value lost: %q, %v", v, ok)
	}
	if rec, ok := LoadPaymentRecord(reopened, 3); !ok || rec.OrderCode != 42 {
		t.Fatalf("payment record lost: %+v", rec)
	}
	if err := reopened.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := NewFileStorage(path).Get("k"); ok {
		t.Fatalf("deleted key came back")
	}
}

func modelsStaff(name, email, phone, password string) models.StaffInput {
	return models.StaffInput{FullName: name, Email: email, Phone: phone, Password: password}
}

func TestValidateStaff(t *testing.T) {
	if err := ValidateStaff(modelsStaff("Le Thu", "thu@tour.vn", "0912345678", "secret1"), true); err != nil {
		t.Fatalf("valid staff rejected: %v", err)
	}
	var fe *FieldError
	if err := ValidateStaff(modelsStaff("Le Thu", "thu@", "", "secret1"), true); !errors.As(err, &fe) || fe.Field != "email" {
		t.Fatalf("expected email error, got %v", err)
	}
	if err := ValidateStaff(modelsStaff("Le Thu", "thu@tour.vn", "12", ""), false); !errors.As(err, &fe) || fe.Field != "phone" {
		t.Fatalf("expected phone error, got %v", err)
	}
	if err := ValidateStaff(modelsStaff("Le Thu", "thu@tour.vn", "", ""), false); err != nil {
		t.Fatalf("password should be optional on update: %v", err)
	}
}
