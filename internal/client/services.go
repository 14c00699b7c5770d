package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

// ListParams mirrors the paging and filter query every list endpoint accepts.
type ListParams struct {
	Page     int
	PageSize int
	Keyword  string
	Status   string
	SortBy   string
	Desc     bool
	Filters  map[string]string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Keyword != "" {
		v.Set("keyword", p.Keyword)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
		if p.Desc {
			v.Set("sortOrder", "desc")
		}
	}
	for k, val := range p.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

func pathID(prefix string, id int64, suffix ...string) string {
	p := prefix + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += s
	}
	return p
}

// ---- auth

type Auth struct{ c *Client }

func (c *Client) Auth() Auth { return Auth{c} }

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login stores the tokens in local storage when remember is set, session storage otherwise.
func (a Auth) Login(ctx context.Context, email, password string, remember bool) (models.User, error) {
	var pair models.TokenPair
	err := a.c.Do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &pair)
	if err != nil {
		return models.User{}, err
	}
	err = a.c.tokens.Save(Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, ExpiresAt: pair.ExpiresAt}, remember)
	return pair.User, err
}

func (a Auth) Register(ctx context.Context, in RegisterRequest) (models.User, error) {
	if err := ValidateRegister(in); err != nil {
		return models.User{}, err
	}
	var u models.User
	err := a.c.Do(ctx, http.MethodPost, "/auth/register", nil, in, &u)
	return u, err
}

// Logout revokes the refresh token server side and always drops the local session.
func (a Auth) Logout(ctx context.Context) error {
	rt := a.c.tokens.Load().RefreshToken
	defer a.c.tokens.Clear()
	if rt == "" {
		return nil
	}
	return a.c.Do(ctx, http.MethodPost, "/auth/logout", nil, map[string]string{"refreshToken": rt}, nil)
}

// ---- storefront

type Tours struct{ c *Client }

func (c *Client) Tours() Tours { return Tours{c} }

type SearchParams struct {
	ListParams
	StartLocation string
	EndLocation   string
	MinPrice      int64
	MaxPrice      int64
	DepartureFrom string
	DepartureTo   string
}

func (p SearchParams) values() url.Values {
	v := p.ListParams.values()
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("startLocation", p.StartLocation)
	set("endLocation", p.EndLocation)
	set("departureFrom", p.DepartureFrom)
	set("departureTo", p.DepartureTo)
	if p.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatInt(p.MinPrice, 10))
	}
	if p.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatInt(p.MaxPrice, 10))
	}
	return v
}

type HomeFeed struct {
	Latest   []models.Route `json:"latest"`
	Popular  []models.Route `json:"popular"`
	Upcoming []models.Trip  `json:"upcoming"`
}

func (t Tours) Search(ctx context.Context, p SearchParams) (domain.Page[models.Route], error) {
	var out domain.Page[models.Route]
	err := t.c.Do(ctx, http.MethodGet, "/api/v1/customer/tours/search", p.values(), nil, &out)
	return out, err
}

func (t Tours) Suggestions(ctx context.Context, keyword string) ([]string, error) {
	var out []string
	err := t.c.Do(ctx, http.MethodGet, "/api/v1/customer/tours/suggestions", url.Values{"keyword": {keyword}}, nil, &out)
	return out, err
}

func (t Tours) Home(ctx context.Context) (HomeFeed, error) {
	var out HomeFeed
	err := t.c.Do(ctx, http.MethodGet, "/api/v1/customer/tours/home", nil, nil, &out)
	return out, err
}

func (t Tours) Favorites(ctx context.Context) ([]models.Route, error) {
	var out []models.Route
	err := t.c.Do(ctx, http.MethodGet, "/api/v1/customer/tours/favorites", nil, nil, &out)
	return out, err
}

// ToggleFavorite returns the state the server settled on.
func (t Tours) ToggleFavorite(ctx context.Context, routeID int64) (bool, error) {
	var out struct {
		Favorited bool `json:"favorited"`
	}
	err := t.c.Do(ctx, http.MethodPost, pathID("/api/v1/customer/tours", routeID, "/favorite"), nil, nil, &out)
	return out.Favorited, err
}

// ---- catalogue

type Routes struct{ c *Client }

func (c *Client) Routes() Routes { return Routes{c} }

type RouteInput struct {
	Name          string                `json:"name"`
	Code          string                `json:"code"`
	StartLocation string                `json:"startLocation"`
	EndLocation   string                `json:"endLocation"`
	DurationDays  int                   `json:"durationDays"`
	Description   string                `json:"description"`
	Itinerary     []models.ItineraryDay `json:"itinerary"`
	Images        []string              `json:"images"`
}

func (r Routes) List(ctx context.Context, p ListParams) (domain.Page[models.Route], error) {
	var out domain.Page[models.Route]
	err := r.c.Do(ctx, http.MethodGet, "/api/v1/routes", p.values(), nil, &out)
	return out, err
}

func (r Routes) Get(ctx context.Context, id int64) (models.Route, error) {
	var out models.Route
	err := r.c.Do(ctx, http.MethodGet, pathID("/api/v1/routes", id), nil, nil, &out)
	return out, err
}

func (r Routes) Trips(ctx context.Context, id int64) ([]models.Trip, error) {
	var out []models.Trip
	err := r.c.Do(ctx, http.MethodGet, pathID("/api/v1/routes", id, "/trips"), nil, nil, &out)
	return out, err
}

func (r Routes) Create(ctx context.Context, in RouteInput) (models.Route, error) {
	var out models.Route
	err := r.c.Do(ctx, http.MethodPost, "/api/v1/routes", nil, in, &out)
	return out, err
}

func (r Routes) Update(ctx context.Context, id int64, in RouteInput) (models.Route, error) {
	var out models.Route
	err := r.c.Do(ctx, http.MethodPut, pathID("/api/v1/routes", id), nil, in, &out)
	return out, err
}

func (r Routes) Delete(ctx context.Context, id int64) error {
	return r.c.Do(ctx, http.MethodDelete, pathID("/api/v1/routes", id), nil, nil, nil)
}

type Trips struct{ c *Client }

func (c *Client) Trips() Trips { return Trips{c} }

func (t Trips) List(ctx context.Context, p ListParams) (domain.Page[models.Trip], error) {
	var out domain.Page[models.Trip]
	err := t.c.Do(ctx, http.MethodGet, "/api/v1/trips", p.values(), nil, &out)
	return out, err
}

func (t Trips) Get(ctx context.Context, id int64) (models.Trip, error) {
	var out models.Trip
	err := t.c.Do(ctx, http.MethodGet, pathID("/api/v1/trips", id), nil, nil, &out)
	return out, err
}

func (t Trips) Availability(ctx context.Context, id int64) (models.Availability, error) {
	var out models.Availability
	err := t.c.Do(ctx, http.MethodGet, pathID("/api/v1/trips", id, "/availability"), nil, nil, &out)
	return out, err
}

func (t Trips) Create(ctx context.Context, in models.TripInput) (models.Trip, error) {
	var out models.Trip
	err := t.c.Do(ctx, http.MethodPost, "/api/v1/trips", nil, in, &out)
	return out, err
}

func (t Trips) Update(ctx context.Context, id int64, in models.TripInput) (models.Trip, error) {
	var out models.Trip
	err := t.c.Do(ctx, http.MethodPut, pathID("/api/v1/trips", id), nil, in, &out)
	return out, err
}

func (t Trips) Delete(ctx context.Context, id int64) error {
	return t.c.Do(ctx, http.MethodDelete, pathID("/api/v1/trips", id), nil, nil, nil)
}

func (t Trips) ChangeStatus(ctx context.Context, id int64, status domain.TripStatus) (models.Trip, error) {
	var out models.Trip
	err := t.c.Do(ctx, http.MethodPut, pathID("/api/v1/trips", id, "/status"), nil, map[string]string{"status": string(status)}, &out)
	return out, err
}

// ---- cart and bookings

type Cart struct{ c *Client }

func (c *Client) Cart() Cart { return Cart{c} }

func (ct Cart) List(ctx context.Context) ([]models.CartItem, error) {
	var out []models.CartItem
	err := ct.c.Do(ctx, http.MethodGet, "/api/v1/cart", nil, nil, &out)
	return out, err
}

func (ct Cart) Add(ctx context.Context, tripID int64, quantity int) (models.CartItem, error) {
	var out models.CartItem
	err := ct.c.Do(ctx, http.MethodPost, "/api/v1/cart", nil, map[string]any{"tripId": tripID, "quantity": quantity}, &out)
	return out, err
}

func (ct Cart) UpdateQuantity(ctx context.Context, id int64, quantity int) (models.CartItem, error) {
	var out models.CartItem
	err := ct.c.Do(ctx, http.MethodPut, pathID("/api/v1/cart", id), nil, map[string]int{"quantity": quantity}, &out)
	return out, err
}

func (ct Cart) Remove(ctx context.Context, id int64) error {
	return ct.c.Do(ctx, http.MethodDelete, pathID("/api/v1/cart", id), nil, nil, nil)
}

func (ct Cart) RemoveMany(ctx context.Context, ids []int64) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	err := ct.c.Do(ctx, http.MethodDelete, "/api/v1/cart", nil, map[string][]int64{"ids": ids}, &out)
	return out.Deleted, err
}

func (ct Cart) Exists(ctx context.Context, tripID int64) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := ct.c.Do(ctx, http.MethodGet, "/api/v1/cart/exists", url.Values{"tripId": {strconv.FormatInt(tripID, 10)}}, nil, &out)
	return out.Exists, err
}

// PendingBooking opens the draft booking behind a cart line, or returns the existing one.
func (ct Cart) PendingBooking(ctx context.Context, id int64) (models.Booking, error) {
	var out models.Booking
	err := ct.c.Do(ctx, http.MethodPost, pathID("/api/v1/cart", id, "/pending-booking"), nil, nil, &out)
	return out, err
}

type Bookings struct{ c *Client }

func (c *Client) Bookings() Bookings { return Bookings{c} }

type TravelerInput struct {
	FullName       string `json:"fullName"`
	Gender         string `json:"gender"`
	DateOfBirth    string `json:"dateOfBirth"`
	IdentityNumber string `json:"identityNumber"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
}

type BookingUpdate struct {
	Status *string `json:"status,omitempty"`
	Note   *string `json:"note,omitempty"`
}

func (b Bookings) List(ctx context.Context, p ListParams) (domain.Page[models.Booking], error) {
	var out domain.Page[models.Booking]
	err := b.c.Do(ctx, http.MethodGet, "/api/v1/tour-bookings", p.values(), nil, &out)
	return out, err
}

func (b Bookings) Get(ctx context.Context, id int64) (models.Booking, error) {
	var out models.Booking
	err := b.c.Do(ctx, http.MethodGet, pathID("/api/v1/tour-bookings", id), nil, nil, &out)
	return out, err
}

func (b Bookings) Confirm(ctx context.Context, id int64, method domain.PaymentMethod) (models.Booking, error) {
	var out models.Booking
	err := b.c.Do(ctx, http.MethodPost, pathID("/api/v1/tour-bookings", id, "/confirm"), nil, map[string]string{"paymentMethod": string(method)}, &out)
	return out, err
}

// Cancel also forgets the booking's stored payment record; the server
// cancels the open link with it.
func (b Bookings) Cancel(ctx context.Context, id int64) (models.Booking, error) {
	var out models.Booking
	if err := b.c.Do(ctx, http.MethodPost, pathID("/api/v1/tour-bookings", id, "/cancel"), nil, nil, &out); err != nil {
		return out, err
	}
	return out, ClearPaymentRecord(b.c.local, id)
}

func (b Bookings) Update(ctx context.Context, id int64, in BookingUpdate) (models.Booking, error) {
	var out models.Booking
	err := b.c.Do(ctx, http.MethodPut, pathID("/api/v1/tour-bookings", id), nil, in, &out)
	return out, err
}

func (b Bookings) Delete(ctx context.Context, id int64) error {
	return b.c.Do(ctx, http.MethodDelete, pathID("/api/v1/tour-bookings", id), nil, nil, nil)
}

func (b Bookings) Travelers(ctx context.Context, id int64) ([]models.Traveler, error) {
	var out []models.Traveler
	err := b.c.Do(ctx, http.MethodGet, pathID("/api/v1/tour-bookings", id, "/travelers"), nil, nil, &out)
	return out, err
}

func (b Bookings) AddTraveler(ctx context.Context, id int64, in TravelerInput) (models.Traveler, error) {
	if err := ValidateTraveler(in); err != nil {
		return models.Traveler{}, err
	}
	var out models.Traveler
	err := b.c.Do(ctx, http.MethodPost, pathID("/api/v1/tour-bookings", id, "/travelers"), nil, in, &out)
	return out, err
}

func (b Bookings) UpdateTraveler(ctx context.Context, id, travelerID int64, in TravelerInput) (models.Traveler, error) {
	if err := ValidateTraveler(in); err != nil {
		return models.Traveler{}, err
	}
	var out models.Traveler
	err := b.c.Do(ctx, http.MethodPut, pathID("/api/v1/tour-bookings", id, pathID("/travelers", travelerID)), nil, in, &out)
	return out, err
}

func (b Bookings) DeleteTraveler(ctx context.Context, id, travelerID int64) error {
	return b.c.Do(ctx, http.MethodDelete, pathID("/api/v1/tour-bookings", id, pathID("/travelers", travelerID)), nil, nil, nil)
}

// ETicket downloads the PDF ticket of one traveler.
func (b Bookings) ETicket(ctx context.Context, id, travelerID int64) ([]byte, error) {
	var out []byte
	err := b.c.Do(ctx, http.MethodGet, pathID("/api/v1/tour-bookings", id, pathID("/travelers", travelerID), "/eticket"), nil, nil, &out)
	return out, err
}

// ---- billing

type Invoices struct{ c *Client }

func (c *Client) Invoices() Invoices { return Invoices{c} }

func (i Invoices) List(ctx context.Context, p ListParams) (domain.Page[models.Invoice], error) {
	var out domain.Page[models.Invoice]
	err := i.c.Do(ctx, http.MethodGet, "/api/v1/invoices", p.values(), nil, &out)
	return out, err
}

func (i Invoices) Get(ctx context.Context, id int64) (models.Invoice, error) {
	var out models.Invoice
	err := i.c.Do(ctx, http.MethodGet, pathID("/api/v1/invoices", id), nil, nil, &out)
	return out, err
}

func (i Invoices) PDF(ctx context.Context, id int64) ([]byte, error) {
	var out []byte
	err := i.c.Do(ctx, http.MethodGet, pathID("/api/v1/invoices", id, "/pdf"), nil, nil, &out)
	return out, err
}

func (i Invoices) ChangeMethod(ctx context.Context, id int64, method domain.PaymentMethod) (models.Invoice, error) {
	var out models.Invoice
	err := i.c.Do(ctx, http.MethodPut, pathID("/api/v1/invoices", id, "/payment-method"), nil, map[string]string{"paymentMethod": string(method)}, &out)
	return out, err
}

func (i Invoices) MarkPaid(ctx context.Context, id int64, method domain.PaymentMethod) (models.Invoice, error) {
	var out models.Invoice
	err := i.c.Do(ctx, http.MethodPost, pathID("/api/v1/invoices", id, "/mark-paid"), nil, map[string]string{"paymentMethod": string(method)}, &out)
	return out, err
}

type Payments struct{ c *Client }

func (c *Client) Payments() Payments { return Payments{c} }

func recordOf(l models.PaymentLink) PaymentRecord {
	return PaymentRecord{
		BookingID:   l.BookingID,
		OrderCode:   l.OrderCode,
		Amount:      l.Amount,
		CheckoutURL: l.CheckoutURL,
		QRCode:      l.QRCode,
		Status:      string(l.Status),
		SavedAt:     l.CreatedAt,
	}
}

// CreateLink asks for a PayOS link and remembers it under payment_<bookingId>.
func (p Payments) CreateLink(ctx context.Context, bookingID int64) (models.PaymentLink, error) {
	var out models.PaymentLink
	if err := p.c.Do(ctx, http.MethodPost, "/api/v1/payment/links", nil, map[string]int64{"bookingId": bookingID}, &out); err != nil {
		return out, err
	}
	if out.BookingID == 0 {
		out.BookingID = bookingID
	}
	return out, SavePaymentRecord(p.c.local, recordOf(out))
}

func (p Payments) Status(ctx context.Context, orderCode int64) (models.PaymentLink, error) {
	var out models.PaymentLink
	err := p.c.Do(ctx, http.MethodGet, pathID("/api/v1/payment/links", orderCode), nil, nil, &out)
	return out, err
}

// Cancel also forgets the stored payment record.
func (p Payments) Cancel(ctx context.Context, orderCode int64) (models.PaymentLink, error) {
	var out models.PaymentLink
	if err := p.c.Do(ctx, http.MethodPost, pathID("/api/v1/payment/links", orderCode, "/cancel"), nil, nil, &out); err != nil {
		return out, err
	}
	return out, ClearPaymentRecord(p.c.local, out.BookingID)
}

// ---- administration

type Staff struct{ c *Client }

func (c *Client) Staff() Staff { return Staff{c} }

func (s Staff) List(ctx context.Context, p ListParams) (domain.Page[models.User], error) {
	var out domain.Page[models.User]
	err := s.c.Do(ctx, http.MethodGet, "/admin/staffs", p.values(), nil, &out)
	return out, err
}

func (s Staff) Get(ctx context.Context, id int64) (models.User, error) {
	var out models.User
	err := s.c.Do(ctx, http.MethodGet, pathID("/admin/staffs", id), nil, nil, &out)
	return out, err
}

func (s Staff) Create(ctx context.Context, in models.StaffInput) (models.User, error) {
	if err := ValidateStaff(in, true); err != nil {
		return models.User{}, err
	}
	var out models.User
	err := s.c.Do(ctx, http.MethodPost, "/admin/staffs", nil, in, &out)
	return out, err
}

func (s Staff) Update(ctx context.Context, id int64, in models.StaffInput) (models.User, error) {
	if err := ValidateStaff(in, false); err != nil {
		return models.User{}, err
	}
	var out models.User
	err := s.c.Do(ctx, http.MethodPut, pathID("/admin/staffs", id), nil, in, &out)
	return out, err
}

func (s Staff) SetLocked(ctx context.Context, id int64, locked bool) (models.User, error) {
	var out models.User
	err := s.c.Do(ctx, http.MethodPut, pathID("/admin/staffs", id, "/lock"), nil, map[string]bool{"locked": locked}, &out)
	return out, err
}

type Users struct{ c *Client }

func (c *Client) Users() Users { return Users{c} }

func (u Users) List(ctx context.Context, p ListParams) (domain.Page[models.User], error) {
	var out domain.Page[models.User]
	err := u.c.Do(ctx, http.MethodGet, "/admin/users", p.values(), nil, &out)
	return out, err
}

func (u Users) Get(ctx context.Context, id int64) (models.User, error) {
	var out models.User
	err := u.c.Do(ctx, http.MethodGet, pathID("/admin/users", id), nil, nil, &out)
	return out, err
}

func (u Users) SetLocked(ctx context.Context, id int64, locked bool) (models.User, error) {
	var out models.User
	err := u.c.Do(ctx, http.MethodPut, pathID("/admin/users", id, "/lock"), nil, map[string]bool{"locked": locked}, &out)
	return out, err
}
