// Package payos is a small client for the PayOS merchant API (payment links).
package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const successCode = "00"

// PayOS caps descriptions for bank transfers at 25 characters.
const maxDescription = 25

type Client struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	HTTP        *http.Client
}

func New(baseURL, clientID, apiKey, checksumKey string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		ClientID:    clientID,
		APIKey:      apiKey,
		ChecksumKey: checksumKey,
		HTTP:        &http.Client{Timeout: 15 * time.Second},
	}
}

type CreateRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BuyerName   string `json:"buyerName,omitempty"`
	BuyerEmail  string `json:"buyerEmail,omitempty"`
	BuyerPhone  string `json:"buyerPhone,omitempty"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	ExpiredAt   int64  `json:"expiredAt,omitempty"`
	Signature   string `json:"signature"`
}

type CheckoutData struct {
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type LinkInfo struct {
	ID                 string `json:"id"`
	OrderCode          int64  `json:"orderCode"`
	Amount             int64  `json:"amount"`
	AmountPaid         int64  `json:"amountPaid"`
	AmountRemaining    int64  `json:"amountRemaining"`
	Status             string `json:"status"`
	CreatedAt          string `json:"createdAt"`
	CancellationReason string `json:"cancellationReason"`
}

type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// APIError is a non-"00" reply from PayOS.
type APIError struct {
	Code string
	Desc string
}

func (e APIError) Error() string {
	return fmt.Sprintf("payos: %s (%s)", e.Desc, e.Code)
}

// CreatePaymentLink signs and submits a new payment request.
func (c *Client) CreatePaymentLink(ctx context.Context, req CreateRequest) (CheckoutData, error) {
	if len(req.Description) > maxDescription {
		req.Description = req.Description[:maxDescription]
	}
	req.Signature = c.sign(fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL))

	var out CheckoutData
	err := c.do(ctx, http.MethodPost, "/v2/payment-requests", req, &out)
	return out, err
}

func (c *Client) GetPaymentLink(ctx context.Context, orderCode int64) (LinkInfo, error) {
	var out LinkInfo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v2/payment-requests/%d", orderCode), nil, &out)
	return out, err
}

func (c *Client) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) (LinkInfo, error) {
	var out LinkInfo
	body := map[string]string{}
	if reason != "" {
		body["cancellationReason"] = reason
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode), body, &out)
	return out, err
}

// WebhookData is the "data" object PayOS posts to the webhook URL.
type WebhookData map[string]any

type Webhook struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      WebhookData `json:"data"`
	Signature string      `json:"signature"`
}

// OrderCode extracts data.orderCode.
func (d WebhookData) OrderCode() int64 {
	switch v := d["orderCode"].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// PaymentCode is data.code; "00" means the transfer succeeded.
func (d WebhookData) PaymentCode() string {
	s, _ := d["code"].(string)
	return s
}

// VerifyWebhook checks the HMAC over data's fields sorted by key.
func (c *Client) VerifyWebhook(w Webhook) bool {
	expected := c.sign(SortedQuery(w.Data))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(w.Signature)))
}

// SortedQuery renders k=v pairs joined by & in key order; nulls become empty strings.
func SortedQuery(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+stringify(data[k]))
	}
	return strings.Join(parts, "&")
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if x == "null" || x == "undefined" {
			return ""
		}
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.ChecksumKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("x-client-id", c.ClientID)
	req.Header.Set("x-api-key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("payos request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("payos decode (status %d): %w", resp.StatusCode, err)
	}
	if env.Code != successCode {
		return APIError{Code: env.Code, Desc: env.Desc}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
