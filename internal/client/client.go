// Package client is the typed REST client used by storefront and back-office
// front ends. It owns the session tokens and the one automatic recovery the
// API allows: a single refresh-and-replay on 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tourbooking/internal/domain/models"
	"tourbooking/internal/utils"

	"golang.org/x/sync/singleflight"
)

// LoginPath is where a forced logout sends the user.
const LoginPath = "/login"

const maxResponseBytes = 16 << 20

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Local survives restarts; tokens land here when "remember me" is set,
	// and pending payment records always do.
	Local Storage
	// Session lives as long as the process.
	Session Storage
	// OnLogout runs after the session is dropped, with the path to redirect to.
	OnLogout func(redirect string)
	Logger   utils.Logger
}

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *TokenStore
	local    Storage
	onLogout func(string)
	log      utils.Logger

	refreshGroup singleflight.Group
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	local := opts.Local
	if local == nil {
		local = NewMemoryStorage()
	}
	log := opts.Logger
	if log == nil {
		log = utils.L()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     hc,
		tokens:   NewTokenStore(local, opts.Session),
		local:    local,
		onLogout: opts.OnLogout,
		log:      log,
	}
}

// Tokens exposes the token store, e.g. to check whether a user is signed in.
func (c *Client) Tokens() *TokenStore { return c.tokens }

// LocalStorage is where pending payment records are kept.
func (c *Client) LocalStorage() Storage { return c.local }

func (c *Client) Authenticated() bool {
	return c.tokens.Load().AccessToken != ""
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// Do sends one API call. out receives the "data" member of the success body,
// or the raw bytes when it is a *[]byte.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		payload = raw
	}

	used := c.tokens.Load().AccessToken
	resp, err := c.send(ctx, method, path, query, payload, used)
	if err != nil {
		return err
	}
	if resp.status == http.StatusUnauthorized && !strings.HasPrefix(path, "/auth/") {
		if err := c.refresh(ctx, used); err != nil {
			c.log.Info("session refresh failed", "path", path, "error", err)
			c.forceLogout()
			return resp.err()
		}
		resp, err = c.send(ctx, method, path, query, payload, c.tokens.Load().AccessToken)
		if err != nil {
			return err
		}
		if resp.status == http.StatusUnauthorized {
			c.forceLogout()
			return resp.err()
		}
	}
	return resp.decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return response{}, fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return response{}, fmt.Errorf("client: read %s %s: %w", method, path, err)
	}
	return response{status: res.StatusCode, header: res.Header, body: raw}, nil
}

// refresh exchanges the refresh token once for every caller that saw the
// same stale access token.
func (c *Client) refresh(ctx context.Context, stale string) error {
	if cur := c.tokens.Load().AccessToken; cur != "" && cur != stale {
		return nil
	}
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		cur := c.tokens.Load()
		if cur.AccessToken != "" && cur.AccessToken != stale {
			return nil, nil
		}
		if cur.RefreshToken == "" {
			return nil, ErrLoggedOut
		}
		raw, err := json.Marshal(map[string]string{"refreshToken": cur.RefreshToken})
		if err != nil {
			return nil, err
		}
		resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, raw, "")
		if err != nil {
			return nil, err
		}
		var pair models.TokenPair
		if err := resp.decode(&pair); err != nil {
			return nil, err
		}
		remember := c.tokens.Remembered()
		return nil, c.tokens.Save(Tokens{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    pair.ExpiresAt,
		}, remember)
	})
	return err
}

func (c *Client) forceLogout() {
	c.tokens.Clear()
	if c.onLogout != nil {
		c.onLogout(LoginPath)
	}
}

func (r response) decode(out any) error {
	if r.status < 200 || r.status >= 300 {
		return r.err()
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = r.body
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.body, &env); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("client: decode data: %w", err)
	}
	return nil
}

func (r response) err() error {
	e := &APIError{Status: r.status}
	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal(r.body, &body) == nil {
		e.Code = body.Code
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
		e.RequestID = body.RequestID
	}
	return e
}
