package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Storage is a small string key/value store. MemoryStorage plays the role of
// session storage and FileStorage of local storage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string]string{}}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// FileStorage keeps its entries in a JSON object on disk so they survive restarts.
type FileStorage struct {
	path string

	mu     sync.Mutex
	loaded bool
	data   map[string]string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) load() error {
	if s.loaded {
		return nil
	}
	s.data = map[string]string{}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	s.loaded = true
	return nil
}

// save writes through a temp file so a crash never leaves a truncated store.
func (s *FileStorage) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return "", false
	}
	v, ok := s.data[key]
	return v, ok
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.data[key] = value
	return s.save()
}

func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresAt    = "expires_at"
)

// Tokens is the credential pair held by the client.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenStore keeps tokens in local storage when "remember me" was ticked and in session storage otherwise.
type TokenStore struct {
	mu      sync.Mutex
	local   Storage
	session Storage
}

func NewTokenStore(local, session Storage) *TokenStore {
	if local == nil {
		local = NewMemoryStorage()
	}
	if session == nil {
		session = NewMemoryStorage()
	}
	return &TokenStore{local: local, session: session}
}

func readTokens(s Storage) (Tokens, bool) {
	access, ok := s.Get(keyAccessToken)
	if !ok || access == "" {
		return Tokens{}, false
	}
	t := Tokens{AccessToken: access}
	t.RefreshToken, _ = s.Get(keyRefreshToken)
	if raw, ok := s.Get(keyExpiresAt); ok {
		t.ExpiresAt, _ = time.Parse(time.RFC3339, raw)
	}
	return t, true
}

func writeTokens(s Storage, t Tokens) error {
	if err := s.Set(keyAccessToken, t.AccessToken); err != nil {
		return err
	}
	if err := s.Set(keyRefreshToken, t.RefreshToken); err != nil {
		return err
	}
	return s.Set(keyExpiresAt, t.ExpiresAt.UTC().Format(time.RFC3339))
}

func clearTokens(s Storage) {
	_ = s.Delete(keyAccessToken)
	_ = s.Delete(keyRefreshToken)
	_ = s.Delete(keyExpiresAt)
}

// Load prefers the session copy, matching the store Save last wrote to.
func (ts *TokenStore) Load() Tokens {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := readTokens(ts.session); ok {
		return t
	}
	t, _ := readTokens(ts.local)
	return t
}

// Remembered reports whether the current tokens live in local storage.
func (ts *TokenStore) Remembered() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := readTokens(ts.session); ok {
		return false
	}
	_, ok := readTokens(ts.local)
	return ok
}

func (ts *TokenStore) Save(t Tokens, remember bool) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if remember {
		clearTokens(ts.session)
		return writeTokens(ts.local, t)
	}
	clearTokens(ts.local)
	return writeTokens(ts.session, t)
}

func (ts *TokenStore) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	clearTokens(ts.session)
	clearTokens(ts.local)
}

// PaymentRecord is the last known payment link of a booking.
type PaymentRecord struct {
	BookingID   int64     `json:"bookingId"`
	OrderCode   int64     `json:"orderCode"`
	Amount      int64     `json:"amount"`
	CheckoutURL string    `json:"checkoutUrl"`
	QRCode      string    `json:"qrCode"`
	Status      string    `json:"status"`
	SavedAt     time.Time `json:"savedAt"`
}

func paymentKey(bookingID int64) string {
	return "payment_" + strconv.FormatInt(bookingID, 10)
}

func SavePaymentRecord(s Storage, rec PaymentRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.Set(paymentKey(rec.BookingID), string(raw))
}

func LoadPaymentRecord(s Storage, bookingID int64) (PaymentRecord, bool) {
	raw, ok := s.Get(paymentKey(bookingID))
	if !ok {
		return PaymentRecord{}, false
	}
	var rec PaymentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return PaymentRecord{}, false
	}
	return rec, true
}

func ClearPaymentRecord(s Storage, bookingID int64) error {
	return s.Delete(paymentKey(bookingID))
}
