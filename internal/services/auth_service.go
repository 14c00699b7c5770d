package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type AuthService struct {
	Users      repositories.UserRepository
	Tokens     repositories.RefreshTokenRepository
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
	RequestID  string
}

// Claims is the access token payload.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

// Register creates a customer account.
func (s AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	u := models.User{
		FullName: utils.NormalizeSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    utils.NormalizePhone(in.Phone),
		Role:     domain.RoleCustomer,
		Active:   true,
	}
	if err := validateContact(u.FullName, u.Email, u.Phone); err != nil {
		return models.User{}, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash

	id, err := s.Users.Create(ctx, u)
	if err != nil {
		return models.User{}, internal(err)
	}
	u.ID = id
	utils.LogEvent(s.RequestID, "auth", "register", fmt.Sprintf("user_id=%d", id))
	return u, nil
}

// Login checks credentials and issues a token pair.
func (s AuthService) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	bad := domain.UnauthorizedError{Msg: "invalid email or password"}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.TokenPair{}, bad
		}
		return models.TokenPair{}, internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.TokenPair{}, bad
	}
	if u.Locked || !u.Active {
		return models.TokenPair{}, domain.ForbiddenError{Msg: "account is locked"}
	}
	utils.LogEvent(s.RequestID, "auth", "login", fmt.Sprintf("user_id=%d", u.ID))
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token. Presenting an already revoked token
// revokes every session of its user.
func (s AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.TokenPair{}, domain.UnauthorizedError{Msg: "missing refresh token"}
	}
	hash := hashToken(refreshToken)
	rec, err := s.Tokens.Find(ctx, hash)
	if err != nil {
		return models.TokenPair{}, internal(err)
	}
	if rec.Revoked {
		_ = s.Tokens.RevokeAllForUser(ctx, rec.UserID)
		utils.LogEvent(s.RequestID, "auth", "refresh_reuse", fmt.Sprintf("user_id=%d", rec.UserID))
		return models.TokenPair{}, domain.UnauthorizedError{Msg: "refresh token revoked"}
	}
	if !rec.ExpiresAt.After(nowOr(s.Now)) {
		return models.TokenPair{}, domain.UnauthorizedError{Msg: "refresh token expired"}
	}
	ok, err := s.Tokens.Revoke(ctx, hash)
	if err != nil {
		return models.TokenPair{}, internal(err)
	}
	if !ok {
		return models.TokenPair{}, domain.UnauthorizedError{Msg: "refresh token revoked"}
	}

	u, err := s.Users.GetByID(ctx, rec.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.TokenPair{}, domain.UnauthorizedError{Msg: "account no longer exists"}
		}
		return models.TokenPair{}, internal(err)
	}
	if u.Locked || !u.Active {
		return models.TokenPair{}, domain.ForbiddenError{Msg: "account is locked"}
	}
	return s.issue(ctx, u)
}

// Logout revokes the given refresh token; unknown tokens are ignored.
func (s AuthService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	_, err := s.Tokens.Revoke(ctx, hashToken(refreshToken))
	return internal(err)
}

// ParseAccessToken validates an access token and returns its caller.
func (s AuthService) ParseAccessToken(token string) (domain.RequestContext, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return nowOr(s.Now) }))
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.RequestContext{}, domain.UnauthorizedError{Msg: "token expired"}
		}
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	if claims.UserID <= 0 {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	return domain.RequestContext{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s AuthService) issue(ctx context.Context, u models.User) (models.TokenPair, error) {
	now := nowOr(s.Now)
	exp := now.Add(s.accessTTL())
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return models.TokenPair{}, domain.InternalError{Msg: "could not sign token", Err: err}
	}

	refresh := uuid.NewString() + uuid.NewString()
	if err := s.Tokens.Save(ctx, hashToken(refresh), u.ID, now.Add(s.refreshTTL())); err != nil {
		return models.TokenPair{}, internal(err)
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp, User: u}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", domain.ValidationError{Field: "password", Msg: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.InternalError{Msg: "could not hash password", Err: err}
	}
	return string(hash), nil
}

func validateContact(fullName, email, phone string) error {
	if fullName == "" {
		return domain.ValidationError{Field: "fullName", Msg: "required"}
	}
	if !utils.IsValidEmail(email) {
		return domain.ValidationError{Field: "email", Msg: "invalid email address"}
	}
	if phone != "" && !utils.IsValidPhone(phone) {
		return domain.ValidationError{Field: "phone", Msg: "invalid phone number"}
	}
	return nil
}
