package handlers

import (
	"net/http"

	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthService builds the token service from configuration; the router uses it to verify bearer tokens.
func AuthService(requestID string) services.AuthService {
	env := current().Env
	return services.AuthService{
		Secret:     []byte(env.JWTSecret),
		AccessTTL:  env.AccessTokenTTL,
		RefreshTTL: env.RefreshTokenTTL,
		Now:        current().Now,
		RequestID:  requestID,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	pair, err := AuthService(requestID(c)).Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, pair)
}

func Register(c *gin.Context) {
	var req services.RegisterInput
	if !BindJSONOrError(c, &req) {
		return
	}
	u, err := AuthService(requestID(c)).Register(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, u)
}

// Refresh rotates the refresh token; the old one is revoked.
func Refresh(c *gin.Context) {
	var req refreshRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	pair, err := AuthService(requestID(c)).Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, pair)
}

func Logout(c *gin.Context) {
	var req refreshRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if err := AuthService(requestID(c)).Logout(c.Request.Context(), req.RefreshToken); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"loggedOut": true})
}
