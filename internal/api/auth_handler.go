package api

import (
	"errors"
	"net/http"

	"github.com/customer-ingest/internal/apperr"
	"github.com/customer-ingest/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles registration and token issuance. Issuing the
// token itself, and the HTTP routing that carries these requests, sit
// outside the ingestion core proper; this handler is the thin surface
// that lets the rest of the service be exercised end to end.
type AuthHandler struct {
	services *service.Services
	log      zerolog.Logger
}

func NewAuthHandler(services *service.Services, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{services: services, log: log.With().Str("handler", "auth").Logger()}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.services.Auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token handles POST /auth/token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// writeError maps the apperr taxonomy to an HTTP response. Anything
// that isn't a *apperr.Error ClientError is a bug, not a client
// mistake, and is logged and reported as 500.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		c.JSON(appErr.Status, gin.H{"error": appErr.Msg})
		return
	}
	log.Error().Err(err).Msg("unhandled request error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
