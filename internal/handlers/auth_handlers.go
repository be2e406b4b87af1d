package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/supplierhub/supplierhub/internal/middleware"
	"github.com/supplierhub/supplierhub/internal/models"
	"github.com/supplierhub/supplierhub/internal/repository"
	"github.com/supplierhub/supplierhub/internal/service"
	"golang.org/x/crypto/bcrypt"
)

const refreshTokenCookie = "refresh_token"

// SupplierStore is the slice of the supplier repository the auth handlers
// need.
type SupplierStore interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByEmail(ctx context.Context, email string) (*models.Supplier, error)
}

type AuthHandlers struct {
	tokens           *service.TokenService
	suppliers        SupplierStore
	deliveryOverride service.DeliveryMode
	logger           *logrus.Logger
}

func NewAuthHandlers(
	tokens *service.TokenService,
	suppliers SupplierStore,
	deliveryOverride service.DeliveryMode,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		tokens:           tokens,
		suppliers:        suppliers,
		deliveryOverride: deliveryOverride,
		logger:           logger,
	}
}

type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SupplierResource struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	TotalVouches int64     `json:"total_vouches"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newSupplierResource(supplier *models.Supplier) *SupplierResource {
	return &SupplierResource{
		ID:           supplier.ID,
		Name:         supplier.Name,
		Email:        supplier.Email,
		TotalVouches: supplier.TotalVouches,
		CreatedAt:    supplier.CreatedAt,
		UpdatedAt:    supplier.UpdatedAt,
	}
}

type authData struct {
	User        *SupplierResource `json:"user"`
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int64             `json:"expires_in"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || utf8.RuneCountInString(req.Name) > 255 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Name is required and must be at most 255 characters")
		return
	}
	if !emailPattern.MatchString(req.Email) || utf8.RuneCountInString(req.Email) > 255 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "A valid email address is required")
		return
	}
	if utf8.RuneCountInString(req.Password) < 6 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Password must be at least 6 characters")
		return
	}
	if req.Password != req.PasswordConfirmation {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Password confirmation does not match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	supplier := &models.Supplier{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := h.suppliers.Create(r.Context(), supplier); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "The email has already been taken")
			return
		}
		h.logger.WithError(err).Error("Failed to create supplier")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	respondSuccess(w, http.StatusCreated, newSupplierResource(supplier), "Registered successfully")
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(req.Email) || utf8.RuneCountInString(req.Password) < 6 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Email and password are required")
		return
	}

	supplier, err := h.suppliers.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up supplier")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if supplier == nil || bcrypt.CompareHashAndPassword([]byte(supplier.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	pair, err := h.tokens.Issue(r.Context(), supplier)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token pair")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	h.deliverRefreshToken(w, r, pair)
	respondSuccess(w, http.StatusOK, authData{
		User:        newSupplierResource(supplier),
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn,
	}, "Login successful")
}

func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	accessToken := bearerToken(r)

	mode := service.ClassifyDelivery(r.UserAgent(), h.deliveryOverride)
	refreshToken := h.refreshTokenFromRequest(r, mode)
	if refreshToken == "" {
		respondError(w, http.StatusBadRequest, "REFRESH_TOKEN_MISSING", "Refresh token missing")
		return
	}

	pair, supplier, err := h.tokens.Rotate(r.Context(), accessToken, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRotationRejected):
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired refresh token")
		case errors.Is(err, service.ErrStoreUnavailable):
			h.logger.WithError(err).Error("Refresh token store unavailable")
			respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable")
		default:
			h.logger.WithError(err).Error("Failed to rotate tokens")
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	h.deliverRefreshToken(w, r, pair)
	respondSuccess(w, http.StatusOK, authData{
		User:        newSupplierResource(supplier),
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn,
	}, "Token refreshed successfully")
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	supplier, ok := middleware.SupplierFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	if err := h.tokens.Revoke(r.Context(), supplier.ID); err != nil {
		h.logger.WithError(err).Error("Failed to revoke refresh token")
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	if service.ClassifyDelivery(r.UserAgent(), h.deliveryOverride) == service.DeliveryCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     refreshTokenCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}

	respondSuccess(w, http.StatusOK, nil, "Successfully logged out")
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	supplier, ok := middleware.SupplierFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	respondSuccess(w, http.StatusOK, newSupplierResource(supplier), "")
}

// deliverRefreshToken must run before the response body is written so the
// cookie or headers make it out.
func (h *AuthHandlers) deliverRefreshToken(w http.ResponseWriter, r *http.Request, pair *models.TokenPair) {
	switch service.ClassifyDelivery(r.UserAgent(), h.deliveryOverride) {
	case service.DeliveryCookie:
		http.SetCookie(w, &http.Cookie{
			Name:     refreshTokenCookie,
			Value:    pair.RefreshToken,
			Path:     "/",
			MaxAge:   int(pair.RefreshExpiresIn),
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	default:
		w.Header().Set("X-Refresh-Token", pair.RefreshToken)
		w.Header().Set("X-Refresh-Expires-In", strconv.FormatInt(pair.RefreshExpiresIn, 10))
	}
}

func (h *AuthHandlers) refreshTokenFromRequest(r *http.Request, mode service.DeliveryMode) string {
	if mode == service.DeliveryCookie {
		cookie, err := r.Cookie(refreshTokenCookie)
		if err != nil {
			return ""
		}
		return cookie.Value
	}
	return r.Header.Get("X-Refresh-Token")
}

func bearerToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
