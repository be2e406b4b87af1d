package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/supplierhub/supplierhub/internal/middleware"
	"github.com/supplierhub/supplierhub/internal/models"
	"github.com/supplierhub/supplierhub/internal/repository"
	"github.com/supplierhub/supplierhub/internal/service"
)

// VouchStore is the slice of the vouch repository the handlers need. Counter
// updates ride inside the repository's transactions.
type VouchStore interface {
	Create(ctx context.Context, vouch *models.Vouch) error
	Delete(ctx context.Context, vouchedByID, vouchedForID int64) error
}

type VouchHandlers struct {
	vouches   VouchStore
	suppliers service.SupplierFinder
	logger    *logrus.Logger
}

func NewVouchHandlers(vouches VouchStore, suppliers service.SupplierFinder, logger *logrus.Logger) *VouchHandlers {
	return &VouchHandlers{
		vouches:   vouches,
		suppliers: suppliers,
		logger:    logger,
	}
}

type CreateVouchRequest struct {
	VouchedForID int64  `json:"vouched_for_id"`
	Message      string `json:"message,omitempty"`
}

func (h *VouchHandlers) Create(w http.ResponseWriter, r *http.Request) {
	voucher, ok := middleware.SupplierFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	var req CreateVouchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.VouchedForID <= 0 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "A supplier to vouch for is required")
		return
	}
	if req.VouchedForID == voucher.ID {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "You cannot vouch for yourself.")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if n := utf8.RuneCountInString(req.Message); req.Message != "" && (n < 10 || n > 1000) {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "The vouch message must be between 10 and 1000 characters")
		return
	}

	vouchee, err := h.suppliers.GetByID(r.Context(), req.VouchedForID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up vouched-for supplier")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if vouchee == nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "The selected supplier does not exist")
		return
	}

	vouch := &models.Vouch{
		ID:           uuid.New().String(),
		VouchedByID:  voucher.ID,
		VouchedForID: req.VouchedForID,
		Message:      req.Message,
	}

	if err := h.vouches.Create(r.Context(), vouch); err != nil {
		switch {
		case errors.Is(err, repository.ErrVouchExists):
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "You have already vouched for this supplier.")
		case errors.Is(err, repository.ErrSupplierNotFound):
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "The selected supplier does not exist")
		default:
			h.logger.WithError(err).Error("Failed to create vouch")
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	respondSuccess(w, http.StatusCreated, vouch, "Vouch created successfully")
}

// Delete removes the authenticated supplier's vouch for the supplier named
// in the path. Only the voucher can withdraw a vouch, so the pair fully
// identifies it.
func (h *VouchHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	voucher, ok := middleware.SupplierFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	vouchedForID, err := strconv.ParseInt(mux.Vars(r)["supplier_id"], 10, 64)
	if err != nil || vouchedForID <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid supplier id")
		return
	}

	if err := h.vouches.Delete(r.Context(), voucher.ID, vouchedForID); err != nil {
		if errors.Is(err, repository.ErrVouchNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Vouch not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete vouch")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	respondSuccess(w, http.StatusOK, nil, "Vouch deleted successfully")
}
