package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/corridorpay/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

// SettlementHandler exposes the settlement engine's three operations over
// HTTP. It is thin glue: all business rules live in the SettlementService.
type SettlementHandler struct {
	settlement *services.SettlementService
	validator  *services.ValidationHelper
}

func NewSettlementHandler(settlement *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		validator:  services.NewValidationHelper(),
	}
}

// Deduct settles the service fee for a delivered load.
// @Summary Deduct service fee
// @Tags settlements
// @Produce json
// @Param loadId path string true "Load ID"
// @Router /settlements/{loadId}/deduct [post]
func (sh *SettlementHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	loadID := chi.URLParam(r, "loadId")
	if err := sh.validator.ValidateVar(loadID, "required,uuid4"); err != nil {
		services.SendErrorResponse(w, "Invalid load id", http.StatusBadRequest, nil)
		return
	}

	result, err := sh.settlement.Deduct(r.Context(), loadID)
	if err != nil {
		if errors.Is(err, services.ErrLoadNotFound) {
			services.SendErrorResponse(w, "Load not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[SETTLEMENT] Deduct failed for load %s: %v", loadID, err)
		services.SendErrorResponse(w, "Failed to process settlement", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Refund returns the shipper's service fee for a load.
// @Summary Refund service fee
// @Tags settlements
// @Produce json
// @Param loadId path string true "Load ID"
// @Router /settlements/{loadId}/refund [post]
func (sh *SettlementHandler) Refund(w http.ResponseWriter, r *http.Request) {
	loadID := chi.URLParam(r, "loadId")
	if err := sh.validator.ValidateVar(loadID, "required,uuid4"); err != nil {
		services.SendErrorResponse(w, "Invalid load id", http.StatusBadRequest, nil)
		return
	}

	result, err := sh.settlement.Refund(r.Context(), loadID)
	if err != nil {
		if errors.Is(err, services.ErrLoadNotFound) {
			services.SendErrorResponse(w, "Load not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[SETTLEMENT] Refund failed for load %s: %v", loadID, err)
		services.SendErrorResponse(w, "Failed to process refund", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Validate runs the read-only pre-trip affordability check.
// @Summary Validate settlement affordability
// @Tags settlements
// @Produce json
// @Param loadId path string true "Load ID"
// @Param carrierOrgId query string false "Carrier organization ID"
// @Router /settlements/{loadId}/validate [get]
func (sh *SettlementHandler) Validate(w http.ResponseWriter, r *http.Request) {
	loadID := chi.URLParam(r, "loadId")
	if err := sh.validator.ValidateVar(loadID, "required,uuid4"); err != nil {
		services.SendErrorResponse(w, "Invalid load id", http.StatusBadRequest, nil)
		return
	}

	carrierOrgID := r.URL.Query().Get("carrierOrgId")
	if carrierOrgID != "" {
		if err := sh.validator.ValidateVar(carrierOrgID, "uuid4"); err != nil {
			services.SendErrorResponse(w, "Invalid carrier organization id", http.StatusBadRequest, nil)
			return
		}
	}

	result, err := sh.settlement.Validate(r.Context(), loadID, carrierOrgID)
	if err != nil {
		if errors.Is(err, services.ErrLoadNotFound) {
			services.SendErrorResponse(w, "Load not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[SETTLEMENT] Validate failed for load %s: %v", loadID, err)
		services.SendErrorResponse(w, "Failed to validate settlement", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
