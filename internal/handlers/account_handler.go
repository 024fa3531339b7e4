package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/corridorpay/backend/internal/models"
	"github.com/corridorpay/backend/internal/services"
)

// AccountHandler serves read-only balance and journal enquiries for admin
// tooling and reconciliation.
type AccountHandler struct {
	db        *sql.DB
	ledger    *services.LedgerService
	journal   *services.JournalService
	validator *services.ValidationHelper
}

func NewAccountHandler(db *sql.DB) *AccountHandler {
	return &AccountHandler{
		db:        db,
		ledger:    services.NewLedgerService(db),
		journal:   services.NewJournalService(db),
		validator: services.NewValidationHelper(),
	}
}

// BalanceEnquiry retrieves a wallet or platform account balance.
// @Summary Get account balance
// @Tags accounts
// @Produce json
// @Param organizationId query string false "Organization ID (omit for platform account)"
// @Param accountType query string false "SHIPPER_WALLET | CARRIER_WALLET | PLATFORM_REVENUE"
// @Router /accounts/balance-enquiry [get]
func (ah *AccountHandler) BalanceEnquiry(w http.ResponseWriter, r *http.Request) {
	organizationID := strings.TrimSpace(r.URL.Query().Get("organizationId"))
	accountType := models.AccountType(strings.TrimSpace(r.URL.Query().Get("accountType")))
	if accountType == "" {
		accountType = models.AccountTypePlatformRevenue
	}

	switch accountType {
	case models.AccountTypePlatformRevenue:
		// singleton, no organization
	case models.AccountTypeShipperWallet, models.AccountTypeCarrierWallet:
		if organizationID == "" {
			services.SendErrorResponse(w, "organizationId is required", http.StatusBadRequest, nil)
			return
		}
		if err := ah.validator.ValidateVar(organizationID, "uuid4"); err != nil {
			services.SendErrorResponse(w, "Invalid organization id", http.StatusBadRequest, nil)
			return
		}
	default:
		services.SendErrorResponse(w, "Invalid account type", http.StatusBadRequest, nil)
		return
	}

	balance, err := ah.ledger.GetBalance(ah.db, organizationID, accountType)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[ACCOUNT_ENQUIRY] Balance lookup failed for %s/%s: %v", organizationID, accountType, err)
		services.SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"organizationId":   organizationID,
		"accountType":      accountType,
		"availableBalance": balance.String(),
	})
}

// ListJournal lists the journal entries recorded for one load.
// @Summary List journal entries by reference
// @Tags journal
// @Produce json
// @Param reference query string true "Load ID"
// @Router /journal [get]
func (ah *AccountHandler) ListJournal(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	if err := ah.validator.ValidateVar(reference, "required,uuid4"); err != nil {
		services.SendErrorResponse(w, "Invalid reference", http.StatusBadRequest, nil)
		return
	}

	entries, err := ah.journal.FindByReference(reference)
	if err != nil {
		log.Printf("[JOURNAL] Lookup failed for reference %s: %v", reference, err)
		services.SendErrorResponse(w, "Failed to fetch journal entries", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
