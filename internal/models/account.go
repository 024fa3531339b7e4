package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType identifies the role of a financial account in settlement.
type AccountType string

const (
	AccountTypeShipperWallet   AccountType = "SHIPPER_WALLET"
	AccountTypeCarrierWallet   AccountType = "CARRIER_WALLET"
	AccountTypePlatformRevenue AccountType = "PLATFORM_REVENUE"
)

// FinancialAccount is one ledger row per (organization, account type). The
// platform revenue account is the singleton row with a NULL organization.
type FinancialAccount struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID sql.NullString  `json:"organization_id" db:"organization_id"`
	AccountType    AccountType     `json:"account_type" db:"account_type"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	Currency       string          `json:"currency" db:"currency"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	Version        int             `json:"version" db:"version"` // for optimistic locking
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
