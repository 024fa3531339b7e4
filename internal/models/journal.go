package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a journal entry with the money movement it records.
type TransactionType string

const (
	TxTypeServiceFeeDeduct TransactionType = "SERVICE_FEE_DEDUCT"
	TxTypeServiceFeeRefund TransactionType = "SERVICE_FEE_REFUND"
)

// JournalEntry is an append-only audit record of a single money movement.
// Entries are never updated or deleted.
type JournalEntry struct {
	ID              string          `json:"id" db:"id"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	Reference       string          `json:"reference" db:"reference"` // load id
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	DebitAccountID  sql.NullString  `json:"debit_account_id" db:"debit_account_id"`
	CreditAccountID sql.NullString  `json:"credit_account_id" db:"credit_account_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
