package services

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/corridorpay/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrAccountNotFound is returned when a wallet or platform account row does
// not exist for the requested owner.
var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `id, organization_id, account_type, balance, currency, is_active, version, updated_at`

// LedgerService is the store for financial accounts: shipper wallets, carrier
// wallets and the singleton platform revenue account. Every mutating method
// takes the caller's *sql.Tx; the service never begins or commits transactions
// itself - that is the settlement orchestrator's job.
type LedgerService struct {
	db       *sql.DB
	currency string
}

func NewLedgerService(db *sql.DB) *LedgerService {
	currency := "ETB"
	if envCurrency := os.Getenv("SETTLEMENT_CURRENCY"); envCurrency != "" {
		currency = envCurrency
	}
	return &LedgerService{db: db, currency: currency}
}

// FindWalletTx locks and returns the wallet row for an organization.
func (ls *LedgerService) FindWalletTx(tx *sql.Tx, organizationID string, accountType models.AccountType) (*models.FinancialAccount, error) {
	row := tx.QueryRow(`
		SELECT `+accountColumns+`
		FROM financial_accounts
		WHERE organization_id = $1 AND account_type = $2
		FOR UPDATE`, organizationID, accountType)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet lookup failed: %w", err)
	}
	return account, nil
}

// FindPlatformAccountTx locks and returns the platform revenue account, or
// ErrAccountNotFound when it has never been created.
func (ls *LedgerService) FindPlatformAccountTx(tx *sql.Tx) (*models.FinancialAccount, error) {
	row := tx.QueryRow(`
		SELECT ` + accountColumns + `
		FROM financial_accounts
		WHERE account_type = 'PLATFORM_REVENUE' AND organization_id IS NULL
		FOR UPDATE`)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("platform account lookup failed: %w", err)
	}
	return account, nil
}

// EnsurePlatformAccountTx returns the platform revenue account, lazily
// creating it with a zero balance on first use.
func (ls *LedgerService) EnsurePlatformAccountTx(tx *sql.Tx) (*models.FinancialAccount, error) {
	account, err := ls.FindPlatformAccountTx(tx)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	account = &models.FinancialAccount{
		ID:          uuid.NewString(),
		AccountType: models.AccountTypePlatformRevenue,
		Balance:     decimal.Zero,
		Currency:    ls.currency,
		IsActive:    true,
		Version:     1,
		UpdatedAt:   time.Now(),
	}
	_, err = tx.Exec(`
		INSERT INTO financial_accounts (id, organization_id, account_type, balance, currency, is_active, version, updated_at)
		VALUES ($1, NULL, $2, $3, $4, TRUE, $5, $6)`,
		account.ID, account.AccountType, account.Balance, account.Currency, account.Version, account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform account: %w", err)
	}
	return account, nil
}

// DebitTx conditionally debits a locked account. It returns false with no
// mutation when the balance is insufficient - a normal outcome, not an error.
// A zero amount is a successful no-op.
func (ls *LedgerService) DebitTx(tx *sql.Tx, account *models.FinancialAccount, amount decimal.Decimal) (bool, error) {
	if amount.IsZero() {
		return true, nil
	}
	if account.Balance.LessThan(amount) {
		return false, nil
	}
	if err := ls.updateBalanceTx(tx, account, account.Balance.Sub(amount)); err != nil {
		return false, err
	}
	return true, nil
}

// CreditTx credits a locked account. A zero amount is a successful no-op.
func (ls *LedgerService) CreditTx(tx *sql.Tx, account *models.FinancialAccount, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	return ls.updateBalanceTx(tx, account, account.Balance.Add(amount))
}

func (ls *LedgerService) updateBalanceTx(tx *sql.Tx, account *models.FinancialAccount, newBalance decimal.Decimal) error {
	result, err := tx.Exec(`
		UPDATE financial_accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), account.ID, account.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for account %s", account.ID)
	}

	account.Balance = newBalance
	account.Version++
	return nil
}

// GetBalance reads an account balance outside any transaction. Used by the
// read-only validate path and the balance enquiry endpoint.
func (ls *LedgerService) GetBalance(q Querier, organizationID string, accountType models.AccountType) (decimal.Decimal, error) {
	var balance decimal.Decimal
	var err error
	if accountType == models.AccountTypePlatformRevenue {
		err = q.QueryRow(`
			SELECT balance FROM financial_accounts
			WHERE account_type = 'PLATFORM_REVENUE' AND organization_id IS NULL`).Scan(&balance)
	} else {
		err = q.QueryRow(`
			SELECT balance FROM financial_accounts
			WHERE organization_id = $1 AND account_type = $2`, organizationID, accountType).Scan(&balance)
	}
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance lookup failed: %w", err)
	}
	return balance, nil
}

func scanAccount(row rowScanner) (*models.FinancialAccount, error) {
	var a models.FinancialAccount
	err := row.Scan(&a.ID, &a.OrganizationID, &a.AccountType, &a.Balance, &a.Currency, &a.IsActive, &a.Version, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
