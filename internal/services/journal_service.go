package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/corridorpay/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const journalColumns = `id, transaction_type, reference, amount, debit_account_id, credit_account_id, created_at`

// JournalService is the append-only audit log of money movements. Entries are
// written inside the orchestrator's transaction and are never updated or
// deleted.
type JournalService struct {
	db *sql.DB
}

func NewJournalService(db *sql.DB) *JournalService {
	return &JournalService{db: db}
}

// AppendTx writes one journal entry. The id and timestamp are assigned here.
func (js *JournalService) AppendTx(tx *sql.Tx, txType models.TransactionType, reference string, amount decimal.Decimal, debitAccountID, creditAccountID string) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{
		ID:              uuid.NewString(),
		TransactionType: txType,
		Reference:       reference,
		Amount:          amount,
		DebitAccountID:  sql.NullString{String: debitAccountID, Valid: debitAccountID != ""},
		CreditAccountID: sql.NullString{String: creditAccountID, Valid: creditAccountID != ""},
		CreatedAt:       time.Now(),
	}

	_, err := tx.Exec(`
		INSERT INTO journal_entries (id, transaction_type, reference, amount, debit_account_id, credit_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.TransactionType, entry.Reference, entry.Amount,
		entry.DebitAccountID, entry.CreditAccountID, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append journal entry: %w", err)
	}
	return entry, nil
}

// FindByReference returns all journal entries recorded for a load, oldest
// first. Used for refund lookups and reconciliation.
func (js *JournalService) FindByReference(reference string) ([]models.JournalEntry, error) {
	rows, err := js.db.Query(`
		SELECT `+journalColumns+`
		FROM journal_entries
		WHERE reference = $1
		ORDER BY created_at`, reference)
	if err != nil {
		return nil, fmt.Errorf("journal lookup failed: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.TransactionType, &e.Reference, &e.Amount,
			&e.DebitAccountID, &e.CreditAccountID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal lookup failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal lookup failed: %w", err)
	}
	return entries, nil
}
