package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corridorpay/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestJournalService_AppendTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	js := NewJournalService(db)

	mock.ExpectBegin()
	tx, _ := db.Begin()

	mock.ExpectExec("INSERT INTO journal_entries").
		WithArgs(sqlmock.AnyArg(), models.TxTypeServiceFeeDeduct, "load-1", sqlmock.AnyArg(),
			"wallet-1", "platform-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry, err := js.AppendTx(tx, models.TxTypeServiceFeeDeduct, "load-1", dec("2575"), "wallet-1", "platform-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.TxTypeServiceFeeDeduct, entry.TransactionType)
	assert.True(t, entry.Amount.Equal(dec("2575")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalService_FindByReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	js := NewJournalService(db)

	cols := []string{"id", "transaction_type", "reference", "amount", "debit_account_id", "credit_account_id", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM journal_entries WHERE reference = \\$1").
		WithArgs("load-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("j-1", "SERVICE_FEE_DEDUCT", "load-1", "2575", "wallet-1", "platform-1", time.Now()).
			AddRow("j-2", "SERVICE_FEE_DEDUCT", "load-1", "1545", "wallet-2", "platform-1", time.Now()))

	entries, err := js.FindByReference("load-1")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, entries[0].Amount.Equal(dec("2575")))
	assert.True(t, entries[1].Amount.Equal(dec("1545")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
