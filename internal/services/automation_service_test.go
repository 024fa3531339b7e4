package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestAutomationService_ListPendingLoadIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	as := NewAutomationService(db, nil, NewSettlementService(db, nil))

	t.Run("returns unsettled delivered loads oldest first", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM loads WHERE status = 'DELIVERED'").
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow("load-1").
				AddRow("load-2"))

		loadIDs, err := as.ListPendingLoadIDs()
		assert.NoError(t, err)
		assert.Equal(t, []string{"load-1", "load-2"}, loadIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty scan is not an error", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM loads WHERE status = 'DELIVERED'").
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		loadIDs, err := as.ListPendingLoadIDs()
		assert.NoError(t, err)
		assert.Empty(t, loadIDs)
	})
}

func TestAutomationService_RunPendingSettlements(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	as := NewAutomationService(db, nil, NewSettlementService(db, nil))

	// One already-settled load in the scan: the batch pass must survive the
	// orchestrator reporting a non-success outcome.
	mock.ExpectQuery("SELECT id FROM loads WHERE status = 'DELIVERED'").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("load-1"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM loads WHERE id = \\$1 FOR UPDATE").
		WithArgs("load-1").
		WillReturnRows(settledLoadRow("2575", "1545", "4120"))
	mock.ExpectRollback()

	as.RunPendingSettlements()
	assert.NoError(t, mock.ExpectationsWereMet())
}
