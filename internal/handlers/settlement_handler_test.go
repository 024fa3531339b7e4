package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corridorpay/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

const validLoadID = "3f9de7a1-4b6c-4e2d-9a8f-1c5b7d2e0f4a"

func newSettlementRouter(db *sql.DB) *chi.Mux {
	handler := NewSettlementHandler(services.NewSettlementService(db, nil))
	router := chi.NewRouter()
	router.Post("/settlements/{loadId}/deduct", handler.Deduct)
	router.Post("/settlements/{loadId}/refund", handler.Refund)
	router.Get("/settlements/{loadId}/validate", handler.Validate)
	return router
}

func TestSettlementHandler_Deduct(t *testing.T) {
	t.Run("rejects a malformed load id", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		req := httptest.NewRequest(http.MethodPost, "/settlements/not-a-uuid/deduct", nil)
		recorder := httptest.NewRecorder()
		newSettlementRouter(db).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("unknown load returns 404", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM loads WHERE id = \\$1 FOR UPDATE").
			WithArgs(validLoadID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		req := httptest.NewRequest(http.MethodPost, "/settlements/"+validLoadID+"/deduct", nil)
		recorder := httptest.NewRecorder()
		newSettlementRouter(db).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("already settled load still responds 200 with the domain outcome", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		cols := []string{
			"id", "status", "shipper_org_id", "carrier_org_id", "corridor_id",
			"pickup_city", "delivery_city", "actual_trip_km", "estimated_trip_km", "trip_km",
			"shipper_fee_status", "carrier_fee_status", "service_fee_status",
			"shipper_service_fee", "carrier_service_fee", "service_fee_etb",
			"shipper_fee_deducted_at", "carrier_fee_deducted_at", "created_at", "updated_at",
		}
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM loads WHERE id = \\$1 FOR UPDATE").
			WithArgs(validLoadID).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(validLoadID, "DELIVERED", "org-ship", "org-carr", "corr-1",
					"Addis Ababa", "Djibouti", "515", nil, nil,
					"DEDUCTED", "DEDUCTED", "DEDUCTED",
					"2575", "1545", "4120",
					time.Now(), time.Now(), time.Now(), time.Now()))
		mock.ExpectRollback()

		req := httptest.NewRequest(http.MethodPost, "/settlements/"+validLoadID+"/deduct", nil)
		recorder := httptest.NewRecorder()
		newSettlementRouter(db).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)

		var body map[string]any
		assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "already deducted")
	})
}

func TestSettlementHandler_Validate(t *testing.T) {
	t.Run("rejects a malformed carrier organization id", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		req := httptest.NewRequest(http.MethodGet,
			"/settlements/"+validLoadID+"/validate?carrierOrgId=nope", nil)
		recorder := httptest.NewRecorder()
		newSettlementRouter(db).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
