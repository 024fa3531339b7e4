package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corridorpay/backend/internal/models"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPricingService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("corridor by id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM corridors WHERE id = \\$1 AND is_active").
			WithArgs("corr-1").
			WillReturnRows(corridorRow("corr-1", "Addis Ababa", "Djibouti", "500", "ONE_WAY", "5", "3"))

		ps := NewPricingService(nil)
		load := &models.Load{
			CorridorID:   sql.NullString{String: "corr-1", Valid: true},
			ActualTripKm: nullDec("515"),
		}

		resolved, err := ps.Resolve(ctx, db, load)
		assert.NoError(t, err)
		assert.NotNil(t, resolved.Corridor)
		assert.Equal(t, "corr-1", resolved.Corridor.ID)
		assert.True(t, resolved.DistanceKm.Equal(dec("515")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive corridor id falls back to lane lookup", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM corridors WHERE id = \\$1 AND is_active").
			WithArgs("corr-gone").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT (.+) FROM corridors WHERE is_active").
			WithArgs("Addis Ababa", "Djibouti").
			WillReturnRows(corridorRow("corr-2", "Addis Ababa", "Djibouti", "480", "BIDIRECTIONAL", "4", "2"))

		ps := NewPricingService(nil)
		load := &models.Load{
			CorridorID:   sql.NullString{String: "corr-gone", Valid: true},
			PickupCity:   "Addis Ababa",
			DeliveryCity: "Djibouti",
		}

		resolved, err := ps.Resolve(ctx, db, load)
		assert.NoError(t, err)
		assert.NotNil(t, resolved.Corridor)
		assert.Equal(t, "corr-2", resolved.Corridor.ID)
		assert.True(t, resolved.DistanceKm.Equal(dec("480")), "corridor reference distance expected, got %s", resolved.DistanceKm)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bidirectional corridor matches reversed lane", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM corridors WHERE is_active").
			WithArgs("Djibouti", "Addis Ababa").
			WillReturnRows(corridorRow("corr-2", "Addis Ababa", "Djibouti", "480", "BIDIRECTIONAL", "4", "2"))

		ps := NewPricingService(nil)
		load := &models.Load{PickupCity: "Djibouti", DeliveryCity: "Addis Ababa"}

		resolved, err := ps.Resolve(ctx, db, load)
		assert.NoError(t, err)
		assert.NotNil(t, resolved.Corridor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one-way corridor rejects reversed lane", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM corridors WHERE is_active").
			WithArgs("Djibouti", "Addis Ababa").
			WillReturnRows(corridorRow("corr-3", "Addis Ababa", "Djibouti", "480", "ONE_WAY", "4", "2"))

		ps := NewPricingService(nil)
		load := &models.Load{PickupCity: "Djibouti", DeliveryCity: "Addis Ababa"}

		resolved, err := ps.Resolve(ctx, db, load)
		assert.NoError(t, err)
		assert.Nil(t, resolved.Corridor)
		assert.True(t, resolved.DistanceKm.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no corridor resolves to fee-exempt", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM corridors WHERE is_active").
			WithArgs("Mekelle", "Hawassa").
			WillReturnRows(sqlmock.NewRows(corridorCols))

		ps := NewPricingService(nil)
		load := &models.Load{
			PickupCity:   "Mekelle",
			DeliveryCity: "Hawassa",
			TripKm:       nullDec("700"),
		}

		resolved, err := ps.Resolve(ctx, db, load)
		assert.NoError(t, err)
		assert.Nil(t, resolved.Corridor)
		assert.True(t, resolved.DistanceKm.Equal(dec("700")), "trip distance survives without a corridor")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corridor served from redis cache", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		corridor := models.Corridor{
			ID:                "corr-1",
			Origin:            "Addis Ababa",
			Destination:       "Djibouti",
			DistanceKm:        dec("500"),
			Direction:         models.DirectionOneWay,
			ShipperPricePerKm: dec("5"),
			CarrierPricePerKm: dec("3"),
			IsActive:          true,
		}
		data, err := json.Marshal(&corridor)
		assert.NoError(t, err)

		rdb, rmock := redismock.NewClientMock()
		rmock.ExpectGet("corridor:id:corr-1").SetVal(string(data))

		ps := NewPricingService(rdb)
		load := &models.Load{
			CorridorID:   sql.NullString{String: "corr-1", Valid: true},
			ActualTripKm: nullDec("515"),
		}

		resolved, err := ps.Resolve(ctx, db, load)
		assert.NoError(t, err)
		assert.NotNil(t, resolved.Corridor)
		assert.True(t, resolved.Corridor.ShipperPricePerKm.Equal(decimal.NewFromInt(5)))
		// No database round trip on a cache hit.
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, rmock.ExpectationsWereMet())
	})
}
