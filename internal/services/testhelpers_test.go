package services

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var corridorCols = []string{
	"id", "origin", "destination", "distance_km", "direction",
	"shipper_price_per_km", "carrier_price_per_km",
	"shipper_promo", "shipper_promo_pct", "carrier_promo", "carrier_promo_pct",
	"is_active", "created_at", "updated_at",
}

var loadCols = []string{
	"id", "status", "shipper_org_id", "carrier_org_id", "corridor_id",
	"pickup_city", "delivery_city", "actual_trip_km", "estimated_trip_km", "trip_km",
	"shipper_fee_status", "carrier_fee_status", "service_fee_status",
	"shipper_service_fee", "carrier_service_fee", "service_fee_etb",
	"shipper_fee_deducted_at", "carrier_fee_deducted_at", "created_at", "updated_at",
}

var accountCols = []string{
	"id", "organization_id", "account_type", "balance", "currency", "is_active", "version", "updated_at",
}

// corridorRow builds a single active corridor row with the given lane, rates
// and direction. Promo columns are left unset.
func corridorRow(id, origin, destination, distanceKm, direction, shipperRate, carrierRate string) *sqlmock.Rows {
	return sqlmock.NewRows(corridorCols).
		AddRow(id, origin, destination, distanceKm, direction,
			shipperRate, carrierRate,
			false, nil, false, nil,
			true, time.Now(), time.Now())
}

// accountRow builds a single wallet or platform account row.
func accountRow(id string, orgID any, accountType, balance string, version int) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).
		AddRow(id, orgID, accountType, balance, "ETB", true, version, time.Now())
}
