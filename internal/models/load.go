package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus tracks the service-fee lifecycle of one side of a load.
// Legal transitions: PENDING -> (WAIVED | DEDUCTED) -> REFUNDED.
type FeeStatus string

const (
	FeeStatusPending  FeeStatus = "PENDING"
	FeeStatusReserved FeeStatus = "RESERVED"
	FeeStatusDeducted FeeStatus = "DEDUCTED"
	FeeStatusWaived   FeeStatus = "WAIVED"
	FeeStatusRefunded FeeStatus = "REFUNDED"
)

// Terminal reports whether the status can no longer accept a deduction.
func (s FeeStatus) Terminal() bool {
	return s == FeeStatusDeducted || s == FeeStatusWaived || s == FeeStatusRefunded
}

// Load carries the billing-relevant subset of a shipment. Distance fields form
// a fallback chain: actual_trip_km -> estimated_trip_km -> trip_km -> the
// corridor's reference distance.
type Load struct {
	ID                   string              `json:"id" db:"id"`
	Status               string              `json:"status" db:"status"` // trip lifecycle, e.g. DELIVERED
	ShipperOrgID         string              `json:"shipper_org_id" db:"shipper_org_id"`
	CarrierOrgID         sql.NullString      `json:"carrier_org_id" db:"carrier_org_id"`
	CorridorID           sql.NullString      `json:"corridor_id" db:"corridor_id"`
	PickupCity           string              `json:"pickup_city" db:"pickup_city"`
	DeliveryCity         string              `json:"delivery_city" db:"delivery_city"`
	ActualTripKm         decimal.NullDecimal `json:"actual_trip_km" db:"actual_trip_km"`
	EstimatedTripKm      decimal.NullDecimal `json:"estimated_trip_km" db:"estimated_trip_km"`
	TripKm               decimal.NullDecimal `json:"trip_km" db:"trip_km"`
	ShipperFeeStatus     FeeStatus           `json:"shipper_fee_status" db:"shipper_fee_status"`
	CarrierFeeStatus     FeeStatus           `json:"carrier_fee_status" db:"carrier_fee_status"`
	ServiceFeeStatus     FeeStatus           `json:"service_fee_status" db:"service_fee_status"`
	ShipperServiceFee    decimal.NullDecimal `json:"shipper_service_fee" db:"shipper_service_fee"`
	CarrierServiceFee    decimal.NullDecimal `json:"carrier_service_fee" db:"carrier_service_fee"`
	ServiceFeeEtb        decimal.NullDecimal `json:"service_fee_etb" db:"service_fee_etb"` // legacy combined fee
	ShipperFeeDeductedAt *time.Time          `json:"shipper_fee_deducted_at" db:"shipper_fee_deducted_at"`
	CarrierFeeDeductedAt *time.Time          `json:"carrier_fee_deducted_at" db:"carrier_fee_deducted_at"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}
