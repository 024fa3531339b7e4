package services

import (
	"github.com/corridorpay/backend/internal/models"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// FeeBreakdown holds the exact per-side fee amounts for one load. All values
// are kept at full precision; rounding happens only at the display boundary.
type FeeBreakdown struct {
	ShipperBase     decimal.Decimal
	CarrierBase     decimal.Decimal
	ShipperDiscount decimal.Decimal
	CarrierDiscount decimal.Decimal
	ShipperFee      decimal.Decimal
	CarrierFee      decimal.Decimal
}

// TotalPlatformFee is the combined commission collected by the platform when
// both sides settle.
func (f FeeBreakdown) TotalPlatformFee() decimal.Decimal {
	return f.ShipperFee.Add(f.CarrierFee)
}

// CalculateServiceFees rates a trip of distanceKm over the given corridor.
// A nil corridor is the fee-exempt case and yields all-zero fees. A corridor
// with a zero carrier rate legitimately charges the carrier side nothing.
func CalculateServiceFees(distanceKm decimal.Decimal, corridor *models.Corridor) FeeBreakdown {
	if corridor == nil {
		return FeeBreakdown{}
	}

	shipperBase := distanceKm.Mul(corridor.ShipperPricePerKm)
	carrierBase := distanceKm.Mul(corridor.CarrierPricePerKm)

	var shipperDiscount, carrierDiscount decimal.Decimal
	if corridor.ShipperPromo && corridor.ShipperPromoPct.Valid {
		shipperDiscount = shipperBase.Mul(corridor.ShipperPromoPct.Decimal).Div(oneHundred)
	}
	if corridor.CarrierPromo && corridor.CarrierPromoPct.Valid {
		carrierDiscount = carrierBase.Mul(corridor.CarrierPromoPct.Decimal).Div(oneHundred)
	}

	return FeeBreakdown{
		ShipperBase:     shipperBase,
		CarrierBase:     carrierBase,
		ShipperDiscount: shipperDiscount,
		CarrierDiscount: carrierDiscount,
		ShipperFee:      shipperBase.Sub(shipperDiscount),
		CarrierFee:      carrierBase.Sub(carrierDiscount),
	}
}

// ResolveDistance walks the load's distance fallback chain, first non-null
// non-zero value wins: actual -> estimated -> planned -> corridor reference.
func ResolveDistance(load *models.Load, corridor *models.Corridor) decimal.Decimal {
	for _, src := range []decimal.NullDecimal{load.ActualTripKm, load.EstimatedTripKm, load.TripKm} {
		if src.Valid && !src.Decimal.IsZero() {
			return src.Decimal
		}
	}
	if corridor != nil {
		return corridor.DistanceKm
	}
	return decimal.Zero
}
