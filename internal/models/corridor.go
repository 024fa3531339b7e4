package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CorridorDirection controls how a corridor's origin/destination pair is matched
// against a load's pickup and delivery cities.
type CorridorDirection string

const (
	DirectionOneWay        CorridorDirection = "ONE_WAY"
	DirectionRoundTrip     CorridorDirection = "ROUND_TRIP"
	DirectionBidirectional CorridorDirection = "BIDIRECTIONAL"
)

// Corridor is a priced freight lane between two cities. Corridors are managed
// by administrators and are read-only inside the settlement engine.
type Corridor struct {
	ID                string              `json:"id" db:"id"`
	Origin            string              `json:"origin" db:"origin"`
	Destination       string              `json:"destination" db:"destination"`
	DistanceKm        decimal.Decimal     `json:"distance_km" db:"distance_km"`
	Direction         CorridorDirection   `json:"direction" db:"direction"`
	ShipperPricePerKm decimal.Decimal     `json:"shipper_price_per_km" db:"shipper_price_per_km"`
	CarrierPricePerKm decimal.Decimal     `json:"carrier_price_per_km" db:"carrier_price_per_km"`
	ShipperPromo      bool                `json:"shipper_promo" db:"shipper_promo"`
	ShipperPromoPct   decimal.NullDecimal `json:"shipper_promo_pct" db:"shipper_promo_pct"` // percent, 0-100
	CarrierPromo      bool                `json:"carrier_promo" db:"carrier_promo"`
	CarrierPromoPct   decimal.NullDecimal `json:"carrier_promo_pct" db:"carrier_promo_pct"`
	IsActive          bool                `json:"is_active" db:"is_active"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// Matches reports whether this corridor prices a trip from pickup to delivery.
// Round-trip and bidirectional corridors match either orientation; a one-way
// corridor matches only in its stated order. City names compare exactly.
func (c *Corridor) Matches(pickupCity, deliveryCity string) bool {
	if c.Origin == pickupCity && c.Destination == deliveryCity {
		return true
	}
	if c.Direction == DirectionOneWay {
		return false
	}
	return c.Origin == deliveryCity && c.Destination == pickupCity
}
