package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/corridorpay/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const corridorCacheTTL = 5 * time.Minute

const corridorColumns = `id, origin, destination, distance_km, direction,
		shipper_price_per_km, carrier_price_per_km,
		shipper_promo, shipper_promo_pct, carrier_promo, carrier_promo_pct,
		is_active, created_at, updated_at`

// Querier is satisfied by both *sql.DB and *sql.Tx, so pricing lookups can run
// standalone (validate) or inside the orchestrator's transaction (deduct).
type Querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// ResolvedPricing is the outcome of corridor and distance resolution for one
// load. A nil Corridor means the trip is fee-exempt (waived), not an error.
type ResolvedPricing struct {
	Corridor   *models.Corridor
	DistanceKm decimal.Decimal
}

// PricingService locates the pricing corridor applicable to a load and
// resolves its billable distance. Corridors are admin-managed reference data,
// so lookups go through a short-lived Redis cache when one is configured.
type PricingService struct {
	redis *redis.Client
}

func NewPricingService(redisClient *redis.Client) *PricingService {
	return &PricingService{redis: redisClient}
}

// Resolve finds the corridor for a load: by corridor id when set and active,
// otherwise by exact (pickup, delivery) city match against active corridors.
// No match resolves to the fee-exempt path with distance from the trip fields.
func (ps *PricingService) Resolve(ctx context.Context, q Querier, load *models.Load) (*ResolvedPricing, error) {
	var corridor *models.Corridor
	var err error

	if load.CorridorID.Valid && load.CorridorID.String != "" {
		corridor, err = ps.corridorByID(ctx, q, load.CorridorID.String)
		if err != nil {
			return nil, err
		}
	}

	if corridor == nil {
		corridor, err = ps.corridorByLane(ctx, q, load.PickupCity, load.DeliveryCity)
		if err != nil {
			return nil, err
		}
	}

	return &ResolvedPricing{
		Corridor:   corridor,
		DistanceKm: ResolveDistance(load, corridor),
	}, nil
}

func (ps *PricingService) corridorByID(ctx context.Context, q Querier, corridorID string) (*models.Corridor, error) {
	// Only active corridors are ever cached, so a hit needs no re-check.
	cacheKey := "corridor:id:" + corridorID
	if cached := ps.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	row := q.QueryRow(`SELECT `+corridorColumns+` FROM corridors WHERE id = $1 AND is_active = TRUE`, corridorID)
	corridor, err := scanCorridor(row)
	if err == sql.ErrNoRows {
		// Inactive or deleted corridor falls through to the lane lookup.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("corridor lookup failed: %w", err)
	}

	ps.cacheSet(ctx, cacheKey, corridor)
	return corridor, nil
}

func (ps *PricingService) corridorByLane(ctx context.Context, q Querier, pickupCity, deliveryCity string) (*models.Corridor, error) {
	if pickupCity == "" || deliveryCity == "" {
		return nil, nil
	}

	// Cached only after passing the direction match for this exact lane.
	cacheKey := "corridor:lane:" + pickupCity + "|" + deliveryCity
	if cached := ps.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	rows, err := q.Query(`SELECT `+corridorColumns+` FROM corridors
		WHERE is_active = TRUE
		  AND ((origin = $1 AND destination = $2) OR (origin = $2 AND destination = $1))
		ORDER BY created_at`, pickupCity, deliveryCity)
	if err != nil {
		return nil, fmt.Errorf("corridor lane lookup failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		corridor, err := scanCorridor(rows)
		if err != nil {
			return nil, fmt.Errorf("corridor lane lookup failed: %w", err)
		}
		// Direction still has to be honored: a one-way corridor stored in the
		// reverse orientation is not a match.
		if corridor.Matches(pickupCity, deliveryCity) {
			ps.cacheSet(ctx, cacheKey, corridor)
			return corridor, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corridor lane lookup failed: %w", err)
	}

	return nil, nil
}

func (ps *PricingService) cacheGet(ctx context.Context, key string) *models.Corridor {
	if ps.redis == nil {
		return nil
	}
	data, err := ps.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var corridor models.Corridor
	if err := json.Unmarshal(data, &corridor); err != nil {
		return nil
	}
	return &corridor
}

func (ps *PricingService) cacheSet(ctx context.Context, key string, corridor *models.Corridor) {
	if ps.redis == nil {
		return
	}
	data, err := json.Marshal(corridor)
	if err != nil {
		return
	}
	if err := ps.redis.Set(ctx, key, data, corridorCacheTTL).Err(); err != nil {
		log.Printf("[PRICING] Failed to cache corridor %s: %v", corridor.ID, err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCorridor(row rowScanner) (*models.Corridor, error) {
	var c models.Corridor
	err := row.Scan(
		&c.ID, &c.Origin, &c.Destination, &c.DistanceKm, &c.Direction,
		&c.ShipperPricePerKm, &c.CarrierPricePerKm,
		&c.ShipperPromo, &c.ShipperPromoPct, &c.CarrierPromo, &c.CarrierPromoPct,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
