package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/corridorpay/backend/internal/audit"
	"github.com/corridorpay/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// Domain outcomes. These surface as Success=false in result structs, never as
// transport errors; infrastructure failures propagate as wrapped errors and
// roll back the whole transaction.
var (
	ErrLoadNotFound                = errors.New("load not found")
	ErrAlreadyDeducted             = errors.New("service fee already deducted")
	ErrNotRefundable               = errors.New("load is not in a refundable state")
	ErrAccountsNotFound            = errors.New("accounts not found")
	ErrInsufficientPlatformBalance = errors.New("insufficient platform balance")
)

// SettlementRetryQueue is the Redis list holding load ids whose deduction left
// at least one side unpaid; the automation job drains it.
const SettlementRetryQueue = "settlement:retry"

const loadColumns = `id, status, shipper_org_id, carrier_org_id, corridor_id,
		pickup_city, delivery_city, actual_trip_km, estimated_trip_km, trip_km,
		shipper_fee_status, carrier_fee_status, service_fee_status,
		shipper_service_fee, carrier_service_fee, service_fee_etb,
		shipper_fee_deducted_at, carrier_fee_deducted_at, created_at, updated_at`

// SideOutcome reports what happened to one party's wallet during a deduction.
type SideOutcome struct {
	WalletDeducted bool            `json:"walletDeducted"`
	Discount       decimal.Decimal `json:"discount"`
}

// DeductDetails carries the per-side outcome so callers know which side
// actually moved money.
type DeductDetails struct {
	Shipper SideOutcome `json:"shipper"`
	Carrier SideOutcome `json:"carrier"`
}

// DeductResult is the outcome of a Deduct call.
type DeductResult struct {
	Success          bool            `json:"success"`
	Error            string          `json:"error,omitempty"`
	ShipperFee       decimal.Decimal `json:"shipperFee"`
	CarrierFee       decimal.Decimal `json:"carrierFee"`
	TotalPlatformFee decimal.Decimal `json:"totalPlatformFee"`
	PlatformRevenue  decimal.Decimal `json:"platformRevenue"`
	Details          *DeductDetails  `json:"details,omitempty"`
}

// RefundResult is the outcome of a Refund call.
type RefundResult struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	ServiceFee decimal.Decimal `json:"serviceFee"`
}

// ValidateResult is the outcome of the read-only pre-trip affordability check.
type ValidateResult struct {
	Valid      bool            `json:"valid"`
	Errors     []string        `json:"errors"`
	ShipperFee decimal.Decimal `json:"shipperFee"`
	CarrierFee decimal.Decimal `json:"carrierFee"`
}

// SettlementService orchestrates service-fee settlement for loads: it prices
// the trip, moves money between the party wallets and the platform revenue
// account, updates the load's fee-status fields and writes journal entries.
// Deduct and Refund each run as one all-or-nothing database transaction with
// the load row locked, so concurrent calls for the same load serialize and the
// idempotency guard holds.
type SettlementService struct {
	db      *sql.DB
	redis   *redis.Client
	pricing *PricingService
	ledger  *LedgerService
	journal *JournalService
	audit   *audit.Logger
}

func NewSettlementService(db *sql.DB, redisClient *redis.Client) *SettlementService {
	return &SettlementService{
		db:      db,
		redis:   redisClient,
		pricing: NewPricingService(redisClient),
		ledger:  NewLedgerService(db),
		journal: NewJournalService(db),
		audit:   audit.NewLogger(),
	}
}

// Deduct settles the service fee for a delivered load. Each side's wallet is
// debited independently: one party being short on funds does not block
// collecting the other side's fee, it only leaves that side PENDING for a
// later retry. A load with no applicable corridor is waived, not failed.
func (ss *SettlementService) Deduct(ctx context.Context, loadID string) (*DeductResult, error) {
	tx, err := ss.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	load, err := ss.lockLoadTx(tx, loadID)
	if err != nil {
		return nil, err
	}

	shipperPending := load.ShipperFeeStatus == models.FeeStatusPending
	carrierPending := load.CarrierFeeStatus == models.FeeStatusPending
	if !shipperPending && !carrierPending {
		return &DeductResult{Success: false, Error: ErrAlreadyDeducted.Error()}, nil
	}

	resolved, err := ss.pricing.Resolve(ctx, tx, load)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if resolved.Corridor == nil {
		// Fee-exempt trip: no corridor by id and no city match.
		if shipperPending {
			load.ShipperFeeStatus = models.FeeStatusWaived
			load.ShipperServiceFee = decimal.NewNullDecimal(decimal.Zero)
		}
		if carrierPending {
			load.CarrierFeeStatus = models.FeeStatusWaived
			load.CarrierServiceFee = decimal.NewNullDecimal(decimal.Zero)
		}
		load.ServiceFeeStatus = combinedFeeStatus(load.ShipperFeeStatus, load.CarrierFeeStatus)
		if !load.ServiceFeeEtb.Valid {
			load.ServiceFeeEtb = decimal.NewNullDecimal(decimal.Zero)
		}
		if err := ss.updateLoadFeesTx(tx, load, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		log.Printf("[SETTLEMENT] Load %s has no pricing corridor, service fee waived", load.ID)
		return &DeductResult{Success: true, Details: &DeductDetails{}}, nil
	}

	fees := CalculateServiceFees(resolved.DistanceKm, resolved.Corridor)

	// The platform account must exist before any credit; its absence never
	// fails the operation. Locking it before the wallets also fixes the
	// account lock order shared with Refund.
	platform, err := ss.ledger.EnsurePlatformAccountTx(tx)
	if err != nil {
		return nil, err
	}

	details := &DeductDetails{
		Shipper: SideOutcome{Discount: fees.ShipperDiscount},
		Carrier: SideOutcome{Discount: fees.CarrierDiscount},
	}
	deductedTotal := decimal.Zero

	type movement struct {
		side     string
		walletID string
		amount   decimal.Decimal
	}
	var movements []movement
	var skipped []movement

	if shipperPending {
		walletID, deducted, err := ss.deductSideTx(tx, load.ID, load.ShipperOrgID,
			models.AccountTypeShipperWallet, fees.ShipperFee, platform)
		if err != nil {
			return nil, err
		}
		if deducted {
			details.Shipper.WalletDeducted = true
			load.ShipperFeeStatus = models.FeeStatusDeducted
			load.ShipperServiceFee = decimal.NewNullDecimal(fees.ShipperFee)
			load.ShipperFeeDeductedAt = &now
			deductedTotal = deductedTotal.Add(fees.ShipperFee)
			movements = append(movements, movement{"shipper", walletID, fees.ShipperFee})
		} else {
			skipped = append(skipped, movement{side: "shipper"})
		}
	}

	if carrierPending {
		carrierOrgID := ""
		if load.CarrierOrgID.Valid {
			carrierOrgID = load.CarrierOrgID.String
		}
		walletID, deducted, err := ss.deductSideTx(tx, load.ID, carrierOrgID,
			models.AccountTypeCarrierWallet, fees.CarrierFee, platform)
		if err != nil {
			return nil, err
		}
		if deducted {
			details.Carrier.WalletDeducted = true
			load.CarrierFeeStatus = models.FeeStatusDeducted
			load.CarrierServiceFee = decimal.NewNullDecimal(fees.CarrierFee)
			load.CarrierFeeDeductedAt = &now
			deductedTotal = deductedTotal.Add(fees.CarrierFee)
			movements = append(movements, movement{"carrier", walletID, fees.CarrierFee})
		} else {
			skipped = append(skipped, movement{side: "carrier"})
		}
	}

	// Legacy combined fields stay in sync with what actually moved.
	newEtb := deductedTotal
	if load.ServiceFeeEtb.Valid {
		newEtb = load.ServiceFeeEtb.Decimal.Add(deductedTotal)
	}
	load.ServiceFeeEtb = decimal.NewNullDecimal(newEtb)
	load.ServiceFeeStatus = combinedFeeStatus(load.ShipperFeeStatus, load.CarrierFeeStatus)

	if err := ss.updateLoadFeesTx(tx, load, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, m := range movements {
		ss.audit.LogDeduction(load.ID, m.side, m.walletID, m.amount)
	}
	for _, m := range skipped {
		ss.audit.LogSkipped(load.ID, m.side, "wallet not debited")
	}
	if load.ShipperFeeStatus == models.FeeStatusPending || load.CarrierFeeStatus == models.FeeStatusPending {
		ss.enqueueRetry(load.ID)
	}

	return &DeductResult{
		Success:          true,
		ShipperFee:       fees.ShipperFee,
		CarrierFee:       fees.CarrierFee,
		TotalPlatformFee: fees.TotalPlatformFee(),
		PlatformRevenue:  platform.Balance,
		Details:          details,
	}, nil
}

// deductSideTx attempts one side's conditional debit and the matching platform
// credit. Insufficient balance and a missing wallet are normal outcomes that
// leave the side untouched; only storage failures return an error.
func (ss *SettlementService) deductSideTx(tx *sql.Tx, loadID, orgID string, accountType models.AccountType, fee decimal.Decimal, platform *models.FinancialAccount) (string, bool, error) {
	if orgID == "" {
		return "", false, nil
	}

	wallet, err := ss.ledger.FindWalletTx(tx, orgID, accountType)
	if errors.Is(err, ErrAccountNotFound) {
		log.Printf("[SETTLEMENT] Load %s: no %s for organization %s, side left pending", loadID, accountType, orgID)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	ok, err := ss.ledger.DebitTx(tx, wallet, fee)
	if err != nil {
		return "", false, err
	}
	if !ok {
		log.Printf("[SETTLEMENT] Load %s: insufficient balance on %s %s, side left pending", loadID, accountType, wallet.ID)
		return wallet.ID, false, nil
	}

	if err := ss.ledger.CreditTx(tx, platform, fee); err != nil {
		return "", false, err
	}
	if fee.IsPositive() {
		if _, err := ss.journal.AppendTx(tx, models.TxTypeServiceFeeDeduct, loadID, fee, wallet.ID, platform.ID); err != nil {
			return "", false, err
		}
	}
	return wallet.ID, true, nil
}

// Refund returns the shipper's service fee from the platform revenue account.
// The load must be in a DEDUCTED (or WAIVED, zero-amount) state. Unlike
// Deduct, there is no partial-success mode: both ledger legs must be locatable
// or nothing moves.
func (ss *SettlementService) Refund(ctx context.Context, loadID string) (*RefundResult, error) {
	tx, err := ss.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	load, err := ss.lockLoadTx(tx, loadID)
	if err != nil {
		return nil, err
	}

	if load.ServiceFeeStatus != models.FeeStatusDeducted && load.ServiceFeeStatus != models.FeeStatusWaived {
		return &RefundResult{Success: false, Error: ErrNotRefundable.Error()}, nil
	}

	amount := decimal.Zero
	switch {
	case load.ShipperServiceFee.Valid:
		amount = load.ShipperServiceFee.Decimal
	case load.ServiceFeeEtb.Valid:
		// Loads predating the per-side fee columns only ever carried the
		// combined legacy amount, and only the shipper side has this
		// fallback. Deliberately asymmetric; flagged for product review.
		amount = load.ServiceFeeEtb.Decimal
	}

	now := time.Now()

	if amount.IsZero() {
		// Refunding nothing is still a real state transition.
		load.ShipperFeeStatus = models.FeeStatusRefunded
		if load.CarrierFeeStatus == models.FeeStatusWaived {
			load.CarrierFeeStatus = models.FeeStatusRefunded
		}
		load.ServiceFeeStatus = models.FeeStatusRefunded
		if err := ss.updateLoadFeesTx(tx, load, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &RefundResult{Success: true, ServiceFee: decimal.Zero}, nil
	}

	// Lock accounts in the same order as Deduct (platform before wallets) to
	// prevent deadlocks between concurrent settlements and refunds.
	platform, err := ss.ledger.FindPlatformAccountTx(tx)
	if errors.Is(err, ErrAccountNotFound) {
		return &RefundResult{Success: false, Error: ErrAccountsNotFound.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	wallet, err := ss.ledger.FindWalletTx(tx, load.ShipperOrgID, models.AccountTypeShipperWallet)
	if errors.Is(err, ErrAccountNotFound) {
		return &RefundResult{Success: false, Error: ErrAccountsNotFound.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	ok, err := ss.ledger.DebitTx(tx, platform, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RefundResult{Success: false, Error: ErrInsufficientPlatformBalance.Error()}, nil
	}
	if err := ss.ledger.CreditTx(tx, wallet, amount); err != nil {
		return nil, err
	}
	if _, err := ss.journal.AppendTx(tx, models.TxTypeServiceFeeRefund, load.ID, amount, platform.ID, wallet.ID); err != nil {
		return nil, err
	}

	load.ShipperFeeStatus = models.FeeStatusRefunded
	load.ServiceFeeStatus = models.FeeStatusRefunded
	if err := ss.updateLoadFeesTx(tx, load, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ss.audit.LogRefund(load.ID, wallet.ID, amount)
	return &RefundResult{Success: true, ServiceFee: amount}, nil
}

// Validate is the read-only pre-trip affordability check: same pricing and
// fee calculation as Deduct, but no balance or status ever changes. The
// carrier organization comes from the caller because validation runs before
// the carrier is assigned to the load.
func (ss *SettlementService) Validate(ctx context.Context, loadID, carrierOrgID string) (*ValidateResult, error) {
	load, err := ss.fetchLoad(loadID)
	if err != nil {
		return nil, err
	}

	resolved, err := ss.pricing.Resolve(ctx, ss.db, load)
	if err != nil {
		return nil, err
	}

	result := &ValidateResult{Errors: []string{}}
	if resolved.Corridor == nil {
		result.Valid = true
		return result, nil
	}

	fees := CalculateServiceFees(resolved.DistanceKm, resolved.Corridor)
	result.ShipperFee = fees.ShipperFee
	result.CarrierFee = fees.CarrierFee

	shipperBalance, err := ss.ledger.GetBalance(ss.db, load.ShipperOrgID, models.AccountTypeShipperWallet)
	if errors.Is(err, ErrAccountNotFound) {
		if fees.ShipperFee.IsPositive() {
			result.Errors = append(result.Errors, "shipper wallet not found")
		}
	} else if err != nil {
		return nil, err
	} else if shipperBalance.LessThan(fees.ShipperFee) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("insufficient shipper wallet balance: have %s, need %s", shipperBalance, fees.ShipperFee))
	}

	if carrierOrgID == "" && load.CarrierOrgID.Valid {
		carrierOrgID = load.CarrierOrgID.String
	}
	if carrierOrgID == "" {
		if fees.CarrierFee.IsPositive() {
			result.Errors = append(result.Errors, "carrier wallet not found")
		}
	} else {
		carrierBalance, err := ss.ledger.GetBalance(ss.db, carrierOrgID, models.AccountTypeCarrierWallet)
		if errors.Is(err, ErrAccountNotFound) {
			if fees.CarrierFee.IsPositive() {
				result.Errors = append(result.Errors, "carrier wallet not found")
			}
		} else if err != nil {
			return nil, err
		} else if carrierBalance.LessThan(fees.CarrierFee) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("insufficient carrier wallet balance: have %s, need %s", carrierBalance, fees.CarrierFee))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (ss *SettlementService) lockLoadTx(tx *sql.Tx, loadID string) (*models.Load, error) {
	row := tx.QueryRow(`SELECT `+loadColumns+` FROM loads WHERE id = $1 FOR UPDATE`, loadID)
	return scanLoadRow(row, loadID)
}

func (ss *SettlementService) fetchLoad(loadID string) (*models.Load, error) {
	row := ss.db.QueryRow(`SELECT `+loadColumns+` FROM loads WHERE id = $1`, loadID)
	return scanLoadRow(row, loadID)
}

func scanLoadRow(row rowScanner, loadID string) (*models.Load, error) {
	var l models.Load
	err := row.Scan(
		&l.ID, &l.Status, &l.ShipperOrgID, &l.CarrierOrgID, &l.CorridorID,
		&l.PickupCity, &l.DeliveryCity, &l.ActualTripKm, &l.EstimatedTripKm, &l.TripKm,
		&l.ShipperFeeStatus, &l.CarrierFeeStatus, &l.ServiceFeeStatus,
		&l.ShipperServiceFee, &l.CarrierServiceFee, &l.ServiceFeeEtb,
		&l.ShipperFeeDeductedAt, &l.CarrierFeeDeductedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrLoadNotFound, loadID)
	}
	if err != nil {
		return nil, fmt.Errorf("load lookup failed: %w", err)
	}
	return &l, nil
}

func (ss *SettlementService) updateLoadFeesTx(tx *sql.Tx, load *models.Load, now time.Time) error {
	_, err := tx.Exec(`
		UPDATE loads
		SET shipper_fee_status = $1, carrier_fee_status = $2, service_fee_status = $3,
		    shipper_service_fee = $4, carrier_service_fee = $5, service_fee_etb = $6,
		    shipper_fee_deducted_at = $7, carrier_fee_deducted_at = $8, updated_at = $9
		WHERE id = $10`,
		load.ShipperFeeStatus, load.CarrierFeeStatus, load.ServiceFeeStatus,
		load.ShipperServiceFee, load.CarrierServiceFee, load.ServiceFeeEtb,
		load.ShipperFeeDeductedAt, load.CarrierFeeDeductedAt, now, load.ID)
	if err != nil {
		return fmt.Errorf("failed to update load fee status: %w", err)
	}
	return nil
}

func (ss *SettlementService) enqueueRetry(loadID string) {
	if ss.redis == nil {
		return
	}
	// Post-commit bookkeeping: runs on its own context so a canceled request
	// cannot drop the enqueue.
	if err := ss.redis.RPush(context.Background(), SettlementRetryQueue, loadID).Err(); err != nil {
		log.Printf("[SETTLEMENT] Failed to queue load %s for settlement retry: %v", loadID, err)
	}
}

// combinedFeeStatus mirrors the legacy single status field: the pair's worse
// state wins, DEDUCTED once at least one side collected and both sides
// reached a terminal decision.
func combinedFeeStatus(shipper, carrier models.FeeStatus) models.FeeStatus {
	switch {
	case shipper == models.FeeStatusRefunded || carrier == models.FeeStatusRefunded:
		return models.FeeStatusRefunded
	case shipper == models.FeeStatusWaived && carrier == models.FeeStatusWaived:
		return models.FeeStatusWaived
	case shipper.Terminal() && carrier.Terminal():
		return models.FeeStatusDeducted
	default:
		return models.FeeStatusPending
	}
}
