package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
)

// AutomationService is the periodic settlement batch job. It drains the Redis
// retry queue and scans delivered loads that still have a PENDING side,
// re-invoking Deduct for each. Re-invocation is safe: the orchestrator's
// idempotency guard and per-side processing make repeated calls converge.
type AutomationService struct {
	db         *sql.DB
	redis      *redis.Client
	settlement *SettlementService
	cron       *cron.Cron
	schedule   string
	batchSize  int
}

func NewAutomationService(db *sql.DB, redisClient *redis.Client, settlement *SettlementService) *AutomationService {
	schedule := "@every 10m"
	if envSchedule := os.Getenv("SETTLEMENT_RETRY_SCHEDULE"); envSchedule != "" {
		schedule = envSchedule
	}
	return &AutomationService{
		db:         db,
		redis:      redisClient,
		settlement: settlement,
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		schedule:   schedule,
		batchSize:  50,
	}
}

// Start registers and starts the cron job.
func (as *AutomationService) Start() error {
	if _, err := as.cron.AddFunc(as.schedule, as.RunPendingSettlements); err != nil {
		return fmt.Errorf("failed to schedule settlement job: %w", err)
	}
	as.cron.Start()
	log.Printf("[AUTOMATION] Settlement job scheduled: %s", as.schedule)
	return nil
}

// Stop drains running jobs and stops the scheduler.
func (as *AutomationService) Stop() {
	ctx := as.cron.Stop()
	<-ctx.Done()
}

// RunPendingSettlements executes one batch pass.
func (as *AutomationService) RunPendingSettlements() {
	ctx := context.Background()
	seen := make(map[string]bool)

	// Retry queue first: loads whose last deduction left a side unpaid.
	if as.redis != nil {
		for i := 0; i < as.batchSize; i++ {
			loadID, err := as.redis.LPop(ctx, SettlementRetryQueue).Result()
			if err == redis.Nil {
				break
			}
			if err != nil {
				log.Printf("[AUTOMATION] Failed to pop settlement retry queue: %v", err)
				break
			}
			if seen[loadID] {
				continue
			}
			seen[loadID] = true
			as.deductOne(ctx, loadID)
		}
	}

	loadIDs, err := as.ListPendingLoadIDs()
	if err != nil {
		log.Printf("[AUTOMATION] Failed to list pending loads: %v", err)
		return
	}
	for _, loadID := range loadIDs {
		if seen[loadID] {
			continue
		}
		as.deductOne(ctx, loadID)
	}
}

func (as *AutomationService) deductOne(ctx context.Context, loadID string) {
	result, err := as.settlement.Deduct(ctx, loadID)
	if err != nil {
		log.Printf("[AUTOMATION] Deduct failed for load %s: %v", loadID, err)
		return
	}
	if !result.Success {
		log.Printf("[AUTOMATION] Deduct skipped for load %s: %s", loadID, result.Error)
	}
}

// ListPendingLoadIDs returns delivered loads with at least one unsettled side.
func (as *AutomationService) ListPendingLoadIDs() ([]string, error) {
	rows, err := as.db.Query(`
		SELECT id FROM loads
		WHERE status = 'DELIVERED'
		  AND (shipper_fee_status = 'PENDING' OR carrier_fee_status = 'PENDING')
		ORDER BY updated_at
		LIMIT $1`, as.batchSize)
	if err != nil {
		return nil, fmt.Errorf("pending load scan failed: %w", err)
	}
	defer rows.Close()

	var loadIDs []string
	for rows.Next() {
		var loadID string
		if err := rows.Scan(&loadID); err != nil {
			return nil, fmt.Errorf("pending load scan failed: %w", err)
		}
		loadIDs = append(loadIDs, loadID)
	}
	return loadIDs, rows.Err()
}
