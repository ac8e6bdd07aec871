package job

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dunning/service"
	"dunning/storage/postgres"
	"dunning/types"
)

// nonTerminal are the states a cycle still works on.
var nonTerminal = []types.CaseState{
	types.StateActive,
	types.StatePausedPromise,
	types.StatePausedDispute,
	types.StatePausedManual,
	types.StatePlan,
}

// StartCronJobs schedules the processing cadence: a full cycle per tenant
// every two hours, plus a daily promise sweep so due promises are resolved
// even on days with no inbound traffic.
func StartCronJobs(repo *postgres.CaseRepo, cycle *service.CycleService) {
	c := cron.New()

	var mu sync.Mutex
	lastRun := time.Now().Add(-2 * time.Hour)

	_, _ = c.AddFunc("0 */2 * * *", func() {
		ctx := context.Background()
		mu.Lock()
		since := lastRun
		lastRun = time.Now()
		mu.Unlock()
		runTenantCycles(ctx, repo, cycle, &since, nonTerminal)
	})

	// 06:30 daily: resolve promises that came due, regardless of cadence.
	// No payment window here: the 2-hourly cycles already applied those to
	// the obligations, and promise resolution reads the balance movement
	// since the promise was recorded, not a window slice.
	_, _ = c.AddFunc("30 6 * * *", func() {
		ctx := context.Background()
		runTenantCycles(ctx, repo, cycle, nil, []types.CaseState{types.StatePausedPromise})
	})

	c.Start()
	log.Println("[Cron] cycle scheduler started")
}

// runTenantCycles drives one batch per tenant. A nil since runs the batch
// without fetching a payment window.
func runTenantCycles(ctx context.Context, repo *postgres.CaseRepo, cycle *service.CycleService, since *time.Time, states []types.CaseState) {
	tenants, err := repo.ListTenantIDs(ctx)
	if err != nil {
		log.Println("[Cron] list tenants:", err)
		return
	}
	for _, tenantID := range tenants {
		cases, err := repo.ListByTenant(ctx, tenantID, states...)
		if err != nil {
			log.Printf("[Cron] tenant %s: list cases: %v", tenantID, err)
			continue
		}
		inputs := make([]service.CaseInput, 0, len(cases))
		for _, cs := range cases {
			var payments []types.Payment
			if since != nil {
				payments, err = repo.PaymentsSince(ctx, cs.CaseID, *since)
				if err != nil {
					log.Printf("[Cron] case %s: payments: %v", cs.CaseID, err)
					continue
				}
			}
			inputs = append(inputs, service.CaseInput{CaseID: cs.CaseID, Payments: payments})
		}
		if len(inputs) == 0 {
			continue
		}
		decisions, err := cycle.RunCycle(ctx, tenantID, inputs)
		if err != nil {
			// A ConfigurationError aborts this tenant only.
			log.Printf("[Cron] tenant %s cycle aborted: %v", tenantID, err)
			continue
		}
		generate := 0
		for _, d := range decisions {
			if d.Generate {
				generate++
			}
		}
		log.Printf("[Cron] tenant %s: %d cases processed, %d drafts requested", tenantID, len(decisions), generate)
	}
}
