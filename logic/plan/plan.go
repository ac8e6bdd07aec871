// Package plan manages the payment-plan sub-lifecycle nested inside a PLAN
// case. The monitor emits at most one event per instalment per tick, the
// most urgent applicable one.
package plan

import (
	"math"
	"time"

	"github.com/google/uuid"

	"dunning/types"
)

type EventKind string

const (
	EventReminderDue EventKind = "reminder_due" // 3 days before an instalment
	EventPaidOnTime  EventKind = "paid_on_time"
	EventMissed2d    EventKind = "missed_2d"
	EventAtRisk7d    EventKind = "at_risk_7d"
	EventFailed14d   EventKind = "failed_14d"
)

const (
	reminderLeadDays = 3
	missedDays       = 2
	atRiskDays       = 7
	failedDays       = 14
)

// Event is one instalment-level observation from a tick.
type Event struct {
	Kind       EventKind `json:"kind"`
	Instalment int       `json:"instalment"` // index into the plan
	DueDate    time.Time `json:"due_date"`
	Amount     float64   `json:"amount"`
}

// Create validates and attaches an instalment plan to the case. Instalments
// must be in chronological order and their amounts must sum to the case's
// total outstanding within rounding tolerance; anything else is rejected
// with a ValidationError and the case is left untouched.
func Create(c *types.Case, instalments []types.Instalment, now time.Time) (*types.Plan, error) {
	if len(instalments) == 0 {
		return nil, &types.ValidationError{Field: "instalments", Msg: "a plan needs at least one instalment"}
	}
	var sum float64
	for i := range instalments {
		if instalments[i].Amount <= 0 {
			return nil, &types.ValidationError{Field: "instalments", Msg: "instalment amounts must be positive"}
		}
		if i > 0 && instalments[i].DueDate.Before(instalments[i-1].DueDate) {
			return nil, &types.ValidationError{Field: "instalments", Msg: "instalments must be ordered by due date ascending"}
		}
		sum += instalments[i].Amount
	}
	if outstanding := c.TotalOutstanding(); math.Abs(sum-outstanding) > types.AmountTolerance {
		return nil, &types.ValidationError{Field: "instalments", Msg: "instalment amounts must sum to the total outstanding"}
	}

	// Build a fresh schedule so a caller-supplied slice is never mutated.
	schedule := make([]types.Instalment, len(instalments))
	for i, inst := range instalments {
		schedule[i] = types.Instalment{
			DueDate: inst.DueDate,
			Amount:  inst.Amount,
			Status:  types.InstalmentPending,
		}
	}

	c.Plan = &types.Plan{
		ID:          uuid.New().String(),
		Instalments: schedule,
		Status:      types.PlanActive,
		CreatedAt:   now,
	}
	return c.Plan, nil
}

// Tick applies this cycle's payments to pending instalments oldest-first,
// then reports per-instalment status. Partial payments accrue on the
// instalment across ticks, so an instalment settled by several transfers in
// different cycle windows still completes. The plan completes when every
// instalment is paid; it fails when any instalment reaches 14+ days overdue.
// A failure is advisory only: the case transition out of PLAN waits for an
// explicit external decision. An instalment settled after its due date is
// marked paid without an event.
func Tick(p *types.Plan, today time.Time, payments []types.Payment) []Event {
	var events []Event
	if p == nil || p.Status == types.PlanCompleted {
		return events
	}

	day := types.DateOnly(today)
	pot := types.SumPayments(payments)
	for i := range p.Instalments {
		inst := &p.Instalments[i]
		if inst.Status != types.InstalmentPending || pot <= 0 {
			continue
		}
		take := math.Min(pot, inst.Amount-inst.PaidSoFar)
		inst.PaidSoFar += take
		pot -= take
		if inst.PaidSoFar >= inst.Amount-types.AmountTolerance {
			inst.Status = types.InstalmentPaid
			paidAt := today
			inst.PaidAt = &paidAt
			if !day.After(types.DateOnly(inst.DueDate)) {
				events = append(events, Event{Kind: EventPaidOnTime, Instalment: i, DueDate: inst.DueDate, Amount: inst.Amount})
			}
		}
	}

	allPaid := true
	anyFailed := false
	for i := range p.Instalments {
		inst := &p.Instalments[i]
		if inst.Status == types.InstalmentPaid {
			continue
		}
		allPaid = false
		due := types.DateOnly(inst.DueDate)
		overdue := int(day.Sub(due).Hours() / 24)
		ev := Event{Instalment: i, DueDate: inst.DueDate, Amount: inst.Amount}
		switch {
		case overdue >= failedDays:
			ev.Kind = EventFailed14d
			anyFailed = true
		case overdue >= atRiskDays:
			ev.Kind = EventAtRisk7d
		case overdue >= missedDays:
			ev.Kind = EventMissed2d
		case overdue >= -reminderLeadDays && overdue <= 0:
			ev.Kind = EventReminderDue
		default:
			continue
		}
		events = append(events, ev)
	}

	if allPaid {
		p.Status = types.PlanCompleted
	} else if anyFailed {
		p.Status = types.PlanFailed
	}
	return events
}
