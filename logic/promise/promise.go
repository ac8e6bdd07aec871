// Package promise manages the promise-to-pay sub-lifecycle nested inside a
// PAUSED_PROMISE case. At most one promise is pending per case.
package promise

import (
	"math"
	"time"

	"github.com/google/uuid"

	"dunning/types"
)

// GraceDays is the tolerance before a promise with no payment is declared
// broken. Payments racing with processing lag are tolerated.
const GraceDays = 2

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2 January 2006", "January 2, 2006"}

// Record registers a debtor's promise on the case. The date must parse to a
// specific calendar day that is today or later; vague promises are rejected
// with a ValidationError and the case is left untouched. A repeat promise
// while one is pending revises the pending date, or is ignored and flagged
// for human review when the amounts conflict.
func Record(c *types.Case, rawDate string, amount *float64, today time.Time) (*types.Promise, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, err
	}
	if date.Before(types.DateOnly(today)) {
		return nil, &types.ValidationError{Field: "promise_date", Msg: "promise date is in the past"}
	}

	outstanding := c.TotalOutstanding()
	promised := outstanding
	if amount != nil && *amount > 0 {
		promised = *amount
	}

	if pending := c.PendingPromise(); pending != nil {
		if amount != nil && math.Abs(*amount-pending.PromiseAmount) > types.AmountTolerance {
			// Conflicting amounts: keep the original commitment, surface
			// the discrepancy to a human.
			c.AddFlag(types.FlagAttentionNeeded, "conflicting_promise_amount", today)
			return pending, nil
		}
		// Debtor revised the commitment date.
		pending.PromiseDate = date
		return pending, nil
	}

	c.Promises = append(c.Promises, types.Promise{
		ID:                  uuid.New().String(),
		PromiseDate:         date,
		PromiseAmount:       promised,
		BaselineOutstanding: outstanding,
		CreatedAt:           today,
		Outcome:             types.PromisePending,
	})
	return &c.Promises[len(c.Promises)-1], nil
}

// CheckDue resolves a pending promise against the cumulative amount paid
// since it was recorded. The caller supplies that total (typically the
// promise's baseline outstanding minus the current balance) so payments
// arriving in different cycle windows all count. Idempotent and callable at
// any cadence of at least once a day: a resolved promise keeps its outcome.
//
//	kept    cumulative payment covers the promised amount (any time)
//	partial some payment but short, once the grace period has elapsed
//	broken  zero payment, exactly at promise_date + GraceDays, not before
func CheckDue(p *types.Promise, paidSinceRecorded float64, today time.Time) types.PromiseOutcome {
	if p.Outcome != types.PromisePending {
		return p.Outcome
	}
	if paidSinceRecorded >= p.PromiseAmount-types.AmountTolerance {
		p.Outcome = types.PromiseKept
		return p.Outcome
	}
	deadline := types.DateOnly(p.PromiseDate).AddDate(0, 0, GraceDays)
	if types.DateOnly(today).Before(deadline) {
		return types.PromisePending
	}
	if paidSinceRecorded > types.AmountTolerance {
		p.Outcome = types.PromisePartial
	} else {
		p.Outcome = types.PromiseBroken
	}
	return p.Outcome
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &types.ValidationError{Field: "promise_date", Msg: "no specific date given"}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return types.DateOnly(t), nil
		}
	}
	return time.Time{}, &types.ValidationError{Field: "promise_date", Msg: "unparseable date: " + raw}
}
