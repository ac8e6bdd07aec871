// Package dispute manages the dispute sub-lifecycle nested inside a
// PAUSED_DISPUTE case. Resolution is always an explicit external human
// action; nothing here auto-resolves.
package dispute

import (
	"time"

	"github.com/google/uuid"

	"dunning/types"
)

// Open records a dispute and marks the case disputed. At most one unresolved
// dispute drives the pause: when one already exists it is returned instead
// of stacking a second gating record.
func Open(c *types.Case, dtype types.DisputeType, reason string, now time.Time) *types.Dispute {
	if existing := c.OpenDispute(); existing != nil {
		return existing
	}
	c.Disputes = append(c.Disputes, types.Dispute{
		ID:         uuid.New().String(),
		Type:       dtype,
		ReasonText: reason,
		Status:     types.DisputeStatusPending,
		CreatedAt:  now,
	})
	c.ActiveDispute = true
	return &c.Disputes[len(c.Disputes)-1]
}

// Resolve applies the client's verdict to the open dispute.
//
//	invalid       the debt stands unchanged
//	valid_adjust  the case total is written down to adjustedAmount
//	valid_cancel  every open obligation is credited to zero
//
// valid_adjust requires 0 <= adjustedAmount <= prior outstanding. The
// resulting state transition is the state machine's concern, not this
// tracker's.
func Resolve(c *types.Case, verdict types.DisputeStatus, adjustedAmount *float64, now time.Time) (*types.Dispute, error) {
	d := c.OpenDispute()
	if d == nil {
		return nil, &types.ValidationError{Field: "dispute", Msg: "no unresolved dispute on this case"}
	}

	switch verdict {
	case types.DisputeStatusInvalid:
		// nothing to adjust
	case types.DisputeStatusValidAdjust:
		if adjustedAmount == nil {
			return nil, &types.ValidationError{Field: "adjusted_amount", Msg: "valid_adjust requires an adjusted amount"}
		}
		outstanding := c.TotalOutstanding()
		if *adjustedAmount < 0 || *adjustedAmount > outstanding+types.AmountTolerance {
			return nil, &types.ValidationError{Field: "adjusted_amount", Msg: "adjusted amount must be between 0 and the prior outstanding"}
		}
		writeDown(c, outstanding-*adjustedAmount)
	case types.DisputeStatusValidCancel:
		for i := range c.Obligations {
			if c.Obligations[i].Status == types.ObligationOpen {
				c.Obligations[i].OutstandingAmount = 0
				c.Obligations[i].Status = types.ObligationCredited
			}
		}
	default:
		return nil, &types.ValidationError{Field: "verdict", Msg: "verdict must be invalid, valid_adjust or valid_cancel"}
	}

	d.Status = verdict
	resolvedAt := now
	d.ResolvedAt = &resolvedAt
	c.ActiveDispute = false
	return d, nil
}

// writeDown credits open obligations oldest-first until the reduction is
// consumed, keeping 0 <= outstanding <= original on every obligation.
func writeDown(c *types.Case, reduction float64) {
	for reduction > types.AmountTolerance {
		idx := -1
		for i := range c.Obligations {
			o := &c.Obligations[i]
			if o.Status != types.ObligationOpen {
				continue
			}
			if idx == -1 || o.DueDate.Before(c.Obligations[idx].DueDate) {
				idx = i
			}
		}
		if idx == -1 {
			return
		}
		o := &c.Obligations[idx]
		take := reduction
		if take > o.OutstandingAmount {
			take = o.OutstandingAmount
		}
		o.OutstandingAmount -= take
		reduction -= take
		if o.OutstandingAmount <= types.AmountTolerance {
			o.OutstandingAmount = 0
			o.Status = types.ObligationCredited
		}
	}
}
