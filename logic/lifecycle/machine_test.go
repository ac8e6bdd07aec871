package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dunning/logic/classify"
	"dunning/types"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fptr(v float64) *float64 { return &v }

func newActiveCase(total float64) *types.Case {
	return &types.Case{
		CaseID:   "c1",
		TenantID: "t1",
		State:    types.StateActive,
		Obligations: []types.Obligation{{
			InvoiceNumber:     "INV-1",
			OriginalAmount:    total,
			OutstandingAmount: total,
			DueDate:           day("2026-01-15"),
			Status:            types.ObligationOpen,
		}},
		HasValidEmail:   true,
		LastSenderLevel: 1,
	}
}

func intentEvent(intent types.ResponseIntent, extracted classify.ExtractedFields) Event {
	return Event{Kind: EventIntent, Intent: &classify.Resolution{
		Intent:     intent,
		Confidence: 0.9,
		Extracted:  extracted,
	}}
}

func TestPromiseFlow(t *testing.T) {
	today := day("2026-03-01")

	t.Run("specific promise pauses the case", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentPromiseToPay, classify.ExtractedFields{
			PromiseDate: "2026-03-10", PromiseAmount: fptr(500),
		}), today)
		require.NoError(t, err)
		assert.True(t, tr.Changed)
		assert.Equal(t, types.StatePausedPromise, c.State)
		require.NotNil(t, c.PendingPromise())
	})

	t.Run("vague promise stays active with a CTA", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentPromiseToPay, classify.ExtractedFields{
			PromiseDate: "next week",
		}), today)
		require.NoError(t, err)
		assert.False(t, tr.Changed)
		assert.Equal(t, types.StateActive, c.State)
		assert.Equal(t, "request a specific payment date", tr.CTAHint)
		assert.Nil(t, c.PendingPromise())
	})

	t.Run("kept promise covering the balance closes as PIF", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentPromiseToPay, classify.ExtractedFields{
			PromiseDate: "2026-03-10",
		}), today)
		require.NoError(t, err)

		payments := []types.Payment{{Amount: 500, ReceivedAt: day("2026-03-09")}}
		tr, err := Apply(c, Event{Kind: EventPromiseCheck, Payments: payments}, day("2026-03-10"))
		require.NoError(t, err)
		assert.Equal(t, types.StatePaidInFull, c.State)
		assert.True(t, tr.Changed)
	})

	t.Run("payments split across cycle windows still keep the promise", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentPromiseToPay, classify.ExtractedFields{
			PromiseDate: "2026-03-10", PromiseAmount: fptr(500),
		}), today)
		require.NoError(t, err)

		// First window: 300 lands on the promise date.
		tr, err := Apply(c, Event{Kind: EventPromiseCheck, Payments: []types.Payment{
			{Amount: 300, ReceivedAt: day("2026-03-10")},
		}}, day("2026-03-10"))
		require.NoError(t, err)
		assert.False(t, tr.Changed)
		assert.Equal(t, types.StatePausedPromise, c.State)

		// Second window: the remaining 200. The check sees the running
		// total, not just this window's slice.
		_, err = Apply(c, Event{Kind: EventPromiseCheck, Payments: []types.Payment{
			{Amount: 200, ReceivedAt: day("2026-03-11")},
		}}, day("2026-03-11"))
		require.NoError(t, err)
		assert.Equal(t, types.StatePaidInFull, c.State)
		assert.Equal(t, types.PromiseKept, c.Promises[0].Outcome)
		assert.Zero(t, c.BrokenPromisesCount)
	})

	t.Run("broken promise resumes active and counts", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentPromiseToPay, classify.ExtractedFields{
			PromiseDate: "2026-03-10",
		}), today)
		require.NoError(t, err)

		// One day after the date: still inside the grace window.
		tr, err := Apply(c, Event{Kind: EventPromiseCheck}, day("2026-03-11"))
		require.NoError(t, err)
		assert.False(t, tr.Changed)
		assert.Equal(t, types.StatePausedPromise, c.State)

		// Exactly at date + 2 days: broken.
		tr, err = Apply(c, Event{Kind: EventPromiseCheck}, day("2026-03-12"))
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
		assert.Equal(t, 1, c.BrokenPromisesCount)
	})

	t.Run("partial promise resumes with a chase CTA", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentPromiseToPay, classify.ExtractedFields{
			PromiseDate: "2026-03-10",
		}), today)
		require.NoError(t, err)

		payments := []types.Payment{{Amount: 100, ReceivedAt: day("2026-03-10")}}
		tr, err := Apply(c, Event{Kind: EventPromiseCheck, Payments: payments}, day("2026-03-12"))
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
		assert.Zero(t, c.BrokenPromisesCount)
		assert.Contains(t, tr.CTAHint, "partial")
	})
}

func TestDisputeFlow(t *testing.T) {
	today := day("2026-03-01")

	t.Run("dispute pauses and notifies", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{
			DisputeType: "pricing_error", DisputeReason: "invoice doubled",
		}), today)
		require.NoError(t, err)
		assert.Equal(t, types.StatePausedDispute, c.State)
		assert.True(t, c.ActiveDispute)
		assert.True(t, c.HasFlag(types.FlagDisputePending))
		require.Len(t, tr.Notifications, 1)
		assert.Equal(t, types.NotifyDisputeOpened, tr.Notifications[0].Kind)
	})

	t.Run("invalid verdict resumes collection", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "other"}), today)
		require.NoError(t, err)

		_, err = Apply(c, Event{Kind: EventDisputeResolved, Verdict: types.DisputeStatusInvalid}, day("2026-03-05"))
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
		assert.False(t, c.ActiveDispute)
		assert.Equal(t, 500.0, c.TotalOutstanding())
	})

	t.Run("valid_adjust writes down and resumes", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "pricing_error"}), today)
		require.NoError(t, err)

		_, err = Apply(c, Event{
			Kind:           EventDisputeResolved,
			Verdict:        types.DisputeStatusValidAdjust,
			AdjustedAmount: fptr(200),
		}, day("2026-03-05"))
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
		assert.InDelta(t, 200.0, c.TotalOutstanding(), types.AmountTolerance)
	})

	t.Run("valid_adjust to zero closes as PIF", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "pricing_error"}), today)
		require.NoError(t, err)

		_, err = Apply(c, Event{
			Kind:           EventDisputeResolved,
			Verdict:        types.DisputeStatusValidAdjust,
			AdjustedAmount: fptr(0),
		}, day("2026-03-05"))
		require.NoError(t, err)
		assert.Equal(t, types.StatePaidInFull, c.State)
	})

	t.Run("valid_cancel writes the case off", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "wrong_customer"}), today)
		require.NoError(t, err)

		_, err = Apply(c, Event{Kind: EventDisputeResolved, Verdict: types.DisputeStatusValidCancel}, day("2026-03-05"))
		require.NoError(t, err)
		assert.Equal(t, types.StateWriteOff, c.State)
		assert.Equal(t, 0.0, c.TotalOutstanding())
	})

	t.Run("malformed verdict leaves the case untouched", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "other"}), today)
		require.NoError(t, err)

		_, err = Apply(c, Event{Kind: EventDisputeResolved, Verdict: types.DisputeStatusValidAdjust}, day("2026-03-05"))
		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, types.StatePausedDispute, c.State)
		assert.True(t, c.ActiveDispute)
	})
}

func TestPlanFlow(t *testing.T) {
	today := day("2026-03-01")

	agreePlan := func(t *testing.T, c *types.Case) {
		t.Helper()
		_, err := Apply(c, Event{Kind: EventPlanAgreed, Instalments: []types.Instalment{
			{DueDate: day("2026-04-01"), Amount: 250},
			{DueDate: day("2026-05-01"), Amount: 250},
		}}, today)
		require.NoError(t, err)
		require.Equal(t, types.StatePlan, c.State)
	}

	t.Run("completed plan closes as PIF", func(t *testing.T) {
		c := newActiveCase(500)
		agreePlan(t, c)
		_, err := Apply(c, Event{Kind: EventPlanTick, Payments: []types.Payment{
			{Amount: 500, ReceivedAt: day("2026-04-01")},
		}}, day("2026-04-01"))
		require.NoError(t, err)
		assert.Equal(t, types.StatePaidInFull, c.State)
	})

	t.Run("failed plan stays PLAN and notifies", func(t *testing.T) {
		c := newActiveCase(500)
		agreePlan(t, c)
		tr, err := Apply(c, Event{Kind: EventPlanTick}, day("2026-04-16"))
		require.NoError(t, err)
		assert.Equal(t, types.StatePlan, c.State, "failure is advisory until the client decides")
		assert.Equal(t, types.PlanFailed, c.Plan.Status)
		require.Len(t, tr.Notifications, 1)
		assert.Equal(t, types.NotifyPlanFailed, tr.Notifications[0].Kind)
	})

	t.Run("plan decision resumes active", func(t *testing.T) {
		c := newActiveCase(500)
		agreePlan(t, c)
		_, err := Apply(c, Event{Kind: EventPlanTick}, day("2026-04-16"))
		require.NoError(t, err)

		_, err = Apply(c, Event{Kind: EventPlanDecision, Decision: types.StateActive}, day("2026-04-17"))
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
	})

	t.Run("plan decision can refer to legal", func(t *testing.T) {
		c := newActiveCase(500)
		agreePlan(t, c)
		_, err := Apply(c, Event{Kind: EventPlanTick}, day("2026-04-16"))
		require.NoError(t, err)

		_, err = Apply(c, Event{Kind: EventPlanDecision, Decision: types.StateLegal}, day("2026-04-17"))
		require.NoError(t, err)
		assert.Equal(t, types.StateLegal, c.State)
	})

	t.Run("decision before failure is invalid", func(t *testing.T) {
		c := newActiveCase(500)
		agreePlan(t, c)
		tr, err := Apply(c, Event{Kind: EventPlanDecision, Decision: types.StateActive}, day("2026-03-02"))
		require.NoError(t, err)
		assert.NotNil(t, tr.Invalid)
		assert.Equal(t, types.StatePlan, c.State)
	})

	t.Run("bad plan rejected without transition", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, Event{Kind: EventPlanAgreed, Instalments: []types.Instalment{
			{DueDate: day("2026-04-01"), Amount: 100}, // sums to 100, not 500
		}}, today)
		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, types.StateActive, c.State)
		assert.Nil(t, c.Plan)
	})
}

func TestHoldFlow(t *testing.T) {
	today := day("2026-03-01")

	t.Run("hold on active pauses", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, Event{Kind: EventHoldSet}, today)
		require.NoError(t, err)
		assert.Equal(t, types.StatePausedManual, c.State)
		assert.True(t, c.ManualHold)

		_, err = Apply(c, Event{Kind: EventHoldLifted}, today)
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
		assert.False(t, c.ManualHold)
	})

	t.Run("hold is orthogonal outside active", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "other"}), today)
		require.NoError(t, err)

		_, err = Apply(c, Event{Kind: EventHoldSet}, today)
		require.NoError(t, err)
		assert.Equal(t, types.StatePausedDispute, c.State, "existing pause is not disturbed")
		assert.True(t, c.ManualHold)

		_, err = Apply(c, Event{Kind: EventHoldLifted}, today)
		require.NoError(t, err)
		assert.Equal(t, types.StatePausedDispute, c.State)
		assert.False(t, c.ManualHold)
	})
}

func TestIntentSideEffects(t *testing.T) {
	today := day("2026-03-01")

	t.Run("insolvency stops collection from any working state", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentInsolvency, classify.ExtractedFields{}), today)
		require.NoError(t, err)
		assert.Equal(t, types.StatePausedManual, c.State)
		assert.True(t, c.ManualHold)
		assert.True(t, c.HasFlag(types.FlagInsolvencyDetected))
		require.Len(t, tr.Notifications, 1)
		assert.Equal(t, types.NotifyInsolvency, tr.Notifications[0].Kind)
	})

	t.Run("insolvency while paused keeps the pause", func(t *testing.T) {
		c := newActiveCase(500)
		_, err := Apply(c, intentEvent(types.IntentDispute, classify.ExtractedFields{DisputeType: "other"}), today)
		require.NoError(t, err)

		_, err = Apply(c, intentEvent(types.IntentInsolvency, classify.ExtractedFields{}), today)
		require.NoError(t, err)
		assert.Equal(t, types.StatePausedDispute, c.State)
		assert.True(t, c.ManualHold)
		assert.True(t, c.HasFlag(types.FlagInsolvencyDetected))
	})

	t.Run("hostile flags without transition", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentHostile, classify.ExtractedFields{}), today)
		require.NoError(t, err)
		assert.False(t, tr.Changed)
		assert.True(t, c.HasFlag(types.FlagAttentionNeeded))
	})

	t.Run("already paid flags and requests verification", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentAlreadyPaid, classify.ExtractedFields{}), today)
		require.NoError(t, err)
		assert.Equal(t, types.StateActive, c.State)
		require.Len(t, tr.Notifications, 1)
		assert.Equal(t, types.NotifyAlreadyPaidVerify, tr.Notifications[0].Kind)
	})

	t.Run("hardship marks the case and softens the tone", func(t *testing.T) {
		c := newActiveCase(500)
		tr, err := Apply(c, intentEvent(types.IntentHardship, classify.ExtractedFields{}), today)
		require.NoError(t, err)
		assert.True(t, c.HardshipIndicated)
		assert.False(t, tr.Changed)
		assert.Contains(t, tr.CTAHint, "plan")
	})

	t.Run("response marks the latest touch answered", func(t *testing.T) {
		c := newActiveCase(500)
		c.Touches = []types.Touch{{Channel: "email", SentAt: day("2026-02-20"), SenderLevel: 1}}
		_, err := Apply(c, intentEvent(types.IntentCooperative, classify.ExtractedFields{}), today)
		require.NoError(t, err)
		assert.True(t, c.Touches[0].Responded)
		assert.Equal(t, types.IntentCooperative, c.LastResponseIntent)
	})
}

func TestPaymentsClearBalance(t *testing.T) {
	today := day("2026-03-01")
	c := newActiveCase(500)
	tr, err := Apply(c, Event{Kind: EventPayments, Payments: []types.Payment{
		{Amount: 500, ReceivedAt: today},
	}}, today)
	require.NoError(t, err)
	assert.Equal(t, types.StatePaidInFull, c.State)
	assert.True(t, tr.Changed)
}

func TestTerminalStatesAbsorbing(t *testing.T) {
	today := day("2026-03-01")
	for _, state := range []types.CaseState{types.StateLegal, types.StateWriteOff, types.StatePaidInFull} {
		c := newActiveCase(500)
		c.State = state
		tr, err := Apply(c, Event{Kind: EventHoldSet}, today)
		require.NoError(t, err)
		assert.NotNil(t, tr.Invalid)
		assert.Equal(t, state, c.State, "terminal state %s must absorb every event", state)
		assert.True(t, c.HasFlag(types.FlagAttentionNeeded))
	}
}

func TestInvalidTransitionIsFlaggedNoOp(t *testing.T) {
	today := day("2026-03-01")
	c := newActiveCase(500)
	c.State = types.StatePausedPromise
	c.Promises = []types.Promise{{ID: "p1", PromiseDate: day("2026-03-10"), PromiseAmount: 500, Outcome: types.PromisePending}}

	// A dispute verdict makes no sense here.
	tr, err := Apply(c, Event{Kind: EventDisputeResolved, Verdict: types.DisputeStatusInvalid}, today)
	require.NoError(t, err)
	require.NotNil(t, tr.Invalid)
	assert.Equal(t, types.StatePausedPromise, tr.Invalid.State)
	assert.Equal(t, types.StatePausedPromise, c.State)
	assert.True(t, c.HasFlag(types.FlagAttentionNeeded))
}

func TestLegalAndWriteOffApproval(t *testing.T) {
	today := day("2026-03-01")

	c := newActiveCase(500)
	_, err := Apply(c, Event{Kind: EventLegalApproved}, today)
	require.NoError(t, err)
	assert.Equal(t, types.StateLegal, c.State)

	c = newActiveCase(500)
	_, err = Apply(c, Event{Kind: EventWriteOffApproved}, today)
	require.NoError(t, err)
	assert.Equal(t, types.StateWriteOff, c.State)
}
