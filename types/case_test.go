package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTotalOutstanding(t *testing.T) {
	c := &Case{Obligations: []Obligation{
		{OutstandingAmount: 100, Status: ObligationOpen},
		{OutstandingAmount: 50, Status: ObligationPaid},
		{OutstandingAmount: 25, Status: ObligationCredited},
		{OutstandingAmount: 200, Status: ObligationOpen},
	}}
	assert.Equal(t, 300.0, c.TotalOutstanding(), "only open obligations count")
}

func TestApplyPayments(t *testing.T) {
	newCase := func() *Case {
		return &Case{Obligations: []Obligation{
			{InvoiceNumber: "B", OutstandingAmount: 200, DueDate: day("2026-02-01"), Status: ObligationOpen},
			{InvoiceNumber: "A", OutstandingAmount: 100, DueDate: day("2026-01-01"), Status: ObligationOpen},
		}}
	}

	t.Run("oldest obligation is reduced first", func(t *testing.T) {
		c := newCase()
		applied := c.ApplyPayments([]Payment{{Amount: 150, ReceivedAt: day("2026-03-01")}})
		assert.Equal(t, 150.0, applied)
		assert.Equal(t, ObligationPaid, c.Obligations[1].Status, "A (oldest) paid off")
		assert.Equal(t, 150.0, c.Obligations[0].OutstandingAmount)
	})

	t.Run("overpayment caps at the total", func(t *testing.T) {
		c := newCase()
		applied := c.ApplyPayments([]Payment{{Amount: 1000, ReceivedAt: day("2026-03-01")}})
		assert.Equal(t, 300.0, applied)
		assert.Equal(t, 0.0, c.TotalOutstanding())
	})

	t.Run("nothing to apply", func(t *testing.T) {
		c := newCase()
		assert.Equal(t, 0.0, c.ApplyPayments(nil))
	})
}

func TestFlags(t *testing.T) {
	c := &Case{}
	at := day("2026-03-01")

	require.True(t, c.AddFlag(FlagAttentionNeeded, "first", at))
	assert.False(t, c.AddFlag(FlagAttentionNeeded, "second", at), "same type dedups")
	assert.True(t, c.HasFlag(FlagAttentionNeeded))
	assert.Len(t, c.Flags, 1)

	assert.True(t, c.ClearFlag(FlagAttentionNeeded))
	assert.False(t, c.HasFlag(FlagAttentionNeeded))
	assert.False(t, c.ClearFlag(FlagAttentionNeeded))
}

func TestStateHelpers(t *testing.T) {
	for _, s := range []CaseState{StateLegal, StateWriteOff, StatePaidInFull} {
		assert.True(t, s.Terminal(), "%s", s)
	}
	for _, s := range []CaseState{StateActive, StatePausedPromise, StatePausedDispute, StatePausedManual, StatePlan} {
		assert.False(t, s.Terminal(), "%s", s)
	}
	assert.True(t, StateActive.Valid())
	assert.False(t, CaseState("BOGUS").Valid())

	c := &Case{State: StateActive, StateEnteredAt: day("2026-01-01")}
	c.SetState(StateActive, day("2026-03-01"))
	assert.Equal(t, day("2026-01-01"), c.StateEnteredAt, "same-state set keeps the entry time")
	c.SetState(StatePlan, day("2026-03-01"))
	assert.Equal(t, day("2026-03-01"), c.StateEnteredAt)
}

func TestIntentPriorityOrder(t *testing.T) {
	assert.Less(t, IntentInsolvency.PriorityIndex(), IntentDispute.PriorityIndex())
	assert.Less(t, IntentDispute.PriorityIndex(), IntentPromiseToPay.PriorityIndex())
	assert.Less(t, IntentHostile.PriorityIndex(), IntentPromiseToPay.PriorityIndex())
	assert.Equal(t, len(IntentPriority)-1, IntentUnclear.PriorityIndex(), "UNCLEAR is last")

	intent, known := ParseIntent("promise_to_pay")
	assert.True(t, known)
	assert.Equal(t, IntentPromiseToPay, intent)

	_, known = ParseIntent("nonsense")
	assert.False(t, known)
}
