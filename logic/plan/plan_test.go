package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dunning/types"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func planCase(total float64) *types.Case {
	return &types.Case{
		CaseID: "c1",
		State:  types.StateActive,
		Obligations: []types.Obligation{{
			InvoiceNumber:     "INV-1",
			OutstandingAmount: total,
			DueDate:           day("2026-01-01"),
			Status:            types.ObligationOpen,
		}},
	}
}

func twoInstalments() []types.Instalment {
	return []types.Instalment{
		{DueDate: day("2026-04-01"), Amount: 100},
		{DueDate: day("2026-05-01"), Amount: 100},
	}
}

func TestCreate(t *testing.T) {
	now := day("2026-03-01")

	t.Run("valid plan attaches", func(t *testing.T) {
		c := planCase(200)
		p, err := Create(c, twoInstalments(), now)
		require.NoError(t, err)
		assert.Equal(t, types.PlanActive, p.Status)
		assert.Len(t, p.Instalments, 2)
		assert.Equal(t, types.InstalmentPending, p.Instalments[0].Status)
	})

	t.Run("sum mismatch rejected, case untouched", func(t *testing.T) {
		c := planCase(200)
		_, err := Create(c, []types.Instalment{
			{DueDate: day("2026-04-01"), Amount: 99},
			{DueDate: day("2026-05-01"), Amount: 100},
		}, now)
		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Nil(t, c.Plan)
	})

	t.Run("sum within tolerance accepted", func(t *testing.T) {
		c := planCase(200)
		_, err := Create(c, []types.Instalment{
			{DueDate: day("2026-04-01"), Amount: 100},
			{DueDate: day("2026-05-01"), Amount: 100.005},
		}, now)
		assert.NoError(t, err)
	})

	t.Run("unordered instalments rejected", func(t *testing.T) {
		c := planCase(200)
		_, err := Create(c, []types.Instalment{
			{DueDate: day("2026-05-01"), Amount: 100},
			{DueDate: day("2026-04-01"), Amount: 100},
		}, now)
		var verr *types.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		c := planCase(200)
		_, err := Create(c, []types.Instalment{
			{DueDate: day("2026-04-01"), Amount: 0},
			{DueDate: day("2026-05-01"), Amount: 200},
		}, now)
		var verr *types.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("empty plan rejected", func(t *testing.T) {
		c := planCase(200)
		_, err := Create(c, nil, now)
		var verr *types.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func activePlan(t *testing.T) *types.Plan {
	t.Helper()
	c := planCase(200)
	p, err := Create(c, twoInstalments(), day("2026-03-01"))
	require.NoError(t, err)
	return p
}

func TestTickEvents(t *testing.T) {
	t.Run("reminder inside the lead window", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-03-30"), nil) // 2 days before the 04-01 instalment
		require.Len(t, events, 1)
		assert.Equal(t, EventReminderDue, events[0].Kind)
		assert.Equal(t, 0, events[0].Instalment)
	})

	t.Run("quiet between windows", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-03-20"), nil)
		assert.Empty(t, events)
	})

	t.Run("one most urgent event per instalment", func(t *testing.T) {
		p := activePlan(t)
		// 04-01 instalment is 8 days overdue: at_risk only, no missed_2d duplicate.
		events := Tick(p, day("2026-04-09"), nil)
		require.Len(t, events, 1)
		assert.Equal(t, EventAtRisk7d, events[0].Kind)
	})

	t.Run("missed at two days overdue", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-04-03"), nil)
		require.Len(t, events, 1)
		assert.Equal(t, EventMissed2d, events[0].Kind)
	})

	t.Run("failed at fourteen days marks the plan advisory-failed", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-04-15"), nil)
		require.Len(t, events, 1)
		assert.Equal(t, EventFailed14d, events[0].Kind)
		assert.Equal(t, types.PlanFailed, p.Status)
	})
}

func TestTickPayments(t *testing.T) {
	t.Run("payment covers instalments in order", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-04-01"), []types.Payment{{Amount: 100, ReceivedAt: day("2026-04-01")}})
		require.NotEmpty(t, events)
		assert.Equal(t, EventPaidOnTime, events[0].Kind)
		assert.Equal(t, types.InstalmentPaid, p.Instalments[0].Status)
		assert.Equal(t, types.InstalmentPending, p.Instalments[1].Status)
	})

	t.Run("plan completes when everything is paid", func(t *testing.T) {
		p := activePlan(t)
		Tick(p, day("2026-04-01"), []types.Payment{{Amount: 200, ReceivedAt: day("2026-04-01")}})
		assert.Equal(t, types.PlanCompleted, p.Status)

		// Completed plan produces no further events.
		assert.Empty(t, Tick(p, day("2026-06-01"), nil))
	})

	t.Run("late settlement is paid but silent", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-04-03"), []types.Payment{{Amount: 100, ReceivedAt: day("2026-04-02")}})
		// First instalment settled two days after its due date: paid, but
		// no paid_on_time event; second still pending with no event yet.
		assert.Equal(t, types.InstalmentPaid, p.Instalments[0].Status)
		assert.Empty(t, events)
		assert.Equal(t, types.PlanActive, p.Status)
	})

	t.Run("instalment paid in halves across two ticks", func(t *testing.T) {
		p := activePlan(t)
		events := Tick(p, day("2026-03-25"), []types.Payment{{Amount: 50, ReceivedAt: day("2026-03-25")}})
		assert.Empty(t, events)
		assert.Equal(t, types.InstalmentPending, p.Instalments[0].Status)
		assert.Equal(t, 50.0, p.Instalments[0].PaidSoFar)

		events = Tick(p, day("2026-03-28"), []types.Payment{{Amount: 50, ReceivedAt: day("2026-03-28")}})
		require.Len(t, events, 1)
		assert.Equal(t, EventPaidOnTime, events[0].Kind)
		assert.Equal(t, types.InstalmentPaid, p.Instalments[0].Status)
	})
}
