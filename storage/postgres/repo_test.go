package postgres

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

func sampleCase() *types.Case {
	resolved := day("2026-03-05")
	paidAt := day("2026-04-01")
	touched := day("2026-02-20")
	return &types.Case{
		CaseID:              "11111111-1111-1111-1111-111111111111",
		PartyID:             "p1",
		TenantID:            "t1",
		State:               types.StatePlan,
		StateEnteredAt:      day("2026-03-01"),
		TouchCount:          2,
		LastTouchAt:         &touched,
		LastTouchChannel:    "email",
		LastSenderLevel:     2,
		LastTone:            "professional",
		BrokenPromisesCount: 1,
		HasValidEmail:       true,
		LastResponseIntent:  types.IntentPlanRequest,
		Notes:               []string{"debtor asked to pay in instalments"},
		Obligations: []types.Obligation{
			{InvoiceNumber: "INV-1", OriginalAmount: 300, OutstandingAmount: 200, DueDate: day("2026-01-01"), Status: types.ObligationOpen},
		},
		Promises: []types.Promise{
			{ID: "pr1", PromiseDate: day("2026-02-10"), PromiseAmount: 300, BaselineOutstanding: 300, CreatedAt: day("2026-02-01"), Outcome: types.PromiseBroken},
		},
		Disputes: []types.Dispute{
			{ID: "d1", Type: types.DisputePricingError, Status: types.DisputeStatusValidAdjust, CreatedAt: day("2026-02-15"), ResolvedAt: &resolved},
		},
		Plan: &types.Plan{
			ID:     "pl1",
			Status: types.PlanActive,
			Instalments: []types.Instalment{
				{DueDate: day("2026-04-01"), Amount: 100, Status: types.InstalmentPaid, PaidAt: &paidAt},
				{DueDate: day("2026-05-01"), Amount: 100, PaidSoFar: 40, Status: types.InstalmentPending},
			},
			CreatedAt: day("2026-03-01"),
		},
		Flags: []types.Flag{
			{Type: types.FlagAttentionNeeded, ReasonCode: "conflicting_promise_amount", TriggeredAt: day("2026-02-05")},
		},
		Touches: []types.Touch{
			{Channel: "email", SentAt: day("2026-02-01"), SenderLevel: 1, Tone: "friendly_reminder", Responded: true},
			{Channel: "email", SentAt: touched, SenderLevel: 2, Tone: "professional"},
		},
		CreatedAt: day("2026-01-20"),
		UpdatedAt: day("2026-03-01"),
	}
}

func TestCaseRowRoundTrip(t *testing.T) {
	c := sampleCase()
	got := rowToCase(caseToRow(c))

	assert.Equal(t, c.CaseID, got.CaseID)
	assert.Equal(t, c.State, got.State)
	assert.Equal(t, c.LastResponseIntent, got.LastResponseIntent)
	assert.Equal(t, c.BrokenPromisesCount, got.BrokenPromisesCount)
	assert.Equal(t, c.LastTouchAt, got.LastTouchAt)
	assert.Equal(t, c.Notes, got.Notes)
}

func TestChildRowConversions(t *testing.T) {
	c := sampleCase()

	t.Run("obligations carry the case id", func(t *testing.T) {
		rows := obligationsToRows(c)
		require.Len(t, rows, 1)
		assert.Equal(t, c.CaseID, rows[0].CaseID)
		assert.Equal(t, 200.0, rows[0].OutstandingAmount)
	})

	t.Run("promises keep their outcome", func(t *testing.T) {
		rows := promisesToRows(c)
		require.Len(t, rows, 1)
		assert.Equal(t, string(types.PromiseBroken), rows[0].Outcome)
		assert.Equal(t, 300.0, rows[0].BaselineOutstanding)
	})

	t.Run("disputes keep resolution time", func(t *testing.T) {
		rows := disputesToRows(c)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].ResolvedAt)
		assert.Equal(t, string(types.DisputeStatusValidAdjust), rows[0].Status)
	})

	t.Run("instalments are sequenced in order", func(t *testing.T) {
		planRow, instRows := planToRows(c)
		assert.Equal(t, c.Plan.ID, planRow.ID)
		require.Len(t, instRows, 2)
		assert.Equal(t, 0, instRows[0].Seq)
		assert.Equal(t, 1, instRows[1].Seq)
		assert.NotNil(t, instRows[0].PaidAt)
		assert.Nil(t, instRows[1].PaidAt)
		assert.Equal(t, 40.0, instRows[1].PaidSoFar)
	})

	t.Run("touches and flags map field for field", func(t *testing.T) {
		touchRows := touchesToRows(c)
		require.Len(t, touchRows, 2)
		assert.True(t, touchRows[0].Responded)
		assert.False(t, touchRows[1].Responded)

		flagRows := flagsToRows(c)
		require.Len(t, flagRows, 1)
		assert.Equal(t, string(types.FlagAttentionNeeded), flagRows[0].FlagType)
	})
}
