package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dunning/types"
)

func TestResolvePriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       types.ResponseIntent
	}{
		{
			name: "dispute outranks promise regardless of confidence",
			candidates: []Candidate{
				{Label: "PROMISE_TO_PAY", Confidence: 0.95},
				{Label: "DISPUTE", Confidence: 0.7},
			},
			want: types.IntentDispute,
		},
		{
			name: "insolvency outranks everything",
			candidates: []Candidate{
				{Label: "DISPUTE", Confidence: 0.9},
				{Label: "INSOLVENCY", Confidence: 0.6},
				{Label: "HOSTILE", Confidence: 0.9},
			},
			want: types.IntentInsolvency,
		},
		{
			name: "hostile outranks promise",
			candidates: []Candidate{
				{Label: "PROMISE_TO_PAY", Confidence: 0.8},
				{Label: "HOSTILE", Confidence: 0.8},
			},
			want: types.IntentHostile,
		},
		{
			name:       "single cooperative",
			candidates: []Candidate{{Label: "COOPERATIVE", Confidence: 0.9}},
			want:       types.IntentCooperative,
		},
		{
			name:       "case and whitespace normalized",
			candidates: []Candidate{{Label: "  already_paid ", Confidence: 0.9}},
			want:       types.IntentAlreadyPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.candidates, 0.5)
			assert.Equal(t, tt.want, res.Intent)
		})
	}
}

func TestResolveConfidenceThreshold(t *testing.T) {
	t.Run("below threshold collapses to UNCLEAR with attention", func(t *testing.T) {
		res := Resolve([]Candidate{{Label: "DISPUTE", Confidence: 0.3}}, 0.5)
		assert.Equal(t, types.IntentUnclear, res.Intent)
		assert.True(t, res.NeedsAttention)
	})

	t.Run("low-confidence top intent cannot win but is kept as secondary", func(t *testing.T) {
		res := Resolve([]Candidate{
			{Label: "INSOLVENCY", Confidence: 0.2},
			{Label: "PROMISE_TO_PAY", Confidence: 0.9},
		}, 0.5)
		assert.Equal(t, types.IntentPromiseToPay, res.Intent)
		assert.Contains(t, res.Secondary, types.IntentInsolvency)
	})

	t.Run("unknown labels never win", func(t *testing.T) {
		res := Resolve([]Candidate{{Label: "GIBBERISH", Confidence: 0.99}}, 0.5)
		assert.Equal(t, types.IntentUnclear, res.Intent)
		assert.True(t, res.NeedsAttention)
	})

	t.Run("no candidates at all", func(t *testing.T) {
		res := Resolve(nil, 0.5)
		assert.Equal(t, types.IntentUnclear, res.Intent)
		assert.True(t, res.NeedsAttention)
	})
}

func TestResolveExtractionScopedToWinner(t *testing.T) {
	amount := 500.0
	res := Resolve([]Candidate{
		{
			Label:      "DISPUTE",
			Confidence: 0.8,
			Extracted:  ExtractedFields{DisputeType: "pricing_error", DisputeReason: "invoice doubled"},
		},
		{
			Label:      "PROMISE_TO_PAY",
			Confidence: 0.9,
			Extracted:  ExtractedFields{PromiseDate: "2026-04-01", PromiseAmount: &amount},
		},
	}, 0.5)

	assert.Equal(t, types.IntentDispute, res.Intent)
	assert.Equal(t, "pricing_error", res.Extracted.DisputeType)
	assert.Empty(t, res.Extracted.PromiseDate, "extraction belongs to the winning intent only")
	assert.Equal(t, []types.ResponseIntent{types.IntentPromiseToPay}, res.Secondary)
}

func TestResolveDeduplicatesSecondaries(t *testing.T) {
	res := Resolve([]Candidate{
		{Label: "COOPERATIVE", Confidence: 0.7},
		{Label: "COOPERATIVE", Confidence: 0.6},
		{Label: "REQUEST_INFO", Confidence: 0.8},
	}, 0.5)
	assert.Equal(t, types.IntentRequestInfo, res.Intent)
	assert.Equal(t, []types.ResponseIntent{types.IntentCooperative}, res.Secondary)
}

func TestParseDisputeTypeFallback(t *testing.T) {
	assert.Equal(t, types.DisputeQualityIssue, types.ParseDisputeType("Quality_Issue"))
	assert.Equal(t, types.DisputeOther, types.ParseDisputeType("something else"))
}
