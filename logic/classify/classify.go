// Package classify normalizes external NLU output into one canonical
// ResponseIntent. When several intents are plausible in a single message the
// winner is picked by the strict priority order in types.IntentPriority, an
// array lookup rather than nested conditionals.
package classify

import (
	"dunning/types"
)

// ExtractedFields is the structured data pulled out of an email, scoped to
// the top-priority intent only.
type ExtractedFields struct {
	PromiseDate     string   `json:"promise_date,omitempty"`
	PromiseAmount   *float64 `json:"promise_amount,omitempty"`
	DisputeType     string   `json:"dispute_type,omitempty"`
	DisputeReason   string   `json:"dispute_reason,omitempty"`
	RedirectContact string   `json:"redirect_contact,omitempty"`
	RedirectEmail   string   `json:"redirect_email,omitempty"`
	ReturnDate      string   `json:"return_date,omitempty"`
}

// Candidate is one raw intent label with confidence, as handed over by the
// classifier collaborator.
type Candidate struct {
	Label      string          `json:"classification"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning,omitempty"`
	Extracted  ExtractedFields `json:"extracted_data"`
}

// Resolution is the adapter's output: exactly one top-priority intent, the
// remaining detected intents for audit, and the extracted fields of the top
// intent.
type Resolution struct {
	Intent         types.ResponseIntent
	Confidence     float64
	Secondary      []types.ResponseIntent
	Extracted      ExtractedFields
	Reasoning      string
	NeedsAttention bool
}

// Resolve picks the top-priority intent among the candidates. Candidates
// with unknown labels or confidence below the threshold cannot win; when
// nothing qualifies the result collapses to UNCLEAR and is marked for
// human attention. Multi-intent ambiguity never blocks.
func Resolve(candidates []Candidate, confidenceThreshold float64) Resolution {
	top := -1
	topIdx := len(types.IntentPriority)
	seen := map[types.ResponseIntent]bool{}
	var detected []types.ResponseIntent

	for i, cand := range candidates {
		intent, known := types.ParseIntent(cand.Label)
		if !known {
			continue
		}
		if !seen[intent] {
			seen[intent] = true
			detected = append(detected, intent)
		}
		if cand.Confidence < confidenceThreshold {
			continue
		}
		idx := intent.PriorityIndex()
		if idx < topIdx || (idx == topIdx && top >= 0 && cand.Confidence > candidates[top].Confidence) {
			topIdx = idx
			top = i
		}
	}

	if top == -1 {
		return Resolution{
			Intent:         types.IntentUnclear,
			Secondary:      secondaries(detected, types.IntentUnclear),
			NeedsAttention: true,
		}
	}

	winner, _ := types.ParseIntent(candidates[top].Label)
	return Resolution{
		Intent:         winner,
		Confidence:     candidates[top].Confidence,
		Secondary:      secondaries(detected, winner),
		Extracted:      candidates[top].Extracted,
		Reasoning:      candidates[top].Reasoning,
		NeedsAttention: winner == types.IntentUnclear,
	}
}

func secondaries(detected []types.ResponseIntent, winner types.ResponseIntent) []types.ResponseIntent {
	var rest []types.ResponseIntent
	for _, it := range detected {
		if it != winner {
			rest = append(rest, it)
		}
	}
	return rest
}
