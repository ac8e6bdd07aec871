package lifecycle

import (
	"dunning/logic/classify"
	"dunning/types"
)

// EventKind names the triggers the state machine understands.
type EventKind string

const (
	// EventIntent carries a resolved inbound response intent.
	EventIntent EventKind = "intent"
	// EventPayments applies received payments to the obligations.
	EventPayments EventKind = "payments"
	// EventPromiseCheck resolves the pending promise against payments.
	EventPromiseCheck EventKind = "promise_check"
	// EventPlanTick runs the plan monitor for one cycle.
	EventPlanTick EventKind = "plan_tick"
	// EventHoldSet / EventHoldLifted toggle the manual hold.
	EventHoldSet    EventKind = "hold_set"
	EventHoldLifted EventKind = "hold_lifted"
	// EventPlanAgreed records external approval of an instalment plan.
	EventPlanAgreed EventKind = "plan_agreed"
	// EventDisputeResolved carries the client's dispute verdict.
	EventDisputeResolved EventKind = "dispute_resolved"
	// EventPlanDecision is the client's call after a plan failure.
	EventPlanDecision EventKind = "plan_decision"
	// EventLegalApproved / EventWriteOffApproved close the case.
	EventLegalApproved    EventKind = "legal_approved"
	EventWriteOffApproved EventKind = "write_off_approved"
)

// Event is one trigger fed into Apply. Only the fields relevant to the kind
// are read.
type Event struct {
	Kind EventKind

	Intent      *classify.Resolution // EventIntent
	Payments    []types.Payment      // EventPayments, EventPromiseCheck, EventPlanTick
	Instalments []types.Instalment   // EventPlanAgreed

	Verdict        types.DisputeStatus // EventDisputeResolved
	AdjustedAmount *float64            // EventDisputeResolved (valid_adjust)

	Decision types.CaseState // EventPlanDecision: ACTIVE or LEGAL
}
