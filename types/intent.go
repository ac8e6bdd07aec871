package types

import "strings"

// ResponseIntent is the canonical classification of an inbound debtor reply.
type ResponseIntent string

const (
	IntentInsolvency   ResponseIntent = "INSOLVENCY"
	IntentDispute      ResponseIntent = "DISPUTE"
	IntentAlreadyPaid  ResponseIntent = "ALREADY_PAID"
	IntentUnsubscribe  ResponseIntent = "UNSUBSCRIBE"
	IntentHostile      ResponseIntent = "HOSTILE"
	IntentPromiseToPay ResponseIntent = "PROMISE_TO_PAY"
	IntentHardship     ResponseIntent = "HARDSHIP"
	IntentPlanRequest  ResponseIntent = "PLAN_REQUEST"
	IntentRedirect     ResponseIntent = "REDIRECT"
	IntentRequestInfo  ResponseIntent = "REQUEST_INFO"
	IntentOutOfOffice  ResponseIntent = "OUT_OF_OFFICE"
	IntentCooperative  ResponseIntent = "COOPERATIVE"
	IntentUnclear      ResponseIntent = "UNCLEAR"
)

// IntentPriority is the strict total order used to resolve multi-intent
// messages: lower index wins. Kept as an array lookup so the ordering stays
// auditable in one place.
var IntentPriority = [...]ResponseIntent{
	IntentInsolvency,
	IntentDispute,
	IntentAlreadyPaid,
	IntentUnsubscribe,
	IntentHostile,
	IntentPromiseToPay,
	IntentHardship,
	IntentPlanRequest,
	IntentRedirect,
	IntentRequestInfo,
	IntentOutOfOffice,
	IntentCooperative,
	IntentUnclear,
}

// PriorityIndex returns the intent's position in the priority order,
// or -1 for unknown intents.
func (i ResponseIntent) PriorityIndex() int {
	for idx, v := range IntentPriority {
		if v == i {
			return idx
		}
	}
	return -1
}

// ParseIntent normalizes a raw classifier label into a canonical intent.
func ParseIntent(label string) (ResponseIntent, bool) {
	intent := ResponseIntent(strings.ToUpper(strings.TrimSpace(label)))
	if intent.PriorityIndex() >= 0 {
		return intent, true
	}
	return IntentUnclear, false
}

// ParseDisputeType normalizes a raw dispute_type value; anything
// unrecognized falls back to "other".
func ParseDisputeType(raw string) DisputeType {
	switch DisputeType(strings.ToLower(strings.TrimSpace(raw))) {
	case DisputeGoodsNotReceived:
		return DisputeGoodsNotReceived
	case DisputeQualityIssue:
		return DisputeQualityIssue
	case DisputePricingError:
		return DisputePricingError
	case DisputeAlreadyPaid:
		return DisputeAlreadyPaid
	case DisputeWrongCustomer:
		return DisputeWrongCustomer
	default:
		return DisputeOther
	}
}
