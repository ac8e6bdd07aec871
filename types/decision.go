package types

import "time"

// GateResult is the outcome of one named gate. Ephemeral, never persisted.
type GateResult struct {
	Gate      string `json:"gate"`
	Passed    bool   `json:"passed"`
	Reason    string `json:"reason"`
	Current   any    `json:"current_value,omitempty"`
	Threshold any    `json:"threshold,omitempty"`
}

// CycleDecision is the per-case output of one processing cycle, consumed by
// the external draft-generation collaborator.
type CycleDecision struct {
	CaseID          string   `json:"case_id"`
	Generate        bool     `json:"generate"`
	Reason          string   `json:"reason"`
	ToneHint        string   `json:"tone_hint,omitempty"`
	CTAHint         string   `json:"cta_hint,omitempty"`
	SenderLevelHint int      `json:"sender_level_hint,omitempty"`
	FailedGates     []string `json:"failed_gates,omitempty"`
}

type NotificationKind string

const (
	NotifyDisputeOpened     NotificationKind = "dispute_opened"
	NotifyInsolvency        NotificationKind = "insolvency_detected"
	NotifyAlreadyPaidVerify NotificationKind = "already_paid_verification"
	NotifyPlanFailed        NotificationKind = "plan_failed"
)

// Notification is a fire-and-forget event for the notification collaborator;
// at-least-once delivery is expected on their side.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	TenantID string           `json:"tenant_id"`
	CaseID   string           `json:"case_id"`
	Detail   string           `json:"detail,omitempty"`
	At       time.Time        `json:"at"`
}

// CustomerSnapshot is the pre-case view of a debtor used by the creation
// gates. NetBalance is a pointer so a missing figure is distinguishable
// from zero (missing data degrades to a failed gate).
type CustomerSnapshot struct {
	PartyID       string       `json:"party_id"`
	TenantID      string       `json:"tenant_id"`
	NetBalance    *float64     `json:"net_balance,omitempty"`
	Obligations   []Obligation `json:"obligations"`
	HasValidEmail bool         `json:"has_valid_email"`
}

// InboundEmail is one debtor reply handed over by the mail collaborator.
type InboundEmail struct {
	FromName    string    `json:"from_name"`
	FromAddress string    `json:"from_address"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
}
