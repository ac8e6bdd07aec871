package types

import (
	"math"
	"time"
)

// CaseState is the lifecycle state of a collection case.
// LEGAL, WO and PIF are terminal: no outbound transition exists from them.
type CaseState string

const (
	StateActive        CaseState = "ACTIVE"
	StatePausedPromise CaseState = "PAUSED_PROMISE"
	StatePausedDispute CaseState = "PAUSED_DISPUTE"
	StatePausedManual  CaseState = "PAUSED_MANUAL"
	StatePlan          CaseState = "PLAN"
	StateLegal         CaseState = "LEGAL"
	StateWriteOff      CaseState = "WO"
	StatePaidInFull    CaseState = "PIF"
)

func (s CaseState) Terminal() bool {
	return s == StateLegal || s == StateWriteOff || s == StatePaidInFull
}

func (s CaseState) Valid() bool {
	switch s {
	case StateActive, StatePausedPromise, StatePausedDispute, StatePausedManual,
		StatePlan, StateLegal, StateWriteOff, StatePaidInFull:
		return true
	}
	return false
}

// AmountTolerance is the rounding tolerance for money comparisons.
// Amounts are float64 backed by decimal(15,2) columns.
const AmountTolerance = 0.01

// FlagType marks a case for human attention. Flags are advisory: they never
// force a state transition and are cleared only by an explicit external action.
type FlagType string

const (
	FlagAttentionNeeded     FlagType = "ATTENTION_NEEDED"
	FlagNoValidContact      FlagType = "NO_VALID_CONTACT"
	FlagDisputePending      FlagType = "DISPUTE_PENDING"
	FlagInsolvencyDetected  FlagType = "INSOLVENCY_DETECTED"
	FlagLegalRecommended    FlagType = "LEGAL_RECOMMENDED"
	FlagWriteOffRecommended FlagType = "WRITE_OFF_RECOMMENDED"
)

type Flag struct {
	Type        FlagType  `json:"type"`
	ReasonCode  string    `json:"reason_code"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// Obligation is one outstanding invoice. It is owned by exactly one case.
type Obligation struct {
	InvoiceNumber     string    `json:"invoice_number"`
	OriginalAmount    float64   `json:"original_amount"`
	OutstandingAmount float64   `json:"outstanding_amount"`
	DueDate           time.Time `json:"due_date"`
	Status            string    `json:"status"` // open / paid / credited
}

const (
	ObligationOpen     = "open"
	ObligationPaid     = "paid"
	ObligationCredited = "credited"
)

// DaysPastDue is today minus due date, floored at zero.
func (o Obligation) DaysPastDue(today time.Time) int {
	d := int(DateOnly(today).Sub(DateOnly(o.DueDate)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

type PromiseOutcome string

const (
	PromisePending PromiseOutcome = "pending"
	PromiseKept    PromiseOutcome = "kept"
	PromiseBroken  PromiseOutcome = "broken"
	PromisePartial PromiseOutcome = "partial"
)

// Promise is a debtor commitment to pay a specific amount by a specific date.
// BaselineOutstanding is the case balance when the promise was recorded;
// payments land across cycle windows, so resolution measures the cumulative
// amount paid as baseline minus current outstanding rather than trusting any
// single window's payment slice.
type Promise struct {
	ID                  string         `json:"id"`
	PromiseDate         time.Time      `json:"promise_date"`
	PromiseAmount       float64        `json:"promise_amount"`
	BaselineOutstanding float64        `json:"baseline_outstanding"`
	CreatedAt           time.Time      `json:"created_at"`
	Outcome             PromiseOutcome `json:"outcome"`
}

type DisputeType string

const (
	DisputeGoodsNotReceived DisputeType = "goods_not_received"
	DisputeQualityIssue     DisputeType = "quality_issue"
	DisputePricingError     DisputeType = "pricing_error"
	DisputeAlreadyPaid      DisputeType = "already_paid"
	DisputeWrongCustomer    DisputeType = "wrong_customer"
	DisputeOther            DisputeType = "other"
)

type DisputeStatus string

const (
	DisputeStatusPending     DisputeStatus = "pending"
	DisputeStatusInvalid     DisputeStatus = "invalid"
	DisputeStatusValidAdjust DisputeStatus = "valid_adjust"
	DisputeStatusValidCancel DisputeStatus = "valid_cancel"
)

type Dispute struct {
	ID         string        `json:"id"`
	Type       DisputeType   `json:"dispute_type"`
	ReasonText string        `json:"reason_text"`
	Status     DisputeStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

func (d Dispute) Resolved() bool { return d.Status != DisputeStatusPending }

type InstalmentStatus string

const (
	InstalmentPending InstalmentStatus = "pending"
	InstalmentPaid    InstalmentStatus = "paid"
)

// Instalment accrues partial payments across ticks in PaidSoFar; it flips to
// paid once the accrued total covers Amount.
type Instalment struct {
	DueDate   time.Time        `json:"due_date"`
	Amount    float64          `json:"amount"`
	PaidSoFar float64          `json:"paid_so_far"`
	Status    InstalmentStatus `json:"status"`
	PaidAt    *time.Time       `json:"paid_at,omitempty"`
}

type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// Plan is an agreed instalment schedule. Instalments are ordered by due
// date ascending.
type Plan struct {
	ID          string       `json:"id"`
	Instalments []Instalment `json:"instalments"`
	Status      PlanStatus   `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Touch is one outbound communication sent to the debtor.
type Touch struct {
	Channel     string    `json:"channel"`
	SentAt      time.Time `json:"sent_at"`
	SenderLevel int       `json:"sender_level"`
	Tone        string    `json:"tone"`
	Responded   bool      `json:"responded"`
}

// Payment is one payment received, supplied per case per cycle by the
// payments collaborator, ordered by ReceivedAt.
type Payment struct {
	Amount     float64   `json:"amount"`
	ReceivedAt time.Time `json:"received_at"`
}

func SumPayments(payments []Payment) float64 {
	var total float64
	for _, p := range payments {
		total += p.Amount
	}
	return total
}

// Case is one collection effort per debtor party, aggregating all their
// overdue obligations. It is never per invoice.
type Case struct {
	CaseID         string    `json:"case_id"`
	PartyID        string    `json:"party_id"`
	TenantID       string    `json:"tenant_id"`
	State          CaseState `json:"state"`
	StateEnteredAt time.Time `json:"state_entered_at"`

	ManualHold       bool       `json:"manual_hold"`
	TouchCount       int        `json:"touch_count"`
	LastTouchAt      *time.Time `json:"last_touch_at,omitempty"`
	LastTouchChannel string     `json:"last_touch_channel,omitempty"`
	LastSenderLevel  int        `json:"last_sender_level"`
	LastTone         string     `json:"last_tone,omitempty"`

	BrokenPromisesCount int            `json:"broken_promises_count"`
	ActiveDispute       bool           `json:"active_dispute"`
	HardshipIndicated   bool           `json:"hardship_indicated"`
	HasValidEmail       bool           `json:"has_valid_email"`
	LastResponseIntent  ResponseIntent `json:"last_response_intent,omitempty"`

	Flags       []Flag       `json:"flags"`
	Obligations []Obligation `json:"obligations"`
	Promises    []Promise    `json:"promises"`
	Disputes    []Dispute    `json:"disputes"`
	Plan        *Plan        `json:"plan,omitempty"`
	Touches     []Touch      `json:"touches"`
	Notes       []string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalOutstanding is the exact sum of open obligations' outstanding amounts.
func (c *Case) TotalOutstanding() float64 {
	var total float64
	for _, o := range c.Obligations {
		if o.Status == ObligationOpen {
			total += o.OutstandingAmount
		}
	}
	return total
}

func (c *Case) SetState(to CaseState, at time.Time) {
	if c.State == to {
		return
	}
	c.State = to
	c.StateEnteredAt = at
}

// AddFlag attaches a flag unless one of the same type is already present.
// Returns true when a new flag was added.
func (c *Case) AddFlag(t FlagType, reasonCode string, at time.Time) bool {
	if c.HasFlag(t) {
		return false
	}
	c.Flags = append(c.Flags, Flag{Type: t, ReasonCode: reasonCode, TriggeredAt: at})
	return true
}

func (c *Case) HasFlag(t FlagType) bool {
	for _, f := range c.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// ClearFlag removes a flag. Only an explicit external human action should
// call this; nothing in the engine auto-resolves flags.
func (c *Case) ClearFlag(t FlagType) bool {
	for i, f := range c.Flags {
		if f.Type == t {
			c.Flags = append(c.Flags[:i], c.Flags[i+1:]...)
			return true
		}
	}
	return false
}

// PendingPromise returns the single pending promise, if any.
func (c *Case) PendingPromise() *Promise {
	for i := range c.Promises {
		if c.Promises[i].Outcome == PromisePending {
			return &c.Promises[i]
		}
	}
	return nil
}

// OpenDispute returns the latest unresolved dispute, if any.
func (c *Case) OpenDispute() *Dispute {
	for i := len(c.Disputes) - 1; i >= 0; i-- {
		if !c.Disputes[i].Resolved() {
			return &c.Disputes[i]
		}
	}
	return nil
}

// OldestOpenDueDate returns the earliest due date among open obligations.
func (c *Case) OldestOpenDueDate() (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, o := range c.Obligations {
		if o.Status != ObligationOpen {
			continue
		}
		if !found || o.DueDate.Before(oldest) {
			oldest = o.DueDate
			found = true
		}
	}
	return oldest, found
}

// ApplyPayments reduces open obligations oldest-first and marks them paid
// when fully covered. Returns the amount actually applied.
func (c *Case) ApplyPayments(payments []Payment) float64 {
	pot := SumPayments(payments)
	if pot <= 0 {
		return 0
	}
	applied := 0.0
	for { // oldest open obligation each round
		idx := -1
		for i := range c.Obligations {
			o := &c.Obligations[i]
			if o.Status != ObligationOpen {
				continue
			}
			if idx == -1 || o.DueDate.Before(c.Obligations[idx].DueDate) {
				idx = i
			}
		}
		if idx == -1 || pot <= AmountTolerance {
			break
		}
		o := &c.Obligations[idx]
		take := math.Min(pot, o.OutstandingAmount)
		o.OutstandingAmount -= take
		pot -= take
		applied += take
		if o.OutstandingAmount <= AmountTolerance {
			o.OutstandingAmount = 0
			o.Status = ObligationPaid
		}
	}
	return applied
}

// DateOnly truncates a timestamp to midnight UTC for calendar comparisons.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
