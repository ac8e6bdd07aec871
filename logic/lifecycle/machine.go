// Package lifecycle owns the case state machine. It consumes gate results,
// response intents and payment events, mutates the case in memory and
// reports what happened; persistence of the whole mutation in one commit is
// the caller's job, which is what makes a transition atomic.
package lifecycle

import (
	"fmt"
	"time"

	"dunning/logic/classify"
	"dunning/logic/dispute"
	"dunning/logic/plan"
	"dunning/logic/promise"
	"dunning/types"
)

// Transition reports the outcome of applying one event.
type Transition struct {
	From    types.CaseState
	To      types.CaseState
	Changed bool

	Effects       []string
	CTAHint       string
	Notifications []types.Notification
	PlanEvents    []plan.Event

	// Invalid is set when the event did not apply to the current state.
	// The case stays put, gets flagged ATTENTION_NEEDED, and the cycle
	// carries on. This is a diagnostic, never a crash.
	Invalid *types.InvalidTransitionError
}

func (t *Transition) effect(format string, args ...any) {
	t.Effects = append(t.Effects, fmt.Sprintf(format, args...))
}

func (t *Transition) notify(c *types.Case, kind types.NotificationKind, detail string, at time.Time) {
	t.Notifications = append(t.Notifications, types.Notification{
		Kind:     kind,
		TenantID: c.TenantID,
		CaseID:   c.CaseID,
		Detail:   detail,
		At:       at,
	})
}

// Apply feeds one event into the machine. The returned error is non-nil only
// for malformed external input (a ValidationError from the promise, dispute
// or plan trackers); in that situation the case is unaffected. An event that
// simply does not fit the current state is reported via Transition.Invalid.
func Apply(c *types.Case, ev Event, today time.Time) (Transition, error) {
	tr := Transition{From: c.State, To: c.State}

	if c.State.Terminal() {
		return invalid(c, &tr, ev.Kind, today), nil
	}

	switch ev.Kind {
	case EventIntent:
		if ev.Intent == nil {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		return applyIntent(c, &tr, *ev.Intent, today)

	case EventPayments:
		applied := c.ApplyPayments(ev.Payments)
		if applied > 0 {
			tr.effect("applied %.2f in payments", applied)
		}
		if c.State == types.StateActive && c.TotalOutstanding() <= types.AmountTolerance {
			move(c, &tr, types.StatePaidInFull, today)
			tr.effect("balance cleared - paid in full")
		}
		return tr, nil

	case EventPromiseCheck:
		return applyPromiseCheck(c, &tr, ev.Payments, today)

	case EventPlanTick:
		if c.State != types.StatePlan || c.Plan == nil {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		c.ApplyPayments(ev.Payments)
		tr.PlanEvents = plan.Tick(c.Plan, today, ev.Payments)
		switch c.Plan.Status {
		case types.PlanCompleted:
			move(c, &tr, types.StatePaidInFull, today)
			tr.effect("all instalments paid")
		case types.PlanFailed:
			// Advisory only: resuming ACTIVE or going LEGAL is the
			// client's decision, delivered later as EventPlanDecision.
			tr.notify(c, types.NotifyPlanFailed, "instalment 14+ days overdue", today)
		}
		return tr, nil

	case EventHoldSet:
		c.ManualHold = true
		if c.State == types.StateActive {
			move(c, &tr, types.StatePausedManual, today)
		} else {
			// Hold is orthogonal elsewhere: it suppresses drafts without
			// disturbing the pause the case is already in.
			tr.effect("manual hold set while %s", c.State)
		}
		return tr, nil

	case EventHoldLifted:
		c.ManualHold = false
		if c.State == types.StatePausedManual {
			move(c, &tr, types.StateActive, today)
		}
		return tr, nil

	case EventPlanAgreed:
		if c.State != types.StateActive {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		p, err := plan.Create(c, ev.Instalments, today)
		if err != nil {
			return tr, err
		}
		move(c, &tr, types.StatePlan, today)
		tr.effect("plan agreed with %d instalments", len(p.Instalments))
		return tr, nil

	case EventDisputeResolved:
		if c.State != types.StatePausedDispute {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		d, err := dispute.Resolve(c, ev.Verdict, ev.AdjustedAmount, today)
		if err != nil {
			return tr, err
		}
		switch d.Status {
		case types.DisputeStatusValidCancel:
			move(c, &tr, types.StateWriteOff, today)
			tr.effect("dispute upheld, all obligations cancelled")
		default: // invalid or valid_adjust
			if c.TotalOutstanding() <= types.AmountTolerance {
				move(c, &tr, types.StatePaidInFull, today)
			} else {
				move(c, &tr, types.StateActive, today)
			}
			tr.effect("dispute resolved as %s", d.Status)
		}
		return tr, nil

	case EventPlanDecision:
		if c.State != types.StatePlan || c.Plan == nil || c.Plan.Status != types.PlanFailed {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		switch ev.Decision {
		case types.StateActive:
			move(c, &tr, types.StateActive, today)
			tr.effect("failed plan abandoned, collection resumed")
		case types.StateLegal:
			move(c, &tr, types.StateLegal, today)
			tr.effect("failed plan referred to legal")
		default:
			return tr, &types.ValidationError{Field: "decision", Msg: "plan decision must be ACTIVE or LEGAL"}
		}
		return tr, nil

	case EventLegalApproved:
		if c.State != types.StateActive {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		move(c, &tr, types.StateLegal, today)
		tr.effect("legal referral approved - draft generation stopped permanently")
		return tr, nil

	case EventWriteOffApproved:
		if c.State != types.StateActive {
			return invalid(c, &tr, ev.Kind, today), nil
		}
		move(c, &tr, types.StateWriteOff, today)
		return tr, nil
	}

	return invalid(c, &tr, ev.Kind, today), nil
}

// applyIntent handles a resolved inbound response. Transition-causing
// intents only fire from ACTIVE; everywhere else they degrade to a flagged
// no-op so a human can untangle the situation.
func applyIntent(c *types.Case, tr *Transition, res classify.Resolution, today time.Time) (Transition, error) {
	c.LastResponseIntent = res.Intent
	markResponded(c)
	if res.NeedsAttention {
		c.AddFlag(types.FlagAttentionNeeded, "classification_unclear", today)
	}

	switch res.Intent {
	case types.IntentInsolvency:
		// Modeled as a manual hold with the insolvency flag: collection
		// stops immediately and a human takes over.
		c.ManualHold = true
		c.AddFlag(types.FlagInsolvencyDetected, "insolvency_signal", today)
		if c.State == types.StateActive {
			move(c, tr, types.StatePausedManual, today)
		}
		tr.notify(c, types.NotifyInsolvency, res.Reasoning, today)
		return *tr, nil

	case types.IntentDispute:
		if c.State != types.StateActive {
			return invalidIntent(c, tr, res.Intent, today), nil
		}
		d := dispute.Open(c, types.ParseDisputeType(res.Extracted.DisputeType), res.Extracted.DisputeReason, today)
		c.AddFlag(types.FlagDisputePending, string(d.Type), today)
		move(c, tr, types.StatePausedDispute, today)
		tr.notify(c, types.NotifyDisputeOpened, string(d.Type), today)
		return *tr, nil

	case types.IntentAlreadyPaid:
		c.AddFlag(types.FlagAttentionNeeded, "already_paid_claim", today)
		tr.notify(c, types.NotifyAlreadyPaidVerify, res.Extracted.DisputeReason, today)
		tr.effect("already-paid claim - verification requested")
		return *tr, nil

	case types.IntentUnsubscribe:
		c.AddFlag(types.FlagAttentionNeeded, "unsubscribe_requested", today)
		tr.effect("unsubscribe requested - contact suppression is external")
		return *tr, nil

	case types.IntentHostile:
		// Hostility never transitions; it flags and the case continues.
		c.AddFlag(types.FlagAttentionNeeded, "hostile_response", today)
		return *tr, nil

	case types.IntentPromiseToPay:
		if c.State != types.StateActive {
			return invalidIntent(c, tr, res.Intent, today), nil
		}
		_, err := promise.Record(c, res.Extracted.PromiseDate, res.Extracted.PromiseAmount, today)
		if err != nil {
			// Vague or unusable date: no pause. The next draft asks for a
			// specific date instead.
			tr.CTAHint = "request a specific payment date"
			tr.effect("vague promise - staying active")
			return *tr, nil
		}
		move(c, tr, types.StatePausedPromise, today)
		tr.effect("promise recorded")
		return *tr, nil

	case types.IntentHardship:
		// Tone and CTA adapt; the state does not. An insolvency signal in
		// the same message would have won the priority resolution instead.
		c.HardshipIndicated = true
		tr.CTAHint = "acknowledge difficulty, offer a payment plan"
		return *tr, nil

	case types.IntentPlanRequest:
		c.Notes = append(c.Notes, "debtor asked to pay in instalments")
		tr.CTAHint = "propose an instalment plan for approval"
		return *tr, nil

	case types.IntentRedirect:
		c.Notes = append(c.Notes, fmt.Sprintf("redirect to %s <%s>", res.Extracted.RedirectContact, res.Extracted.RedirectEmail))
		return *tr, nil

	case types.IntentRequestInfo:
		tr.CTAHint = "attach the requested invoice copy or statement"
		return *tr, nil

	case types.IntentOutOfOffice:
		if res.Extracted.ReturnDate != "" {
			c.Notes = append(c.Notes, "out of office until "+res.Extracted.ReturnDate)
		} else {
			c.Notes = append(c.Notes, "out of office auto-reply received")
		}
		return *tr, nil

	case types.IntentCooperative:
		c.Notes = append(c.Notes, "cooperative response")
		return *tr, nil

	case types.IntentUnclear:
		c.AddFlag(types.FlagAttentionNeeded, "classification_unclear", today)
		return *tr, nil
	}

	return invalidIntent(c, tr, res.Intent, today), nil
}

func applyPromiseCheck(c *types.Case, tr *Transition, payments []types.Payment, today time.Time) (Transition, error) {
	p := c.PendingPromise()
	if c.State != types.StatePausedPromise || p == nil {
		return invalid(c, tr, EventPromiseCheck, today), nil
	}

	c.ApplyPayments(payments)

	// Payments arrive across cycle windows; what the balance has come down
	// by since the promise was recorded is the cumulative amount paid.
	paid := p.BaselineOutstanding - c.TotalOutstanding()

	switch promise.CheckDue(p, paid, today) {
	case types.PromiseKept:
		if c.TotalOutstanding() <= types.AmountTolerance {
			move(c, tr, types.StatePaidInFull, today)
		} else {
			move(c, tr, types.StateActive, today)
		}
		tr.effect("promise kept")
	case types.PromisePartial:
		move(c, tr, types.StateActive, today)
		tr.CTAHint = "acknowledge the partial payment, chase the remainder"
		tr.effect("promise partially kept")
	case types.PromiseBroken:
		c.BrokenPromisesCount++
		move(c, tr, types.StateActive, today)
		tr.effect("promise broken (%d total)", c.BrokenPromisesCount)
	case types.PromisePending:
		// not due yet, or still inside the grace window
	}
	return *tr, nil
}

func move(c *types.Case, tr *Transition, to types.CaseState, at time.Time) {
	c.SetState(to, at)
	tr.To = to
	tr.Changed = tr.From != to
}

func invalid(c *types.Case, tr *Transition, kind EventKind, today time.Time) Transition {
	tr.Invalid = &types.InvalidTransitionError{State: c.State, Event: string(kind)}
	c.AddFlag(types.FlagAttentionNeeded, "invalid_transition:"+string(kind), today)
	return *tr
}

func invalidIntent(c *types.Case, tr *Transition, intent types.ResponseIntent, today time.Time) Transition {
	tr.Invalid = &types.InvalidTransitionError{State: c.State, Event: string(intent)}
	c.AddFlag(types.FlagAttentionNeeded, "intent_in_wrong_state:"+string(intent), today)
	return *tr
}

// markResponded marks the latest touch as answered, which resets the
// consecutive-silence streak used by the escalation advice.
func markResponded(c *types.Case) {
	if len(c.Touches) > 0 {
		c.Touches[len(c.Touches)-1].Responded = true
	}
}
