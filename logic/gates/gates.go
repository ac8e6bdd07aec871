// Package gates evaluates the deterministic predicates that block case
// creation and per-cycle draft generation. Gate order is fixed, but every
// gate is always evaluated and returned so the caller gets full diagnostics;
// the batch as a whole passes only when all gates pass.
package gates

import (
	"fmt"
	"time"

	"dunning/types"
)

const (
	GateMinimumBalance  = "minimum_balance"
	GateHasOverdue      = "has_overdue"
	GateStatuteBar      = "statute_bar"
	GatePositiveBalance = "positive_balance"
	GateTouchCap        = "touch_cap"
	GateNotPaused       = "not_paused"
	GateNoManualHold    = "no_manual_hold"
	GateValidContact    = "valid_contact"
)

// EvaluateCreation runs the case-creation gates against a customer snapshot.
// All gates must pass for a case to be created. Missing required data is
// treated as a gate failure, never a crash.
func EvaluateCreation(snap types.CustomerSnapshot, cfg types.TenantConfig, today time.Time) []types.GateResult {
	return []types.GateResult{
		evalMinimumBalance(snap, cfg),
		evalHasOverdue(snap, cfg, today),
		evalStatuteBar(GateStatuteBar, oldestOpenDueDate(snap.Obligations), cfg, today),
	}
}

// EvaluateCycle runs the per-cycle gates against an existing case. Any
// failure means no draft this cycle; the case state is unchanged.
func EvaluateCycle(c *types.Case, cfg types.TenantConfig, today time.Time) []types.GateResult {
	oldest, found := c.OldestOpenDueDate()
	var oldestPtr *time.Time
	if found {
		oldestPtr = &oldest
	}
	return []types.GateResult{
		evalPositiveBalance(c),
		evalTouchCap(c, cfg, today),
		evalNotPaused(c),
		evalNoManualHold(c),
		evalValidContact(c),
		evalStatuteBar(GateStatuteBar, oldestPtr, cfg, today),
	}
}

// AllPassed is the logical AND over a gate batch.
func AllPassed(results []types.GateResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FailedGates lists the names of failed gates, in evaluation order.
func FailedGates(results []types.GateResult) []string {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Gate)
		}
	}
	return failed
}

// FlagsFor maps gate failures to the advisory flags they carry: the total
// touch cap flags ATTENTION_NEEDED, a missing contact flags NO_VALID_CONTACT.
// Per-channel exhaustion alone does not flag.
func FlagsFor(results []types.GateResult) []types.FlagType {
	var flags []types.FlagType
	for _, r := range results {
		if r.Passed {
			continue
		}
		switch r.Gate {
		case GateTouchCap:
			flags = append(flags, types.FlagAttentionNeeded)
		case GateValidContact:
			flags = append(flags, types.FlagNoValidContact)
		}
	}
	return flags
}

// RecommendedAction suggests what the reviewer should do about the most
// blocking failure.
func RecommendedAction(results []types.GateResult) string {
	failed := map[string]bool{}
	for _, r := range results {
		if !r.Passed {
			failed[r.Gate] = true
		}
	}
	switch {
	case failed[GateStatuteBar]:
		return "Debt is statute barred - review enforceability before any contact"
	case failed[GatePositiveBalance]:
		return "Nothing outstanding - close the case as paid in full"
	case failed[GateNotPaused]:
		return "Case is paused - wait for the pause to resolve"
	case failed[GateNoManualHold]:
		return "Manual hold is set - lift the hold to resume"
	case failed[GateValidContact]:
		return "No valid email on file - source a working contact"
	case failed[GateTouchCap]:
		return "Touch limit reached - wait for the rolling window to free up"
	case failed[GateMinimumBalance]:
		return "Balance below the collection threshold"
	case failed[GateHasOverdue]:
		return "No obligation past the grace period yet"
	}
	return "Review gate failures and adjust approach"
}

func evalMinimumBalance(snap types.CustomerSnapshot, cfg types.TenantConfig) types.GateResult {
	if snap.NetBalance == nil {
		err := &types.GateEvaluationError{Gate: GateMinimumBalance, Msg: "missing net balance figure"}
		return types.GateResult{
			Gate:      GateMinimumBalance,
			Passed:    false,
			Reason:    err.Error(),
			Threshold: cfg.MinimumThreshold,
		}
	}
	passed := *snap.NetBalance > cfg.MinimumThreshold
	verb := "exceeds"
	if !passed {
		verb = "at or below"
	}
	return types.GateResult{
		Gate:      GateMinimumBalance,
		Passed:    passed,
		Reason:    fmt.Sprintf("net balance (%.2f) %s threshold (%.2f)", *snap.NetBalance, verb, cfg.MinimumThreshold),
		Current:   *snap.NetBalance,
		Threshold: cfg.MinimumThreshold,
	}
}

func evalHasOverdue(snap types.CustomerSnapshot, cfg types.TenantConfig, today time.Time) types.GateResult {
	cutoff := types.DateOnly(today).AddDate(0, 0, -cfg.GraceDays)
	overdue := 0
	for _, o := range snap.Obligations {
		if o.Status == types.ObligationOpen && types.DateOnly(o.DueDate).Before(cutoff) {
			overdue++
		}
	}
	passed := overdue > 0
	reason := fmt.Sprintf("%d obligation(s) past the %d-day grace period", overdue, cfg.GraceDays)
	if !passed {
		reason = fmt.Sprintf("no obligation past the %d-day grace period", cfg.GraceDays)
	}
	return types.GateResult{
		Gate:      GateHasOverdue,
		Passed:    passed,
		Reason:    reason,
		Current:   overdue,
		Threshold: cfg.GraceDays,
	}
}

// evalStatuteBar checks the oldest open obligation against the jurisdiction's
// limitation period. Re-checked every cycle: a case can age past the
// limitation period after creation.
func evalStatuteBar(gate string, oldestDue *time.Time, cfg types.TenantConfig, today time.Time) types.GateResult {
	years, ok := cfg.StatuteLimitYears()
	if !ok {
		err := &types.GateEvaluationError{Gate: gate, Msg: fmt.Sprintf("unknown jurisdiction %q - limitation period unavailable", cfg.StatuteCountry)}
		return types.GateResult{
			Gate:   gate,
			Passed: false,
			Reason: err.Error(),
		}
	}
	if oldestDue == nil {
		// Nothing open to assess; HasOverdue / PositiveBalance govern this.
		return types.GateResult{
			Gate:      gate,
			Passed:    true,
			Reason:    "no open obligations to assess",
			Threshold: years,
		}
	}
	expiry := types.DateOnly(*oldestDue).AddDate(years, 0, 0)
	passed := types.DateOnly(today).Before(expiry)
	reason := fmt.Sprintf("oldest debt within the %d-year limitation period (%s)", years, cfg.StatuteCountry)
	if !passed {
		reason = fmt.Sprintf("oldest debt past the %d-year limitation period (%s) - statute barred", years, cfg.StatuteCountry)
	}
	return types.GateResult{
		Gate:      gate,
		Passed:    passed,
		Reason:    reason,
		Current:   oldestDue.Format("2006-01-02"),
		Threshold: years,
	}
}

func evalPositiveBalance(c *types.Case) types.GateResult {
	total := c.TotalOutstanding()
	passed := total > 0
	reason := fmt.Sprintf("total outstanding %.2f", total)
	if !passed {
		reason = "nothing outstanding"
	}
	return types.GateResult{
		Gate:      GatePositiveBalance,
		Passed:    passed,
		Reason:    reason,
		Current:   total,
		Threshold: 0.0,
	}
}

// evalTouchCap enforces the rolling-window touch caps. The gate fails only
// on the total cap; per-channel exhaustion is deliberately a pass, because
// it merely forces a rotation to another channel (channel selection is
// external) and only the total cap can actually block the draft. The
// rotation requirement is surfaced in the passing result's reason.
func evalTouchCap(c *types.Case, cfg types.TenantConfig, today time.Time) types.GateResult {
	windowStart := today.AddDate(0, 0, -cfg.TouchPeriodDays)
	total := 0
	perChannel := map[string]int{}
	for _, t := range c.Touches {
		if t.SentAt.Before(windowStart) {
			continue
		}
		total++
		perChannel[t.Channel]++
	}
	if total >= cfg.MaxTouchesTotal {
		return types.GateResult{
			Gate:      GateTouchCap,
			Passed:    false,
			Reason:    fmt.Sprintf("total touches (%d) at or exceeds cap (%d) within %d days", total, cfg.MaxTouchesTotal, cfg.TouchPeriodDays),
			Current:   total,
			Threshold: cfg.MaxTouchesTotal,
		}
	}
	if c.LastTouchChannel != "" && perChannel[c.LastTouchChannel] >= cfg.MaxTouchesPerChannel {
		return types.GateResult{
			Gate:      GateTouchCap,
			Passed:    true,
			Reason:    fmt.Sprintf("channel %q at per-channel cap (%d) - rotation required", c.LastTouchChannel, cfg.MaxTouchesPerChannel),
			Current:   perChannel[c.LastTouchChannel],
			Threshold: cfg.MaxTouchesPerChannel,
		}
	}
	return types.GateResult{
		Gate:      GateTouchCap,
		Passed:    true,
		Reason:    fmt.Sprintf("touches (%d) below cap (%d) within %d days", total, cfg.MaxTouchesTotal, cfg.TouchPeriodDays),
		Current:   total,
		Threshold: cfg.MaxTouchesTotal,
	}
}

func evalNotPaused(c *types.Case) types.GateResult {
	passed := c.State == types.StateActive
	reason := "case is ACTIVE"
	if !passed {
		reason = fmt.Sprintf("case is %s - no drafts from this state", c.State)
	}
	return types.GateResult{
		Gate:      GateNotPaused,
		Passed:    passed,
		Reason:    reason,
		Current:   string(c.State),
		Threshold: string(types.StateActive),
	}
}

func evalNoManualHold(c *types.Case) types.GateResult {
	reason := "no manual hold"
	if c.ManualHold {
		reason = "manual hold set - draft generation suppressed"
	}
	return types.GateResult{
		Gate:      GateNoManualHold,
		Passed:    !c.ManualHold,
		Reason:    reason,
		Current:   c.ManualHold,
		Threshold: false,
	}
}

func evalValidContact(c *types.Case) types.GateResult {
	reason := "at least one non-bounced email address"
	if !c.HasValidEmail {
		reason = "no valid email address on file"
	}
	return types.GateResult{
		Gate:      GateValidContact,
		Passed:    c.HasValidEmail,
		Reason:    reason,
		Current:   c.HasValidEmail,
		Threshold: true,
	}
}

func oldestOpenDueDate(obligations []types.Obligation) *time.Time {
	var oldest *time.Time
	for i := range obligations {
		o := obligations[i]
		if o.Status != types.ObligationOpen {
			continue
		}
		if oldest == nil || o.DueDate.Before(*oldest) {
			d := o.DueDate
			oldest = &d
		}
	}
	return oldest
}
