package lifecycle

import (
	"time"

	"dunning/types"
)

// MaxSenderLevel caps the escalation ladder (1 = collections clerk,
// 4 = head of credit).
const MaxSenderLevel = 4

// Advice is escalation guidance computed alongside the state, advisory only:
// it never causes a transition by itself.
type Advice struct {
	RecommendedSenderLevel int
	Flags                  []types.FlagType
}

// Advise recommends the sender level for the next touch and surfaces the
// escalation flags:
//
//   - level+1 after two consecutive unanswered touches at the current level
//   - LEGAL_RECOMMENDED at three broken promises or a hostile refusal, once
//     the balance reaches the tenant's legal threshold (pursuing smaller
//     amounts through legal costs more than it recovers)
//   - WRITE_OFF_RECOMMENDED when the remaining balance is under the tenant's
//     write-off threshold and a dispute was upheld with an adjustment
func Advise(c *types.Case, cfg types.TenantConfig) Advice {
	level := c.LastSenderLevel
	if level < 1 {
		level = 1
	}

	if unansweredStreakAt(c, level) >= 2 && level < MaxSenderLevel {
		level++
	}

	adv := Advice{RecommendedSenderLevel: level}

	if (c.BrokenPromisesCount >= 3 || c.LastResponseIntent == types.IntentHostile) &&
		c.TotalOutstanding() >= cfg.LegalThreshold {
		adv.Flags = append(adv.Flags, types.FlagLegalRecommended)
	}
	if c.TotalOutstanding() < cfg.WriteOffThreshold && hasUpheldAdjustment(c) {
		adv.Flags = append(adv.Flags, types.FlagWriteOffRecommended)
	}
	return adv
}

// ApplyAdvice stamps the advisory flags onto the case.
func ApplyAdvice(c *types.Case, adv Advice, today time.Time) {
	for _, f := range adv.Flags {
		c.AddFlag(f, "escalation_advice", today)
	}
}

// unansweredStreakAt counts trailing touches at the given sender level with
// no debtor response.
func unansweredStreakAt(c *types.Case, level int) int {
	streak := 0
	for i := len(c.Touches) - 1; i >= 0; i-- {
		t := c.Touches[i]
		if t.SenderLevel != level || t.Responded {
			break
		}
		streak++
	}
	return streak
}

func hasUpheldAdjustment(c *types.Case) bool {
	for _, d := range c.Disputes {
		if d.Status == types.DisputeStatusValidAdjust {
			return true
		}
	}
	return false
}
