package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"dunning/logic/classify"
	"dunning/logic/gates"
	"dunning/logic/lifecycle"
	"dunning/types"
)

// CaseRepository is the arena the engine works against; the core never
// touches storage directly.
type CaseRepository interface {
	Create(ctx context.Context, c *types.Case) error
	Get(ctx context.Context, caseID string) (*types.Case, error)
	// Save persists the whole case (state, nested records, flags) in one
	// commit; a state transition is atomic at this boundary.
	Save(ctx context.Context, c *types.Case) error
	ListByTenant(ctx context.Context, tenantID string, states ...types.CaseState) ([]*types.Case, error)
	GetTenantConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error)
}

// Classifier is the opaque NLU collaborator.
type Classifier interface {
	Classify(ctx context.Context, email types.InboundEmail, c *types.Case, cfg types.TenantConfig) (classify.Resolution, error)
}

// Adviser is the opaque tone/CTA capability; the state machine never
// hardcodes tone logic.
type Adviser interface {
	Hints(ctx context.Context, c *types.Case, senderLevel int) (tone string, cta string, err error)
}

// Notifier receives fire-and-forget case events; delivery failures are
// logged, never block a cycle.
type Notifier interface {
	Publish(ctx context.Context, n types.Notification) error
	PublishBatch(ctx context.Context, ns []types.Notification) error
}

// CaseInput is one case's inbound slice for a cycle: at most one new debtor
// message plus the payments received since the last cycle, ordered.
type CaseInput struct {
	CaseID   string
	Message  *types.InboundEmail
	Payments []types.Payment
}

// CycleService drives one processing cycle per tenant: gate filtering,
// response classification, state transitions and the CycleDecision handed to
// the draft-generation collaborator.
type CycleService struct {
	repo        CaseRepository
	classifier  Classifier
	adviser     Adviser
	notifier    Notifier
	parallelism int
	now         func() time.Time
}

func NewCycleService(repo CaseRepository, classifier Classifier, adviser Adviser, notifier Notifier) *CycleService {
	return &CycleService{
		repo:        repo,
		classifier:  classifier,
		adviser:     adviser,
		notifier:    notifier,
		parallelism: 8,
		now:         time.Now,
	}
}

// CreateCase evaluates the creation gates and opens a case only when all of
// them pass. Ineligible debtors are never represented as a case.
func (s *CycleService) CreateCase(ctx context.Context, snap types.CustomerSnapshot) (*types.Case, []types.GateResult, error) {
	cfg, err := s.tenantConfig(ctx, snap.TenantID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()

	results := gates.EvaluateCreation(snap, cfg, now)
	if !gates.AllPassed(results) {
		return nil, results, nil
	}

	c := &types.Case{
		CaseID:          newCaseID(),
		PartyID:         snap.PartyID,
		TenantID:        snap.TenantID,
		State:           types.StateActive,
		StateEnteredAt:  now,
		LastSenderLevel: 1,
		HasValidEmail:   snap.HasValidEmail,
		Obligations:     snap.Obligations,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, results, fmt.Errorf("create case: %w", err)
	}
	log.Printf("[Cycle] created case %s for party %s", c.CaseID, c.PartyID)
	return c, results, nil
}

// RunCycle processes one tenant's batch. Cases are independent units of
// work evaluated in parallel; everything for a single case runs on one
// goroutine, so per-case access stays serialized. The cycle can be aborted
// between cases via ctx, never mid-transition. A ConfigurationError aborts
// this tenant only.
func (s *CycleService) RunCycle(ctx context.Context, tenantID string, inputs []CaseInput) ([]types.CycleDecision, error) {
	cfg, err := s.tenantConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	decisions := make([]types.CycleDecision, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err // cycle aborted between cases
			}
			d, err := s.processCase(gctx, cfg, in)
			if err != nil {
				// Degrade: skip this case, flag upstream, keep the batch going.
				log.Printf("[Cycle] case %s skipped: %v", in.CaseID, err)
				d = types.CycleDecision{CaseID: in.CaseID, Generate: false, Reason: "processing error - flagged for review"}
			}
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decisions, err
	}
	return decisions, nil
}

// HandleInbound classifies and applies one debtor reply outside the normal
// cycle cadence, committing the resulting transition immediately.
func (s *CycleService) HandleInbound(ctx context.Context, caseID string, email types.InboundEmail) (types.CycleDecision, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return types.CycleDecision{}, err
	}
	cfg, err := s.tenantConfig(ctx, c.TenantID)
	if err != nil {
		return types.CycleDecision{}, err
	}
	return s.evaluate(ctx, cfg, c, CaseInput{CaseID: caseID, Message: &email})
}

func (s *CycleService) processCase(ctx context.Context, cfg types.TenantConfig, in CaseInput) (types.CycleDecision, error) {
	c, err := s.repo.Get(ctx, in.CaseID)
	if err != nil {
		return types.CycleDecision{}, err
	}
	return s.evaluate(ctx, cfg, c, in)
}

// evaluate runs the per-case pipeline: payment/promise/plan events, then the
// inbound message, then the cycle gates, then the decision. The case is
// saved exactly once, after all mutations; that save is the transition's
// atomic commit.
func (s *CycleService) evaluate(ctx context.Context, cfg types.TenantConfig, c *types.Case, in CaseInput) (types.CycleDecision, error) {
	today := s.now()
	var notifications []types.Notification
	ctaOverride := ""

	apply := func(ev lifecycle.Event) {
		tr, err := lifecycle.Apply(c, ev, today)
		if err != nil {
			// Malformed collaborator input never reaches here from cycle
			// events; log defensively and carry on.
			log.Printf("[Cycle] case %s event %s rejected: %v", c.CaseID, ev.Kind, err)
			return
		}
		if tr.Invalid != nil {
			log.Printf("[Cycle] case %s: %v", c.CaseID, tr.Invalid)
		}
		if tr.CTAHint != "" {
			ctaOverride = tr.CTAHint
		}
		notifications = append(notifications, tr.Notifications...)
	}

	if !c.State.Terminal() {
		switch c.State {
		case types.StatePausedPromise:
			apply(lifecycle.Event{Kind: lifecycle.EventPromiseCheck, Payments: in.Payments})
		case types.StatePlan:
			apply(lifecycle.Event{Kind: lifecycle.EventPlanTick, Payments: in.Payments})
		default:
			if len(in.Payments) > 0 {
				apply(lifecycle.Event{Kind: lifecycle.EventPayments, Payments: in.Payments})
			}
		}
	}

	if in.Message != nil && !c.State.Terminal() {
		res, err := s.classifier.Classify(ctx, *in.Message, c, cfg)
		if err != nil {
			// The adapter already degrades internally; a hard error here
			// still must not block the cycle.
			log.Printf("[Cycle] case %s classification failed: %v", c.CaseID, err)
			res = classify.Resolution{Intent: types.IntentUnclear, NeedsAttention: true}
		}
		apply(lifecycle.Event{Kind: lifecycle.EventIntent, Intent: &res})
	}

	results := gates.EvaluateCycle(c, cfg, today)
	for _, f := range gates.FlagsFor(results) {
		reason := "gate_failure"
		c.AddFlag(f, reason, today)
	}

	advice := lifecycle.Advise(c, cfg)
	lifecycle.ApplyAdvice(c, advice, today)

	decision := types.CycleDecision{CaseID: c.CaseID}
	if gates.AllPassed(results) {
		tone, cta := s.hints(ctx, c, advice.RecommendedSenderLevel)
		if ctaOverride != "" {
			cta = ctaOverride
		}
		decision.Generate = true
		decision.Reason = "all gates passed"
		decision.ToneHint = tone
		decision.CTAHint = cta
		decision.SenderLevelHint = advice.RecommendedSenderLevel
	} else {
		decision.Generate = false
		decision.Reason = gates.RecommendedAction(results)
		decision.FailedGates = gates.FailedGates(results)
	}

	c.UpdatedAt = today
	if err := s.repo.Save(ctx, c); err != nil {
		return types.CycleDecision{}, fmt.Errorf("save case %s: %w", c.CaseID, err)
	}

	s.publish(ctx, notifications)
	return decision, nil
}

func (s *CycleService) hints(ctx context.Context, c *types.Case, senderLevel int) (string, string) {
	if s.adviser != nil {
		tone, cta, err := s.adviser.Hints(ctx, c, senderLevel)
		if err == nil && tone != "" {
			return tone, cta
		}
		if err != nil {
			log.Printf("[Cycle] adviser failed for case %s, using ladder fallback: %v", c.CaseID, err)
		}
	}
	return DeterministicHints(c, senderLevel)
}

func (s *CycleService) publish(ctx context.Context, notifications []types.Notification) {
	if s.notifier == nil || len(notifications) == 0 {
		return
	}
	if err := s.notifier.PublishBatch(ctx, notifications); err != nil {
		log.Printf("[Notify] batch of %d events failed: %v", len(notifications), err)
	}
}

func (s *CycleService) tenantConfig(ctx context.Context, tenantID string) (types.TenantConfig, error) {
	cfg, err := s.repo.GetTenantConfig(ctx, tenantID)
	if err != nil {
		return types.TenantConfig{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return types.TenantConfig{}, err
	}
	return *cfg, nil
}
