package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"dunning/logic/lifecycle"
	"dunning/types"
)

// ActionService carries the explicit human actions into the engine: dispute
// verdicts, holds, plan approvals and decisions, legal and write-off
// approvals, flag clearing and touch registration. Every action loads the
// case, applies one event and commits in a single save.
type ActionService struct {
	repo     CaseRepository
	notifier Notifier
	now      func() time.Time
}

func NewActionService(repo CaseRepository, notifier Notifier) *ActionService {
	return &ActionService{repo: repo, notifier: notifier, now: time.Now}
}

func (s *ActionService) GetCase(ctx context.Context, caseID string) (*types.Case, error) {
	return s.repo.Get(ctx, caseID)
}

// ResolveDispute applies the client's verdict: invalid, valid_adjust (with
// the new total) or valid_cancel.
func (s *ActionService) ResolveDispute(ctx context.Context, caseID string, verdict string, adjustedAmount *float64) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{
		Kind:           lifecycle.EventDisputeResolved,
		Verdict:        types.DisputeStatus(verdict),
		AdjustedAmount: adjustedAmount,
	})
}

func (s *ActionService) SetHold(ctx context.Context, caseID string) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{Kind: lifecycle.EventHoldSet})
}

func (s *ActionService) LiftHold(ctx context.Context, caseID string) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{Kind: lifecycle.EventHoldLifted})
}

// ApprovePlan records external approval of an instalment plan.
func (s *ActionService) ApprovePlan(ctx context.Context, caseID string, instalments []types.Instalment) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{Kind: lifecycle.EventPlanAgreed, Instalments: instalments})
}

// PlanDecision is the client's call after a plan failure: resume ACTIVE or
// refer to LEGAL.
func (s *ActionService) PlanDecision(ctx context.Context, caseID string, decision string) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{Kind: lifecycle.EventPlanDecision, Decision: types.CaseState(decision)})
}

func (s *ActionService) ApproveLegal(ctx context.Context, caseID string) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{Kind: lifecycle.EventLegalApproved})
}

func (s *ActionService) ApproveWriteOff(ctx context.Context, caseID string) (*types.Case, error) {
	return s.apply(ctx, caseID, lifecycle.Event{Kind: lifecycle.EventWriteOffApproved})
}

// ClearFlag removes an advisory flag. This is the only way flags ever go away.
func (s *ActionService) ClearFlag(ctx context.Context, caseID string, flag string) (*types.Case, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.ClearFlag(types.FlagType(flag)) {
		return nil, &types.ValidationError{Field: "flag", Msg: "no such flag on this case"}
	}
	c.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RecordTouch registers one outbound communication after the draft service
// actually sent it.
func (s *ActionService) RecordTouch(ctx context.Context, caseID, channel, tone string, senderLevel int) (*types.Case, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c.Touches = append(c.Touches, types.Touch{
		Channel:     channel,
		SentAt:      now,
		SenderLevel: senderLevel,
		Tone:        tone,
	})
	c.TouchCount++
	c.LastTouchAt = &now
	c.LastTouchChannel = channel
	c.LastSenderLevel = senderLevel
	c.LastTone = tone
	c.UpdatedAt = now
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ActionService) apply(ctx context.Context, caseID string, ev lifecycle.Event) (*types.Case, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	tr, err := lifecycle.Apply(c, ev, today)
	if err != nil {
		// Malformed input: the case was left untouched, nothing to save.
		return nil, err
	}
	c.UpdatedAt = today
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	for _, n := range tr.Notifications {
		if s.notifier == nil {
			break
		}
		if err := s.notifier.Publish(ctx, n); err != nil {
			log.Printf("[Notify] %s for case %s failed: %v", n.Kind, n.CaseID, err)
		}
	}
	if tr.Invalid != nil {
		return c, tr.Invalid
	}
	return c, nil
}

func newCaseID() string {
	return uuid.New().String()
}
