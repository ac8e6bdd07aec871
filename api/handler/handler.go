package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"dunning/api/response"
	"dunning/service"
	"dunning/types"
)

type CaseHandler struct {
	cycleSvc  *service.CycleService
	actionSvc *service.ActionService
}

func NewCaseHandler(cycleSvc *service.CycleService, actionSvc *service.ActionService) *CaseHandler {
	return &CaseHandler{
		cycleSvc:  cycleSvc,
		actionSvc: actionSvc,
	}
}

// Create opens a case for a debtor snapshot. When a creation gate fails the
// gate results are returned and no case exists.
func (h *CaseHandler) Create(c *gin.Context) {
	var snap types.CustomerSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		response.Fail(c, "invalid snapshot payload")
		return
	}
	cs, results, err := h.cycleSvc.CreateCase(c.Request.Context(), snap)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	if cs == nil {
		response.Success(c, map[string]any{
			"created": false,
			"gates":   results,
		})
		return
	}
	response.Success(c, map[string]any{
		"created": true,
		"case":    cs,
		"gates":   results,
	})
}

func (h *CaseHandler) Get(c *gin.Context) {
	cs, err := h.actionSvc.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}

// Inbound hands over one debtor reply for classification and immediate
// processing.
func (h *CaseHandler) Inbound(c *gin.Context) {
	var email types.InboundEmail
	if err := c.ShouldBindJSON(&email); err != nil {
		response.Fail(c, "invalid email payload")
		return
	}
	decision, err := h.cycleSvc.HandleInbound(c.Request.Context(), c.Param("id"), email)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, decision)
}

type cycleRequest struct {
	TenantID string              `json:"tenant_id" binding:"required"`
	Inputs   []service.CaseInput `json:"inputs"`
}

// RunCycle triggers a processing cycle for one tenant on demand.
func (h *CaseHandler) RunCycle(c *gin.Context) {
	var req cycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid cycle request: tenant_id required")
		return
	}
	decisions, err := h.cycleSvc.RunCycle(c.Request.Context(), req.TenantID, req.Inputs)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, decisions)
}

type disputeVerdictRequest struct {
	Verdict        string   `json:"verdict" binding:"required"`
	AdjustedAmount *float64 `json:"adjusted_amount,omitempty"`
}

func (h *CaseHandler) ResolveDispute(c *gin.Context) {
	var req disputeVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid verdict payload")
		return
	}
	cs, err := h.actionSvc.ResolveDispute(c.Request.Context(), c.Param("id"), req.Verdict, req.AdjustedAmount)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}

func (h *CaseHandler) SetHold(c *gin.Context) {
	h.action(c, h.actionSvc.SetHold)
}

func (h *CaseHandler) LiftHold(c *gin.Context) {
	h.action(c, h.actionSvc.LiftHold)
}

type planRequest struct {
	Instalments []types.Instalment `json:"instalments" binding:"required"`
}

// ApprovePlan records the client's approval of an instalment schedule.
func (h *CaseHandler) ApprovePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid plan payload")
		return
	}
	cs, err := h.actionSvc.ApprovePlan(c.Request.Context(), c.Param("id"), req.Instalments)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}

type planDecisionRequest struct {
	Decision string `json:"decision" binding:"required"` // ACTIVE or LEGAL
}

// PlanDecision is the client's call after a plan failure.
func (h *CaseHandler) PlanDecision(c *gin.Context) {
	var req planDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid decision payload")
		return
	}
	cs, err := h.actionSvc.PlanDecision(c.Request.Context(), c.Param("id"), req.Decision)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}

func (h *CaseHandler) ApproveLegal(c *gin.Context) {
	h.action(c, h.actionSvc.ApproveLegal)
}

func (h *CaseHandler) ApproveWriteOff(c *gin.Context) {
	h.action(c, h.actionSvc.ApproveWriteOff)
}

type clearFlagRequest struct {
	Flag string `json:"flag" binding:"required"`
}

func (h *CaseHandler) ClearFlag(c *gin.Context) {
	var req clearFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid flag payload")
		return
	}
	cs, err := h.actionSvc.ClearFlag(c.Request.Context(), c.Param("id"), req.Flag)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}

type touchRequest struct {
	Channel     string `json:"channel" binding:"required"`
	Tone        string `json:"tone" binding:"required"`
	SenderLevel int    `json:"sender_level" binding:"required"`
}

// RecordTouch registers an outbound message after the draft service sent it.
func (h *CaseHandler) RecordTouch(c *gin.Context) {
	var req touchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid touch payload")
		return
	}
	cs, err := h.actionSvc.RecordTouch(c.Request.Context(), c.Param("id"), req.Channel, req.Tone, req.SenderLevel)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}

func (h *CaseHandler) Health(c *gin.Context) {
	response.Success(c, map[string]string{"status": "ok"})
}

// action wraps the bodyless case actions.
func (h *CaseHandler) action(c *gin.Context, fn func(ctx context.Context, caseID string) (*types.Case, error)) {
	cs, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err.Error())
		return
	}
	response.Success(c, cs)
}
