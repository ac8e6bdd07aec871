package router

import (
	"github.com/gin-gonic/gin"

	"dunning/api/handler"
)

func RegisterRoutes(r *gin.Engine, caseH *handler.CaseHandler) {
	r.GET("/health", caseH.Health)

	api := r.Group("/api/v1")
	{
		cases := api.Group("/case")
		{
			cases.POST("", caseH.Create)
			cases.GET("/:id", caseH.Get)
			cases.POST("/:id/inbound", caseH.Inbound)
			cases.POST("/:id/dispute/resolve", caseH.ResolveDispute)
			cases.POST("/:id/hold", caseH.SetHold)
			cases.POST("/:id/hold/lift", caseH.LiftHold)
			cases.POST("/:id/plan", caseH.ApprovePlan)
			cases.POST("/:id/plan/decision", caseH.PlanDecision)
			cases.POST("/:id/legal", caseH.ApproveLegal)
			cases.POST("/:id/writeoff", caseH.ApproveWriteOff)
			cases.POST("/:id/flags/clear", caseH.ClearFlag)
			cases.POST("/:id/touch", caseH.RecordTouch)
		}
		cycle := api.Group("/cycle")
		{
			cycle.POST("/run", caseH.RunCycle)
		}
	}
}
