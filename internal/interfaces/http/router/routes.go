package router

import (
	"github.com/stocker/backend/internal/interfaces/http/handler"
)

// Handlers are the API handlers mounted under /api/v1.
// ChunkUploadRoute is the gin route pattern of migration chunk uploads.
const ChunkUploadRoute = "/api/v1/migration/sessions/:id/chunks"

type Handlers struct {
	Deal        *handler.DealHandler
	Payslip     *handler.PayslipHandler
	ReorderRule *handler.ReorderRuleHandler
	Routing     *handler.RoutingHandler
	Migration   *handler.MigrationHandler
	System      *handler.SystemHandler
}

// DomainGroups returns one route group per bounded context.
func DomainGroups(h Handlers) []RouteRegistrar {
	crm := NewDomainGroup("crm", "/crm")
	crm.POST("/deals", h.Deal.Create).
		GET("/deals", h.Deal.List).
		GET("/deals/:id", h.Deal.Get).
		PUT("/deals/:id", h.Deal.Update).
		DELETE("/deals/:id", h.Deal.Delete).
		POST("/deals/:id/stage", h.Deal.MoveStage).
		POST("/deals/:id/win", h.Deal.Win).
		POST("/deals/:id/lose", h.Deal.Lose).
		POST("/deals/:id/reopen", h.Deal.Reopen)

	hr := NewDomainGroup("hr", "/hr")
	hr.POST("/payslips", h.Payslip.Create).
		GET("/payslips", h.Payslip.List).
		GET("/payslips/:id", h.Payslip.Get).
		POST("/payslips/:id/lines", h.Payslip.AddLine).
		DELETE("/payslips/:id/lines/:line_id", h.Payslip.RemoveLine).
		POST("/payslips/:id/finalize", h.Payslip.Finalize).
		POST("/payslips/:id/revert", h.Payslip.Revert).
		POST("/payslips/:id/pay", h.Payslip.MarkPaid).
		POST("/payslips/:id/cancel", h.Payslip.Cancel)

	inventory := NewDomainGroup("inventory", "/inventory")
	inventory.GET("/reorder-check", h.ReorderRule.Check)
	rules := inventory.Group("reorder-rules", "/reorder-rules")
	rules.POST("", h.ReorderRule.Create).
		GET("", h.ReorderRule.List).
		GET("/:id", h.ReorderRule.Get).
		PUT("/:id", h.ReorderRule.Update).
		POST("/:id/pause", h.ReorderRule.Pause).
		POST("/:id/activate", h.ReorderRule.Activate).
		POST("/:id/disable", h.ReorderRule.Disable).
		POST("/:id/trigger", h.ReorderRule.Trigger)

	manufacturing := NewDomainGroup("manufacturing", "/manufacturing")
	routings := manufacturing.Group("routings", "/routings")
	routings.POST("", h.Routing.Create).
		GET("", h.Routing.List).
		GET("/:id", h.Routing.Get).
		GET("/:id/lead-time", h.Routing.LeadTime).
		POST("/:id/operations", h.Routing.AddOperation).
		DELETE("/:id/operations/:sequence", h.Routing.RemoveOperation).
		POST("/:id/approve", h.Routing.Approve).
		POST("/:id/activate", h.Routing.Activate).
		POST("/:id/obsolete", h.Routing.Obsolete).
		POST("/:id/revise", h.Routing.Revise)

	migration := NewDomainGroup("migration", "/migration")
	sessions := migration.Group("sessions", "/sessions")
	sessions.POST("", h.Migration.CreateSession).
		GET("", h.Migration.ListSessions).
		GET("/:id", h.Migration.GetSession).
		POST("/:id/chunks", h.Migration.UploadChunk).
		GET("/:id/chunks", h.Migration.ListChunks).
		POST("/:id/complete", h.Migration.CompleteUpload).
		POST("/:id/validate", h.Migration.StartValidation).
		POST("/:id/import", h.Migration.StartImport).
		POST("/:id/cancel", h.Migration.CancelSession).
		GET("/:id/summary", h.Migration.Summary).
		GET("/:id/results", h.Migration.ListResults).
		POST("/:id/results/:result_id/fix", h.Migration.FixRecord).
		POST("/:id/results/:result_id/skip", h.Migration.SkipRecord)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	return []RouteRegistrar{crm, hr, inventory, manufacturing, migration, system}
}
