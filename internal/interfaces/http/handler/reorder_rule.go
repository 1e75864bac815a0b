package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/stocker/backend/internal/application/inventory"
	"github.com/stocker/backend/internal/application/mediator"
)

// ReorderRuleHandler exposes inventory replenishment rules.
type ReorderRuleHandler struct {
	BaseHandler
}

func NewReorderRuleHandler(m *mediator.Mediator) *ReorderRuleHandler {
	return &ReorderRuleHandler{BaseHandler{mediator: m}}
}

// Create godoc
// @ID           createReorderRule
// @Summary      Create a reorder rule
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body     inventoryapp.CreateReorderRuleCommand true "Rule"
// @Success      201     {object} APIResponse[inventoryapp.ReorderRuleDTO]
// @Failure      409     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reorder-rules [post]
func (h *ReorderRuleHandler) Create(c *gin.Context) {
	var cmd inventoryapp.CreateReorderRuleCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.UserID = getTenantID(c), getUserID(c)
	send[inventoryapp.CreateReorderRuleCommand, inventoryapp.ReorderRuleDTO](c, h.mediator, cmd, http.StatusCreated)
}

// Update godoc
// @ID           updateReorderRule
// @Summary      Change the levels of a reorder rule
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id      path     string                                true "Rule ID"
// @Param        request body     inventoryapp.UpdateReorderRuleCommand true "Levels"
// @Success      200     {object} APIResponse[inventoryapp.ReorderRuleDTO]
// @Security     BearerAuth
// @Router       /inventory/reorder-rules/{id} [put]
func (h *ReorderRuleHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd inventoryapp.UpdateReorderRuleCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.RuleID = getTenantID(c), id
	send[inventoryapp.UpdateReorderRuleCommand, inventoryapp.ReorderRuleDTO](c, h.mediator, cmd, http.StatusOK)
}

// Pause godoc
// @ID           pauseReorderRule
// @Summary      Pause a reorder rule
// @Tags         inventory
// @Produce      json
// @Param        id  path     string true "Rule ID"
// @Success      200 {object} APIResponse[inventoryapp.ReorderRuleDTO]
// @Security     BearerAuth
// @Router       /inventory/reorder-rules/{id}/pause [post]
func (h *ReorderRuleHandler) Pause(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[inventoryapp.PauseReorderRuleCommand, inventoryapp.ReorderRuleDTO](c, h.mediator,
		inventoryapp.PauseReorderRuleCommand{TenantID: getTenantID(c), RuleID: id}, http.StatusOK)
}

// Activate godoc
// @ID           activateReorderRule
// @Summary      Resume a paused reorder rule
// @Tags         inventory
// @Produce      json
// @Param        id  path     string true "Rule ID"
// @Success      200 {object} APIResponse[inventoryapp.ReorderRuleDTO]
// @Security     BearerAuth
// @Router       /inventory/reorder-rules/{id}/activate [post]
func (h *ReorderRuleHandler) Activate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[inventoryapp.ActivateReorderRuleCommand, inventoryapp.ReorderRuleDTO](c, h.mediator,
		inventoryapp.ActivateReorderRuleCommand{TenantID: getTenantID(c), RuleID: id}, http.StatusOK)
}

// Disable godoc
// @ID           disableReorderRule
// @Summary      Disable a reorder rule
// @Tags         inventory
// @Produce      json
// @Param        id  path     string true "Rule ID"
// @Success      200 {object} APIResponse[inventoryapp.ReorderRuleDTO]
// @Security     BearerAuth
// @Router       /inventory/reorder-rules/{id}/disable [post]
func (h *ReorderRuleHandler) Disable(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[inventoryapp.DisableReorderRuleCommand, inventoryapp.ReorderRuleDTO](c, h.mediator,
		inventoryapp.DisableReorderRuleCommand{TenantID: getTenantID(c), RuleID: id}, http.StatusOK)
}

// Trigger godoc
// @ID           triggerReorderRule
// @Summary      Record a replenishment request for the given stock level
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id      path     string                                 true "Rule ID"
// @Param        request body     inventoryapp.TriggerReorderRuleCommand true "Stock level"
// @Success      200     {object} APIResponse[inventoryapp.ReorderSuggestionDTO]
// @Failure      422     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reorder-rules/{id}/trigger [post]
func (h *ReorderRuleHandler) Trigger(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd inventoryapp.TriggerReorderRuleCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.RuleID = getTenantID(c), id
	send[inventoryapp.TriggerReorderRuleCommand, inventoryapp.ReorderSuggestionDTO](c, h.mediator, cmd, http.StatusOK)
}

// Check godoc
// @ID           checkReorder
// @Summary      Evaluate a product's rule against a stock level without recording it
// @Tags         inventory
// @Produce      json
// @Param        product_id   query    string true  "Product"
// @Param        warehouse_id query    string false "Warehouse"
// @Param        on_hand      query    number true  "Quantity on hand"
// @Success      200          {object} APIResponse[inventoryapp.ReorderSuggestionDTO]
// @Failure      404          {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reorder-check [get]
func (h *ReorderRuleHandler) Check(c *gin.Context) {
	q := inventoryapp.CheckReorderQuery{TenantID: getTenantID(c)}
	productID, ok := queryUUID(c, "product_id")
	if !ok {
		return
	}
	if productID != nil {
		q.ProductID = *productID
	}
	if q.WarehouseID, ok = queryUUID(c, "warehouse_id"); !ok {
		return
	}
	if q.OnHand, ok = queryDecimal(c, "on_hand"); !ok {
		return
	}
	send[inventoryapp.CheckReorderQuery, inventoryapp.ReorderSuggestionDTO](c, h.mediator, q, http.StatusOK)
}

// Get godoc
// @ID           getReorderRule
// @Summary      Get a reorder rule
// @Tags         inventory
// @Produce      json
// @Param        id  path     string true "Rule ID"
// @Success      200 {object} APIResponse[inventoryapp.ReorderRuleDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reorder-rules/{id} [get]
func (h *ReorderRuleHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[inventoryapp.GetReorderRuleQuery, inventoryapp.ReorderRuleDTO](c, h.mediator,
		inventoryapp.GetReorderRuleQuery{TenantID: getTenantID(c), RuleID: id}, http.StatusOK)
}

// List godoc
// @ID           listReorderRules
// @Summary      List reorder rules
// @Tags         inventory
// @Produce      json
// @Param        page         query    int    false "Page"
// @Param        page_size    query    int    false "Page size"
// @Param        status       query    string false "ACTIVE, PAUSED or DISABLED"
// @Param        product_id   query    string false "Product"
// @Param        warehouse_id query    string false "Warehouse"
// @Success      200          {object} APIResponse[[]inventoryapp.ReorderRuleDTO]
// @Security     BearerAuth
// @Router       /inventory/reorder-rules [get]
func (h *ReorderRuleHandler) List(c *gin.Context) {
	var q inventoryapp.ListReorderRulesQuery
	if !bindQuery(c, &q) {
		return
	}
	var ok bool
	if q.ProductID, ok = queryUUID(c, "product_id"); !ok {
		return
	}
	if q.WarehouseID, ok = queryUUID(c, "warehouse_id"); !ok {
		return
	}
	q.TenantID = getTenantID(c)
	sendPage[inventoryapp.ListReorderRulesQuery, inventoryapp.ReorderRuleDTO](c, h.mediator, q)
}
