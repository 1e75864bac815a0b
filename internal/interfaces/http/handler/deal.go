package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	crmapp "github.com/stocker/backend/internal/application/crm"
	"github.com/stocker/backend/internal/application/mediator"
)

// DealHandler exposes CRM deals.
type DealHandler struct {
	BaseHandler
}

func NewDealHandler(m *mediator.Mediator) *DealHandler {
	return &DealHandler{BaseHandler{mediator: m}}
}

// Create godoc
// @ID           createDeal
// @Summary      Create a deal
// @Tags         crm
// @Accept       json
// @Produce      json
// @Param        request body     crmapp.CreateDealCommand true "Deal"
// @Success      201     {object} APIResponse[crmapp.DealDTO]
// @Failure      400     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals [post]
func (h *DealHandler) Create(c *gin.Context) {
	var cmd crmapp.CreateDealCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.UserID = getTenantID(c), getUserID(c)
	send[crmapp.CreateDealCommand, crmapp.DealDTO](c, h.mediator, cmd, http.StatusCreated)
}

// Update godoc
// @ID           updateDeal
// @Summary      Update an open deal
// @Tags         crm
// @Accept       json
// @Produce      json
// @Param        id      path     string                   true "Deal ID"
// @Param        request body     crmapp.UpdateDealCommand true "Deal"
// @Success      200     {object} APIResponse[crmapp.DealDTO]
// @Failure      404     {object} ErrorResponse
// @Failure      422     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals/{id} [put]
func (h *DealHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd crmapp.UpdateDealCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.DealID = getTenantID(c), id
	send[crmapp.UpdateDealCommand, crmapp.DealDTO](c, h.mediator, cmd, http.StatusOK)
}

// MoveStage godoc
// @ID           moveDealStage
// @Summary      Move a deal to another pipeline stage
// @Tags         crm
// @Accept       json
// @Produce      json
// @Param        id      path     string                      true "Deal ID"
// @Param        request body     crmapp.MoveDealStageCommand true "Stage"
// @Success      200     {object} APIResponse[crmapp.DealDTO]
// @Failure      422     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals/{id}/stage [post]
func (h *DealHandler) MoveStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd crmapp.MoveDealStageCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.DealID = getTenantID(c), id
	send[crmapp.MoveDealStageCommand, crmapp.DealDTO](c, h.mediator, cmd, http.StatusOK)
}

// Win godoc
// @ID           winDeal
// @Summary      Mark a deal as won
// @Tags         crm
// @Produce      json
// @Param        id  path     string true "Deal ID"
// @Success      200 {object} APIResponse[crmapp.DealDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals/{id}/win [post]
func (h *DealHandler) Win(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[crmapp.WinDealCommand, crmapp.DealDTO](c, h.mediator,
		crmapp.WinDealCommand{TenantID: getTenantID(c), DealID: id}, http.StatusOK)
}

// Lose godoc
// @ID           loseDeal
// @Summary      Mark a deal as lost
// @Tags         crm
// @Accept       json
// @Produce      json
// @Param        id      path     string                 true "Deal ID"
// @Param        request body     crmapp.LoseDealCommand true "Reason"
// @Success      200     {object} APIResponse[crmapp.DealDTO]
// @Failure      422     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals/{id}/lose [post]
func (h *DealHandler) Lose(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd crmapp.LoseDealCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.DealID = getTenantID(c), id
	send[crmapp.LoseDealCommand, crmapp.DealDTO](c, h.mediator, cmd, http.StatusOK)
}

// Reopen godoc
// @ID           reopenDeal
// @Summary      Reopen a closed deal
// @Tags         crm
// @Produce      json
// @Param        id  path     string true "Deal ID"
// @Success      200 {object} APIResponse[crmapp.DealDTO]
// @Security     BearerAuth
// @Router       /crm/deals/{id}/reopen [post]
func (h *DealHandler) Reopen(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[crmapp.ReopenDealCommand, crmapp.DealDTO](c, h.mediator,
		crmapp.ReopenDealCommand{TenantID: getTenantID(c), DealID: id}, http.StatusOK)
}

// Delete godoc
// @ID           deleteDeal
// @Summary      Delete a deal
// @Tags         crm
// @Param        id  path string true "Deal ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals/{id} [delete]
func (h *DealHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[crmapp.DeleteDealCommand, struct{}](c, h.mediator,
		crmapp.DeleteDealCommand{TenantID: getTenantID(c), DealID: id}, http.StatusNoContent)
}

// Get godoc
// @ID           getDeal
// @Summary      Get a deal
// @Tags         crm
// @Produce      json
// @Param        id  path     string true "Deal ID"
// @Success      200 {object} APIResponse[crmapp.DealDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /crm/deals/{id} [get]
func (h *DealHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[crmapp.GetDealQuery, crmapp.DealDTO](c, h.mediator,
		crmapp.GetDealQuery{TenantID: getTenantID(c), DealID: id}, http.StatusOK)
}

// List godoc
// @ID           listDeals
// @Summary      List deals
// @Tags         crm
// @Produce      json
// @Param        page        query    int    false "Page"
// @Param        page_size   query    int    false "Page size"
// @Param        status      query    string false "OPEN, WON or LOST"
// @Param        stage       query    string false "Pipeline stage"
// @Param        owner_id    query    string false "Owner"
// @Param        customer_id query    string false "Customer"
// @Success      200         {object} APIResponse[[]crmapp.DealDTO]
// @Security     BearerAuth
// @Router       /crm/deals [get]
func (h *DealHandler) List(c *gin.Context) {
	var q crmapp.ListDealsQuery
	if !bindQuery(c, &q) {
		return
	}
	var ok bool
	if q.OwnerID, ok = queryUUID(c, "owner_id"); !ok {
		return
	}
	if q.CustomerID, ok = queryUUID(c, "customer_id"); !ok {
		return
	}
	q.TenantID = getTenantID(c)
	sendPage[crmapp.ListDealsQuery, crmapp.DealDTO](c, h.mediator, q)
}
