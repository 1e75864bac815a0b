package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	manufacturingapp "github.com/stocker/backend/internal/application/manufacturing"
	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/interfaces/http/dto"
)

// RoutingHandler exposes manufacturing routings.
type RoutingHandler struct {
	BaseHandler
}

func NewRoutingHandler(m *mediator.Mediator) *RoutingHandler {
	return &RoutingHandler{BaseHandler{mediator: m}}
}

// Create godoc
// @ID           createRouting
// @Summary      Create a draft routing
// @Tags         manufacturing
// @Accept       json
// @Produce      json
// @Param        request body     manufacturingapp.CreateRoutingCommand true "Routing"
// @Success      201     {object} APIResponse[manufacturingapp.RoutingDTO]
// @Failure      409     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /manufacturing/routings [post]
func (h *RoutingHandler) Create(c *gin.Context) {
	var cmd manufacturingapp.CreateRoutingCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.UserID = getTenantID(c), getUserID(c)
	send[manufacturingapp.CreateRoutingCommand, manufacturingapp.RoutingDTO](c, h.mediator, cmd, http.StatusCreated)
}

// AddOperation godoc
// @ID           addRoutingOperation
// @Summary      Add an operation to a draft routing
// @Tags         manufacturing
// @Accept       json
// @Produce      json
// @Param        id      path     string                                      true "Routing ID"
// @Param        request body     manufacturingapp.AddRoutingOperationCommand true "Operation"
// @Success      200     {object} APIResponse[manufacturingapp.RoutingDTO]
// @Failure      422     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/operations [post]
func (h *RoutingHandler) AddOperation(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd manufacturingapp.AddRoutingOperationCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.RoutingID = getTenantID(c), id
	send[manufacturingapp.AddRoutingOperationCommand, manufacturingapp.RoutingDTO](c, h.mediator, cmd, http.StatusOK)
}

// RemoveOperation godoc
// @ID           removeRoutingOperation
// @Summary      Remove an operation from a draft routing
// @Tags         manufacturing
// @Produce      json
// @Param        id       path     string true "Routing ID"
// @Param        sequence path     int    true "Operation sequence"
// @Success      200      {object} APIResponse[manufacturingapp.RoutingDTO]
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/operations/{sequence} [delete]
func (h *RoutingHandler) RemoveOperation(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	seq, err := strconv.Atoi(c.Param("sequence"))
	if err != nil {
		badRequest(c, dto.ErrCodeInvalidInput, "Invalid sequence: must be an integer")
		return
	}
	send[manufacturingapp.RemoveRoutingOperationCommand, manufacturingapp.RoutingDTO](c, h.mediator,
		manufacturingapp.RemoveRoutingOperationCommand{TenantID: getTenantID(c), RoutingID: id, Sequence: seq}, http.StatusOK)
}

// Approve godoc
// @ID           approveRouting
// @Summary      Approve a draft routing
// @Tags         manufacturing
// @Produce      json
// @Param        id  path     string true "Routing ID"
// @Success      200 {object} APIResponse[manufacturingapp.RoutingDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/approve [post]
func (h *RoutingHandler) Approve(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[manufacturingapp.ApproveRoutingCommand, manufacturingapp.RoutingDTO](c, h.mediator,
		manufacturingapp.ApproveRoutingCommand{TenantID: getTenantID(c), UserID: getUserID(c), RoutingID: id}, http.StatusOK)
}

// Activate godoc
// @ID           activateRouting
// @Summary      Release an approved routing for production
// @Tags         manufacturing
// @Produce      json
// @Param        id  path     string true "Routing ID"
// @Success      200 {object} APIResponse[manufacturingapp.RoutingDTO]
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/activate [post]
func (h *RoutingHandler) Activate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[manufacturingapp.ActivateRoutingCommand, manufacturingapp.RoutingDTO](c, h.mediator,
		manufacturingapp.ActivateRoutingCommand{TenantID: getTenantID(c), RoutingID: id}, http.StatusOK)
}

// Obsolete godoc
// @ID           obsoleteRouting
// @Summary      Retire a routing
// @Tags         manufacturing
// @Produce      json
// @Param        id  path     string true "Routing ID"
// @Success      200 {object} APIResponse[manufacturingapp.RoutingDTO]
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/obsolete [post]
func (h *RoutingHandler) Obsolete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[manufacturingapp.ObsoleteRoutingCommand, manufacturingapp.RoutingDTO](c, h.mediator,
		manufacturingapp.ObsoleteRoutingCommand{TenantID: getTenantID(c), RoutingID: id}, http.StatusOK)
}

// Revise godoc
// @ID           reviseRouting
// @Summary      Create the next draft revision of a released routing
// @Tags         manufacturing
// @Produce      json
// @Param        id  path     string true "Routing ID"
// @Success      201 {object} APIResponse[manufacturingapp.RoutingDTO]
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/revise [post]
func (h *RoutingHandler) Revise(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[manufacturingapp.ReviseRoutingCommand, manufacturingapp.RoutingDTO](c, h.mediator,
		manufacturingapp.ReviseRoutingCommand{TenantID: getTenantID(c), UserID: getUserID(c), RoutingID: id}, http.StatusCreated)
}

// Get godoc
// @ID           getRouting
// @Summary      Get a routing
// @Tags         manufacturing
// @Produce      json
// @Param        id  path     string true "Routing ID"
// @Success      200 {object} APIResponse[manufacturingapp.RoutingDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id} [get]
func (h *RoutingHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[manufacturingapp.GetRoutingQuery, manufacturingapp.RoutingDTO](c, h.mediator,
		manufacturingapp.GetRoutingQuery{TenantID: getTenantID(c), RoutingID: id}, http.StatusOK)
}

// LeadTime godoc
// @ID           getRoutingLeadTime
// @Summary      Total lead time for producing a quantity
// @Tags         manufacturing
// @Produce      json
// @Param        id       path     string true "Routing ID"
// @Param        quantity query    number true "Quantity"
// @Success      200      {object} APIResponse[manufacturingapp.LeadTimeDTO]
// @Security     BearerAuth
// @Router       /manufacturing/routings/{id}/lead-time [get]
func (h *RoutingHandler) LeadTime(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	qty, ok := queryDecimal(c, "quantity")
	if !ok {
		return
	}
	send[manufacturingapp.GetRoutingLeadTimeQuery, manufacturingapp.LeadTimeDTO](c, h.mediator,
		manufacturingapp.GetRoutingLeadTimeQuery{TenantID: getTenantID(c), RoutingID: id, Quantity: qty}, http.StatusOK)
}

// List godoc
// @ID           listRoutings
// @Summary      List routings
// @Tags         manufacturing
// @Produce      json
// @Param        page       query    int    false "Page"
// @Param        page_size  query    int    false "Page size"
// @Param        status     query    string false "DRAFT, APPROVED, ACTIVE or OBSOLETE"
// @Param        product_id query    string false "Product"
// @Success      200        {object} APIResponse[[]manufacturingapp.RoutingDTO]
// @Security     BearerAuth
// @Router       /manufacturing/routings [get]
func (h *RoutingHandler) List(c *gin.Context) {
	var q manufacturingapp.ListRoutingsQuery
	if !bindQuery(c, &q) {
		return
	}
	var ok bool
	if q.ProductID, ok = queryUUID(c, "product_id"); !ok {
		return
	}
	q.TenantID = getTenantID(c)
	sendPage[manufacturingapp.ListRoutingsQuery, manufacturingapp.RoutingDTO](c, h.mediator, q)
}
