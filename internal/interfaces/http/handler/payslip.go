package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	hrapp "github.com/stocker/backend/internal/application/hr"
	"github.com/stocker/backend/internal/application/mediator"
)

// PayslipHandler exposes HR payslips.
type PayslipHandler struct {
	BaseHandler
}

func NewPayslipHandler(m *mediator.Mediator) *PayslipHandler {
	return &PayslipHandler{BaseHandler{mediator: m}}
}

// Create godoc
// @ID           createPayslip
// @Summary      Create a draft payslip
// @Tags         hr
// @Accept       json
// @Produce      json
// @Param        request body     hrapp.CreatePayslipCommand true "Payslip"
// @Success      201     {object} APIResponse[hrapp.PayslipDTO]
// @Failure      400     {object} ErrorResponse
// @Failure      409     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /hr/payslips [post]
func (h *PayslipHandler) Create(c *gin.Context) {
	var cmd hrapp.CreatePayslipCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.UserID = getTenantID(c), getUserID(c)
	send[hrapp.CreatePayslipCommand, hrapp.PayslipDTO](c, h.mediator, cmd, http.StatusCreated)
}

// AddLine godoc
// @ID           addPayslipLine
// @Summary      Add an earning or deduction line
// @Tags         hr
// @Accept       json
// @Produce      json
// @Param        id      path     string                      true "Payslip ID"
// @Param        request body     hrapp.AddPayslipLineCommand true "Line"
// @Success      200     {object} APIResponse[hrapp.PayslipDTO]
// @Failure      422     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /hr/payslips/{id}/lines [post]
func (h *PayslipHandler) AddLine(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd hrapp.AddPayslipLineCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.PayslipID = getTenantID(c), id
	send[hrapp.AddPayslipLineCommand, hrapp.PayslipDTO](c, h.mediator, cmd, http.StatusOK)
}

// RemoveLine godoc
// @ID           removePayslipLine
// @Summary      Remove a line from a draft payslip
// @Tags         hr
// @Produce      json
// @Param        id      path     string true "Payslip ID"
// @Param        line_id path     string true "Line ID"
// @Success      200     {object} APIResponse[hrapp.PayslipDTO]
// @Security     BearerAuth
// @Router       /hr/payslips/{id}/lines/{line_id} [delete]
func (h *PayslipHandler) RemoveLine(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(c, "line_id")
	if !ok {
		return
	}
	send[hrapp.RemovePayslipLineCommand, hrapp.PayslipDTO](c, h.mediator,
		hrapp.RemovePayslipLineCommand{TenantID: getTenantID(c), PayslipID: id, LineID: lineID}, http.StatusOK)
}

// Finalize godoc
// @ID           finalizePayslip
// @Summary      Finalize a draft payslip
// @Tags         hr
// @Produce      json
// @Param        id  path     string true "Payslip ID"
// @Success      200 {object} APIResponse[hrapp.PayslipDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /hr/payslips/{id}/finalize [post]
func (h *PayslipHandler) Finalize(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[hrapp.FinalizePayslipCommand, hrapp.PayslipDTO](c, h.mediator,
		hrapp.FinalizePayslipCommand{TenantID: getTenantID(c), PayslipID: id}, http.StatusOK)
}

// Revert godoc
// @ID           revertPayslip
// @Summary      Return a finalized payslip to draft
// @Tags         hr
// @Produce      json
// @Param        id  path     string true "Payslip ID"
// @Success      200 {object} APIResponse[hrapp.PayslipDTO]
// @Security     BearerAuth
// @Router       /hr/payslips/{id}/revert [post]
func (h *PayslipHandler) Revert(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[hrapp.RevertPayslipCommand, hrapp.PayslipDTO](c, h.mediator,
		hrapp.RevertPayslipCommand{TenantID: getTenantID(c), PayslipID: id}, http.StatusOK)
}

// MarkPaid godoc
// @ID           markPayslipPaid
// @Summary      Record payment of a finalized payslip
// @Tags         hr
// @Accept       json
// @Produce      json
// @Param        id      path     string                       true "Payslip ID"
// @Param        request body     hrapp.MarkPayslipPaidCommand false "Payment"
// @Success      200     {object} APIResponse[hrapp.PayslipDTO]
// @Security     BearerAuth
// @Router       /hr/payslips/{id}/pay [post]
func (h *PayslipHandler) MarkPaid(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd hrapp.MarkPayslipPaidCommand
	if c.Request.ContentLength != 0 && !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.PayslipID = getTenantID(c), id
	send[hrapp.MarkPayslipPaidCommand, hrapp.PayslipDTO](c, h.mediator, cmd, http.StatusOK)
}

// Cancel godoc
// @ID           cancelPayslip
// @Summary      Cancel a payslip
// @Tags         hr
// @Accept       json
// @Produce      json
// @Param        id      path     string                     true "Payslip ID"
// @Param        request body     hrapp.CancelPayslipCommand false "Reason"
// @Success      200     {object} APIResponse[hrapp.PayslipDTO]
// @Security     BearerAuth
// @Router       /hr/payslips/{id}/cancel [post]
func (h *PayslipHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd hrapp.CancelPayslipCommand
	if c.Request.ContentLength != 0 && !bindJSON(c, &cmd) {
		return
	}
	cmd.TenantID, cmd.PayslipID = getTenantID(c), id
	send[hrapp.CancelPayslipCommand, hrapp.PayslipDTO](c, h.mediator, cmd, http.StatusOK)
}

// Get godoc
// @ID           getPayslip
// @Summary      Get a payslip
// @Tags         hr
// @Produce      json
// @Param        id  path     string true "Payslip ID"
// @Success      200 {object} APIResponse[hrapp.PayslipDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /hr/payslips/{id} [get]
func (h *PayslipHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[hrapp.GetPayslipQuery, hrapp.PayslipDTO](c, h.mediator,
		hrapp.GetPayslipQuery{TenantID: getTenantID(c), PayslipID: id}, http.StatusOK)
}

// List godoc
// @ID           listPayslips
// @Summary      List payslips
// @Tags         hr
// @Produce      json
// @Param        page        query    int    false "Page"
// @Param        page_size   query    int    false "Page size"
// @Param        status      query    string false "DRAFT, FINALIZED, PAID or CANCELLED"
// @Param        employee_id query    string false "Employee"
// @Success      200         {object} APIResponse[[]hrapp.PayslipDTO]
// @Security     BearerAuth
// @Router       /hr/payslips [get]
func (h *PayslipHandler) List(c *gin.Context) {
	var q hrapp.ListPayslipsQuery
	if !bindQuery(c, &q) {
		return
	}
	var ok bool
	if q.EmployeeID, ok = queryUUID(c, "employee_id"); !ok {
		return
	}
	q.TenantID = getTenantID(c)
	sendPage[hrapp.ListPayslipsQuery, hrapp.PayslipDTO](c, h.mediator, q)
}
