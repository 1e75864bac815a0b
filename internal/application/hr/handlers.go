// Package hrapp serves the payslip commands and queries.
package hrapp

import (
	"context"
	"errors"

	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/domain/hr"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type Handlers struct {
	payslips hr.PayslipRepository
	events   shared.EventPublisher
	logger   *zap.Logger
}

func NewHandlers(payslips hr.PayslipRepository, events shared.EventPublisher, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{payslips: payslips, events: events, logger: log.Named("hr")}
}

// Register binds every payslip request type on m.
func (h *Handlers) Register(m *mediator.Mediator) error {
	return errors.Join(
		mediator.Register(m, mediator.HandlerFunc[CreatePayslipCommand, PayslipDTO](h.CreatePayslip)),
		mediator.Register(m, mediator.HandlerFunc[AddPayslipLineCommand, PayslipDTO](h.AddPayslipLine)),
		mediator.Register(m, mediator.HandlerFunc[RemovePayslipLineCommand, PayslipDTO](h.RemovePayslipLine)),
		mediator.Register(m, mediator.HandlerFunc[FinalizePayslipCommand, PayslipDTO](h.FinalizePayslip)),
		mediator.Register(m, mediator.HandlerFunc[RevertPayslipCommand, PayslipDTO](h.RevertPayslip)),
		mediator.Register(m, mediator.HandlerFunc[MarkPayslipPaidCommand, PayslipDTO](h.MarkPayslipPaid)),
		mediator.Register(m, mediator.HandlerFunc[CancelPayslipCommand, PayslipDTO](h.CancelPayslip)),
		mediator.Register(m, mediator.HandlerFunc[GetPayslipQuery, PayslipDTO](h.GetPayslip)),
		mediator.Register(m, mediator.HandlerFunc[ListPayslipsQuery, shared.Paginated[PayslipDTO]](h.ListPayslips)),
	)
}

func (h *Handlers) publish(ctx context.Context, events []shared.DomainEvent) {
	if h.events == nil || len(events) == 0 {
		return
	}
	if err := h.events.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish payslip events", zap.Error(err), zap.Int("count", len(events)))
	}
}
