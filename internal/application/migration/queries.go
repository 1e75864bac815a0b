package migrationapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
)

const defaultTopIssues = 10

type GetSessionQuery struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
}

func (q GetSessionQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListSessionsQuery struct {
	TenantID     uuid.UUID
	Page         int    `validate:"gte=0"`
	PageSize     int    `validate:"gte=0,lte=200"`
	Status       string `validate:"omitempty,oneof=CREATED UPLOADING UPLOADED VALIDATING VALIDATED IMPORTING COMPLETED FAILED CANCELLED"`
	SourceSystem string
	Search       string
}

func (q ListSessionsQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListChunksQuery struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
}

func (q ListChunksQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListValidationResultsQuery struct {
	TenantID   uuid.UUID
	SessionID  uuid.UUID `validate:"required"`
	Page       int       `validate:"gte=0"`
	PageSize   int       `validate:"gte=0,lte=200"`
	Status     string    `validate:"omitempty,oneof=VALID WARNING ERROR FIXED SKIPPED"`
	EntityType string
	ChunkID    *uuid.UUID
}

func (q ListValidationResultsQuery) GetTenantID() uuid.UUID { return q.TenantID }

type GetValidationSummaryQuery struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
	TopIssues int       `validate:"gte=0,lte=100"`
}

func (q GetValidationSummaryQuery) GetTenantID() uuid.UUID { return q.TenantID }

func (h *Handlers) GetSession(ctx context.Context, q GetSessionQuery) (SessionDTO, error) {
	s, err := h.deps.Sessions.FindByID(ctx, q.TenantID, q.SessionID)
	if err != nil {
		return SessionDTO{}, err
	}
	return ToSessionDTO(s), nil
}

func (h *Handlers) ListSessions(ctx context.Context, q ListSessionsQuery) (shared.Paginated[SessionDTO], error) {
	filter := migration.SessionFilter{
		Filter:       pageFilter(q.Page, q.PageSize, q.Search),
		Status:       migration.SessionStatus(strings.ToUpper(q.Status)),
		SourceSystem: migration.SourceSystem(strings.ToLower(q.SourceSystem)),
	}
	sessions, total, err := h.deps.Sessions.FindAll(ctx, q.TenantID, filter)
	if err != nil {
		return shared.Paginated[SessionDTO]{}, err
	}
	items := make([]SessionDTO, len(sessions))
	for i := range sessions {
		items[i] = ToSessionDTO(&sessions[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (h *Handlers) ListChunks(ctx context.Context, q ListChunksQuery) ([]ChunkDTO, error) {
	if _, err := h.deps.Sessions.FindByID(ctx, q.TenantID, q.SessionID); err != nil {
		return nil, err
	}
	chunks, err := h.deps.Chunks.FindBySession(ctx, q.TenantID, q.SessionID)
	if err != nil {
		return nil, err
	}
	out := make([]ChunkDTO, len(chunks))
	for i := range chunks {
		out[i] = ToChunkDTO(&chunks[i])
	}
	return out, nil
}

func (h *Handlers) ListValidationResults(ctx context.Context, q ListValidationResultsQuery) (shared.Paginated[ValidationResultDTO], error) {
	if _, err := h.deps.Sessions.FindByID(ctx, q.TenantID, q.SessionID); err != nil {
		return shared.Paginated[ValidationResultDTO]{}, err
	}
	filter := migration.ResultFilter{
		Filter:     pageFilter(q.Page, q.PageSize, ""),
		Status:     migration.RecordStatus(strings.ToUpper(q.Status)),
		EntityType: migration.EntityType(strings.ToLower(q.EntityType)),
		ChunkID:    q.ChunkID,
	}
	filter.OrderBy = "record_index"
	filter.OrderDir = "asc"

	results, total, err := h.deps.Results.FindBySession(ctx, q.TenantID, q.SessionID, filter)
	if err != nil {
		return shared.Paginated[ValidationResultDTO]{}, err
	}
	items := make([]ValidationResultDTO, len(results))
	for i := range results {
		items[i] = ToValidationResultDTO(&results[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// GetValidationSummary counts results per status, overall and per entity
// type, and lists the most frequent issues.
func (h *Handlers) GetValidationSummary(ctx context.Context, q GetValidationSummaryQuery) (ValidationSummaryDTO, error) {
	session, err := h.deps.Sessions.FindByID(ctx, q.TenantID, q.SessionID)
	if err != nil {
		return ValidationSummaryDTO{}, err
	}
	counts, err := h.deps.Results.CountByStatus(ctx, q.TenantID, q.SessionID)
	if err != nil {
		return ValidationSummaryDTO{}, err
	}
	limit := q.TopIssues
	if limit == 0 {
		limit = defaultTopIssues
	}
	issues, err := h.deps.Results.TopIssues(ctx, q.TenantID, q.SessionID, limit)
	if err != nil {
		return ValidationSummaryDTO{}, err
	}

	summary := ValidationSummaryDTO{
		SessionID: session.ID,
		Status:    string(session.Status),
		Totals:    make(map[string]int64),
		ByEntity:  make([]EntitySummary, 0, len(session.EntityTypes)),
		TopIssues: make([]IssueSummaryDTO, len(issues)),
	}
	byEntity := make(map[migration.EntityType]int, len(session.EntityTypes))
	for _, et := range session.EntityTypes {
		byEntity[et] = len(summary.ByEntity)
		summary.ByEntity = append(summary.ByEntity, EntitySummary{EntityType: string(et), Counts: make(map[string]int64)})
	}
	for _, c := range counts {
		summary.Totals[string(c.Status)] += c.Count
		i, ok := byEntity[c.EntityType]
		if !ok {
			continue
		}
		summary.ByEntity[i].Counts[string(c.Status)] += c.Count
	}
	for i, is := range issues {
		summary.TopIssues[i] = IssueSummaryDTO{Field: is.Field, Code: is.Code, Count: is.Count}
	}
	return summary, nil
}

func pageFilter(page, pageSize int, search string) shared.Filter {
	f := shared.DefaultFilter()
	f.Page = page
	f.PageSize = pageSize
	f.Search = search
	return f.Normalize()
}
