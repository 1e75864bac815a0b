package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/application/mediator"
	migrationapp "github.com/stocker/backend/internal/application/migration"
	"github.com/stocker/backend/internal/interfaces/http/dto"
)

// MigrationHandler exposes the data-migration pipeline: sessions, chunk
// uploads, validation review and import.
type MigrationHandler struct {
	BaseHandler
	maxUploadBytes int64
}

func NewMigrationHandler(m *mediator.Mediator, maxUploadBytes int64) *MigrationHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &MigrationHandler{BaseHandler: BaseHandler{mediator: m}, maxUploadBytes: maxUploadBytes}
}

// CreateSessionRequest opens a migration session.
type CreateSessionRequest struct {
	Name               string   `json:"name" example:"Legacy ERP cutover"`
	SourceSystem       string   `json:"source_system" example:"stocker_legacy"`
	EntityTypes        []string `json:"entity_types" example:"customer,product"`
	SkipInvalidRecords bool     `json:"skip_invalid_records"`
	ConflictMode       string   `json:"conflict_mode" example:"skip" enums:"skip,update,fail"`
	BatchSize          int      `json:"batch_size" example:"1000"`
}

// FixRecordRequest replaces the data of an invalid record.
type FixRecordRequest struct {
	Data map[string]any `json:"data"`
}

// ListSessionsRequest holds session list filters.
type ListSessionsRequest struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	Status       string `form:"status"`
	SourceSystem string `form:"source_system"`
	Search       string `form:"search"`
}

// ListResultsRequest holds validation result filters.
type ListResultsRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Status     string `form:"status"`
	EntityType string `form:"entity_type"`
}

// CreateSession godoc
// @ID           createMigrationSession
// @Summary      Open a migration session
// @Tags         migration
// @Accept       json
// @Produce      json
// @Param        request body     CreateSessionRequest true "Session"
// @Success      201     {object} APIResponse[migrationapp.SessionDTO]
// @Failure      400     {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions [post]
func (h *MigrationHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := migrationapp.CreateSessionCommand{
		TenantID:           getTenantID(c),
		UserID:             getUserID(c),
		Name:               strings.TrimSpace(req.Name),
		SourceSystem:       req.SourceSystem,
		EntityTypes:        req.EntityTypes,
		SkipInvalidRecords: req.SkipInvalidRecords,
		ConflictMode:       req.ConflictMode,
		BatchSize:          req.BatchSize,
	}
	send[migrationapp.CreateSessionCommand, migrationapp.SessionDTO](c, h.mediator, cmd, http.StatusCreated)
}

// UploadChunk godoc
// @ID           uploadMigrationChunk
// @Summary      Upload a chunk of records
// @Description  Accepts a JSON array of objects or a CSV file, either as the raw request body
// @Description  or as the "file" part of a multipart form. CSV uploads are split into chunks
// @Description  by the session batch size and appended after existing chunks.
// @Tags         migration
// @Accept       json,text/csv,multipart/form-data
// @Produce      json
// @Param        id           path     string true  "Session ID"
// @Param        entity_type  query    string true  "Entity type"
// @Param        chunk_index  query    int    false "Chunk index (JSON uploads)"
// @Param        total_chunks query    int    false "Total chunks (JSON uploads)"
// @Param        file         formData file   false "Upload file"
// @Success      201          {object} APIResponse[migrationapp.UploadChunkResult]
// @Failure      409          {object} ErrorResponse
// @Failure      413          {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/chunks [post]
func (h *MigrationHandler) UploadChunk(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	cmd := migrationapp.UploadChunkCommand{
		TenantID:   getTenantID(c),
		SessionID:  id,
		EntityType: formOrQuery(c, "entity_type"),
	}
	if cmd.ChunkIndex, ok = intParam(c, "chunk_index"); !ok {
		return
	}
	if cmd.TotalChunks, ok = intParam(c, "total_chunks"); !ok {
		return
	}
	data, ok := h.readUpload(c)
	if !ok {
		return
	}
	cmd.Data = data
	send[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](c, h.mediator, cmd, http.StatusCreated)
}

// readUpload returns the upload bytes from a multipart "file" part or the raw
// body, bounded by the configured upload size.
func (h *MigrationHandler) readUpload(c *gin.Context) ([]byte, bool) {
	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, dto.ErrCodeBadRequest, "Multipart upload must include a file part")
			return nil, false
		}
		if fh.Size > h.maxUploadBytes {
			h.tooLarge(c)
			return nil, false
		}
		f, err := fh.Open()
		if err != nil {
			handleError(c, err)
			return nil, false
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(io.LimitReader(src, h.maxUploadBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return nil, false
		}
		handleError(c, err)
		return nil, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.tooLarge(c)
		return nil, false
	}
	if len(data) == 0 {
		badRequest(c, dto.ErrCodeBadRequest, "Upload is empty")
		return nil, false
	}
	return data, true
}

func (h *MigrationHandler) tooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodePayloadTooLarge,
		"Upload exceeds "+strconv.FormatInt(h.maxUploadBytes, 10)+" bytes", getRequestID(c)))
}

// CompleteUpload godoc
// @ID           completeMigrationUpload
// @Summary      Close a session for uploads
// @Tags         migration
// @Produce      json
// @Param        id  path     string true "Session ID"
// @Success      200 {object} APIResponse[migrationapp.SessionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/complete [post]
func (h *MigrationHandler) CompleteUpload(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[migrationapp.CompleteUploadCommand, migrationapp.SessionDTO](c, h.mediator,
		migrationapp.CompleteUploadCommand{TenantID: getTenantID(c), SessionID: id}, http.StatusOK)
}

// StartValidation godoc
// @ID           startMigrationValidation
// @Summary      Queue validation of uploaded records
// @Tags         migration
// @Produce      json
// @Param        id  path     string true "Session ID"
// @Success      202 {object} APIResponse[migrationapp.SessionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/validate [post]
func (h *MigrationHandler) StartValidation(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[migrationapp.StartValidationCommand, migrationapp.SessionDTO](c, h.mediator,
		migrationapp.StartValidationCommand{TenantID: getTenantID(c), SessionID: id}, http.StatusAccepted)
}

// StartImport godoc
// @ID           startMigrationImport
// @Summary      Queue import of validated records
// @Tags         migration
// @Produce      json
// @Param        id  path     string true "Session ID"
// @Success      202 {object} APIResponse[migrationapp.SessionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/import [post]
func (h *MigrationHandler) StartImport(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[migrationapp.StartImportCommand, migrationapp.SessionDTO](c, h.mediator,
		migrationapp.StartImportCommand{TenantID: getTenantID(c), SessionID: id}, http.StatusAccepted)
}

// CancelSession godoc
// @ID           cancelMigrationSession
// @Summary      Cancel a session
// @Tags         migration
// @Produce      json
// @Param        id  path     string true "Session ID"
// @Success      200 {object} APIResponse[migrationapp.SessionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/cancel [post]
func (h *MigrationHandler) CancelSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[migrationapp.CancelSessionCommand, migrationapp.SessionDTO](c, h.mediator,
		migrationapp.CancelSessionCommand{TenantID: getTenantID(c), SessionID: id}, http.StatusOK)
}

// GetSession godoc
// @ID           getMigrationSession
// @Summary      Get a session with its progress
// @Tags         migration
// @Produce      json
// @Param        id  path     string true "Session ID"
// @Success      200 {object} APIResponse[migrationapp.SessionDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id} [get]
func (h *MigrationHandler) GetSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[migrationapp.GetSessionQuery, migrationapp.SessionDTO](c, h.mediator,
		migrationapp.GetSessionQuery{TenantID: getTenantID(c), SessionID: id}, http.StatusOK)
}

// ListSessions godoc
// @ID           listMigrationSessions
// @Summary      List sessions
// @Tags         migration
// @Produce      json
// @Param        page          query    int    false "Page"
// @Param        page_size     query    int    false "Page size"
// @Param        status        query    string false "Session status"
// @Param        source_system query    string false "Source system"
// @Param        search        query    string false "Name contains"
// @Success      200           {object} APIResponse[[]migrationapp.SessionDTO]
// @Security     BearerAuth
// @Router       /migration/sessions [get]
func (h *MigrationHandler) ListSessions(c *gin.Context) {
	var req ListSessionsRequest
	if !bindQuery(c, &req) {
		return
	}
	sendPage[migrationapp.ListSessionsQuery, migrationapp.SessionDTO](c, h.mediator, migrationapp.ListSessionsQuery{
		TenantID:     getTenantID(c),
		Page:         req.Page,
		PageSize:     req.PageSize,
		Status:       strings.ToUpper(req.Status),
		SourceSystem: req.SourceSystem,
		Search:       req.Search,
	})
}

// ListChunks godoc
// @ID           listMigrationChunks
// @Summary      List the chunks uploaded to a session
// @Tags         migration
// @Produce      json
// @Param        id  path     string true "Session ID"
// @Success      200 {object} APIResponse[[]migrationapp.ChunkDTO]
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/chunks [get]
func (h *MigrationHandler) ListChunks(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	send[migrationapp.ListChunksQuery, []migrationapp.ChunkDTO](c, h.mediator,
		migrationapp.ListChunksQuery{TenantID: getTenantID(c), SessionID: id}, http.StatusOK)
}

// ListResults godoc
// @ID           listMigrationResults
// @Summary      List per-record validation results
// @Tags         migration
// @Produce      json
// @Param        id          path     string true  "Session ID"
// @Param        page        query    int    false "Page"
// @Param        page_size   query    int    false "Page size"
// @Param        status      query    string false "VALID, WARNING, ERROR, FIXED or SKIPPED"
// @Param        entity_type query    string false "Entity type"
// @Param        chunk_id    query    string false "Chunk"
// @Success      200         {object} APIResponse[[]migrationapp.ValidationResultDTO]
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/results [get]
func (h *MigrationHandler) ListResults(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req ListResultsRequest
	if !bindQuery(c, &req) {
		return
	}
	q := migrationapp.ListValidationResultsQuery{
		TenantID:   getTenantID(c),
		SessionID:  id,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Status:     strings.ToUpper(req.Status),
		EntityType: req.EntityType,
	}
	if q.ChunkID, ok = queryUUID(c, "chunk_id"); !ok {
		return
	}
	sendPage[migrationapp.ListValidationResultsQuery, migrationapp.ValidationResultDTO](c, h.mediator, q)
}

// Summary godoc
// @ID           getMigrationSummary
// @Summary      Validation counts and the most frequent issues
// @Tags         migration
// @Produce      json
// @Param        id         path     string true  "Session ID"
// @Param        top_issues query    int    false "Number of issues to return"
// @Success      200        {object} APIResponse[migrationapp.ValidationSummaryDTO]
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/summary [get]
func (h *MigrationHandler) Summary(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	top, ok := intParam(c, "top_issues")
	if !ok {
		return
	}
	send[migrationapp.GetValidationSummaryQuery, migrationapp.ValidationSummaryDTO](c, h.mediator,
		migrationapp.GetValidationSummaryQuery{TenantID: getTenantID(c), SessionID: id, TopIssues: top}, http.StatusOK)
}

// FixRecord godoc
// @ID           fixMigrationRecord
// @Summary      Replace the data of an invalid record and re-validate it
// @Tags         migration
// @Accept       json
// @Produce      json
// @Param        id        path     string           true "Session ID"
// @Param        result_id path     string           true "Validation result ID"
// @Param        request   body     FixRecordRequest true "Corrected record"
// @Success      200       {object} APIResponse[migrationapp.ValidationResultDTO]
// @Failure      422       {object} ErrorResponse
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/results/{result_id}/fix [post]
func (h *MigrationHandler) FixRecord(c *gin.Context) {
	sessionID, resultID, ok := resultPath(c)
	if !ok {
		return
	}
	var req FixRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	send[migrationapp.FixRecordCommand, migrationapp.ValidationResultDTO](c, h.mediator, migrationapp.FixRecordCommand{
		TenantID:  getTenantID(c),
		SessionID: sessionID,
		ResultID:  resultID,
		Data:      req.Data,
	}, http.StatusOK)
}

// SkipRecord godoc
// @ID           skipMigrationRecord
// @Summary      Exclude a record from import
// @Tags         migration
// @Produce      json
// @Param        id        path     string true "Session ID"
// @Param        result_id path     string true "Validation result ID"
// @Success      200       {object} APIResponse[migrationapp.ValidationResultDTO]
// @Security     BearerAuth
// @Router       /migration/sessions/{id}/results/{result_id}/skip [post]
func (h *MigrationHandler) SkipRecord(c *gin.Context) {
	sessionID, resultID, ok := resultPath(c)
	if !ok {
		return
	}
	send[migrationapp.SkipRecordCommand, migrationapp.ValidationResultDTO](c, h.mediator,
		migrationapp.SkipRecordCommand{TenantID: getTenantID(c), SessionID: sessionID, ResultID: resultID}, http.StatusOK)
}

func resultPath(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	resultID, ok := pathUUID(c, "result_id")
	return sessionID, resultID, ok
}

func formOrQuery(c *gin.Context, name string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return c.PostForm(name)
}

// intParam parses an optional integer from the query string or form.
func intParam(c *gin.Context, name string) (int, bool) {
	raw := formOrQuery(c, name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, dto.ErrCodeInvalidInput, "Invalid "+name+": must be an integer")
		return 0, false
	}
	return v, true
}
