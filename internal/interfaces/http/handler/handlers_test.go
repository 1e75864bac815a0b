package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	crmapp "github.com/stocker/backend/internal/application/crm"
	hrapp "github.com/stocker/backend/internal/application/hr"
	inventoryapp "github.com/stocker/backend/internal/application/inventory"
	manufacturingapp "github.com/stocker/backend/internal/application/manufacturing"
	migrationapp "github.com/stocker/backend/internal/application/migration"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealHandler_Create(t *testing.T) {
	m := newTestMediator()
	dealID := uuid.New()
	got := capture[crmapp.CreateDealCommand, crmapp.DealDTO](t, m, crmapp.DealDTO{ID: dealID, Title: "Fleet renewal"}, nil)
	h := NewDealHandler(m)
	r := newTestEngine()
	r.POST("/crm/deals", h.Create)

	w := doRequest(r, http.MethodPost, "/crm/deals", map[string]any{
		"title": "Fleet renewal", "amount": "12500.50", "currency": "EUR",
		// ignored: identity comes from the token
		"TenantID": uuid.NewString(),
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, dealID.String(), resp.Data.(map[string]any)["id"])
	assert.Equal(t, testTenantID, got.TenantID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, testUserID, *got.UserID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12500.50")))
}

func TestDealHandler_CreateValidation(t *testing.T) {
	m := newTestMediator()
	capture[crmapp.CreateDealCommand, crmapp.DealDTO](t, m, crmapp.DealDTO{}, nil)
	r := newTestEngine()
	r.POST("/crm/deals", NewDealHandler(m).Create)

	w := doRequest(r, http.MethodPost, "/crm/deals", map[string]any{"currency": "EURO"})

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"title", "currency"}, fields)
}

func TestDealHandler_DeleteAndList(t *testing.T) {
	m := newTestMediator()
	deleted := capture[crmapp.DeleteDealCommand, struct{}](t, m, struct{}{}, nil)
	listed := capture[crmapp.ListDealsQuery, shared.Paginated[crmapp.DealDTO]](t, m,
		shared.NewPaginated([]crmapp.DealDTO{{Title: "a"}, {Title: "b"}}, 12, 2, 2), nil)
	h := NewDealHandler(m)
	r := newTestEngine()
	r.DELETE("/crm/deals/:id", h.Delete)
	r.GET("/crm/deals", h.List)

	id := uuid.New()
	w := doRequest(r, http.MethodDelete, "/crm/deals/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, id, deleted.DealID)

	owner := uuid.New()
	w = doRequest(r, http.MethodGet, "/crm/deals?page=2&page_size=2&stage=PROPOSAL&owner_id="+owner.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 6, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "PROPOSAL", listed.Stage)
	require.NotNil(t, listed.OwnerID)
	assert.Equal(t, owner, *listed.OwnerID)
}

func TestDealHandler_NotFound(t *testing.T) {
	m := newTestMediator()
	capture[crmapp.GetDealQuery, crmapp.DealDTO](t, m, crmapp.DealDTO{}, shared.ErrNotFound)
	r := newTestEngine()
	r.GET("/crm/deals/:id", NewDealHandler(m).Get)

	w := doRequest(r, http.MethodGet, "/crm/deals/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decode(t, w).Error.Code)

	w = doRequest(r, http.MethodGet, "/crm/deals/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayslipHandler_Lines(t *testing.T) {
	m := newTestMediator()
	added := capture[hrapp.AddPayslipLineCommand, hrapp.PayslipDTO](t, m, hrapp.PayslipDTO{}, nil)
	removed := capture[hrapp.RemovePayslipLineCommand, hrapp.PayslipDTO](t, m, hrapp.PayslipDTO{}, nil)
	paid := capture[hrapp.MarkPayslipPaidCommand, hrapp.PayslipDTO](t, m, hrapp.PayslipDTO{Status: "PAID"}, nil)
	h := NewPayslipHandler(m)
	r := newTestEngine()
	r.POST("/hr/payslips/:id/lines", h.AddLine)
	r.DELETE("/hr/payslips/:id/lines/:line_id", h.RemoveLine)
	r.POST("/hr/payslips/:id/pay", h.MarkPaid)

	id, lineID := uuid.New(), uuid.New()
	w := doRequest(r, http.MethodPost, "/hr/payslips/"+id.String()+"/lines", map[string]any{
		"kind": "EARNING", "code": "BONUS", "description": "Q3 bonus", "amount": "750",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, added.PayslipID)

	w = doRequest(r, http.MethodDelete, "/hr/payslips/"+id.String()+"/lines/"+lineID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, lineID, removed.LineID)

	w = doRequest(r, http.MethodPost, "/hr/payslips/"+id.String()+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, paid.Reference)

	w = doRequest(r, http.MethodPost, "/hr/payslips/"+id.String()+"/pay", map[string]any{"payment_reference": "TRX-991"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "TRX-991", paid.Reference)
}

func TestPayslipHandler_FinalizeInvalidState(t *testing.T) {
	m := newTestMediator()
	capture[hrapp.FinalizePayslipCommand, hrapp.PayslipDTO](t, m, hrapp.PayslipDTO{},
		shared.NewDomainErrorWithCause(shared.CodeInvalidState, "Only draft payslips can be finalized", shared.ErrInvalidState))
	r := newTestEngine()
	r.POST("/hr/payslips/:id/finalize", NewPayslipHandler(m).Finalize)

	w := doRequest(r, http.MethodPost, "/hr/payslips/"+uuid.NewString()+"/finalize", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, decode(t, w).Error.Code)
}

func TestReorderRuleHandler_Check(t *testing.T) {
	m := newTestMediator()
	got := capture[inventoryapp.CheckReorderQuery, inventoryapp.ReorderSuggestionDTO](t, m,
		inventoryapp.ReorderSuggestionDTO{ShouldReorder: true, SuggestedQuantity: decimal.NewFromInt(91)}, nil)
	r := newTestEngine()
	r.GET("/inventory/reorder-check", NewReorderRuleHandler(m).Check)

	product, warehouse := uuid.New(), uuid.New()
	w := doRequest(r, http.MethodGet, "/inventory/reorder-check?product_id="+product.String()+
		"&warehouse_id="+warehouse.String()+"&on_hand=9", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, product, got.ProductID)
	require.NotNil(t, got.WarehouseID)
	assert.Equal(t, warehouse, *got.WarehouseID)
	assert.True(t, got.OnHand.Equal(decimal.NewFromInt(9)))

	w = doRequest(r, http.MethodGet, "/inventory/reorder-check?on_hand=9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "product_id is required")
}

func TestReorderRuleHandler_Trigger(t *testing.T) {
	m := newTestMediator()
	got := capture[inventoryapp.TriggerReorderRuleCommand, inventoryapp.ReorderSuggestionDTO](t, m,
		inventoryapp.ReorderSuggestionDTO{Triggered: true}, nil)
	r := newTestEngine()
	r.POST("/inventory/reorder-rules/:id/trigger", NewReorderRuleHandler(m).Trigger)

	id := uuid.New()
	w := doRequest(r, http.MethodPost, "/inventory/reorder-rules/"+id.String()+"/trigger", `{"on_hand":"4"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, got.RuleID)
	assert.True(t, got.OnHand.Equal(decimal.NewFromInt(4)))
}

func TestRoutingHandler(t *testing.T) {
	m := newTestMediator()
	removed := capture[manufacturingapp.RemoveRoutingOperationCommand, manufacturingapp.RoutingDTO](t, m, manufacturingapp.RoutingDTO{}, nil)
	approved := capture[manufacturingapp.ApproveRoutingCommand, manufacturingapp.RoutingDTO](t, m, manufacturingapp.RoutingDTO{}, nil)
	leadTime := capture[manufacturingapp.GetRoutingLeadTimeQuery, manufacturingapp.LeadTimeDTO](t, m,
		manufacturingapp.LeadTimeDTO{TotalMinutes: decimal.NewFromInt(130), Duration: "2h10m0s"}, nil)
	h := NewRoutingHandler(m)
	r := newTestEngine()
	r.DELETE("/manufacturing/routings/:id/operations/:sequence", h.RemoveOperation)
	r.POST("/manufacturing/routings/:id/approve", h.Approve)
	r.GET("/manufacturing/routings/:id/lead-time", h.LeadTime)

	id := uuid.New()
	base := "/manufacturing/routings/" + id.String()

	w := doRequest(r, http.MethodDelete, base+"/operations/20", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 20, removed.Sequence)

	w = doRequest(r, http.MethodDelete, base+"/operations/first", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, base+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, approved.UserID)
	assert.Equal(t, testUserID, *approved.UserID)

	w = doRequest(r, http.MethodGet, base+"/lead-time?quantity=12.5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, leadTime.Quantity.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "2h10m0s", decode(t, w).Data.(map[string]any)["duration"])
}

func TestMigrationHandler_CreateSession(t *testing.T) {
	m := newTestMediator()
	got := capture[migrationapp.CreateSessionCommand, migrationapp.SessionDTO](t, m, migrationapp.SessionDTO{Status: "CREATED"}, nil)
	r := newTestEngine()
	r.POST("/migration/sessions", NewMigrationHandler(m, 0).CreateSession)

	w := doRequest(r, http.MethodPost, "/migration/sessions", map[string]any{
		"name": "  Cutover  ", "source_system": "legacy", "entity_types": []string{"customer"}, "conflict_mode": "update",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Cutover", got.Name)
	assert.Equal(t, []string{"customer"}, got.EntityTypes)
	assert.Equal(t, "update", got.ConflictMode)
	assert.Equal(t, testTenantID, got.TenantID)
}

func TestMigrationHandler_UploadChunk(t *testing.T) {
	m := newTestMediator()
	got := capture[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](t, m,
		migrationapp.UploadChunkResult{Chunks: []migrationapp.ChunkDTO{{ChunkIndex: 3}}}, nil)
	h := NewMigrationHandler(m, 64)
	r := newTestEngine()
	r.POST("/migration/sessions/:id/chunks", h.UploadChunk)
	id := uuid.New()
	path := "/migration/sessions/" + id.String() + "/chunks"

	t.Run("raw json body", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, path+"?entity_type=customer&chunk_index=3&total_chunks=4", `[{"code":"C1"}]`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, id, got.SessionID)
		assert.Equal(t, "customer", got.EntityType)
		assert.Equal(t, 3, got.ChunkIndex)
		assert.Equal(t, 4, got.TotalChunks)
		assert.JSONEq(t, `[{"code":"C1"}]`, string(got.Data))
	})

	t.Run("multipart file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("entity_type", "product"))
		part, err := mw.CreateFormFile("file", "products.csv")
		require.NoError(t, err)
		_, _ = part.Write([]byte("code,name\nP1,Bolt\n"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "product", got.EntityType)
		assert.Equal(t, "code,name\nP1,Bolt\n", string(got.Data))
	})

	t.Run("too large", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, path+"?entity_type=customer", bytes.Repeat([]byte("x"), 65))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodePayloadTooLarge, decode(t, w).Error.Code)
	})

	t.Run("bad chunk index", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, path+"?entity_type=customer&chunk_index=x", `[{}]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMigrationHandler_ResultsAndFix(t *testing.T) {
	m := newTestMediator()
	listed := capture[migrationapp.ListValidationResultsQuery, shared.Paginated[migrationapp.ValidationResultDTO]](t, m,
		shared.NewPaginated[migrationapp.ValidationResultDTO](nil, 0, 1, 20), nil)
	fixed := capture[migrationapp.FixRecordCommand, migrationapp.ValidationResultDTO](t, m, migrationapp.ValidationResultDTO{}, nil)
	h := NewMigrationHandler(m, 0)
	r := newTestEngine()
	r.GET("/migration/sessions/:id/results", h.ListResults)
	r.POST("/migration/sessions/:id/results/:result_id/fix", h.FixRecord)

	session, chunk, result := uuid.New(), uuid.New(), uuid.New()
	base := "/migration/sessions/" + session.String()

	w := doRequest(r, http.MethodGet, base+"/results?status=error&chunk_id="+chunk.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ERROR", listed.Status)
	require.NotNil(t, listed.ChunkID)
	assert.Equal(t, chunk, *listed.ChunkID)
	assert.Equal(t, []any{}, decode(t, w).Data)

	w = doRequest(r, http.MethodPost, base+"/results/"+result.String()+"/fix", map[string]any{"data": map[string]any{"email": "a@b.co"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, result, fixed.ResultID)
	assert.Equal(t, "a@b.co", fixed.Data["email"])

	w = doRequest(r, http.MethodPost, base+"/results/"+result.String()+"/fix", map[string]any{"data": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty fix is rejected by validation")
}
