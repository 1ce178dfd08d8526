package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Create(ctx context.Context, input knowledge.CreateInput) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) Get(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) Update(ctx context.Context, input knowledge.UpdateInput) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) List(ctx context.Context, input knowledge.ListInput) (*knowledge.PageResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*knowledge.PageResult), args.Error(1)
}

func (m *MockKnowledgeService) Confirm(ctx context.Context, id string, status domain.VerificationStatus) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) History(ctx context.Context, entryID string) ([]*domain.KnowledgeHistory, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeHistory), args.Error(1)
}

func newTestKnowledgeEntry() *domain.KnowledgeEntry {
	now := time.Now().UTC()
	return &domain.KnowledgeEntry{
		ID:           "k-1",
		Language:     "sw",
		ChunkType:    domain.ChunkTypeVocabulary,
		Topic:        "greetings",
		Content:      "Habari means hello",
		Source:       "curator",
		Verification: domain.VerificationSeed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func requestWithURLParam(method, url string, body []byte, id string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestKnowledgeHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("Create", mock.Anything, knowledge.CreateInput{
		Language:  "sw",
		ChunkType: domain.ChunkTypeVocabulary,
		Topic:     "greetings",
		Content:   "Habari means hello",
	}).Return(newTestKnowledgeEntry(), nil)

	body := `{"language":"sw","chunk_type":"vocabulary","topic":"greetings","content":"Habari means hello"}`
	req := httptest.NewRequest(http.MethodPost, "/knowledge", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "k-1", data["id"])
	assert.Equal(t, "seed", data["verification"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Create_ValidationError(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("Create", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid knowledge entry"))

	body := `{"language":"sw","chunk_type":"poetry","content":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/knowledge", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("Get", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeEntryNotFound)

	req := requestWithURLParam(http.MethodGet, "/knowledge/missing", nil, "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKnowledgeHandler_Update_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	replacement := newTestKnowledgeEntry()
	replacement.ID = "k-2"
	replacement.Content = "Habari means hello (informal)"
	replacement.SupersedesID = "k-1"
	replacement.Verification = domain.VerificationSingle

	mockSvc.On("Update", mock.Anything, knowledge.UpdateInput{
		EntryID:  "k-1",
		Content:  "Habari means hello (informal)",
		EditedBy: "reviewer-1",
		Reason:   "register note",
	}).Return(replacement, nil)

	body := `{"content":"Habari means hello (informal)","reason":"register note"}`
	req := requestWithReviewerID(http.MethodPut, "/knowledge/k-1", []byte(body), map[string]string{"id": "k-1"})
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "k-2", data["id"])
	assert.Equal(t, "k-1", data["supersedes_id"])
	assert.Equal(t, "single_annotator", data["verification"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Update_RequiresReviewerIdentity(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	body := `{"content":"new content"}`
	req := requestWithURLParam(http.MethodPut, "/knowledge/k-1", []byte(body), "k-1")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "Update")
}

func TestKnowledgeHandler_List_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("List", mock.Anything, knowledge.ListInput{
		Language: "sw",
		Cursor:   "abc",
		Limit:    10,
	}).Return(&knowledge.PageResult{
		Items:      []*domain.KnowledgeEntry{newTestKnowledgeEntry()},
		NextCursor: "def",
		HasMore:    true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/knowledge?language=sw&cursor=abc&limit=10", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "def", data["next_cursor"])
	assert.Equal(t, true, data["has_more"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Confirm_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	confirmed := newTestKnowledgeEntry()
	confirmed.Verification = domain.VerificationMulti
	mockSvc.On("Confirm", mock.Anything, "k-1", domain.VerificationMulti).Return(confirmed, nil)

	body := `{"verification":"multi_annotator_verified"}`
	req := requestWithURLParam(http.MethodPost, "/knowledge/k-1/confirm", []byte(body), "k-1")
	w := httptest.NewRecorder()

	handler.Confirm(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "multi_annotator_verified", data["verification"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Confirm_DowngradeRejected(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("Confirm", mock.Anything, "k-1", domain.VerificationSeed).
		Return(nil, domain.ErrVerificationDowngrade)

	body := `{"verification":"seed"}`
	req := requestWithURLParam(http.MethodPost, "/knowledge/k-1/confirm", []byte(body), "k-1")
	w := httptest.NewRecorder()

	handler.Confirm(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeHandler_History_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("History", mock.Anything, "k-1").Return([]*domain.KnowledgeHistory{{
		ID:           "h-1",
		EntryID:      "k-1",
		PriorContent: "Habari means hi",
		EditedBy:     "reviewer-1",
		Reason:       "precision",
		At:           time.Now().UTC(),
	}}, nil)

	req := requestWithURLParam(http.MethodGet, "/knowledge/k-1/history", nil, "k-1")
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Habari means hi", first["prior_content"])
	mockSvc.AssertExpectations(t)
}
