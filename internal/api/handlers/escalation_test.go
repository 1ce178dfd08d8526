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
	"github.com/sauti-labs/lugha/internal/api/middleware"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/escalation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEscalationQueueService struct {
	mock.Mock
}

func (m *MockEscalationQueueService) List(ctx context.Context, status domain.EscalationStatus, limit int) ([]*domain.EscalationItem, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EscalationItem), args.Error(1)
}

func (m *MockEscalationQueueService) Claim(ctx context.Context, itemID, reviewerID string) (*domain.EscalationItem, error) {
	args := m.Called(ctx, itemID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscalationItem), args.Error(1)
}

func (m *MockEscalationQueueService) FlagGoldSet(ctx context.Context, itemID, reviewerID string) (*domain.EscalationItem, error) {
	args := m.Called(ctx, itemID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscalationItem), args.Error(1)
}

type MockEscalationResolverService struct {
	mock.Mock
}

func (m *MockEscalationResolverService) Resolve(ctx context.Context, input escalation.ResolveInput) (*domain.EscalationItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscalationItem), args.Error(1)
}

func (m *MockEscalationResolverService) Vote(ctx context.Context, input escalation.ResolveInput) (*domain.EscalationItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscalationItem), args.Error(1)
}

func newTestEscalationItem() *domain.EscalationItem {
	return &domain.EscalationItem{
		ID:                "esc-1",
		PipelineRunID:     "run-1",
		LearnerRequest:    "How do I say thank you formally?",
		ModelAnswer:       "Asante sana",
		Language:          "sw",
		ConfidenceScore:   55,
		ReviewerReasoning: "register uncertain",
		GapCategory:       domain.GapMissingCulturalContext,
		Status:            domain.EscalationPending,
		CreatedAt:         time.Now().UTC(),
	}
}

func requestWithReviewerID(method, url string, body []byte, urlParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.ReviewerIDKey, "reviewer-1")

	rctx := chi.NewRouteContext()
	for k, v := range urlParams {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)

	return req.WithContext(ctx)
}

func TestEscalationHandler_List_Success(t *testing.T) {
	mockQueue := new(MockEscalationQueueService)
	mockResolver := new(MockEscalationResolverService)
	handler := NewEscalationHandler(mockQueue, mockResolver)

	mockQueue.On("List", mock.Anything, domain.EscalationPending, 25).
		Return([]*domain.EscalationItem{newTestEscalationItem()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/escalations?status=pending&limit=25", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "esc-1", first["id"])
	assert.Equal(t, "pending", first["status"])
	mockQueue.AssertExpectations(t)
}

func TestEscalationHandler_List_DefaultsWhenUnset(t *testing.T) {
	mockQueue := new(MockEscalationQueueService)
	handler := NewEscalationHandler(mockQueue, new(MockEscalationResolverService))

	mockQueue.On("List", mock.Anything, domain.EscalationStatus(""), 0).
		Return([]*domain.EscalationItem{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/escalations", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockQueue.AssertExpectations(t)
}

func TestEscalationHandler_Claim_Success(t *testing.T) {
	mockQueue := new(MockEscalationQueueService)
	handler := NewEscalationHandler(mockQueue, new(MockEscalationResolverService))

	claimed := newTestEscalationItem()
	claimed.Status = domain.EscalationInReview
	claimed.ReviewerID = "reviewer-1"
	mockQueue.On("Claim", mock.Anything, "esc-1", "reviewer-1").Return(claimed, nil)

	req := requestWithReviewerID(http.MethodPost, "/escalations/esc-1/claim", nil, map[string]string{"id": "esc-1"})
	w := httptest.NewRecorder()

	handler.Claim(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "in_review", data["status"])
	assert.Equal(t, "reviewer-1", data["reviewer_id"])
	mockQueue.AssertExpectations(t)
}

func TestEscalationHandler_FlagGoldSet_Success(t *testing.T) {
	mockQueue := new(MockEscalationQueueService)
	handler := NewEscalationHandler(mockQueue, new(MockEscalationResolverService))

	flagged := newTestEscalationItem()
	flagged.GoldSet = true
	mockQueue.On("FlagGoldSet", mock.Anything, "esc-1", "reviewer-1").Return(flagged, nil)

	req := requestWithReviewerID(http.MethodPost, "/escalations/esc-1/gold-set", nil, map[string]string{"id": "esc-1"})
	w := httptest.NewRecorder()

	handler.FlagGoldSet(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["gold_set"])
	mockQueue.AssertExpectations(t)
}

func TestEscalationHandler_FlagGoldSet_RequiresReviewerIdentity(t *testing.T) {
	mockQueue := new(MockEscalationQueueService)
	handler := NewEscalationHandler(mockQueue, new(MockEscalationResolverService))

	req := httptest.NewRequest(http.MethodPost, "/escalations/esc-1/gold-set", nil)
	w := httptest.NewRecorder()

	handler.FlagGoldSet(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockQueue.AssertNotCalled(t, "FlagGoldSet", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscalationHandler_Claim_RequiresReviewerIdentity(t *testing.T) {
	mockQueue := new(MockEscalationQueueService)
	handler := NewEscalationHandler(mockQueue, new(MockEscalationResolverService))

	req := httptest.NewRequest(http.MethodPost, "/escalations/esc-1/claim", nil)
	w := httptest.NewRecorder()

	handler.Claim(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockQueue.AssertNotCalled(t, "Claim")
}

func TestEscalationHandler_Resolve_Success(t *testing.T) {
	mockResolver := new(MockEscalationResolverService)
	handler := NewEscalationHandler(new(MockEscalationQueueService), mockResolver)

	resolved := newTestEscalationItem()
	resolved.Status = domain.EscalationCorrected
	resolved.CorrectedAnswer = "Asante sana, bwana"
	mockResolver.On("Resolve", mock.Anything, escalation.ResolveInput{
		ItemID:     "esc-1",
		ReviewerID: "reviewer-1",
		Action:     domain.VoteCorrect,
		Correction: "Asante sana, bwana",
	}).Return(resolved, nil)

	body := `{"action":"correct","correction":"Asante sana, bwana"}`
	req := requestWithReviewerID(http.MethodPost, "/escalations/esc-1/resolve", []byte(body), map[string]string{"id": "esc-1"})
	w := httptest.NewRecorder()

	handler.Resolve(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "corrected", data["status"])
	assert.Equal(t, "Asante sana, bwana", data["corrected_answer"])
	mockResolver.AssertExpectations(t)
}

func TestEscalationHandler_Resolve_AlreadyResolvedConflict(t *testing.T) {
	mockResolver := new(MockEscalationResolverService)
	handler := NewEscalationHandler(new(MockEscalationQueueService), mockResolver)

	mockResolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, domain.ErrEscalationConflict)

	body := `{"action":"approve"}`
	req := requestWithReviewerID(http.MethodPost, "/escalations/esc-1/resolve", []byte(body), map[string]string{"id": "esc-1"})
	w := httptest.NewRecorder()

	handler.Resolve(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEscalationHandler_CastVote_Success(t *testing.T) {
	mockResolver := new(MockEscalationResolverService)
	handler := NewEscalationHandler(new(MockEscalationQueueService), mockResolver)

	item := newTestEscalationItem()
	item.GoldSet = true
	item.Votes = []domain.EscalationVote{{
		ID:         "vote-1",
		ItemID:     "esc-1",
		ReviewerID: "reviewer-1",
		Action:     domain.VoteApprove,
		CastAt:     time.Now().UTC(),
	}}
	mockResolver.On("Vote", mock.Anything, escalation.ResolveInput{
		ItemID:     "esc-1",
		ReviewerID: "reviewer-1",
		Action:     domain.VoteApprove,
	}).Return(item, nil)

	body := `{"action":"approve"}`
	req := requestWithReviewerID(http.MethodPost, "/escalations/esc-1/votes", []byte(body), map[string]string{"id": "esc-1"})
	w := httptest.NewRecorder()

	handler.CastVote(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	votes := data["votes"].([]interface{})
	require.Len(t, votes, 1)
	mockResolver.AssertExpectations(t)
}

func TestEscalationHandler_CastVote_DuplicateConflict(t *testing.T) {
	mockResolver := new(MockEscalationResolverService)
	handler := NewEscalationHandler(new(MockEscalationQueueService), mockResolver)

	mockResolver.On("Vote", mock.Anything, mock.Anything).Return(nil, domain.ErrDuplicateVote)

	body := `{"action":"approve"}`
	req := requestWithReviewerID(http.MethodPost, "/escalations/esc-1/votes", []byte(body), map[string]string{"id": "esc-1"})
	w := httptest.NewRecorder()

	handler.CastVote(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
