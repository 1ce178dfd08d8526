package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sauti-labs/lugha/internal/api"
	"github.com/sauti-labs/lugha/internal/api/middleware"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/escalation"
)

type EscalationQueueService interface {
	List(ctx context.Context, status domain.EscalationStatus, limit int) ([]*domain.EscalationItem, error)
	Claim(ctx context.Context, itemID, reviewerID string) (*domain.EscalationItem, error)
	FlagGoldSet(ctx context.Context, itemID, reviewerID string) (*domain.EscalationItem, error)
}

type EscalationResolverService interface {
	Resolve(ctx context.Context, input escalation.ResolveInput) (*domain.EscalationItem, error)
	Vote(ctx context.Context, input escalation.ResolveInput) (*domain.EscalationItem, error)
}

type EscalationHandler struct {
	queue    EscalationQueueService
	resolver EscalationResolverService
}

func NewEscalationHandler(queue EscalationQueueService, resolver EscalationResolverService) *EscalationHandler {
	return &EscalationHandler{queue: queue, resolver: resolver}
}

type VoteResponse struct {
	ReviewerID string `json:"reviewer_id"`
	Action     string `json:"action"`
	Correction string `json:"correction,omitempty"`
	TieBreak   bool   `json:"tie_break,omitempty"`
	CastAt     string `json:"cast_at"`
}

type EscalationResponse struct {
	ID                string         `json:"id"`
	PipelineRunID     string         `json:"pipeline_run_id"`
	LearnerRequest    string         `json:"learner_request"`
	ModelAnswer       string         `json:"model_answer"`
	Language          string         `json:"language"`
	Confidence        int            `json:"confidence"`
	ReviewerReasoning string         `json:"reviewer_reasoning,omitempty"`
	GapCategory       string         `json:"gap_category,omitempty"`
	Status            string         `json:"status"`
	CorrectedAnswer   string         `json:"corrected_answer,omitempty"`
	ReviewerID        string         `json:"reviewer_id,omitempty"`
	GoldSet           bool           `json:"gold_set"`
	Votes             []VoteResponse `json:"votes,omitempty"`
	CreatedAt         string         `json:"created_at"`
	FirstTouchedAt    string         `json:"first_touched_at,omitempty"`
	ResolvedAt        string         `json:"resolved_at,omitempty"`
}

func escalationToResponse(item *domain.EscalationItem) *EscalationResponse {
	resp := &EscalationResponse{
		ID:                item.ID,
		PipelineRunID:     item.PipelineRunID,
		LearnerRequest:    item.LearnerRequest,
		ModelAnswer:       item.ModelAnswer,
		Language:          item.Language,
		Confidence:        item.ConfidenceScore,
		ReviewerReasoning: item.ReviewerReasoning,
		GapCategory:       string(item.GapCategory),
		Status:            string(item.Status),
		CorrectedAnswer:   item.CorrectedAnswer,
		ReviewerID:        item.ReviewerID,
		GoldSet:           item.GoldSet,
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.FirstTouchedAt != nil {
		resp.FirstTouchedAt = item.FirstTouchedAt.UTC().Format(time.RFC3339)
	}
	if item.ResolvedAt != nil {
		resp.ResolvedAt = item.ResolvedAt.UTC().Format(time.RFC3339)
	}
	for _, v := range item.Votes {
		resp.Votes = append(resp.Votes, VoteResponse{
			ReviewerID: v.ReviewerID,
			Action:     string(v.Action),
			Correction: v.Correction,
			TieBreak:   v.TieBreak,
			CastAt:     v.CastAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

type EscalationListResponse struct {
	Items []*EscalationResponse `json:"items"`
}

func (h *EscalationHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.EscalationStatus(r.URL.Query().Get("status"))

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.queue.List(r.Context(), status, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EscalationResponse, len(items))
	for i, item := range items {
		responses[i] = escalationToResponse(item)
	}
	api.Success(w, http.StatusOK, EscalationListResponse{Items: responses})
}

func (h *EscalationHandler) Claim(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.GetReviewerID(r.Context())
	if reviewerID == "" {
		api.Error(w, http.StatusUnauthorized, "reviewer identity required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.queue.Claim(r.Context(), id, reviewerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, escalationToResponse(item))
}

// FlagGoldSet switches an open item to quorum voting.
func (h *EscalationHandler) FlagGoldSet(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.GetReviewerID(r.Context())
	if reviewerID == "" {
		api.Error(w, http.StatusUnauthorized, "reviewer identity required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.queue.FlagGoldSet(r.Context(), id, reviewerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, escalationToResponse(item))
}

type ResolveRequest struct {
	Action     string `json:"action"`
	Correction string `json:"correction"`
	TieBreak   bool   `json:"tie_break"`
}

func (h *EscalationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.resolver.Resolve)
}

// CastVote records one reviewer's vote on a gold-set item.
func (h *EscalationHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.resolver.Vote)
}

func (h *EscalationHandler) decide(w http.ResponseWriter, r *http.Request, apply func(context.Context, escalation.ResolveInput) (*domain.EscalationItem, error)) {
	reviewerID := middleware.GetReviewerID(r.Context())
	if reviewerID == "" {
		api.Error(w, http.StatusUnauthorized, "reviewer identity required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := apply(r.Context(), escalation.ResolveInput{
		ItemID:     id,
		ReviewerID: reviewerID,
		Action:     domain.VoteAction(req.Action),
		Correction: req.Correction,
		TieBreak:   req.TieBreak,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, escalationToResponse(item))
}
