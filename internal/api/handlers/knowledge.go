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
	"github.com/sauti-labs/lugha/internal/knowledge"
)

type KnowledgeService interface {
	Create(ctx context.Context, input knowledge.CreateInput) (*domain.KnowledgeEntry, error)
	Get(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	Update(ctx context.Context, input knowledge.UpdateInput) (*domain.KnowledgeEntry, error)
	List(ctx context.Context, input knowledge.ListInput) (*knowledge.PageResult, error)
	Confirm(ctx context.Context, id string, status domain.VerificationStatus) (*domain.KnowledgeEntry, error)
	History(ctx context.Context, entryID string) ([]*domain.KnowledgeHistory, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type KnowledgeEntryResponse struct {
	ID           string `json:"id"`
	Language     string `json:"language"`
	ChunkType    string `json:"chunk_type"`
	Topic        string `json:"topic,omitempty"`
	Content      string `json:"content"`
	Source       string `json:"source"`
	Verification string `json:"verification"`
	SupersedesID string `json:"supersedes_id,omitempty"`
	Superseded   bool   `json:"superseded"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func knowledgeToResponse(k *domain.KnowledgeEntry) *KnowledgeEntryResponse {
	return &KnowledgeEntryResponse{
		ID:           k.ID,
		Language:     k.Language,
		ChunkType:    string(k.ChunkType),
		Topic:        k.Topic,
		Content:      k.Content,
		Source:       k.Source,
		Verification: string(k.Verification),
		SupersedesID: k.SupersedesID,
		Superseded:   k.Superseded,
		CreatedAt:    k.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    k.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type CreateKnowledgeRequest struct {
	Language  string `json:"language"`
	ChunkType string `json:"chunk_type"`
	Topic     string `json:"topic"`
	Content   string `json:"content"`
	Source    string `json:"source"`
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.svc.Create(r.Context(), knowledge.CreateInput{
		Language:  req.Language,
		ChunkType: domain.ChunkType(req.ChunkType),
		Topic:     req.Topic,
		Content:   req.Content,
		Source:    req.Source,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, knowledgeToResponse(entry))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, knowledgeToResponse(entry))
}

type UpdateKnowledgeRequest struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// Update versions the entry rather than mutating it in place; the response
// carries the replacement entry with its new ID.
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	editedBy := middleware.GetReviewerID(r.Context())
	if editedBy == "" {
		api.Error(w, http.StatusUnauthorized, "reviewer identity required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.svc.Update(r.Context(), knowledge.UpdateInput{
		EntryID:  id,
		Topic:    req.Topic,
		Content:  req.Content,
		EditedBy: editedBy,
		Reason:   req.Reason,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, knowledgeToResponse(entry))
}

type KnowledgeListResponse struct {
	Items      []*KnowledgeEntryResponse `json:"items"`
	NextCursor string                    `json:"next_cursor,omitempty"`
	HasMore    bool                      `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), knowledge.ListInput{
		Language: r.URL.Query().Get("language"),
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*KnowledgeEntryResponse, len(page.Items))
	for i, entry := range page.Items {
		items[i] = knowledgeToResponse(entry)
	}
	api.Success(w, http.StatusOK, KnowledgeListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

type ConfirmKnowledgeRequest struct {
	Verification string `json:"verification"`
}

func (h *KnowledgeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ConfirmKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.svc.Confirm(r.Context(), id, domain.VerificationStatus(req.Verification))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, knowledgeToResponse(entry))
}

type KnowledgeHistoryResponse struct {
	ID           string `json:"id"`
	EntryID      string `json:"entry_id"`
	PriorContent string `json:"prior_content"`
	EditedBy     string `json:"edited_by"`
	Reason       string `json:"reason,omitempty"`
	At           string `json:"at"`
}

type KnowledgeHistoryListResponse struct {
	Items []*KnowledgeHistoryResponse `json:"items"`
}

func (h *KnowledgeHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	records, err := h.svc.History(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*KnowledgeHistoryResponse, len(records))
	for i, rec := range records {
		items[i] = &KnowledgeHistoryResponse{
			ID:           rec.ID,
			EntryID:      rec.EntryID,
			PriorContent: rec.PriorContent,
			EditedBy:     rec.EditedBy,
			Reason:       rec.Reason,
			At:           rec.At.UTC().Format(time.RFC3339),
		}
	}
	api.Success(w, http.StatusOK, KnowledgeHistoryListResponse{Items: items})
}
