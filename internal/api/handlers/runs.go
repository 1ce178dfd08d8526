package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sauti-labs/lugha/internal/api"
	"github.com/sauti-labs/lugha/internal/domain"
)

type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.PipelineRun, error)
}

type MessageReader interface {
	ListMessages(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error)
}

type RunHandler struct {
	runs     RunReader
	messages MessageReader
}

func NewRunHandler(runs RunReader, messages MessageReader) *RunHandler {
	return &RunHandler{runs: runs, messages: messages}
}

type JudgmentResponse struct {
	Passed      bool     `json:"passed"`
	Score       int      `json:"score"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Issues      []string `json:"issues,omitempty"`
	GapCategory string   `json:"gap_category,omitempty"`
}

type RunResponse struct {
	ID                  string           `json:"id"`
	MessageID           string           `json:"message_id"`
	TranslatorModel     string           `json:"translator_model"`
	TranslatorOutput    string           `json:"translator_output"`
	TranslatorLatencyMS int64            `json:"translator_latency_ms"`
	ReviewerOutput      string           `json:"reviewer_output,omitempty"`
	ReviewerLatencyMS   int64            `json:"reviewer_latency_ms"`
	Judgment            JudgmentResponse `json:"judgment"`
	CompositeScore      int              `json:"composite_score"`
	KnowledgeIDsUsed    []string         `json:"knowledge_ids_used,omitempty"`
	RetryCount          int              `json:"retry_count"`
	Disposition         string           `json:"disposition"`
	CreatedAt           string           `json:"created_at"`
}

// Get returns the audit record of one pipeline pass.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RunResponse{
		ID:                  run.ID,
		MessageID:           run.MessageID,
		TranslatorModel:     run.TranslatorModel,
		TranslatorOutput:    run.TranslatorOutput,
		TranslatorLatencyMS: run.TranslatorLatency.Milliseconds(),
		ReviewerOutput:      run.ReviewerOutput,
		ReviewerLatencyMS:   run.ReviewerLatency.Milliseconds(),
		Judgment: JudgmentResponse{
			Passed:      run.Judgment.Passed,
			Score:       run.Judgment.Score,
			Reasoning:   run.Judgment.Reasoning,
			Issues:      run.Judgment.Issues,
			GapCategory: string(run.Judgment.GapCategory),
		},
		CompositeScore:   run.CompositeScore,
		KnowledgeIDsUsed: run.KnowledgeIDsUsed,
		RetryCount:       run.RetryCount,
		Disposition:      string(run.Disposition),
		CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type MessageResponse struct {
	ID              string `json:"id"`
	ConversationID  string `json:"conversation_id"`
	Role            string `json:"role"`
	Content         string `json:"content"`
	Source          string `json:"source,omitempty"`
	ConfidenceScore int    `json:"confidence_score,omitempty"`
	PipelineRunID   string `json:"pipeline_run_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type MessageListResponse struct {
	Items []*MessageResponse `json:"items"`
}

// ListMessages returns all messages in a conversation, oldest first.
func (h *RunHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if conversationID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	messages, err := h.messages.ListMessages(r.Context(), conversationID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		items[i] = &MessageResponse{
			ID:              m.ID,
			ConversationID:  m.ConversationID,
			Role:            string(m.Role),
			Content:         m.Content,
			Source:          string(m.Source),
			ConfidenceScore: m.ConfidenceScore,
			PipelineRunID:   m.PipelineRunID,
			CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	api.Success(w, http.StatusOK, MessageListResponse{Items: items})
}
