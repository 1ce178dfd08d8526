package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sauti-labs/lugha/internal/api"
	"github.com/sauti-labs/lugha/internal/api/middleware"
	"github.com/sauti-labs/lugha/internal/pipeline"
)

type ChatService interface {
	ProcessTurn(ctx context.Context, input pipeline.ChatInput) (*pipeline.ChatOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	Language       string `json:"language"`
}

type ChatMessageResponse struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Source     string `json:"source"`
	Confidence int    `json:"confidence"`
	CreatedAt  string `json:"created_at"`
}

type ChatResponse struct {
	ConversationID string              `json:"conversation_id"`
	Message        ChatMessageResponse `json:"message"`
	Disposition    string              `json:"disposition"`
	RunID          string              `json:"run_id"`
}

// Send runs one learner message through the response pipeline.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	if learnerID == "" {
		api.Error(w, http.StatusUnauthorized, "learner identity required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Language == "" {
		api.Error(w, http.StatusBadRequest, "language is required")
		return
	}

	out, err := h.svc.ProcessTurn(r.Context(), pipeline.ChatInput{
		LearnerID:      learnerID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Language:       req.Language,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		ConversationID: out.ConversationID,
		Message: ChatMessageResponse{
			ID:         out.Message.ID,
			Content:    out.Message.Content,
			Source:     string(out.Message.Source),
			Confidence: out.Message.ConfidenceScore,
			CreatedAt:  out.Message.CreatedAt.UTC().Format(time.RFC3339),
		},
		Disposition: string(out.Disposition),
		RunID:       out.Run.ID,
	})
}
