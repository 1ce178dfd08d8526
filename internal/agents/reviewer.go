package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/openai"
)

// Low temperature keeps review verdicts stable across identical inputs.
const reviewerTemperature = 0.1

// ChatReviewer judges candidate answers through a chat-completion model.
// Unparseable output degrades to the fallback judgment; only transport
// failures surface as errors.
type ChatReviewer struct {
	client  ChatClient
	timeout time.Duration
}

func NewChatReviewer(client ChatClient, timeout time.Duration) *ChatReviewer {
	return &ChatReviewer{
		client:  client,
		timeout: timeout,
	}
}

func (r *ChatReviewer) Review(ctx context.Context, req ReviewRequest) (*Review, error) {
	if req.CandidateAnswer == "" {
		return nil, domain.ErrMissingRequiredField
	}

	messages := []openai.ChatMessage{{
		Role:    openai.RoleUser,
		Content: buildReviewerPrompt(req),
	}}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := r.client.Complete(callCtx, reviewerSystemPrompt, messages, reviewerTemperature)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reviewer completion failed: %w", err)
	}

	return &Review{
		Judgment:  ParseJudgment(raw, len(req.KnowledgeUsed) > 0),
		RawOutput: raw,
		Latency:   latency,
	}, nil
}
