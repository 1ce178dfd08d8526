package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/openai"
)

// ChatClient is the completion surface both agents run on.
type ChatClient interface {
	Complete(ctx context.Context, system string, messages []openai.ChatMessage, temperature float32) (string, error)
}

const translatorTemperature = 0.7

// ChatTranslator generates candidate answers through a chat-completion
// model, grounding them on retrieved knowledge snippets.
type ChatTranslator struct {
	client  ChatClient
	model   string
	timeout time.Duration
}

func NewChatTranslator(client ChatClient, model string, timeout time.Duration) *ChatTranslator {
	return &ChatTranslator{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

func (t *ChatTranslator) Translate(ctx context.Context, req TranslationRequest) (*Translation, error) {
	if req.Message == "" {
		return nil, domain.ErrMissingRequiredField
	}

	messages := historyMessages(req.History)
	messages = append(messages, openai.ChatMessage{
		Role:    openai.RoleUser,
		Content: buildTranslatorPrompt(req),
	})

	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := t.client.Complete(callCtx, translatorSystemPrompt, messages, translatorTemperature)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("translator completion failed: %w", err)
	}

	knowledgeIDs := make([]string, 0, len(req.Snippets))
	for _, snippet := range req.Snippets {
		knowledgeIDs = append(knowledgeIDs, snippet.ID)
	}
	usedKnowledge := len(knowledgeIDs) > 0

	return &Translation{
		Text:             text,
		KnowledgeIDsUsed: knowledgeIDs,
		UsedKnowledge:    usedKnowledge,
		SelfConfidence:   SelfConfidenceFor(text, usedKnowledge),
		Model:            t.model,
		Latency:          latency,
	}, nil
}
