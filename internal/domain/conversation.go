package domain

import (
	"fmt"
	"time"
)

// MessageRole identifies who produced a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageSource tags where an assistant message came from and whether it is
// still awaiting human review.
type MessageSource string

const (
	SourceAI              MessageSource = "ai"
	SourceAIPendingReview MessageSource = "ai_pending_review"
	SourceHuman           MessageSource = "human"
)

// ConversationMessage is one turn in a learner conversation. Created once;
// the only permitted update is attaching the pipeline-run link after the
// run completes.
type ConversationMessage struct {
	ID              string
	ConversationID  string
	Role            MessageRole
	Content         string
	Source          MessageSource
	ConfidenceScore int
	PipelineRunID   string
	CreatedAt       time.Time
}

// ValidateConversationMessage validates a ConversationMessage instance
func ValidateConversationMessage(m *ConversationMessage) error {
	if m == nil {
		return fmt.Errorf("conversation message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("conversation message ID is required")
	}

	if m.ConversationID == "" {
		return fmt.Errorf("conversation message ConversationID is required")
	}

	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("conversation message Role is invalid: %s", m.Role)
	}

	if m.Content == "" {
		return fmt.Errorf("conversation message Content is required")
	}

	if m.Role == RoleAssistant {
		switch m.Source {
		case SourceAI, SourceAIPendingReview, SourceHuman:
		default:
			return fmt.Errorf("assistant message Source is invalid: %s", m.Source)
		}
	}

	return nil
}
