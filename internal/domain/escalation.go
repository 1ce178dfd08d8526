package domain

import (
	"fmt"
	"time"
)

// EscalationStatus is the lifecycle state of an escalation item. Transitions
// are monotone: pending -> in_review -> one of the three terminal states.
type EscalationStatus string

const (
	EscalationPending   EscalationStatus = "pending"
	EscalationInReview  EscalationStatus = "in_review"
	EscalationApproved  EscalationStatus = "approved"
	EscalationCorrected EscalationStatus = "corrected"
	EscalationRejected  EscalationStatus = "rejected"
)

// IsTerminal reports whether s permits no further transitions.
func (s EscalationStatus) IsTerminal() bool {
	switch s {
	case EscalationApproved, EscalationCorrected, EscalationRejected:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next respects the monotone
// lifecycle.
func (s EscalationStatus) CanTransition(next EscalationStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case EscalationPending:
		return next == EscalationInReview || next.IsTerminal()
	case EscalationInReview:
		return next.IsTerminal()
	}
	return false
}

// VoteAction is one reviewer's decision on a gold-set item.
type VoteAction string

const (
	VoteApprove VoteAction = "approve"
	VoteCorrect VoteAction = "correct"
	VoteReject  VoteAction = "reject"
)

// IsValidVoteAction checks membership in the vote action set.
func IsValidVoteAction(a VoteAction) bool {
	switch a {
	case VoteApprove, VoteCorrect, VoteReject:
		return true
	}
	return false
}

// EscalationVote is one reviewer's recorded vote on a gold-set item.
type EscalationVote struct {
	ID         string
	ItemID     string
	ReviewerID string
	Action     VoteAction
	Correction string
	TieBreak   bool
	CastAt     time.Time
}

// EscalationItem holds a pipeline output the orchestrator could not resolve.
// Created on escalation, mutated only by the consensus resolver, immutable
// once terminal.
type EscalationItem struct {
	ID                string
	PipelineRunID     string
	LearnerRequest    string
	ModelAnswer       string
	Language          string
	ConfidenceScore   int
	ReviewerReasoning string
	GapCategory       GapCategory
	Status            EscalationStatus
	CorrectedAnswer   string
	ReviewerID        string
	GoldSet           bool
	Votes             []EscalationVote
	CreatedAt         time.Time
	FirstTouchedAt    *time.Time
	ResolvedAt        *time.Time
}

// Age returns elapsed time since the item was created. Surfaced for
// prioritization; items never time out automatically.
func (e *EscalationItem) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// ValidateEscalationItem validates an EscalationItem instance
func ValidateEscalationItem(e *EscalationItem) error {
	if e == nil {
		return fmt.Errorf("escalation item cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("escalation item ID is required")
	}

	if e.PipelineRunID == "" {
		return fmt.Errorf("escalation item PipelineRunID is required")
	}

	if e.LearnerRequest == "" {
		return fmt.Errorf("escalation item LearnerRequest is required")
	}

	switch e.Status {
	case EscalationPending, EscalationInReview, EscalationApproved, EscalationCorrected, EscalationRejected:
	default:
		return fmt.Errorf("escalation item Status is invalid: %s", e.Status)
	}

	if e.GapCategory != "" && !IsValidGapCategory(e.GapCategory) {
		return fmt.Errorf("escalation item GapCategory is invalid: %s", e.GapCategory)
	}

	return nil
}
