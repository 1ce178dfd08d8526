// Package pipeline runs the confidence-gated response flow: retrieve
// grounding, generate a candidate answer, review it, compose a confidence
// score, then return, retry once, or escalate. Every turn leaves a stored
// message and an audit run record behind, whatever the outcome.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sauti-labs/lugha/internal/agents"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/telemetry"
)

const defaultHistoryLimit = 10

// disclaimer is appended to escalated answers so the learner knows a human
// will follow up.
const disclaimer = "\n\n(Samahani! This answer has been sent to a human expert for review, since I could not verify it fully. You will receive a correction if needed.)"

// Retriever defines the grounding search interface
type Retriever interface {
	Search(ctx context.Context, query, language string, limit int) ([]*domain.KnowledgeEntry, error)
}

// MessageRepositoryInterface defines the repository interface for conversation persistence
type MessageRepositoryInterface interface {
	CreateMessage(ctx context.Context, m *domain.ConversationMessage) error
	AttachRun(ctx context.Context, messageID, runID string) error
	ListRecent(ctx context.Context, conversationID string, limit int) ([]*domain.ConversationMessage, error)
}

// RunRepositoryInterface defines the repository interface for pipeline run persistence
type RunRepositoryInterface interface {
	Create(ctx context.Context, run *domain.PipelineRun) error
}

// EscalationRepositoryInterface defines the repository interface for escalation persistence
type EscalationRepositoryInterface interface {
	Create(ctx context.Context, item *domain.EscalationItem) error
}

// TxRepositories exposes the repositories bound to one open transaction.
type TxRepositories interface {
	Messages() MessageRepositoryInterface
	Runs() RunRepositoryInterface
	Escalations() EscalationRepositoryInterface
}

// TxRunner runs fn inside a single database transaction. The turn's final
// writes (assistant message, run record, escalation item) must land together
// or not at all.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// Config carries the routing thresholds the orchestrator gates on.
type Config struct {
	ReturnThreshold int
	RetryLowerBound int
	RetrievalLimit  int
	HistoryLimit    int
}

// Orchestrator drives one learner turn through the pipeline state machine.
type Orchestrator struct {
	retriever  Retriever
	translator agents.Translator
	reviewer   agents.Reviewer
	messages   MessageRepositoryInterface
	tx         TxRunner
	limiter    *RateLimiter
	uuidGen    UUIDGenerator
	cfg        Config
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(
	retriever Retriever,
	translator agents.Translator,
	reviewer agents.Reviewer,
	messages MessageRepositoryInterface,
	tx TxRunner,
	limiter *RateLimiter,
	cfg Config,
) *Orchestrator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Orchestrator{
		retriever:  retriever,
		translator: translator,
		reviewer:   reviewer,
		messages:   messages,
		tx:         tx,
		limiter:    limiter,
		uuidGen:    &DefaultUUIDGenerator{},
		cfg:        cfg,
	}
}

// NewOrchestratorWithUUIDGen creates a new Orchestrator with custom UUID generator (for testing)
func NewOrchestratorWithUUIDGen(
	retriever Retriever,
	translator agents.Translator,
	reviewer agents.Reviewer,
	messages MessageRepositoryInterface,
	tx TxRunner,
	limiter *RateLimiter,
	cfg Config,
	uuidGen UUIDGenerator,
) *Orchestrator {
	o := NewOrchestrator(retriever, translator, reviewer, messages, tx, limiter, cfg)
	o.uuidGen = uuidGen
	return o
}

// ChatInput represents one learner turn entering the pipeline.
type ChatInput struct {
	LearnerID      string
	ConversationID string
	Message        string
	Language       string
}

// ChatOutput is the stored result of the turn.
type ChatOutput struct {
	ConversationID string
	Message        *domain.ConversationMessage
	Run            *domain.PipelineRun
	Disposition    domain.Disposition
}

// attempt is the outcome of one translate-review-compose pass.
type attempt struct {
	snippets    []*domain.KnowledgeEntry
	translation *agents.Translation
	review      *agents.Review
	composite   int
	reviewerErr error
}

// ProcessTurn runs the full state machine for one learner message. The
// learner message is stored before any agent call, so even an agent outage
// leaves the conversation record intact.
func (o *Orchestrator) ProcessTurn(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.ProcessTurn", telemetry.SpanAttributes{
		Language:  input.Language,
		Operation: "process_turn",
	})
	defer span.End()

	if input.LearnerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "learner ID is required")
	}
	if input.Message == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}
	if input.Language == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "language is required")
	}

	if o.limiter != nil && !o.limiter.Allow(input.LearnerID) {
		return nil, domain.ErrRateLimited
	}

	conversationID := input.ConversationID
	if conversationID == "" {
		conversationID = o.uuidGen.NewString()
	}

	history, err := o.messages.ListRecent(ctx, conversationID, o.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	userMsg := &domain.ConversationMessage{
		ID:             o.uuidGen.NewString(),
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        input.Message,
		CreatedAt:      time.Now(),
	}
	if err := o.messages.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to store learner message: %w", err)
	}

	first, err := o.runAttempt(ctx, input, history, "")
	if err != nil {
		return nil, err
	}

	final := first
	retryCount := 0

	switch {
	case o.isReturnable(first):
		// fall through to finalize as returned

	case first.reviewerErr == nil && o.inRetryZone(first):
		retryCount = 1
		retried, retryErr := o.runAttempt(ctx, input, history, first.review.Judgment.Reasoning)
		if retryErr != nil {
			// Retry generation failed; escalate the first candidate rather
			// than dropping the turn.
			log.Printf("pipeline: retry attempt failed, escalating first candidate: %v", retryErr)
		} else {
			final = retried
		}
	}

	disposition := domain.DispositionEscalated
	if o.isReturnable(final) {
		disposition = domain.DispositionReturned
	}

	return o.finalize(ctx, input, conversationID, final, retryCount, disposition)
}

// runAttempt performs one retrieve-translate-review-compose pass. Reviewer
// transport failures are captured in the attempt, not returned; translator
// failures are returned because there is no candidate answer without one.
func (o *Orchestrator) runAttempt(ctx context.Context, input ChatInput, history []*domain.ConversationMessage, feedback string) (*attempt, error) {
	snippets, err := o.retriever.Search(ctx, input.Message, input.Language, o.cfg.RetrievalLimit)
	if err != nil {
		log.Printf("pipeline: retrieval failed, continuing ungrounded: %v", err)
		snippets = []*domain.KnowledgeEntry{}
	}

	translation, err := o.translator.Translate(ctx, agents.TranslationRequest{
		Message:  input.Message,
		Language: input.Language,
		History:  history,
		Snippets: snippets,
		Feedback: feedback,
	})
	if err != nil {
		return nil, fmt.Errorf("translator failed: %w", err)
	}

	a := &attempt{snippets: snippets, translation: translation}

	review, err := o.reviewer.Review(ctx, agents.ReviewRequest{
		Message:         input.Message,
		CandidateAnswer: translation.Text,
		Language:        input.Language,
		KnowledgeUsed:   snippets,
	})
	if err != nil {
		log.Printf("pipeline: reviewer unavailable, substituting fallback judgment: %v", err)
		a.reviewerErr = err
		a.review = &agents.Review{
			Judgment: agents.FallbackJudgment("reviewer unavailable: " + err.Error()),
		}
	} else {
		a.review = review
	}

	a.composite = Compose(
		a.review.Judgment.Score,
		translation.UsedKnowledge,
		translation.SelfConfidence,
		a.review.Judgment.Passed,
	)
	return a, nil
}

// isReturnable applies the return gate: the reviewer passed the answer and
// the composite clears the threshold.
func (o *Orchestrator) isReturnable(a *attempt) bool {
	return a.reviewerErr == nil &&
		a.review.Judgment.Passed &&
		a.composite >= o.cfg.ReturnThreshold
}

// inRetryZone reports whether the composite sits in the band where one
// corrective regeneration is worth the cost.
func (o *Orchestrator) inRetryZone(a *attempt) bool {
	return a.composite >= o.cfg.RetryLowerBound && a.composite < o.cfg.ReturnThreshold
}

// finalize stores the assistant message, the run record, and the escalation
// item (when escalated) in one transaction.
func (o *Orchestrator) finalize(ctx context.Context, input ChatInput, conversationID string, a *attempt, retryCount int, disposition domain.Disposition) (*ChatOutput, error) {
	now := time.Now()
	runID := o.uuidGen.NewString()
	messageID := o.uuidGen.NewString()

	content := a.translation.Text
	source := domain.SourceAI
	if disposition == domain.DispositionEscalated {
		content += disclaimer
		source = domain.SourceAIPendingReview
	}

	assistantMsg := &domain.ConversationMessage{
		ID:              messageID,
		ConversationID:  conversationID,
		Role:            domain.RoleAssistant,
		Content:         content,
		Source:          source,
		ConfidenceScore: a.composite,
		CreatedAt:       now,
	}

	run := &domain.PipelineRun{
		ID:                runID,
		MessageID:         messageID,
		TranslatorModel:   a.translation.Model,
		TranslatorOutput:  a.translation.Text,
		TranslatorLatency: a.translation.Latency,
		ReviewerOutput:    a.review.RawOutput,
		ReviewerLatency:   a.review.Latency,
		Judgment:          a.review.Judgment,
		CompositeScore:    a.composite,
		KnowledgeIDsUsed:  a.translation.KnowledgeIDsUsed,
		RetryCount:        retryCount,
		Disposition:       disposition,
		CreatedAt:         now,
	}

	err := o.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Messages().CreateMessage(ctx, assistantMsg); err != nil {
			return fmt.Errorf("failed to store assistant message: %w", err)
		}
		if err := repos.Runs().Create(ctx, run); err != nil {
			return fmt.Errorf("failed to store pipeline run: %w", err)
		}
		if err := repos.Messages().AttachRun(ctx, messageID, runID); err != nil {
			return fmt.Errorf("failed to link run to message: %w", err)
		}

		if disposition == domain.DispositionEscalated {
			item := &domain.EscalationItem{
				ID:                o.uuidGen.NewString(),
				PipelineRunID:     runID,
				LearnerRequest:    input.Message,
				ModelAnswer:       a.translation.Text,
				Language:          input.Language,
				ConfidenceScore:   a.composite,
				ReviewerReasoning: a.review.Judgment.Reasoning,
				GapCategory:       a.review.Judgment.GapCategory,
				Status:            domain.EscalationPending,
				CreatedAt:         now,
			}
			if err := repos.Escalations().Create(ctx, item); err != nil {
				return fmt.Errorf("failed to create escalation item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	assistantMsg.PipelineRunID = runID

	return &ChatOutput{
		ConversationID: conversationID,
		Message:        assistantMsg,
		Run:            run,
		Disposition:    disposition,
	}, nil
}
