package escalation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
)

const defaultQuorumSize = 3

// ResolveInput carries one reviewer's decision on an escalation item.
type ResolveInput struct {
	ItemID     string
	ReviewerID string
	Action     domain.VoteAction
	Correction string

	// TieBreak marks a senior reviewer's override. It resolves a gold-set
	// item immediately, regardless of the vote tally.
	TieBreak bool
}

// Resolver applies reviewer decisions. Regular items resolve on the first
// decision; gold-set items collect independent votes until a quorum agrees
// or a senior reviewer breaks the tie.
type Resolver struct {
	items   ItemRepositoryInterface
	runs    RunRepositoryInterface
	tx      TxRunner
	uuidGen UUIDGenerator
	quorum  int
}

// NewResolver creates a new Resolver instance
func NewResolver(items ItemRepositoryInterface, runs RunRepositoryInterface, tx TxRunner, quorum int) *Resolver {
	if quorum <= 0 {
		quorum = defaultQuorumSize
	}
	return &Resolver{
		items:   items,
		runs:    runs,
		tx:      tx,
		uuidGen: &DefaultUUIDGenerator{},
		quorum:  quorum,
	}
}

// NewResolverWithUUIDGen creates a new Resolver with custom UUID generator (for testing)
func NewResolverWithUUIDGen(items ItemRepositoryInterface, runs RunRepositoryInterface, tx TxRunner, quorum int, uuidGen UUIDGenerator) *Resolver {
	r := NewResolver(items, runs, tx, quorum)
	r.uuidGen = uuidGen
	return r
}

// Resolve records the reviewer's decision and returns the refreshed item.
// Gold-set items may come back still open when the quorum has not settled.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) (*domain.EscalationItem, error) {
	if err := validateResolveInput(input); err != nil {
		return nil, err
	}

	item, err := r.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status.IsTerminal() {
		return nil, domain.ErrEscalationConflict
	}

	if item.GoldSet {
		return r.resolveGoldSet(ctx, item, input)
	}
	return r.finalize(ctx, item, input.ReviewerID, input.Action, input.Correction)
}

// Vote records one reviewer's vote on a gold-set item without requiring the
// caller to distinguish item kinds; regular items reject votes.
func (r *Resolver) Vote(ctx context.Context, input ResolveInput) (*domain.EscalationItem, error) {
	if err := validateResolveInput(input); err != nil {
		return nil, err
	}

	item, err := r.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.GoldSet {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "votes are only accepted on gold-set items")
	}
	if item.Status.IsTerminal() {
		return nil, domain.ErrEscalationConflict
	}
	return r.resolveGoldSet(ctx, item, input)
}

func validateResolveInput(input ResolveInput) error {
	if input.ItemID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "item ID is required")
	}
	if input.ReviewerID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "reviewer ID is required")
	}
	if !domain.IsValidVoteAction(input.Action) {
		return domain.NewDomainError(domain.ErrCodeValidation, "unknown action")
	}
	if input.Action == domain.VoteCorrect && input.Correction == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "a correction requires the corrected answer")
	}
	return nil
}

// resolveGoldSet records the vote, then resolves if the quorum has settled or
// the vote is a senior tie-break. An unsettled quorum leaves the item open.
func (r *Resolver) resolveGoldSet(ctx context.Context, item *domain.EscalationItem, input ResolveInput) (*domain.EscalationItem, error) {
	vote := &domain.EscalationVote{
		ID:         r.uuidGen.NewString(),
		ItemID:     item.ID,
		ReviewerID: input.ReviewerID,
		Action:     input.Action,
		Correction: input.Correction,
		TieBreak:   input.TieBreak,
		CastAt:     time.Now(),
	}
	if err := r.items.AddVote(ctx, vote); err != nil {
		// A senior reviewer may have already voted in the regular round;
		// their tie-break still stands.
		if !(input.TieBreak && errors.Is(err, domain.ErrDuplicateVote)) {
			return nil, err
		}
	}

	if input.TieBreak {
		return r.finalize(ctx, item, input.ReviewerID, input.Action, input.Correction)
	}

	votes, err := r.items.ListVotes(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if len(votes) < r.quorum {
		return r.items.GetByID(ctx, item.ID)
	}

	action, correction, settled := tally(votes)
	if !settled {
		log.Printf("escalation: gold-set item %s has %d votes with no majority, awaiting tie-break", item.ID, len(votes))
		return r.items.GetByID(ctx, item.ID)
	}
	return r.finalize(ctx, item, input.ReviewerID, action, correction)
}

// tally finds a strict majority outcome among the votes. Correct votes with
// differing text are distinct outcomes, so an irreconcilable split stays
// unsettled and waits for the senior tie-break.
func tally(votes []domain.EscalationVote) (domain.VoteAction, string, bool) {
	type outcome struct {
		action     domain.VoteAction
		correction string
	}

	counts := make(map[outcome]int)
	for _, v := range votes {
		key := outcome{action: v.Action}
		if v.Action == domain.VoteCorrect {
			key.correction = v.Correction
		}
		counts[key]++
	}

	majority := len(votes)/2 + 1
	for o, count := range counts {
		if count >= majority {
			return o.action, o.correction, true
		}
	}
	return "", "", false
}

// finalize writes the terminal status and, for approved or corrected
// outcomes, the knowledge feedback, in one transaction.
func (r *Resolver) finalize(ctx context.Context, item *domain.EscalationItem, reviewerID string, action domain.VoteAction, correction string) (*domain.EscalationItem, error) {
	status := statusForAction(action)
	now := time.Now()

	err := r.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Items().Resolve(ctx, item.ID, reviewerID, status, correction, now); err != nil {
			return err
		}

		switch status {
		case domain.EscalationApproved:
			if err := r.captureKnowledge(ctx, repos, item, item.ModelAnswer, now); err != nil {
				return fmt.Errorf("failed to capture approved answer: %w", err)
			}
			if err := r.confirmUsedKnowledge(ctx, repos, item.PipelineRunID); err != nil {
				return fmt.Errorf("failed to confirm used knowledge: %w", err)
			}
		case domain.EscalationCorrected:
			if err := r.captureKnowledge(ctx, repos, item, correction, now); err != nil {
				return fmt.Errorf("failed to capture corrected answer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == domain.EscalationRejected {
		log.Printf("escalation: item %s rejected, gap %q left open for curation", item.ID, item.GapCategory)
	}

	return r.items.GetByID(ctx, item.ID)
}

func statusForAction(action domain.VoteAction) domain.EscalationStatus {
	switch action {
	case domain.VoteApprove:
		return domain.EscalationApproved
	case domain.VoteCorrect:
		return domain.EscalationCorrected
	default:
		return domain.EscalationRejected
	}
}
