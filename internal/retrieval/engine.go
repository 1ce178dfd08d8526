// Package retrieval implements grounding search over the knowledge store:
// vector ranking when embeddings are available, keyword matching when they
// are not. Degradation is silent; the pipeline never fails a turn because
// the vector path is down.
package retrieval

import (
	"context"
	"log"
	"strings"
	"unicode"

	"github.com/sauti-labs/lugha/internal/domain"
)

// minTokenLength filters noise words from the keyword fallback. Tokens of
// two characters or fewer rarely discriminate in the supported languages.
const minTokenLength = 3

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchRepository defines the repository interface for knowledge lookups
type SearchRepository interface {
	SearchSemantic(ctx context.Context, embedding []float32, language string, limit int) ([]*domain.KnowledgeEntry, error)
	SearchKeyword(ctx context.Context, tokens []string, language string, limit int) ([]*domain.KnowledgeEntry, error)
}

// Engine ranks knowledge entries for a query. An empty result is a valid
// answer, not an error; downstream treats "nothing found" as its own signal.
type Engine struct {
	embedding EmbeddingClient
	repo      SearchRepository
	limit     int
}

func NewEngine(embedding EmbeddingClient, repo SearchRepository, limit int) *Engine {
	if limit <= 0 {
		limit = 5
	}
	return &Engine{
		embedding: embedding,
		repo:      repo,
		limit:     limit,
	}
}

// Search returns up to limit entries for the query, restricted to the
// requested language. Primary path is semantic; embedding or index failure
// falls back to keyword matching ordered by recency.
func (e *Engine) Search(ctx context.Context, query, language string, limit int) ([]*domain.KnowledgeEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" || language == "" {
		return []*domain.KnowledgeEntry{}, nil
	}
	if limit <= 0 {
		limit = e.limit
	}

	if e.embedding != nil {
		embedding, err := e.embedding.GenerateEmbedding(ctx, query)
		if err == nil {
			entries, err := e.repo.SearchSemantic(ctx, embedding, language, limit)
			if err == nil {
				return entries, nil
			}
			log.Printf("retrieval: semantic search failed, falling back to keywords: %v", err)
		} else {
			log.Printf("retrieval: embedding generation failed, falling back to keywords: %v", err)
		}
	}

	return e.repo.SearchKeyword(ctx, tokenizeQuery(query), language, limit)
}

// tokenizeQuery lowercases and splits on non-letter/digit runs, dropping
// short tokens and duplicates.
func tokenizeQuery(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < minTokenLength {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		tokens = append(tokens, field)
	}
	return tokens
}
