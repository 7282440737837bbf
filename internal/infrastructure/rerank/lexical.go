// Package rerank provides the pairwise relevance scorer behind the second
// retrieval stage. The lexical scorer needs no model service, which keeps
// the query path alive when the LLM host is saturated.
package rerank

import (
	"context"
	"strings"
	"unicode"
)

// LexicalScorer scores a query/chunk pair from token overlap and bigram
// agreement. The raw score is centered on zero and spans roughly [-3, 3],
// so the downstream logistic squash spreads results over (0, 1).
type LexicalScorer struct {
	overlapWeight float64
	bigramWeight  float64
}

func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{overlapWeight: 0.6, bigramWeight: 0.4}
}

func (s *LexicalScorer) Score(_ context.Context, queryText, chunkText string) (float64, error) {
	queryTokens := tokenize(queryText)
	chunkTokens := tokenize(chunkText)
	if len(queryTokens) == 0 || len(chunkTokens) == 0 {
		return -3.0, nil
	}

	overlap := tokenOverlap(toSet(queryTokens), toSet(chunkTokens))
	bigrams := diceCoefficient(toBigramSet(queryTokens), toBigramSet(chunkTokens))

	blend := s.overlapWeight*overlap + s.bigramWeight*bigrams
	return 6.0 * (blend - 0.5), nil
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func diceCoefficient(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for gram := range a {
		if _, ok := b[gram]; ok {
			shared++
		}
	}
	return 2.0 * float64(shared) / float64(len(a)+len(b))
}

func toSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func toBigramSet(tokens []string) map[string]struct{} {
	if len(tokens) < 2 {
		return toSet(tokens)
	}
	out := make(map[string]struct{}, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out[tokens[i]+" "+tokens[i+1]] = struct{}{}
	}
	return out
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
