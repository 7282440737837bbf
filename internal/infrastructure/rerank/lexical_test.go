package rerank

import (
	"context"
	"testing"
)

func TestScoreRanksRelevantChunkHigher(t *testing.T) {
	s := NewLexicalScorer()
	query := "what is the data retention policy"

	relevant, err := s.Score(context.Background(), query, "The data retention policy keeps backups for 30 days.")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	irrelevant, err := s.Score(context.Background(), query, "Kubernetes pods restart on liveness probe failure.")
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if relevant <= irrelevant {
		t.Fatalf("relevant chunk should outscore irrelevant one: %.3f <= %.3f", relevant, irrelevant)
	}
}

func TestScoreExactMatchIsPositive(t *testing.T) {
	s := NewLexicalScorer()
	got, err := s.Score(context.Background(), "retention policy", "retention policy")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got <= 0 {
		t.Fatalf("exact match should score above the logistic midpoint, got %.3f", got)
	}
}

func TestScoreEmptyInputsFloor(t *testing.T) {
	s := NewLexicalScorer()
	got, err := s.Score(context.Background(), "", "some text")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got != -3.0 {
		t.Fatalf("empty query should hit the floor, got %.3f", got)
	}
}

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	got := tokenize("Data-retention: 30 days!")
	want := []string{"data", "retention", "30", "days"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokenize[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
