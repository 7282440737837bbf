package ollama

import (
	"fmt"
	"strings"

	"github.com/evidentia/docsqa/internal/core/domain"
)

func formatEvidence(evidence []domain.RerankedResult) string {
	var b strings.Builder
	for idx, e := range evidence {
		b.WriteString(fmt.Sprintf("[%d] doc=%s chunk=%s score=%.3f\n%s\n\n",
			idx+1, e.DocumentID, e.ChunkID, e.NormalizedScore, e.Text))
	}
	return b.String()
}

func buildAnswerPrompt(question string, evidence []domain.RerankedResult) string {
	return fmt.Sprintf(`Answer the user question only from the evidence below.
Cite nothing outside the evidence. If the evidence does not contain the
answer, say so directly.

Question:
%s

Evidence:
%s`, question, formatEvidence(evidence))
}

func buildBriefAnswerPrompt(question string, evidence []domain.RerankedResult) string {
	return fmt.Sprintf(`Answer the user question from the evidence below in at most three sentences.
Be direct and factual. If the evidence does not contain the answer, say so.

Question:
%s

Evidence:
%s`, question, formatEvidence(evidence))
}

func buildRewritePrompt(question string) string {
	return fmt.Sprintf(`Rewrite the search query below to improve document retrieval.
Expand abbreviations, add likely synonyms, keep the original meaning.
Return only the rewritten query, one line, no explanation.

Query:
%s`, question)
}

func buildDecomposePrompt(question string) string {
	return fmt.Sprintf(`Split the question below into independent sub-questions if it asks
several things at once. If it asks one thing, return it unchanged as the
only sub-question.
Return strict JSON: {"sub_questions": ["...", "..."]}. No markdown, no extra keys.

Question:
%s`, question)
}

func buildJudgePrompt(question, answer string, evidence []domain.RerankedResult) string {
	return fmt.Sprintf(`You are a groundedness judge. Score how well every claim of the answer
is supported by the evidence.
Return strict JSON with keys:
groundedness (number from 0 to 1), unsupported_claims (array of strings),
flags (array of strings, use "evidence_conflict" if evidence passages contradict each other).
No markdown, no extra keys.

Question:
%s

Answer:
%s

Evidence:
%s`, question, answer, formatEvidence(evidence))
}

func buildConflictPrompt(answer string, evidence []domain.RerankedResult) string {
	return fmt.Sprintf(`Compare the answer against each evidence passage and the passages
against each other.
Return strict JSON with keys:
contradiction_rate (number from 0 to 1, the fraction of contradicting pairs),
evidence_conflict (boolean, true if evidence passages directly contradict each other).
No markdown, no extra keys.

Answer:
%s

Evidence:
%s`, answer, formatEvidence(evidence))
}
