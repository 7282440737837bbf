package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evidentia/docsqa/internal/core/domain"
	"github.com/evidentia/docsqa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator implements the full LLM capability set of the query path:
// answering, brief regeneration, query rewriting, decomposition, the
// groundedness judge, and contradiction detection.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Answer(ctx context.Context, question string, evidence []domain.RerankedResult) (string, error) {
	return g.client.generateText(ctx, buildAnswerPrompt(question, evidence), "answer")
}

func (g *Generator) BriefAnswer(ctx context.Context, question string, evidence []domain.RerankedResult) (string, error) {
	return g.client.generateText(ctx, buildBriefAnswerPrompt(question, evidence), "brief_answer")
}

func (g *Generator) Rewrite(ctx context.Context, question string) (string, error) {
	text, err := g.client.generateText(ctx, buildRewritePrompt(question), "rewrite")
	if err != nil {
		return "", err
	}
	// Models occasionally quote the rewrite or add a second line.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.Trim(strings.TrimSpace(text), `"`), nil
}

func (g *Generator) Decompose(ctx context.Context, question string) ([]string, error) {
	raw, err := g.client.generateJSON(ctx, buildDecomposePrompt(question), "decompose")
	if err != nil {
		return nil, err
	}

	var result struct {
		SubQuestions []string `json:"sub_questions"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse decompose json: %w", err)
	}
	return result.SubQuestions, nil
}

func (g *Generator) Judge(ctx context.Context, question, answer string, evidence []domain.RerankedResult) (domain.Judgment, error) {
	raw, err := g.client.generateJSON(ctx, buildJudgePrompt(question, answer, evidence), "judge")
	if err != nil {
		return domain.Judgment{}, err
	}

	var result domain.Judgment
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return domain.Judgment{}, fmt.Errorf("parse judge json: %w", err)
	}
	if result.Groundedness < 0 {
		result.Groundedness = 0
	}
	if result.Groundedness > 1 {
		result.Groundedness = 1
	}
	return result, nil
}

func (g *Generator) DetectConflicts(ctx context.Context, answer string, evidence []domain.RerankedResult) (domain.ConflictReport, error) {
	raw, err := g.client.generateJSON(ctx, buildConflictPrompt(answer, evidence), "detect_conflicts")
	if err != nil {
		return domain.ConflictReport{}, err
	}

	var result domain.ConflictReport
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return domain.ConflictReport{}, fmt.Errorf("parse conflict json: %w", err)
	}
	if result.Rate < 0 {
		result.Rate = 0
	}
	if result.Rate > 1 {
		result.Rate = 1
	}
	return result, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt, operation string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody, operation)
}

func (c *Client) generateText(ctx context.Context, prompt, operation string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody, operation)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any, operation string) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, operation); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
