package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/evidentia/docsqa/internal/config"
	"github.com/evidentia/docsqa/internal/core/domain"
)

var errBoom = errors.New("boom")

type fakeGenerator struct {
	mu sync.Mutex

	answer    string
	answerErr error

	brief    string
	briefErr error

	rewrite    string
	rewriteErr error

	subs         []string
	decomposeErr error

	judgment domain.Judgment
	judgeErr error

	conflicts   domain.ConflictReport
	conflictErr error

	answerCalls  int
	rewriteCalls int
}

func (g *fakeGenerator) Answer(_ context.Context, _ string, _ []domain.RerankedResult) (string, error) {
	g.mu.Lock()
	g.answerCalls++
	g.mu.Unlock()
	return g.answer, g.answerErr
}

func (g *fakeGenerator) BriefAnswer(_ context.Context, _ string, _ []domain.RerankedResult) (string, error) {
	if g.briefErr != nil {
		return "", g.briefErr
	}
	if g.brief != "" {
		return g.brief, nil
	}
	return g.answer, nil
}

func (g *fakeGenerator) Rewrite(_ context.Context, question string) (string, error) {
	g.mu.Lock()
	g.rewriteCalls++
	g.mu.Unlock()
	if g.rewriteErr != nil {
		return "", g.rewriteErr
	}
	if g.rewrite != "" {
		return g.rewrite, nil
	}
	return question, nil
}

func (g *fakeGenerator) Decompose(_ context.Context, _ string) ([]string, error) {
	return g.subs, g.decomposeErr
}

func (g *fakeGenerator) Judge(_ context.Context, _, _ string, _ []domain.RerankedResult) (domain.Judgment, error) {
	return g.judgment, g.judgeErr
}

func (g *fakeGenerator) DetectConflicts(_ context.Context, _ string, _ []domain.RerankedResult) (domain.ConflictReport, error) {
	return g.conflicts, g.conflictErr
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2}, nil
}

// fakeVector serves narrow results normally and switches to the wide set
// once the requested breadth crosses wideAt, mimicking a fallback retry
// reaching deeper into the index.
type fakeVector struct {
	mu      sync.Mutex
	results []domain.Candidate
	wide    []domain.Candidate
	wideAt  int
	err     error
	ks      []int
}

func (v *fakeVector) Search(_ context.Context, _ []float32, k int) ([]domain.Candidate, error) {
	v.mu.Lock()
	v.ks = append(v.ks, k)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	if v.wideAt > 0 && k >= v.wideAt && v.wide != nil {
		return v.wide, nil
	}
	return v.results, nil
}

type fakeKeyword struct {
	results []domain.Candidate
	err     error
}

func (k *fakeKeyword) SearchKeyword(_ context.Context, _ string, _ int) ([]domain.Candidate, error) {
	return k.results, k.err
}

// fakeReranker scores by chunk text lookup; unknown texts score the
// strongly negative floor.
type fakeReranker struct {
	raw map[string]float64
}

func (r *fakeReranker) Score(_ context.Context, _, chunkText string) (float64, error) {
	if raw, ok := r.raw[chunkText]; ok {
		return raw, nil
	}
	return -10, nil
}

type fakeDocumentStore struct {
	mu        sync.Mutex
	docs      map[string]*domain.Document
	chunks    map[string][]domain.Chunk
	ready     int
	countErr  error
	createErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[string]*domain.Document{}, chunks: map[string][]domain.Chunk{}}
}

func (s *fakeDocumentStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocumentStore) UpdateDocumentStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.Error = errMessage
	doc.ChunkCount = chunkCount
	return nil
}

func (s *fakeDocumentStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[documentID] = chunks
	return nil
}

func (s *fakeDocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks[documentID], nil
}

func (s *fakeDocumentStore) CountReadyDocuments(_ context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.ready, nil
}

type fakeTraceStore struct {
	mu     sync.Mutex
	traces []domain.Trace
	err    error
}

func (s *fakeTraceStore) SaveTrace(_ context.Context, trace domain.Trace) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces = append(s.traces, trace)
	return nil
}

func (s *fakeTraceStore) last() (domain.Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.traces) == 0 {
		return domain.Trace{}, false
	}
	return s.traces[len(s.traces)-1], true
}

type fakeQueue struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (q *fakeQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentIngested(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type fakeVectorIndex struct {
	mu      sync.Mutex
	indexed int
	err     error
}

func (f *fakeVectorIndex) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed += len(chunks)
	return nil
}

type fixedChunker struct {
	parts []string
}

func (c fixedChunker) Split(string) []string { return c.parts }

type testDeps struct {
	embedder  *fakeEmbedder
	vector    *fakeVector
	keyword   *fakeKeyword
	reranker  *fakeReranker
	generator *fakeGenerator
	documents *fakeDocumentStore
	traces    *fakeTraceStore
}

func newTestPipeline(t *testing.T, deps testDeps) *QueryPipelineUseCase {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if deps.embedder == nil {
		deps.embedder = &fakeEmbedder{}
	}
	if deps.vector == nil {
		deps.vector = &fakeVector{}
	}
	if deps.keyword == nil {
		deps.keyword = &fakeKeyword{}
	}
	if deps.reranker == nil {
		deps.reranker = &fakeReranker{}
	}
	if deps.generator == nil {
		deps.generator = &fakeGenerator{answer: "an answer"}
	}
	if deps.documents == nil {
		deps.documents = newFakeDocumentStore()
	}
	if deps.traces == nil {
		deps.traces = &fakeTraceStore{}
	}
	return NewQueryPipeline(
		cfg,
		deps.embedder,
		deps.vector,
		deps.keyword,
		deps.reranker,
		deps.generator,
		deps.documents,
		deps.traces,
		nil,
		slog.New(slog.DiscardHandler),
	)
}
