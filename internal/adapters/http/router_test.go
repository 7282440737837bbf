package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evidentia/docsqa/internal/core/domain"
)

type queryFake struct {
	result *domain.QueryResult
	err    error
}

func (f queryFake) Run(context.Context, string, domain.Mode) (*domain.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.QueryResult{
		Answer:     "ok",
		Decision:   domain.DecisionAnswer,
		Confidence: 0.8,
	}, nil
}

type ingestFake struct {
	err      error
	filename string
	text     string
}

func (f *ingestFake) Ingest(_ context.Context, filename, text string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.filename = filename
	f.text = text
	now := time.Now().UTC()
	return &domain.Document{
		ID:        "doc-1",
		Filename:  filename,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetDocument(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", Filename: "a.txt", Status: domain.StatusReady}, nil
}

func newTestRouter(query queryFake, ingest *ingestFake, docs docsFake) http.Handler {
	if ingest == nil {
		ingest = &ingestFake{}
	}
	logger := slog.New(slog.DiscardHandler)
	return NewRouter(query, ingest, docs, logger).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(queryFake{}, nil, docsFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestQuerySuccess(t *testing.T) {
	handler := newTestRouter(queryFake{result: &domain.QueryResult{
		Answer:     "Backups are kept for 30 days.",
		Decision:   domain.DecisionAnswer,
		Confidence: 0.82,
	}}, nil, docsFake{})

	payload, _ := json.Marshal(map[string]string{"question": "what is the retention policy?"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var got domain.QueryResult
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Decision != domain.DecisionAnswer || got.Answer == "" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestQueryEmptyQuestionReturns400(t *testing.T) {
	handler := newTestRouter(queryFake{}, nil, docsFake{})

	payload, _ := json.Marshal(map[string]string{"question": "   "})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsInvalidInputTo400(t *testing.T) {
	handler := newTestRouter(queryFake{
		err: domain.WrapError(domain.ErrInvalidInput, "run query", errors.New("unknown mode")),
	}, nil, docsFake{})

	payload, _ := json.Marshal(map[string]string{"question": "q", "mode": "paranoid"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsTemporaryTo503(t *testing.T) {
	handler := newTestRouter(queryFake{
		err: domain.WrapError(domain.ErrTemporary, "run query", errors.New("all retrieval legs failed")),
	}, nil, docsFake{})

	payload, _ := json.Marshal(map[string]string{"question": "q"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestRouter(queryFake{}, ingest, docsFake{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "policy.txt")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("Backups are kept for 30 days.")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if ingest.filename != "policy.txt" || ingest.text != "Backups are kept for 30 days." {
		t.Fatalf("ingestor received filename=%q text=%q", ingest.filename, ingest.text)
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newTestRouter(queryFake{}, nil, docsFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	handler := newTestRouter(queryFake{}, nil, docsFake{
		err: domain.WrapError(domain.ErrNotFound, "get document", errors.New("id=missing")),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetDocumentByIDSuccess(t *testing.T) {
	handler := newTestRouter(queryFake{}, nil, docsFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestQueryMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(queryFake{}, nil, docsFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/query", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
