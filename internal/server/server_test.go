package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/genai"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/contractqa"
	"contract-qa/internal/embedding"
	"contract-qa/internal/ingest"
	"contract-qa/internal/prompts"
	"contract-qa/internal/storage/passages"
	"contract-qa/internal/storage/sessions"
	analyzecontract "contract-qa/internal/workers/contract-qa/analyze-contract"
	retrievepassages "contract-qa/internal/workers/contract-qa/retrieve-passages"
	routequery "contract-qa/internal/workers/contract-qa/route-query"
	runturn "contract-qa/internal/workers/contract-qa/run-turn"
	summarizecontract "contract-qa/internal/workers/contract-qa/summarize-contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func routeAll(label string) genai.Generator {
	return genai.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Respond with ONLY the agent name"):
			return label, nil
		case strings.Contains(prompt, "Retrieved Contract Information:"):
			return "ANALYSIS", nil
		case strings.Contains(prompt, "Contract Text:"):
			return "SUMMARY", nil
		}
		return "", genai.ErrLLMGenerationFailed
	})
}

func newTestServer(t *testing.T, label string) (*httptest.Server, string) {
	t.Helper()
	log := logger.NewTestLogger(t)
	set := prompts.Defaults()
	model := routeAll(label)
	store := passages.NewStore(embedding.NewTFIDF(0), passages.NewMemoryIndex(), nil, log)
	repo := sessions.NewMemoryStore()
	docs := t.TempDir()

	orch := runturn.NewOrchestrator(
		routequery.NewHandler(&routequery.Config{Timeout: time.Second}, model, set, nil, log),
		retrievepassages.NewHandler(&retrievepassages.Config{TopK: 12, SearchTimeout: time.Second}, store, nil, log),
		analyzecontract.NewHandler(&analyzecontract.Config{Timeout: time.Second}, model, set, nil, nil, log),
		summarizecontract.NewHandler(&summarizecontract.Config{Timeout: time.Second}, model, set, nil, nil, log),
		nil, log,
	)
	svc := contractqa.New(contractqa.Options{
		Store: store,
		Ingestor: ingest.NewIngestor(
			ingest.NewSplitter(1000, 200),
			ingest.NewTagger([]string{"Tesla"}, nil),
			1<<20, log, ingest.TextLoader{},
		),
		Turns:        runturn.NewHandler(&runturn.Config{Timeout: 5 * time.Second, SessionTTL: time.Hour}, orch, repo, log),
		Sessions:     repo,
		Prompts:      set,
		DocumentsDir: docs,
		Logger:       log,
	})

	srv := httptest.NewServer(New(Config{Address: ":0", ShutdownTimeout: time.Second}, svc, log).Routes())
	t.Cleanup(srv.Close)
	return srv, docs
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decode(t, resp)
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "missing error object in %v", body)
	return e["code"].(string)
}

// ==========================
// Turns
// ==========================

func TestTurn_CreatesSession(t *testing.T) {
	srv, _ := newTestServer(t, "retriever")

	resp := postJSON(t, srv.URL+"/api/sessions/abc/turns", `{"message":"What is the Tesla OTD target?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "abc", body["sessionId"])
	assert.Equal(t, "retriever", body["decision"])
	assert.EqualValues(t, 3, body["turnCount"])
	assert.Len(t, body["turns"], 3)

	resp = get(t, srv.URL+"/api/sessions/abc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decode(t, resp)
	assert.Len(t, session["transcript"], 3)
}

func TestTurn_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"missing message", `{}`},
		{"empty message", `{"message":""}`},
		{"wrong type", `{"message":42}`},
		{"too long", `{"message":"` + strings.Repeat("a", 8001) + `"}`},
	}
	srv, _ := newTestServer(t, "retriever")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/sessions/abc/turns", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, string(apperrors.ErrCodeInvalidRequest), errorCode(t, resp))
		})
	}
}

func TestTurn_WhitespaceMessageRejected(t *testing.T) {
	srv, _ := newTestServer(t, "retriever")
	resp := postJSON(t, srv.URL+"/api/sessions/abc/turns", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ==========================
// Sessions
// ==========================

func TestSession_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, "end")
	resp := get(t, srv.URL+"/api/sessions/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(apperrors.ErrCodeSessionNotFound), errorCode(t, resp))
}

func TestSession_ExportAndDelete(t *testing.T) {
	srv, _ := newTestServer(t, "summarizer")
	resp := postJSON(t, srv.URL+"/api/sessions/abc/turns", `{"message":"Summarize the agreement"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv.URL+"/api/sessions/abc/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "conversation_abc.json")
	rec := decode(t, resp)
	assert.Equal(t, "abc", rec["sessionId"])
	assert.EqualValues(t, 2, rec["turnCount"])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/abc", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	resp = get(t, srv.URL+"/api/sessions/abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ==========================
// Ingestion, actions and stats
// ==========================

func TestIngest_Multipart(t *testing.T) {
	srv, docs := newTestServer(t, "retriever")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "tesla.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Tesla OTD target: 98%"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/ingest", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.FileExists(t, filepath.Join(docs, "tesla.txt"))

	ready := get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusOK, ready.StatusCode)

	stats := decode(t, get(t, srv.URL+"/api/stats"))
	assert.EqualValues(t, 1, stats["passages"])
	assert.Equal(t, []interface{}{"Tesla"}, stats["customers"])
}

func TestIngest_NoFiles(t *testing.T) {
	srv, _ := newTestServer(t, "retriever")
	resp := postJSON(t, srv.URL+"/api/ingest", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRebuild(t *testing.T) {
	srv, docs := newTestServer(t, "retriever")
	require.NoError(t, os.WriteFile(filepath.Join(docs, "tesla.txt"), []byte("Tesla OTD target: 98%"), 0o600))

	resp := postJSON(t, srv.URL+"/api/rebuild", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode(t, resp)
	assert.Len(t, report["files"], 1)
}

func TestQuickAction(t *testing.T) {
	srv, _ := newTestServer(t, "retriever")

	resp := postJSON(t, srv.URL+"/api/quick-actions/dates", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.NotEmpty(t, body["sessionId"])
	assert.Equal(t, "retriever", body["decision"])

	resp = postJSON(t, srv.URL+"/api/quick-actions/weather", ``)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummarizeAll_NotReady(t *testing.T) {
	srv, _ := newTestServer(t, "summarizer")
	resp := postJSON(t, srv.URL+"/api/summarize-all", ``)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(apperrors.ErrCodeStoreNotReady), errorCode(t, resp))
}

func TestPrompts(t *testing.T) {
	srv, _ := newTestServer(t, "retriever")
	body := decode(t, get(t, srv.URL+"/api/prompts"))
	assert.NotEmpty(t, body["supervisor"])
	assert.NotEmpty(t, body["analyst"])
}

// ==========================
// Health
// ==========================

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, "retriever")

	resp := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode(t, resp)["status"])

	resp = get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not_ready", decode(t, resp)["status"])

	resp = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code apperrors.ErrorCode
		want int
	}{
		{apperrors.ErrCodeInvalidRequest, http.StatusBadRequest},
		{apperrors.ErrCodeSessionNotFound, http.StatusNotFound},
		{apperrors.ErrCodeStoreNotReady, http.StatusConflict},
		{apperrors.ErrCodeFileTooLarge, http.StatusRequestEntityTooLarge},
		{apperrors.ErrCodeSessionStoreFailed, http.StatusServiceUnavailable},
		{apperrors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.code))
		})
	}
}
