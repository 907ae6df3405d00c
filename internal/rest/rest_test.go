package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func createTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "test-key", srv.Client(), createTestLogger())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c, srv
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New("://nope", "key", nil, createTestLogger()); err == nil {
		t.Error("Expected error for malformed base URL")
	}
	if _, err := New("ftp://example.com", "key", nil, createTestLogger()); err == nil {
		t.Error("Expected error for non-http scheme")
	}
}

func TestGet_SendsHeaders(t *testing.T) {
	var gotAuth, gotRequestID, gotAccept string
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAccept = r.Header.Get("Accept")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))

	var out map[string]string
	if err := c.Get(context.Background(), "/status/", &out); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotAuth != "APIKey test-key" {
		t.Errorf("Expected 'APIKey test-key' Authorization header, got %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
	if gotAccept != "application/json" {
		t.Errorf("Expected JSON Accept header, got %q", gotAccept)
	}
	if out["status"] != "ok" {
		t.Errorf("Expected decoded response, got %v", out)
	}
}

func TestPost_SendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))

	body := map[string]string{"name": "flowers"}
	var out struct{}
	if err := c.Post(context.Background(), "/datasets/", body, &out); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}
	if gotBody["name"] != "flowers" {
		t.Errorf("Expected name 'flowers' in body, got %v", gotBody)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"detail": "try again"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))

	var out map[string]string
	if err := c.Get(context.Background(), "/flaky/", &out); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail": "no such dataset"}`, http.StatusNotFound)
	}))

	err := c.Get(context.Background(), "/datasets/jane/missing/", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 attempt for 404, got %d", got)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", apiErr.StatusCode)
	}
	if apiErr.Detail != "no such dataset" {
		t.Errorf("Expected decoded detail, got %q", apiErr.Detail)
	}
	if !IsNotFound(err) {
		t.Error("Expected IsNotFound to be true")
	}
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := c.Get(context.Background(), "/broken/", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	// Initial attempt plus defaultMaxRetries retries.
	if got := calls.Load(); got != defaultMaxRetries+1 {
		t.Errorf("Expected %d attempts, got %d", defaultMaxRetries+1, got)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", apiErr.StatusCode)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Get(ctx, "/anything/", nil); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestDelete_DiscardsBody(t *testing.T) {
	var gotMethod string
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.Delete(context.Background(), "/samples/abc/"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("Expected DELETE, got %s", gotMethod)
	}
}

func TestReadErrorDetail_FallsBackToRawBody(t *testing.T) {
	c, _ := createTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusBadRequest)
	}))

	err := c.Get(context.Background(), "/bad/", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.Detail != "plain text failure" {
		t.Errorf("Expected raw body as detail, got %q", apiErr.Detail)
	}
}
