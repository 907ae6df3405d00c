// Package integration provides end-to-end tests for the segments module
// against an in-memory annotation API server.
package integration

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/agleyzer/segments/pkg/client"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeAPI is an in-memory stand-in for the annotation service. It
// implements the subset of endpoints the client exercises, with the
// same paths and payload shapes as the real API.
type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	datasets map[string]*client.Dataset // keyed by "owner/name"
	samples  map[string]*client.Sample  // keyed by uuid
	byDS     map[string][]string        // dataset identifier -> sample uuids
	labels   map[string]*client.Label   // keyed by "uuid/labelset"
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:        t,
		datasets: make(map[string]*client.Dataset),
		samples:  make(map[string]*client.Sample),
		byDS:     make(map[string][]string),
		labels:   make(map[string]*client.Label),
	}
}

// start serves the fake API and returns a client pointed at it.
func (f *fakeAPI) start() *client.Client {
	f.t.Helper()

	srv := httptest.NewServer(f.handler())
	f.t.Cleanup(srv.Close)

	c, err := client.New("integration-test-key",
		client.WithBaseURL(srv.URL),
		client.WithHTTPClient(srv.Client()),
		client.WithLogger(createTestLogger()),
	)
	if err != nil {
		f.t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api_status/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /user/datasets/", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Name     string          `json:"name"`
			TaskType client.TaskType `json:"task_type"`
		}
		json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		defer f.mu.Unlock()
		identifier := "tester/" + payload.Name
		ds := &client.Dataset{
			Name:     payload.Name,
			FullName: identifier,
			TaskType: payload.TaskType,
			Owner:    client.User{Username: "tester"},
		}
		f.datasets[identifier] = ds
		writeJSON(w, ds)
	})

	mux.HandleFunc("GET /datasets/{owner}/{name}/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ds, ok := f.datasets[datasetID(r)]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, ds)
	})

	mux.HandleFunc("DELETE /datasets/{owner}/{name}/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.datasets, datasetID(r))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /datasets/{owner}/{name}/samples/", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Name       string          `json:"name"`
			Attributes json.RawMessage `json:"attributes"`
		}
		json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		defer f.mu.Unlock()
		id := datasetID(r)
		sample := &client.Sample{
			UUID:       uuid.NewString(),
			Name:       payload.Name,
			Attributes: payload.Attributes,
		}
		f.samples[sample.UUID] = sample
		f.byDS[id] = append(f.byDS[id], sample.UUID)
		writeJSON(w, sample)
	})

	mux.HandleFunc("GET /datasets/{owner}/{name}/samples/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []client.Sample{}
		for _, id := range f.byDS[datasetID(r)] {
			out = append(out, *f.samples[id])
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("GET /samples/{uuid}/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		sample, ok := f.samples[r.PathValue("uuid")]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, sample)
	})

	mux.HandleFunc("PUT /labels/{uuid}/{labelset}/", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			LabelStatus client.LabelStatus `json:"label_status"`
			Attributes  json.RawMessage    `json:"attributes"`
		}
		json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		defer f.mu.Unlock()
		sampleUUID := r.PathValue("uuid")
		if _, ok := f.samples[sampleUUID]; !ok {
			notFound(w)
			return
		}
		label := &client.Label{
			SampleUUID:  sampleUUID,
			LabelStatus: payload.LabelStatus,
			Attributes:  payload.Attributes,
		}
		f.labels[sampleUUID+"/"+r.PathValue("labelset")] = label
		writeJSON(w, label)
	})

	mux.HandleFunc("GET /labels/{uuid}/{labelset}/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		label, ok := f.labels[r.PathValue("uuid")+"/"+r.PathValue("labelset")]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, label)
	})

	return mux
}

func datasetID(r *http.Request) string {
	return fmt.Sprintf("%s/%s", r.PathValue("owner"), r.PathValue("name"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
}
