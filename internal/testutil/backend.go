package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// FakeBackendConfig controls failure injection for a FakeBackend. The
// zero value is a healthy backend that completes every job on the first
// poll and serves the configured image.
type FakeBackendConfig struct {
	// SubmitStatus is the HTTP status for POST /prompt. Zero means 200.
	SubmitStatus int

	// OmitPromptID drops the prompt_id field from the enqueue response.
	OmitPromptID bool

	// EmptyPolls is how many history polls return an empty mapping
	// before a submitted job appears as completed.
	EmptyPolls int

	// NoOutputs makes completed jobs carry no image reference.
	NoOutputs bool

	// ViewStatus is the HTTP status for GET /view. Zero means 200.
	ViewStatus int

	// Filename and Subfolder locate the produced image in history
	// entries. Filename defaults to "ComfyUI_00001_.png".
	Filename  string
	Subfolder string
}

// FakeBackend is an in-process stand-in for the generation backend's
// HTTP API: POST /prompt, GET /history/{id}, GET /view.
//
// Thread-safety: handler state is guarded by an internal mutex, and the
// introspection methods may be called while the server is live.
type FakeBackend struct {
	cfg   FakeBackendConfig
	image []byte
	srv   *httptest.Server

	mu            sync.Mutex
	submits       int
	polls         int
	pollsByID     map[string]int
	lastID        string
	lastSubmit    []byte
	lastViewQuery url.Values
}

// NewFakeBackend starts the fake server. image is the artifact served by
// GET /view. The server shuts down via t.Cleanup.
func NewFakeBackend(t *testing.T, image []byte, cfg FakeBackendConfig) *FakeBackend {
	t.Helper()
	if cfg.Filename == "" {
		cfg.Filename = "ComfyUI_00001_.png"
	}
	b := &FakeBackend{
		cfg:       cfg,
		image:     image,
		pollsByID: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /prompt", b.handleSubmit)
	mux.HandleFunc("GET /history/{id}", b.handleHistory)
	mux.HandleFunc("GET /view", b.handleView)

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the backend's base URL.
func (b *FakeBackend) URL() string { return b.srv.URL }

// Submits returns how many enqueue requests arrived.
func (b *FakeBackend) Submits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits
}

// Polls returns how many history requests arrived.
func (b *FakeBackend) Polls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

// LastSubmit returns the raw body of the most recent enqueue request.
func (b *FakeBackend) LastSubmit() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSubmit
}

// SubmittedSeed decodes the sampler seed from the most recent enqueue
// request.
func (b *FakeBackend) SubmittedSeed(t *testing.T) uint32 {
	t.Helper()
	var req struct {
		Prompt map[string]struct {
			Inputs map[string]any `json:"inputs"`
		} `json:"prompt"`
	}
	if err := json.Unmarshal(b.LastSubmit(), &req); err != nil {
		t.Fatalf("decode submitted workflow: %v", err)
	}
	seed, ok := req.Prompt["6"].Inputs["seed"].(float64)
	if !ok {
		t.Fatalf("submitted workflow has no numeric seed on node 6")
	}
	return uint32(seed)
}

// LastViewQuery returns the query parameters of the most recent artifact
// download.
func (b *FakeBackend) LastViewQuery() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastViewQuery
}

func (b *FakeBackend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.submits++
	b.lastSubmit = body
	id := fmt.Sprintf("job-%d", b.submits)
	b.lastID = id
	status := b.cfg.SubmitStatus
	omit := b.cfg.OmitPromptID
	b.mu.Unlock()

	if status != 0 && (status < 200 || status >= 300) {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if omit {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"prompt_id": id})
}

func (b *FakeBackend) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	b.polls++
	b.pollsByID[id]++
	done := id == b.lastID && b.pollsByID[id] > b.cfg.EmptyPolls
	noOutputs := b.cfg.NoOutputs
	filename, subfolder := b.cfg.Filename, b.cfg.Subfolder
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !done {
		json.NewEncoder(w).Encode(map[string]any{})
		return
	}

	outputs := map[string]any{"8": map[string]any{}}
	if !noOutputs {
		outputs["8"] = map[string]any{
			"images": []map[string]string{{
				"filename":  filename,
				"subfolder": subfolder,
				"type":      "output",
			}},
		}
	}
	json.NewEncoder(w).Encode(map[string]any{
		id: map[string]any{"outputs": outputs},
	})
}

func (b *FakeBackend) handleView(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.lastViewQuery = r.URL.Query()
	status := b.cfg.ViewStatus
	image := b.image
	b.mu.Unlock()

	if status != 0 && (status < 200 || status >= 300) {
		w.WriteHeader(status)
		return
	}
	w.Write(image)
}
