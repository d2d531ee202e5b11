// Package comfy implements the HTTP client for the ComfyUI generation
// backend.
//
// The backend exposes no completion notification, so the client submits a
// workflow graph, polls the history endpoint until the job id appears,
// and downloads the resulting image. Each operation uses its own HTTP
// client; no connection state is shared across calls.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/atelier/internal/workflow"
)

const (
	defaultPollInterval   = 500 * time.Millisecond
	defaultPollTimeout    = 5 * time.Minute
	defaultRequestTimeout = 30 * time.Second
)

// Client talks to the generation backend.
type Client struct {
	baseURL        string
	clientID       string
	pollInterval   time.Duration
	pollTimeout    time.Duration
	requestTimeout time.Duration
	sleep          Sleeper
	workflow       workflow.Builder
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPollInterval sets the spacing between history polls.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.pollInterval = d }
}

// WithPollTimeout sets the total wall-clock time allowed for one job to
// appear in history.
func WithPollTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.pollTimeout = d }
}

// WithRequestTimeout sets the per-request HTTP timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.requestTimeout = d }
}

// WithSleeper replaces the poll-pacing sleeper, used by tests.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) { c.sleep = s }
}

// WithClientID fixes the session identifier sent with each submission.
func WithClientID(id string) ClientOption {
	return func(c *Client) { c.clientID = id }
}

// NewClient creates a backend client. The session identifier defaults to
// a fresh UUID per client.
func NewClient(baseURL string, wf workflow.Builder, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		clientID:       uuid.NewString(),
		pollInterval:   defaultPollInterval,
		pollTimeout:    defaultPollTimeout,
		requestTimeout: defaultRequestTimeout,
		sleep:          SystemSleeper{},
		workflow:       wf,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) httpClient() *http.Client {
	return &http.Client{Timeout: c.requestTimeout}
}

type submitRequest struct {
	Prompt   workflow.Graph `json:"prompt"`
	ClientID string         `json:"client_id"`
}

type submitResponse struct {
	PromptID string `json:"prompt_id"`
}

// Submit enqueues the graph and returns the backend's job id.
func (c *Client) Submit(ctx context.Context, g workflow.Graph) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: g, ClientID: c.clientID})
	if err != nil {
		return "", NewSubmissionError("encode workflow", 0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", NewSubmissionError("build enqueue request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", NewSubmissionError("post workflow", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewSubmissionError("backend rejected workflow", resp.StatusCode, nil)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", NewSubmissionError("decode enqueue response", 0, err)
	}
	if out.PromptID == "" {
		return "", NewSubmissionError("enqueue response missing prompt_id", 0, nil)
	}
	return out.PromptID, nil
}

// History describes one completed job in the backend's history listing.
type History struct {
	Outputs map[string]NodeOutput `json:"outputs"`
}

// NodeOutput lists the artifacts one node produced.
type NodeOutput struct {
	Images []ImageRef `json:"images,omitempty"`
}

// ImageRef locates one image in the backend's output store.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// AwaitCompletion polls the history endpoint until promptID appears,
// then returns its history entry.
//
// Elapsed time is accounted in poll-interval increments and checked
// before each poll, so a timeout of n intervals performs exactly n polls
// before giving up with ErrCodePollTimeout. Transient poll failures
// (network, malformed body) abort the wait with a plain error; the retry
// layer above decides whether to start over.
func (c *Client) AwaitCompletion(ctx context.Context, promptID string) (History, error) {
	var elapsed time.Duration
	for elapsed < c.pollTimeout {
		hist, found, err := c.pollHistory(ctx, promptID)
		if err != nil {
			return History{}, err
		}
		if found {
			return hist, nil
		}
		if err := c.sleep.Sleep(ctx, c.pollInterval); err != nil {
			return History{}, err
		}
		elapsed += c.pollInterval
	}
	return History{}, NewTimeoutError(promptID, c.pollTimeout)
}

func (c *Client) pollHistory(ctx context.Context, promptID string) (History, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+promptID, nil)
	if err != nil {
		return History{}, false, fmt.Errorf("build history request: %w", err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return History{}, false, fmt.Errorf("poll history for %s: %w", promptID, err)
	}
	defer resp.Body.Close()

	var entries map[string]History
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return History{}, false, fmt.Errorf("decode history for %s: %w", promptID, err)
	}
	hist, ok := entries[promptID]
	return hist, ok, nil
}

// FetchImage downloads one generated image from the backend's output
// store.
func (c *Client) FetchImage(ctx context.Context, ref ImageRef) ([]byte, error) {
	params := url.Values{}
	params.Set("filename", ref.Filename)
	params.Set("subfolder", ref.Subfolder)
	params.Set("type", "output")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+params.Encode(), nil)
	if err != nil {
		return nil, NewFetchError(ref.Filename, 0, err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, NewFetchError(ref.Filename, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewFetchError(ref.Filename, resp.StatusCode, nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewFetchError(ref.Filename, 0, err)
	}
	return data, nil
}

// Generate runs one full generation: build the graph for (prompt, seed),
// submit it, wait for completion, and download the first image the job
// produced. A completed job whose outputs carry no image reference fails
// with ErrCodeNoImageProduced.
func (c *Client) Generate(ctx context.Context, prompt string, seed uint32) ([]byte, error) {
	graph := c.workflow.Build(prompt, seed)
	if err := graph.Validate(); err != nil {
		return nil, NewSubmissionError("invalid workflow graph", 0, err)
	}
	promptID, err := c.Submit(ctx, graph)
	if err != nil {
		return nil, err
	}
	hist, err := c.AwaitCompletion(ctx, promptID)
	if err != nil {
		return nil, err
	}
	ref, ok := firstImage(hist)
	if !ok {
		return nil, NewNoImageError(promptID)
	}
	return c.FetchImage(ctx, ref)
}

// firstImage returns the image reference from the lowest node id that
// produced one. Numeric node ids order numerically and precede any
// non-numeric ids, which order lexically.
func firstImage(h History) (ImageRef, bool) {
	ids := make([]string, 0, len(h.Outputs))
	for id := range h.Outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessNodeID(ids[i], ids[j]) })

	for _, id := range ids {
		if imgs := h.Outputs[id].Images; len(imgs) > 0 {
			return imgs[0], true
		}
	}
	return ImageRef{}, false
}

func lessNodeID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
