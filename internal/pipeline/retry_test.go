package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atelier/internal/comfy"
	"github.com/roach88/atelier/internal/testutil"
)

// scriptedGenerator returns one scripted result per call: a non-nil
// error fails that call, nil succeeds with data.
type scriptedGenerator struct {
	script  []error
	data    []byte
	calls   int
	prompts []string
	seeds   []uint32
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, seed uint32) ([]byte, error) {
	idx := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.seeds = append(g.seeds, seed)
	if idx < len(g.script) && g.script[idx] != nil {
		return nil, g.script[idx]
	}
	return g.data, nil
}

func TestRetryer_FirstTrySuccess(t *testing.T) {
	gen := &scriptedGenerator{data: []byte("img")}
	sleeper := &testutil.RecordingSleeper{}

	var notified []int
	r := Retryer{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Sleep:       sleeper,
		OnRetry:     func(attempt int, _ error) { notified = append(notified, attempt) },
	}

	data, err := r.Generate(context.Background(), gen, "a dome at dusk", 42)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, notified)
	assert.Zero(t, sleeper.Count())
}

func TestRetryer_SucceedsAfterFailures(t *testing.T) {
	boom := errors.New("backend hiccup")
	gen := &scriptedGenerator{script: []error{boom, boom, nil}, data: []byte("img")}
	sleeper := &testutil.RecordingSleeper{}

	var notified []int
	r := Retryer{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Sleep:       sleeper,
		OnRetry:     func(attempt int, _ error) { notified = append(notified, attempt) },
	}

	data, err := r.Generate(context.Background(), gen, "a dome at dusk", 42)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []int{1, 2}, notified)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.Slept())
}

func TestRetryer_ExhaustionReturnsLastError(t *testing.T) {
	first := errors.New("first failure")
	last := comfy.NewTimeoutError("job-3", 5*time.Minute)
	gen := &scriptedGenerator{script: []error{first, last}}
	sleeper := &testutil.RecordingSleeper{}

	var notified []int
	r := Retryer{
		MaxAttempts: 2,
		BaseDelay:   time.Second,
		Sleep:       sleeper,
		OnRetry:     func(attempt int, _ error) { notified = append(notified, attempt) },
	}

	_, err := r.Generate(context.Background(), gen, "prompt", 1)
	require.Error(t, err)
	assert.Same(t, last, err)
	assert.True(t, comfy.IsTimeoutError(err))
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, []int{1}, notified)
	assert.Equal(t, 1, sleeper.Count())
}

func TestRetryer_LinearBackoff(t *testing.T) {
	boom := errors.New("boom")
	gen := &scriptedGenerator{script: []error{boom, boom, boom, boom}}
	sleeper := &testutil.RecordingSleeper{}

	r := Retryer{MaxAttempts: 4, BaseDelay: time.Second, Sleep: sleeper}
	_, err := r.Generate(context.Background(), gen, "prompt", 1)

	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, sleeper.Slept())
}

func TestRetryer_CancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	gen := &scriptedGenerator{script: []error{boom, boom, boom}}

	r := Retryer{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       testutil.NewCancelingSleeper(1, cancel),
	}

	_, err := r.Generate(ctx, gen, "prompt", 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

func TestRetryer_ZeroMaxAttemptsStillTriesOnce(t *testing.T) {
	gen := &scriptedGenerator{script: []error{errors.New("boom")}}
	sleeper := &testutil.RecordingSleeper{}

	r := Retryer{MaxAttempts: 0, BaseDelay: time.Second, Sleep: sleeper}
	_, err := r.Generate(context.Background(), gen, "prompt", 1)

	require.Error(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Zero(t, sleeper.Count())
}
