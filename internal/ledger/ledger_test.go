package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StartRun(ctx, "http://127.0.0.1:8188"))
	require.NotEmpty(t, s.RunID())

	attempt := Attempt{
		CardID:     "042",
		Seed:       4294967295,
		PromptHash: "deadbeef",
		Attempts:   2,
		Outcome:    OutcomeGenerated,
		Duration:   1500 * time.Millisecond,
	}
	require.NoError(t, s.RecordAttempt(ctx, attempt))

	records, err := s.Attempts(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, s.RunID(), got.RunID)
	assert.Equal(t, "042", got.CardID)
	assert.Equal(t, uint32(4294967295), got.Seed, "max uint32 seed survives the round trip")
	assert.Equal(t, "deadbeef", got.PromptHash)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, OutcomeGenerated, got.Outcome)
	assert.Empty(t, got.ErrorCode)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestOpen_IdempotentOnExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.StartRun(ctx, "http://backend"))
	require.NoError(t, first.RecordAttempt(ctx, Attempt{CardID: "042", Outcome: OutcomeGenerated, Attempts: 1}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	records, err := second.Attempts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, records, 1, "records persist across reopens")
}

func TestRecordAttempt_RequiresActiveRun(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.RecordAttempt(context.Background(), Attempt{CardID: "042"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active run")
}

func TestAttempts_FilterByCard(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.StartRun(ctx, "http://backend"))

	require.NoError(t, s.RecordAttempt(ctx, Attempt{CardID: "042", Outcome: OutcomeGenerated, Attempts: 1}))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{CardID: "066", Outcome: OutcomeFailed, ErrorCode: "POLL_TIMEOUT", Attempts: 3}))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{CardID: "042", Outcome: OutcomeFailed, ErrorCode: "FETCH_FAILED", Attempts: 3}))

	records, err := s.Attempts(ctx, "042")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "042", r.CardID)
	}
}

func TestAttempts_NewestFirst(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.StartRun(ctx, "http://backend"))

	require.NoError(t, s.RecordAttempt(ctx, Attempt{CardID: "first", Outcome: OutcomeGenerated, Attempts: 1}))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{CardID: "second", Outcome: OutcomeGenerated, Attempts: 1}))

	records, err := s.Attempts(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].CardID)
	assert.Equal(t, "first", records[1].CardID)
}

func TestAttempts_EmptyLedger(t *testing.T) {
	s, _ := openTestStore(t)

	records, err := s.Attempts(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAttempts_RecordsErrorCode(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.StartRun(ctx, "http://backend"))

	require.NoError(t, s.RecordAttempt(ctx, Attempt{
		CardID:    "066",
		Outcome:   OutcomeFailed,
		ErrorCode: "POLL_TIMEOUT",
		Attempts:  3,
	}))

	records, err := s.Attempts(ctx, "066")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, OutcomeFailed, records[0].Outcome)
	assert.Equal(t, "POLL_TIMEOUT", records[0].ErrorCode)
}
