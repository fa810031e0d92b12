package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestRecordFillsIDAndTime(t *testing.T) {
	t.Parallel()
	j, _ := openTemp(t)
	ctx := context.Background()

	e, err := j.Record(ctx, Entry{Kind: KindUpload, Name: "tiny-bert", Outcome: OutcomeSucceeded})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.False(t, e.CreatedAt.IsZero())

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, e.ID, got[0].ID)
	require.Equal(t, KindUpload, got[0].Kind)
	require.Equal(t, OutcomeSucceeded, got[0].Outcome)
	require.True(t, e.CreatedAt.Equal(got[0].CreatedAt))
}

func TestRecentNewestFirstWithLimit(t *testing.T) {
	t.Parallel()
	j, _ := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		_, err := j.Record(ctx, Entry{
			Kind:      KindAggregation,
			Name:      name,
			Detail:    "base=Alpha members=Beta",
			Outcome:   OutcomeDispatched,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "third", got[0].Name)
	require.Equal(t, "second", got[1].Name)
	require.Equal(t, "base=Alpha members=Beta", got[0].Detail)
}

func TestReopenKeepsEntries(t *testing.T) {
	t.Parallel()
	j, path := openTemp(t)
	ctx := context.Background()
	_, err := j.Record(ctx, Entry{Kind: KindFetch, Name: "nft-1", Outcome: OutcomeFailed})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "nft-1", got[0].Name)
}
