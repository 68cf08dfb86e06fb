package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/feedsim/pkg/post"
	"github.com/elonfeng/feedsim/pkg/ranking"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "feedsim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRedis(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func sampleRun(label string) *Run {
	posts := post.Parse("amy,hi,there,img.png,music;art,bob;amy,120\nbob,gig,gig.png,music,,5\ncara,quiet,q.png,,,0")
	opts := ranking.Options{
		CurrentUser:      "Mo",
		FollowedUsers:    []string{"bob"},
		FollowedHashtags: []string{"music"},
		Weights:          ranking.Weights{Likes: 10, Hashtags: 10, FollowerLikes: 10, Recency: 5},
		RecencyByIndex:   map[int]float64{1: 3},
	}
	return &Run{
		Label:   label,
		Options: opts,
		Results: ranking.Score(posts, opts),
	}
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
	t.Run("redis", func(t *testing.T) {
		s, _ := newRedis(t)
		fn(t, s)
	})
}

func TestSaveAndGetRun(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := sampleRun("first")
		require.NoError(t, s.SaveRun(ctx, run))

		assert.NotEmpty(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())
		assert.Equal(t, 3, run.PostCount)
		assert.Equal(t, run.Results[0].FinalScore, run.TopScore)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "first", got.Label)
		assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Millisecond)
		assert.Equal(t, run.Options, got.Options)

		require.Len(t, got.Results, len(run.Results))
		for i := range run.Results {
			want, have := run.Results[i], got.Results[i]
			assert.Equal(t, want.Index, have.Index)
			assert.Equal(t, want.User, have.User)
			assert.Equal(t, want.Caption, have.Caption)
			assert.ElementsMatch(t, want.Hashtags, have.Hashtags)
			assert.ElementsMatch(t, want.LikedBy, have.LikedBy)
			assert.InDelta(t, want.FinalScore, have.FinalScore, 1e-9)
			assert.InDelta(t, want.Breakdown.Recency, have.Breakdown.Recency, 1e-9)
		}
	})
}

func TestGetRunNotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetRun(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListRuns(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Now().UTC().Add(-time.Hour)
		for i, label := range []string{"a", "b", "c"} {
			run := sampleRun(label)
			run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, s.SaveRun(ctx, run))
		}

		runs, err := s.ListRuns(ctx, ListOpts{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].Label, runs[1].Label, runs[2].Label})
		assert.Empty(t, runs[0].Results)
		assert.Equal(t, 3, runs[0].PostCount)

		runs, err = s.ListRuns(ctx, ListOpts{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}

func TestDeleteRun(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := sampleRun("gone")
		require.NoError(t, s.SaveRun(ctx, run))

		require.NoError(t, s.DeleteRun(ctx, run.ID))
		_, err := s.GetRun(ctx, run.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteRun(ctx, run.ID), ErrNotFound)

		runs, err := s.ListRuns(ctx, ListOpts{})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestRedisExpiredRunsArePruned(t *testing.T) {
	s, mr := newRedis(t)
	ctx := context.Background()

	run := sampleRun("short-lived")
	require.NoError(t, s.SaveRun(ctx, run))
	mr.FastForward(2 * time.Hour)

	runs, err := s.ListRuns(ctx, ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	members, err := mr.ZMembers(runsIndexKey)
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestSaveRunWithNonFiniteOptions(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := sampleRun("unbounded")
		run.Options.Weights.Likes = ranking.ParseWeight("Inf")
		run.Options.Weights.Paid = ranking.Weight(math.Inf(1))
		run.Options.RecencyByUser = map[string]float64{"amy": math.NaN(), "cara": 4}
		run.Options.RecencyByIndex[2] = math.Inf(-1)
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, ranking.Weight(ranking.MaxWeight), got.Options.Weights.Likes)
		assert.Equal(t, ranking.Weight(ranking.MaxWeight), got.Options.Weights.Paid)
		assert.Equal(t, map[string]float64{"cara": 4}, got.Options.RecencyByUser)
		assert.Equal(t, map[int]float64{1: 3}, got.Options.RecencyByIndex)
	})
}

func TestSQLitePragmas(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "feedsim.db"))
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.db.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.Get(&timeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 5000, timeout)
}

func TestSQLiteCorruptRowsReturnErrors(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "feedsim.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	run := sampleRun("corrupt")
	require.NoError(t, s.SaveRun(ctx, run))

	_, err = s.db.Exec("UPDATE run_results SET hashtags = '[' WHERE run_id = ? AND position = 1", run.ID)
	require.NoError(t, err)
	_, err = s.GetRun(ctx, run.ID)
	assert.ErrorContains(t, err, "decode run "+run.ID)

	_, err = s.db.Exec("UPDATE runs SET options = '{' WHERE id = ?", run.ID)
	require.NoError(t, err)
	_, err = s.GetRun(ctx, run.ID)
	assert.ErrorContains(t, err, "decode run "+run.ID)
	_, err = s.ListRuns(ctx, ListOpts{})
	assert.ErrorContains(t, err, "decode run "+run.ID)
}

func TestRedisListRunsFillsPagePastExpiredRuns(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	durable := NewRedis(rdb, 0)
	shortLived := NewRedis(rdb, time.Minute)

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, label := range []string{"a", "b", "c"} {
		run := sampleRun(label)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, durable.SaveRun(ctx, run))
	}
	for i, label := range []string{"x", "y"} {
		run := sampleRun(label)
		run.CreatedAt = base.Add(time.Duration(10+i) * time.Minute)
		require.NoError(t, shortLived.SaveRun(ctx, run))
	}
	mr.FastForward(2 * time.Minute)

	runs, err := durable.ListRuns(ctx, ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"c", "b"}, []string{runs[0].Label, runs[1].Label})

	members, err := mr.ZMembers(runsIndexKey)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}
