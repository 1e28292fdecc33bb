package vote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
	"github.com/gdugdh24/mpit2026-matching/internal/repository/memory"
)

const (
	dave  = int64(100)
	alice = int64(101)
	bob   = int64(102)
	carol = int64(103)
)

func seedMatches(t *testing.T, store *memory.Store, pairs ...[2]int64) []*domain.Match {
	t.Helper()
	ctx := context.Background()
	round := &domain.MatchRound{ActivityID: 1, Name: "r"}
	require.NoError(t, store.Rounds().Create(ctx, round))
	_, err := store.Rounds().MarkRunning(ctx, round.ID, "tok")
	require.NoError(t, err)

	var matches []*domain.Match
	for _, p := range pairs {
		matches = append(matches, &domain.Match{
			ActivityID:             1,
			ProfileID1:             p[0],
			ProfileID2:             p[1],
			Score:                  88,
			ExplanationForProfile1: "for first",
			ExplanationForProfile2: "for second",
		})
	}
	require.NoError(t, store.Rounds().Complete(ctx, round.ID, "tok", matches, nil))
	return matches
}

func TestMutualAfterBothVoteUp(t *testing.T) {
	store := memory.NewStore()
	m := seedMatches(t, store, [2]int64{alice, bob})[0]
	uc := NewVoteUseCase(store.Matches(), zap.NewNop())
	ctx := context.Background()

	got, err := uc.RecordVote(ctx, m.ID, alice, "up")
	require.NoError(t, err)
	assert.False(t, got.IsMutualMatch)
	assert.Equal(t, domain.VoteUp, got.Profile1Vote)
	assert.Equal(t, domain.VoteUnset, got.Profile2Vote)

	got, err = uc.RecordVote(ctx, m.ID, bob, "up")
	require.NoError(t, err)
	assert.True(t, got.IsMutualMatch)

	mutual, err := uc.GetMutualMatchesForProfile(ctx, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, mutual, 1)
	assert.Equal(t, bob, mutual[0].OtherProfileID)
	assert.Equal(t, domain.VoteUp, mutual[0].OtherVote)
}

func TestRecordVoteRejectsNonParty(t *testing.T) {
	store := memory.NewStore()
	m := seedMatches(t, store, [2]int64{alice, bob})[0]
	uc := NewVoteUseCase(store.Matches(), zap.NewNop())
	ctx := context.Background()

	_, err := uc.RecordVote(ctx, m.ID, carol, "up")
	assert.ErrorIs(t, err, domain.ErrNotMatchParty)

	stored, err := store.Matches().GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteUnset, stored.Profile1Vote)
	assert.Equal(t, domain.VoteUnset, stored.Profile2Vote)
	assert.False(t, stored.IsMutualMatch)
}

func TestRecordVoteValidation(t *testing.T) {
	store := memory.NewStore()
	m := seedMatches(t, store, [2]int64{alice, bob})[0]
	uc := NewVoteUseCase(store.Matches(), nil)
	ctx := context.Background()

	for _, v := range []string{"", "unset", "like", "UP"} {
		_, err := uc.RecordVote(ctx, m.ID, alice, v)
		assert.ErrorIs(t, err, domain.ErrInvalidVote, v)
	}

	_, err := uc.RecordVote(ctx, 9999, alice, "up")
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestRecordVoteIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	m := seedMatches(t, store, [2]int64{alice, bob})[0]
	uc := NewVoteUseCase(store.Matches(), zap.NewNop())
	ctx := context.Background()

	_, err := uc.RecordVote(ctx, m.ID, bob, "up")
	require.NoError(t, err)
	first, err := uc.RecordVote(ctx, m.ID, alice, "up")
	require.NoError(t, err)
	second, err := uc.RecordVote(ctx, m.ID, alice, "up")
	require.NoError(t, err)

	assert.Equal(t, first.Profile1Vote, second.Profile1Vote)
	assert.Equal(t, first.Profile2Vote, second.Profile2Vote)
	assert.Equal(t, first.IsMutualMatch, second.IsMutualMatch)
}

func TestDownVoteKeepsOrBreaksMutual(t *testing.T) {
	store := memory.NewStore()
	m := seedMatches(t, store, [2]int64{alice, bob})[0]
	uc := NewVoteUseCase(store.Matches(), zap.NewNop())
	ctx := context.Background()

	got, err := uc.RecordVote(ctx, m.ID, alice, "down")
	require.NoError(t, err)
	got, err = uc.RecordVote(ctx, m.ID, bob, "up")
	require.NoError(t, err)
	assert.False(t, got.IsMutualMatch)

	got, err = uc.RecordVote(ctx, m.ID, alice, "up")
	require.NoError(t, err)
	assert.True(t, got.IsMutualMatch)

	got, err = uc.RecordVote(ctx, m.ID, bob, "down")
	require.NoError(t, err)
	assert.False(t, got.IsMutualMatch)
}

func TestMutualMatchCountedOncePerTransition(t *testing.T) {
	store := memory.NewStore()
	m := seedMatches(t, store, [2]int64{alice, bob})[0]
	uc := NewVoteUseCase(store.Matches(), zap.NewNop())
	ctx := context.Background()
	start := testutil.ToFloat64(metrics.MutualMatchesTotal)

	_, err := uc.RecordVote(ctx, m.ID, alice, "down")
	require.NoError(t, err)
	_, err = uc.RecordVote(ctx, m.ID, bob, "up")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, pid := range []int64{alice, bob, alice, bob} {
		wg.Add(1)
		go func(pid int64) {
			defer wg.Done()
			_, err := uc.RecordVote(ctx, m.ID, pid, "up")
			assert.NoError(t, err)
		}(pid)
	}
	wg.Wait()
	assert.Equal(t, start+1, testutil.ToFloat64(metrics.MutualMatchesTotal))

	_, err = uc.RecordVote(ctx, m.ID, bob, "down")
	require.NoError(t, err)
	got, err := uc.RecordVote(ctx, m.ID, bob, "up")
	require.NoError(t, err)
	assert.True(t, got.IsMutualMatch)
	assert.Equal(t, start+2, testutil.ToFloat64(metrics.MutualMatchesTotal))
}

func TestGetMatchesForProfileNewestFirst(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	older := seedMatches(t, store, [2]int64{alice, bob})[0]
	newer := seedMatches(t, store, [2]int64{dave, alice})[0]
	uc := NewVoteUseCase(store.Matches(), zap.NewNop())
	ctx := context.Background()

	got, err := uc.GetMatchesForProfile(ctx, alice, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	assert.Equal(t, dave, got[0].OtherProfileID)
	assert.Equal(t, "for second", got[0].Explanation, "alice has the larger id in the newer match")
	assert.Equal(t, "for first", got[1].Explanation)

	paged, err := uc.GetMatchesForProfile(ctx, alice, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, older.ID, paged[0].ID)

	none, err := uc.GetMutualMatchesForProfile(ctx, alice, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMatchViewHidesPendingVote(t *testing.T) {
	m := &domain.Match{ID: 1, ProfileID1: alice, ProfileID2: bob, Profile1Vote: domain.VoteUp, Profile2Vote: domain.VoteDown}
	view := NewMatchView(m, bob)
	assert.Equal(t, domain.VoteDown, view.MyVote)
	assert.Equal(t, domain.VoteUnset, view.OtherVote)
	assert.Equal(t, alice, view.OtherProfileID)
}
