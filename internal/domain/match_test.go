package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchApplyVoteMutualOnlyWhenBothUp(t *testing.T) {
	m := &Match{ProfileID1: 1, ProfileID2: 2, Profile1Vote: VoteUnset, Profile2Vote: VoteUnset}
	assert.False(t, m.IsMutualMatch)

	require.NoError(t, m.ApplyVote(1, VoteUp))
	assert.False(t, m.IsMutualMatch)

	require.NoError(t, m.ApplyVote(2, VoteUp))
	assert.True(t, m.IsMutualMatch)

	require.NoError(t, m.ApplyVote(2, VoteDown))
	assert.False(t, m.IsMutualMatch)
}

func TestMatchApplyVoteRejectsStranger(t *testing.T) {
	m := &Match{ProfileID1: 1, ProfileID2: 2, Profile1Vote: VoteUnset, Profile2Vote: VoteUnset}
	err := m.ApplyVote(3, VoteUp)
	assert.True(t, errors.Is(err, ErrNotMatchParty))
	assert.Equal(t, VoteUnset, m.Profile1Vote)
	assert.Equal(t, VoteUnset, m.Profile2Vote)
}

func TestParseVote(t *testing.T) {
	v, err := ParseVote("up")
	require.NoError(t, err)
	assert.Equal(t, VoteUp, v)

	_, err = ParseVote("unset")
	assert.ErrorIs(t, err, ErrInvalidVote)

	_, err = ParseVote("maybe")
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func TestPairKeyIsUnordered(t *testing.T) {
	assert.Equal(t, NewPairKey(7, 3), NewPairKey(3, 7))
	assert.True(t, NewPairKey(1, 9).Less(NewPairKey(2, 3)))
	assert.True(t, NewPairKey(1, 2).Less(NewPairKey(1, 3)))
	assert.Equal(t, "3-7", NewPairKey(7, 3).String())
}

func TestMatchLegacyAccessors(t *testing.T) {
	m := &Match{ExplanationForProfile2: "only two", IcebreakerForProfile1: "hi"}
	assert.Equal(t, "only two", m.MatchReason())
	assert.Equal(t, "hi", m.Icebreaker())
}

func TestRoundTransitions(t *testing.T) {
	r := &MatchRound{Status: RoundScheduled}
	assert.True(t, r.CanRun())
	assert.True(t, r.CanCancel())

	r.Status = RoundRunning
	assert.False(t, r.CanRun())
	assert.False(t, r.CanCancel())
}
