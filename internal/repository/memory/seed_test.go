package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

const seedJSON = `{
  "profiles": [
    {"id": 1, "display_name": "Anna", "interests": ["chess"]},
    {"id": 2, "display_name": "Boris"}
  ],
  "activities": [{"id": 10, "name": "Chess club", "type": "indoor"}],
  "questionnaires": [
    {"activity_id": 10, "questions": [{"id": "level", "prompt": "Level", "type": "choice", "weight": 1}]}
  ],
  "participants": [
    {"activity_id": 10, "profile_id": 1, "status": "completed", "answers": {"level": ["beginner"]}},
    {"activity_id": 10, "profile_id": 2}
  ],
  "exclusions": [{"activity_id": 10, "profile_id_1": 1, "profile_id_2": 2}]
}`

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	s := NewStore()
	require.NoError(t, LoadSeedFile(s, path))
	ctx := context.Background()

	profile, err := s.Profiles().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Anna", profile.DisplayName)

	q, err := s.Questionnaires().GetByActivityID(ctx, 10)
	require.NoError(t, err)
	require.Len(t, q.Questions, 1)

	participants, err := s.Activities().GetParticipants(ctx, 10)
	require.NoError(t, err)
	require.Len(t, participants, 2)

	pending, err := s.Activities().GetParticipant(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantPending, pending.Status)

	exclusions, err := s.Activities().GetExclusions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, exclusions, 1)

	round := &domain.MatchRound{ActivityID: 10, Name: "first"}
	require.NoError(t, s.Rounds().Create(ctx, round))
	assert.Greater(t, round.ID, int64(10), "generated ids continue after seeded ones")
}

func TestLoadSeedFileErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, LoadSeedFile(NewStore(), filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"profiles": [{"display_name": "no id"}]}`), 0o600))
	assert.Error(t, LoadSeedFile(NewStore(), bad))
}
