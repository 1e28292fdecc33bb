package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/ai/aitest"
	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/handler"
	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/middleware"
	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/lock"
	"github.com/gdugdh24/mpit2026-matching/internal/matching"
	"github.com/gdugdh24/mpit2026-matching/internal/repository/memory"
	"github.com/gdugdh24/mpit2026-matching/internal/usecase/matchround"
	"github.com/gdugdh24/mpit2026-matching/internal/usecase/vote"
)

const testSecret = "test-secret-test-secret-test-secret!"

type apiEnv struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	activity *domain.Activity
	profiles map[string]int64
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	store := memory.NewStore()
	activity := store.AddActivity(domain.Activity{Name: "Board games", Type: "indoor"})
	store.SetQuestionnaire(domain.Questionnaire{
		ActivityID: activity.ID,
		Questions:  []domain.Question{{ID: "games", Prompt: "Favourite games", Type: domain.QuestionChoice, Weight: 1}},
	})

	profiles := map[string]int64{}
	for _, name := range []string{"a", "b", "c", "d"} {
		p := store.AddProfile(domain.Profile{DisplayName: name})
		profiles[name] = p.ID
		store.AddParticipant(domain.ActivityParticipant{
			ActivityID: activity.ID,
			ProfileID:  p.ID,
			Status:     domain.ParticipantCompleted,
			Answers:    domain.Answers{"games": {"chess"}},
		})
	}

	embedder := &aitest.Embedder{Vectors: map[string][]float32{
		"Name: a": {1, 0, 0},
		"Name: b": {0.9, 0.1, 0},
		"Name: c": {0, 1, 0},
		"Name: d": {0.1, 0.9, 0},
	}}
	generator := &aitest.Generator{Response: `{"explanation_for_profile_1": "you both play chess", "explanation_for_profile_2": "chess fans"}`}

	log := zap.NewNop()
	embeddings := matching.NewEmbeddingGenerator(embedder, matching.NewEmbeddingCache(true), 2, log)
	pipeline := matching.NewPipeline(
		embeddings,
		&matching.SoftScorer{Weight: 0.2},
		matching.NewExplainer(generator, "", 2, log),
		nil,
		matching.Config{MaxResults: 10, MinSimilarity: 0.7, PerParticipantCap: 1, ExcludePrevious: true},
		log,
	)
	loader := matching.NewLoader(store.Activities(), store.Questionnaires(), store.Profiles(), store.Matches(), log)
	roundUC := matchround.NewMatchRoundUseCase(
		store.Rounds(), store.Matches(), store.Activities(), store.Questionnaires(),
		loader, pipeline, matching.NewSuggester(embeddings, nil, log), lock.NewLocalLocker(),
		matchround.Options{SuggestionLimit: 5}, log,
	)
	voteUC := vote.NewVoteUseCase(store.Matches(), log)

	auth := middleware.NewAuthMiddleware(testSecret)
	router := NewRouter(handler.NewMatchRoundHandler(roundUC), handler.NewVoteHandler(voteUC), auth, log)
	return &apiEnv{engine: router.Setup(), auth: auth, activity: activity, profiles: profiles}
}

func (e *apiEnv) do(t *testing.T, method, path string, profileID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if profileID > 0 {
		token, err := e.auth.IssueToken(profileID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *apiEnv) activityPath(suffix string) string {
	return "/api/v1/activities/" + strconv.FormatInt(e.activity.ID, 10) + suffix
}

func (e *apiEnv) runRound(t *testing.T) []domain.Match {
	t.Helper()
	admin := e.profiles["a"]
	w := e.do(t, http.MethodPost, e.activityPath("/rounds"), admin, gin.H{"name": "Friday"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	round := decode[domain.MatchRound](t, w)
	assert.Equal(t, domain.RoundScheduled, round.Status)

	w = e.do(t, http.MethodPost, "/api/v1/rounds/"+strconv.FormatInt(round.ID, 10)+"/run", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[struct {
		Round   domain.MatchRound `json:"round"`
		Matches []domain.Match    `json:"matches"`
	}](t, w)
	assert.Equal(t, domain.RoundCompleted, result.Round.Status)

	w = e.do(t, http.MethodPost, "/api/v1/rounds/"+strconv.FormatInt(round.ID, 10)+"/run", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	return result.Matches
}

func (e *apiEnv) matchOf(t *testing.T, matches []domain.Match, x, y string) domain.Match {
	t.Helper()
	key := domain.NewPairKey(e.profiles[x], e.profiles[y])
	for _, m := range matches {
		if m.Key() == key {
			return m
		}
	}
	t.Fatalf("no match between %s and %s", x, y)
	return domain.Match{}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newAPI(t)

	w := e.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	e := newAPI(t)

	w := e.do(t, http.MethodGet, e.activityPath("/rounds"), 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, e.activityPath("/rounds"), nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := middleware.NewAuthMiddleware("another-secret-another-secret-xx")
	token, err := other.IssueToken(e.profiles["a"], time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, e.activityPath("/rounds"), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoundLifecycleOverHTTP(t *testing.T) {
	e := newAPI(t)
	matches := e.runRound(t)
	require.Len(t, matches, 2)
	e.matchOf(t, matches, "a", "b")
	e.matchOf(t, matches, "c", "d")

	w := e.do(t, http.MethodGet, e.activityPath("/rounds"), e.profiles["a"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	rounds := decode[[]domain.MatchRound](t, w)
	require.Len(t, rounds, 1)

	w = e.do(t, http.MethodGet, "/api/v1/rounds/"+strconv.FormatInt(rounds[0].ID, 10)+"/matches", e.profiles["a"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Match](t, w), 2)

	w = e.do(t, http.MethodPost, "/api/v1/rounds/"+strconv.FormatInt(rounds[0].ID, 10)+"/cancel", e.profiles["a"], nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodGet, e.activityPath("/participants"), e.profiles["a"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.ActivityParticipant](t, w), 4)
}

func TestRoundErrorsOverHTTP(t *testing.T) {
	e := newAPI(t)
	p := e.profiles["a"]

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/rounds/abc/run", p, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/v1/rounds/999/run", p, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/v1/activities/999/rounds", p, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, e.activityPath("/rounds"), p, gin.H{}).Code)
}

func TestCancelScheduledRound(t *testing.T) {
	e := newAPI(t)
	p := e.profiles["a"]

	w := e.do(t, http.MethodPost, e.activityPath("/rounds"), p, gin.H{"name": "Later"})
	require.Equal(t, http.StatusCreated, w.Code)
	round := decode[domain.MatchRound](t, w)

	w = e.do(t, http.MethodPost, "/api/v1/rounds/"+strconv.FormatInt(round.ID, 10)+"/cancel", p, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RoundCancelled, decode[domain.MatchRound](t, w).Status)

	w = e.do(t, http.MethodPost, "/api/v1/rounds/"+strconv.FormatInt(round.ID, 10)+"/run", p, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVotingOverHTTP(t *testing.T) {
	e := newAPI(t)
	ab := e.matchOf(t, e.runRound(t), "a", "b")
	votePath := "/api/v1/matches/" + strconv.FormatInt(ab.ID, 10) + "/vote"

	w := e.do(t, http.MethodPost, votePath, e.profiles["a"], gin.H{"vote": "up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[vote.MatchView](t, w)
	assert.False(t, view.IsMutualMatch)
	assert.Equal(t, domain.VoteUp, view.MyVote)
	assert.Equal(t, e.profiles["b"], view.OtherProfileID)

	w = e.do(t, http.MethodPost, votePath, e.profiles["c"], gin.H{"vote": "up"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, votePath, e.profiles["b"], gin.H{"vote": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, votePath, e.profiles["b"], gin.H{"vote": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[vote.MatchView](t, w)
	assert.True(t, view.IsMutualMatch)
	assert.Equal(t, domain.VoteUp, view.OtherVote)

	w = e.do(t, http.MethodPost, "/api/v1/matches/999/vote", e.profiles["a"], gin.H{"vote": "up"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/matches/me/mutual", e.profiles["a"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	mutual := decode[[]vote.MatchView](t, w)
	require.Len(t, mutual, 1)
	assert.Equal(t, ab.ID, mutual[0].ID)

	w = e.do(t, http.MethodGet, "/api/v1/matches/me/mutual", e.profiles["c"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]vote.MatchView](t, w))

	w = e.do(t, http.MethodGet, "/api/v1/matches/me?limit=5", e.profiles["c"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]vote.MatchView](t, w), 1)
}

func TestSuggestionsOverHTTP(t *testing.T) {
	e := newAPI(t)

	w := e.do(t, http.MethodGet, e.activityPath("/participants/"+strconv.FormatInt(e.profiles["a"], 10)+"/suggestions"), e.profiles["a"], nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	suggestions := decode[[]matching.Suggestion](t, w)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, e.profiles["b"], suggestions[0].ProfileID)

	w = e.do(t, http.MethodGet, e.activityPath("/participants/999/suggestions"), e.profiles["a"], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusForUnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, handler.StatusFor(assert.AnError))
	assert.Equal(t, http.StatusConflict, handler.StatusFor(domain.ErrRoundAlreadyRunning))
}
