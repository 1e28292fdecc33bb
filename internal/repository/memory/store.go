// Package memory is an in-process record store used for local runs and tests.
// Every operation takes the store mutex, so conditional updates are atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	profiles       map[int64]*domain.Profile
	activities     map[int64]*domain.Activity
	participants   map[int64]*domain.ActivityParticipant
	questionnaires map[int64]*domain.Questionnaire
	exclusions     map[int64]*domain.ActivityExclusion
	rounds         map[int64]*domain.MatchRound
	matches        map[int64]*domain.Match

	nextID int64
}

func NewStore() *Store {
	return &Store{
		now:            time.Now,
		profiles:       make(map[int64]*domain.Profile),
		activities:     make(map[int64]*domain.Activity),
		participants:   make(map[int64]*domain.ActivityParticipant),
		questionnaires: make(map[int64]*domain.Questionnaire),
		exclusions:     make(map[int64]*domain.ActivityExclusion),
		rounds:         make(map[int64]*domain.MatchRound),
		matches:        make(map[int64]*domain.Match),
	}
}

// SetClock replaces the time source; creation timestamps drive projection order.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Profiles() repository.ProfileRepository             { return profileRepo{s} }
func (s *Store) Activities() repository.ActivityRepository          { return activityRepo{s} }
func (s *Store) Questionnaires() repository.QuestionnaireRepository { return questionnaireRepo{s} }
func (s *Store) Rounds() repository.MatchRoundRepository            { return roundRepo{s} }
func (s *Store) Matches() repository.MatchRepository                { return matchRepo{s} }

// Seeding helpers. They assign ids when unset and keep copies of the input.

func (s *Store) AddProfile(p domain.Profile) *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.profiles[p.ID] = &p
	cp := p
	return &cp
}

func (s *Store) AddActivity(a domain.Activity) *domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	} else if a.ID > s.nextID {
		s.nextID = a.ID
	}
	a.CreatedAt = s.now()
	s.activities[a.ID] = &a
	cp := a
	return &cp
}

func (s *Store) AddParticipant(p domain.ActivityParticipant) *domain.ActivityParticipant {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	if p.Status == "" {
		p.Status = domain.ParticipantPending
	}
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.participants[p.ID] = &p
	cp := p
	return &cp
}

func (s *Store) SetQuestionnaire(q domain.Questionnaire) *domain.Questionnaire {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.id()
	q.CreatedAt = s.now()
	s.questionnaires[q.ActivityID] = &q
	cp := q
	return &cp
}

func (s *Store) AddExclusion(e domain.ActivityExclusion) *domain.ActivityExclusion {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.CreatedAt = s.now()
	s.exclusions[e.ID] = &e
	cp := e
	return &cp
}

type profileRepo struct{ s *Store }

func (r profileRepo) GetByID(_ context.Context, id int64) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r profileRepo) GetByIDs(_ context.Context, ids []int64) (map[int64]*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[int64]*domain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

type activityRepo struct{ s *Store }

func (r activityRepo) GetByID(_ context.Context, id int64) (*domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.activities[id]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	cp := *a
	return &cp, nil
}

func (r activityRepo) GetParticipants(_ context.Context, activityID int64) ([]*domain.ActivityParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.ActivityParticipant
	for _, p := range r.s.participants {
		if p.ActivityID == activityID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r activityRepo) GetParticipant(_ context.Context, activityID, profileID int64) (*domain.ActivityParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.participants {
		if p.ActivityID == activityID && p.ProfileID == profileID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

func (r activityRepo) GetExclusions(_ context.Context, activityID int64) ([]*domain.ActivityExclusion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.ActivityExclusion
	for _, e := range r.s.exclusions {
		if e.ActivityID == activityID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type questionnaireRepo struct{ s *Store }

func (r questionnaireRepo) GetByActivityID(_ context.Context, activityID int64) (*domain.Questionnaire, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.questionnaires[activityID]
	if !ok {
		return nil, domain.ErrQuestionnaireMissing
	}
	cp := *q
	cp.Questions = append([]domain.Question(nil), q.Questions...)
	return &cp, nil
}

type roundRepo struct{ s *Store }

func copyRound(r *domain.MatchRound) *domain.MatchRound {
	cp := *r
	cp.ExcludedProfileIDs = append([]int64(nil), r.ExcludedProfileIDs...)
	return &cp
}

func (r roundRepo) Create(_ context.Context, round *domain.MatchRound) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if round.Status == "" {
		round.Status = domain.RoundScheduled
	}
	round.ID = r.s.id()
	round.CreatedAt, round.UpdatedAt = r.s.now(), r.s.now()
	r.s.rounds[round.ID] = copyRound(round)
	return nil
}

func (r roundRepo) GetByID(_ context.Context, id int64) (*domain.MatchRound, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	return copyRound(round), nil
}

func (r roundRepo) list(keep func(*domain.MatchRound) bool) []*domain.MatchRound {
	var out []*domain.MatchRound
	for _, round := range r.s.rounds {
		if keep(round) {
			out = append(out, copyRound(round))
		}
	}
	return out
}

func (r roundRepo) ListByActivity(_ context.Context, activityID int64) ([]*domain.MatchRound, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.list(func(round *domain.MatchRound) bool { return round.ActivityID == activityID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r roundRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*domain.MatchRound, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.list(func(round *domain.MatchRound) bool {
		_, ok := r.s.questionnaires[round.ActivityID]
		return ok && round.IsDue(now)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func statusError(status domain.RoundStatus) error {
	if status == domain.RoundRunning {
		return domain.ErrRoundAlreadyRunning
	}
	return fmt.Errorf("%w: status is %s", domain.ErrRoundNotScheduled, status)
}

func (r roundRepo) MarkRunning(_ context.Context, id int64, token string) (*domain.MatchRound, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	if round.Status != domain.RoundScheduled {
		return nil, statusError(round.Status)
	}
	now := r.s.now()
	round.Status = domain.RoundRunning
	round.RunToken = &token
	round.StartedAt = &now
	round.UpdatedAt = now
	return copyRound(round), nil
}

func (r roundRepo) held(id int64, token string) (*domain.MatchRound, error) {
	round, ok := r.s.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	if round.Status != domain.RoundRunning || round.RunToken == nil || *round.RunToken != token {
		return nil, domain.ErrRoundRunLost
	}
	return round, nil
}

func (r roundRepo) Complete(_ context.Context, id int64, token string, matches []*domain.Match, excluded []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, err := r.held(id, token)
	if err != nil {
		return err
	}

	// Validate the whole batch before writing anything.
	seen := make(map[domain.PairKey]struct{}, len(matches))
	for _, m := range r.s.matches {
		if m.RoundID == id {
			seen[m.Key()] = struct{}{}
		}
	}
	for _, m := range matches {
		if m.ProfileID1 == m.ProfileID2 {
			return fmt.Errorf("%w: self pair %d", domain.ErrInvalidRound, m.ProfileID1)
		}
		if _, dup := seen[m.Key()]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateMatch, m.Key())
		}
		seen[m.Key()] = struct{}{}
	}

	now := r.s.now()
	for _, m := range matches {
		key := m.Key()
		m.ID = r.s.id()
		m.RoundID = id
		m.ProfileID1, m.ProfileID2 = key.A, key.B
		m.Profile1Vote, m.Profile2Vote = domain.VoteUnset, domain.VoteUnset
		m.IsMutualMatch = false
		m.CreatedAt, m.UpdatedAt = now, now
		cp := *m
		r.s.matches[m.ID] = &cp
	}

	round.Status = domain.RoundCompleted
	round.RunToken = nil
	round.LastError = nil
	round.ExcludedProfileIDs = append([]int64(nil), excluded...)
	round.CompletedAt = &now
	round.UpdatedAt = now
	return nil
}

func (r roundRepo) Release(_ context.Context, id int64, token string, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, err := r.held(id, token)
	if err != nil {
		return err
	}
	round.Status = domain.RoundScheduled
	round.RunToken = nil
	round.LastError = &reason
	round.UpdatedAt = r.s.now()
	return nil
}

func (r roundRepo) ReclaimStale(_ context.Context, startedBefore time.Time, reason string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, round := range r.s.rounds {
		if round.Status != domain.RoundRunning || round.StartedAt == nil || !round.StartedAt.Before(startedBefore) {
			continue
		}
		round.Status = domain.RoundScheduled
		round.RunToken = nil
		round.LastError = &reason
		round.UpdatedAt = r.s.now()
		n++
	}
	return n, nil
}

func (r roundRepo) Cancel(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return domain.ErrRoundNotFound
	}
	if !round.CanCancel() {
		return statusError(round.Status)
	}
	round.Status = domain.RoundCancelled
	round.UpdatedAt = r.s.now()
	return nil
}

type matchRepo struct{ s *Store }

func (r matchRepo) GetByID(_ context.Context, id int64) (*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r matchRepo) filter(keep func(*domain.Match) bool) []*domain.Match {
	var out []*domain.Match
	for _, m := range r.s.matches {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}

func (r matchRepo) ListByRound(_ context.Context, roundID int64) ([]*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.filter(func(m *domain.Match) bool { return m.RoundID == roundID })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r matchRepo) ListPairsByActivity(_ context.Context, activityID int64) ([]domain.PairKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var pairs []domain.PairKey
	for _, m := range r.s.matches {
		round, ok := r.s.rounds[m.RoundID]
		if m.ActivityID == activityID && ok && round.Status == domain.RoundCompleted {
			pairs = append(pairs, m.Key())
		}
	}
	return pairs, nil
}

func newestFirst(out []*domain.Match) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

func page(out []*domain.Match, limit, offset int) []*domain.Match {
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r matchRepo) GetProfileMatches(_ context.Context, profileID int64, limit, offset int) ([]*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.filter(func(m *domain.Match) bool { return m.HasProfile(profileID) })
	newestFirst(out)
	return page(out, limit, offset), nil
}

func (r matchRepo) GetMutualMatches(_ context.Context, profileID int64, limit, offset int) ([]*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.filter(func(m *domain.Match) bool { return m.HasProfile(profileID) && m.IsMutualMatch })
	newestFirst(out)
	return page(out, limit, offset), nil
}

func (r matchRepo) RecordVote(_ context.Context, matchID, profileID int64, vote domain.Vote) (*domain.Match, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[matchID]
	if !ok {
		return nil, false, domain.ErrMatchNotFound
	}
	wasMutual := m.IsMutualMatch
	if err := m.ApplyVote(profileID, vote); err != nil {
		return nil, false, err
	}
	m.UpdatedAt = r.s.now()
	cp := *m
	return &cp, cp.IsMutualMatch && !wasMutual, nil
}
