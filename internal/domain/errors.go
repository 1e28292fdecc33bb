package domain

import "errors"

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrActivityNotFound      = errors.New("activity not found")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrQuestionnaireMissing  = errors.New("activity has no questionnaire attached")
	ErrRoundNotFound         = errors.New("match round not found")
	ErrRoundNotScheduled     = errors.New("match round is not in scheduled state")
	ErrRoundAlreadyRunning   = errors.New("match round is already running")
	ErrRoundRunLost          = errors.New("match round run token no longer held")
	ErrMatchNotFound         = errors.New("match not found")
	ErrDuplicateMatch        = errors.New("pair already matched in this round")
	ErrNotMatchParty         = errors.New("profile is not a party to the match")
	ErrInvalidVote           = errors.New("invalid vote")
	ErrInvalidRound          = errors.New("invalid match round")
	ErrNoEligibleParticipant = errors.New("no eligible participants")
	ErrInvalidToken          = errors.New("invalid token")
)
