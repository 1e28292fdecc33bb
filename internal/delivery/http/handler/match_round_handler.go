package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gdugdh24/mpit2026-matching/internal/usecase/matchround"
)

type MatchRoundHandler struct {
	matchRoundUseCase *matchround.MatchRoundUseCase
}

func NewMatchRoundHandler(matchRoundUseCase *matchround.MatchRoundUseCase) *MatchRoundHandler {
	return &MatchRoundHandler{
		matchRoundUseCase: matchRoundUseCase,
	}
}

// CreateRound handles POST /activities/:id/rounds
// @Summary Schedule a match round
// @Tags rounds
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Activity ID"
// @Param request body matchround.CreateRoundRequest true "Round data"
// @Success 201 {object} domain.MatchRound
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /activities/{id}/rounds [post]
func (h *MatchRoundHandler) CreateRound(c *gin.Context) {
	activityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req matchround.CreateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
		})
		return
	}

	round, err := h.matchRoundUseCase.CreateMatchRound(c.Request.Context(), activityID, &req)
	if err != nil {
		respondError(c, err, "failed to create match round")
		return
	}

	c.JSON(http.StatusCreated, round)
}

// ListRounds handles GET /activities/:id/rounds
func (h *MatchRoundHandler) ListRounds(c *gin.Context) {
	activityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	rounds, err := h.matchRoundUseCase.GetMatchRounds(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, err, "failed to list match rounds")
		return
	}

	c.JSON(http.StatusOK, rounds)
}

// ListParticipants handles GET /activities/:id/participants
func (h *MatchRoundHandler) ListParticipants(c *gin.Context) {
	activityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	participants, err := h.matchRoundUseCase.GetParticipants(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, err, "failed to list participants")
		return
	}

	c.JSON(http.StatusOK, participants)
}

// Suggestions handles GET /activities/:id/participants/:pid/suggestions
// @Summary Suggest candidates for a participant
// @Tags rounds
// @Security BearerAuth
// @Produce json
// @Param id path int true "Activity ID"
// @Param pid path int true "Profile ID"
// @Success 200 {array} matching.Suggestion
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /activities/{id}/participants/{pid}/suggestions [get]
func (h *MatchRoundHandler) Suggestions(c *gin.Context) {
	activityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := pathID(c, "pid")
	if !ok {
		return
	}

	suggestions, err := h.matchRoundUseCase.SuggestCandidates(c.Request.Context(), activityID, profileID)
	if err != nil {
		respondError(c, err, "failed to suggest candidates")
		return
	}

	c.JSON(http.StatusOK, suggestions)
}

// RunRound handles POST /rounds/:id/run
// @Summary Run a scheduled match round
// @Description Runs the matching pipeline and stores all matches of the round at once
// @Tags rounds
// @Security BearerAuth
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} matchround.RunResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /rounds/{id}/run [post]
func (h *MatchRoundHandler) RunRound(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.matchRoundUseCase.RunMatchRound(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err, "failed to run match round")
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelRound handles POST /rounds/:id/cancel
func (h *MatchRoundHandler) CancelRound(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}

	round, err := h.matchRoundUseCase.CancelMatchRound(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err, "failed to cancel match round")
		return
	}

	c.JSON(http.StatusOK, round)
}

// RoundMatches handles GET /rounds/:id/matches
func (h *MatchRoundHandler) RoundMatches(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}

	matches, err := h.matchRoundUseCase.GetRoundMatches(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err, "failed to list round matches")
		return
	}

	c.JSON(http.StatusOK, matches)
}
