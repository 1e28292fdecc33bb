package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/middleware"
	"github.com/gdugdh24/mpit2026-matching/internal/usecase/vote"
)

type VoteHandler struct {
	voteUseCase *vote.VoteUseCase
}

func NewVoteHandler(voteUseCase *vote.VoteUseCase) *VoteHandler {
	return &VoteHandler{
		voteUseCase: voteUseCase,
	}
}

// Vote handles POST /matches/:id/vote
// @Summary Vote on a match
// @Description Records an up or down vote. The match becomes mutual once both parties voted up.
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param request body vote.VoteRequest true "Vote"
// @Success 200 {object} vote.MatchView
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /matches/{id}/vote [post]
func (h *VoteHandler) Vote(c *gin.Context) {
	profileID, exists := middleware.ProfileID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return
	}

	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req vote.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "vote must be up or down",
		})
		return
	}

	match, err := h.voteUseCase.RecordVote(c.Request.Context(), matchID, profileID, req.Vote)
	if err != nil {
		respondError(c, err, "failed to record vote")
		return
	}

	c.JSON(http.StatusOK, vote.NewMatchView(match, profileID))
}

// MyMatches handles GET /matches/me
func (h *VoteHandler) MyMatches(c *gin.Context) {
	profileID, exists := middleware.ProfileID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return
	}

	matches, err := h.voteUseCase.GetMatchesForProfile(c.Request.Context(), profileID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		respondError(c, err, "failed to get matches")
		return
	}

	c.JSON(http.StatusOK, matches)
}

// MyMutualMatches handles GET /matches/me/mutual
func (h *VoteHandler) MyMutualMatches(c *gin.Context) {
	profileID, exists := middleware.ProfileID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return
	}

	matches, err := h.voteUseCase.GetMutualMatchesForProfile(c.Request.Context(), profileID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		respondError(c, err, "failed to get mutual matches")
		return
	}

	c.JSON(http.StatusOK, matches)
}
