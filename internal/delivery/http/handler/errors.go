package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents success response
type SuccessResponse struct {
	Message string `json:"message"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrActivityNotFound, http.StatusNotFound},
	{domain.ErrRoundNotFound, http.StatusNotFound},
	{domain.ErrMatchNotFound, http.StatusNotFound},
	{domain.ErrProfileNotFound, http.StatusNotFound},
	{domain.ErrParticipantNotFound, http.StatusNotFound},
	{domain.ErrRoundAlreadyRunning, http.StatusConflict},
	{domain.ErrRoundNotScheduled, http.StatusConflict},
	{domain.ErrRoundRunLost, http.StatusConflict},
	{domain.ErrQuestionnaireMissing, http.StatusUnprocessableEntity},
	{domain.ErrNoEligibleParticipant, http.StatusUnprocessableEntity},
	{domain.ErrNotMatchParty, http.StatusForbidden},
	{domain.ErrInvalidVote, http.StatusBadRequest},
	{domain.ErrInvalidRound, http.StatusBadRequest},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
}

// StatusFor maps a use case error to its HTTP status.
func StatusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = fallback
	}
	c.JSON(status, ErrorResponse{Error: msg})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid " + name,
		})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
