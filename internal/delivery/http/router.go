package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/handler"
	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/middleware"
)

type Router struct {
	matchRoundHandler *handler.MatchRoundHandler
	voteHandler       *handler.VoteHandler
	authMiddleware    *middleware.AuthMiddleware
	logger            *zap.Logger
}

func NewRouter(
	matchRoundHandler *handler.MatchRoundHandler,
	voteHandler *handler.VoteHandler,
	authMiddleware *middleware.AuthMiddleware,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		matchRoundHandler: matchRoundHandler,
		voteHandler:       voteHandler,
		authMiddleware:    authMiddleware,
		logger:            logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(r.logger))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(r.authMiddleware.RequireAuth())
	{
		activities := v1.Group("/activities/:id")
		{
			activities.POST("/rounds", r.matchRoundHandler.CreateRound)
			activities.GET("/rounds", r.matchRoundHandler.ListRounds)
			activities.GET("/participants", r.matchRoundHandler.ListParticipants)
			activities.GET("/participants/:pid/suggestions", r.matchRoundHandler.Suggestions)
		}

		rounds := v1.Group("/rounds/:id")
		{
			rounds.POST("/run", r.matchRoundHandler.RunRound)
			rounds.POST("/cancel", r.matchRoundHandler.CancelRound)
			rounds.GET("/matches", r.matchRoundHandler.RoundMatches)
		}

		matches := v1.Group("/matches")
		{
			matches.GET("/me", r.voteHandler.MyMatches)
			matches.GET("/me/mutual", r.voteHandler.MyMutualMatches)
			matches.POST("/:id/vote", r.voteHandler.Vote)
		}
	}

	return router
}
