package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/profile"
	"github.com/bobaba99/truepick/internal/types"
	"github.com/bobaba99/truepick/internal/workflow"
)

type quizResponse struct {
	UserID  string                     `json:"user_id"`
	Profile types.PsychographicProfile `json:"profile"`
}

type consultRequest struct {
	UserID        string  `json:"user_id"`
	ItemName      string  `json:"item_name"`
	Price         float64 `json:"price"`
	Justification string  `json:"justification"`
}

// handleQuiz compiles a questionnaire submission into a profile and
// stores it as the user's current version. A missing user_id gets a
// freshly minted uuid so first-time users need no prior registration.
func (s *Server) handleQuiz(c *gin.Context) {
	var sub types.QuizSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed quiz payload"})
		return
	}

	if strings.TrimSpace(sub.UserID) == "" {
		sub.UserID = uuid.NewString()
	}

	compiled, err := profile.Compile(sub)
	if err != nil {
		if types.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Get(logging.CategoryServer).Error("Quiz compile failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile compilation failed"})
		return
	}

	if err := s.profiles.SaveProfile(c.Request.Context(), sub.UserID, compiled); err != nil {
		logging.Get(logging.CategoryServer).Error("Profile save failed for %s: %v", sub.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}

	c.JSON(http.StatusCreated, quizResponse{UserID: sub.UserID, Profile: compiled})
}

// handleConsult runs one purchase evaluation. Validation problems are
// the caller's to fix; anything else is reported as an upstream failure
// without leaking stage internals.
func (s *Server) handleConsult(c *gin.Context) {
	var req consultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed consult payload"})
		return
	}

	state, err := s.runner.Run(c.Request.Context(), workflow.Input{
		UserID: req.UserID,
		Purchase: types.PurchaseQuery{
			ItemName:      req.ItemName,
			Price:         req.Price,
			Justification: req.Justification,
		},
	})
	if err != nil {
		if types.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Get(logging.CategoryServer).Error("Consult run failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis unavailable, try again later"})
		return
	}

	c.JSON(http.StatusOK, state.Report())
}

// handleHealth reports store reachability and the configured providers.
func (s *Server) handleHealth(c *gin.Context) {
	if _, err := s.store.Count(c.Request.Context()); err != nil {
		logging.Get(logging.CategoryServer).Warn("Health probe failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"reasoner":  s.names.Reasoner,
		"embedding": s.names.Embedding,
	})
}
