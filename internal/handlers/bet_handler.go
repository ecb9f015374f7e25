package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/mroshb/betpals/internal/services"
)

func (h *HandlerManager) registerBetRoutes(api *gin.RouterGroup) {
	bets := api.Group("/bets")
	bets.POST("", h.HandleCreateBet)
	bets.GET("", h.HandleListBets)
	bets.GET("/feed", h.HandleFeed)
	bets.GET("/:id", h.HandleGetBet)
	bets.POST("/:id/accept", h.HandleAcceptBet)
	bets.POST("/:id/cancel", h.HandleCancelBet)
	bets.POST("/:id/resolve", h.HandleResolveBet)
	bets.POST("/:id/comments", h.HandleAddComment)
	bets.POST("/:id/evidence", h.HandleAddEvidence)
	bets.GET("/:id/transactions", h.HandleBetTransactions)
}

func (h *HandlerManager) HandleCreateBet(c *gin.Context) {
	var in services.CreateBetInput
	if !bindJSON(c, &in) {
		return
	}
	bet, err := h.Bets.CreateBet(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bet)
}

// HandleListBets lists the caller's bets, optionally filtered by ?status=.
func (h *HandlerManager) HandleListBets(c *gin.Context) {
	bets, err := h.Bets.ListUserBets(c.Request.Context(), middleware.CurrentUserID(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (h *HandlerManager) HandleFeed(c *gin.Context) {
	bets, err := h.Bets.FriendsFeed(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (h *HandlerManager) HandleGetBet(c *gin.Context) {
	details, err := h.Bets.GetBetDetails(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *HandlerManager) HandleAcceptBet(c *gin.Context) {
	bet, err := h.Bets.AcceptBet(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

func (h *HandlerManager) HandleCancelBet(c *gin.Context) {
	bet, err := h.Bets.CancelBet(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

type resolveBody struct {
	WinnerID string `json:"winnerId" binding:"required"`
}

func (h *HandlerManager) HandleResolveBet(c *gin.Context) {
	var body resolveBody
	if !bindJSON(c, &body) {
		return
	}
	bet, err := h.Bets.ResolveBet(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), body.WinnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

type commentBody struct {
	Text string `json:"text" binding:"required"`
}

func (h *HandlerManager) HandleAddComment(c *gin.Context) {
	var body commentBody
	if !bindJSON(c, &body) {
		return
	}
	comment, err := h.Bets.AddComment(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), body.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *HandlerManager) HandleAddEvidence(c *gin.Context) {
	var in services.EvidenceInput
	if !bindJSON(c, &in) {
		return
	}
	evidence, err := h.Bets.AddEvidence(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, evidence)
}

func (h *HandlerManager) HandleBetTransactions(c *gin.Context) {
	txs, err := h.Bets.BetTransactions(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
