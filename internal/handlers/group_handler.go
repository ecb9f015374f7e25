package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/mroshb/betpals/internal/services"
)

func (h *HandlerManager) registerGroupRoutes(api *gin.RouterGroup) {
	groups := api.Group("/groups")
	groups.POST("", h.HandleCreateGroup)
	groups.GET("", h.HandleListGroups)
	groups.POST("/join", h.HandleJoinGroup)
	groups.GET("/:id", h.HandleGetGroup)
	groups.GET("/:id/bets", h.HandleGroupBets)
	groups.POST("/:id/leave", h.HandleLeaveGroup)
}

func (h *HandlerManager) HandleCreateGroup(c *gin.Context) {
	var in services.CreateGroupInput
	if !bindJSON(c, &in) {
		return
	}
	group, err := h.Groups.CreateGroup(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (h *HandlerManager) HandleListGroups(c *gin.Context) {
	groups, err := h.Groups.UserGroups(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

type joinBody struct {
	InviteCode string `json:"inviteCode" binding:"required"`
}

func (h *HandlerManager) HandleJoinGroup(c *gin.Context) {
	var body joinBody
	if !bindJSON(c, &body) {
		return
	}
	group, err := h.Groups.JoinByInviteCode(c.Request.Context(), middleware.CurrentUserID(c), body.InviteCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *HandlerManager) HandleGetGroup(c *gin.Context) {
	details, err := h.Groups.GetGroup(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *HandlerManager) HandleGroupBets(c *gin.Context) {
	bets, err := h.Bets.GroupBets(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (h *HandlerManager) HandleLeaveGroup(c *gin.Context) {
	if err := h.Groups.LeaveGroup(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
