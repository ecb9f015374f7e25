package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
)

func (h *HandlerManager) registerFriendRoutes(api *gin.RouterGroup) {
	friends := api.Group("/friends")
	friends.GET("", h.HandleListFriends)
	friends.GET("/pending", h.HandlePendingRequests)
	friends.POST("/request", h.HandleSendFriendRequest)
	friends.POST("/respond", h.HandleRespondFriendRequest)
	friends.DELETE("/:friendId", h.HandleRemoveFriend)
}

// HandlePendingRequests lists incoming requests for ?userId=.
func (h *HandlerManager) HandlePendingRequests(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	if !requireSelf(c, userID) {
		return
	}

	requests, err := h.Friends.PendingRequests(c.Request.Context(), userID)
	if err != nil {
		respondSimpleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

type friendRequestBody struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

func (h *HandlerManager) HandleSendFriendRequest(c *gin.Context) {
	var body friendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" || body.FriendID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and friendId are required"})
		return
	}
	if !requireSelf(c, body.UserID) {
		return
	}

	request, err := h.Friends.SendRequest(c.Request.Context(), body.UserID, body.FriendID)
	if err != nil {
		respondSimpleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

type respondBody struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

func (h *HandlerManager) HandleRespondFriendRequest(c *gin.Context) {
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil || body.RequestID == "" || body.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requestId and status are required"})
		return
	}

	err := h.Friends.Respond(c.Request.Context(), middleware.CurrentUserID(c), body.RequestID, body.Status)
	if err != nil {
		respondSimpleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HandlerManager) HandleListFriends(c *gin.Context) {
	friends, err := h.Friends.ListFriends(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

func (h *HandlerManager) HandleRemoveFriend(c *gin.Context) {
	if err := h.Friends.Remove(c.Request.Context(), middleware.CurrentUserID(c), c.Param("friendId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
