package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/mroshb/betpals/internal/services"
)

func (h *HandlerManager) registerProfileRoutes(api *gin.RouterGroup) {
	api.POST("/profile", h.HandleCreateProfile)
	api.GET("/profile", h.HandleGetProfile)
	api.PATCH("/profile", h.HandleUpdateProfile)

	users := api.Group("/users")
	users.GET("/search", h.HandleSearchUsers)
	users.GET("/:id", h.HandlePublicProfile)
	users.GET("/:id/stats", h.HandleUserStats)
	users.GET("/:id/achievements", h.HandleUserAchievements)
}

// HandleCreateProfile stores the caller's profile. The email defaults to
// the one on the session token.
func (h *HandlerManager) HandleCreateProfile(c *gin.Context) {
	var in services.CreateProfileInput
	if !bindJSON(c, &in) {
		return
	}
	if in.Email == "" {
		in.Email = middleware.CurrentEmail(c)
	}

	user, err := h.Profiles.CreateProfile(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *HandlerManager) HandleGetProfile(c *gin.Context) {
	user, err := h.Profiles.GetProfile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HandlerManager) HandleUpdateProfile(c *gin.Context) {
	var in services.UpdateProfileInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.Profiles.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// HandleSearchUsers answers ?query= with matching public profiles.
func (h *HandlerManager) HandleSearchUsers(c *gin.Context) {
	users, err := h.Profiles.SearchUsers(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondSimpleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *HandlerManager) HandlePublicProfile(c *gin.Context) {
	user, err := h.Profiles.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HandlerManager) HandleUserStats(c *gin.Context) {
	stats, err := h.Profiles.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *HandlerManager) HandleUserAchievements(c *gin.Context) {
	views, err := h.Achievements.UserAchievements(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": views})
}
