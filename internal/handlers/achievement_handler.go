package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
)

func (h *HandlerManager) registerAchievementRoutes(api *gin.RouterGroup) {
	api.GET("/achievements", h.HandleListAchievements)
	api.POST("/achievements/:id/progress", h.HandleUpdateProgress)
}

func (h *HandlerManager) HandleListAchievements(c *gin.Context) {
	achievements, err := h.Achievements.ListAchievements(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

type progressBody struct {
	Progress *int64 `json:"progress" binding:"required"`
}

// HandleUpdateProgress records the caller's progress on one achievement
// that is not tracked automatically.
func (h *HandlerManager) HandleUpdateProgress(c *gin.Context) {
	var body progressBody
	if !bindJSON(c, &body) {
		return
	}
	view, err := h.Achievements.ReportProgress(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), *body.Progress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
