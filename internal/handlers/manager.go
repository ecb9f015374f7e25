package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/config"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/mroshb/betpals/internal/services"
)

type HandlerManager struct {
	Config       *config.Config
	Profiles     *services.ProfileService
	Friends      *services.FriendService
	Bets         *services.BetService
	Achievements *services.AchievementService
	Groups       *services.GroupService
	Wallet       *services.WalletService
}

func NewHandlerManager(
	cfg *config.Config,
	profiles *services.ProfileService,
	friends *services.FriendService,
	bets *services.BetService,
	achievements *services.AchievementService,
	groups *services.GroupService,
	wallet *services.WalletService,
) *HandlerManager {
	return &HandlerManager{
		Config:       cfg,
		Profiles:     profiles,
		Friends:      friends,
		Bets:         bets,
		Achievements: achievements,
		Groups:       groups,
		Wallet:       wallet,
	}
}

// RegisterRoutes mounts every authenticated route on api.
func (h *HandlerManager) RegisterRoutes(api *gin.RouterGroup) {
	h.registerProfileRoutes(api)
	h.registerFriendRoutes(api)
	h.registerBetRoutes(api)
	h.registerAchievementRoutes(api)
	h.registerWalletRoutes(api)
	h.registerGroupRoutes(api)
}

type HealthFunc func(ctx context.Context) error

// NewRouter builds the API engine: /healthz in the open, everything else
// under /api behind bearer auth and rate limiting.
func NewRouter(h *HandlerManager, rl *middleware.RateLimiter, health HealthFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Prometheus())

	r.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", middleware.Auth(h.Config.JWTSecret, h.Config.JWTIssuer))
	if rl != nil {
		api.Use(middleware.RateLimit(rl))
	}
	h.RegisterRoutes(api)
	return r
}
