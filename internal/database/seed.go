package database

import (
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

// DefaultAchievements is the catalogue installed on a fresh database.
func DefaultAchievements() []models.Achievement {
	return []models.Achievement{
		{
			Name:           "Big Spender",
			Description:    strPtr("Place a bet of 100 or more"),
			Icon:           strPtr("dollar"),
			Color:          strPtr("yellow"),
			Category:       "betting",
			Metric:         strPtr(models.MetricMaxStake),
			MaxTier:        3,
			TierThresholds: datatypes.JSONSlice[int64]{100, 500, 1000},
			TierRewards:    datatypes.JSONSlice[int64]{50, 100, 200},
		},
		{
			Name:           "Winning Streak",
			Description:    strPtr("Win bets in a row"),
			Icon:           strPtr("zap"),
			Color:          strPtr("purple"),
			Category:       "winning",
			Metric:         strPtr(models.MetricWinStreak),
			MaxTier:        3,
			TierThresholds: datatypes.JSONSlice[int64]{3, 5, 10},
			TierRewards:    datatypes.JSONSlice[int64]{50, 100, 250},
		},
		{
			Name:           "Verified Pro",
			Description:    strPtr("Verify bet outcomes as a third party"),
			Icon:           strPtr("trophy"),
			Color:          strPtr("blue"),
			Category:       "community",
			Metric:         strPtr(models.MetricVerifications),
			MaxTier:        3,
			TierThresholds: datatypes.JSONSlice[int64]{1, 5, 10},
			TierRewards:    datatypes.JSONSlice[int64]{25, 50, 75},
		},
		{
			Name:           "Social Butterfly",
			Description:    strPtr("Join different betting groups"),
			Icon:           strPtr("users"),
			Color:          strPtr("pink"),
			Category:       "social",
			Metric:         strPtr(models.MetricGroupsJoined),
			MaxTier:        3,
			TierThresholds: datatypes.JSONSlice[int64]{1, 3, 5},
			TierRewards:    datatypes.JSONSlice[int64]{20, 30, 50},
		},
		{
			Name:           "Sharpshooter",
			Description:    strPtr("Win bets in total"),
			Icon:           strPtr("target"),
			Color:          strPtr("green"),
			Category:       "winning",
			Metric:         strPtr(models.MetricBetsWon),
			MaxTier:        3,
			TierThresholds: datatypes.JSONSlice[int64]{1, 5, 10},
			TierRewards:    datatypes.JSONSlice[int64]{25, 50, 100},
		},
		{
			Name:           "Crowd Favourite",
			Description:    strPtr("Make friends on the platform"),
			Icon:           strPtr("heart"),
			Color:          strPtr("red"),
			Category:       "social",
			Metric:         strPtr(models.MetricFriends),
			MaxTier:        3,
			TierThresholds: datatypes.JSONSlice[int64]{1, 10, 25},
			TierRewards:    datatypes.JSONSlice[int64]{10, 40, 100},
		},
	}
}

// SeedAchievements inserts the default catalogue entries that are missing,
// matched by name. Existing definitions are left untouched.
func SeedAchievements(db *gorm.DB) error {
	created := 0
	for _, def := range DefaultAchievements() {
		a := def
		res := db.Where("name = ?", a.Name).FirstOrCreate(&a)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			created++
		}
	}
	if created > 0 {
		logger.Info("seeded achievements", "count", created)
	}
	return nil
}
