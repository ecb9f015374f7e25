package database

import (
	"fmt"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/logger"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	logger.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.CoinTransaction{},
		&models.Friendship{},
		&models.Group{},
		&models.GroupMember{},
		&models.Bet{},
		&models.Comment{},
		&models.Evidence{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.AchievementPayout{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := createFriendshipPairIndex(db); err != nil {
		return err
	}

	logger.Info("database migrations completed")
	return nil
}

// createFriendshipPairIndex makes (A,B) and (B,A) collide so at most one
// edge exists per unordered pair.
func createFriendshipPairIndex(db *gorm.DB) error {
	var stmt string
	switch db.Dialector.Name() {
	case "postgres":
		stmt = `CREATE UNIQUE INDEX IF NOT EXISTS idx_friendship_pair
			ON friendships (LEAST(user_id, friend_id), GREATEST(user_id, friend_id))`
	case "sqlite":
		stmt = `CREATE UNIQUE INDEX IF NOT EXISTS idx_friendship_pair
			ON friendships (min(user_id, friend_id), max(user_id, friend_id))`
	default:
		logger.Warn("no unordered friendship index for dialect", "dialect", db.Dialector.Name())
		return nil
	}
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create friendship pair index: %w", err)
	}
	return nil
}
