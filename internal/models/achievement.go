package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Metrics an achievement can be bound to for automatic tracking.
const (
	MetricMaxStake      = "max_stake"
	MetricWinStreak     = "win_streak"
	MetricVerifications = "verifications"
	MetricGroupsJoined  = "groups_joined"
	MetricBetsWon       = "bets_won"
	MetricFriends       = "friends"
)

type Achievement struct {
	ID             string                     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string                     `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description    *string                    `gorm:"type:text" json:"description"`
	Icon           *string                    `gorm:"type:varchar(32)" json:"icon"`
	Color          *string                    `gorm:"type:varchar(32)" json:"color"`
	Category       string                     `gorm:"type:varchar(32);not null" json:"category"`
	Metric         *string                    `gorm:"type:varchar(32);index" json:"metric"`
	MaxTier        int                        `gorm:"not null;default:1" json:"max_tier"`
	TierThresholds datatypes.JSONSlice[int64] `gorm:"not null" json:"tier_thresholds"`
	TierRewards    datatypes.JSONSlice[int64] `gorm:"not null" json:"tier_rewards"`
	CreatedAt      time.Time                  `gorm:"autoCreateTime" json:"created_at"`
}

// Validate checks that the tier table is well formed: one threshold and one
// reward per tier, thresholds positive and strictly increasing.
func (a *Achievement) Validate() error {
	if a.Name == "" || a.Category == "" || a.MaxTier < 1 {
		return gorm.ErrInvalidData
	}
	if len(a.TierThresholds) != a.MaxTier || len(a.TierRewards) != a.MaxTier {
		return gorm.ErrInvalidData
	}
	var prev int64
	for i, th := range a.TierThresholds {
		if th <= 0 || (i > 0 && th <= prev) {
			return gorm.ErrInvalidData
		}
		prev = th
	}
	for _, r := range a.TierRewards {
		if r < 0 {
			return gorm.ErrInvalidData
		}
	}
	return nil
}

func (a *Achievement) BeforeSave(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return a.Validate()
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement is a user's progress on one achievement.
type UserAchievement struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string     `gorm:"type:varchar(36);not null;index:idx_user_achievement,unique" json:"user_id"`
	AchievementID string     `gorm:"type:varchar(36);not null;index:idx_user_achievement,unique" json:"achievement_id"`
	Progress      int64      `gorm:"not null;default:0" json:"progress"`
	CurrentTier   int        `gorm:"not null;default:0" json:"current_tier"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}

// AchievementPayout records that a tier reward was paid. The unique index
// makes a second payment for the same tier fail.
type AchievementPayout struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	UserID        string    `gorm:"type:varchar(36);not null;index:idx_achievement_payout,unique"`
	AchievementID string    `gorm:"type:varchar(36);not null;index:idx_achievement_payout,unique"`
	Tier          int       `gorm:"not null;index:idx_achievement_payout,unique"`
	Reward        int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (p *AchievementPayout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (AchievementPayout) TableName() string {
	return "achievement_payouts"
}

// AchievementProgress is the read model combining a definition with a
// user's progress on it.
type AchievementProgress struct {
	Achievement        Achievement `json:"achievement"`
	Progress           int64       `json:"progress"`
	CurrentTier        int         `json:"current_tier"`
	Completed          bool        `json:"completed"`
	CompletedAt        *time.Time  `json:"completed_at"`
	ProgressPercentage int         `json:"progress_percentage"`
	NextThreshold      *int64      `json:"next_threshold"`
	NextReward         *int64      `json:"next_reward"`
	RewardsEarned      int64       `json:"rewards_earned"`
	RewardedThisUpdate int64       `json:"rewarded_this_update,omitempty"`
}
