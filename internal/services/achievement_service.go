package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/metrics"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
	"gorm.io/gorm"
)

const achievementsCacheKey = "achievements:all"

type AchievementService struct {
	db    *gorm.DB
	repos Repositories
	deps  Deps
}

func NewAchievementService(db *gorm.DB, repos Repositories, deps Deps) *AchievementService {
	return &AchievementService{db: db, repos: repos, deps: deps.withDefaults()}
}

// ListAchievements returns every achievement definition.
func (s *AchievementService) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var cached []models.Achievement
	if found, err := s.deps.Cache.Get(ctx, achievementsCacheKey, &cached); err != nil {
		logger.Warn("achievement cache read failed", "error", err)
	} else if found {
		return cached, nil
	}

	achievements, err := s.repos.Achievements.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Cache.Set(ctx, achievementsCacheKey, achievements); err != nil {
		logger.Warn("achievement cache write failed", "error", err)
	}
	return achievements, nil
}

// InvalidateDefinitions drops cached definitions after they change.
func (s *AchievementService) InvalidateDefinitions(ctx context.Context) {
	if err := s.deps.Cache.Delete(ctx, achievementsCacheKey); err != nil {
		logger.Warn("achievement cache invalidation failed", "error", err)
	}
}

// ImportDefinitions upserts definitions by name and drops the cached list.
// A row that fails is reported in the returned error and does not stop the
// rest.
func (s *AchievementService) ImportDefinitions(ctx context.Context, defs []models.Achievement) (int, error) {
	var (
		imported int
		failed   []error
	)
	for i := range defs {
		if err := s.repos.Achievements.UpsertAchievement(ctx, &defs[i]); err != nil {
			failed = append(failed, fmt.Errorf("%q: %w", defs[i].Name, err))
			continue
		}
		imported++
	}
	if imported > 0 {
		s.InvalidateDefinitions(ctx)
	}
	return imported, stderrors.Join(failed...)
}

type paidTier struct {
	tier   int
	reward int64
}

// UpdateProgress stores a new progress value for the user and pays the
// reward of every tier reached for the first time. Progress never goes
// down: a value below the stored one leaves the record unchanged.
func (s *AchievementService) UpdateProgress(ctx context.Context, userID, achievementID string, value int64) (*models.AchievementProgress, error) {
	if value < 0 {
		return nil, errors.New(errors.ErrCodeValidation, "progress cannot be negative")
	}
	achievement, err := s.repos.Achievements.GetAchievement(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	return s.applyProgress(ctx, userID, achievement, value)
}

// ReportProgress is UpdateProgress for progress reported by the user.
// Achievements bound to a metric are fed only by the services.
func (s *AchievementService) ReportProgress(ctx context.Context, userID, achievementID string, value int64) (*models.AchievementProgress, error) {
	if value < 0 {
		return nil, errors.New(errors.ErrCodeValidation, "progress cannot be negative")
	}
	achievement, err := s.repos.Achievements.GetAchievement(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	if achievement.Metric != nil {
		return nil, errors.New(errors.ErrCodeForbidden, "progress on this achievement is tracked automatically")
	}
	return s.applyProgress(ctx, userID, achievement, value)
}

func (s *AchievementService) applyProgress(ctx context.Context, userID string, achievement *models.Achievement, value int64) (*models.AchievementProgress, error) {
	if _, err := s.repos.Users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	var (
		achievementID = achievement.ID
		record        *models.UserAchievement
		newPaid       []paidTier
		earned        int64
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.Achievements.WithTx(tx)
		coins := s.repos.Coins.WithTx(tx)

		current, err := repo.LockProgress(ctx, userID, achievementID)
		if err != nil {
			return err
		}
		if current == nil {
			current = &models.UserAchievement{UserID: userID, AchievementID: achievementID}
		} else if value <= current.Progress {
			record = current
			earned, err = repo.TotalPaid(ctx, userID, achievementID)
			return err
		}

		tier := TierForProgress(achievement.TierThresholds, value)
		paid, err := repo.PaidTiers(ctx, userID, achievementID)
		if err != nil {
			return err
		}

		for t := 1; t <= tier; t++ {
			if paid[t] {
				continue
			}
			reward := achievement.TierRewards[t-1]
			if err := repo.RecordPayout(ctx, &models.AchievementPayout{
				UserID:        userID,
				AchievementID: achievementID,
				Tier:          t,
				Reward:        reward,
			}); err != nil {
				return err
			}
			if reward > 0 {
				entry := repositories.LedgerEntry{
					Type:        models.TxTypeAchievementReward,
					Description: fmt.Sprintf("%s tier %d reward", achievement.Name, t),
				}
				if err := coins.AddCoins(ctx, userID, reward, entry); err != nil {
					return err
				}
			}
			newPaid = append(newPaid, paidTier{tier: t, reward: reward})
		}

		current.Progress = value
		current.CurrentTier = tier
		if tier == achievement.MaxTier && !current.Completed {
			now := time.Now().UTC()
			current.Completed = true
			current.CompletedAt = &now
		}
		if err := repo.SaveProgress(ctx, current); err != nil {
			return err
		}
		record = current

		earned, err = repo.TotalPaid(ctx, userID, achievementID)
		if err != nil {
			return err
		}
		if want := RewardsBetween(achievement.TierRewards, 0, tier); earned != want {
			logger.Warn("achievement payouts differ from tier rewards",
				"user_id", userID, "achievement", achievement.Name, "paid", earned, "tier_rewards", want)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := buildProgressView(*achievement, record)
	view.RewardsEarned = earned
	for _, p := range newPaid {
		view.RewardedThisUpdate += p.reward
		s.announceTier(ctx, userID, achievement, p)
	}
	return &view, nil
}

func (s *AchievementService) announceTier(ctx context.Context, userID string, a *models.Achievement, p paidTier) {
	metrics.AchievementRewards.WithLabelValues(a.Name).Add(float64(p.reward))
	logger.Info("achievement tier reached", "user_id", userID, "achievement", a.Name, "tier", p.tier, "reward", p.reward)

	s.deps.publish(ctx, events.New(events.TypeAchievementTierUp, a.ID, []string{userID}, map[string]interface{}{
		"achievement": a.Name,
		"tier":        p.tier,
		"reward":      p.reward,
	}))
	s.deps.Notifier.Notify(ctx, userID, fmt.Sprintf("Achievement unlocked: %s tier %d (+%d bet-coins)", a.Name, p.tier, p.reward))
}

// RecordMetric updates every achievement that tracks metric.
func (s *AchievementService) RecordMetric(ctx context.Context, userID, metric string, value int64) error {
	achievements, err := s.repos.Achievements.ListByMetric(ctx, metric)
	if err != nil {
		return err
	}
	for _, a := range achievements {
		if _, err := s.UpdateProgress(ctx, userID, a.ID, value); err != nil {
			return fmt.Errorf("update %s: %w", a.Name, err)
		}
	}
	return nil
}

// UserAchievements returns the user's progress on every achievement,
// including those not started yet.
func (s *AchievementService) UserAchievements(ctx context.Context, userID string) ([]models.AchievementProgress, error) {
	if _, err := s.repos.Users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	achievements, err := s.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repos.Achievements.ListUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	byAchievement := make(map[string]*models.UserAchievement, len(rows))
	for i := range rows {
		byAchievement[rows[i].AchievementID] = &rows[i]
	}

	views := make([]models.AchievementProgress, 0, len(achievements))
	for _, a := range achievements {
		view := buildProgressView(a, byAchievement[a.ID])
		if view.CurrentTier > 0 {
			if view.RewardsEarned, err = s.repos.Achievements.TotalPaid(ctx, userID, a.ID); err != nil {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func buildProgressView(a models.Achievement, ua *models.UserAchievement) models.AchievementProgress {
	view := models.AchievementProgress{Achievement: a}
	if ua != nil {
		view.Progress = ua.Progress
		view.CurrentTier = ua.CurrentTier
		view.Completed = ua.Completed
		view.CompletedAt = ua.CompletedAt
	}
	view.ProgressPercentage = ProgressPercentage(a.TierThresholds, view.Progress)
	view.NextThreshold, view.NextReward = nextTier(a.TierThresholds, a.TierRewards, view.CurrentTier)
	return view
}
