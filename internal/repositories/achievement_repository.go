package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTierAlreadyPaid is returned when a payout row for the tier exists.
var ErrTierAlreadyPaid = errors.New(errors.ErrCodeConflict, "tier reward already paid")

type AchievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

func (r *AchievementRepository) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	achievements := []models.Achievement{}
	if err := r.db.WithContext(ctx).Order("category ASC, name ASC").Find(&achievements).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list achievements")
	}
	return achievements, nil
}

func (r *AchievementRepository) GetAchievement(ctx context.Context, id string) (*models.Achievement, error) {
	var a models.Achievement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "achievement not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get achievement")
	}
	return &a, nil
}

// ListByMetric returns the achievements tracked by metric.
func (r *AchievementRepository) ListByMetric(ctx context.Context, metric string) ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := r.db.WithContext(ctx).Where("metric = ?", metric).Find(&achievements).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list achievements")
	}
	return achievements, nil
}

// UpsertAchievement inserts a definition or replaces the one with the same name.
func (r *AchievementRepository) UpsertAchievement(ctx context.Context, a *models.Achievement) error {
	if err := a.Validate(); err != nil {
		return errors.New(errors.ErrCodeValidation, "invalid achievement definition: "+a.Name)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "icon", "color", "category", "metric",
			"max_tier", "tier_thresholds", "tier_rewards",
		}),
	}).Create(a).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save achievement")
	}
	return r.db.WithContext(ctx).Where("name = ?", a.Name).First(a).Error
}

// LockProgress loads the user's progress row with a row lock. It returns
// nil without error when no row exists yet.
func (r *AchievementRepository) LockProgress(ctx context.Context, userID, achievementID string) (*models.UserAchievement, error) {
	var ua models.UserAchievement
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		First(&ua).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get progress")
	}
	return &ua, nil
}

func (r *AchievementRepository) SaveProgress(ctx context.Context, ua *models.UserAchievement) error {
	if err := r.db.WithContext(ctx).Save(ua).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save progress")
	}
	return nil
}

func (r *AchievementRepository) ListUserProgress(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get progress")
	}
	return rows, nil
}

// RecordPayout writes the payout row for one tier. ErrTierAlreadyPaid means
// the reward for that tier was already credited.
func (r *AchievementRepository) RecordPayout(ctx context.Context, payout *models.AchievementPayout) error {
	err := r.db.WithContext(ctx).Create(payout).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrTierAlreadyPaid
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to record payout")
	}
	return nil
}

// PaidTiers returns the tiers already paid for the pair.
func (r *AchievementRepository) PaidTiers(ctx context.Context, userID, achievementID string) (map[int]bool, error) {
	var tiers []int
	err := r.db.WithContext(ctx).Model(&models.AchievementPayout{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Pluck("tier", &tiers).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get payouts")
	}
	paid := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		paid[t] = true
	}
	return paid, nil
}

// TotalPaid sums the rewards paid to userID for one achievement.
func (r *AchievementRepository) TotalPaid(ctx context.Context, userID, achievementID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.AchievementPayout{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Select("COALESCE(SUM(reward), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to sum payouts")
	}
	return total, nil
}
