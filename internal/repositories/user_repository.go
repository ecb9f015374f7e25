package repositories

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/utils"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = utils.NormalizeUsername(user.Username)
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))

	result := r.db.WithContext(ctx).Create(user)
	if stderrors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return errors.New(errors.ErrCodeAlreadyExists, "username or email already taken")
	}
	if stderrors.Is(result.Error, gorm.ErrInvalidData) {
		return errors.New(errors.ErrCodeValidation, "invalid profile data")
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to create user")
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get user")
	}

	return &user, nil
}

// CountExisting returns how many of the distinct ids belong to a user.
func (r *UserRepository) CountExisting(ctx context.Context, ids ...string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to check users")
	}
	return count, nil
}

// UpdateProfile applies the given column updates to a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update profile")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "user not found")
	}
	return nil
}

// SearchUsers matches username or full name case-insensitively.
func (r *UserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + utils.EscapeLike(strings.ToLower(query)) + "%"

	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to search users")
	}
	return users, nil
}

// BetStats is the settled record of one user.
type BetStats struct {
	TotalBets int
	Wins      int
	Losses    int
}

func (s BetStats) WinRate() float64 {
	if s.TotalBets == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalBets)
}

// SetBetStats stores the settled record and derived win rate.
func (r *UserRepository) SetBetStats(ctx context.Context, id string, stats BetStats) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_bets": stats.TotalBets,
		"wins":       stats.Wins,
		"losses":     stats.Losses,
		"win_rate":   stats.WinRate(),
	}).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update bet stats")
	}
	return nil
}
