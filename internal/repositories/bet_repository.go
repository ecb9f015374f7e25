package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BetRepository struct {
	db *gorm.DB
}

func NewBetRepository(db *gorm.DB) *BetRepository {
	return &BetRepository{db: db}
}

func (r *BetRepository) WithTx(tx *gorm.DB) *BetRepository {
	return &BetRepository{db: tx}
}

func (r *BetRepository) CreateBet(ctx context.Context, bet *models.Bet) error {
	err := r.db.WithContext(ctx).Create(bet).Error
	if stderrors.Is(err, gorm.ErrInvalidData) {
		return errors.New(errors.ErrCodeValidation, "invalid bet")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create bet")
	}
	return nil
}

func (r *BetRepository) GetBetByID(ctx context.Context, id string) (*models.Bet, error) {
	return r.findBet(r.db.WithContext(ctx), id)
}

// LockBet loads a bet with a row lock. Only meaningful inside a transaction.
func (r *BetRepository) LockBet(ctx context.Context, id string) (*models.Bet, error) {
	return r.findBet(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *BetRepository) findBet(q *gorm.DB, id string) (*models.Bet, error) {
	var bet models.Bet
	err := q.Where("id = ?", id).First(&bet).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "bet not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get bet")
	}
	return &bet, nil
}

// TransitionStatus moves a bet from one status to another only if it is
// still in the expected status. It returns false when another writer got
// there first.
func (r *BetRepository) TransitionStatus(ctx context.Context, id, from, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update bet status")
	}
	return result.RowsAffected == 1, nil
}

// ListUserBets returns bets where userID is a participant, newest first.
// An empty status matches every status.
func (r *BetRepository) ListUserBets(ctx context.Context, userID, status string) ([]models.Bet, error) {
	var bets []models.Bet
	q := r.db.WithContext(ctx).Where("(creator_id = ? OR opponent_id = ?)", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&bets).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get bets")
	}
	return bets, nil
}

// ListGroupBets returns every bet placed in groupID, newest first.
func (r *BetRepository) ListGroupBets(ctx context.Context, groupID string) ([]models.Bet, error) {
	bets := []models.Bet{}
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("created_at DESC").Find(&bets).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get group bets")
	}
	return bets, nil
}

// ListPublicByCreators returns public bets created by any of creatorIDs.
func (r *BetRepository) ListPublicByCreators(ctx context.Context, creatorIDs []string, limit int) ([]models.Bet, error) {
	bets := []models.Bet{}
	if len(creatorIDs) == 0 {
		return bets, nil
	}
	err := r.db.WithContext(ctx).
		Where("creator_id IN ? AND is_public = ?", creatorIDs, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&bets).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get feed")
	}
	return bets, nil
}

// SettledStats counts completed bets and wins for userID.
func (r *BetRepository) SettledStats(ctx context.Context, userID string) (BetStats, error) {
	var total, wins int64
	db := r.db.WithContext(ctx)

	err := db.Model(&models.Bet{}).
		Where("(creator_id = ? OR opponent_id = ?) AND status = ?", userID, userID, models.BetStatusCompleted).
		Count(&total).Error
	if err != nil {
		return BetStats{}, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count bets")
	}

	err = db.Model(&models.Bet{}).
		Where("winner_id = ? AND status = ?", userID, models.BetStatusCompleted).
		Count(&wins).Error
	if err != nil {
		return BetStats{}, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count wins")
	}

	return BetStats{TotalBets: int(total), Wins: int(wins), Losses: int(total - wins)}, nil
}

// LongestWinStreak returns the longest run of consecutive wins across the
// user's completed bets in resolution order.
func (r *BetRepository) LongestWinStreak(ctx context.Context, userID string) (int, error) {
	var winners []*string
	err := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("(creator_id = ? OR opponent_id = ?) AND status = ?", userID, userID, models.BetStatusCompleted).
		Order("resolved_at ASC").
		Pluck("winner_id", &winners).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to load results")
	}

	best, run := 0, 0
	for _, w := range winners {
		if w != nil && *w == userID {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best, nil
}

// CountVerified returns how many bets verifierID has resolved as verifier.
func (r *BetRepository) CountVerified(ctx context.Context, verifierID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("verifier_id = ? AND status = ?", verifierID, models.BetStatusCompleted).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count verifications")
	}
	return count, nil
}

// CountActive returns the number of the user's bets awaiting resolution.
func (r *BetRepository) CountActive(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("(creator_id = ? OR opponent_id = ?) AND status = ?", userID, userID, models.BetStatusActive).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count active bets")
	}
	return count, nil
}

func (r *BetRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		if stderrors.Is(err, gorm.ErrInvalidData) {
			return errors.New(errors.ErrCodeValidation, "comment text is required")
		}
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to add comment")
	}
	return nil
}

// ListComments returns a bet's comments in the order they were written.
func (r *BetRepository) ListComments(ctx context.Context, betID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).Where("bet_id = ?", betID).Order("created_at ASC, id ASC").Find(&comments).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get comments")
	}
	return comments, nil
}

func (r *BetRepository) AddEvidence(ctx context.Context, evidence *models.Evidence) error {
	if err := r.db.WithContext(ctx).Create(evidence).Error; err != nil {
		if stderrors.Is(err, gorm.ErrInvalidData) {
			return errors.New(errors.ErrCodeValidation, "evidence needs text or an image")
		}
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to add evidence")
	}
	return nil
}

func (r *BetRepository) ListEvidence(ctx context.Context, betID string) ([]models.Evidence, error) {
	evidence := []models.Evidence{}
	err := r.db.WithContext(ctx).Where("bet_id = ?", betID).Order("created_at ASC, id ASC").Find(&evidence).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get evidence")
	}
	return evidence, nil
}
