package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pairCondition = "(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)"

type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// SendFriendRequest creates a pending edge from userID to friendID. Any
// existing edge between the two, in either direction, blocks the request.
func (r *FriendRepository) SendFriendRequest(ctx context.Context, userID, friendID string) (*models.Friendship, error) {
	if userID == friendID {
		return nil, errors.New(errors.ErrCodeValidation, "cannot send a friend request to yourself")
	}

	friendship := &models.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   models.FriendshipStatusPending,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Friendship
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(pairCondition, userID, friendID, friendID, userID).
			First(&existing)

		if result.Error == nil {
			if existing.Status == models.FriendshipStatusAccepted {
				return errors.New(errors.ErrCodeAlreadyExists, "already friends")
			}
			return errors.New(errors.ErrCodeAlreadyExists, "friend request already exists")
		}
		if !stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to check existing friendship")
		}

		if err := tx.Create(friendship).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.New(errors.ErrCodeAlreadyExists, "friend request already exists")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create friend request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return friendship, nil
}

// AcceptFriendRequest accepts a pending request addressed to recipientID.
func (r *FriendRepository) AcceptFriendRequest(ctx context.Context, requestID, recipientID string) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockPendingFor(tx, requestID, recipientID, &friendship); err != nil {
			return err
		}
		result := tx.Model(&friendship).Update("status", models.FriendshipStatusAccepted)
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to accept friend request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	friendship.Status = models.FriendshipStatusAccepted
	return &friendship, nil
}

// RejectFriendRequest deletes a pending request addressed to recipientID.
// No rejected record is retained.
func (r *FriendRepository) RejectFriendRequest(ctx context.Context, requestID, recipientID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var friendship models.Friendship
		if err := r.lockPendingFor(tx, requestID, recipientID, &friendship); err != nil {
			return err
		}
		if err := tx.Delete(&friendship).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to reject friend request")
		}
		return nil
	})
}

func (r *FriendRepository) lockPendingFor(tx *gorm.DB, requestID, recipientID string, out *models.Friendship) error {
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", requestID).First(out)
	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return errors.New(errors.ErrCodeNotFound, "friend request not found")
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get friend request")
	}
	if out.FriendID != recipientID {
		return errors.New(errors.ErrCodeForbidden, "only the recipient can respond to a friend request")
	}
	if out.Status != models.FriendshipStatusPending {
		return errors.New(errors.ErrCodeValidation, "friend request already processed")
	}
	return nil
}

// GetFriends retrieves list of user's friends
func (r *FriendRepository) GetFriends(ctx context.Context, userID string) ([]models.User, error) {
	var friends []models.User

	err := r.db.WithContext(ctx).Table("users").
		Select("users.*").
		Joins("JOIN friendships ON (friendships.user_id = users.id OR friendships.friend_id = users.id)").
		Where("(friendships.user_id = ? OR friendships.friend_id = ?) AND friendships.status = ? AND users.id != ?",
			userID, userID, models.FriendshipStatusAccepted, userID).
		Order("users.username ASC").
		Find(&friends).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get friends")
	}

	return friends, nil
}

// GetFriendIDs returns the ids of userID's accepted friends.
func (r *FriendRepository) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var edges []models.Friendship
	err := r.db.WithContext(ctx).
		Where("(user_id = ? OR friend_id = ?) AND status = ?", userID, userID, models.FriendshipStatusAccepted).
		Find(&edges).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get friends")
	}

	ids := make([]string, 0, len(edges))
	for i := range edges {
		ids = append(ids, edges[i].Other(userID))
	}
	return ids, nil
}

// GetPendingRequests retrieves incoming pending requests with their senders.
func (r *FriendRepository) GetPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var edges []models.Friendship
	err := r.db.WithContext(ctx).
		Where("friend_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Order("created_at DESC").
		Find(&edges).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get pending requests")
	}

	requests := make([]models.FriendRequest, 0, len(edges))
	if len(edges) == 0 {
		return requests, nil
	}

	senderIDs := make([]string, 0, len(edges))
	for _, e := range edges {
		senderIDs = append(senderIDs, e.UserID)
	}
	var senders []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", senderIDs).Find(&senders).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get request senders")
	}
	byID := make(map[string]*models.User, len(senders))
	for i := range senders {
		byID[senders[i].ID] = &senders[i]
	}

	for _, e := range edges {
		sender, ok := byID[e.UserID]
		if !ok {
			continue
		}
		requests = append(requests, models.FriendRequest{
			ID:        e.ID,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
			Sender:    sender.Public(),
		})
	}
	return requests, nil
}

// RemoveFriend deletes the edge between two users in either direction.
func (r *FriendRepository) RemoveFriend(ctx context.Context, user1ID, user2ID string) error {
	result := r.db.WithContext(ctx).
		Where(pairCondition, user1ID, user2ID, user2ID, user1ID).
		Delete(&models.Friendship{})

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to remove friend")
	}

	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "friendship not found")
	}

	return nil
}

// AreFriends checks if two users are friends
func (r *FriendRepository) AreFriends(ctx context.Context, user1ID, user2ID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("("+pairCondition+") AND status = ?",
			user1ID, user2ID, user2ID, user1ID, models.FriendshipStatusAccepted,
		).Count(&count)

	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to check friendship")
	}

	return count > 0, nil
}

// CountFriends returns the number of accepted friendships of userID.
func (r *FriendRepository) CountFriends(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("(user_id = ? OR friend_id = ?) AND status = ?", userID, userID, models.FriendshipStatusAccepted).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count friends")
	}
	return count, nil
}
