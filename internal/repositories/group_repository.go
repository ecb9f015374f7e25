package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"gorm.io/gorm"
)

// ErrInviteCodeTaken signals an invite code collision on insert.
var ErrInviteCodeTaken = errors.New(errors.ErrCodeConflict, "invite code already in use")

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// CreateGroup inserts the group and its creator's membership together.
func (r *GroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrInviteCodeTaken
			}
			if stderrors.Is(err, gorm.ErrInvalidData) {
				return errors.New(errors.ErrCodeValidation, "group name is required")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create group")
		}
		member := &models.GroupMember{GroupID: group.ID, UserID: group.CreatedBy}
		if err := tx.Create(member).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to add group creator")
		}
		return nil
	})
}

func (r *GroupRepository) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return r.findGroup(ctx, "id = ?", id)
}

func (r *GroupRepository) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	return r.findGroup(ctx, "invite_code = ?", code)
}

func (r *GroupRepository) findGroup(ctx context.Context, cond string, arg string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Where(cond, arg).First(&group).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "group not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get group")
	}
	return &group, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	err := r.db.WithContext(ctx).Create(&models.GroupMember{GroupID: groupID, UserID: userID}).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.New(errors.ErrCodeAlreadyExists, "already a member of this group")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to join group")
	}
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to leave group")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "not a member of this group")
	}
	return nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternalError, "failed to check membership")
	}
	return count > 0, nil
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]models.User, error) {
	members := []models.User{}
	err := r.db.WithContext(ctx).Table("users").
		Select("users.*").
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Order("group_members.joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get members")
	}
	return members, nil
}

// ListUserGroups returns the groups userID belongs to.
func (r *GroupRepository) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	groups := []models.Group{}
	err := r.db.WithContext(ctx).Table("bet_groups").
		Select("bet_groups.*").
		Joins("JOIN group_members ON group_members.group_id = bet_groups.id").
		Where("group_members.user_id = ?", userID).
		Order("bet_groups.name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get groups")
	}
	return groups, nil
}

func (r *GroupRepository) CountMemberships(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count groups")
	}
	return count, nil
}
