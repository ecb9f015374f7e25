package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/internal/security"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
	"github.com/mroshb/betpals/pkg/utils"
)

const inviteCodeAttempts = 5

type GroupService struct {
	repos         Repositories
	deps          Deps
	progress      ProgressRecorder
	inviteCodeLen int
}

func NewGroupService(repos Repositories, deps Deps, progress ProgressRecorder, inviteCodeLen int) *GroupService {
	if progress == nil {
		progress = nopRecorder{}
	}
	if inviteCodeLen < 6 {
		inviteCodeLen = 8
	}
	return &GroupService{repos: repos, deps: deps.withDefaults(), progress: progress, inviteCodeLen: inviteCodeLen}
}

type CreateGroupInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// CreateGroup creates a group with a fresh invite code. The creator becomes
// its first member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID string, in CreateGroupInput) (*models.Group, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	name := security.SanitizeText(in.Name, 100)
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "name is required")
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		group := &models.Group{
			Name:        name,
			Description: security.SanitizeOptional(in.Description, 1000),
			InviteCode:  utils.GenerateInviteCode(s.inviteCodeLen),
			CreatedBy:   creatorID,
		}
		err := s.repos.Groups.CreateGroup(ctx, group)
		if stderrors.Is(err, repositories.ErrInviteCodeTaken) {
			logger.Debug("invite code collision, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Info("group created", "group_id", group.ID, "created_by", creatorID)
		s.recordMemberships(ctx, creatorID)
		return group, nil
	}
	return nil, errors.New(errors.ErrCodeInternalError, "could not allocate an invite code")
}

// JoinByInviteCode adds userID to the group the code belongs to.
func (s *GroupService) JoinByInviteCode(ctx context.Context, userID, code string) (*models.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.New(errors.ErrCodeValidation, "inviteCode is required")
	}
	group, err := s.repos.Groups.GetGroupByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Groups.AddMember(ctx, group.ID, userID); err != nil {
		return nil, err
	}
	s.recordMemberships(ctx, userID)
	return group, nil
}

func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	if _, err := s.repos.Groups.GetGroup(ctx, groupID); err != nil {
		return err
	}
	return s.repos.Groups.RemoveMember(ctx, groupID, userID)
}

// GetGroup returns a group and its members. Only members can see it.
func (s *GroupService) GetGroup(ctx context.Context, groupID, viewerID string) (*models.GroupDetails, error) {
	group, err := s.repos.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.repos.Groups.IsMember(ctx, groupID, viewerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errors.New(errors.ErrCodeForbidden, "you are not a member of this group")
	}

	users, err := s.repos.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members := make([]models.PublicUser, 0, len(users))
	for i := range users {
		members = append(members, users[i].Public())
	}
	return &models.GroupDetails{Group: *group, Members: members}, nil
}

func (s *GroupService) UserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	return s.repos.Groups.ListUserGroups(ctx, userID)
}

func (s *GroupService) recordMemberships(ctx context.Context, userID string) {
	n, err := s.repos.Groups.CountMemberships(ctx, userID)
	if err != nil {
		logger.Warn("failed to count group memberships", "user_id", userID, "error", err)
		return
	}
	recordMetric(ctx, s.progress, userID, models.MetricGroupsJoined, n)
}
