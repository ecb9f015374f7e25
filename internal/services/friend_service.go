package services

import (
	"context"
	"fmt"

	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/metrics"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
)

type FriendService struct {
	repos    Repositories
	deps     Deps
	progress ProgressRecorder
}

func NewFriendService(repos Repositories, deps Deps, progress ProgressRecorder) *FriendService {
	if progress == nil {
		progress = nopRecorder{}
	}
	return &FriendService{repos: repos, deps: deps.withDefaults(), progress: progress}
}

// SendRequest opens a pending request from userID to friendID.
func (s *FriendService) SendRequest(ctx context.Context, userID, friendID string) (*models.Friendship, error) {
	if userID == "" || friendID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "userId and friendId are required")
	}
	if userID == friendID {
		return nil, errors.New(errors.ErrCodeValidation, "cannot send a friend request to yourself")
	}
	found, err := s.repos.Users.CountExisting(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if found != 2 {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}

	request, err := s.repos.Friends.SendFriendRequest(ctx, userID, friendID)
	if err != nil {
		if errors.Is(err, errors.ErrCodeAlreadyExists) {
			metrics.FriendRequests.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	metrics.FriendRequests.WithLabelValues("sent").Inc()
	s.deps.publish(ctx, events.New(events.TypeFriendRequested, request.ID, []string{userID, friendID}, nil))
	if sender, err := s.repos.Users.GetUserByID(ctx, userID); err == nil {
		s.deps.Notifier.Notify(ctx, friendID, fmt.Sprintf("%s sent you a friend request", sender.Username))
	}
	return request, nil
}

// Respond accepts or rejects a pending request. Only the recipient may
// respond; a rejected request is deleted.
func (s *FriendService) Respond(ctx context.Context, actorID, requestID, status string) error {
	if requestID == "" {
		return errors.New(errors.ErrCodeValidation, "requestId is required")
	}

	switch status {
	case models.FriendshipStatusAccepted:
		request, err := s.repos.Friends.AcceptFriendRequest(ctx, requestID, actorID)
		if err != nil {
			return err
		}
		metrics.FriendRequests.WithLabelValues("accepted").Inc()
		logger.Info("friend request accepted", "request_id", requestID, "user_id", request.UserID, "friend_id", request.FriendID)

		s.deps.publish(ctx, events.New(events.TypeFriendAccepted, request.ID, []string{request.UserID, request.FriendID}, nil))
		s.deps.Notifier.Notify(ctx, request.UserID, "Your friend request was accepted")
		s.recordFriendCount(ctx, request.UserID)
		s.recordFriendCount(ctx, request.FriendID)
		return nil

	case models.FriendshipStatusRejected:
		if err := s.repos.Friends.RejectFriendRequest(ctx, requestID, actorID); err != nil {
			return err
		}
		metrics.FriendRequests.WithLabelValues("rejected").Inc()
		return nil

	default:
		return errors.New(errors.ErrCodeValidation, "status must be accepted or rejected")
	}
}

func (s *FriendService) recordFriendCount(ctx context.Context, userID string) {
	n, err := s.repos.Friends.CountFriends(ctx, userID)
	if err != nil {
		logger.Warn("failed to count friends", "user_id", userID, "error", err)
		return
	}
	recordMetric(ctx, s.progress, userID, models.MetricFriends, n)
}

// Remove deletes the edge between two users whatever its direction.
func (s *FriendService) Remove(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return errors.New(errors.ErrCodeValidation, "invalid friend")
	}
	return s.repos.Friends.RemoveFriend(ctx, userID, friendID)
}

func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	friends, err := s.repos.Friends.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(friends))
	for i := range friends {
		out = append(out, friends[i].Public())
	}
	return out, nil
}

// PendingRequests lists requests waiting for userID's answer.
func (s *FriendService) PendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "userId is required")
	}
	return s.repos.Friends.GetPendingRequests(ctx, userID)
}

func (s *FriendService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return s.repos.Friends.AreFriends(ctx, a, b)
}
