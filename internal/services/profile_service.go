package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/internal/security"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
	"github.com/mroshb/betpals/pkg/utils"
	"gorm.io/gorm"
)

// ProfileOptions tunes profile creation and search.
type ProfileOptions struct {
	SignupBetCoins int64
	SearchLimit    int
	SearchMinQuery int
}

type ProfileService struct {
	db    *gorm.DB
	repos Repositories
	deps  Deps
	opts  ProfileOptions
}

func NewProfileService(db *gorm.DB, repos Repositories, deps Deps, opts ProfileOptions) *ProfileService {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	if opts.SearchMinQuery <= 0 {
		opts.SearchMinQuery = 2
	}
	return &ProfileService{db: db, repos: repos, deps: deps.withDefaults(), opts: opts}
}

type CreateProfileInput struct {
	Username  string  `json:"username" validate:"required,min=3,max=32"`
	Email     string  `json:"email" validate:"required,email"`
	FullName  *string `json:"full_name" validate:"omitempty,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type UpdateProfileInput struct {
	FullName       *string `json:"full_name" validate:"omitempty,max=255"`
	Bio            *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL      *string `json:"avatar_url" validate:"omitempty,url"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

// CreateProfile stores the profile of a user the identity provider already
// knows about and credits the signup bonus.
func (s *ProfileService) CreateProfile(ctx context.Context, userID string, in CreateProfileInput) (*models.User, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "missing user id")
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        userID,
		Username:  in.Username,
		Email:     in.Email,
		FullName:  security.SanitizeOptional(in.FullName, 255),
		AvatarURL: in.AvatarURL,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Users.WithTx(tx).CreateUser(ctx, user); err != nil {
			return err
		}
		if s.opts.SignupBetCoins <= 0 {
			return nil
		}
		entry := repositories.LedgerEntry{Type: models.TxTypeSignupBonus, Description: "Welcome bonus"}
		return s.repos.Coins.WithTx(tx).AddCoins(ctx, user.ID, s.opts.SignupBetCoins, entry)
	})
	if err != nil {
		return nil, err
	}

	user.BetCoins = s.opts.SignupBetCoins
	logger.Info("profile created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.repos.Users.GetUserByID(ctx, userID)
}

// PublicProfile returns what other users may see of userID.
func (s *ProfileService) PublicProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

// UpdateProfile changes the editable fields that are present in in. An
// empty string clears an optional field.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.User, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if in.FullName != nil {
		fields["full_name"] = security.SanitizeOptional(in.FullName, 255)
	}
	if in.Bio != nil {
		fields["bio"] = security.SanitizeOptional(in.Bio, 1000)
	}
	if in.AvatarURL != nil {
		if v := strings.TrimSpace(*in.AvatarURL); v == "" {
			fields["avatar_url"] = nil
		} else {
			fields["avatar_url"] = v
		}
	}
	if in.TelegramChatID != nil {
		fields["telegram_chat_id"] = *in.TelegramChatID
	}

	if err := s.repos.Users.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.repos.Users.GetUserByID(ctx, userID)
}

// SearchUsers finds users by username or full name. Queries shorter than
// the configured minimum return nothing.
func (s *ProfileService) SearchUsers(ctx context.Context, query string) ([]models.PublicUser, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < s.opts.SearchMinQuery {
		return []models.PublicUser{}, nil
	}
	query = utils.Truncate(query, 64)

	key := fmt.Sprintf("search:%d:%s", s.opts.SearchLimit, strings.ToLower(query))
	var cached []models.PublicUser
	if found, err := s.deps.Cache.Get(ctx, key, &cached); err != nil {
		logger.Warn("search cache read failed", "error", err)
	} else if found {
		return cached, nil
	}

	users, err := s.repos.Users.SearchUsers(ctx, query, s.opts.SearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}

	if err := s.deps.Cache.Set(ctx, key, out); err != nil {
		logger.Warn("search cache write failed", "error", err)
	}
	return out, nil
}

type UserStats struct {
	TotalBets  int     `json:"total_bets"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`
	ActiveBets int64   `json:"active_bets"`
	BetCoins   int64   `json:"bet_coins"`
	Balance    string  `json:"balance"`
}

func (s *ProfileService) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := s.repos.Bets.CountActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		TotalBets:  user.TotalBets,
		Wins:       user.Wins,
		Losses:     user.Losses,
		WinRate:    user.WinRate,
		ActiveBets: active,
		BetCoins:   user.BetCoins,
		Balance:    user.Balance.StringFixed(2),
	}, nil
}
