package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username       string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"username"`
	Email          string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName       *string         `gorm:"type:varchar(255)" json:"full_name"`
	AvatarURL      *string         `gorm:"type:varchar(500)" json:"avatar_url"`
	Bio            *string         `gorm:"type:text" json:"bio"`
	TelegramChatID *int64          `gorm:"index" json:"telegram_chat_id,omitempty"`
	BetCoins       int64           `gorm:"not null;default:0" json:"bet_coins"`
	Balance        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	WinRate        float64         `gorm:"not null;default:0" json:"win_rate"`
	TotalBets      int             `gorm:"not null;default:0" json:"total_bets"`
	Wins           int             `gorm:"not null;default:0" json:"wins"`
	Losses         int             `gorm:"not null;default:0" json:"losses"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublicUser is the subset of a profile visible to other users.
type PublicUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	WinRate   float64 `json:"win_rate"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		WinRate:   u.WinRate,
	}
}

// Validate checks the invariants every stored profile must hold.
func (u *User) Validate() error {
	n := utf8.RuneCountInString(u.Username)
	if n < 3 || n > 32 {
		return gorm.ErrInvalidData
	}
	if !strings.Contains(u.Email, "@") {
		return gorm.ErrInvalidData
	}
	if u.BetCoins < 0 || u.Balance.IsNegative() {
		return gorm.ErrInvalidData
	}
	if u.WinRate < 0 || u.WinRate > 1 {
		return gorm.ErrInvalidData
	}
	return nil
}

// BeforeCreate assigns an id when the identity provider did not supply one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return u.Validate()
}

func (User) TableName() string {
	return "users"
}
