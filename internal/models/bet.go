package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Bet struct {
	ID                     string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title                  string          `gorm:"type:varchar(200);not null" json:"title"`
	Description            *string         `gorm:"type:text" json:"description"`
	Amount                 decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	IsCoinDenominated      bool            `gorm:"not null;default:false" json:"is_coin_denominated"`
	Category               *string         `gorm:"type:varchar(64)" json:"category"`
	CreatorID              string          `gorm:"type:varchar(36);not null;index" json:"creator_id"`
	OpponentID             string          `gorm:"type:varchar(36);not null;index" json:"opponent_id"`
	GroupID                *string         `gorm:"type:varchar(36);index" json:"group_id"`
	Status                 string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	WinnerID               *string         `gorm:"type:varchar(36)" json:"winner_id"`
	ThirdPartyVerification bool            `gorm:"not null;default:false" json:"third_party_verification"`
	VerifierID             *string         `gorm:"type:varchar(36);index" json:"verifier_id"`
	IsPublic               bool            `gorm:"not null" json:"is_public"`
	EndDate                *time.Time      `json:"end_date"`
	ImageURL               *string         `gorm:"type:varchar(500)" json:"image_url"`
	AcceptedAt             *time.Time      `json:"accepted_at"`
	ResolvedAt             *time.Time      `json:"resolved_at"`
	CreatedAt              time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Bet status constants
const (
	BetStatusPending   = "pending"
	BetStatusActive    = "active"
	BetStatusCompleted = "completed"
	BetStatusCancelled = "cancelled"
)

func IsValidBetStatus(status string) bool {
	switch status {
	case BetStatusPending, BetStatusActive, BetStatusCompleted, BetStatusCancelled:
		return true
	}
	return false
}

func (b *Bet) IsParticipant(userID string) bool {
	return userID != "" && (b.CreatorID == userID || b.OpponentID == userID)
}

func (b *Bet) IsVerifier(userID string) bool {
	return b.VerifierID != nil && *b.VerifierID == userID
}

// CanResolve reports whether userID may pick the winner. A verified bet is
// resolved by its verifier only.
func (b *Bet) CanResolve(userID string) bool {
	if b.ThirdPartyVerification {
		return b.IsVerifier(userID)
	}
	return b.IsParticipant(userID)
}

// CanPost reports whether userID may attach comments or evidence.
func (b *Bet) CanPost(userID string) bool {
	return b.IsParticipant(userID) || b.IsVerifier(userID)
}

// Loser returns the participant who is not winnerID.
func (b *Bet) Loser(winnerID string) string {
	if winnerID == b.CreatorID {
		return b.OpponentID
	}
	return b.CreatorID
}

// Validate checks the structural invariants of a bet record.
func (b *Bet) Validate() error {
	if strings.TrimSpace(b.Title) == "" || utf8.RuneCountInString(b.Title) > 200 {
		return gorm.ErrInvalidData
	}
	if !b.Amount.IsPositive() {
		return gorm.ErrInvalidData
	}
	if b.IsCoinDenominated && !b.Amount.IsInteger() {
		return gorm.ErrInvalidData
	}
	if b.CreatorID == "" || b.OpponentID == "" || b.CreatorID == b.OpponentID {
		return gorm.ErrInvalidData
	}
	if b.ThirdPartyVerification != (b.VerifierID != nil && *b.VerifierID != "") {
		return gorm.ErrInvalidData
	}
	if b.VerifierID != nil && b.IsParticipant(*b.VerifierID) {
		return gorm.ErrInvalidData
	}
	if !IsValidBetStatus(b.Status) {
		return gorm.ErrInvalidData
	}
	if b.Status == BetStatusCompleted {
		if b.WinnerID == nil || !b.IsParticipant(*b.WinnerID) {
			return gorm.ErrInvalidData
		}
	} else if b.WinnerID != nil {
		return gorm.ErrInvalidData
	}
	return nil
}

func (b *Bet) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BetStatusPending
	}
	return b.Validate()
}

func (Bet) TableName() string {
	return "bets"
}
