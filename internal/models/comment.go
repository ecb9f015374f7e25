package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BetID     string    `gorm:"type:varchar(36);not null;index:idx_comment_bet_time" json:"bet_id"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_comment_bet_time" json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.BetID == "" || c.UserID == "" || strings.TrimSpace(c.Text) == "" {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Comment) TableName() string {
	return "comments"
}

type Evidence struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BetID     string    `gorm:"type:varchar(36);not null;index:idx_evidence_bet_time" json:"bet_id"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id"`
	Text      *string   `gorm:"type:text" json:"text"`
	ImageURL  *string   `gorm:"type:varchar(500)" json:"image_url"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_evidence_bet_time" json:"created_at"`
}

// HasContent reports whether at least one of text and image is present.
func (e *Evidence) HasContent() bool {
	hasText := e.Text != nil && strings.TrimSpace(*e.Text) != ""
	hasImage := e.ImageURL != nil && strings.TrimSpace(*e.ImageURL) != ""
	return hasText || hasImage
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.BetID == "" || e.UserID == "" || !e.HasContent() {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Evidence) TableName() string {
	return "evidence"
}

// BetDetails is a bet together with its append-only children.
type BetDetails struct {
	Bet      Bet        `json:"bet"`
	Comments []Comment  `json:"comments"`
	Evidence []Evidence `json:"evidence"`
}
