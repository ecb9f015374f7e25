package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friendship is an edge between two users. UserID sent the request and
// FriendID received it; the pair is unique regardless of direction.
type Friendship struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_friendship,unique" json:"user_id"`
	FriendID  string    `gorm:"type:varchar(36);not null;index:idx_friendship,unique;index" json:"friend_id"`
	Status    string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Friendship status constants
const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusRejected = "rejected"
)

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.UserID == "" || f.FriendID == "" || f.UserID == f.FriendID {
		return gorm.ErrInvalidData
	}
	return nil
}

// Other returns the id on the opposite end of the edge from userID.
func (f *Friendship) Other(userID string) string {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}

func (Friendship) TableName() string {
	return "friendships"
}

// FriendRequest is a pending incoming request joined with its sender.
type FriendRequest struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Sender    PublicUser `json:"sender"`
}
