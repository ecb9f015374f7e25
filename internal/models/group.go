package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	InviteCode  string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"invite_code"`
	CreatedBy   string    `gorm:"type:varchar(36);not null;index" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if strings.TrimSpace(g.Name) == "" || g.InviteCode == "" || g.CreatedBy == "" {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Group) TableName() string {
	return "bet_groups"
}

type GroupMember struct {
	ID       string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	GroupID  string    `gorm:"type:varchar(36);not null;index:idx_group_member,unique" json:"group_id"`
	UserID   string    `gorm:"type:varchar(36);not null;index:idx_group_member,unique;index" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (GroupMember) TableName() string {
	return "group_members"
}

// GroupDetails is a group with its member profiles.
type GroupDetails struct {
	Group   Group        `json:"group"`
	Members []PublicUser `json:"members"`
}
