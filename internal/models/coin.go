package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CoinTransaction is one ledger row. Exactly one of Amount (money balance)
// and BetCoins (virtual currency) is set.
type CoinTransaction struct {
	ID          string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string              `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Amount      decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"amount"`
	BetCoins    *int64              `json:"bet_coins"`
	Type        string              `gorm:"type:varchar(32);not null;index" json:"type"`
	Description string              `gorm:"type:text" json:"description"`
	BetID       *string             `gorm:"type:varchar(36);index" json:"bet_id"`
	CreatedAt   time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
}

// Transaction type constants
const (
	TxTypeDeposit           = "deposit"
	TxTypeWithdrawal        = "withdrawal"
	TxTypeBetStake          = "bet_stake"
	TxTypeBetPayout         = "bet_payout"
	TxTypeAchievementReward = "achievement_reward"
	TxTypeSignupBonus       = "signup_bonus"
)

func (t *CoinTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Amount.Valid == (t.BetCoins != nil) {
		return gorm.ErrInvalidData
	}
	return nil
}

func (CoinTransaction) TableName() string {
	return "transactions"
}
