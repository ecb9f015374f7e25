package repositories

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerEntry describes the ledger row written alongside a balance change.
type LedgerEntry struct {
	Type        string
	Description string
	BetID       *string
}

// CoinRepository moves bet-coins and money balance, writing one ledger row
// per movement in the same transaction as the balance update.
type CoinRepository struct {
	db *gorm.DB
}

func NewCoinRepository(db *gorm.DB) *CoinRepository {
	return &CoinRepository{db: db}
}

func (r *CoinRepository) WithTx(tx *gorm.DB) *CoinRepository {
	return &CoinRepository{db: tx}
}

func lockUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&user).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get user")
	}
	return &user, nil
}

// DeductCoins deducts bet-coins from the user with transaction logging
func (r *CoinRepository) DeductCoins(ctx context.Context, userID string, amount int64, entry LedgerEntry) error {
	if amount <= 0 {
		return errors.New(errors.ErrCodeValidation, "amount must be positive")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		if user.BetCoins < amount {
			return errors.New(errors.ErrCodeInsufficientFunds, fmt.Sprintf("insufficient bet-coins: have %d, need %d", user.BetCoins, amount))
		}

		if err := tx.Model(user).Update("bet_coins", user.BetCoins-amount).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update bet-coins")
		}

		delta := -amount
		return writeLedger(tx, &models.CoinTransaction{UserID: userID, BetCoins: &delta}, entry)
	})
}

// AddCoins adds bet-coins to the user with transaction logging
func (r *CoinRepository) AddCoins(ctx context.Context, userID string, amount int64, entry LedgerEntry) error {
	if amount <= 0 {
		return errors.New(errors.ErrCodeValidation, "amount must be positive")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Model(user).Update("bet_coins", user.BetCoins+amount).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update bet-coins")
		}

		return writeLedger(tx, &models.CoinTransaction{UserID: userID, BetCoins: &amount}, entry)
	})
}

// DeductBalance removes money from the user's balance.
func (r *CoinRepository) DeductBalance(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) error {
	if !amount.IsPositive() {
		return errors.New(errors.ErrCodeValidation, "amount must be positive")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		if user.Balance.LessThan(amount) {
			return errors.New(errors.ErrCodeInsufficientFunds, fmt.Sprintf("insufficient balance: have %s, need %s", user.Balance.StringFixed(2), amount.StringFixed(2)))
		}

		if err := tx.Model(user).Update("balance", user.Balance.Sub(amount)).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update balance")
		}

		return writeLedger(tx, &models.CoinTransaction{UserID: userID, Amount: decimal.NewNullDecimal(amount.Neg())}, entry)
	})
}

// AddBalance credits money to the user's balance.
func (r *CoinRepository) AddBalance(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) error {
	if !amount.IsPositive() {
		return errors.New(errors.ErrCodeValidation, "amount must be positive")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Model(user).Update("balance", user.Balance.Add(amount)).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update balance")
		}

		return writeLedger(tx, &models.CoinTransaction{UserID: userID, Amount: decimal.NewNullDecimal(amount)}, entry)
	})
}

// Debit takes a bet stake in the bet's denomination.
func (r *CoinRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal, coins bool, entry LedgerEntry) error {
	if coins {
		return r.DeductCoins(ctx, userID, amount.IntPart(), entry)
	}
	return r.DeductBalance(ctx, userID, amount, entry)
}

// Credit pays out in the bet's denomination.
func (r *CoinRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal, coins bool, entry LedgerEntry) error {
	if coins {
		return r.AddCoins(ctx, userID, amount.IntPart(), entry)
	}
	return r.AddBalance(ctx, userID, amount, entry)
}

func writeLedger(tx *gorm.DB, row *models.CoinTransaction, entry LedgerEntry) error {
	row.Type = entry.Type
	row.Description = entry.Description
	row.BetID = entry.BetID
	if err := tx.Create(row).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create transaction")
	}
	return nil
}

// GetTransactionHistory retrieves user's transaction history
func (r *CoinRepository) GetTransactionHistory(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error) {
	var transactions []models.CoinTransaction
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&transactions).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get transaction history")
	}

	return transactions, nil
}

// GetBetTransactions returns the ledger rows tied to a bet, oldest first.
func (r *CoinRepository) GetBetTransactions(ctx context.Context, betID string) ([]models.CoinTransaction, error) {
	var transactions []models.CoinTransaction
	err := r.db.WithContext(ctx).Where("bet_id = ?", betID).Order("created_at ASC").Find(&transactions).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get bet transactions")
	}
	return transactions, nil
}
