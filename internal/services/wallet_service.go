package services

import (
	"context"
	"io"

	"github.com/mroshb/betpals/internal/export"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
	"github.com/shopspring/decimal"
)

const walletHistoryLimit = 50

type WalletService struct {
	repos Repositories
}

func NewWalletService(repos Repositories) *WalletService {
	return &WalletService{repos: repos}
}

type Wallet struct {
	Balance      string                   `json:"balance"`
	BetCoins     int64                    `json:"bet_coins"`
	Transactions []models.CoinTransaction `json:"transactions"`
}

func checkMoney(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New(errors.ErrCodeValidation, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return errors.New(errors.ErrCodeValidation, "amount has more than two decimal places")
	}
	return nil
}

func (s *WalletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*Wallet, error) {
	if err := checkMoney(amount); err != nil {
		return nil, err
	}
	entry := repositories.LedgerEntry{Type: models.TxTypeDeposit, Description: "Deposit"}
	if err := s.repos.Coins.AddBalance(ctx, userID, amount, entry); err != nil {
		return nil, err
	}
	logger.Info("deposit", "user_id", userID, "amount", amount.StringFixed(2))
	return s.Wallet(ctx, userID)
}

func (s *WalletService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*Wallet, error) {
	if err := checkMoney(amount); err != nil {
		return nil, err
	}
	entry := repositories.LedgerEntry{Type: models.TxTypeWithdrawal, Description: "Withdrawal"}
	if err := s.repos.Coins.DeductBalance(ctx, userID, amount, entry); err != nil {
		return nil, err
	}
	logger.Info("withdrawal", "user_id", userID, "amount", amount.StringFixed(2))
	return s.Wallet(ctx, userID)
}

// Wallet returns both balances and the most recent ledger rows.
func (s *WalletService) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repos.Coins.GetTransactionHistory(ctx, userID, walletHistoryLimit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.CoinTransaction{}
	}
	return &Wallet{Balance: user.Balance.StringFixed(2), BetCoins: user.BetCoins, Transactions: txs}, nil
}

// ExportBetHistory writes the user's bets and full ledger as a workbook.
func (s *WalletService) ExportBetHistory(ctx context.Context, userID string, w io.Writer) error {
	if _, err := s.repos.Users.GetUserByID(ctx, userID); err != nil {
		return err
	}
	bets, err := s.repos.Bets.ListUserBets(ctx, userID, "")
	if err != nil {
		return err
	}
	txs, err := s.repos.Coins.GetTransactionHistory(ctx, userID, 0)
	if err != nil {
		return err
	}
	if err := export.WriteBetHistory(w, userID, bets, txs); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write workbook")
	}
	return nil
}
