package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/testutil"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coinBet(opponentID string, amount int64) CreateBetInput {
	return CreateBetInput{
		Title:             "Who wins the derby",
		Amount:            decimal.NewFromInt(amount),
		IsCoinDenominated: true,
		OpponentID:        opponentID,
		IsPublic:          true,
	}
}

func TestBetLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))

	bet, err := f.bets.CreateBet(ctx, creator.ID, coinBet(opponent.ID, 40))
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusPending, bet.Status)
	assert.Nil(t, bet.WinnerID)
	assert.Len(t, f.notices.For(opponent.ID), 1)

	bet, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusActive, bet.Status)
	assert.NotNil(t, bet.AcceptedAt)
	assert.Equal(t, int64(60), f.coins(t, creator.ID))
	assert.Equal(t, int64(60), f.coins(t, opponent.ID))

	bet, err = f.bets.ResolveBet(ctx, bet.ID, creator.ID, opponent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusCompleted, bet.Status)
	require.NotNil(t, bet.WinnerID)
	assert.Equal(t, opponent.ID, *bet.WinnerID)

	assert.Equal(t, int64(60), f.coins(t, creator.ID))
	assert.Equal(t, int64(140), f.coins(t, opponent.ID))

	winner := testutil.ReloadUser(t, f.db, opponent.ID)
	assert.Equal(t, 1, winner.TotalBets)
	assert.Equal(t, 1, winner.Wins)
	assert.InDelta(t, 1.0, winner.WinRate, 1e-9)
	loser := testutil.ReloadUser(t, f.db, creator.ID)
	assert.Equal(t, 1, loser.Losses)
	assert.InDelta(t, 0.0, loser.WinRate, 1e-9)

	txs, err := f.bets.BetTransactions(ctx, bet.ID, creator.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	assert.Len(t, f.events.OfType(events.TypeBetCreated), 1)
	assert.Len(t, f.events.OfType(events.TypeBetAccepted), 1)
	assert.Len(t, f.events.OfType(events.TypeBetResolved), 1)
}

func TestResolveBetTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))

	bet, err := f.bets.CreateBet(ctx, creator.ID, coinBet(opponent.ID, 10))
	require.NoError(t, err)
	_, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)
	_, err = f.bets.ResolveBet(ctx, bet.ID, opponent.ID, opponent.ID)
	require.NoError(t, err)

	_, err = f.bets.ResolveBet(ctx, bet.ID, creator.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeBetNotActive)

	stored, err := f.repos.Bets.GetBetByID(ctx, bet.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, opponent.ID, *stored.WinnerID)
	assert.Equal(t, int64(110), f.coins(t, opponent.ID))
}

func TestResolveBetPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	outsider := testutil.CreateUser(t, f.db)

	bet, err := f.bets.CreateBet(ctx, creator.ID, coinBet(opponent.ID, 10))
	require.NoError(t, err)

	_, err = f.bets.ResolveBet(ctx, bet.ID, creator.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeBetNotActive)

	_, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)

	_, err = f.bets.ResolveBet(ctx, bet.ID, outsider.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeForbidden)

	_, err = f.bets.ResolveBet(ctx, bet.ID, creator.ID, outsider.ID)
	requireCode(t, err, errors.ErrCodeValidation)

	_, err = f.bets.ResolveBet(ctx, "missing", creator.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeNotFound)

	stored, err := f.repos.Bets.GetBetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusActive, stored.Status)
	assert.Nil(t, stored.WinnerID)
}

func TestVerifiedBetIsResolvedByVerifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAchievements(t)
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	verifier := testutil.CreateUser(t, f.db)

	in := coinBet(opponent.ID, 20)
	in.ThirdPartyVerification = true
	in.VerifierID = &verifier.ID
	bet, err := f.bets.CreateBet(ctx, creator.ID, in)
	require.NoError(t, err)
	_, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)

	_, err = f.bets.ResolveBet(ctx, bet.ID, creator.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeForbidden)

	_, err = f.bets.ResolveBet(ctx, bet.ID, verifier.ID, creator.ID)
	require.NoError(t, err)

	// Verified Pro tier 1 for the verifier, Sharpshooter tier 1 for the winner.
	assert.Equal(t, int64(25), f.coins(t, verifier.ID))
	assert.Equal(t, int64(80+40+25), f.coins(t, creator.ID))
}

func TestAcceptBetInsufficientFundsRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(10))

	bet, err := f.bets.CreateBet(ctx, creator.ID, coinBet(opponent.ID, 40))
	require.NoError(t, err)

	_, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	requireCode(t, err, errors.ErrCodeInsufficientFunds)

	assert.Equal(t, int64(100), f.coins(t, creator.ID))
	assert.Equal(t, int64(10), f.coins(t, opponent.ID))
	stored, err := f.repos.Bets.GetBetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusPending, stored.Status)
}

func TestAcceptBetMoneyStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBalance(50))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBalance(50))

	bet, err := f.bets.CreateBet(ctx, creator.ID, CreateBetInput{
		Title:      "Rain tomorrow",
		Amount:     decimal.RequireFromString("12.50"),
		OpponentID: opponent.ID,
	})
	require.NoError(t, err)
	assert.False(t, bet.IsPublic)

	_, err = f.bets.AcceptBet(ctx, bet.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeForbidden)

	_, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)
	assert.Equal(t, "37.50", testutil.ReloadUser(t, f.db, creator.ID).Balance.StringFixed(2))

	_, err = f.bets.ResolveBet(ctx, bet.ID, opponent.ID, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, "62.50", testutil.ReloadUser(t, f.db, creator.ID).Balance.StringFixed(2))
	assert.Equal(t, "37.50", testutil.ReloadUser(t, f.db, opponent.ID).Balance.StringFixed(2))
}

func TestCreateBetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db)
	opponent := testutil.CreateUser(t, f.db)
	verifier := testutil.CreateUser(t, f.db)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		modify func(in *CreateBetInput)
		code   string
	}{
		{"zero amount", func(in *CreateBetInput) { in.Amount = decimal.Zero }, errors.ErrCodeValidation},
		{"negative amount", func(in *CreateBetInput) { in.Amount = decimal.NewFromInt(-5) }, errors.ErrCodeValidation},
		{"fractional coins", func(in *CreateBetInput) { in.Amount = decimal.RequireFromString("1.5") }, errors.ErrCodeValidation},
		{"missing title", func(in *CreateBetInput) { in.Title = "" }, errors.ErrCodeValidation},
		{"self opponent", func(in *CreateBetInput) { in.OpponentID = creator.ID }, errors.ErrCodeValidation},
		{"unknown opponent", func(in *CreateBetInput) { in.OpponentID = "nobody" }, errors.ErrCodeNotFound},
		{"verification without verifier", func(in *CreateBetInput) { in.ThirdPartyVerification = true }, errors.ErrCodeValidation},
		{"verifier without verification", func(in *CreateBetInput) { in.VerifierID = &verifier.ID }, errors.ErrCodeValidation},
		{"participant as verifier", func(in *CreateBetInput) {
			in.ThirdPartyVerification = true
			in.VerifierID = &opponent.ID
		}, errors.ErrCodeValidation},
		{"end date in the past", func(in *CreateBetInput) { in.EndDate = &past }, errors.ErrCodeValidation},
		{"bad image url", func(in *CreateBetInput) {
			u := "not a url"
			in.ImageURL = &u
		}, errors.ErrCodeValidation},
		{"unknown group", func(in *CreateBetInput) {
			g := "missing"
			in.GroupID = &g
		}, errors.ErrCodeNotFound},
		{"title over 200 characters", func(in *CreateBetInput) { in.Title = strings.Repeat("ж", 201) }, errors.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := coinBet(opponent.ID, 10)
			tt.modify(&in)
			_, err := f.bets.CreateBet(ctx, creator.ID, in)
			requireCode(t, err, tt.code)
		})
	}

	t.Run("multibyte title within limit", func(t *testing.T) {
		in := coinBet(opponent.ID, 10)
		in.Title = strings.Repeat("ж", 150)
		bet, err := f.bets.CreateBet(ctx, creator.ID, in)
		require.NoError(t, err)
		assert.Equal(t, in.Title, bet.Title)
	})

	t.Run("title stored as plain text", func(t *testing.T) {
		in := coinBet(opponent.ID, 10)
		in.Title = "Tom & Jerry <b>rematch</b>"
		bet, err := f.bets.CreateBet(ctx, creator.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Tom & Jerry rematch", bet.Title)
	})
}

func TestCancelBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	outsider := testutil.CreateUser(t, f.db)

	bet, err := f.bets.CreateBet(ctx, creator.ID, coinBet(opponent.ID, 10))
	require.NoError(t, err)

	_, err = f.bets.CancelBet(ctx, bet.ID, outsider.ID)
	requireCode(t, err, errors.ErrCodeForbidden)

	bet, err = f.bets.CancelBet(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusCancelled, bet.Status)

	_, err = f.bets.AcceptBet(ctx, bet.ID, opponent.ID)
	requireCode(t, err, errors.ErrCodeBetNotActive)
	_, err = f.bets.CancelBet(ctx, bet.ID, creator.ID)
	requireCode(t, err, errors.ErrCodeBetNotActive)
}

func TestCommentsAndEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, f.db, testutil.WithBetCoins(100))
	outsider := testutil.CreateUser(t, f.db)

	in := coinBet(opponent.ID, 10)
	in.IsPublic = false
	bet, err := f.bets.CreateBet(ctx, creator.ID, in)
	require.NoError(t, err)

	_, err = f.bets.AddComment(ctx, bet.ID, creator.ID, "first")
	require.NoError(t, err)
	_, err = f.bets.AddComment(ctx, bet.ID, opponent.ID, "<b>second</b>")
	require.NoError(t, err)
	_, err = f.bets.AddComment(ctx, bet.ID, outsider.ID, "let me in")
	requireCode(t, err, errors.ErrCodeNotFound)
	_, err = f.bets.AddComment(ctx, bet.ID, creator.ID, "   ")
	requireCode(t, err, errors.ErrCodeValidation)

	_, err = f.bets.AddEvidence(ctx, bet.ID, creator.ID, EvidenceInput{})
	requireCode(t, err, errors.ErrCodeValidation)
	img := "https://img.example.com/proof.png"
	_, err = f.bets.AddEvidence(ctx, bet.ID, creator.ID, EvidenceInput{ImageURL: &img})
	require.NoError(t, err)
	_, err = f.bets.AddEvidence(ctx, bet.ID, outsider.ID, EvidenceInput{ImageURL: &img})
	requireCode(t, err, errors.ErrCodeNotFound)
	_, err = f.bets.BetTransactions(ctx, bet.ID, outsider.ID)
	requireCode(t, err, errors.ErrCodeNotFound)

	details, err := f.bets.GetBetDetails(ctx, bet.ID, opponent.ID)
	require.NoError(t, err)
	require.Len(t, details.Comments, 2)
	assert.Equal(t, "first", details.Comments[0].Text)
	assert.Equal(t, "second", details.Comments[1].Text)
	assert.Len(t, details.Evidence, 1)

	_, err = f.bets.GetBetDetails(ctx, bet.ID, outsider.ID)
	requireCode(t, err, errors.ErrCodeNotFound)

	_, err = f.bets.CancelBet(ctx, bet.ID, creator.ID)
	require.NoError(t, err)
	text := "too late"
	_, err = f.bets.AddEvidence(ctx, bet.ID, creator.ID, EvidenceInput{Text: &text})
	requireCode(t, err, errors.ErrCodeBetNotActive)
}

func TestPublicBetOutsiderAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db)
	opponent := testutil.CreateUser(t, f.db)
	outsider := testutil.CreateUser(t, f.db)

	bet, err := f.bets.CreateBet(ctx, creator.ID, coinBet(opponent.ID, 10))
	require.NoError(t, err)

	_, err = f.bets.AddComment(ctx, bet.ID, outsider.ID, "go opponent")
	require.NoError(t, err)

	img := "https://img.example.com/proof.png"
	_, err = f.bets.AddEvidence(ctx, bet.ID, outsider.ID, EvidenceInput{ImageURL: &img})
	requireCode(t, err, errors.ErrCodeForbidden)
	_, err = f.bets.BetTransactions(ctx, bet.ID, outsider.ID)
	requireCode(t, err, errors.ErrCodeForbidden)
}

func TestFriendsFeedShowsPublicBetsOfFriends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := testutil.CreateUser(t, f.db)
	friend := testutil.CreateUser(t, f.db)
	stranger := testutil.CreateUser(t, f.db)

	req, err := f.friends.SendRequest(ctx, me.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, f.friends.Respond(ctx, friend.ID, req.ID, models.FriendshipStatusAccepted))

	public, err := f.bets.CreateBet(ctx, friend.ID, coinBet(stranger.ID, 5))
	require.NoError(t, err)
	private := coinBet(stranger.ID, 5)
	private.IsPublic = false
	_, err = f.bets.CreateBet(ctx, friend.ID, private)
	require.NoError(t, err)
	_, err = f.bets.CreateBet(ctx, stranger.ID, coinBet(friend.ID, 5))
	require.NoError(t, err)

	feed, err := f.bets.FriendsFeed(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, public.ID, feed[0].ID)

	mine, err := f.bets.ListUserBets(ctx, friend.ID, models.BetStatusPending)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	_, err = f.bets.ListUserBets(ctx, friend.ID, "bogus")
	requireCode(t, err, errors.ErrCodeValidation)
}
