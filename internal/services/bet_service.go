package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/metrics"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/internal/security"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxCommentLen     = 1000
)

type BetService struct {
	db       *gorm.DB
	repos    Repositories
	deps     Deps
	progress ProgressRecorder
	feedSize int
}

func NewBetService(db *gorm.DB, repos Repositories, deps Deps, progress ProgressRecorder, feedSize int) *BetService {
	if progress == nil {
		progress = nopRecorder{}
	}
	if feedSize <= 0 {
		feedSize = 20
	}
	return &BetService{db: db, repos: repos, deps: deps.withDefaults(), progress: progress, feedSize: feedSize}
}

type CreateBetInput struct {
	Title                  string          `json:"title" validate:"required,max=200"`
	Description            *string         `json:"description"`
	Amount                 decimal.Decimal `json:"amount"`
	IsCoinDenominated      bool            `json:"is_coin_denominated"`
	Category               *string         `json:"category" validate:"omitempty,max=64"`
	OpponentID             string          `json:"opponent_id" validate:"required"`
	GroupID                *string         `json:"group_id"`
	ThirdPartyVerification bool            `json:"third_party_verification"`
	VerifierID             *string         `json:"verifier_id"`
	IsPublic               bool            `json:"is_public"`
	EndDate                *time.Time      `json:"end_date"`
	ImageURL               *string         `json:"image_url"`
}

func (in *CreateBetInput) check(creatorID string) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		return errors.New(errors.ErrCodeValidation, "amount must be greater than zero")
	}
	if in.IsCoinDenominated && !in.Amount.IsInteger() {
		return errors.New(errors.ErrCodeValidation, "bet-coin amounts must be whole numbers")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return errors.New(errors.ErrCodeValidation, "amount has more than two decimal places")
	}
	if in.OpponentID == creatorID {
		return errors.New(errors.ErrCodeValidation, "cannot bet against yourself")
	}
	hasVerifier := in.VerifierID != nil && *in.VerifierID != ""
	if in.ThirdPartyVerification != hasVerifier {
		return errors.New(errors.ErrCodeValidation, "verifier_id is required when third-party verification is enabled")
	}
	if hasVerifier && (*in.VerifierID == creatorID || *in.VerifierID == in.OpponentID) {
		return errors.New(errors.ErrCodeValidation, "verifier cannot be a participant")
	}
	if in.ImageURL != nil && *in.ImageURL != "" && !security.ValidateImageURL(*in.ImageURL) {
		return errors.New(errors.ErrCodeValidation, "image_url must be a valid URL")
	}
	if in.EndDate != nil && !in.EndDate.After(time.Now()) {
		return errors.New(errors.ErrCodeValidation, "end_date must be in the future")
	}
	return nil
}

// CreateBet opens a pending bet between the creator and an opponent.
func (s *BetService) CreateBet(ctx context.Context, creatorID string, in CreateBetInput) (*models.Bet, error) {
	if err := in.check(creatorID); err != nil {
		return nil, err
	}

	ids := []string{creatorID, in.OpponentID}
	if in.ThirdPartyVerification {
		ids = append(ids, *in.VerifierID)
	}
	found, err := s.repos.Users.CountExisting(ctx, ids...)
	if err != nil {
		return nil, err
	}
	if found != int64(len(ids)) {
		return nil, errors.New(errors.ErrCodeNotFound, "participant not found")
	}

	var groupID *string
	if in.GroupID != nil && *in.GroupID != "" {
		if _, err := s.repos.Groups.GetGroup(ctx, *in.GroupID); err != nil {
			return nil, err
		}
		for _, id := range []string{creatorID, in.OpponentID} {
			member, err := s.repos.Groups.IsMember(ctx, *in.GroupID, id)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, errors.New(errors.ErrCodeValidation, "both participants must belong to the group")
			}
		}
		groupID = in.GroupID
	}

	bet := &models.Bet{
		Title:                  security.SanitizeText(in.Title, maxTitleLen),
		Description:            security.SanitizeOptional(in.Description, maxDescriptionLen),
		Amount:                 in.Amount,
		IsCoinDenominated:      in.IsCoinDenominated,
		Category:               security.SanitizeOptional(in.Category, 64),
		CreatorID:              creatorID,
		OpponentID:             in.OpponentID,
		GroupID:                groupID,
		Status:                 models.BetStatusPending,
		ThirdPartyVerification: in.ThirdPartyVerification,
		IsPublic:               in.IsPublic,
		EndDate:                in.EndDate,
		ImageURL:               in.ImageURL,
	}
	if in.ThirdPartyVerification {
		bet.VerifierID = in.VerifierID
	}
	if bet.Title == "" {
		return nil, errors.New(errors.ErrCodeValidation, "title is required")
	}

	if err := s.repos.Bets.CreateBet(ctx, bet); err != nil {
		return nil, err
	}

	metrics.BetsCreated.Inc()
	logger.Info("bet created", "bet_id", bet.ID, "creator_id", creatorID, "opponent_id", bet.OpponentID)

	s.deps.publish(ctx, events.New(events.TypeBetCreated, bet.ID, []string{creatorID, bet.OpponentID}, map[string]interface{}{
		"amount":              bet.Amount.String(),
		"is_coin_denominated": bet.IsCoinDenominated,
	}))
	s.deps.Notifier.Notify(ctx, bet.OpponentID, fmt.Sprintf("New bet challenge: %q for %s", bet.Title, stakeLabel(bet)))
	if bet.IsCoinDenominated {
		recordMetric(ctx, s.progress, creatorID, models.MetricMaxStake, bet.Amount.IntPart())
	}
	return bet, nil
}

// AcceptBet activates a pending bet and escrows both stakes.
func (s *BetService) AcceptBet(ctx context.Context, betID, actorID string) (*models.Bet, error) {
	var bet *models.Bet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bets := s.repos.Bets.WithTx(tx)
		coins := s.repos.Coins.WithTx(tx)

		var err error
		bet, err = bets.LockBet(ctx, betID)
		if err != nil {
			return err
		}
		if bet.OpponentID != actorID {
			return errors.New(errors.ErrCodeForbidden, "only the opponent can accept this bet")
		}
		if bet.Status != models.BetStatusPending {
			return errors.New(errors.ErrCodeBetNotActive, "bet is not pending")
		}

		for _, uid := range []string{bet.CreatorID, bet.OpponentID} {
			entry := repositories.LedgerEntry{
				Type:        models.TxTypeBetStake,
				Description: fmt.Sprintf("Stake for bet %q", bet.Title),
				BetID:       &bet.ID,
			}
			if err := coins.Debit(ctx, uid, bet.Amount, bet.IsCoinDenominated, entry); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		ok, err := bets.TransitionStatus(ctx, bet.ID, models.BetStatusPending, models.BetStatusActive, map[string]interface{}{
			"accepted_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrCodeBetNotActive, "bet is not pending")
		}
		bet.Status = models.BetStatusActive
		bet.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BetTransitions.WithLabelValues(models.BetStatusActive).Inc()
	logger.Info("bet accepted", "bet_id", bet.ID, "opponent_id", actorID)
	s.deps.publish(ctx, events.New(events.TypeBetAccepted, bet.ID, []string{bet.CreatorID, bet.OpponentID}, nil))
	s.deps.Notifier.Notify(ctx, bet.CreatorID, fmt.Sprintf("Your bet %q was accepted", bet.Title))
	return bet, nil
}

// CancelBet withdraws a bet that nobody has accepted yet.
func (s *BetService) CancelBet(ctx context.Context, betID, actorID string) (*models.Bet, error) {
	bet, err := s.repos.Bets.GetBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if !bet.IsParticipant(actorID) {
		return nil, errors.New(errors.ErrCodeForbidden, "only participants can cancel this bet")
	}
	if bet.Status != models.BetStatusPending {
		return nil, errors.New(errors.ErrCodeBetNotActive, "only pending bets can be cancelled")
	}

	ok, err := s.repos.Bets.TransitionStatus(ctx, bet.ID, models.BetStatusPending, models.BetStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeBetNotActive, "only pending bets can be cancelled")
	}
	bet.Status = models.BetStatusCancelled

	metrics.BetTransitions.WithLabelValues(models.BetStatusCancelled).Inc()
	s.deps.publish(ctx, events.New(events.TypeBetCancelled, bet.ID, []string{bet.CreatorID, bet.OpponentID}, map[string]interface{}{
		"cancelled_by": actorID,
	}))
	other := bet.OpponentID
	if actorID == other {
		other = bet.CreatorID
	}
	s.deps.Notifier.Notify(ctx, other, fmt.Sprintf("Bet %q was cancelled", bet.Title))
	return bet, nil
}

// ResolveBet completes an active bet, pays the winner from escrow and
// refreshes both participants' records, all in one transaction. A bet that
// is no longer active is rejected.
func (s *BetService) ResolveBet(ctx context.Context, betID, actorID, winnerID string) (*models.Bet, error) {
	var bet *models.Bet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bets := s.repos.Bets.WithTx(tx)
		users := s.repos.Users.WithTx(tx)
		coins := s.repos.Coins.WithTx(tx)

		var err error
		bet, err = bets.LockBet(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status != models.BetStatusActive {
			return errors.New(errors.ErrCodeBetNotActive, "bet is not active")
		}
		if !bet.CanResolve(actorID) {
			if bet.ThirdPartyVerification {
				return errors.New(errors.ErrCodeForbidden, "only the verifier can resolve this bet")
			}
			return errors.New(errors.ErrCodeForbidden, "only participants can resolve this bet")
		}
		if !bet.IsParticipant(winnerID) {
			return errors.New(errors.ErrCodeValidation, "winner must be the creator or the opponent")
		}

		now := time.Now().UTC()
		ok, err := bets.TransitionStatus(ctx, bet.ID, models.BetStatusActive, models.BetStatusCompleted, map[string]interface{}{
			"winner_id":   winnerID,
			"resolved_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrCodeBetNotActive, "bet is not active")
		}

		payout := repositories.LedgerEntry{
			Type:        models.TxTypeBetPayout,
			Description: fmt.Sprintf("Won bet %q", bet.Title),
			BetID:       &bet.ID,
		}
		if err := coins.Credit(ctx, winnerID, bet.Amount.Mul(decimal.NewFromInt(2)), bet.IsCoinDenominated, payout); err != nil {
			return err
		}

		for _, uid := range []string{bet.CreatorID, bet.OpponentID} {
			stats, err := bets.SettledStats(ctx, uid)
			if err != nil {
				return err
			}
			if err := users.SetBetStats(ctx, uid, stats); err != nil {
				return err
			}
		}

		bet.Status = models.BetStatusCompleted
		bet.WinnerID = &winnerID
		bet.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	loserID := bet.Loser(winnerID)
	metrics.BetTransitions.WithLabelValues(models.BetStatusCompleted).Inc()
	logger.Info("bet resolved", "bet_id", bet.ID, "winner_id", winnerID, "resolved_by", actorID)

	s.deps.publish(ctx, events.New(events.TypeBetResolved, bet.ID, []string{bet.CreatorID, bet.OpponentID}, map[string]interface{}{
		"winner_id":   winnerID,
		"resolved_by": actorID,
	}))
	s.deps.Notifier.Notify(ctx, winnerID, fmt.Sprintf("You won %q and collected %s", bet.Title, stakeLabel(bet)))
	s.deps.Notifier.Notify(ctx, loserID, fmt.Sprintf("You lost %q", bet.Title))

	s.recordResolution(ctx, bet, winnerID)
	return bet, nil
}

func (s *BetService) recordResolution(ctx context.Context, bet *models.Bet, winnerID string) {
	if stats, err := s.repos.Bets.SettledStats(ctx, winnerID); err == nil {
		recordMetric(ctx, s.progress, winnerID, models.MetricBetsWon, int64(stats.Wins))
	} else {
		logger.Warn("failed to load settled stats", "user_id", winnerID, "error", err)
	}
	if streak, err := s.repos.Bets.LongestWinStreak(ctx, winnerID); err == nil {
		recordMetric(ctx, s.progress, winnerID, models.MetricWinStreak, int64(streak))
	} else {
		logger.Warn("failed to load win streak", "user_id", winnerID, "error", err)
	}
	if bet.VerifierID != nil {
		if n, err := s.repos.Bets.CountVerified(ctx, *bet.VerifierID); err == nil {
			recordMetric(ctx, s.progress, *bet.VerifierID, models.MetricVerifications, n)
		} else {
			logger.Warn("failed to count verifications", "user_id", *bet.VerifierID, "error", err)
		}
	}
}

// GetBetDetails returns a bet with its comments and evidence. Private bets
// are visible only to participants and the verifier.
func (s *BetService) GetBetDetails(ctx context.Context, betID, viewerID string) (*models.BetDetails, error) {
	bet, err := s.visibleBet(ctx, betID, viewerID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repos.Bets.ListComments(ctx, betID)
	if err != nil {
		return nil, err
	}
	evidence, err := s.repos.Bets.ListEvidence(ctx, betID)
	if err != nil {
		return nil, err
	}
	return &models.BetDetails{Bet: *bet, Comments: comments, Evidence: evidence}, nil
}

func (s *BetService) ListUserBets(ctx context.Context, userID, status string) ([]models.Bet, error) {
	if status != "" && !models.IsValidBetStatus(status) {
		return nil, errors.New(errors.ErrCodeValidation, "unknown bet status")
	}
	return s.repos.Bets.ListUserBets(ctx, userID, status)
}

// GroupBets lists the bets placed in a group. Only members may see them.
func (s *BetService) GroupBets(ctx context.Context, groupID, viewerID string) ([]models.Bet, error) {
	if _, err := s.repos.Groups.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	member, err := s.repos.Groups.IsMember(ctx, groupID, viewerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errors.New(errors.ErrCodeForbidden, "you are not a member of this group")
	}
	return s.repos.Bets.ListGroupBets(ctx, groupID)
}

// FriendsFeed lists recent public bets created by the user's friends.
func (s *BetService) FriendsFeed(ctx context.Context, userID string) ([]models.Bet, error) {
	friendIDs, err := s.repos.Friends.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repos.Bets.ListPublicByCreators(ctx, friendIDs, s.feedSize)
}

// AddComment appends a comment. Participants and the verifier may always
// comment; anyone may comment on a public bet.
func (s *BetService) AddComment(ctx context.Context, betID, userID, text string) (*models.Comment, error) {
	_, err := s.visibleBet(ctx, betID, userID)
	if err != nil {
		return nil, err
	}

	clean := security.SanitizeText(text, maxCommentLen)
	if clean == "" {
		return nil, errors.New(errors.ErrCodeValidation, "comment text is required")
	}

	comment := &models.Comment{BetID: betID, UserID: userID, Text: clean}
	if err := s.repos.Bets.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

type EvidenceInput struct {
	Text     *string `json:"text"`
	ImageURL *string `json:"image_url"`
}

// AddEvidence attaches proof to a bet that has not been settled yet.
func (s *BetService) AddEvidence(ctx context.Context, betID, userID string, in EvidenceInput) (*models.Evidence, error) {
	bet, err := s.visibleBet(ctx, betID, userID)
	if err != nil {
		return nil, err
	}
	if !bet.CanPost(userID) {
		return nil, errors.New(errors.ErrCodeForbidden, "only participants and the verifier can add evidence")
	}
	if bet.Status != models.BetStatusPending && bet.Status != models.BetStatusActive {
		return nil, errors.New(errors.ErrCodeBetNotActive, "bet is already settled")
	}

	evidence := &models.Evidence{
		BetID:  betID,
		UserID: userID,
		Text:   security.SanitizeOptional(in.Text, maxCommentLen),
	}
	if in.ImageURL != nil {
		if u := strings.TrimSpace(*in.ImageURL); u != "" {
			if !security.ValidateImageURL(u) {
				return nil, errors.New(errors.ErrCodeValidation, "image_url must be a valid URL")
			}
			evidence.ImageURL = &u
		}
	}
	if !evidence.HasContent() {
		return nil, errors.New(errors.ErrCodeValidation, "evidence needs text or an image")
	}

	if err := s.repos.Bets.AddEvidence(ctx, evidence); err != nil {
		return nil, err
	}
	return evidence, nil
}

// BetTransactions returns the stake and payout rows of a bet.
func (s *BetService) BetTransactions(ctx context.Context, betID, viewerID string) ([]models.CoinTransaction, error) {
	bet, err := s.visibleBet(ctx, betID, viewerID)
	if err != nil {
		return nil, err
	}
	if !bet.CanPost(viewerID) {
		return nil, errors.New(errors.ErrCodeForbidden, "only participants and the verifier can view bet transactions")
	}
	return s.repos.Coins.GetBetTransactions(ctx, betID)
}

// visibleBet loads a bet the viewer may see. Private bets look missing to
// anyone outside them.
func (s *BetService) visibleBet(ctx context.Context, betID, viewerID string) (*models.Bet, error) {
	bet, err := s.repos.Bets.GetBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if !bet.IsPublic && !bet.CanPost(viewerID) {
		return nil, errors.New(errors.ErrCodeNotFound, "bet not found")
	}
	return bet, nil
}

func stakeLabel(b *models.Bet) string {
	if b.IsCoinDenominated {
		return fmt.Sprintf("%d bet-coins", b.Amount.IntPart())
	}
	return "$" + b.Amount.StringFixed(2)
}
