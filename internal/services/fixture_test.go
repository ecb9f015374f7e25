package services

import (
	"context"
	"testing"

	"github.com/mroshb/betpals/internal/cache"
	"github.com/mroshb/betpals/internal/database"
	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/notify"
	"github.com/mroshb/betpals/internal/testutil"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	repos    Repositories
	events   *events.Recorder
	notices  *notify.Recorder
	cache    *cache.MemoryCache
	achieve  *AchievementService
	bets     *BetService
	friends  *FriendService
	groups   *GroupService
	profiles *ProfileService
	wallet   *WalletService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	repos := NewRepositories(db)
	f := &fixture{
		db:      db,
		repos:   repos,
		events:  &events.Recorder{},
		notices: &notify.Recorder{},
		cache:   cache.NewMemoryCache(),
	}
	deps := Deps{Events: f.events, Notifier: f.notices, Cache: f.cache}

	f.achieve = NewAchievementService(db, repos, deps)
	f.bets = NewBetService(db, repos, deps, f.achieve, 20)
	f.friends = NewFriendService(repos, deps, f.achieve)
	f.groups = NewGroupService(repos, deps, f.achieve, 8)
	f.profiles = NewProfileService(db, repos, deps, ProfileOptions{SignupBetCoins: 100, SearchLimit: 10, SearchMinQuery: 2})
	f.wallet = NewWalletService(repos)
	return f
}

func (f *fixture) seedAchievements(t *testing.T) {
	t.Helper()
	require.NoError(t, database.SeedAchievements(f.db))
}

func (f *fixture) achievement(t *testing.T, name string, thresholds, rewards []int64, metric string) *models.Achievement {
	t.Helper()
	a := &models.Achievement{
		Name:           name,
		Category:       "test",
		MaxTier:        len(thresholds),
		TierThresholds: datatypes.JSONSlice[int64](thresholds),
		TierRewards:    datatypes.JSONSlice[int64](rewards),
	}
	if metric != "" {
		a.Metric = &metric
	}
	require.NoError(t, f.repos.Achievements.UpsertAchievement(context.Background(), a))
	return a
}

func (f *fixture) coins(t *testing.T, userID string) int64 {
	t.Helper()
	return testutil.ReloadUser(t, f.db, userID).BetCoins
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equalf(t, code, errors.CodeOf(err), "unexpected error: %v", err)
}
