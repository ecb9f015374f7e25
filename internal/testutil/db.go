// Package testutil provides in-memory databases and fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/mroshb/betpals/internal/database"
	"github.com/mroshb/betpals/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database migrated with the
// production schema. A single connection keeps the memory database alive.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(gormlogger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// UserOption tweaks a fixture user before it is inserted.
type UserOption func(u *models.User)

func WithBetCoins(n int64) UserOption {
	return func(u *models.User) { u.BetCoins = n }
}

func WithBalance(amount int64) UserOption {
	return func(u *models.User) { u.Balance = decimal.NewFromInt(amount) }
}

func WithUsername(name string) UserOption {
	return func(u *models.User) { u.Username = name }
}

// CreateUser inserts a user with fake profile data.
func CreateUser(t *testing.T, db *gorm.DB, opts ...UserOption) *models.User {
	t.Helper()

	fullName := gofakeit.Name()
	user := &models.User{
		ID:       uuid.NewString(),
		Username: strings.ToLower(gofakeit.Username()+gofakeit.DigitN(4)),
		Email:    gofakeit.Email(),
		FullName: &fullName,
	}
	if len(user.Username) > 32 {
		user.Username = user.Username[:32]
	}
	for _, opt := range opts {
		opt(user)
	}

	require.NoError(t, db.Create(user).Error)
	return user
}

// ReloadUser reads the current row for id.
func ReloadUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return &user
}
