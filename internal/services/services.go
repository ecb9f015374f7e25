// Package services holds the business rules of betpals. Services own
// transaction boundaries; repositories only run queries.
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mroshb/betpals/internal/cache"
	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/metrics"
	"github.com/mroshb/betpals/internal/notify"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
	"gorm.io/gorm"
)

// Repositories bundles one repository per aggregate over the same database.
type Repositories struct {
	Users        *repositories.UserRepository
	Friends      *repositories.FriendRepository
	Bets         *repositories.BetRepository
	Coins        *repositories.CoinRepository
	Achievements *repositories.AchievementRepository
	Groups       *repositories.GroupRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:        repositories.NewUserRepository(db),
		Friends:      repositories.NewFriendRepository(db),
		Bets:         repositories.NewBetRepository(db),
		Coins:        repositories.NewCoinRepository(db),
		Achievements: repositories.NewAchievementRepository(db),
		Groups:       repositories.NewGroupRepository(db),
	}
}

// Deps are the optional side channels a service reports to. Zero values
// fall back to no-op implementations.
type Deps struct {
	Events   events.Publisher
	Notifier notify.Notifier
	Cache    cache.Cache
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.NopNotifier{}
	}
	if d.Cache == nil {
		d.Cache = cache.NopCache{}
	}
	return d
}

// publish sends e after the triggering transaction committed. Failures are
// logged and never surface to the caller.
func (d Deps) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := d.Events.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.WithLabelValues(e.Type).Inc()
		logger.Warn("failed to publish event", "type", e.Type, "aggregate_id", e.AggregateID, "error", err)
	}
}

// ProgressRecorder feeds achievement metrics.
type ProgressRecorder interface {
	RecordMetric(ctx context.Context, userID, metric string, value int64) error
}

type nopRecorder struct{}

func (nopRecorder) RecordMetric(context.Context, string, string, int64) error { return nil }

func recordMetric(ctx context.Context, rec ProgressRecorder, userID, metric string, value int64) {
	if err := rec.RecordMetric(ctx, userID, metric, value); err != nil {
		logger.Error("failed to record achievement metric", "user_id", userID, "metric", metric, "error", err)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks the validate tags of an input struct.
func validateInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.New(errors.ErrCodeValidation, fieldMessage(fe))
	}
	return errors.Wrap(err, errors.ErrCodeValidation, "invalid input")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
