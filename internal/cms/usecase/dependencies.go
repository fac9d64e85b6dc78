package usecase

import (
	"context"
	"time"

	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"
)

// SystemActor is recorded as lastModifiedUserId for changes made without a user.
const SystemActor = "system"

// Settings are the tunables the usecases read from configuration.
type Settings struct {
	AdminEmail     string
	MaxUploadBytes int
	LockTTL        time.Duration
}

// Dependencies are the ports shared by every cms usecase.
type Dependencies struct {
	Stores   repository.Stores
	Storage  repository.ObjectStorage
	Resizer  repository.ImageResizer
	Email    repository.EmailSender
	Contacts repository.MarketingContacts
	Topics   repository.Topics
	Locker   repository.Locker
	Bus      eventbus.EventBusInterface
	Logger   logger.Logger
	Settings Settings
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	if d.Settings.MaxUploadBytes <= 0 {
		d.Settings.MaxUploadBytes = 20 << 20
	}
	if d.Settings.LockTTL <= 0 {
		d.Settings.LockTTL = 2 * time.Minute
	}
	return d
}

// now is the current time at the millisecond precision documents store.
func (d Dependencies) now() time.Time {
	return d.Clock().UTC().Truncate(time.Millisecond)
}

func actor(ctx context.Context) string {
	return utils.GetUserIDOrDefault(ctx, SystemActor)
}

func (d Dependencies) publish(ctx context.Context, eventType string, data interface{}, source string) {
	if d.Bus == nil {
		return
	}
	d.Bus.PublishAndForget(context.WithoutCancel(ctx), eventbus.NewBasicEventWithSource(eventType, data, source))
}
