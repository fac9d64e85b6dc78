package repository

import (
	"context"
	"time"

	"blog-cms/internal/cms/domain/model"
)

// ObjectStorage stores binary objects (post images) under slash-separated paths.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// DeletePrefix removes every object under prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	PublicURL(path string) string
}

// ImageVariant is one resized rendition of an image.
type ImageVariant struct {
	Width  int
	Height int
	Data   []byte
}

// ImageResizer renders the configured width variants of an image.
type ImageResizer interface {
	Resize(data []byte) ([]ImageVariant, error)
	Widths() []int
}

// EmailMessage is a single transactional email.
type EmailMessage struct {
	ToEmail     string
	ToName      string
	Subject     string
	TextContent string
	HTMLContent string
	ReplyTo     string
}

// EmailSender delivers transactional email.
type EmailSender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// MarketingContacts manages the mailing-list contacts of the email provider.
type MarketingContacts interface {
	// UpsertContact adds or updates sub in the configured list and returns the
	// provider's reference for the operation.
	UpsertContact(ctx context.Context, sub *model.EmailSubscriber) (string, error)
	DeleteContact(ctx context.Context, contactID string) error
}

// Locker provides a cross-replica mutual exclusion lease.
type Locker interface {
	// Acquire returns a release func when the lock was taken, or ok=false when
	// another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Topic names
const (
	TopicSubscriberCreated  = "subscriber-created"
	TopicContactFormCreated = "contact-form-created"
)

// TopicHandler processes one message delivered on a topic.
type TopicHandler func(ctx context.Context, payload []byte) error

// Topics publishes and consumes JSON messages on named topics.
type Topics interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Subscribe(ctx context.Context, topic string, handler TopicHandler) error
	Close() error
}

// SchedulerIdentity is the verified caller of a scheduler endpoint.
type SchedulerIdentity struct {
	Email    string
	Subject  string
	Audience string
}

// SchedulerTokenVerifier checks the OIDC bearer token sent by the job scheduler.
type SchedulerTokenVerifier interface {
	Verify(ctx context.Context, token string) (*SchedulerIdentity, error)
}
