package cms

import (
	"context"
	"fmt"

	"blog-cms/internal/cms/adapter/email"
	cmshttp "blog-cms/internal/cms/adapter/http"
	"blog-cms/internal/cms/adapter/imaging"
	"blog-cms/internal/cms/adapter/messaging"
	"blog-cms/internal/cms/adapter/persistence/memory"
	"blog-cms/internal/cms/adapter/persistence/mongodb"
	"blog-cms/internal/cms/adapter/scheduler"
	"blog-cms/internal/cms/adapter/storage"
	"blog-cms/internal/cms/config"
	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/cms/usecase"
	"blog-cms/internal/shared/callable"
	"blog-cms/internal/shared/database"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// consumerGroup is the Redis Streams group every replica joins.
const consumerGroup = "blog-cms"

// CMSModule represents the complete blog cms module
type CMSModule struct {
	config      *config.Config
	adminDB     *mongo.Database
	stores      repository.Stores
	topics      repository.Topics
	redis       *redis.Client
	closers     []func() error
	usecases    cmshttp.Usecases
	autopublish *usecase.AutopublishUsecase
	feed        *usecase.PostFeed
	handler     *cmshttp.CMSHTTPHandler
	feedHandler *cmshttp.PostFeedHandler
	cancel      context.CancelFunc
	log         logger.Logger
}

// NewCMSModule builds every cms adapter and usecase from cfg. Mongo databases
// are opened through dbm when the mongodb store driver is selected.
func NewCMSModule(ctx context.Context, cfg *config.Config, dbm *database.Manager, bus eventbus.EventBusInterface, log logger.Logger) (*CMSModule, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	m := &CMSModule{config: cfg, log: log.WithComponent("cms")}

	if err := m.initStores(ctx, dbm); err != nil {
		return nil, err
	}

	objectStorage, err := m.initStorage(ctx)
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	mailer, contacts, err := m.initEmail()
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	var locker repository.Locker
	if cfg.Redis.Enabled() {
		m.redis = config.NewRedisClient(cfg.Redis)
		m.closers = append(m.closers, m.redis.Close)
		if err := m.redis.Ping(ctx).Err(); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		m.topics = messaging.NewRedisTopics(m.redis, consumerGroup, log)
		locker = messaging.NewRedisLocker(m.redis)
	} else {
		m.topics = messaging.NewLocalTopics(log)
		locker = messaging.NewLocalLocker()
	}

	deps := usecase.Dependencies{
		Stores:   m.stores,
		Storage:  objectStorage,
		Resizer:  imaging.NewResizer(cfg.Storage.ImageWidths),
		Email:    mailer,
		Contacts: contacts,
		Topics:   m.topics,
		Locker:   locker,
		Bus:      bus,
		Logger:   log,
		Settings: usecase.Settings{
			AdminEmail:     cfg.Email.AdminEmail,
			MaxUploadBytes: cfg.Storage.MaxUploadBytes,
			LockTTL:        cfg.Scheduler.AutopublishLockTTL,
		},
	}

	posts := usecase.NewPostUsecase(deps)
	m.autopublish = usecase.NewAutopublishUsecase(deps, posts)
	m.usecases = cmshttp.Usecases{
		Posts:        posts,
		Autopublish:  m.autopublish,
		Boilerplates: usecase.NewBoilerplateUsecase(deps),
		Images:       usecase.NewImageUsecase(deps, posts),
		PublicUsers:  usecase.NewPublicUserUsecase(deps),
		Subscribers:  usecase.NewSubscriberUsecase(deps),
		Contact:      usecase.NewContactUsecase(deps),
		Commerce:     usecase.NewCommerceUsecase(deps),
		Maintenance:  usecase.NewMaintenanceUsecase(deps),
	}

	m.feed = usecase.NewPostFeed(bus, log)
	verifier := scheduler.NewOIDCVerifier(cfg.Scheduler.Audience, cfg.Scheduler.ServiceAccount)
	m.handler = cmshttp.NewCMSHTTPHandler(m.usecases, verifier, log)
	m.feedHandler = cmshttp.NewPostFeedHandler(m.feed, log)
	return m, nil
}

func (m *CMSModule) initStores(ctx context.Context, dbm *database.Manager) error {
	store := m.config.Store
	if store.Driver == config.DriverMemory {
		m.stores = memory.NewStores(memory.NewDatabase(), memory.NewDatabase())
		m.log.Warn("Using in-memory document stores, data is lost on restart")
		return nil
	}

	admin, err := dbm.Database(ctx, store.AdminMongoURI, store.AdminDatabase)
	if err != nil {
		return fmt.Errorf("failed to open admin store: %w", err)
	}
	public, err := dbm.Database(ctx, store.PublicMongoURI, store.PublicDatabase)
	if err != nil {
		return fmt.Errorf("failed to open public store: %w", err)
	}
	m.adminDB = admin
	m.stores = mongodb.NewStores(admin, public)
	return nil
}

func (m *CMSModule) initStorage(ctx context.Context) (repository.ObjectStorage, error) {
	cfg := m.config.Storage
	if cfg.Driver != config.DriverGCS {
		return storage.NewMemoryStorage(cfg.PublicAssetBaseURL), nil
	}
	gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.PublicAssetBaseURL, m.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", cfg.GCSBucket, err)
	}
	m.closers = append(m.closers, gcs.Close)
	return gcs, nil
}

func (m *CMSModule) initEmail() (repository.EmailSender, repository.MarketingContacts, error) {
	cfg := m.config.Email
	if cfg.SendgridAPIKey == "" {
		m.log.Warn("SENDGRID_API_KEY not set, emails and contact updates are only logged")
		mailer := email.NewLogMailer(m.log)
		return mailer, mailer, nil
	}
	client, err := email.NewSendgridClient(email.SendgridConfig{
		APIKey:    cfg.SendgridAPIKey,
		FromEmail: cfg.SendgridFromEmail,
		FromName:  cfg.SendgridFromName,
		ListID:    cfg.SendgridSubscriberListID,
	}, m.log)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

// Start subscribes the topic handlers and starts the autopublish ticker. Both
// stop when Close is called.
func (m *CMSModule) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	if err := m.topics.Subscribe(ctx, repository.TopicSubscriberCreated, m.usecases.Subscribers.HandleSubscriberCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", repository.TopicSubscriberCreated, err)
	}
	if err := m.topics.Subscribe(ctx, repository.TopicContactFormCreated, m.usecases.Contact.HandleContactFormCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", repository.TopicContactFormCreated, err)
	}

	m.autopublish.Start(ctx, m.config.Scheduler.AutopublishInterval)
	return nil
}

// RegisterRoutes registers the raw HTTP routes of the cms
func (m *CMSModule) RegisterRoutes(router fiber.Router, mw cmshttp.Middleware) {
	m.handler.RegisterRoutes(router, mw)
	m.feedHandler.RegisterRoutes(router, mw.Protect)
}

// RegisterCallables registers the cms callables
func (m *CMSModule) RegisterCallables(reg *callable.Registry) {
	cmshttp.RegisterCallables(reg, m.usecases)
}

// AdminDatabase returns the admin Mongo database, or nil with the memory driver
func (m *CMSModule) AdminDatabase() *mongo.Database {
	return m.adminDB
}

// GetUsecases returns the cms usecases
func (m *CMSModule) GetUsecases() cmshttp.Usecases {
	return m.usecases
}

// Close stops background work and releases the adapters the module opened.
// Mongo clients belong to the database manager.
func (m *CMSModule) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	var firstErr error
	if m.topics != nil {
		if err := m.topics.Close(); err != nil {
			firstErr = err
		}
	}
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.closers = nil
	return firstErr
}
