package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"blog-cms/internal/cms/adapter/imaging"
	"blog-cms/internal/cms/adapter/persistence/memory"
	"blog-cms/internal/cms/adapter/storage"
	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"

	imgpkg "github.com/disintegration/imaging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID = "admin-1"

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// mockMailer is a testify mock for EmailSender and MarketingContacts.
type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg *repository.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMailer) UpsertContact(ctx context.Context, sub *model.EmailSubscriber) (string, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Error(1)
}

func (m *mockMailer) DeleteContact(ctx context.Context, contactID string) error {
	return m.Called(ctx, contactID).Error(0)
}

// recordingTopics keeps published messages in memory.
type recordingTopics struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newRecordingTopics() *recordingTopics {
	return &recordingTopics{published: map[string][][]byte{}}
}

func (r *recordingTopics) Publish(_ context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[topic] = append(r.published[topic], data)
	return nil
}

func (r *recordingTopics) Subscribe(context.Context, string, repository.TopicHandler) error { return nil }
func (r *recordingTopics) Close() error                                                   { return nil }

func (r *recordingTopics) messages(topic string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.published[topic]...)
}

// recordingBus records event types synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Subscribe(string, eventbus.Handler) {}
func (b *recordingBus) Publish(_ context.Context, e eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}
func (b *recordingBus) PublishAndForget(ctx context.Context, e eventbus.Event) { _ = b.Publish(ctx, e) }
func (b *recordingBus) GetSubscriberCount(string) int                          { return 0 }

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type()
	}
	return out
}

// failingStore wraps a store and fails the configured operations.
type failingStore[T any] struct {
	repository.Store[T]
	failSet    error
	failUpdate error
}

func (s *failingStore[T]) Set(ctx context.Context, id string, doc *T) error {
	if s.failSet != nil {
		return s.failSet
	}
	return s.Store.Set(ctx, id, doc)
}

func (s *failingStore[T]) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if s.failUpdate != nil {
		return s.failUpdate
	}
	return s.Store.Update(ctx, id, fields)
}

var errStoreDown = errors.New("store unavailable")

type fixture struct {
	admin   *memory.Database
	public  *memory.Database
	stores  repository.Stores
	storage *storage.MemoryStorage
	mailer  *mockMailer
	topics  *recordingTopics
	bus     *recordingBus
	now     time.Time
	deps    Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		admin:   memory.NewDatabase(),
		public:  memory.NewDatabase(),
		storage: storage.NewMemoryStorage("https://cdn.example.com"),
		mailer:  &mockMailer{},
		topics:  newRecordingTopics(),
		bus:     &recordingBus{},
		now:     testNow,
	}
	f.stores = memory.NewStores(f.admin, f.public)
	f.deps = Dependencies{
		Stores:   f.stores,
		Storage:  f.storage,
		Resizer:  imaging.NewResizer([]int{300, 600, 900}),
		Email:    f.mailer,
		Contacts: f.mailer,
		Topics:   f.topics,
		Bus:      f.bus,
		Logger:   logger.NewNopLogger(),
		Settings: Settings{AdminEmail: "owner@example.com", MaxUploadBytes: 1 << 20},
		Clock:    func() time.Time { return f.now },
	}
	return f
}

func userCtx() context.Context {
	return utils.WithUserID(context.Background(), testUserID)
}

func (f *fixture) seedPost(t *testing.T, p *model.Post) *model.Post {
	t.Helper()
	if p.CreatedTimestamp.IsZero() {
		p.CreatedTimestamp = testNow.Add(-time.Hour)
	}
	if p.LastModifiedTimestamp.IsZero() {
		p.LastModifiedTimestamp = p.CreatedTimestamp
	}
	require.NoError(t, f.stores.AdminPosts.Set(context.Background(), p.ID, p))
	return p
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func boolPtr(b bool) *bool {
	return &b
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imgpkg.New(w, h, color.NRGBA{G: 128, A: 255})))
	return buf.Bytes()
}
