package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
)

// LocalTopics dispatches topic messages inside the process through the event
// bus. Messages are JSON-encoded so handlers see the same bytes as with Redis.
type LocalTopics struct {
	bus    *eventbus.EventBus
	logger logger.Logger
	wg     sync.WaitGroup
}

var _ repository.Topics = (*LocalTopics)(nil)

func NewLocalTopics(log logger.Logger) *LocalTopics {
	return &LocalTopics{
		bus: eventbus.NewEventBusWithConfig(log, eventbus.BusConfig{
			MaxRetries: 2,
			RetryDelay: 200 * time.Millisecond,
		}),
		logger: log.WithComponent("local_topics"),
	}
}

// Publish hands the message to subscribers on a background goroutine.
func (t *LocalTopics) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	event := eventbus.NewBasicEventWithSource(topic, data, "local_topics")
	ctx = context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.bus.Publish(ctx, event); err != nil {
			t.logger.WithFields(map[string]interface{}{"topic": topic, "error": err.Error()}).Error("Topic handler failed")
		}
	}()
	return nil
}

func (t *LocalTopics) Subscribe(_ context.Context, topic string, handler repository.TopicHandler) error {
	t.bus.Subscribe(topic, func(ctx context.Context, event eventbus.Event) error {
		data, _ := event.Data().([]byte)
		return handler(ctx, data)
	})
	return nil
}

// Drain waits until every published message has been handled.
func (t *LocalTopics) Drain() {
	t.wg.Wait()
}

func (t *LocalTopics) Close() error {
	t.wg.Wait()
	return nil
}

// LocalLocker is a single-process Locker.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

var _ repository.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	l.held[key] = expires
	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(expires) {
			delete(l.held, key)
		}
		return nil
	}
	return release, true, nil
}
