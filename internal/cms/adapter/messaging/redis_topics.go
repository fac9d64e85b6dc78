package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	streamPrefix   = "topics:"
	payloadField   = "payload"
	readBatch      = 10
	readBlock      = 2 * time.Second
	streamMaxLen   = 10000
	handlerTimeout = time.Minute
)

// RedisTopics delivers topic messages through Redis Streams. Each topic is a
// stream read by one consumer group, so every message is handled by exactly
// one replica and unacknowledged messages are redelivered to the same consumer
// on restart.
type RedisTopics struct {
	client   *redis.Client
	group    string
	consumer string
	logger   logger.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

var _ repository.Topics = (*RedisTopics)(nil)

// NewRedisTopics creates topics consumed by group.
func NewRedisTopics(client *redis.Client, group string, log logger.Logger) *RedisTopics {
	consumer, _ := os.Hostname()
	if consumer == "" {
		consumer = uuid.NewString()
	}
	return &RedisTopics{
		client:   client,
		group:    group,
		consumer: consumer,
		logger:   log.WithComponent("redis_topics"),
	}
}

func streamName(topic string) string {
	return streamPrefix + topic
}

// Publish appends payload, JSON-encoded, to the topic stream.
func (r *RedisTopics) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName(topic),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{payloadField: data},
	}).Result()
	if err != nil {
		r.logger.WithFields(map[string]interface{}{"topic": topic, "error": err.Error()}).Error("Failed to publish message")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	r.logger.WithFields(map[string]interface{}{"topic": topic, "message_id": id}).Debug("Message published")
	return nil
}

// Subscribe starts a consumer loop for topic that runs until ctx is done or
// Close is called.
func (r *RedisTopics) Subscribe(ctx context.Context, topic string, handler repository.TopicHandler) error {
	stream := streamName(topic)
	err := r.client.XGroupCreateMkStream(ctx, stream, r.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group for %s: %w", topic, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancels = append(r.cancels, cancel)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consume(loopCtx, topic, handler)
	}()
	r.logger.WithFields(map[string]interface{}{"topic": topic, "consumer": r.consumer}).Info("Subscribed to topic")
	return nil
}

func (r *RedisTopics) consume(ctx context.Context, topic string, handler repository.TopicHandler) {
	stream := streamName(topic)
	// One pass over this consumer's pending entries, then new ones.
	cursor := "0"
	for ctx.Err() == nil {
		res, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.group,
			Consumer: r.consumer,
			Streams:  []string{stream, cursor},
			Count:    readBatch,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.logger.WithFields(map[string]interface{}{"topic": topic, "error": err.Error()}).Warn("Failed to read topic")
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				r.handle(ctx, topic, msg, handler)
			}
		}
		cursor = ">"
	}
}

func (r *RedisTopics) handle(ctx context.Context, topic string, msg redis.XMessage, handler repository.TopicHandler) {
	fields := map[string]interface{}{"topic": topic, "message_id": msg.ID}
	raw, _ := msg.Values[payloadField].(string)

	hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	if err := handler(hctx, []byte(raw)); err != nil {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Error("Topic handler failed, message left pending")
		return
	}
	if err := r.client.XAck(ctx, streamName(topic), r.group, msg.ID).Err(); err != nil {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Warn("Failed to acknowledge message")
	}
}

// Close stops every consumer loop and waits for in-flight handlers.
func (r *RedisTopics) Close() error {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}
