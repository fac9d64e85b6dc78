package usecase

import (
	"context"
	"sync"
	"time"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
)

// FeedMessage is what connected admin clients receive for every post event.
type FeedMessage struct {
	Type      string    `json:"type"`
	PostID    string    `json:"postId"`
	Title     string    `json:"title,omitempty"`
	Published bool      `json:"published"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PostFeedInterface fans post events out to realtime subscribers.
type PostFeedInterface interface {
	Subscribe(subscriberID string, ch chan<- FeedMessage)
	Unsubscribe(subscriberID string)
	SubscriberCount() int
}

// PostFeed forwards post.* bus events to subscriber channels. Sends never
// block: a subscriber whose channel is full misses the message.
type PostFeed struct {
	mu          sync.RWMutex
	subscribers map[string]chan<- FeedMessage
	log         logger.Logger
}

var _ PostFeedInterface = (*PostFeed)(nil)

// NewPostFeed creates a feed and subscribes it to the post events on bus.
func NewPostFeed(bus eventbus.EventBusInterface, log logger.Logger) *PostFeed {
	if log == nil {
		log = logger.NewNopLogger()
	}
	f := &PostFeed{
		subscribers: make(map[string]chan<- FeedMessage),
		log:         log.WithComponent("post_feed"),
	}
	if bus != nil {
		for _, eventType := range eventbus.PostEventTypes {
			bus.Subscribe(eventType, f.handle)
		}
	}
	return f
}

func (f *PostFeed) Subscribe(subscriberID string, ch chan<- FeedMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.subscribers[subscriberID]; exists {
		f.log.WithFields(map[string]interface{}{"subscriberId": subscriberID}).Warn("Subscriber already registered, replacing channel")
	}
	f.subscribers[subscriberID] = ch
}

// Unsubscribe stops delivery. The channel belongs to the caller and is not closed.
func (f *PostFeed) Unsubscribe(subscriberID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscribers, subscriberID)
}

func (f *PostFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

func (f *PostFeed) handle(_ context.Context, event eventbus.Event) error {
	msg := FeedMessage{Type: event.Type(), Timestamp: event.Timestamp()}
	var data model.PostEvent
	switch d := event.Data().(type) {
	case model.PostEvent:
		data = d
	case *model.PostEvent:
		data = *d
	default:
		f.log.WithFields(map[string]interface{}{"eventType": event.Type()}).Warn("Post event without post payload")
		return nil
	}
	msg.PostID, msg.Title, msg.Published, msg.UserID = data.PostID, data.Title, data.Published, data.UserID
	if !data.Timestamp.IsZero() {
		msg.Timestamp = data.Timestamp
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for id, ch := range f.subscribers {
		select {
		case ch <- msg:
		default:
			f.log.WithFields(map[string]interface{}{"subscriberId": id, "postId": msg.PostID}).Warn("Feed subscriber is full, message dropped")
		}
	}
	return nil
}
