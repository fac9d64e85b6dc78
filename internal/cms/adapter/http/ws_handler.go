package http

import (
	"context"
	"time"

	"blog-cms/internal/cms/usecase"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	feedBufferSize         = 32
	feedHeartbeatInterval  = 30 * time.Second
	feedReadDeadlineFactor = 2
	feedWriteTimeout       = 10 * time.Second
	localsFeedUserID       = "feed_user_id"
)

// PostFeedHandler streams post events to admin clients over a websocket.
type PostFeedHandler struct {
	feed              usecase.PostFeedInterface
	log               logger.Logger
	heartbeatInterval time.Duration
}

// NewPostFeedHandler creates a new PostFeedHandler.
func NewPostFeedHandler(feed usecase.PostFeedInterface, log logger.Logger) *PostFeedHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &PostFeedHandler{
		feed:              feed,
		log:               log.WithComponent("post_feed_ws"),
		heartbeatInterval: feedHeartbeatInterval,
	}
}

// WithHeartbeatInterval sets how often the server pings idle clients. A client
// that answers no ping within two intervals is disconnected.
func (h *PostFeedHandler) WithHeartbeatInterval(interval time.Duration) *PostFeedHandler {
	if interval > 0 {
		h.heartbeatInterval = interval
	}
	return h
}

func (h *PostFeedHandler) readDeadline() time.Duration {
	return feedReadDeadlineFactor * h.heartbeatInterval
}

// RegisterRoutes registers GET /ws/v1/posts. protect runs before the upgrade so
// unauthenticated clients get a plain 401.
func (h *PostFeedHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	ws := router.Group("/ws/v1")
	ws.Get("/posts", chain(protect, h.upgradeGuard, websocket.New(h.handleConnection))...)
}

func (h *PostFeedHandler) upgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(localsFeedUserID, utils.GetUserIDOrDefault(c.UserContext(), ""))
	return c.Next()
}

func (h *PostFeedHandler) handleConnection(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriberID := uuid.NewString()
	log := h.log.WithFields(map[string]interface{}{
		"subscriberId": subscriberID,
		"userId":       conn.Locals(localsFeedUserID),
	})
	log.Info("Post feed connection established")

	events := make(chan usecase.FeedMessage, feedBufferSize)
	h.feed.Subscribe(subscriberID, events)
	defer func() {
		h.feed.Unsubscribe(subscriberID)
		log.Info("Post feed connection closed")
	}()

	_ = conn.SetReadDeadline(time.Now().Add(h.readDeadline()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readDeadline()))
	})

	go h.forward(ctx, cancel, conn, events, log)

	// Clients only answer pings and send close frames; reading detects disconnects.
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Post feed read failed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.readDeadline()))
	}
}

func (h *PostFeedHandler) forward(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, events <-chan usecase.FeedMessage, log logger.Logger) {
	defer cancel()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sendPing(conn); err != nil {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Post feed ping failed")
				return
			}
		case msg := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Post feed write failed")
				return
			}
		}
	}
}

func sendPing(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return conn.WriteMessage(websocket.PingMessage, nil)
}
