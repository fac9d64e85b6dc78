package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/usecase"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func TestPostFeed_RequiresAuthentication(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.app.Test(httptest.NewRequest(fiber.MethodGet, "/ws/v1/posts", nil), -1)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPostFeed_RequiresUpgrade(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(fiber.MethodGet, "/ws/v1/posts", nil)
	req.Header.Set(testUserHeader, "user-1")

	resp, err := f.app.Test(req, -1)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestPostFeed_StreamsPostEvents(t *testing.T) {
	f := newFixture(t, nil)
	addr := serve(t, f.app)

	header := http.Header{}
	header.Set(testUserHeader, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/v1/posts", header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.feed.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	post := &model.Post{ID: "p1", Title: "Live", Published: true}
	require.NoError(t, f.bus.Publish(context.Background(),
		eventbus.NewBasicEvent(eventbus.EventTypePostPublished, model.NewPostEvent(post, "user-1", testNow))))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg usecase.FeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, eventbus.EventTypePostPublished, msg.Type)
	assert.Equal(t, "p1", msg.PostID)
	assert.True(t, msg.Published)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return f.feed.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func heartbeatApp(t *testing.T, f *fixture, interval time.Duration) string {
	t.Helper()
	app := fiber.New()
	NewPostFeedHandler(f.feed, logger.NewNopLogger()).
		WithHeartbeatInterval(interval).
		RegisterRoutes(app, testProtect)
	return serve(t, app)
}

func TestPostFeed_IdleClientKeptAliveByHeartbeat(t *testing.T) {
	f := newFixture(t, nil)
	addr := heartbeatApp(t, f, 50*time.Millisecond)

	header := http.Header{}
	header.Set(testUserHeader, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/v1/posts", header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.feed.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Idle for several read deadlines before the event arrives.
	post := &model.Post{ID: "p1", Title: "Later", Published: true}
	time.AfterFunc(500*time.Millisecond, func() {
		_ = f.bus.Publish(context.Background(),
			eventbus.NewBasicEvent(eventbus.EventTypePostPublished, model.NewPostEvent(post, "user-1", testNow)))
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg usecase.FeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "p1", msg.PostID)
	assert.Equal(t, 1, f.feed.SubscriberCount())
}

func TestPostFeed_UnresponsiveClientDropped(t *testing.T) {
	f := newFixture(t, nil)
	addr := heartbeatApp(t, f, 50*time.Millisecond)

	header := http.Header{}
	header.Set(testUserHeader, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/v1/posts", header)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetPingHandler(func(string) error { return nil })

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.Eventually(t, func() bool { return f.feed.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return f.feed.SubscriberCount() == 0 }, 3*time.Second, 20*time.Millisecond)
}
