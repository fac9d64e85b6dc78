package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authModel "blog-cms/internal/auth/domain/model"
	"blog-cms/internal/cms/adapter/email"
	"blog-cms/internal/cms/adapter/imaging"
	"blog-cms/internal/cms/adapter/messaging"
	"blog-cms/internal/cms/adapter/persistence/memory"
	"blog-cms/internal/cms/adapter/storage"
	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/cms/usecase"
	"blog-cms/internal/shared/callable"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"

	imgpkg "github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const (
	testUserHeader  = "X-Test-User"
	testRolesHeader = "X-Test-Roles"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	app     *fiber.App
	stores  repository.Stores
	storage *storage.MemoryStorage
	bus     *eventbus.EventBus
	uc      Usecases
	feed    *usecase.PostFeed
	reg     *callable.Registry
}

// testProtect authenticates requests carrying the test user header.
func testProtect(c *fiber.Ctx) error {
	userID := c.Get(testUserHeader)
	if userID == "" {
		return callable.WriteError(c, logger.NewNopLogger(), apperrors.NewAuthenticationError("authentication required"))
	}
	ctx := utils.WithUserID(c.UserContext(), userID)
	if roles := c.Get(testRolesHeader); roles != "" {
		ctx = utils.WithUserRoles(ctx, strings.Split(roles, ","))
	}
	c.SetUserContext(ctx)
	return c.Next()
}

func testRequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, r := range roles {
			if utils.HasRole(c.UserContext(), r) {
				return c.Next()
			}
		}
		return callable.WriteError(c, logger.NewNopLogger(), apperrors.NewAuthorizationError("insufficient permissions"))
	}
}

func newFixture(t *testing.T, verifier repository.SchedulerTokenVerifier) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	f := &fixture{
		stores:  memory.NewStores(memory.NewDatabase(), memory.NewDatabase()),
		storage: storage.NewMemoryStorage("https://cdn.example.com"),
		bus:     eventbus.NewEventBusWithConfig(log, eventbus.BusConfig{}),
	}
	mailer := email.NewLogMailer(log)
	topics := messaging.NewLocalTopics(log)
	t.Cleanup(func() { _ = topics.Close() })

	deps := usecase.Dependencies{
		Stores:   f.stores,
		Storage:  f.storage,
		Resizer:  imaging.NewResizer([]int{300, 600}),
		Email:    mailer,
		Contacts: mailer,
		Topics:   topics,
		Locker:   messaging.NewLocalLocker(),
		Bus:      f.bus,
		Logger:   log,
		Settings: usecase.Settings{AdminEmail: "owner@example.com", MaxUploadBytes: 1 << 20},
		Clock:    func() time.Time { return testNow },
	}
	posts := usecase.NewPostUsecase(deps)
	f.uc = Usecases{
		Posts:        posts,
		Autopublish:  usecase.NewAutopublishUsecase(deps, posts),
		Boilerplates: usecase.NewBoilerplateUsecase(deps),
		Images:       usecase.NewImageUsecase(deps, posts),
		PublicUsers:  usecase.NewPublicUserUsecase(deps),
		Subscribers:  usecase.NewSubscriberUsecase(deps),
		Contact:      usecase.NewContactUsecase(deps),
		Commerce:     usecase.NewCommerceUsecase(deps),
		Maintenance:  usecase.NewMaintenanceUsecase(deps),
	}
	f.feed = usecase.NewPostFeed(f.bus, log)

	f.reg = callable.NewRegistry(log)
	RegisterCallables(f.reg, f.uc)

	f.app = fiber.New()
	f.app.Post("/callable/:"+callable.NameParam, testProtect, f.reg.Handler())
	NewCMSHTTPHandler(f.uc, verifier, log).RegisterRoutes(f.app, Middleware{
		Protect:        testProtect,
		RequireAdmin:   testRequireRole(authModel.RoleAdmin),
		RequireContent: testRequireRole(authModel.RoleAdmin, authModel.RoleEditor),
	})
	NewPostFeedHandler(f.feed, log).RegisterRoutes(f.app, testProtect)
	return f
}

type callResponse struct {
	Result json.RawMessage    `json:"result"`
	Error  *callable.ErrorBody `json:"error"`
}

// call invokes a callable as a user holding roles.
func (f *fixture) call(t *testing.T, name string, data interface{}, roles ...string) (int, callResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"data": data})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/callable/"+name, bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(testUserHeader, "user-1")
	if len(roles) > 0 {
		req.Header.Set(testRolesHeader, strings.Join(roles, ","))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out callResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func (f *fixture) seedPost(t *testing.T, p *model.Post) {
	t.Helper()
	if p.CreatedTimestamp.IsZero() {
		p.CreatedTimestamp = testNow.Add(-time.Hour)
		p.LastModifiedTimestamp = p.CreatedTimestamp
	}
	require.NoError(t, f.stores.AdminPosts.Set(context.Background(), p.ID, p))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imgpkg.New(w, h, color.NRGBA{B: 200, A: 255})))
	return buf.Bytes()
}
