// Package callable serves named admin operations over POST /callable/<name>.
// Requests carry {"data": ...}; responses are {"result": ...} or
// {"error": {"status", "message", "details"}}.
package callable

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
)

// NameParam is the route parameter holding the callable name
const NameParam = "name"

const internalMessage = "internal error"

// Handler runs one callable. data is the raw "data" member of the request and
// may be empty.
type Handler func(ctx context.Context, data json.RawMessage) (interface{}, error)

// Option configures a registered callable
type Option func(*entry)

type entry struct {
	handler Handler
	roles   []string
}

// RequireRole restricts a callable to callers holding any of roles
func RequireRole(roles ...string) Option {
	return func(e *entry) {
		e.roles = append(e.roles, roles...)
	}
}

// Registry maps callable names to handlers
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	log     logger.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Registry{
		entries: make(map[string]entry),
		log:     log.WithComponent("callable"),
	}
}

// Register adds a callable. Registering a name twice panics.
func (r *Registry) Register(name string, h Handler, opts ...Option) {
	e := entry{handler: h}
	for _, opt := range opts {
		opt(&e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		panic("callable: duplicate registration of " + name)
	}
	r.entries[name] = e
}

// Names lists the registered callables in order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named callable with the caller identity already in ctx
func (r *Registry) Invoke(ctx context.Context, name string, data json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("callable " + name)
	}

	if len(e.roles) > 0 && !hasAnyRole(ctx, e.roles) {
		return nil, apperrors.NewAuthorizationError("caller lacks the role required by " + name).
			WithDetail("requiredRoles", e.roles)
	}

	return e.handler(utils.WithOperation(ctx, name), data)
}

func hasAnyRole(ctx context.Context, roles []string) bool {
	for _, role := range roles {
		if utils.HasRole(ctx, role) {
			return true
		}
	}
	return false
}

type request struct {
	Data json.RawMessage `json:"data"`
}

// Handler serves POST /callable/:name
func (r *Registry) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params(NameParam)

		var req request
		if body := c.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return WriteError(c, r.log, apperrors.NewValidationError("request body must be a JSON object with a data member"))
			}
		}

		result, err := r.Invoke(c.UserContext(), name, req.Data)
		if err != nil {
			return WriteError(c, r.log.WithFields(map[string]interface{}{"callable": name}), err)
		}
		return c.JSON(fiber.Map{"result": result})
	}
}

// ErrorBody is the error member of a callable response
type ErrorBody struct {
	Status  apperrors.CallableStatus `json:"status"`
	Message string                   `json:"message"`
	Details map[string]interface{}   `json:"details,omitempty"`
}

// WriteError renders err in the callable error shape. INTERNAL errors hide their
// message from the client and are logged with the cause.
func WriteError(c *fiber.Ctx, log logger.Logger, err error) error {
	status := apperrors.StatusOf(err)
	body := ErrorBody{Status: status, Message: err.Error()}

	if appErr, ok := apperrors.AsAppError(err); ok {
		body.Message = appErr.Message
		if len(appErr.Details) > 0 {
			body.Details = appErr.Details
		}
	}

	if status == apperrors.StatusInternal {
		log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"path":  c.Path(),
			"error": err.Error(),
		}).Error("Request failed")
		body = ErrorBody{Status: status, Message: internalMessage}
	}

	return c.Status(status.HTTPCode()).JSON(fiber.Map{"error": body})
}

// Typed adapts a function taking a decoded request struct. A missing data
// member decodes as the zero value.
func Typed[Req any, Res any](fn func(ctx context.Context, req Req) (Res, error)) Handler {
	return func(ctx context.Context, data json.RawMessage) (interface{}, error) {
		var req Req
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}

// NoInput adapts a function that ignores the request data
func NoInput[Res any](fn func(ctx context.Context) (Res, error)) Handler {
	return func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return fn(ctx)
	}
}

// NoResult adapts a function that only reports success
func NoResult[Req any](fn func(ctx context.Context, req Req) error) Handler {
	return func(ctx context.Context, data json.RawMessage) (interface{}, error) {
		var req Req
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		if err := fn(ctx, req); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewValidationError("invalid request data").WithCause(err)
	}
	return nil
}
