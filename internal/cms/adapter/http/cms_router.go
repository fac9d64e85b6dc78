package http

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/cms/usecase"
	"blog-cms/internal/shared/callable"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

const (
	imageFormField  = "image"
	importFormField = "file"
)

// Middleware are the handlers the cms routes borrow from the auth module.
type Middleware struct {
	// Protect rejects requests without a valid admin token.
	Protect fiber.Handler
	// RequireAdmin and RequireContent check roles after Protect.
	RequireAdmin   fiber.Handler
	RequireContent fiber.Handler
	// PublicRateLimit guards the unauthenticated form endpoints.
	PublicRateLimit fiber.Handler
}

// CMSHTTPHandler serves the raw HTTP endpoints of the cms that do not fit the
// callable protocol: multipart uploads, file downloads, public forms and the
// scheduler hook.
type CMSHTTPHandler struct {
	uc       Usecases
	verifier repository.SchedulerTokenVerifier
	log      logger.Logger
}

// NewCMSHTTPHandler creates the handler. A nil verifier rejects every scheduler call.
func NewCMSHTTPHandler(uc Usecases, verifier repository.SchedulerTokenVerifier, log logger.Logger) *CMSHTTPHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CMSHTTPHandler{uc: uc, verifier: verifier, log: log.WithComponent("cms_http")}
}

// RegisterRoutes mounts /api and /scheduler on router.
func (h *CMSHTTPHandler) RegisterRoutes(router fiber.Router, mw Middleware) {
	api := router.Group("/api")

	public := api.Group("/public", passThrough(mw.PublicRateLimit))
	public.Post("/contact", h.SubmitContactForm)
	public.Post("/subscribe", h.Subscribe)

	api.Post("/posts/:postId/images", chain(mw.Protect, mw.RequireContent, h.UploadPostImage)...)

	api.Get("/exports/subscribers", chain(mw.Protect, mw.RequireAdmin, h.ExportSubscribers)...)
	api.Get("/exports/public-users", chain(mw.Protect, mw.RequireAdmin, h.ExportPublicUsers)...)
	api.Get("/exports/orders", chain(mw.Protect, mw.RequireAdmin, h.ExportOrders)...)
	api.Post("/imports/subscribers", chain(mw.Protect, mw.RequireAdmin, h.ImportSubscribers)...)

	router.Post("/scheduler/autopublish", h.Autopublish)
}

// chain returns the non-nil handlers in order.
func chain(handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func passThrough(h fiber.Handler) fiber.Handler {
	if h == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return h
}

func (h *CMSHTTPHandler) fail(c *fiber.Ctx, err error) error {
	return callable.WriteError(c, h.log, err)
}

// UploadPostImage stores a multipart image and its resized variants
func (h *CMSHTTPHandler) UploadPostImage(c *fiber.Ctx) error {
	file, err := c.FormFile(imageFormField)
	if err != nil {
		return h.fail(c, apperrors.NewValidationError("multipart field image is required").WithCause(err))
	}
	data, err := readFormFile(file)
	if err != nil {
		return h.fail(c, err)
	}

	hero, _ := strconv.ParseBool(c.FormValue("heroImage", c.Query("heroImage")))
	props, err := h.uc.Images.UploadPostImage(c.UserContext(), usecase.UploadImageRequest{
		PostID:      c.Params("postId"),
		FileName:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		HeroImage:   hero,
		Data:        data,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(props)
}

// ImportSubscribers upserts subscribers from a multipart csv or xlsx file
func (h *CMSHTTPHandler) ImportSubscribers(c *fiber.Ctx) error {
	file, err := c.FormFile(importFormField)
	if err != nil {
		return h.fail(c, apperrors.NewValidationError("multipart field file is required").WithCause(err))
	}
	data, err := readFormFile(file)
	if err != nil {
		return h.fail(c, err)
	}

	result, err := h.uc.Subscribers.ImportSubscribers(c.UserContext(), usecase.ImportRequest{
		FileName: file.Filename,
		Data:     data,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *CMSHTTPHandler) ExportSubscribers(c *fiber.Ctx) error {
	file, err := h.uc.Subscribers.ExportSubscribers(c.UserContext(), exportRequest(c))
	return h.sendExport(c, file, err)
}

func (h *CMSHTTPHandler) ExportPublicUsers(c *fiber.Ctx) error {
	file, err := h.uc.PublicUsers.ExportPublicUsers(c.UserContext(), exportRequest(c))
	return h.sendExport(c, file, err)
}

func (h *CMSHTTPHandler) ExportOrders(c *fiber.Ctx) error {
	file, err := h.uc.Commerce.ExportOrders(c.UserContext(), exportRequest(c))
	return h.sendExport(c, file, err)
}

func exportRequest(c *fiber.Ctx) usecase.ExportRequest {
	return usecase.ExportRequest{Format: c.Query("format"), Filter: c.Query("filter")}
}

func (h *CMSHTTPHandler) sendExport(c *fiber.Ctx, file *usecase.ExportFile, err error) error {
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.FileName+`"`)
	c.Set("X-Record-Count", strconv.Itoa(file.Count))
	return c.Send(file.Data)
}

// SubmitContactForm accepts a contact form from the public site
func (h *CMSHTTPHandler) SubmitContactForm(c *fiber.Ctx) error {
	var req usecase.SubmitContactFormRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	form, err := h.uc.Contact.SubmitContactForm(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": form.ID})
}

// Subscribe adds an email subscriber from the public site
func (h *CMSHTTPHandler) Subscribe(c *fiber.Ctx) error {
	var req usecase.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	sub, err := h.uc.Subscribers.Subscribe(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": sub.ID})
}

// Autopublish runs the autopublish sweep for the job scheduler. The caller
// must present an OIDC token accepted by the verifier.
func (h *CMSHTTPHandler) Autopublish(c *fiber.Ctx) error {
	token := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	if token == "" || h.verifier == nil {
		return h.fail(c, apperrors.NewAuthenticationError("missing scheduler token"))
	}
	identity, err := h.verifier.Verify(c.UserContext(), token)
	if err != nil {
		h.log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Rejected scheduler call")
		return h.fail(c, apperrors.NewAuthenticationError("invalid scheduler token"))
	}

	result, ran, err := h.uc.Autopublish.RunExclusive(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	h.log.WithFields(map[string]interface{}{"caller": identity.Email, "ran": ran}).Info("Scheduler autopublish call")
	return c.JSON(autopublishResult{Ran: ran, SweepResult: result})
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable upload").WithCause(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable upload").WithCause(err)
	}
	return data, nil
}
