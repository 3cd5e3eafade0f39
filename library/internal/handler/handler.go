package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/pkg/auth"
	md "github.com/Astemirdum/school-library/pkg/middleware"
	"github.com/Astemirdum/school-library/pkg/validate"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

type Handler struct {
	librarySvc LibraryService
	authCfg    auth.Config
	log        *zap.Logger
}

func New(librarySvc LibraryService, authCfg auth.Config, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySvc,
		authCfg:    authCfg,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.HTTPErrorHandler = h.errorHandler
	e.Validator = validate.NewCustomValidator()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/auth/signin", h.SignIn)
	api.GET("/catalog/books", h.Catalog)
	api.POST("/reservations", h.CreateReservation)

	admin := api.Group("", md.JwtAuthentication(h.authCfg))

	admin.GET("/auth/me", h.Me)
	admin.GET("/books", h.ListBooks)
	admin.GET("/books/search", h.SearchBooks)
	admin.GET("/books/isbn/:isbn", h.GetBookByISBN)
	admin.GET("/books/:id", h.GetBook)
	admin.POST("/books", h.CreateBook)
	admin.PUT("/books/:id", h.UpdateBook)
	admin.DELETE("/books/:id", h.DeleteBook)

	admin.GET("/students", h.ListStudents)
	admin.GET("/students/search", h.SearchStudents)
	admin.GET("/students/enrollment/:enrollment", h.GetStudentByEnrollment)
	admin.POST("/students", h.CreateStudent)
	admin.PUT("/students/:id", h.UpdateStudent)
	admin.DELETE("/students/:id", h.DeleteStudent)
	admin.GET("/classes", h.ListClasses)

	admin.GET("/loans", h.ListLoans)
	admin.POST("/loans", h.CreateLoan)
	admin.POST("/loans/:id/return", h.ReturnLoan)
	admin.DELETE("/loans/:id", h.CancelLoan)

	admin.GET("/reservations", h.ListReservations)
	admin.POST("/reservations/:id/approve", h.ApproveReservation)
	admin.POST("/reservations/:id/reject", h.RejectReservation)

	admin.GET("/dashboard", h.Dashboard)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// errorHandler renders errors raised outside the handlers (routing,
// binding, auth, rate limiting) in the response envelope.
func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := http.StatusInternalServerError, internalErrorMessage
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		h.log.Error("unhandled", zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, model.Fail(msg))
	}
	if err != nil {
		h.log.Error("errorHandler", zap.Error(err))
	}
}

// fail maps a service error onto a status code. Internal details stay in
// the log.
func (h *Handler) fail(c echo.Context, err error) error {
	var code int
	switch errs.KindOf(err) {
	case errs.KindInvalid:
		code = http.StatusBadRequest
	case errs.KindNotFound:
		code = http.StatusNotFound
	case errs.KindConflict:
		code = http.StatusConflict
	case errs.KindUnauthorized:
		code = http.StatusUnauthorized
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, model.Fail(internalErrorMessage))
	}
	return c.JSON(code, model.Fail(err.Error()))
}

func (h *Handler) invalid(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(http.StatusBadRequest, model.Fail(fmt.Sprint(he.Message)))
	}
	return c.JSON(http.StatusBadRequest, model.Fail(err.Error()))
}

func (h *Handler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.New("id is invalid")
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.Errorf("%s is invalid", name)
	}
	return n, nil
}

func paging(c echo.Context, sizeParam string) (page, size int, err error) {
	if page, err = queryInt(c, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(c, sizeParam); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}
