package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

type urlUseCase interface {
	Shorten(ctx context.Context, caller entity.Caller, rawURL, customCode string) (*entity.ShortenResult, error)
	Resolve(ctx context.Context, shortCode string) (*entity.URL, error)
	ReassignCode(ctx context.Context, caller entity.Caller, id int64, newCode string) (*entity.ShortenResult, error)
	Delete(ctx context.Context, caller entity.Caller, id int64) error
	Moderate(ctx context.Context, caller entity.Caller, id int64, action entity.ModerationAction) error
	ListOwn(ctx context.Context, caller entity.Caller) ([]entity.URL, error)
	Stats(ctx context.Context, caller entity.Caller) (*entity.URLStats, error)
	Totals(ctx context.Context) (*entity.ServiceStats, error)
	ListAll(ctx context.Context, caller entity.Caller, q entity.URLQuery) (*entity.URLPage, error)
	ShortURL(shortCode string) string
}

type userUseCase interface {
	Register(ctx context.Context, name, email, password string) (*entity.User, error)
	Authenticate(ctx context.Context, email, password string) (*entity.User, error)
	Me(ctx context.Context, caller entity.Caller) (*entity.User, error)
	List(ctx context.Context, caller entity.Caller, q entity.UserQuery) (*entity.UserPage, error)
	UpdateRole(ctx context.Context, caller entity.Caller, userID string, role entity.Role) (*entity.User, error)
}

type seedUseCase interface {
	Seed(ctx context.Context, caller entity.Caller) (*entity.SeedResult, error)
}

type tokenManager interface {
	Issue(user *entity.User) (string, time.Time, error)
	Parse(token string) (entity.Caller, error)
}

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// decodeAndValidate reads a JSON body into v and validates it. On failure it
// writes the 400 response itself and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return false
	}

	if err := validate.Struct(v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return false
	}

	return true
}

func urlIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
		return 0, false
	}

	return id, true
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{entity.ErrInvalidURL, http.StatusBadRequest},
	{entity.ErrInvalidShortCode, http.StatusBadRequest},
	{entity.ErrInvalidAction, http.StatusBadRequest},
	{entity.ErrInvalidRole, http.StatusBadRequest},
	{entity.ErrSelfRoleChange, http.StatusBadRequest},
	{entity.ErrInvalidCredentials, http.StatusUnauthorized},
	{entity.ErrUnauthorized, http.StatusUnauthorized},
	{entity.ErrForbidden, http.StatusForbidden},
	{entity.ErrURLNotFound, http.StatusNotFound},
	{entity.ErrUserNotFound, http.StatusNotFound},
	{entity.ErrShortCodeExists, http.StatusConflict},
	{entity.ErrEmailExists, http.StatusConflict},
	{entity.ErrURLRejected, http.StatusUnprocessableEntity},
}

// respondError maps a use case error to its status and message. Unknown errors
// become a generic 500 and are attached to the request log entry.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			render.Status(r, e.status)
			render.JSON(w, r, errorResponse{
				Status:  statusError,
				Message: e.err.Error(),
			})
			return
		}
	}

	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, serverErrorResponse)
}
