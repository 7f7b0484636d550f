package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

type callerCtxKey struct{}

func withCaller(ctx context.Context, caller entity.Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

// callerFrom returns the authenticated caller of the request, or the anonymous caller.
func callerFrom(ctx context.Context) entity.Caller {
	caller, _ := ctx.Value(callerCtxKey{}).(entity.Caller)
	return caller
}

// authenticate resolves the bearer token into a caller. Requests without an
// Authorization header proceed anonymously; a header with a bad token is rejected.
func authenticate(tokens tokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respondError(w, r, entity.ErrUnauthorized)
				return
			}

			caller, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				respondError(w, r, entity.ErrUnauthorized)
				return
			}

			httplog.LogEntrySetField(r.Context(), "user_id", slog.StringValue(caller.ID))

			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}

type authHandler struct {
	useCase  userUseCase
	tokens   tokenManager
	validate *validator.Validate
}

func newAuthHandler(useCase userUseCase, tokens tokenManager, validate *validator.Validate) *authHandler {
	return &authHandler{
		useCase:  useCase,
		tokens:   tokens,
		validate: validate,
	}
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	user, err := h.useCase.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(user))
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	user, err := h.useCase.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserResponse(user),
	})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.useCase.Me(r.Context(), callerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toUserResponse(user))
}
