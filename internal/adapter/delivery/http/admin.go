package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type adminHandler struct {
	urlUseCase  urlUseCase
	userUseCase userUseCase
	seeder      seedUseCase
	validate    *validator.Validate
}

func newAdminHandler(urlUseCase urlUseCase, userUseCase userUseCase, seeder seedUseCase, validate *validator.Validate) *adminHandler {
	return &adminHandler{
		urlUseCase:  urlUseCase,
		userUseCase: userUseCase,
		seeder:      seeder,
		validate:    validate,
	}
}

// parseListQuery reads the paging, sorting and search parameters. Missing
// paging values fall back to the first page of ten rows.
func (h *adminHandler) parseListQuery(w http.ResponseWriter, r *http.Request) (listQuery, bool) {
	values := r.URL.Query()

	q := listQuery{
		Page:      defaultPage,
		Limit:     defaultLimit,
		SortBy:    values.Get("sort_by"),
		SortOrder: values.Get("sort_order"),
		Search:    values.Get("search"),
		Filter:    values.Get("filter"),
	}

	var errs []validationError
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &q.Page},
		{"limit", &q.Limit},
	} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}

		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, validationError{Field: p.name, Message: "must be a positive integer"})
			continue
		}
		*p.dst = n
	}

	if len(errs) > 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Status:  statusError,
			Message: "validation error",
			Errors:  errs,
		})
		return q, false
	}

	if err := h.validate.Struct(q); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return q, false
	}

	return q, true
}

func (h *adminHandler) listURLs(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseListQuery(w, r)
	if !ok {
		return
	}

	page, err := h.urlUseCase.ListAll(r.Context(), callerFrom(r.Context()), entity.URLQuery{
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: entity.SortOrder(q.SortOrder),
		Search:    q.Search,
		Filter:    entity.URLFilter(q.Filter),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := urlPageResponse{
		URLs:  make([]adminURLResponse, 0, len(page.URLs)),
		Total: page.Total,
		Page:  q.Page,
		Limit: q.Limit,
	}
	for i := range page.URLs {
		url := &page.URLs[i]
		resp.URLs = append(resp.URLs, adminURLResponse{
			urlResponse: toURLResponse(&url.URL, h.urlUseCase.ShortURL(url.ShortCode)),
			OwnerID:     url.OwnerID,
			OwnerName:   url.OwnerName,
			OwnerEmail:  url.OwnerEmail,
		})
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (h *adminHandler) moderate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlIDParam(w, r)
	if !ok {
		return
	}

	var req moderateRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	err := h.urlUseCase.Moderate(r.Context(), callerFrom(r.Context()), id, entity.ModerationAction(req.Action))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseListQuery(w, r)
	if !ok {
		return
	}

	page, err := h.userUseCase.List(r.Context(), callerFrom(r.Context()), entity.UserQuery{
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: entity.SortOrder(q.SortOrder),
		Search:    q.Search,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := userPageResponse{
		Users: make([]userResponse, 0, len(page.Users)),
		Total: page.Total,
		Page:  q.Page,
		Limit: q.Limit,
	}
	for i := range page.Users {
		resp.Users = append(resp.Users, toUserResponse(&page.Users[i]))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (h *adminHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	user, err := h.userUseCase.UpdateRole(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"), entity.Role(req.Role))
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toUserResponse(user))
}

func (h *adminHandler) seed(w http.ResponseWriter, r *http.Request) {
	res, err := h.seeder.Seed(r.Context(), callerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, seedResponse{
		Users: res.Users,
		URLs:  res.URLs,
	})
}
