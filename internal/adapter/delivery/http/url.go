package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type urlHandler struct {
	useCase  urlUseCase
	validate *validator.Validate
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate) *urlHandler {
	return &urlHandler{
		useCase:  useCase,
		validate: validate,
	}
}

func (h *urlHandler) shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	res, err := h.useCase.Shorten(r.Context(), callerFrom(r.Context()), req.URL, req.CustomCode)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toShortenResponse(res))
}

func (h *urlHandler) resolve(w http.ResponseWriter, r *http.Request) {
	url, err := h.useCase.Resolve(r.Context(), chi.URLParam(r, "shortCode"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toResolveResponse(url))
}

// redirect sends visitors on to the destination. Flagged links stop at a
// JSON interstitial that carries the destination and the flag reason.
func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	url, err := h.useCase.Resolve(r.Context(), chi.URLParam(r, "shortCode"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if url.Gated() {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, toResolveResponse(url))
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

func (h *urlHandler) listOwn(w http.ResponseWriter, r *http.Request) {
	urls, err := h.useCase.ListOwn(r.Context(), callerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]urlResponse, 0, len(urls))
	for i := range urls {
		resp = append(resp, toURLResponse(&urls[i], h.useCase.ShortURL(urls[i].ShortCode)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (h *urlHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.useCase.Stats(r.Context(), callerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := urlStatsResponse{
		TotalURLs:   stats.TotalURLs,
		TotalClicks: stats.TotalClicks,
		AvgClicks:   stats.AvgClicks,
		Top:         make([]urlResponse, 0, len(stats.Top)),
	}
	for i := range stats.Top {
		resp.Top = append(resp.Top, toURLResponse(&stats.Top[i], h.useCase.ShortURL(stats.Top[i].ShortCode)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (h *urlHandler) totals(w http.ResponseWriter, r *http.Request) {
	stats, err := h.useCase.Totals(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, serviceStatsResponse{
		TotalURLs:   stats.TotalURLs,
		TotalClicks: stats.TotalClicks,
	})
}

func (h *urlHandler) reassignCode(w http.ResponseWriter, r *http.Request) {
	id, ok := urlIDParam(w, r)
	if !ok {
		return
	}

	var req reassignRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	res, err := h.useCase.ReassignCode(r.Context(), callerFrom(r.Context()), id, req.CustomCode)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toShortenResponse(res))
}

func (h *urlHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlIDParam(w, r)
	if !ok {
		return
	}

	if err := h.useCase.Delete(r.Context(), callerFrom(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
