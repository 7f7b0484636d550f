package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const statusError = "error"

// gatedMessage is shown to visitors of a flagged link instead of redirecting them.
const gatedMessage = "This link has been flagged by our safety system. Proceed only if you trust the destination."

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// shortenRequest represents the structure for a request to shorten a URL.
type shortenRequest struct {
	URL        string `json:"url" validate:"required,max=2048"`
	CustomCode string `json:"custom_code" validate:"omitempty,max=20"`
}

type reassignRequest struct {
	CustomCode string `json:"custom_code" validate:"required,max=20"`
}

type moderateRequest struct {
	Action string `json:"action" validate:"required"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

// listQuery holds the raw paging and sorting parameters of the admin listings.
type listQuery struct {
	Page      int    `json:"page" validate:"gte=0"`
	Limit     int    `json:"limit" validate:"gte=0,lte=100"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	Search    string `json:"search" validate:"max=200"`
	Filter    string `json:"filter" validate:"omitempty,oneof=all flagged security inappropriate other"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(user *entity.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// shortenResponse is returned after shortening or re-coding a URL.
type shortenResponse struct {
	ID          int64     `json:"id"`
	ShortURL    string    `json:"short_url"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	Flagged     bool      `json:"flagged"`
	FlagReason  *string   `json:"flag_reason"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toShortenResponse(res *entity.ShortenResult) shortenResponse {
	return shortenResponse{
		ID:          res.URL.ID,
		ShortURL:    res.ShortURL,
		ShortCode:   res.URL.ShortCode,
		OriginalURL: res.URL.OriginalURL,
		Flagged:     res.URL.Flagged,
		FlagReason:  res.URL.FlagReason,
		Message:     res.Message,
		CreatedAt:   res.URL.CreatedAt,
	}
}

// resolveResponse describes where a short code leads.
type resolveResponse struct {
	ShortCode   string  `json:"short_code"`
	OriginalURL string  `json:"original_url"`
	Flagged     bool    `json:"flagged"`
	FlagReason  *string `json:"flag_reason"`
	Message     string  `json:"message,omitempty"`
}

func toResolveResponse(url *entity.URL) resolveResponse {
	resp := resolveResponse{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		Flagged:     url.Flagged,
		FlagReason:  url.FlagReason,
	}
	if url.Gated() {
		resp.Message = gatedMessage
	}

	return resp
}

// urlResponse represents a stored URL as shown to its owner.
type urlResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	Clicks      int64     `json:"clicks"`
	Flagged     bool      `json:"flagged"`
	FlagReason  *string   `json:"flag_reason"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toURLResponse(url *entity.URL, shortURL string) urlResponse {
	return urlResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    shortURL,
		OriginalURL: url.OriginalURL,
		Clicks:      url.Clicks,
		Flagged:     url.Flagged,
		FlagReason:  url.FlagReason,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
	}
}

type urlStatsResponse struct {
	TotalURLs   int           `json:"total_urls"`
	TotalClicks int64         `json:"total_clicks"`
	AvgClicks   float64       `json:"avg_clicks"`
	Top         []urlResponse `json:"top"`
}

type serviceStatsResponse struct {
	TotalURLs   int64 `json:"total_urls"`
	TotalClicks int64 `json:"total_clicks"`
}

// adminURLResponse is a URL as shown in the admin listing, with its owner if any.
type adminURLResponse struct {
	urlResponse
	OwnerID    *string `json:"owner_id"`
	OwnerName  *string `json:"owner_name"`
	OwnerEmail *string `json:"owner_email"`
}

type urlPageResponse struct {
	URLs  []adminURLResponse `json:"urls"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type userPageResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type seedResponse struct {
	Users int `json:"users"`
	URLs  int `json:"urls"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	tooManyRequestsResponse = errorResponse{
		Status:  statusError,
		Message: "too many requests, please try again later",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "email":
		return "invalid email"
	case "min":
		return "value is too short"
	case "max":
		return "value is too long"
	case "gte", "lte":
		return "value is out of range"
	case "oneof":
		return "unsupported value"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
