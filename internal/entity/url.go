// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL along with its
// moderation state, the accounts that own URLs, and the identity of the caller
// that every use case receives explicitly.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrInvalidURL is returned when a submitted URL does not parse as an absolute URL.
	ErrInvalidURL = errors.New("please enter a valid url")
	// ErrInvalidShortCode is returned when a custom code is not 1-20 letters, digits, hyphens or underscores.
	ErrInvalidShortCode = errors.New("custom code must be 1-20 characters: letters, digits, hyphen or underscore")
	// ErrShortCodeExists is returned when attempting to use a short code that already exists.
	ErrShortCodeExists = errors.New("custom code already exists")
	// ErrURLNotFound is returned when a URL with the specified short code or id cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLRejected is returned when the safety classifier confidently deems a URL malicious.
	ErrURLRejected = errors.New("this url is flagged as malicious")
	// ErrInvalidAction is returned for an unknown moderation action.
	ErrInvalidAction = errors.New("invalid action")
	// ErrMaxRetriesExceeded is returned when no free short code was generated within the retry budget.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

// FlaggedMessage is the advisory returned to a submitter whose URL was flagged.
const FlaggedMessage = "This URL has been flagged for review by our safety system. " +
	"It may be temporarily limited until approved by an administrator."

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the code used in the redirect path.
	OriginalURL string    // OriginalURL is the normalized destination.
	OwnerID     *string   // OwnerID is the submitting account, nil for anonymous submissions.
	Clicks      int64     // Clicks is the number of successful resolutions.
	Flagged     bool      // Flagged marks URLs that require visitor caution or review.
	FlagReason  *string   // FlagReason is the classifier's explanation, if any.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
	UpdatedAt   time.Time // UpdatedAt is the timestamp when the URL was last updated.
}

// Gated reports whether resolution must stop at an interstitial instead of redirecting.
func (u *URL) Gated() bool {
	return u.Flagged
}

// OwnedBy reports whether the URL belongs to the account with the given id.
func (u *URL) OwnedBy(userID string) bool {
	return u.OwnerID != nil && *u.OwnerID == userID
}

// URLWithOwner is a URL joined with its owner's public details, used by the admin listing.
type URLWithOwner struct {
	URL
	OwnerName  *string
	OwnerEmail *string
}

// ShortenResult is what a submitter gets back after shortening or re-coding a URL.
type ShortenResult struct {
	URL      *URL
	ShortURL string
	Message  string
}

// ModerationAction is an administrative decision on a URL.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionDelete  ModerationAction = "delete"
)

// URLStats summarizes the URLs of a single owner.
type URLStats struct {
	TotalURLs   int
	TotalClicks int64
	AvgClicks   float64
	Top         []URL
}

// ServiceStats are the service-wide totals shown to every visitor.
type ServiceStats struct {
	TotalURLs   int64
	TotalClicks int64
}

// URLFilter narrows the admin URL listing.
type URLFilter string

const (
	FilterAll           URLFilter = "all"
	FilterFlagged       URLFilter = "flagged"
	FilterSecurity      URLFilter = "security"
	FilterInappropriate URLFilter = "inappropriate"
	FilterOther         URLFilter = "other"
)

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// URLQuery describes one page of the admin URL listing.
type URLQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
	Search    string
	Filter    URLFilter
}

// URLPage is one page of the admin URL listing. Total counts every match, not only this page.
type URLPage struct {
	URLs  []URLWithOwner
	Total int
}
