package usecase

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Sort keys accepted by the admin URL listing.
const (
	SortURLsByOriginalURL = "originalUrl"
	SortURLsByShortCode   = "shortCode"
	SortURLsByCreatedAt   = "createdAt"
	SortURLsByClicks      = "clicks"
	SortURLsByUserName    = "userName"
)

// Sort keys accepted by the admin account listing.
const (
	SortUsersByName      = "name"
	SortUsersByEmail     = "email"
	SortUsersByRole      = "role"
	SortUsersByCreatedAt = "createdAt"
)

var (
	securityKeywords      = []string{"security", "phishing", "malware"}
	inappropriateKeywords = []string{"inappropriate", "adult", "offensive"}
)

func filterURLs(urls []entity.URLWithOwner, search string, filter entity.URLFilter) []entity.URLWithOwner {
	search = strings.ToLower(strings.TrimSpace(search))

	return slices.DeleteFunc(urls, func(u entity.URLWithOwner) bool {
		return !matchesFilter(u, filter) || !matchesSearch(u, search)
	})
}

func matchesFilter(u entity.URLWithOwner, filter entity.URLFilter) bool {
	reason := strings.ToLower(deref(u.FlagReason))

	switch filter {
	case entity.FilterFlagged:
		return u.Flagged
	case entity.FilterSecurity:
		return u.FlagReason != nil && containsAny(reason, securityKeywords)
	case entity.FilterInappropriate:
		return u.FlagReason != nil && containsAny(reason, inappropriateKeywords)
	case entity.FilterOther:
		return u.FlagReason != nil &&
			!containsAny(reason, securityKeywords) &&
			!containsAny(reason, inappropriateKeywords)
	default:
		return true
	}
}

func matchesSearch(u entity.URLWithOwner, search string) bool {
	if search == "" {
		return true
	}

	fields := []string{
		u.OriginalURL,
		u.ShortCode,
		deref(u.OwnerName),
		deref(u.OwnerEmail),
		deref(u.FlagReason),
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}

	return false
}

func sortURLs(urls []entity.URLWithOwner, sortBy string, order entity.SortOrder) {
	var compare func(a, b entity.URLWithOwner) int

	switch sortBy {
	case SortURLsByOriginalURL:
		compare = func(a, b entity.URLWithOwner) int { return compareFold(a.OriginalURL, b.OriginalURL) }
	case SortURLsByShortCode:
		compare = func(a, b entity.URLWithOwner) int { return compareFold(a.ShortCode, b.ShortCode) }
	case SortURLsByClicks:
		compare = func(a, b entity.URLWithOwner) int { return compareInt64(a.Clicks, b.Clicks) }
	case SortURLsByUserName:
		compare = func(a, b entity.URLWithOwner) int { return compareFold(deref(a.OwnerName), deref(b.OwnerName)) }
	default:
		compare = func(a, b entity.URLWithOwner) int { return compareTime(a.CreatedAt, b.CreatedAt) }
	}

	slices.SortStableFunc(urls, directed(compare, order))
}

func filterUsers(users []entity.User, search string) []entity.User {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return users
	}

	return slices.DeleteFunc(users, func(u entity.User) bool {
		return !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search)
	})
}

func sortUsers(users []entity.User, sortBy string, order entity.SortOrder) {
	var compare func(a, b entity.User) int

	switch sortBy {
	case SortUsersByName:
		compare = func(a, b entity.User) int { return compareFold(a.Name, b.Name) }
	case SortUsersByEmail:
		compare = func(a, b entity.User) int { return compareFold(a.Email, b.Email) }
	case SortUsersByRole:
		compare = func(a, b entity.User) int { return cmp.Compare(a.Role, b.Role) }
	default:
		compare = func(a, b entity.User) int { return compareTime(a.CreatedAt, b.CreatedAt) }
	}

	slices.SortStableFunc(users, directed(compare, order))
}

// directed flips compare unless order is ascending. Listings default to newest first.
func directed[T any](compare func(a, b T) int, order entity.SortOrder) func(a, b T) int {
	if order == entity.SortAsc {
		return compare
	}

	return func(a, b T) int {
		return compare(b, a)
	}
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	offset := (page - 1) * limit
	if offset >= len(items) {
		return []T{}
	}

	return items[offset:min(offset+limit, len(items))]
}

func compareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareInt64(a, b int64) int {
	return cmp.Compare(a, b)
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}

	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
