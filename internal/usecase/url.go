package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/vadimbarashkov/safe-shortener/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// shortCodeAlphabet keeps generated codes unbiased over letters and digits.
	shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	defaultShortCodeLength = 6
	defaultMaxRetries      = 5
	defaultRejectThreshold = 0.7
	defaultBaseURL         = "http://localhost:8080"

	topURLsLimit = 5
)

var shortCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,20}$`)

type urlRepository interface {
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	RetrieveByID(ctx context.Context, id int64) (*entity.URL, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveByOwner(ctx context.Context, ownerID string) ([]entity.URL, error)
	RetrieveAllWithOwner(ctx context.Context) ([]entity.URLWithOwner, error)
	RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveTotals(ctx context.Context) (*entity.ServiceStats, error)
	UpdateShortCode(ctx context.Context, id int64, shortCode string) (*entity.URL, error)
	ClearFlag(ctx context.Context, id int64) (*entity.URL, error)
	Remove(ctx context.Context, id int64) error
}

type safetyClassifier interface {
	Classify(ctx context.Context, url string) (entity.Verdict, error)
}

type URLOption func(*URLUseCase)

func WithShortCodeLength(n int) URLOption {
	return func(uc *URLUseCase) {
		uc.shortCodeLength = n
	}
}

func WithMaxRetries(n int) URLOption {
	return func(uc *URLUseCase) {
		uc.maxRetries = n
	}
}

// WithRejectThreshold sets the confidence above which a malicious verdict blocks non-admin submissions.
func WithRejectThreshold(t float64) URLOption {
	return func(uc *URLUseCase) {
		uc.rejectThreshold = t
	}
}

func WithBaseURL(baseURL string) URLOption {
	return func(uc *URLUseCase) {
		uc.baseURL = strings.TrimRight(baseURL, "/")
	}
}

type URLUseCase struct {
	shortCodeLength int
	maxRetries      int
	rejectThreshold float64
	baseURL         string
	urlRepo         urlRepository
	classifier      safetyClassifier
	logger          *slog.Logger
	now             func() time.Time
}

func NewURLUseCase(urlRepo urlRepository, classifier safetyClassifier, logger *slog.Logger, opts ...URLOption) *URLUseCase {
	uc := &URLUseCase{
		shortCodeLength: defaultShortCodeLength,
		maxRetries:      defaultMaxRetries,
		rejectThreshold: defaultRejectThreshold,
		baseURL:         defaultBaseURL,
		urlRepo:         urlRepo,
		classifier:      classifier,
		logger:          logger,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Shorten normalizes rawURL, grades it with the safety classifier and stores it under
// customCode, or under a generated code when customCode is empty.
func (uc *URLUseCase) Shorten(ctx context.Context, caller entity.Caller, rawURL, customCode string) (*entity.ShortenResult, error) {
	const op = "usecase.URLUseCase.Shorten"

	originalURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if customCode != "" && !shortCodePattern.MatchString(customCode) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
	}

	verdict := uc.classify(ctx, originalURL)

	malicious := verdict.Category == entity.CategoryMalicious && verdict.Confidence > uc.rejectThreshold
	if malicious && !caller.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLRejected)
	}

	now := uc.now()
	url := &entity.URL{
		OriginalURL: originalURL,
		Flagged:     verdict.Flagged || malicious,
		FlagReason:  verdict.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if caller.Authenticated() {
		ownerID := caller.ID
		url.OwnerID = &ownerID
	}

	saved, err := uc.save(ctx, url, customCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	return uc.toResult(saved), nil
}

func (uc *URLUseCase) save(ctx context.Context, url *entity.URL, customCode string) (*entity.URL, error) {
	if customCode != "" {
		url.ShortCode = customCode
		return uc.urlRepo.Save(ctx, url)
	}

	for i := 0; i < uc.maxRetries; i++ {
		shortCode, err := gonanoid.Generate(shortCodeAlphabet, uc.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		url.ShortCode = shortCode

		saved, err := uc.urlRepo.Save(ctx, url)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, err
		}

		return saved, nil
	}

	return nil, entity.ErrMaxRetriesExceeded
}

// classify logs classifier errors and degrades them to an unknown, unflagged verdict.
func (uc *URLUseCase) classify(ctx context.Context, url string) entity.Verdict {
	if uc.classifier == nil {
		return entity.UnknownVerdict()
	}

	verdict, err := uc.classifier.Classify(ctx, url)
	if err != nil {
		uc.logger.Warn("safety check failed, treating url as unflagged",
			slog.String("url", url),
			slog.Any("err", err),
		)
		return entity.UnknownVerdict()
	}

	return verdict
}

// Resolve records a visit and returns the URL behind shortCode. Flagged URLs are
// counted too; deciding whether to redirect is up to the caller.
func (uc *URLUseCase) Resolve(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Resolve"

	url, err := uc.urlRepo.RetrieveAndUpdateStats(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url, nil
}

// ReassignCode moves one of the caller's URLs to a new short code.
func (uc *URLUseCase) ReassignCode(ctx context.Context, caller entity.Caller, id int64, newCode string) (*entity.ShortenResult, error) {
	const op = "usecase.URLUseCase.ReassignCode"

	if !caller.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrUnauthorized)
	}

	if !shortCodePattern.MatchString(newCode) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
	}

	url, err := uc.urlRepo.RetrieveByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	if !url.OwnedBy(caller.ID) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrForbidden)
	}

	if newCode != url.ShortCode {
		if err := uc.checkCodeFree(ctx, newCode); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// The unique constraint still decides races lost after the lookup.
	url, err = uc.urlRepo.UpdateShortCode(ctx, id, newCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update short code: %w", op, err)
	}

	return uc.toResult(url), nil
}

func (uc *URLUseCase) checkCodeFree(ctx context.Context, shortCode string) error {
	_, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	switch {
	case err == nil:
		return entity.ErrShortCodeExists
	case errors.Is(err, entity.ErrURLNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up short code: %w", err)
	}
}

// Delete removes a URL on behalf of its owner or an administrator.
func (uc *URLUseCase) Delete(ctx context.Context, caller entity.Caller, id int64) error {
	const op = "usecase.URLUseCase.Delete"

	if !caller.Authenticated() {
		return fmt.Errorf("%s: %w", op, entity.ErrUnauthorized)
	}

	url, err := uc.urlRepo.RetrieveByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	if !url.OwnedBy(caller.ID) && !caller.IsAdmin() {
		return fmt.Errorf("%s: %w", op, entity.ErrForbidden)
	}

	if err := uc.urlRepo.Remove(ctx, id); err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return nil
}

// Moderate applies an administrative decision to a URL: approve clears its flag,
// delete removes it.
func (uc *URLUseCase) Moderate(ctx context.Context, caller entity.Caller, id int64, action entity.ModerationAction) error {
	const op = "usecase.URLUseCase.Moderate"

	if err := authorizeAdmin(caller); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch action {
	case entity.ActionApprove:
		if _, err := uc.urlRepo.ClearFlag(ctx, id); err != nil {
			return fmt.Errorf("%s: failed to approve url: %w", op, err)
		}
	case entity.ActionDelete:
		if err := uc.urlRepo.Remove(ctx, id); err != nil {
			return fmt.Errorf("%s: failed to delete url: %w", op, err)
		}
	default:
		return fmt.Errorf("%s: %w", op, entity.ErrInvalidAction)
	}

	return nil
}

// ListOwn returns the caller's URLs, newest first.
func (uc *URLUseCase) ListOwn(ctx context.Context, caller entity.Caller) ([]entity.URL, error) {
	const op = "usecase.URLUseCase.ListOwn"

	if !caller.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrUnauthorized)
	}

	urls, err := uc.urlRepo.RetrieveByOwner(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get urls: %w", op, err)
	}

	return urls, nil
}

// Stats summarizes the clicks of the caller's URLs.
func (uc *URLUseCase) Stats(ctx context.Context, caller entity.Caller) (*entity.URLStats, error) {
	const op = "usecase.URLUseCase.Stats"

	urls, err := uc.ListOwn(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := &entity.URLStats{TotalURLs: len(urls)}
	for _, u := range urls {
		stats.TotalClicks += u.Clicks
	}

	if len(urls) > 0 {
		avg := float64(stats.TotalClicks) / float64(len(urls))
		stats.AvgClicks = math.Round(avg*10) / 10
	}

	top := slices.Clone(urls)
	slices.SortStableFunc(top, func(a, b entity.URL) int {
		return compareInt64(b.Clicks, a.Clicks)
	})
	stats.Top = top[:min(topURLsLimit, len(top))]

	return stats, nil
}

// Totals returns the service-wide URL and click counts. Anyone may read them.
func (uc *URLUseCase) Totals(ctx context.Context) (*entity.ServiceStats, error) {
	const op = "usecase.URLUseCase.Totals"

	stats, err := uc.urlRepo.RetrieveTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get totals: %w", op, err)
	}

	return stats, nil
}

// ListAll returns one page of every URL for the admin table.
func (uc *URLUseCase) ListAll(ctx context.Context, caller entity.Caller, q entity.URLQuery) (*entity.URLPage, error) {
	const op = "usecase.URLUseCase.ListAll"

	if err := authorizeAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	urls, err := uc.urlRepo.RetrieveAllWithOwner(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get urls: %w", op, err)
	}

	urls = filterURLs(urls, q.Search, q.Filter)
	sortURLs(urls, q.SortBy, q.SortOrder)

	return &entity.URLPage{
		URLs:  paginate(urls, q.Page, q.Limit),
		Total: len(urls),
	}, nil
}

func (uc *URLUseCase) toResult(url *entity.URL) *entity.ShortenResult {
	res := &entity.ShortenResult{
		URL:      url,
		ShortURL: uc.ShortURL(url.ShortCode),
	}

	if url.Flagged {
		res.Message = entity.FlaggedMessage
	}

	return res
}

// ShortURL builds the public link for shortCode.
func (uc *URLUseCase) ShortURL(shortCode string) string {
	return uc.baseURL + "/r/" + shortCode
}

// normalizeURL defaults the scheme to https and checks that the result is an absolute URL.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", entity.ErrInvalidURL
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", entity.ErrInvalidURL
	}

	return raw, nil
}

func authorizeAdmin(caller entity.Caller) error {
	if !caller.Authenticated() {
		return entity.ErrUnauthorized
	}

	if !caller.IsAdmin() {
		return entity.ErrForbidden
	}

	return nil
}
