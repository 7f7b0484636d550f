package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vadimbarashkov/safe-shortener/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

const randomSeedURLs = 10

type seedUserRepository interface {
	Save(ctx context.Context, user *entity.User) (*entity.User, error)
	RetrieveByEmail(ctx context.Context, email string) (*entity.User, error)
}

type seedURLRepository interface {
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
}

type seedUser struct {
	name     string
	email    string
	password string
	role     entity.Role
}

type seedURL struct {
	originalURL string
	shortCode   string
	clicks      int64
	daysAgo     int
	// owner indexes seedUsers; -1 means anonymous.
	owner int
}

var seedUsers = []seedUser{
	{name: "Test User", email: "test@example.com", password: "password123", role: entity.RoleUser},
	{name: "Demo User", email: "demo@example.com", password: "demo123", role: entity.RoleUser},
	{name: "Admin User", email: "admin@example.com", password: "admin123", role: entity.RoleAdmin},
}

var seedURLs = []seedURL{
	{originalURL: "https://github.com", shortCode: "github", clicks: 42, daysAgo: 7, owner: 0},
	{originalURL: "https://nextjs.org", shortCode: "nextjs", clicks: 28, daysAgo: 5, owner: 0},
	{originalURL: "https://tailwindcss.com", shortCode: "tailwind", clicks: 15, daysAgo: 3, owner: 0},
	{originalURL: "https://react.dev", shortCode: "react", clicks: 35, daysAgo: 6, owner: 1},
	{originalURL: "https://www.typescriptlang.org", shortCode: "typescript", clicks: 20, daysAgo: 4, owner: 1},
	{originalURL: "https://example.com", shortCode: "example", clicks: 10, daysAgo: 2, owner: -1},
	{originalURL: "https://google.com", shortCode: "google", clicks: 5, daysAgo: 1, owner: -1},
}

type SeedOption func(*SeedUseCase)

func WithSeedHashCost(cost int) SeedOption {
	return func(uc *SeedUseCase) {
		uc.hashCost = cost
	}
}

// SeedUseCase fills an empty development database with sample accounts and URLs.
type SeedUseCase struct {
	enabled  bool
	hashCost int
	userRepo seedUserRepository
	urlRepo  seedURLRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewSeedUseCase(enabled bool, userRepo seedUserRepository, urlRepo seedURLRepository, logger *slog.Logger, opts ...SeedOption) *SeedUseCase {
	uc := &SeedUseCase{
		enabled:  enabled,
		hashCost: bcrypt.DefaultCost,
		userRepo: userRepo,
		urlRepo:  urlRepo,
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Seed inserts the sample data, skipping accounts and codes that already exist,
// so it can be run repeatedly.
func (uc *SeedUseCase) Seed(ctx context.Context, caller entity.Caller) (*entity.SeedResult, error) {
	const op = "usecase.SeedUseCase.Seed"

	if !uc.enabled {
		return nil, fmt.Errorf("%s: seeding is only available in development: %w", op, entity.ErrForbidden)
	}

	if err := authorizeAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &entity.SeedResult{}
	now := uc.now()

	userIDs := make([]string, len(seedUsers))
	for i, su := range seedUsers {
		id, created, err := uc.seedUser(ctx, su, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		userIDs[i] = id
		if created {
			res.Users++
		}
	}

	urls := make([]*entity.URL, 0, len(seedURLs)+randomSeedURLs)
	for _, su := range seedURLs {
		urls = append(urls, newSeedURL(su.originalURL, su.shortCode, su.clicks, su.owner, userIDs, now.AddDate(0, 0, -su.daysAgo)))
	}

	for i := range randomSeedURLs {
		shortCode, err := gonanoid.Generate(shortCodeAlphabet, defaultShortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		owner := rand.IntN(len(userIDs)+1) - 1
		createdAt := now.Add(-time.Duration(rand.IntN(30*24)) * time.Hour)

		urls = append(urls, newSeedURL(
			fmt.Sprintf("https://random-site-%d.com", i+1),
			shortCode,
			rand.Int64N(100),
			owner,
			userIDs,
			createdAt,
		))
	}

	for _, url := range urls {
		if _, err := uc.urlRepo.Save(ctx, url); err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		res.URLs++
	}

	uc.logger.Info("database seeded",
		slog.Int("users", res.Users),
		slog.Int("urls", res.URLs),
	)

	return res, nil
}

func (uc *SeedUseCase) seedUser(ctx context.Context, su seedUser, now time.Time) (string, bool, error) {
	user, err := uc.userRepo.RetrieveByEmail(ctx, su.email)
	if err == nil {
		return user.ID, false, nil
	}

	if !errors.Is(err, entity.ErrUserNotFound) {
		return "", false, fmt.Errorf("failed to get user: %w", err)
	}

	user, err = newUser(su.name, su.email, su.password, su.role, uc.hashCost, now)
	if err != nil {
		return "", false, err
	}

	user, err = uc.userRepo.Save(ctx, user)
	if err != nil {
		return "", false, fmt.Errorf("failed to save user: %w", err)
	}

	return user.ID, true, nil
}

func newSeedURL(originalURL, shortCode string, clicks int64, owner int, userIDs []string, createdAt time.Time) *entity.URL {
	url := &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		Clicks:      clicks,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if owner >= 0 {
		ownerID := userIDs[owner]
		url.OwnerID = &ownerID
	}

	return url
}
