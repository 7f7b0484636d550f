package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	args := r.Called(ctx, url)
	if fn, ok := args.Get(0).(func(*entity.URL) *entity.URL); ok {
		return fn(url), args.Error(1)
	}
	saved, _ := args.Get(0).(*entity.URL)
	return saved, args.Error(1)
}

func (r *MockURLRepository) RetrieveByID(ctx context.Context, id int64) (*entity.URL, error) {
	args := r.Called(ctx, id)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveByOwner(ctx context.Context, ownerID string) ([]entity.URL, error) {
	args := r.Called(ctx, ownerID)
	urls, _ := args.Get(0).([]entity.URL)
	return urls, args.Error(1)
}

func (r *MockURLRepository) RetrieveAllWithOwner(ctx context.Context) ([]entity.URLWithOwner, error) {
	args := r.Called(ctx)
	urls, _ := args.Get(0).([]entity.URLWithOwner)
	return urls, args.Error(1)
}

func (r *MockURLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveTotals(ctx context.Context) (*entity.ServiceStats, error) {
	args := r.Called(ctx)
	stats, _ := args.Get(0).(*entity.ServiceStats)
	return stats, args.Error(1)
}

func (r *MockURLRepository) UpdateShortCode(ctx context.Context, id int64, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, id, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) ClearFlag(ctx context.Context, id int64) (*entity.URL, error) {
	args := r.Called(ctx, id)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) Remove(ctx context.Context, id int64) error {
	args := r.Called(ctx, id)
	return args.Error(0)
}

type MockClassifier struct {
	mock.Mock
}

func (c *MockClassifier) Classify(ctx context.Context, url string) (entity.Verdict, error) {
	args := c.Called(ctx, url)
	verdict, _ := args.Get(0).(entity.Verdict)
	return verdict, args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (r *MockUserRepository) Save(ctx context.Context, user *entity.User) (*entity.User, error) {
	args := r.Called(ctx, user)
	if fn, ok := args.Get(0).(func(*entity.User) *entity.User); ok {
		return fn(user), args.Error(1)
	}
	saved, _ := args.Get(0).(*entity.User)
	return saved, args.Error(1)
}

func (r *MockUserRepository) RetrieveByID(ctx context.Context, id string) (*entity.User, error) {
	args := r.Called(ctx, id)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (r *MockUserRepository) RetrieveByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := r.Called(ctx, email)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (r *MockUserRepository) RetrieveAll(ctx context.Context) ([]entity.User, error) {
	args := r.Called(ctx)
	users, _ := args.Get(0).([]entity.User)
	return users, args.Error(1)
}

func (r *MockUserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	args := r.Called(ctx, id, role)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

// returnSaved makes a Save expectation echo back the entity it was given.
func returnSaved(url *entity.URL) *entity.URL {
	saved := *url
	saved.ID = 1
	return &saved
}

func returnSavedUser(user *entity.User) *entity.User {
	saved := *user
	return &saved
}

func strPtr(s string) *string {
	return &s
}
