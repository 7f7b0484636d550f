package http

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

type MockURLUseCase struct {
	mock.Mock
}

func (m *MockURLUseCase) Shorten(ctx context.Context, caller entity.Caller, rawURL, customCode string) (*entity.ShortenResult, error) {
	args := m.Called(ctx, caller, rawURL, customCode)
	res, _ := args.Get(0).(*entity.ShortenResult)
	return res, args.Error(1)
}

func (m *MockURLUseCase) Resolve(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) ReassignCode(ctx context.Context, caller entity.Caller, id int64, newCode string) (*entity.ShortenResult, error) {
	args := m.Called(ctx, caller, id, newCode)
	res, _ := args.Get(0).(*entity.ShortenResult)
	return res, args.Error(1)
}

func (m *MockURLUseCase) Delete(ctx context.Context, caller entity.Caller, id int64) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func (m *MockURLUseCase) Moderate(ctx context.Context, caller entity.Caller, id int64, action entity.ModerationAction) error {
	args := m.Called(ctx, caller, id, action)
	return args.Error(0)
}

func (m *MockURLUseCase) ListOwn(ctx context.Context, caller entity.Caller) ([]entity.URL, error) {
	args := m.Called(ctx, caller)
	urls, _ := args.Get(0).([]entity.URL)
	return urls, args.Error(1)
}

func (m *MockURLUseCase) Stats(ctx context.Context, caller entity.Caller) (*entity.URLStats, error) {
	args := m.Called(ctx, caller)
	stats, _ := args.Get(0).(*entity.URLStats)
	return stats, args.Error(1)
}

func (m *MockURLUseCase) Totals(ctx context.Context) (*entity.ServiceStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*entity.ServiceStats)
	return stats, args.Error(1)
}

func (m *MockURLUseCase) ListAll(ctx context.Context, caller entity.Caller, q entity.URLQuery) (*entity.URLPage, error) {
	args := m.Called(ctx, caller, q)
	page, _ := args.Get(0).(*entity.URLPage)
	return page, args.Error(1)
}

func (m *MockURLUseCase) ShortURL(shortCode string) string {
	return "https://sho.rt/r/" + shortCode
}

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	args := m.Called(ctx, name, email, password)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) Me(ctx context.Context, caller entity.Caller) (*entity.User, error) {
	args := m.Called(ctx, caller)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) List(ctx context.Context, caller entity.Caller, q entity.UserQuery) (*entity.UserPage, error) {
	args := m.Called(ctx, caller, q)
	page, _ := args.Get(0).(*entity.UserPage)
	return page, args.Error(1)
}

func (m *MockUserUseCase) UpdateRole(ctx context.Context, caller entity.Caller, userID string, role entity.Role) (*entity.User, error) {
	args := m.Called(ctx, caller, userID, role)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

type MockSeedUseCase struct {
	mock.Mock
}

func (m *MockSeedUseCase) Seed(ctx context.Context, caller entity.Caller) (*entity.SeedResult, error) {
	args := m.Called(ctx, caller)
	res, _ := args.Get(0).(*entity.SeedResult)
	return res, args.Error(1)
}

type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) Issue(user *entity.User) (string, time.Time, error) {
	args := m.Called(user)
	expiresAt, _ := args.Get(1).(time.Time)
	return args.String(0), expiresAt, args.Error(2)
}

func (m *MockTokenManager) Parse(token string) (entity.Caller, error) {
	args := m.Called(token)
	caller, _ := args.Get(0).(entity.Caller)
	return caller, args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
