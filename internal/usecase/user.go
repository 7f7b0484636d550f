package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vadimbarashkov/safe-shortener/internal/entity"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type userRepository interface {
	Save(ctx context.Context, user *entity.User) (*entity.User, error)
	RetrieveByID(ctx context.Context, id string) (*entity.User, error)
	RetrieveByEmail(ctx context.Context, email string) (*entity.User, error)
	RetrieveAll(ctx context.Context) ([]entity.User, error)
	UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error)
}

type UserOption func(*UserUseCase)

// WithHashCost sets the bcrypt cost used for new password hashes.
func WithHashCost(cost int) UserOption {
	return func(uc *UserUseCase) {
		uc.hashCost = cost
	}
}

type UserUseCase struct {
	hashCost int
	userRepo userRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserUseCase(userRepo userRepository, logger *slog.Logger, opts ...UserOption) *UserUseCase {
	uc := &UserUseCase{
		hashCost: bcrypt.DefaultCost,
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Register creates a regular account. Emails are stored lower-cased.
func (uc *UserUseCase) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	const op = "usecase.UserUseCase.Register"

	user, err := newUser(name, email, password, entity.RoleUser, uc.hashCost, uc.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err = uc.userRepo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	uc.logger.Info("user registered", slog.String("user_id", user.ID))

	return user, nil
}

// Authenticate checks the credentials and returns the matching account.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (uc *UserUseCase) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	const op = "usecase.UserUseCase.Authenticate"

	user, err := uc.userRepo.RetrieveByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidCredentials)
	}

	return user, nil
}

// Me returns the caller's own account.
func (uc *UserUseCase) Me(ctx context.Context, caller entity.Caller) (*entity.User, error) {
	const op = "usecase.UserUseCase.Me"

	if !caller.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrUnauthorized)
	}

	user, err := uc.userRepo.RetrieveByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	return user, nil
}

// List returns one page of accounts for the admin table.
func (uc *UserUseCase) List(ctx context.Context, caller entity.Caller, q entity.UserQuery) (*entity.UserPage, error) {
	const op = "usecase.UserUseCase.List"

	if err := authorizeAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := uc.userRepo.RetrieveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get users: %w", op, err)
	}

	users = filterUsers(users, q.Search)
	sortUsers(users, q.SortBy, q.SortOrder)

	return &entity.UserPage{
		Users: paginate(users, q.Page, q.Limit),
		Total: len(users),
	}, nil
}

// UpdateRole changes another account's role. Administrators cannot change their own role.
func (uc *UserUseCase) UpdateRole(ctx context.Context, caller entity.Caller, userID string, role entity.Role) (*entity.User, error) {
	const op = "usecase.UserUseCase.UpdateRole"

	if err := authorizeAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if caller.ID == userID {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrSelfRoleChange)
	}

	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidRole)
	}

	user, err := uc.userRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update role: %w", op, err)
	}

	uc.logger.Info("user role updated",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.String("updated_by", caller.ID),
	)

	return user, nil
}

// EnsureAdmin makes sure an administrator with the given email exists, creating the
// account or promoting an existing one. The password of an existing account is kept.
// It needs no caller and is meant for startup, where the first administrator has
// nobody to be promoted by.
func (uc *UserUseCase) EnsureAdmin(ctx context.Context, name, email, password string) (*entity.User, error) {
	const op = "usecase.UserUseCase.EnsureAdmin"

	user, err := uc.userRepo.RetrieveByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if user.Role == entity.RoleAdmin {
			return user, nil
		}

		user, err = uc.userRepo.UpdateRole(ctx, user.ID, entity.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to promote user: %w", op, err)
		}

		uc.logger.Info("bootstrap admin promoted", slog.String("user_id", user.ID))

		return user, nil
	case !errors.Is(err, entity.ErrUserNotFound):
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	user, err = newUser(name, email, password, entity.RoleAdmin, uc.hashCost, uc.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err = uc.userRepo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	uc.logger.Info("bootstrap admin created", slog.String("user_id", user.ID))

	return user, nil
}

func newUser(name, email, password string, role entity.Role, cost int, now time.Time) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &entity.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
