package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

type userDB struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (u *userDB) toEntity() *entity.User {
	return &entity.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         entity.Role(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Save(ctx context.Context, user *entity.User) (*entity.User, error) {
	const op = "adapter.repository.postgres.UserRepository.Save"
	const query = `
		INSERT INTO users(id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	var row userDB

	err := r.db.GetContext(ctx, &row, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrEmailExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into users table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *UserRepository) RetrieveByID(ctx context.Context, id string) (*entity.User, error) {
	const op = "adapter.repository.postgres.UserRepository.RetrieveByID"
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	// ids are uuids, anything else cannot match a row
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrUserNotFound)
	}

	var row userDB

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from users table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *UserRepository) RetrieveByEmail(ctx context.Context, email string) (*entity.User, error) {
	const op = "adapter.repository.postgres.UserRepository.RetrieveByEmail"
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var row userDB

	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from users table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *UserRepository) RetrieveAll(ctx context.Context) ([]entity.User, error) {
	const op = "adapter.repository.postgres.UserRepository.RetrieveAll"
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	var rows []userDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from users table: %w", op, err)
	}

	users := make([]entity.User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].toEntity())
	}

	return users, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	const op = "adapter.repository.postgres.UserRepository.UpdateRole"
	const query = `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	// ids are uuids, anything else cannot match a row
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrUserNotFound)
	}

	var row userDB

	if err := r.db.GetContext(ctx, &row, query, string(role), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update users table row: %w", op, err)
	}

	return row.toEntity(), nil
}
