package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const urlColumns = `id, short_code, original_url, owner_id, clicks, flagged, flag_reason, created_at, updated_at`

type urlDB struct {
	ID          int64          `db:"id"`
	ShortCode   string         `db:"short_code"`
	OriginalURL string         `db:"original_url"`
	OwnerID     sql.NullString `db:"owner_id"`
	Clicks      int64          `db:"clicks"`
	Flagged     bool           `db:"flagged"`
	FlagReason  sql.NullString `db:"flag_reason"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		OwnerID:     fromNullString(u.OwnerID),
		Clicks:      u.Clicks,
		Flagged:     u.Flagged,
		FlagReason:  fromNullString(u.FlagReason),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type urlWithOwnerDB struct {
	urlDB
	OwnerName  sql.NullString `db:"owner_name"`
	OwnerEmail sql.NullString `db:"owner_email"`
}

func (u *urlWithOwnerDB) toEntity() entity.URLWithOwner {
	return entity.URLWithOwner{
		URL:        *u.urlDB.toEntity(),
		OwnerName:  fromNullString(u.OwnerName),
		OwnerEmail: fromNullString(u.OwnerEmail),
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

// Save inserts the full row, so callers control clicks, moderation state and timestamps.
func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `
		INSERT INTO urls(short_code, original_url, owner_id, clicks, flagged, flag_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + urlColumns

	var row urlDB

	err := r.db.GetContext(ctx, &row, query,
		url.ShortCode,
		url.OriginalURL,
		toNullString(url.OwnerID),
		url.Clicks,
		url.Flagged,
		toNullString(url.FlagReason),
		url.CreatedAt,
		url.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) RetrieveByID(ctx context.Context, id int64) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByID"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE id = $1`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByShortCode"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE short_code = $1`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) RetrieveByOwner(ctx context.Context, ownerID string) ([]entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByOwner"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	var rows []urlDB

	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to select from urls table: %w", op, err)
	}

	urls := make([]entity.URL, 0, len(rows))
	for i := range rows {
		urls = append(urls, *rows[i].toEntity())
	}

	return urls, nil
}

func (r *URLRepository) RetrieveAllWithOwner(ctx context.Context) ([]entity.URLWithOwner, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveAllWithOwner"
	const query = `
		SELECT u.id, u.short_code, u.original_url, u.owner_id, u.clicks, u.flagged, u.flag_reason,
			u.created_at, u.updated_at, usr.name AS owner_name, usr.email AS owner_email
		FROM urls u
		LEFT JOIN users usr ON usr.id = u.owner_id
		ORDER BY u.created_at DESC, u.id DESC`

	var rows []urlWithOwnerDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from urls table: %w", op, err)
	}

	urls := make([]entity.URLWithOwner, 0, len(rows))
	for i := range rows {
		urls = append(urls, rows[i].toEntity())
	}

	return urls, nil
}

type totalsDB struct {
	URLs   int64 `db:"urls"`
	Clicks int64 `db:"clicks"`
}

// RetrieveTotals counts every stored URL and sums their clicks.
func (r *URLRepository) RetrieveTotals(ctx context.Context) (*entity.ServiceStats, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveTotals"
	const query = `SELECT COUNT(*) AS urls, COALESCE(SUM(clicks), 0) AS clicks FROM urls`

	var row totalsDB

	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate urls table: %w", op, err)
	}

	return &entity.ServiceStats{
		TotalURLs:   row.URLs,
		TotalClicks: row.Clicks,
	}, nil
}

// RetrieveAndUpdateStats counts a visit and returns the updated row in a single statement,
// so concurrent visits never lose increments.
func (r *URLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveAndUpdateStats"
	const query = `
		UPDATE urls SET clicks = clicks + 1, updated_at = NOW()
		WHERE short_code = $1
		RETURNING ` + urlColumns

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get and update urls table row: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) UpdateShortCode(ctx context.Context, id int64, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.UpdateShortCode"
	const query = `
		UPDATE urls SET short_code = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + urlColumns

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, shortCode, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to update urls table row: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) ClearFlag(ctx context.Context, id int64) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.ClearFlag"
	const query = `
		UPDATE urls SET flagged = FALSE, flag_reason = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + urlColumns

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update urls table row: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) Remove(ctx context.Context, id int64) error {
	const op = "adapter.repository.postgres.URLRepository.Remove"
	const query = `DELETE FROM urls WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete from urls table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}
