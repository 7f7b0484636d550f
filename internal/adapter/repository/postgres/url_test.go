package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

type URLRepositoryTestSuite struct {
	suite.Suite
	ctx             context.Context
	errUnknown      error
	errAffectedRows error
	columns         []string
	mock            sqlmock.Sqlmock
	repo            *URLRepository
}

func (suite *URLRepositoryTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	suite.errUnknown = errors.New("unknown error")
	suite.errAffectedRows = errors.New("affected rows error")
	suite.columns = []string{
		"id", "short_code", "original_url", "owner_id", "clicks",
		"flagged", "flag_reason", "created_at", "updated_at",
	}
}

func (suite *URLRepositoryTestSuite) SetupSubTest() {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		suite.T().Fatalf("Failed to create mock database: %v", err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	suite.T().Cleanup(func() {
		db.Close()
	})

	suite.mock = mock
	suite.repo = NewURLRepository(db)
}

func (suite *URLRepositoryTestSuite) TearDownSubTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
}

func (suite *URLRepositoryTestSuite) row(id int64, shortCode string, ownerID, flagReason any, clicks int64, flagged bool) *sqlmock.Rows {
	return sqlmock.NewRows(suite.columns).
		AddRow(id, shortCode, "https://example.com", ownerID, clicks, flagged, flagReason, time.Time{}, time.Time{})
}

func (suite *URLRepositoryTestSuite) TestSave() {
	ownerID := "3f1c2a56-6f3e-4c1e-9a43-4f0f8f6f2b10"
	reason := "gambling"
	now := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	url := &entity.URL{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
		OwnerID:     &ownerID,
		Flagged:     true,
		FlagReason:  &reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	suite.Run("short code exists", func() {
		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("abc123", "https://example.com", ownerID, int64(0), true, reason, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		saved, err := suite.repo.Save(suite.ctx, url)

		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(saved)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WillReturnError(suite.errUnknown)

		saved, err := suite.repo.Save(suite.ctx, url)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(saved)
	})

	suite.Run("anonymous unflagged url", func() {
		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("xyz789", "https://example.com", nil, int64(0), false, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(suite.row(2, "xyz789", nil, nil, 0, false))

		saved, err := suite.repo.Save(suite.ctx, &entity.URL{ShortCode: "xyz789", OriginalURL: "https://example.com"})

		suite.NoError(err)
		suite.Equal(int64(2), saved.ID)
		suite.Nil(saved.OwnerID)
		suite.Nil(saved.FlagReason)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("abc123", "https://example.com", ownerID, int64(0), true, reason, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(suite.row(1, "abc123", ownerID, reason, 0, true))

		saved, err := suite.repo.Save(suite.ctx, url)

		suite.NoError(err)
		suite.Equal(int64(1), saved.ID)
		suite.Equal("abc123", saved.ShortCode)
		suite.Equal(ownerID, *saved.OwnerID)
		suite.True(saved.Flagged)
		suite.Equal(reason, *saved.FlagReason)
		suite.Zero(saved.Clicks)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveByID() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id`).
			WithArgs(int64(1)).
			WillReturnError(sql.ErrNoRows)

		url, err := suite.repo.RetrieveByID(suite.ctx, 1)

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id`).
			WithArgs(int64(1)).
			WillReturnError(suite.errUnknown)

		url, err := suite.repo.RetrieveByID(suite.ctx, 1)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id`).
			WithArgs(int64(1)).
			WillReturnRows(suite.row(1, "abc123", nil, nil, 4, false))

		url, err := suite.repo.RetrieveByID(suite.ctx, 1)

		suite.NoError(err)
		suite.Equal("abc123", url.ShortCode)
		suite.Equal(int64(4), url.Clicks)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveByShortCode() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE short_code`).
			WithArgs("abc123").
			WillReturnError(sql.ErrNoRows)

		url, err := suite.repo.RetrieveByShortCode(suite.ctx, "abc123")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE short_code`).
			WithArgs("abc123").
			WillReturnRows(suite.row(1, "abc123", nil, nil, 0, false))

		url, err := suite.repo.RetrieveByShortCode(suite.ctx, "abc123")

		suite.NoError(err)
		suite.Equal(int64(1), url.ID)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveByOwner() {
	ownerID := "3f1c2a56-6f3e-4c1e-9a43-4f0f8f6f2b10"

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE owner_id`).
			WithArgs(ownerID).
			WillReturnError(suite.errUnknown)

		urls, err := suite.repo.RetrieveByOwner(suite.ctx, ownerID)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(urls)
	})

	suite.Run("no urls", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE owner_id`).
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows(suite.columns))

		urls, err := suite.repo.RetrieveByOwner(suite.ctx, ownerID)

		suite.NoError(err)
		suite.NotNil(urls)
		suite.Empty(urls)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow(2, "second", "https://example.com/2", ownerID, 3, false, nil, time.Time{}, time.Time{}).
			AddRow(1, "first", "https://example.com/1", ownerID, 5, false, nil, time.Time{}, time.Time{})

		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE owner_id`).
			WithArgs(ownerID).
			WillReturnRows(rows)

		urls, err := suite.repo.RetrieveByOwner(suite.ctx, ownerID)

		suite.NoError(err)
		suite.Len(urls, 2)
		suite.Equal("second", urls[0].ShortCode)
		suite.Equal(ownerID, *urls[1].OwnerID)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveAllWithOwner() {
	columns := append(append([]string{}, suite.columns...), "owner_name", "owner_email")

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls u LEFT JOIN users`).
			WillReturnError(suite.errUnknown)

		urls, err := suite.repo.RetrieveAllWithOwner(suite.ctx)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(urls)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(columns).
			AddRow(2, "owned", "https://example.com/2", "3f1c2a56-6f3e-4c1e-9a43-4f0f8f6f2b10", 3, true, "phishing",
				time.Time{}, time.Time{}, "Test User", "test@example.com").
			AddRow(1, "anon", "https://example.com/1", nil, 5, false, nil,
				time.Time{}, time.Time{}, nil, nil)

		suite.mock.ExpectQuery(`SELECT (.+) FROM urls u LEFT JOIN users`).
			WillReturnRows(rows)

		urls, err := suite.repo.RetrieveAllWithOwner(suite.ctx)

		suite.NoError(err)
		suite.Len(urls, 2)
		suite.Equal("Test User", *urls[0].OwnerName)
		suite.Equal("test@example.com", *urls[0].OwnerEmail)
		suite.Equal("phishing", *urls[0].FlagReason)
		suite.Nil(urls[1].OwnerName)
		suite.Nil(urls[1].OwnerID)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveTotals() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT COUNT\(\*\) AS urls, COALESCE\(SUM\(clicks\), 0\) AS clicks FROM urls`).
			WillReturnError(suite.errUnknown)

		stats, err := suite.repo.RetrieveTotals(suite.ctx)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(stats)
	})

	suite.Run("empty table", func() {
		suite.mock.ExpectQuery(`SELECT COUNT\(\*\) AS urls`).
			WillReturnRows(sqlmock.NewRows([]string{"urls", "clicks"}).AddRow(0, 0))

		stats, err := suite.repo.RetrieveTotals(suite.ctx)

		suite.NoError(err)
		suite.Equal(&entity.ServiceStats{}, stats)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`SELECT COUNT\(\*\) AS urls`).
			WillReturnRows(sqlmock.NewRows([]string{"urls", "clicks"}).AddRow(17, 245))

		stats, err := suite.repo.RetrieveTotals(suite.ctx)

		suite.NoError(err)
		suite.Equal(&entity.ServiceStats{TotalURLs: 17, TotalClicks: 245}, stats)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveAndUpdateStats() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET clicks = clicks \+ 1`).
			WithArgs("abc123").
			WillReturnError(sql.ErrNoRows)

		url, err := suite.repo.RetrieveAndUpdateStats(suite.ctx, "abc123")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET clicks = clicks \+ 1`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		url, err := suite.repo.RetrieveAndUpdateStats(suite.ctx, "abc123")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET clicks = clicks \+ 1`).
			WithArgs("abc123").
			WillReturnRows(suite.row(1, "abc123", nil, nil, 1, false))

		url, err := suite.repo.RetrieveAndUpdateStats(suite.ctx, "abc123")

		suite.NoError(err)
		suite.Equal(int64(1), url.Clicks)
	})
}

func (suite *URLRepositoryTestSuite) TestUpdateShortCode() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET short_code`).
			WithArgs("new", int64(1)).
			WillReturnError(sql.ErrNoRows)

		url, err := suite.repo.UpdateShortCode(suite.ctx, 1, "new")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("short code exists", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET short_code`).
			WithArgs("taken", int64(1)).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		url, err := suite.repo.UpdateShortCode(suite.ctx, 1, "taken")

		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET short_code`).
			WithArgs("new", int64(1)).
			WillReturnRows(suite.row(1, "new", nil, nil, 0, false))

		url, err := suite.repo.UpdateShortCode(suite.ctx, 1, "new")

		suite.NoError(err)
		suite.Equal("new", url.ShortCode)
	})
}

func (suite *URLRepositoryTestSuite) TestClearFlag() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET flagged = FALSE, flag_reason = NULL`).
			WithArgs(int64(1)).
			WillReturnError(sql.ErrNoRows)

		url, err := suite.repo.ClearFlag(suite.ctx, 1)

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`UPDATE urls SET flagged = FALSE, flag_reason = NULL`).
			WithArgs(int64(1)).
			WillReturnRows(suite.row(1, "abc123", nil, nil, 0, false))

		url, err := suite.repo.ClearFlag(suite.ctx, 1)

		suite.NoError(err)
		suite.False(url.Flagged)
		suite.Nil(url.FlagReason)
	})
}

func (suite *URLRepositoryTestSuite) TestRemove() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs(int64(1)).
			WillReturnError(suite.errUnknown)

		err := suite.repo.Remove(suite.ctx, 1)

		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("affected rows error", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewErrorResult(suite.errAffectedRows))

		err := suite.repo.Remove(suite.ctx, 1)

		suite.ErrorIs(err, suite.errAffectedRows)
	})

	suite.Run("url not found", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.repo.Remove(suite.ctx, 1)

		suite.ErrorIs(err, entity.ErrURLNotFound)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.repo.Remove(suite.ctx, 1)

		suite.NoError(err)
	})
}

func TestURLRepository(t *testing.T) {
	suite.Run(t, new(URLRepositoryTestSuite))
}
