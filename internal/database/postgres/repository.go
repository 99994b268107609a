package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mbelyaev/url-shortener/internal/database"
	"github.com/mbelyaev/url-shortener/internal/models"
)

type urlRecord struct {
	ID          int64      `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	OwnerID     int64      `db:"owner_id"`
	ClickCount  int64      `db:"click_count"`
	IsActive    bool       `db:"is_active"`
	ExpiresAt   *time.Time `db:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		OwnerID:     r.OwnerID,
		ClickCount:  r.ClickCount,
		IsActive:    r.IsActive,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// URLRepository provides access to shortened URLs and their click events.
// All cross-request coordination relies on the database: the unique constraint
// on short_code, row locks taken by UPDATE, and transactions.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new url record. A short code collision surfaces as
// database.ErrShortCodeExists so that the caller can retry with a fresh code.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, ownerID int64, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, owner_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, ownerID, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode fetches a url record without touching its click counter.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// ListByOwner returns the owner's urls in creation order.
func (r *URLRepository) ListByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.URL, error) {
	const op = "database.postgres.URLRepository.ListByOwner"

	var recs []urlRecord
	query := `SELECT * FROM urls
		WHERE owner_id = $1
		ORDER BY id
		OFFSET $2 LIMIT $3`

	err := r.db.SelectContext(ctx, &recs, query, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	urls := make([]models.URL, 0, len(recs))
	for _, rec := range recs {
		urls = append(urls, *rec.ToURL())
	}

	return urls, nil
}

// RegisterClick increments the url's click counter and appends a click event
// in a single transaction, so the aggregate count and the event log never
// diverge. The increment happens inside the UPDATE statement; the application
// never reads, adds and writes the counter back.
func (r *URLRepository) RegisterClick(ctx context.Context, urlID int64, click models.ClickMeta) (*models.URL, error) {
	const op = "database.postgres.URLRepository.RegisterClick"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := new(urlRecord)
	updateQuery := `UPDATE urls
		SET click_count = click_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING *`

	if err := tx.GetContext(ctx, rec, updateQuery, urlID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update click count: %w", op, err)
	}

	insertQuery := `INSERT INTO url_clicks(url_id, ip_address, user_agent, referer, country, city)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.ExecContext(ctx, insertQuery, urlID,
		nullString(click.IPAddress), nullString(click.UserAgent), nullString(click.Referer),
		nullString(click.Country), nullString(click.City))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to insert click record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToURL(), nil
}

// SetActive flips the url's active flag. Only the owner or a privileged
// requester may do this.
func (r *URLRepository) SetActive(ctx context.Context, shortCode string, active bool, requesterID int64, isPrivileged bool) (*models.URL, error) {
	const op = "database.postgres.URLRepository.SetActive"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := new(urlRecord)
	selectQuery := `SELECT * FROM urls WHERE short_code = $1 FOR UPDATE`

	if err := tx.GetContext(ctx, rec, selectQuery, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	if rec.OwnerID != requesterID && !isPrivileged {
		return nil, fmt.Errorf("%s: %w", op, database.ErrForbidden)
	}

	updateQuery := `UPDATE urls
		SET is_active = $1, updated_at = now()
		WHERE id = $2
		RETURNING *`

	if err := tx.GetContext(ctx, rec, updateQuery, active, rec.ID); err != nil {
		return nil, fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Delete removes a url record owned by the requester. Privileged requesters
// bypass the ownership check. Associated click records are removed by the
// ON DELETE CASCADE constraint.
func (r *URLRepository) Delete(ctx context.Context, shortCode string, requesterID int64, isPrivileged bool) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Delete"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := new(urlRecord)
	selectQuery := `SELECT * FROM urls WHERE short_code = $1 FOR UPDATE`

	if err := tx.GetContext(ctx, rec, selectQuery, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	if rec.OwnerID != requesterID && !isPrivileged {
		return nil, fmt.Errorf("%s: %w", op, database.ErrForbidden)
	}

	deleteQuery := `DELETE FROM urls WHERE id = $1`

	if _, err := tx.ExecContext(ctx, deleteQuery, rec.ID); err != nil {
		return nil, fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToURL(), nil
}
