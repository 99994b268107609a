package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbelyaev/url-shortener/internal/database"
	"github.com/mbelyaev/url-shortener/internal/models"
)

var (
	// ErrCodeSpaceExhausted is returned when every generation attempt collided
	// with an existing code. Unlike a transient storage error it signals that
	// the code space is too crowded for the configured length.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")
	// ErrURLInactive is returned when a redirect is requested for a deactivated URL.
	ErrURLInactive = errors.New("url is inactive")
	// ErrURLExpired is returned when a redirect is requested for an expired URL.
	ErrURLExpired = errors.New("url has expired")
)

// maxShortenRetries caps collision retries during short code allocation.
// Exceeding it means the code space is effectively full for the configured
// length, which is reported to the caller instead of looping forever.
const maxShortenRetries = 10

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL. It returns database.ErrShortCodeExists
	// when the short code is already taken, which the service treats as a
	// collision signal to retry.
	Create(ctx context.Context, shortCode, originalURL string, ownerID int64, expiresAt *time.Time) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code without recording a visit.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// ListByOwner returns the owner's URLs in creation order.
	ListByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.URL, error)

	// RegisterClick atomically increments the URL's click counter and appends
	// a click event, returning the updated URL.
	RegisterClick(ctx context.Context, urlID int64, click models.ClickMeta) (*models.URL, error)

	// SetActive flips the URL's active flag on behalf of the requester.
	SetActive(ctx context.Context, shortCode string, active bool, requesterID int64, isPrivileged bool) (*models.URL, error)

	// Delete removes the URL and, by cascade, its click events.
	Delete(ctx context.Context, shortCode string, requesterID int64, isPrivileged bool) (*models.URL, error)
}

// URLService implements the URL shortening and resolution logic on top of a
// URLRepository. It owns short code allocation and the lifecycle checks made
// on the read path.
type URLService struct {
	repo            URLRepository
	shortCodeLength int
}

// NewURLService creates a new URLService with the provided repository and short code length.
func NewURLService(repo URLRepository, shortCodeLength int) *URLService {
	return &URLService{
		repo:            repo,
		shortCodeLength: shortCodeLength,
	}
}

// ShortenURL generates a short code for the provided original URL and stores it.
// The candidate code is committed in a single insert; the unique constraint on
// short_code decides races between concurrent callers, and a lost race simply
// triggers another attempt with a fresh code.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string, ownerID int64, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	for i := 0; i < maxShortenRetries; i++ {
		shortCode, err := generateShortCode(s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL, ownerID, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrCodeSpaceExhausted)
}

// ResolveRedirect resolves a short code into its destination URL and records
// the visit. Redirects are denied for inactive and expired URLs; in both cases
// no click is recorded. The caller performs the actual HTTP redirect.
func (s *URLService) ResolveRedirect(ctx context.Context, shortCode string, click models.ClickMeta) (*models.URL, error) {
	const op = "service.URLService.ResolveRedirect"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if !url.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrURLInactive)
	}

	if url.Expired() {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	url, err = s.repo.RegisterClick(ctx, url.ID, click)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register click: %w", op, err)
	}

	return url, nil
}

// ResolveDetails retrieves a URL by its short code. Reading details does not
// count as a visit, and inactive or expired URLs are still readable.
func (s *URLService) ResolveDetails(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveDetails"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url details: %w", op, err)
	}

	return url, nil
}

// ListURLs returns the owner's URLs in creation order.
func (s *URLService) ListURLs(ctx context.Context, ownerID int64, offset, limit int) ([]models.URL, error) {
	const op = "service.URLService.ListURLs"

	urls, err := s.repo.ListByOwner(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}

// SetURLStatus activates or deactivates the URL on behalf of the requester.
func (s *URLService) SetURLStatus(ctx context.Context, shortCode string, active bool, requesterID int64, isPrivileged bool) (*models.URL, error) {
	const op = "service.URLService.SetURLStatus"

	url, err := s.repo.SetActive(ctx, shortCode, active, requesterID, isPrivileged)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to set url status: %w", op, err)
	}

	return url, nil
}

// DeleteURL deletes the URL associated with the provided short code together
// with its click events. Only the owner or a privileged requester may delete.
func (s *URLService) DeleteURL(ctx context.Context, shortCode string, requesterID int64, isPrivileged bool) (*models.URL, error) {
	const op = "service.URLService.DeleteURL"

	url, err := s.repo.Delete(ctx, shortCode, requesterID, isPrivileged)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return url, nil
}
