package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/mbelyaev/url-shortener/internal/database"
	"github.com/mbelyaev/url-shortener/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string, ownerID int64, expiresAt *time.Time) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL, ownerID, expiresAt)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) ListByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.URL, error) {
	args := r.Called(ctx, ownerID, offset, limit)
	urls, _ := args.Get(0).([]models.URL)
	return urls, args.Error(1)
}

func (r *MockURLRepository) RegisterClick(ctx context.Context, urlID int64, click models.ClickMeta) (*models.URL, error) {
	args := r.Called(ctx, urlID, click)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) SetActive(ctx context.Context, shortCode string, active bool, requesterID int64, isPrivileged bool) (*models.URL, error) {
	args := r.Called(ctx, shortCode, active, requesterID, isPrivileged)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) Delete(ctx context.Context, shortCode string, requesterID int64, isPrivileged bool) (*models.URL, error) {
	args := r.Called(ctx, shortCode, requesterID, isPrivileged)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

type URLServiceTestSuite struct {
	suite.Suite
	errUnknown  error
	urlRepoMock *MockURLRepository
	svc         *URLService
}

func (suite *URLServiceTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *URLServiceTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.svc = NewURLService(suite.urlRepoMock, 6)
}

func (suite *URLServiceTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
}

func (suite *URLServiceTestSuite) TestShortenURL() {
	suite.Run("short code generation error", func() {
		suite.svc.shortCodeLength = -1

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com", 1, nil)

		suite.Error(err)
		suite.Nil(url)
	})

	suite.Run("code space exhausted", func() {
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com", int64(1), (*time.Time)(nil)).
			Times(maxShortenRetries).
			Return(nil, database.ErrShortCodeExists)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com", 1, nil)

		suite.Error(err)
		suite.ErrorIs(err, ErrCodeSpaceExhausted)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com", int64(1), (*time.Time)(nil)).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com", 1, nil)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("retries collision with a fresh code", func() {
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com", int64(1), (*time.Time)(nil)).
			Once().
			Return(nil, database.ErrShortCodeExists)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com", int64(1), (*time.Time)(nil)).
			Once().
			Return(&models.URL{
				ShortCode:   "aB3xY9",
				OriginalURL: "https://example.com",
				OwnerID:     1,
				IsActive:    true,
			}, nil)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com", 1, nil)

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("aB3xY9", url.ShortCode)
	})

	suite.Run("success", func() {
		codePattern := regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

		suite.urlRepoMock.
			On("Create", context.Background(), mock.MatchedBy(func(code string) bool {
				return codePattern.MatchString(code)
			}), "https://example.com", int64(1), (*time.Time)(nil)).
			Once().
			Return(&models.URL{
				ShortCode:   "aB3xY9",
				OriginalURL: "https://example.com",
				OwnerID:     1,
				IsActive:    true,
			}, nil)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com", 1, nil)

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Zero(url.ClickCount)
	})
}

func (suite *URLServiceTestSuite) TestResolveRedirect() {
	click := models.ClickMeta{IPAddress: "203.0.113.10", UserAgent: "curl/8.0"}

	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := suite.svc.ResolveRedirect(context.Background(), "abc123", click)

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("inactive url is denied without counting", func() {
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(&models.URL{ID: 7, ShortCode: "abc123", IsActive: false}, nil)

		url, err := suite.svc.ResolveRedirect(context.Background(), "abc123", click)

		suite.Error(err)
		suite.ErrorIs(err, ErrURLInactive)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "RegisterClick", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("expired url is denied without counting", func() {
		expiresAt := time.Now().Add(-time.Hour)

		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(&models.URL{ID: 7, ShortCode: "abc123", IsActive: true, ExpiresAt: &expiresAt}, nil)

		url, err := suite.svc.ResolveRedirect(context.Background(), "abc123", click)

		suite.Error(err)
		suite.ErrorIs(err, ErrURLExpired)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "RegisterClick", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("success records the click", func() {
		expiresAt := time.Now().Add(time.Hour)

		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(&models.URL{
				ID:          7,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com/page",
				IsActive:    true,
				ExpiresAt:   &expiresAt,
			}, nil)
		suite.urlRepoMock.
			On("RegisterClick", context.Background(), int64(7), click).
			Once().
			Return(&models.URL{
				ID:          7,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com/page",
				ClickCount:  1,
				IsActive:    true,
			}, nil)

		url, err := suite.svc.ResolveRedirect(context.Background(), "abc123", click)

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com/page", url.OriginalURL)
		suite.Equal(int64(1), url.ClickCount)
	})
}

func (suite *URLServiceTestSuite) TestResolveDetails() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := suite.svc.ResolveDetails(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("details read does not count a click", func() {
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(&models.URL{ID: 7, ShortCode: "abc123", ClickCount: 2, IsActive: true}, nil)

		url, err := suite.svc.ResolveDetails(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(int64(2), url.ClickCount)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "RegisterClick", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("inactive url is still readable", func() {
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc123").
			Once().
			Return(&models.URL{ID: 7, ShortCode: "abc123", IsActive: false}, nil)

		url, err := suite.svc.ResolveDetails(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.False(url.IsActive)
	})
}

func (suite *URLServiceTestSuite) TestListURLs() {
	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("ListByOwner", context.Background(), int64(1), 0, 100).
			Once().
			Return(nil, suite.errUnknown)

		urls, err := suite.svc.ListURLs(context.Background(), 1, 0, 100)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(urls)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("ListByOwner", context.Background(), int64(1), 0, 100).
			Once().
			Return([]models.URL{
				{ID: 1, ShortCode: "code1"},
				{ID: 2, ShortCode: "code2"},
			}, nil)

		urls, err := suite.svc.ListURLs(context.Background(), 1, 0, 100)

		suite.NoError(err)
		suite.Len(urls, 2)
		suite.Equal("code1", urls[0].ShortCode)
	})
}

func (suite *URLServiceTestSuite) TestSetURLStatus() {
	suite.Run("forbidden", func() {
		suite.urlRepoMock.
			On("SetActive", context.Background(), "abc123", false, int64(2), false).
			Once().
			Return(nil, database.ErrForbidden)

		url, err := suite.svc.SetURLStatus(context.Background(), "abc123", false, 2, false)

		suite.Error(err)
		suite.ErrorIs(err, database.ErrForbidden)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("SetActive", context.Background(), "abc123", false, int64(1), false).
			Once().
			Return(&models.URL{ID: 7, ShortCode: "abc123", IsActive: false}, nil)

		url, err := suite.svc.SetURLStatus(context.Background(), "abc123", false, 1, false)

		suite.NoError(err)
		suite.NotNil(url)
		suite.False(url.IsActive)
	})
}

func (suite *URLServiceTestSuite) TestDeleteURL() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("Delete", context.Background(), "abc123", int64(1), false).
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := suite.svc.DeleteURL(context.Background(), "abc123", 1, false)

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("forbidden", func() {
		suite.urlRepoMock.
			On("Delete", context.Background(), "abc123", int64(2), false).
			Once().
			Return(nil, database.ErrForbidden)

		url, err := suite.svc.DeleteURL(context.Background(), "abc123", 2, false)

		suite.Error(err)
		suite.ErrorIs(err, database.ErrForbidden)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Delete", context.Background(), "abc123", int64(1), false).
			Once().
			Return(&models.URL{ID: 7, ShortCode: "abc123", ClickCount: 3}, nil)

		url, err := suite.svc.DeleteURL(context.Background(), "abc123", 1, false)

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(int64(3), url.ClickCount)
	})
}

func TestURLService(t *testing.T) {
	suite.Run(t, new(URLServiceTestSuite))
}
