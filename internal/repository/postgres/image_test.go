package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageRows(id uuid.UUID, url string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "url", "attribution", "created_at"}).
		AddRow(id, url, nil, createdAt)
}

func TestImageRepository_FindOrCreate_ExistingURL(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewImageRepository(db)

	url := "https://cdn.example.com/a.jpg"
	existingID := uuid.New()
	createdAt := time.Now()

	// The URL is already known: only the lookup runs, no INSERT
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url, attribution, created_at FROM images WHERE url = $1")).
		WithArgs(url).
		WillReturnRows(imageRows(existingID, url, createdAt))

	image, err := repo.FindOrCreate(context.Background(), url)

	require.NoError(t, err)
	assert.Equal(t, existingID, image.ID)
	assert.Equal(t, url, image.URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_FindOrCreate_NewURL(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewImageRepository(db)

	url := "https://cdn.example.com/b.jpg"
	generatedID := uuid.New()
	createdAt := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url, attribution, created_at FROM images WHERE url = $1")).
		WithArgs(url).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "attribution", "created_at"}))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO images")).
		WithArgs(url).
		WillReturnRows(imageRows(generatedID, url, createdAt))

	image, err := repo.FindOrCreate(context.Background(), url)

	require.NoError(t, err)
	assert.Equal(t, generatedID, image.ID)
	assert.Equal(t, url, image.URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_FindOrCreate_SecondCallerConvergesOnSameRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewImageRepository(db)

	url := "https://cdn.example.com/shared.jpg"
	imageID := uuid.New()
	createdAt := time.Now()

	// First review references the URL: miss, then insert
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url, attribution, created_at FROM images WHERE url = $1")).
		WithArgs(url).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "attribution", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO images")).
		WithArgs(url).
		WillReturnRows(imageRows(imageID, url, createdAt))

	// Second review references the same URL: lookup alone resolves it
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url, attribution, created_at FROM images WHERE url = $1")).
		WithArgs(url).
		WillReturnRows(imageRows(imageID, url, createdAt))

	first, err := repo.FindOrCreate(context.Background(), url)
	require.NoError(t, err)

	second, err := repo.FindOrCreate(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_GetByIDs_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewImageRepository(db)

	images, err := repo.GetByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, images)
}
