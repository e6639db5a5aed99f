package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestReviewRepository_Create_ReturnsGeneratedFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	review := &domain.Review{
		ProductID:  uuid.New(),
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Rating:     5,
		Content:    "Great product!",
	}

	generatedID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
		WithArgs(review.ProductID, nil, review.CustomerID, review.OrderID, review.Rating, review.Content).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(generatedID, now, now))

	err := repo.Create(context.Background(), review)

	require.NoError(t, err)
	assert.Equal(t, generatedID, review.ID)
	assert.Equal(t, now, review.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_RatingCounts_GroupsByProductAndRating(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	productA := uuid.New()
	productB := uuid.New()

	mock.ExpectQuery("SELECT product_id, rating, COUNT").
		WithArgs(productA, productB).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "rating", "count"}).
			AddRow(productA, 5, 2).
			AddRow(productA, 4, 1).
			AddRow(productB, 3, 4))

	counts, err := repo.RatingCounts(context.Background(), []uuid.UUID{productA, productB})

	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, domain.RatingCount{ProductID: productA, Rating: 5, Count: 2}, counts[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_RatingCounts_NoProducts(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewReviewRepository(db)

	counts, err := repo.RatingCounts(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestReviewRepository_UpdateReply_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reviews")).
		WithArgs("Thanks!", sqlmock.AnyArg(), id).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.UpdateReply(context.Background(), id, "Thanks!")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_SoftDelete_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews")).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SoftDelete(context.Background(), id)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_SoftDelete_AlreadyDeleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews")).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
