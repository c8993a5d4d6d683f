package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"til/internal/models"
	"til/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i%len(times)]
		i++
		return t
	}
}

func tagTexts(tags []models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.Text)
	}
	return out
}

func TestPostRepository_CreateAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post, err := repo.Create(ctx, "Learned about goroutines", "go concurrency")
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.False(t, post.Created.IsZero())
	assert.Equal(t, []string{"go", "concurrency"}, tagTexts(post.Tags))

	posts, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Learned about goroutines", posts[0].Text)
	assert.ElementsMatch(t, []string{"go", "concurrency"}, tagTexts(posts[0].Tags))
}

func TestPostRepository_ListAllNewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &postRepository{
		db:   db,
		tags: NewTagRepository(db),
		// inserted out of chronological order
		now: fixedClock(base.Add(time.Hour), base, base.Add(2*time.Hour)),
	}
	ctx := context.Background()

	for _, text := range []string{"middle", "oldest", "newest"} {
		_, err := repo.Create(ctx, text, "")
		require.NoError(t, err)
	}

	posts, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "newest", posts[0].Text)
	assert.Equal(t, "middle", posts[1].Text)
	assert.Equal(t, "oldest", posts[2].Text)
	for _, p := range posts {
		assert.Empty(t, p.Tags)
	}
}

func TestPostRepository_ReusesExistingTags(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, "Learned X", "go rust")
	require.NoError(t, err)
	second, err := repo.Create(ctx, "Learned Y", "rust python")
	require.NoError(t, err)

	var rust []models.Tag
	require.NoError(t, db.Where("text = ?", "rust").Find(&rust).Error)
	require.Len(t, rust, 1)

	var links []models.PostTag
	require.NoError(t, db.Where("tag = ?", rust[0].ID).Order("post").Find(&links).Error)
	require.Len(t, links, 2)
	assert.Equal(t, first.ID, links[0].PostID)
	assert.Equal(t, second.ID, links[1].PostID)

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(3), tagCount)
}

func TestPostRepository_BlankTokensCreateNoTags(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post, err := repo.Create(ctx, "spaces only", "   ")
	require.NoError(t, err)
	assert.Empty(t, post.Tags)

	var tagCount, linkCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	require.NoError(t, db.Model(&models.PostTag{}).Count(&linkCount).Error)
	assert.Zero(t, tagCount)
	assert.Zero(t, linkCount)
}

func TestPostRepository_DuplicateTokenListedOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, "twice", "go go")
	require.NoError(t, err)

	posts, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"go"}, tagTexts(posts[0].Tags))
}

func TestPostRepository_RollbackLeavesNothing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.WithTx(tx).Create(ctx, "doomed", "go")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	posts, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Zero(t, tagCount)
}

func TestPostRepository_ListAllDatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(errors.New("connection reset"))

	posts, err := repo.ListAll(context.Background())
	assert.Error(t, err)
	assert.Nil(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListAllQueriesTagsPerPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "created"}).
			AddRow(2, "second", now).
			AddRow(1, "first", now.Add(-time.Minute)))
	mock.ExpectQuery(`SELECT DISTINCT .* FROM "tags"`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow(1, "go"))
	mock.ExpectQuery(`SELECT DISTINCT .* FROM "tags"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}))

	posts, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"go"}, tagTexts(posts[0].Tags))
	assert.Empty(t, posts[1].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}
