package repository

import (
	"context"
	"errors"
	"testing"

	"til/internal/models"
	"til/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected []string
	}{
		{"Empty", "", nil},
		{"Single", "go", []string{"go"}},
		{"Two", "go rust", []string{"go", "rust"}},
		{"Blank tokens dropped", "  go   rust ", []string{"go", "rust"}},
		{"Only spaces", "    ", nil},
		{"Duplicates kept", "go go", []string{"go", "go"}},
		{"Case preserved", "Go go", []string{"Go", "go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitTags(tt.in))
		})
	}
}

func TestTagRepository_ResolveIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	first, err := repo.Resolve(ctx, "go")
	require.NoError(t, err)
	second, err := repo.Resolve(ctx, "go")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotZero(t, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Where("text = ?", "go").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTagRepository_ResolveOrderAndDuplicates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	tags, err := repo.Resolve(ctx, "rust  go rust")
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "rust", tags[0].Text)
	assert.Equal(t, "go", tags[1].Text)
	assert.Equal(t, tags[0].ID, tags[2].ID)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTagRepository_ResolveBlank(t *testing.T) {
	db := testutil.NewTestDB(t)
	tags, err := NewTagRepository(db).Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagRepository_FindExisting(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Tag{Text: "go"}).Error)

	tag, err := repo.FindExisting(ctx, "go")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "go", tag.Text)

	missing, err := repo.FindExisting(ctx, "Go")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTagRepository_CreateAfterConcurrentInsert(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := &tagRepository{db: db}
	ctx := context.Background()

	winner := models.Tag{Text: "go"}
	require.NoError(t, db.Create(&winner).Error)

	// the lookup missed, another request inserted first
	tag, err := repo.create(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, tag.ID)
}

func TestTagRepository_ResolveWithinTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		tags, err := repo.WithTx(tx).Resolve(ctx, "go")
		require.NoError(t, err)
		require.Len(t, tags, 1)

		again, err := repo.WithTx(tx).FindExisting(ctx, "go")
		require.NoError(t, err)
		require.NotNil(t, again)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	missing, err := repo.FindExisting(ctx, "go")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}
