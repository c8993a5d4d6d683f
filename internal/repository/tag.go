// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"til/internal/models"
	"til/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	Resolve(ctx context.Context, tagString string) ([]models.Tag, error)
	FindExisting(ctx context.Context, text string) (*models.Tag, error)
	WithTx(tx *gorm.DB) TagRepository
}

// tagRepository implements TagRepository
type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) WithTx(tx *gorm.DB) TagRepository {
	return &tagRepository{db: tx}
}

// SplitTags splits a tag string on single spaces and drops blank tokens.
// Token order and duplicates are preserved.
func SplitTags(tagString string) []string {
	var out []string
	for _, text := range strings.Split(tagString, " ") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// Resolve returns a tag for every token in tagString, reusing existing tags and
// inserting missing ones. New tags are written immediately so later tokens in the
// same call see them; the surrounding transaction is left to the caller.
func (r *tagRepository) Resolve(ctx context.Context, tagString string) (tags []models.Tag, err error) {
	ctx, end := observability.StartSpan(ctx, "TagRepository.Resolve")
	defer func() { end(err) }()

	texts := SplitTags(tagString)
	tags = make([]models.Tag, 0, len(texts))
	for _, text := range texts {
		tag, err := r.FindExisting(ctx, text)
		if err != nil {
			return nil, err
		}
		if tag == nil {
			tag, err = r.create(ctx, text)
			if err != nil {
				return nil, err
			}
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// FindExisting returns the tag with exactly this text, or nil when there is none.
func (r *tagRepository) FindExisting(ctx context.Context, text string) (*models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).
		Where("text = ?", text).
		Limit(1).
		Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return &tags[0], nil
}

// create inserts a tag. A concurrent insert of the same text is absorbed by
// ON CONFLICT DO NOTHING, after which the winner's row is read back.
func (r *tagRepository) create(ctx context.Context, text string) (*models.Tag, error) {
	tag := models.Tag{Text: text}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "text"}}, DoNothing: true}).
		Create(&tag)
	if result.Error != nil && !isUniqueViolation(result.Error) {
		return nil, result.Error
	}
	if result.Error == nil && result.RowsAffected > 0 && tag.ID != 0 {
		observability.TagsCreated.Inc()
		return &tag, nil
	}

	existing, err := r.FindExisting(ctx, text)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("tag vanished after conflicting insert: " + text)
	}
	return existing, nil
}

// isUniqueViolation reports a unique-constraint error from either driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
