package repository

import (
	"context"
	"time"

	"til/internal/models"
	"til/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, text, tagString string) (*models.Post, error)
	ListAll(ctx context.Context) ([]models.Post, error)
	WithTx(tx *gorm.DB) PostRepository
}

// postRepository implements PostRepository
type postRepository struct {
	db   *gorm.DB
	tags TagRepository
	now  func() time.Time
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, tags: NewTagRepository(db), now: time.Now}
}

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository {
	return &postRepository{db: tx, tags: r.tags.WithTx(tx), now: r.now}
}

// Create inserts a post, resolves its tags and links them. Nothing is committed
// here; run it on a transaction handle via WithTx.
func (r *postRepository) Create(ctx context.Context, text, tagString string) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostRepository.Create",
		attribute.Int("post.text_length", len(text)))
	defer func() { end(err) }()

	post = &models.Post{Text: text, Created: r.now().UTC()}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}

	tags, err := r.tags.Resolve(ctx, tagString)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		links := make([]models.PostTag, 0, len(tags))
		for _, tag := range tags {
			links = append(links, models.PostTag{PostID: post.ID, TagID: tag.ID})
		}
		if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&links).Error; err != nil {
			return nil, err
		}
	}

	post.Tags = tags
	return post, nil
}

// ListAll returns every post, newest first, each with its tags. Tags are
// fetched with one query per post.
func (r *postRepository) ListAll(ctx context.Context) (posts []models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostRepository.ListAll")
	defer func() { end(err) }()

	if err := r.db.WithContext(ctx).
		Order("created DESC").
		Order("id DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}

	for i := range posts {
		tags, err := r.tagsFor(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Tags = tags
	}

	return posts, nil
}

func (r *postRepository) tagsFor(ctx context.Context, postID uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Distinct("tags.id", "tags.text").
		Joins("JOIN post_tags ON post_tags.tag = tags.id").
		Where("post_tags.post = ?", postID).
		Order("tags.id").
		Find(&tags).Error
	return tags, err
}
