// Package service holds the application's use cases on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"til/internal/cache"
	"til/internal/models"
	"til/internal/observability"
	"til/internal/repository"

	"gorm.io/gorm"
)

type PostService struct {
	db       *gorm.DB
	postRepo repository.PostRepository
	cache    *cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

// NewPostService builds the service. cache may be nil.
func NewPostService(db *gorm.DB, postRepo repository.PostRepository, c *cache.Cache, cacheTTL time.Duration, log *slog.Logger) *PostService {
	if log == nil {
		log = slog.Default()
	}
	return &PostService{
		db:       db,
		postRepo: postRepo,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// CreatePost stores a post and its tags in one transaction.
func (s *PostService) CreatePost(ctx context.Context, text, tags string) (*models.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Post text is required")
	}

	var post *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		post, err = s.postRepo.WithTx(tx).Create(ctx, text, tags)
		return err
	})
	if err != nil {
		s.log.ErrorContext(ctx, "create post failed", slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	s.cache.Bump(ctx, cache.PostsGenKey, cache.PostsKey)
	observability.PostsCreated.Inc()
	s.log.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Any("tags", post.TagTexts()),
	)
	return post, nil
}

// ListPosts returns every post newest first, served from the cache when possible.
// The generation is read before the store, so a list loaded concurrently with a
// create is cached under a generation that the create has already retired.
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	c := s.cache
	gen, err := c.Generation(ctx, cache.PostsGenKey)
	if err != nil {
		s.log.WarnContext(ctx, "posts cache generation unavailable, reading store", slog.String("error", err.Error()))
		c = nil
	}

	posts, err := cache.Aside(ctx, c, cache.PostsKey(gen), s.cacheTTL, s.postRepo.ListAll)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
