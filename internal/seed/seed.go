// Package seed provides database seeding utilities for bootstrap and local
// development.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"til/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// ReadmeTag labels the post created from the README at init.
const ReadmeTag = "blogging"

// PostCreator is the write side of the post service.
type PostCreator interface {
	CreatePost(ctx context.Context, text, tags string) (*models.Post, error)
}

// Options configuration for the seeder
type Options struct {
	NumPosts int
	// Seed makes fake content reproducible; 0 picks a random seed.
	Seed int64
}

var topics = []string{
	"go", "rust", "python", "sql", "postgres", "sqlite", "redis", "linux",
	"git", "http", "tls", "dns", "docker", "kubernetes", "testing", "css",
}

// Readme stores the file at path as a post tagged ReadmeTag.
func Readme(ctx context.Context, posts PostCreator, path string) (*models.Post, error) {
	raw, err := os.ReadFile(path) // #nosec G304: path comes from the CLI
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return posts.CreatePost(ctx, string(raw), ReadmeTag)
}

// FakePosts inserts opts.NumPosts posts with generated text and one to three
// tags drawn from a fixed topic list.
func FakePosts(ctx context.Context, posts PostCreator, opts Options) ([]*models.Post, error) {
	faker := gofakeit.New(opts.Seed)

	created := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		text := fmt.Sprintf("%s\n\n%s", faker.Sentence(8), faker.Paragraph(1, 3, 12, "\n\n"))
		post, err := posts.CreatePost(ctx, text, fakeTags(faker))
		if err != nil {
			return created, fmt.Errorf("fake post %d: %w", i+1, err)
		}
		created = append(created, post)
	}
	return created, nil
}

func fakeTags(faker *gofakeit.Faker) string {
	n := faker.Number(1, 3)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, topics[faker.Number(0, len(topics)-1)])
	}
	return strings.Join(tags, " ")
}
