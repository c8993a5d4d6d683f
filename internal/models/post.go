// Package models contains data structures for the application's domain models.
package models

import "time"

// Post is a single TIL entry.
type Post struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	Text    string    `gorm:"type:text;not null" json:"text"`
	Created time.Time `gorm:"not null;index" json:"created"`
	// Tags is not persisted; filled by the post repository when listing
	Tags []Tag `gorm:"-" json:"tags"`
}

// Tag is a subject shared by many posts. Text is unique across all tags.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Text string `gorm:"type:text;not null;uniqueIndex" json:"text"`
}

// PostTag joins a Post to a Tag. One row exists per (post, tag) pair created.
type PostTag struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"column:post;not null;index" json:"post"`
	Post   Post `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	TagID  uint `gorm:"column:tag;not null;index" json:"tag"`
	Tag    Tag  `gorm:"foreignKey:TagID;references:ID" json:"-"`
}

// TagTexts returns the text of each tag on the post.
func (p *Post) TagTexts() []string {
	out := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		out = append(out, t.Text)
	}
	return out
}
