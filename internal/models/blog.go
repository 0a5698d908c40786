package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Blog is a submitted post. BlogID is the public slug.
type Blog struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	BlogID    string                      `gorm:"size:512;not null;uniqueIndex:idx_blogs_blog_id" json:"blog_id"`
	AuthorID  uuid.UUID                   `gorm:"type:uuid;not null;index:idx_blogs_author_title,priority:1" json:"author"`
	Title     string                      `gorm:"size:512;not null;index:idx_blogs_author_title,priority:2" json:"title"`
	Des       string                      `gorm:"size:1024" json:"des"`
	Banner    string                      `gorm:"size:1024" json:"banner"`
	Tags      datatypes.JSONSlice[string] `json:"tags"`
	Content   datatypes.JSON              `json:"content"`
	Draft     bool                        `gorm:"not null;default:false" json:"draft"`
	CreatedAt time.Time                   `json:"publishedAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
