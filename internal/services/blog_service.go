package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/models"
)

var nonAlphanumericRun = regexp.MustCompile(`[^a-zA-Z0-9]+`)

type BlogService struct {
	db         *gorm.DB
	events     events.Publisher
	timeout    time.Duration
	slugSuffix func() (string, error)
}

func NewBlogService(db *gorm.DB, cfg *config.Config, publisher events.Publisher) *BlogService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &BlogService{
		db:         db,
		events:     publisher,
		timeout:    cfg.StoreTimeout,
		slugSuffix: func() (string, error) { return gonanoid.New() },
	}
}

// Create validates and stores a blog for authorID. The blog insert and the
// author counter update commit together; a draft adds 0 to total_posts.
func (s *BlogService) Create(ctx context.Context, authorID uuid.UUID, req *dto.CreateBlogRequest) (*models.Blog, error) {
	fields, err := validateBlog(req)
	if err != nil {
		return nil, err
	}

	slug, err := s.slug(fields.Title)
	if err != nil {
		return nil, err
	}

	blog := &models.Blog{
		BlogID:   slug,
		AuthorID: authorID,
		Title:    fields.Title,
		Des:      fields.Des,
		Banner:   fields.Banner,
		Tags:     datatypes.JSONSlice[string](fields.Tags),
		Content:  datatypes.JSON(fields.Content),
		Draft:    fields.Draft,
	}

	increment := 1
	if blog.Draft {
		increment = 0
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.db.WithContext(tctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", authorID).
			Update("total_posts", gorm.Expr("total_posts + ?", increment))
		if res.Error != nil {
			return storeErr("update author counters", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAuthorNotFound
		}

		if err := tx.Create(blog).Error; err != nil {
			return storeErr("insert blog", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	evt := events.BlogCreated{
		BlogID:    blog.BlogID,
		AuthorID:  authorID.String(),
		Title:     blog.Title,
		Summary:   plainText(blog.Des),
		Tags:      fields.Tags,
		Draft:     blog.Draft,
		CreatedAt: blog.CreatedAt,
	}
	if err := s.events.BlogCreated(ctx, evt); err != nil {
		slog.Warn("failed to publish blog event", "blog_id", blog.BlogID, "error", err)
	}

	return blog, nil
}

// CheckDuplicateTitle reports whether the author already has a blog with this
// title. Advisory only: nothing in the store enforces it.
func (s *BlogService) CheckDuplicateTitle(ctx context.Context, authorID uuid.UUID, title string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Blog{}).
		Where("title = ? AND author_id = ?", title, authorID).
		Count(&count).Error
	if err != nil {
		return false, storeErr("check duplicate title", err)
	}
	return count > 0, nil
}

func (s *BlogService) slug(title string) (string, error) {
	suffix, err := s.slugSuffix()
	if err != nil {
		return "", fmt.Errorf("failed to generate slug suffix: %w", err)
	}
	return slugBase(title) + suffix, nil
}

// slugBase lower-cases the title and collapses every non-alphanumeric run
// into one hyphen.
func slugBase(title string) string {
	return strings.ToLower(strings.Trim(nonAlphanumericRun.ReplaceAllString(title, "-"), "-"))
}
