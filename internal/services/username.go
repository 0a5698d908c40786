package services

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/models"
)

const (
	alphanumeric       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	usernameSuffixLen  = 4
	minUsernameLen     = 3
	defaultMaxAttempts = 10
)

// UsernameAllocator derives a handle from an email and resolves collisions
// against existing users. The check is advisory: the unique index on
// users.username is what finally rejects a race loser.
type UsernameAllocator struct {
	db          *gorm.DB
	maxAttempts int
	suffix      func() (string, error)
	digit       func() (string, error)
}

func NewUsernameAllocator(db *gorm.DB, maxAttempts int) *UsernameAllocator {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &UsernameAllocator{
		db:          db,
		maxAttempts: maxAttempts,
		suffix:      func() (string, error) { return gonanoid.Generate(alphanumeric, usernameSuffixLen) },
		digit:       func() (string, error) { return gonanoid.Generate("0123456789", 1) },
	}
}

// Allocate returns an unused username, trying the base handle first and
// then base+suffix until maxAttempts lookups have been spent.
func (a *UsernameAllocator) Allocate(ctx context.Context, email string) (string, error) {
	base, err := a.base(email)
	if err != nil {
		return "", err
	}

	candidate := base
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		taken, err := a.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		suffix, err := a.suffix()
		if err != nil {
			return "", fmt.Errorf("failed to generate username suffix: %w", err)
		}
		candidate = base + suffix
	}
	return "", fmt.Errorf("%w after %d attempts for %q", ErrAllocationExhausted, a.maxAttempts, base)
}

func (a *UsernameAllocator) base(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	for b.Len() < minUsernameLen {
		d, err := a.digit()
		if err != nil {
			return "", fmt.Errorf("failed to pad username: %w", err)
		}
		b.WriteString(d)
	}
	return b.String(), nil
}

func (a *UsernameAllocator) exists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, storeErr("check username", err)
	}
	return count > 0, nil
}
