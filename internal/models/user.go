package models

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNoAuthMethod is returned when a user would be persisted without a
// password hash and without federated auth.
var ErrNoAuthMethod = errors.New("user must have a password or federated auth")

// User is an author account. Owned blogs are reachable through Blogs.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Fullname     string    `gorm:"size:255;not null" json:"fullname"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	Username     string    `gorm:"size:255;not null;uniqueIndex:idx_users_username" json:"username"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	GoogleAuth   bool      `gorm:"not null;default:false" json:"google_auth"`
	ProfileImg   string    `gorm:"size:1024" json:"profile_img"`
	TotalPosts   int64     `gorm:"not null;default:0" json:"total_posts"`
	TotalReads   int64     `gorm:"not null;default:0" json:"total_reads"`
	Blogs        []Blog    `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credential is how a user proves identity: LocalCredential or FederatedCredential.
type Credential interface {
	credential()
}

type LocalCredential struct {
	PasswordHash string
}

type FederatedCredential struct {
	Provider string
}

func (LocalCredential) credential()     {}
func (FederatedCredential) credential() {}

const ProviderGoogle = "google"

// NewLocalUser builds a password-backed user.
func NewLocalUser(fullname, email, username, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Fullname:     fullname,
		Email:        email,
		Username:     username,
		PasswordHash: &passwordHash,
		ProfileImg:   DefaultProfileImg(username),
	}
}

// NewFederatedUser builds a user established by a third-party identity provider.
func NewFederatedUser(fullname, email, username, picture string) *User {
	if picture == "" {
		picture = DefaultProfileImg(username)
	}
	return &User{
		ID:         uuid.New(),
		Fullname:   fullname,
		Email:      email,
		Username:   username,
		GoogleAuth: true,
		ProfileImg: picture,
	}
}

// Credential returns the password credential when present, otherwise the
// federated one. Nil only for a user that would fail BeforeCreate.
func (u *User) Credential() Credential {
	if u.PasswordHash != nil && *u.PasswordHash != "" {
		return LocalCredential{PasswordHash: *u.PasswordHash}
	}
	if u.GoogleAuth {
		return FederatedCredential{Provider: ProviderGoogle}
	}
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Credential() == nil {
		return ErrNoAuthMethod
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DefaultProfileImg is the generated avatar used until the author uploads one.
func DefaultProfileImg(seed string) string {
	return "https://api.dicebear.com/6.x/notionists-neutral/svg?seed=" + url.QueryEscape(seed)
}
