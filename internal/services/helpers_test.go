package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/testutil"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           testSecret,
		BcryptCost:          bcrypt.MinCost,
		UsernameMaxAttempts: 10,
		StoreTimeout:        5 * time.Second,
	}
}

type fakeVerifier struct {
	identity *FederatedIdentity
	err      error
	calls    int
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*FederatedIdentity, error) {
	f.calls++
	return f.identity, f.err
}

type fakeHasher struct {
	hashErr    error
	compareErr error
}

func (f fakeHasher) Hash(password string) (string, error) {
	if f.hashErr != nil {
		return "", f.hashErr
	}
	return "hashed:" + password, nil
}

func (f fakeHasher) Compare(_, _ string) error {
	return f.compareErr
}

var errBoom = errors.New("boom")

func newAuthService(t *testing.T) (*AuthService, *gorm.DB, *fakeVerifier) {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testConfig()
	verifier := &fakeVerifier{}
	svc := NewAuthService(db, cfg, NewTokenService(cfg.JWTSecret, cfg.TokenTTL), verifier)
	return svc, db, verifier
}

func createAuthor(t *testing.T, db *gorm.DB, email, username string) *models.User {
	t.Helper()
	user := models.NewLocalUser("Test Author", email, username, "hash")
	require.NoError(t, db.Create(user).Error)
	return user
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
