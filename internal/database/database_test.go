package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/testutil"
)

func TestMigrate_CreatesTables(t *testing.T) {
	db := testutil.NewDB(t)

	for _, m := range []interface{}{&models.User{}, &models.Blog{}, &models.SystemLog{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.User{}, "idx_users_email"))
	assert.True(t, db.Migrator().HasIndex(&models.User{}, "idx_users_username"))
	assert.True(t, db.Migrator().HasIndex(&models.Blog{}, "idx_blogs_author_title"))
}

func TestPing(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, database.Ping(db))
}

func TestUserWithoutAuthMethodRejected(t *testing.T) {
	db := testutil.NewDB(t)

	err := db.Create(&models.User{Fullname: "Nobody", Email: "n@x.com", Username: "nobody"}).Error
	assert.ErrorIs(t, err, models.ErrNoAuthMethod)
}
