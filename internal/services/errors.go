package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Conflicts
var (
	ErrEmailInUse     = errors.New("email already in use")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrAuthorNotFound = errors.New("author not found")
)

// Authentication
var (
	ErrEmailNotFound       = errors.New("email not found")
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrPasswordNotSet      = errors.New("account was created with Google; please sign in with Google")
	ErrFederatedConflict   = errors.New("email already registered without Google authentication; please use your email and password to sign in")
	ErrFederatedAuthFailed = errors.New("failed to authenticate with Google; try with some other Google account")
	ErrMissingToken        = errors.New("access token missing")
	ErrInvalidToken        = errors.New("invalid access token")
)

// Upstream and store
var (
	ErrHashingFailure      = errors.New("failed to hash password")
	ErrVerificationFailure = errors.New("error occurred while login, please try again")
	ErrAllocationExhausted = errors.New("could not allocate a unique username")
	ErrUploadSigning       = errors.New("failed to generate upload url")
	ErrUpstreamTimeout     = errors.New("upstream call timed out")
	ErrStore               = errors.New("store failure")
)

// ValidationError reports the first client input rule that failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// storeErr maps a persistence error onto ErrUpstreamTimeout or ErrStore,
// keeping the original for logs.
func storeErr(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// uniqueIndexColumns maps the unique indexes declared on the models to the
// column they guard.
var uniqueIndexColumns = map[string]string{
	"idx_users_email":    "email",
	"idx_users_username": "username",
	"idx_blogs_blog_id":  "blog_id",
}

// uniqueViolation reports which column a failed insert collided on. Only the
// constraint or column name is inspected, never the colliding value.
func uniqueViolation(err error) (column string, ok bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		return uniqueIndexColumns[pgErr.ConstraintName], true
	}

	// SQLite: "UNIQUE constraint failed: users.email (2067)"
	_, target, found := strings.Cut(err.Error(), "UNIQUE constraint failed: ")
	if !found {
		return "", false
	}
	target, _, _ = strings.Cut(target, ",")
	_, column, _ = strings.Cut(strings.TrimSpace(target), ".")
	column, _, _ = strings.Cut(column, " ")
	return column, true
}
