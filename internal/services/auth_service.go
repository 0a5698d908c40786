package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/models"
)

// insertAttempts bounds how often signup re-allocates a username after
// losing an insert race on users.username.
const insertAttempts = 3

// usernameSource hands out a username that looked free when checked.
type usernameSource interface {
	Allocate(ctx context.Context, email string) (string, error)
}

type AuthService struct {
	db        *gorm.DB
	tokens    *TokenService
	usernames usernameSource
	hasher    PasswordHasher
	identity  IdentityVerifier
	timeout   time.Duration
}

func NewAuthService(db *gorm.DB, cfg *config.Config, tokens *TokenService, identity IdentityVerifier) *AuthService {
	return &AuthService{
		db:        db,
		tokens:    tokens,
		usernames: NewUsernameAllocator(db, cfg.UsernameMaxAttempts),
		hasher:    BcryptHasher{Cost: cfg.BcryptCost},
		identity:  identity,
		timeout:   cfg.StoreTimeout,
	}
}

func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	if err := validateSignup(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHashingFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.createUser(ctx, req.Email, func(username string) *models.User {
		return models.NewLocalUser(req.Fullname, req.Email, username, hash)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user signed up", "user_id", user.ID, "username", user.Username)
	return s.respond(user)
}

func (s *AuthService) Signin(ctx context.Context, req *dto.SigninRequest) (*dto.AuthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.findByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrEmailNotFound
	}

	switch cred := user.Credential().(type) {
	case models.LocalCredential:
		if err := s.hasher.Compare(cred.PasswordHash, req.Password); err != nil {
			if errors.Is(err, ErrPasswordMismatch) {
				return nil, ErrIncorrectPassword
			}
			return nil, fmt.Errorf("%w: %w", ErrVerificationFailure, err)
		}
	case models.FederatedCredential:
		return nil, ErrPasswordNotSet
	default:
		return nil, ErrVerificationFailure
	}

	return s.respond(user)
}

// GoogleAuth signs a federated user in, creating the account on first use;
// created reports whether it did. An existing password-only account with the
// same email is never merged.
func (s *AuthService) GoogleAuth(ctx context.Context, req *dto.GoogleAuthRequest) (resp *dto.AuthResponse, created bool, err error) {
	identity, err := s.identity.Verify(ctx, req.AccessToken)
	if err != nil {
		slog.Warn("federated token verification failed", "error", err)
		if errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, ErrFederatedAuthFailed) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%w: %w", ErrFederatedAuthFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.findByEmail(ctx, identity.Email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		resp, err = s.federatedLogin(user)
		return resp, false, err
	}

	user, err = s.createUser(ctx, identity.Email, func(username string) *models.User {
		return models.NewFederatedUser(identity.DisplayName, identity.Email, username, identity.PictureURL)
	})
	if errors.Is(err, ErrEmailInUse) {
		// Lost a race with another first login for the same email.
		existing, findErr := s.findByEmail(ctx, identity.Email)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing != nil {
			resp, err = s.federatedLogin(existing)
			return resp, false, err
		}
	}
	if err != nil {
		return nil, false, err
	}

	slog.Info("user signed up", "user_id", user.ID, "username", user.Username, "provider", models.ProviderGoogle)
	resp, err = s.respond(user)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (s *AuthService) federatedLogin(user *models.User) (*dto.AuthResponse, error) {
	if !user.GoogleAuth {
		return nil, ErrFederatedConflict
	}
	return s.respond(user)
}

// createUser allocates a username and inserts the user built for it. A lost
// username race re-allocates up to insertAttempts times.
func (s *AuthService) createUser(ctx context.Context, email string, build func(username string) *models.User) (*models.User, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		username, err := s.usernames.Allocate(ctx, email)
		if err != nil {
			return nil, err
		}

		user := build(username)
		err = s.db.WithContext(ctx).Create(user).Error
		if err == nil {
			return user, nil
		}

		column, unique := uniqueViolation(err)
		switch {
		case unique && column == "email":
			return nil, ErrEmailInUse
		case unique && column == "username":
			slog.Warn("username race lost, reallocating", "username", username, "attempt", attempt+1)
			continue
		default:
			return nil, storeErr("insert user", err)
		}
	}
	return nil, ErrUsernameTaken
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find user by email", err)
	}
	return &user, nil
}

func (s *AuthService) respond(user *models.User) (*dto.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: token,
		ProfileImg:  user.ProfileImg,
		Fullname:    user.Fullname,
		Username:    user.Username,
	}, nil
}
