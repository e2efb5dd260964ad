package users

import (
	"context"
	"errors"
	"strings"

	"trackex/internal/apperr"
	"trackex/internal/auth"
	"trackex/internal/models"
	"trackex/internal/storage"
)

// Store is the user persistence the service needs.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
}

// TokenIssuer issues and revokes bearer tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Service handles signup, login and password changes.
type Service struct {
	store      Store
	tokens     TokenIssuer
	bcryptCost int
}

// New creates a user service. A zero cost uses auth.DefaultCost.
func New(store Store, tokens TokenIssuer, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = auth.DefaultCost
	}
	return &Service{store: store, tokens: tokens, bcryptCost: bcryptCost}
}

// SignupRequest holds signup fields.
type SignupRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
}

// Signup registers a user.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case req.Username == "":
		return nil, apperr.Required("username")
	case req.Email == "":
		return nil, apperr.Required("email")
	case !strings.Contains(req.Email, "@"):
		return nil, apperr.Invalid("email", "is not a valid email address")
	case req.Password == "":
		return nil, apperr.Required("password")
	case req.Password != req.RePassword:
		return nil, apperr.Invalid("re_password", "passwords do not match")
	}

	hash, err := auth.HashPasswordCost(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u, err := s.store.CreateUser(ctx, req.Username, req.Email, hash)
	if errors.Is(err, storage.ErrConflict) {
		return nil, apperr.ErrUserExists
	}
	return u, err
}

// Login verifies credentials and returns the user's bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", apperr.Required("username")
	}
	if password == "" {
		return "", apperr.Required("password")
	}

	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return "", apperr.ErrInvalidCredentials
	}

	return s.tokens.Issue(ctx, u.ID)
}

// Logout revokes a token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ChangePasswordRequest holds password change fields.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePassword replaces the user's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	switch {
	case req.OldPassword == "":
		return apperr.Required("old_password")
	case req.NewPassword == "":
		return apperr.Required("new_password")
	case req.NewPassword != req.ConfirmPassword:
		return apperr.Invalid("confirm_password", "passwords do not match")
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if !auth.CheckPassword(req.OldPassword, u.PasswordHash) {
		return apperr.ErrOldPasswordIncorrect
	}

	hash, err := auth.HashPasswordCost(req.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, userID, hash)
}
