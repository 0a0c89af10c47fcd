package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errNoTokenIssuer = errors.New("token issuer not configured")

// authService is the concrete implementation of AuthService
type authService struct {
	users     repository.UserRepository
	tokens    TokenIssuer
	validator *validation.Validator
	log       zerolog.Logger
}

func newAuthService(repos *repository.Repositories, tokens TokenIssuer, log zerolog.Logger) *authService {
	return &authService{
		users:     repos.User,
		tokens:    tokens,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "auth").Logger(),
	}
}

// Register creates an author account
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if errs := s.validator.Struct(req); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	exists, err := s.users.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, lifecycle.Validation("A user with that username already exists.")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         models.RoleAuthor,
		Balance:      decimal.Zero,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user, nil
}

// Login verifies credentials and issues an access token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	if s.tokens == nil {
		return nil, errNoTokenIssuer
	}
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.log.Warn().Str("username", req.Username).Msg("Failed login attempt")
		return nil, lifecycle.Unauthorized("No active account found with the given credentials")
	}

	token, exp, err := s.tokens.Sign(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{Access: token, ExpiresAt: exp, User: *user}, nil
}

// Me returns the account behind actor
func (s *authService) Me(ctx context.Context, actor lifecycle.Actor) (*models.User, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, lifecycle.NotFound("User not found.")
	}
	return user, nil
}
