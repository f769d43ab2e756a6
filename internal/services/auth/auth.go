// Package auth implements registration, login and token validation for
// business owner accounts. New accounts start on the free plan with a
// seven day trial.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/lib/jwt"
	"github.com/bizflowhq/bizflow-backend/internal/lib/password"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// TrialDays is how long a fresh account keeps trial access.
const TrialDays = 7

type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type AuthService struct {
	repo     UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

func New(repo UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register creates an account on the free plan with a running trial and
// returns the new user UID.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	hash, err := password.GetHash(req.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	trialEnd := time.Now().UTC().AddDate(0, 0, TrialDays)
	user := models.User{
		Email:              req.Email,
		Username:           req.Username,
		PasswordHash:       hash,
		Role:               "owner",
		BusinessName:       req.BusinessName,
		Phone:              req.Phone,
		SubscriptionPlan:   models.PlanFree,
		SubscriptionStatus: models.StatusTrial,
		TrialEndDate:       &trialEnd,
		IsActive:           true,
	}

	uid, err := s.repo.RegisterUser(ctx, user)
	if err != nil {
		return "", err
	}

	s.log.Info("registered new user",
		slog.String("username", req.Username),
		slog.String("uid", uid))

	return uid, nil
}

// Login checks credentials and returns a signed JWT.
func (s *AuthService) Login(ctx context.Context, req models.DummyLogin) (string, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return "", fmt.Errorf("invalid username or password")
	}
	if !user.IsActive {
		return "", fmt.Errorf("account is deactivated")
	}
	if err := password.CompareHash(req.Password, user.PasswordHash); err != nil {
		return "", fmt.Errorf("invalid username or password")
	}

	token, err := s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("user logged in", slog.String("username", user.Username))

	return token, nil
}

// ValidateToken parses a JWT and returns its claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
