package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/user/dto"
	repo "anoa.com/innoliber/internal/modules/user/repository"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/logger"
	"anoa.com/innoliber/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var eduEmailPattern = regexp.MustCompile(`\.(edu\.cn|edu|ac\.[a-z]{2})$`)

// IsEduEmail reports whether the address belongs to an academic domain.
func IsEduEmail(email string) bool {
	return eduEmailPattern.MatchString(strings.ToLower(email))
}

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

type authService struct {
	repo   repo.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthService(repo repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer) AuthService {
	return &authService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.TrimSpace(req.Email)

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperror.New(http.StatusBadRequest, "Email already registered", apperror.ErrConflict)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:      strings.SplitN(email, "@", 2)[0],
		Email:         email,
		PasswordHash:  hashed,
		FullName:      req.FullName,
		ResearchField: req.ResearchField,
		IsActive:      true,
		IsEduEmail:    IsEduEmail(email),
	}

	// a username collision from the unique index surfaces as an internal error
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.FromContext(ctx).Info("user registered",
		zap.Uint("user_id", user.ID),
		zap.Bool("edu_email", user.IsEduEmail),
	)

	res := dto.NewUserResponse(user)
	return &res, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	invalid := apperror.New(http.StatusUnauthorized, "Incorrect email or password", apperror.ErrUnauthenticated)

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordLogin("invalid")
			return nil, invalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		metrics.RecordLogin("invalid")
		return nil, invalid
	}

	token, expiresAt, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	metrics.RecordLogin("success")

	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(expiresAt.Sub(now).Seconds()),
	}, nil
}
