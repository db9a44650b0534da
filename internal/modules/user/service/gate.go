package user

import (
	"context"

	"anoa.com/innoliber/internal/entity"
	repo "anoa.com/innoliber/internal/modules/user/repository"
	"anoa.com/innoliber/pkg/apperror"
)

// Gate turns a bearer token into an authorized user.
type Gate interface {
	// Resolve never distinguishes a bad token from a missing user.
	Resolve(ctx context.Context, token string) (*entity.User, error)
	RequireActive(user *entity.User) (*entity.User, error)
}

type TokenVerifier interface {
	Verify(token string) (string, bool)
}

type gate struct {
	repo   repo.UserRepository
	tokens TokenVerifier
}

func NewGate(repo repo.UserRepository, tokens TokenVerifier) Gate {
	return &gate{repo: repo, tokens: tokens}
}

func (g *gate) Resolve(ctx context.Context, token string) (*entity.User, error) {
	email, ok := g.tokens.Verify(token)
	if !ok {
		return nil, apperror.ErrUnauthenticated
	}

	user, err := g.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrUnauthenticated
	}
	return user, nil
}

func (g *gate) RequireActive(user *entity.User) (*entity.User, error) {
	if user == nil {
		return nil, apperror.ErrUnauthenticated
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}
	return user, nil
}
