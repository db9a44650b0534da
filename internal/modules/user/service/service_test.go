package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/user/dto"
	repo "anoa.com/innoliber/internal/modules/user/repository"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/jwtutil"
	"anoa.com/innoliber/pkg/password"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&entity.User{}, &entity.Proposal{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

type fixture struct {
	db     *gorm.DB
	repo   repo.UserRepository
	tokens *jwtutil.Manager
	auth   AuthService
	gate   Gate
}

func newFixture(t *testing.T) fixture {
	db := setupTestDB(t)
	users := repo.NewUserRepository(db)
	tokens := jwtutil.NewManager("test-secret", time.Hour)
	return fixture{
		db:     db,
		repo:   users,
		tokens: tokens,
		auth:   NewAuthService(users, password.Hasher{Cost: bcrypt.MinCost}, tokens),
		gate:   NewGate(users, tokens),
	}
}

func TestIsEduEmail(t *testing.T) {
	tests := map[string]bool{
		"li@pku.edu.cn":       true,
		"bob@mit.edu":         true,
		"ann@ox.ac.uk":        true,
		"Shout@MIT.EDU":       true,
		"someone@gmail.com":   false,
		"edu@example.com":     false,
		"x@education.org":     false,
		"x@school.ac.example": false,
	}
	for email, want := range tests {
		if got := IsEduEmail(email); got != want {
			t.Errorf("IsEduEmail(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, dto.RegisterRequest{
		Email:    "zhang.san@tsinghua.edu.cn",
		Password: "supersecret",
		FullName: "Zhang San",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if res.Username != "zhang.san" {
		t.Errorf("username = %q, want zhang.san", res.Username)
	}
	if !res.IsActive || !res.IsEduEmail || res.EmailVerified {
		t.Errorf("flags active/edu/verified = %v/%v/%v, want true/true/false", res.IsActive, res.IsEduEmail, res.EmailVerified)
	}

	stored, err := f.repo.FindByEmail(ctx, "zhang.san@tsinghua.edu.cn")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if stored.PasswordHash == "supersecret" || !password.Verify("supersecret", stored.PasswordHash) {
		t.Error("password was not stored as a verifiable hash")
	}

	_, err = f.auth.Register(ctx, dto.RegisterRequest{
		Email:    "zhang.san@tsinghua.edu.cn",
		Password: "anothersecret",
		FullName: "Impostor",
	})
	if apperror.MapErrorToStatus(err) != 400 || err.Error() != "Email already registered" {
		t.Errorf("duplicate Register() error = %v (status %d), want 400 Email already registered", err, apperror.MapErrorToStatus(err))
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, dto.RegisterRequest{
		Email:    "wang@example.com",
		Password: "correct horse",
		FullName: "Wang",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		res, err := f.auth.Login(ctx, dto.LoginRequest{Username: "wang@example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if res.TokenType != "bearer" {
			t.Errorf("token_type = %q, want bearer", res.TokenType)
		}
		sub, ok := f.tokens.Verify(res.AccessToken)
		if !ok || sub != "wang@example.com" {
			t.Errorf("token subject = %q (ok=%v), want wang@example.com", sub, ok)
		}

		u, err := f.repo.FindByEmail(ctx, "wang@example.com")
		if err != nil {
			t.Fatalf("FindByEmail() error = %v", err)
		}
		if u.LastLogin == nil {
			t.Error("last_login was not recorded")
		}
	})

	for name, req := range map[string]dto.LoginRequest{
		"wrong password": {Username: "wang@example.com", Password: "battery staple"},
		"unknown email":  {Username: "nobody@example.com", Password: "correct horse"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, req)
			if !errors.Is(err, apperror.ErrUnauthenticated) {
				t.Fatalf("Login() error = %v, want unauthenticated", err)
			}
			if err.Error() != "Incorrect email or password" {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := &entity.User{Username: "active", Email: "active@example.com", PasswordHash: "x", FullName: "A", IsActive: true}
	inactive := &entity.User{Username: "inactive", Email: "inactive@example.com", PasswordHash: "x", FullName: "I", IsActive: true}
	for _, u := range []*entity.User{active, inactive} {
		if err := f.repo.Create(ctx, u); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	// false is a zero value, so it has to be written explicitly
	if err := f.db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	issue := func(sub string) string {
		tok, _, err := f.tokens.Issue(sub)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return tok
	}

	t.Run("active user passes", func(t *testing.T) {
		u, err := f.gate.Resolve(ctx, issue("active@example.com"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if _, err := f.gate.RequireActive(u); err != nil {
			t.Errorf("RequireActive() error = %v", err)
		}
	})

	t.Run("inactive user is rejected after resolve", func(t *testing.T) {
		u, err := f.gate.Resolve(ctx, issue("inactive@example.com"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if _, err := f.gate.RequireActive(u); !errors.Is(err, apperror.ErrAccountInactive) {
			t.Errorf("RequireActive() error = %v, want inactive", err)
		}
	})

	t.Run("unknown subject looks like a bad token", func(t *testing.T) {
		if _, err := f.gate.Resolve(ctx, issue("ghost@example.com")); !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("Resolve() error = %v, want unauthenticated", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := f.gate.Resolve(ctx, "not-a-jwt"); !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("Resolve() error = %v, want unauthenticated", err)
		}
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := jwtutil.NewManager("other-secret", time.Hour)
		tok, _, err := other.Issue("active@example.com")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, err := f.gate.Resolve(ctx, tok); !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("Resolve() error = %v, want unauthenticated", err)
		}
	})
}
