package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/auth"
	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/repo"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrUsernameTaken = errors.New("username already taken")

// UserService handles registration and login.
type UserService struct {
	repo      repo.UserRepo
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo, jwtSecret []byte, tokenTTL time.Duration) *UserService {
	return &UserService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, username, string(hash))
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrUsernameTaken
		}
		return dom.User{}, err
	}
	return u, nil
}

// Login checks credentials and issues a bearer token. Unknown username and
// wrong password come back as the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (string, dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", dom.User{}, ErrInvalidCredentials
		}
		return "", dom.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", dom.User{}, ErrInvalidCredentials
	}
	token, err := auth.IssueToken(u.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", dom.User{}, err
	}
	return token, u, nil
}
