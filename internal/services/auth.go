package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/credstack/apiserver/internal/store"
	"github.com/credstack/apiserver/types"
	"golang.org/x/text/unicode/norm"
)

// ErrEmailTaken is returned when signup finds an existing user with the
// same normalized email.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned for both an unknown email and a
// wrong password. Callers must not distinguish the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountRepository defines the persistence operations the auth flows
// need.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetCredentials(ctx context.Context, email string) (types.Credentials, error)
	CreateWithCredentials(ctx context.Context, email, name, passwordHash string) (types.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	DummyHash() string
}

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string, now time.Time) (int, error)
}

// AuthService implements the signup, signin, and verify use-cases.
type AuthService struct {
	repo   AccountRepository
	hasher PasswordHasher
	tokens TokenVerifier
}

func NewAuthService(repo AccountRepository, hasher PasswordHasher, tokens TokenVerifier) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens}
}

// NormalizeEmail trims whitespace, lowercases, and NFC-normalizes an
// email so that accounts differing only in case or encoding collapse to
// one.
func NormalizeEmail(email string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(email)))
}

// SignUp creates a user together with their credentials account and
// profile. The three inserts are atomic; a failed signup leaves no
// partial rows.
func (s *AuthService) SignUp(ctx context.Context, email, name, password string) (types.User, error) {
	email = NormalizeEmail(email)

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return types.User{}, ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check existing user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateWithCredentials(ctx, email, strings.TrimSpace(name), passwordHash)
	if err != nil {
		// A concurrent signup can slip past the pre-check; the unique
		// constraint reports it as the same conflict.
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// SignIn checks the password against the stored hash and returns the
// user id on success. An unknown email still burns a hash verification
// so its latency matches a wrong password.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (int, error) {
	email = NormalizeEmail(email)

	creds, err := s.repo.GetCredentials(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = s.hasher.Verify(password, s.hasher.DummyHash())
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, fmt.Errorf("look up credentials: %w", err)
	}

	ok, err := s.hasher.Verify(password, creds.PasswordHash)
	if err != nil || !ok {
		// A malformed stored hash must read as "not matched", never as
		// an authentication bypass.
		return 0, ErrInvalidCredentials
	}
	return creds.UserID, nil
}

// VerifyToken reports whether the token is currently valid. It is
// boolean-only: expired, malformed, and forged tokens all read false.
func (s *AuthService) VerifyToken(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	_, err := s.tokens.Verify(token, now)
	return err == nil
}
