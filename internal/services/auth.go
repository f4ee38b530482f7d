package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/farmtrack/apiserver/internal/auth"
	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
)

const defaultOperatorShift = "morning"

// dummyHash is compared against when the email is unknown so both
// rejection paths pay for one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := auth.HashPassword("farmtrack-unknown-account")
	return hash
})

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email         string
	Username      string
	Password      string
	AdminPassword string
}

// AuthService ties credential checks and session tokens to the user store.
type AuthService struct {
	users                 UserRepository
	tokens                *auth.TokenIssuer
	adminRegisterPassword string
	logger                *slog.Logger
}

func NewAuthService(users UserRepository, tokens *auth.TokenIssuer, adminRegisterPassword string, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:                 users,
		tokens:                tokens,
		adminRegisterPassword: adminRegisterPassword,
		logger:                logger,
	}
}

// NormalizeEmail lowercases and trims an email used as login identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenTTL reports how long issued sessions last.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Register creates the account and its linked operator. The account is
// an admin only when the supplied admin password matches the configured one.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return types.User{}, fmt.Errorf("%w: email, username and password are required", ErrInvalidInput)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	role := auth.RoleUser
	if s.isAdminPassword(in.AdminPassword) {
		role = auth.RoleAdmin
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		Username:     username,
		Role:         string(role),
		PasswordHash: hash,
	}, &types.Operator{Name: username, Shift: defaultOperatorShift})
	if err != nil {
		return types.User{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// VerifyCredentials returns the principal when the password matches. Both
// failure causes wrap auth.ErrAuthFailure.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			auth.VerifyPassword(password, dummyHash())
			return types.User{}, auth.ErrPrincipalNotFound
		}
		return types.User{}, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return types.User{}, auth.ErrCredentialMismatch
	}
	return user, nil
}

// IssueSession mints a token for an already verified principal.
func (s *AuthService) IssueSession(user types.User) (string, error) {
	role, ok := auth.ParseRole(user.Role)
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", auth.ErrMalformedClaims, user.Role)
	}
	return s.tokens.Issue(auth.Claims{
		UserID:     user.ID,
		Role:       role,
		OperatorID: user.OperatorID,
	})
}

// Login verifies credentials and issues a session in one step.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, types.User, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return "", types.User{}, err
	}
	token, err := s.IssueSession(user)
	if err != nil {
		return "", types.User{}, err
	}
	return token, user, nil
}

// Authenticate recovers the claim set from a bearer token.
func (s *AuthService) Authenticate(token string) (auth.Claims, error) {
	return s.tokens.Verify(token)
}

// ChangePassword replaces the caller's hash after checking the old password.
// Sessions issued before the change stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(oldPassword, user.PasswordHash) {
		return auth.ErrCredentialMismatch
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

// ResetPassword overwrites the hash of the account with the given email
// without checking the previous password.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, user.ID, hash)
}

func (s *AuthService) isAdminPassword(candidate string) bool {
	if s.adminRegisterPassword == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.adminRegisterPassword)) == 1
}
