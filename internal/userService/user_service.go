package users

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/utils"
)

// DefaultStartingTokens is the balance granted at signup.
const DefaultStartingTokens int64 = 100

const tokenTTL = 24 * time.Hour

// UserService handles signup, login and account lookups
type UserService struct {
	accounts       repository.AccountStore
	jwtSecret      []byte
	startingTokens int64
}

// NewUserService creates a new UserService instance
func NewUserService(accounts repository.AccountStore, jwtSecret []byte, startingTokens int64) *UserService {
	if startingTokens < 0 {
		startingTokens = DefaultStartingTokens
	}
	return &UserService{
		accounts:       accounts,
		jwtSecret:      jwtSecret,
		startingTokens: startingTokens,
	}
}

// Signup registers a new account with a hashed password and the starting
// token balance.
func (s *UserService) Signup(ctx context.Context, username, password string) (model.Account, error) {
	if username == "" || password == "" {
		return model.Account{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	account := model.Account{
		UserID:       utils.GenerateID(),
		Username:     username,
		PasswordHash: string(hash),
		Tokens:       s.startingTokens,
		Role:         model.RoleUser,
		Lockable:     true,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return model.Account{}, fmt.Errorf("service: failed to create account %s: %w", username, err)
	}
	return account, nil
}

// Login verifies credentials and returns a signed session token. Locked
// accounts cannot log in.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}
	if account.Locked {
		return "", fmt.Errorf("service: %w", auctionerrors.ErrAccountLocked)
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   account.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("service: failed to sign token: %w", err)
	}
	return token, nil
}

// VerifyToken checks a session token and returns the user ID it names.
func (s *UserService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("service: invalid token: %w", auctionerrors.ErrInvalidCredentials)
	}
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	return claims.Subject, nil
}

// GetUserInfo returns the account with the given ID
func (s *UserService) GetUserInfo(ctx context.Context, userID string) (model.Account, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return model.Account{}, fmt.Errorf("service: failed to get account %s: %w", userID, err)
	}
	return account, nil
}

// ListUsers returns every account; admin screens use this.
func (s *UserService) ListUsers(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list accounts: %w", err)
	}
	return accounts, nil
}

// LockUser locks an account. Admins and accounts flagged non-lockable refuse.
func (s *UserService) LockUser(ctx context.Context, userID string) (model.Account, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return model.Account{}, fmt.Errorf("service: failed to get account %s: %w", userID, err)
	}
	if account.Role == model.RoleAdmin || !account.Lockable {
		return model.Account{}, fmt.Errorf("service: %w", auctionerrors.ErrAccountNotLockable)
	}
	if err := s.accounts.SetLocked(ctx, userID, true); err != nil {
		return model.Account{}, fmt.Errorf("service: failed to lock account %s: %w", userID, err)
	}
	account.Locked = true
	return account, nil
}

// UnlockUser clears an account's lock flag
func (s *UserService) UnlockUser(ctx context.Context, userID string) (model.Account, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return model.Account{}, fmt.Errorf("service: failed to get account %s: %w", userID, err)
	}
	if err := s.accounts.SetLocked(ctx, userID, false); err != nil {
		return model.Account{}, fmt.Errorf("service: failed to unlock account %s: %w", userID, err)
	}
	account.Locked = false
	return account, nil
}
