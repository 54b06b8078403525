package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/cryptox"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/idx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidBearer      = errors.New("invalid bearer token")
)

const bearerIssuer = "attendd"

type bearerClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// CredentialService handles login and bearer token verification. Tokens are
// HS256 JWTs carrying the account id and role; there is no refresh flow,
// holders just log in again when a token lapses.
type CredentialService struct {
	Store  store.Store
	Secret []byte
	TTL    time.Duration
}

// Login checks a username/password pair and mints a bearer token.
func (s *CredentialService) Login(ctx context.Context, username, password string) (string, domain.Account, error) {
	l := slogx.FromContext(ctx)

	acc, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn time anyway so missing accounts are not distinguishable.
			_ = cryptox.VerifyPassword("decoy", decoyHash)
			return "", domain.Account{}, ErrInvalidCredentials
		}
		return "", domain.Account{}, err
	}

	if err := cryptox.VerifyPassword(password, acc.PasswordHash); err != nil {
		l.Warn("failed login attempt", slog.String("username", username))
		return "", domain.Account{}, ErrInvalidCredentials
	}

	now := time.Now()
	claims := bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    bearerIssuer,
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
		Role: acc.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", domain.Account{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, acc, nil
}

// VerifyBearer implements httpx.BearerVerifier.
func (s *CredentialService) VerifyBearer(token string) (httpx.BearerClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &bearerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithIssuer(bearerIssuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return httpx.BearerClaims{}, ErrInvalidBearer
	}

	claims, ok := parsed.Claims.(*bearerClaims)
	if !ok {
		return httpx.BearerClaims{}, ErrInvalidBearer
	}
	return httpx.BearerClaims{Subject: claims.Subject, Role: claims.Role}, nil
}

// CreateAccount registers a new principal with a hashed password.
func (s *CredentialService) CreateAccount(ctx context.Context, username, password, role string) (domain.Account, error) {
	if role != domain.RoleHost && role != domain.RoleHolder {
		return domain.Account{}, fmt.Errorf("unknown role %q", role)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.Accounts().CreateAccount(ctx, acc); err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}

// decoyHash is a valid argon2id hash of an unguessable value, used to keep
// login timing flat when the username does not exist.
var decoyHash = func() string {
	h, err := cryptox.HashPassword(idx.New().String())
	if err != nil {
		panic(err)
	}
	return h
}()
