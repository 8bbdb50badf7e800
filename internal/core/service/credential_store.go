package service

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	defaultIssuer     = "auditsuite"
	minPasswordLength = 8
)

// CredentialStore hashes passwords and issues and validates session tokens.
type CredentialStore struct {
	secret []byte
	ttl    time.Duration
	cost   int
	issuer string
	now    func() time.Time
}

// CredentialOption configures a CredentialStore.
type CredentialOption func(*CredentialStore)

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) CredentialOption {
	return func(s *CredentialStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) CredentialOption {
	return func(s *CredentialStore) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithIssuer sets the token issuer.
func WithIssuer(issuer string) CredentialOption {
	return func(s *CredentialStore) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CredentialOption {
	return func(s *CredentialStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCredentialStore builds a store signing with secret.
func NewCredentialStore(secret string, opts ...CredentialOption) (*CredentialStore, error) {
	if secret == "" {
		return nil, errors.New("credential store: signing secret is required")
	}
	s := &CredentialStore{
		secret: []byte(secret),
		ttl:    DefaultSessionTTL,
		cost:   bcrypt.DefaultCost,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the session lifetime.
func (s *CredentialStore) TTL() time.Duration { return s.ttl }

// Hash returns a salted bcrypt hash of password.
func (s *CredentialStore) Hash(password string) (string, error) {
	if password == "" {
		return "", domain.NewValidationError("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.NewValidationError("password must be at most 72 bytes")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares password with hash in constant time. A mismatch is not an
// error; a corrupt hash is.
func (s *CredentialStore) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}

// sessionClaims carries the issue instant in milliseconds next to iat, which
// only has second precision, so a revocation and a fresh login inside the
// same second stay ordered.
type sessionClaims struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	IssuedAtMilli int64  `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

// IssueSession signs a token binding the account id, email and role.
func (s *CredentialStore) IssueSession(account *domain.Account) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := sessionClaims{
		Email:         account.Email,
		Role:          string(account.Role),
		IssuedAtMilli: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateSession verifies the token's signature and expiry. It has no side
// effects.
func (s *CredentialStore) ValidateSession(token string) (*domain.SessionClaims, error) {
	if token == "" {
		return nil, &domain.SessionError{Kind: domain.SessionMalformed}
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, &domain.SessionError{Kind: sessionErrorKind(err), Err: err}
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, &domain.SessionError{Kind: domain.SessionMalformed}
	}

	out := &domain.SessionClaims{
		TokenID:   claims.ID,
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      domain.Role(claims.Role),
	}
	switch {
	case claims.IssuedAtMilli > 0:
		out.IssuedAt = time.UnixMilli(claims.IssuedAtMilli).UTC()
	case claims.IssuedAt != nil:
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func sessionErrorKind(err error) domain.SessionErrorKind {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.SessionMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.SessionSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.SessionExpired
	default:
		return domain.SessionMalformed
	}
}

// PasswordViolations returns every strength rule password breaks. An empty
// result means the password is acceptable.
func PasswordViolations(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	var problems []string
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !hasUpper {
		problems = append(problems, "password must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "password must contain a lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "password must contain a digit")
	}
	if !hasSymbol {
		problems = append(problems, "password must contain a symbol")
	}
	return problems
}
