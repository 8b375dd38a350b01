// Package auth signs users in with a bcrypt-checked password and keeps them
// signed in with an HS256 JWT cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLen is the shortest accepted signing secret in bytes.
const MinSecretLen = 32

// DefaultExpiry is how long a login lasts.
const DefaultExpiry = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakSecret         = errors.New("signing secret is too short")
)

// Claims identify a signed-in user.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// User is the public view of the signed-in user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// User returns the identity carried by c.
func (c *Claims) User() User { return User{ID: c.UserID, Username: c.Username} }

// Service checks passwords and issues tokens.
type Service struct {
	secret []byte
	users  map[string][]byte
	expiry time.Duration
	// dummy is compared against for unknown users so every login costs the
	// same.
	dummy []byte
	// Secure marks the cookie Secure.
	Secure bool
}

// NewService validates the secret and takes username → bcrypt hash pairs.
func NewService(secret []byte, users map[string]string, expiry time.Duration) (*Service, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("auth: %w (%d < %d bytes)", ErrWeakSecret, len(secret), MinSecretLen)
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	s := &Service{secret: secret, users: make(map[string][]byte, len(users)), expiry: expiry}
	for name, hash := range users {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth: user %q: %w", name, err)
		}
		s.users[name] = []byte(hash)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	s.dummy = dummy
	return s, nil
}

// UserID derives the stable user id for username.
func UserID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("avatarstudio:user:"+username)).String()
}

// Login checks the password and returns a signed token.
func (s *Service) Login(username, password string) (string, *Claims, error) {
	hash, ok := s.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	claims := &Claims{UserID: UserID(username), Username: username}
	token, err := s.GenerateToken(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// GenerateToken signs claims, stamping issue and expiry times.
func (s *Service) GenerateToken(claims *Claims) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiry))
	claims.Subject = claims.UserID
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken parses a token, accepting HS256 only.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// HashPassword returns a bcrypt hash for config files.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
