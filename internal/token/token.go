package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/velotracker/apiserver/types"
)

// sessionTTL is the fixed lifetime of an issued session token.
const sessionTTL = 7 * 24 * time.Hour

// Claims carries the authenticated identity inside a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Identity is the decoded caller identity from a verified token.
type Identity struct {
	ID    int
	Name  string
	Email string
}

// Service mints and verifies signed session tokens. Possession of a
// valid token is the sole authorization mechanism; nothing is persisted
// server-side.
type Service struct {
	secret []byte
}

// New constructs a Service. An unconfigured signing secret is a fatal
// misconfiguration and is rejected here rather than at issue time.
func New(secret string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Service{secret: []byte(secret)}, nil
}

// Issue signs a token for the given user with a 7-day expiry.
func (s *Service) Issue(user types.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies the signature and expiry of a token and extracts the
// caller identity.
func (s *Service) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if claims.UserID < 1 {
		return Identity{}, errors.New("missing user id")
	}
	return Identity{ID: claims.UserID, Name: claims.Name, Email: claims.Email}, nil
}
