package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service signs and checks the short-lived HS256 tokens this service presents
// to the IT-support API and accepts from event publishers.
type Service struct {
	secret  []byte
	subject string
	ttl     time.Duration
	now     func() time.Time
}

func NewService(secret, subject string) *Service {
	return &Service{
		secret:  []byte(secret),
		subject: subject,
		ttl:     15 * time.Minute,
		now:     time.Now,
	}
}

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken returns a signed token carrying scope.
func (s *Service) IssueToken(scope string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify satisfies events.TokenVerifier.
func (s *Service) Verify(tokenStr string) error {
	_, err := s.ParseToken(tokenStr)
	return err
}
