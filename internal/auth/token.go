// Package auth issues and validates the bearer tokens that identify the calling user.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-password/password"
)

const DefaultTokenDuration = 30 * 24 * time.Hour

var (
	ErrSecretRequired = errors.New("token secret is required")
	ErrInvalidToken   = errors.New("invalid token")
)

type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
}

func NewTokenService(secret, issuer string) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &TokenService{
		Secret:   []byte(secret),
		Issuer:   strings.TrimSpace(issuer),
		Duration: DefaultTokenDuration,
	}, nil
}

// Sign issues a token whose subject is userID.
func (ts *TokenService) Sign(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("sign token: %w", ErrInvalidToken)
	}
	now := time.Now()
	exp := now.Add(ts.Duration)

	claims := jwt.RegisteredClaims{
		Issuer:    ts.Issuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

// Parse validates tokenString and returns its subject.
func (ts *TokenService) Parse(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return ts.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// GenerateSecret returns a random signing secret for installs that have none configured.
func GenerateSecret() (string, error) {
	secret, err := password.Generate(48, 10, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return secret, nil
}
