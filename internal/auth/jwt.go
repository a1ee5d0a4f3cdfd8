// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/nexusaudit/internal/audit"
)

// Token errors.
var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Claims are the JWT claims issued by the host application. The subject
// is the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorRole returns the claimed role, or false if it is not one of the
// human roles.
func (c *Claims) ActorRole() (audit.Role, bool) {
	switch r := audit.Role(c.Role); r {
	case audit.RoleAdmin, audit.RoleManager, audit.RoleEmployee:
		return r, true
	default:
		return "", false
	}
}

// JWTManager creates and validates HS256 tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager returns a manager for secret. Tokens it generates expire
// after ttl.
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken signs a token for subject with role. The service itself
// never logs users in; this exists for the host application and tests.
func (m *JWTManager) GenerateToken(subject string, role audit.Role) (string, error) {
	now := m.now()
	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, algorithm and time claims of
// tokenString. Expired tokens return ErrExpiredCredentials; everything
// else that fails returns ErrInvalidCredentials.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredCredentials, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidCredentials)
	}
	if _, ok := claims.ActorRole(); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidCredentials, claims.Role)
	}
	return claims, nil
}
