package main

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionTokenCreator issues and verifies the bearer tokens that protect
// the dashboard API routes.
type SessionTokenCreator interface {
	CreateSessionToken(subject string) (string, error)

	// VerifySessionToken returns the subject of a valid token and an
	// error for anything else (bad signature, expired, wrong algorithm).
	VerifySessionToken(token string) (string, error)
}

const SessionTokenValidity = 12 * time.Hour

type RsaSessionTokenCreator struct {
	privateKey *rsa.PrivateKey
	issuer     string
	validity   time.Duration
}

func NewRsaSessionTokenCreator(privateKeyPath string, issuer string) (*RsaSessionTokenCreator, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return nil, err
	}

	return NewRsaSessionTokenCreatorFromKey(privateKey, issuer), nil
}

func NewRsaSessionTokenCreatorFromKey(privateKey *rsa.PrivateKey, issuer string) *RsaSessionTokenCreator {
	return &RsaSessionTokenCreator{
		privateKey: privateKey,
		issuer:     issuer,
		validity:   SessionTokenValidity,
	}
}

func (c *RsaSessionTokenCreator) CreateSessionToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(c.privateKey)
}

func (c *RsaSessionTokenCreator) VerifySessionToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return &c.privateKey.PublicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid session token")
	}
	if claims.Issuer != c.issuer {
		return "", fmt.Errorf("unexpected token issuer: %s", claims.Issuer)
	}
	return claims.Subject, nil
}
