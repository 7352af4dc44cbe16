package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTTL  = 60 * time.Minute
	refreshTTL = 7 * 24 * time.Hour

	typAccess  = "access"
	typRefresh = "refresh"
)

// TokenPair is the access/refresh pair returned by login flows.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Tokens signs and verifies HS256 JWTs with the deployment secret.
type Tokens struct {
	secret []byte
}

// NewTokens creates a token signer.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// IssuePair returns a fresh access/refresh pair for the user.
func (t *Tokens) IssuePair(userID string, now time.Time) (TokenPair, error) {
	access, err := t.sign(userID, typAccess, now, accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(userID, typRefresh, now, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (t *Tokens) sign(userID, typ string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns the user ID.
func (t *Tokens) VerifyAccess(token string) (string, error) {
	return t.verify(token, typAccess)
}

// VerifyRefresh validates a refresh token and returns the user ID.
func (t *Tokens) VerifyRefresh(token string) (string, error) {
	return t.verify(token, typRefresh)
}

func (t *Tokens) verify(token, wantTyp string) (string, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != wantTyp {
		return "", fmt.Errorf("token is not a %s token", wantTyp)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
