package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parseJWT = func(tokenStr string, keyFunc jwt.Keyfunc) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, keyFunc)
}

var (
	ErrMissingAuthHeader = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrWrongTokenType    = errors.New("wrong token type")
)

// ParseToken validates a signed JWT string and returns its claims.
func ParseToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := parseJWT(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// VerifyToken fetches the Authorization header, validates the JWT,
// and returns the claims if everything is valid.
func VerifyToken(r *http.Request, secret string) (jwt.MapClaims, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return nil, ErrMissingAuthHeader
	}
	tokenStr := strings.TrimPrefix(authz, "Bearer ")

	claims, err := ParseToken(tokenStr, secret)
	if err != nil {
		return nil, err
	}
	if purpose, _ := claims["type"].(string); purpose == "refresh" {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// GetUserIDFromClaims extracts the "sub" (user ID) from claims as a uint.
func GetUserIDFromClaims(claims jwt.MapClaims) (uint, error) {
	sub, ok := claims["sub"]
	if !ok {
		return 0, errors.New("missing sub claim")
	}

	switch v := sub.(type) {
	case float64:
		// JWT numbers get decoded as float64
		return uint(v), nil
	case string:
		var id uint
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			return 0, errors.New("invalid sub claim")
		}
		return id, nil
	default:
		return 0, errors.New("invalid sub claim type")
	}
}

// OptionalUserID returns the authenticated user's ID, or nil when the request
// carries no usable bearer token. Guest callers are expected here.
func OptionalUserID(r *http.Request, secret string) *uint {
	claims, err := VerifyToken(r, secret)
	if err != nil {
		return nil
	}
	id, err := GetUserIDFromClaims(claims)
	if err != nil {
		return nil
	}
	return &id
}

// SignAccessToken issues a short-lived access token for a user.
func SignAccessToken(userID uint, email, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// SignRefreshToken issues a long-lived refresh token for a user.
func SignRefreshToken(userID uint, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"type": "refresh",
		"exp":  time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
