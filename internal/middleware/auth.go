// Package middleware provides request-scoped logging, authentication helpers, rate limiting, metrics and tracing.
package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthCookie is the cookie carrying the remembered session token.
const AuthCookie = "auth_token"

// Token issuer and audience shared by signing and verification.
const (
	TokenIssuer   = "teamtrack-api"
	TokenAudience = "teamtrack-client"
)

var (
	ErrMissingToken   = errors.New("authorization token required")
	ErrInvalidHeader  = errors.New("invalid authorization header format")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrMissingSubject = errors.New("invalid token structure - missing subject")
)

// TokenClaims is the subset of verified JWT claims the server relies on.
type TokenClaims struct {
	Subject   string
	JTI       string
	ExpiresAt time.Time
}

// ExtractToken returns the bearer token from the Authorization header, or
// the auth cookie when no header is sent.
func ExtractToken(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", ErrInvalidHeader
		}
		return parts[1], nil
	}
	if cookie := c.Cookies(AuthCookie); cookie != "" {
		return cookie, nil
	}
	return "", ErrMissingToken
}

// ParseToken verifies an HMAC-signed token and returns its subject, jti and expiry.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMissingSubject
	}

	claimsOut := &TokenClaims{Subject: sub}
	claimsOut.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		claimsOut.ExpiresAt = exp.Time
	}
	return claimsOut, nil
}
