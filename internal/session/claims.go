package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cjl-github/chiwen/internal/platform"
)

// Claims are the fields the console server puts in its tokens. They are
// read without verifying the signature; the server remains the authority.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token as an unverified JWT. Tokens that are not JWTs
// return false.
func ParseClaims(token string) (*Claims, bool) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// user builds the profile the claims describe.
func (c *Claims) user() *platform.User {
	isAdmin := c.IsAdmin
	return &platform.User{
		ID:       int64(c.UserID),
		Username: c.Username,
		IsAdmin:  &isAdmin,
	}
}

// ExpiresAt returns the token's exp claim, if it carries one.
func ExpiresAt(token string) (time.Time, bool) {
	claims, ok := ParseClaims(token)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// expired reports whether token is a JWT whose exp is at or before now.
// Opaque tokens never expire locally.
func expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && !now.Before(exp)
}
