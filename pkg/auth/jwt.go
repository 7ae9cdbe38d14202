package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("invalid token")

// Claims identifies either an organization account or a super-admin.
// Exactly one of OrganizationID/AdminID is set.
type Claims struct {
	OrganizationID string `json:"orgId,omitempty"`
	AdminID        string `json:"adminId,omitempty"`
	Email          string `json:"email"`
	jwt.RegisteredClaims
}

func secret() []byte {
	s := os.Getenv("JWT_SECRET")
	if s == "" {
		s = "change-me-secret"
	}
	return []byte(s)
}

// GenerateOrganization issues a token for an organization account.
func GenerateOrganization(orgID, email string, ttl time.Duration) (string, error) {
	return generate(Claims{OrganizationID: orgID, Email: email}, ttl)
}

// GenerateAdmin issues a token for a super-admin account.
func GenerateAdmin(adminID, email string, ttl time.Duration) (string, error) {
	return generate(Claims{AdminID: adminID, Email: email}, ttl)
}

func generate(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

func Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	if claims, ok := token.Claims.(*Claims); ok {
		return claims, nil
	}
	return nil, ErrInvalid
}
