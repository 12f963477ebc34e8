package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	adminTokenSubject = "admin-dashboard"
	adminTokenTTL     = 24 * time.Hour
)

// signAdminToken issues the bearer token sent alongside the admin secret header.
func signAdminToken(secret []byte, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": adminTokenSubject,
		"role":   "admin",
		"iat":    now.Unix(),
		"exp":    now.Add(adminTokenTTL).Unix(),
	})
	return token.SignedString(secret)
}
