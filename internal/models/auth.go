package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the access-token claims attached to authenticated requests.
// Token issuance lives with the identity provider; this service only
// validates.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
