package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the payload of an admin access token.
type Claims struct {
	AdminID uint   `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}
