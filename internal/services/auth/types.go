package auth

import (
	"errors"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

type AccessClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}
