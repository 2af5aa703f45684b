package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified claim set minted by the external credential
// service. The scheduling core trusts it as-is once the signature checks.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	Approved bool      `json:"approved"`
	Blocked  bool      `json:"blocked"`
	jwt.RegisteredClaims
}

// ParsePrincipal verifies an HS256 token and resolves it to a Principal.
func ParsePrincipal(tokenString, secret string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == uuid.Nil || claims.Role == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		ID:       claims.UserID,
		Role:     claims.Role,
		Approved: claims.Approved,
		Blocked:  claims.Blocked,
	}, nil
}

// SignToken mints a token for a user. Used by the seed tool and tests;
// production tokens come from the credential service.
func SignToken(u User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   u.ID,
		Role:     u.Role,
		Approved: u.Approved,
		Blocked:  u.Blocked,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
