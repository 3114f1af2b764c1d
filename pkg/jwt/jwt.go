package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Tipos de token. Se firma el tipo para que un refresh token nunca pase como access token.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrWrongType se devuelve cuando el token es válido pero de otro tipo.
var ErrWrongType = errors.New("jwt: tipo de token inesperado")

// Claims del access token. El frontend lee id, role y exp del payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
}

// RefreshClaims del refresh token; el jti lo hace único aunque se emita dos veces en el mismo segundo.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Type   string `json:"typ"`
}

// GenerateAccess firma un access token de vida corta con id y role.
func GenerateAccess(secret string, userID int64, role, issuer string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
		Role:   role,
		Type:   TypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// GenerateRefresh firma un refresh token que expira en expiresAt.
// Se recibe la fecha (no el TTL) para que la rotación conserve la expiración original.
func GenerateRefresh(secret string, userID int64, issuer string, expiresAt time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Type:   TypeRefresh,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccess valida firma y expiración y devuelve los claims del access token.
func ParseAccess(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrWrongType
	}
	return claims, nil
}

// ParseRefresh valida firma y expiración del refresh token.
func ParseRefresh(secret, tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrWrongType
	}
	return claims, nil
}

func parse(secret, tokenString string, claims jwt.Claims) error {
	if secret == "" {
		return fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("claims inválidos")
	}
	return nil
}
