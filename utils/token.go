package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrJwtSecretMissing = errors.New("API_SECRET is not set")

type JwtCustomClaim struct {
	Username   string `json:"username"`
	BusinessId string `json:"business_id"`
	jwt.RegisteredClaims
}

func jwtSecret() ([]byte, error) {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return nil, ErrJwtSecretMissing
	}
	return []byte(secret), nil
}

// JwtGenerate signs a token for username scoped to businessId. The lifetime
// comes from TOKEN_HOUR_LIFESPAN.
func JwtGenerate(username string, businessId string) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		return "", fmt.Errorf("TOKEN_HOUR_LIFESPAN: %w", err)
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		Username:   username,
		BusinessId: businessId,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(tokenLifespan))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return t.SignedString(secret)
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	claims := &JwtCustomClaim{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
