package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("token expired")

// ClientClaims токен вызывающего сервиса. Идентификатор клиента хранится в Subject.
type ClientClaims struct {
	jwt.RegisteredClaims
}

func GenerateClientJWT(client string, expire time.Duration, key []byte) (string, error) {
	claims := ClientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
	}
	token, err := generateJWT(claims, key)
	if err != nil {
		return "", fmt.Errorf("generating client jwt token: %s", err.Error())
	}
	return token, nil
}

func ValidateClientJWT(tokenString string, key []byte) (*ClientClaims, error) {
	token, err := validateJWT(tokenString, new(ClientClaims), key)
	if err != nil {
		return nil, fmt.Errorf("validating client jwt token: %w", err)
	}

	claims, ok := token.Claims.(*ClientClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

func generateJWT(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("generating jwt token: %s", err.Error())
	}

	return tokenString, nil
}

func validateJWT(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parsing jwt token: %w", err)
	}

	return token, nil
}
