package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const sessionTokenTTL = 24 * time.Hour

// GenerateSessionToken creates a signed token carrying the account id as
// subject. The management API trusts this token as its session provider.
func GenerateSessionToken(accountID string, secret []byte) (string, int64, error) {
	expirationTime := time.Now().Add(sessionTokenTTL).Unix()
	claims := jwt.MapClaims{
		"sub": accountID,
		"exp": expirationTime,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", 0, err
	}
	return signedToken, expirationTime, nil
}

// ValidateSessionToken verifies a session token and returns the account
// id it was issued for.
func ValidateSessionToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token missing subject")
	}
	return sub, nil
}
