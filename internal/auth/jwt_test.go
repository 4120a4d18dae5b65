package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, exp, err := GenerateSessionToken("acct-42", secret)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Greater(t, exp, time.Now().Unix())

	accountID, err := ValidateSessionToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "acct-42", accountID)
}

func TestValidateSessionTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateSessionToken("acct-42", []byte("right"))
	require.NoError(t, err)

	_, err = ValidateSessionToken(token, []byte("wrong"))
	assert.Error(t, err)
}

func TestValidateSessionTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "acct-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateSessionToken(signed, []byte("secret"))
	assert.Error(t, err)
}

func TestValidateSessionTokenMissingSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateSessionToken(signed, []byte("secret"))
	assert.Error(t, err)
}

func TestValidateSessionTokenGarbage(t *testing.T) {
	_, err := ValidateSessionToken("not.a.token", []byte("secret"))
	assert.Error(t, err)
}
