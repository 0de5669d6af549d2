package core

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(k string) string { return m[k] }
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "statement-reader",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestRequireCredentialsAllPresent(t *testing.T) {
	got, err := RequireCredentials(mapLookup(map[string]string{"T_BANK_TOKEN": " abc "}), "T_BANK_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "abc", got["T_BANK_TOKEN"])
}

func TestRequireCredentialsMissingNamesInOrder(t *testing.T) {
	lookup := mapLookup(map[string]string{"MODULBANK_SANDBOX_CLIENT_ID": "id"})
	_, err := RequireCredentials(lookup, "MODULBANK_SANDBOX_TOKEN", "MODULBANK_SANDBOX_CLIENT_ID", "MODULBANK_SANDBOX_CLIENT_SECRET")
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Отсутствуют обязательные переменные окружения: MODULBANK_SANDBOX_TOKEN, MODULBANK_SANDBOX_CLIENT_SECRET", verr.Message)
	assert.Equal(t, RPCInvalidParams, MapError(err).RPCCode)
	assert.True(t, IsCredentialError(err))
}

func TestRequireCredentialsBlankCountsAsMissing(t *testing.T) {
	_, err := RequireCredentials(mapLookup(map[string]string{"FNS_API_TOKEN": "   "}), "FNS_API_TOKEN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FNS_API_TOKEN")
}

func TestRequireCredentialsExpiredJWT(t *testing.T) {
	lookup := mapLookup(map[string]string{"ALFA_TOKEN": signedToken(t, time.Now().Add(-time.Hour))})
	_, err := RequireCredentials(lookup, "ALFA_TOKEN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALFA_TOKEN")
	assert.Equal(t, "invalid_params", MapError(err).Code)
}

func TestRequireCredentialsValidJWTAndOpaqueToken(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"ALFA_TOKEN":     signedToken(t, time.Now().Add(time.Hour)),
		"ARBITR_API_KEY": "not.a.jwt",
	})
	_, err := RequireCredentials(lookup, "ALFA_TOKEN", "ARBITR_API_KEY")
	assert.NoError(t, err)
}

func TestIsCredentialError(t *testing.T) {
	assert.False(t, IsCredentialError(Invalid("ИНН должен содержать 10 или 12 цифр")))
	assert.False(t, IsCredentialError(errors.New("x")))
}
