package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate(testSecret, "42", "operator", "stock-engine-test", 60)
	require.NoError(t, err)

	userID, role, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "42", userID)
	assert.Equal(t, "operator", role)
}

func TestParse_Rechazos(t *testing.T) {
	expired, err := Generate(testSecret, "42", "admin", "stock-engine-test", -1)
	require.NoError(t, err)
	valid, err := Generate(testSecret, "42", "admin", "stock-engine-test", 60)
	require.NoError(t, err)

	tests := []struct {
		name, secret, token string
	}{
		{"expirado", testSecret, expired},
		{"secret incorrecto", "otro-secret", valid},
		{"malformado", testSecret, "token.invalido.aqui"},
		{"secret vacío", "", valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.secret, tt.token)
			assert.Error(t, err)
		})
	}

	_, err = Generate("", "42", "admin", "x", 60)
	assert.Error(t, err)
}
