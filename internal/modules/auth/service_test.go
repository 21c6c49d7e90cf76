package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistboard/core/internal/config"
	"github.com/gistboard/core/internal/pkg/jwt"
)

func TestLogin(t *testing.T) {
	svc, err := NewService(config.AdminConfig{Username: "admin", Password: "hunter2"})
	require.NoError(t, err)

	token, err := svc.Login("admin", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwt.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)

	_, err = svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("root", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	svc, err := NewService(config.AdminConfig{Username: "admin"})
	require.NoError(t, err)

	_, err = svc.Login("admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
