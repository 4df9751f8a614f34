package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/inventario-lotes/pkg/jwt"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cr3t", "u-1", pkgjwt.RoleBodeguero, "test", 5)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse("s3cr3t", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, pkgjwt.RoleBodeguero, claims.Role)
	assert.Equal(t, "test", claims.Issuer)
}

func TestParse_FirmaIncorrectaOExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cr3t", "u-1", pkgjwt.RoleAdmin, "test", 5)
	require.NoError(t, err)
	_, err = pkgjwt.Parse("otro", tok)
	assert.Error(t, err)

	expired, err := pkgjwt.Generate("s3cr3t", "u-1", pkgjwt.RoleAdmin, "test", -1)
	require.NoError(t, err)
	_, err = pkgjwt.Parse("s3cr3t", expired)
	assert.Error(t, err)

	_, err = pkgjwt.Generate("", "u-1", pkgjwt.RoleAdmin, "test", 5)
	assert.Error(t, err)
}
