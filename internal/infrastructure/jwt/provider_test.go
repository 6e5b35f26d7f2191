package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-accounts-nosql/internal/config"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T) (privPath, pubPath string, key *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))
	return privPath, pubPath, key
}

func newProvider(t *testing.T) *Provider {
	t.Helper()
	privPath, pubPath, _ := writeKeys(t)
	p, err := NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestProvider_IssueAndVerify(t *testing.T) {
	p := newProvider(t)

	signed, err := p.Issue(&domain.Identity{AccountID: "01HZX3F9Q7W8V6M5N4K3J2H1G0", Email: "ada@example.com"})
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "01HZX3F9Q7W8V6M5N4K3J2H1G0", claims.AccountID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, claims.AccountID, claims.Subject)
}

func TestProvider_Verify_Expired(t *testing.T) {
	p := newProvider(t)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, err := p.Sign("acc", "ada@example.com")
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.Verify(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestProvider_Verify_ForeignKey(t *testing.T) {
	p := newProvider(t)
	other := newProvider(t)
	signed, err := other.Sign("acc", "ada@example.com")
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestProvider_Verify_RejectsHMAC(t *testing.T) {
	p := newProvider(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{AccountID: "acc"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{
		JWTPrivateKeyPath: filepath.Join(t.TempDir(), "missing.pem"),
	})
	assert.ErrorContains(t, err, "read private key")
}
