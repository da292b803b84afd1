package certstore

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCertPEM(t *testing.T) (certPEM, keyPEM []byte, cert *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "CZ00000019"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err = x509.ParseCertificate(der)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, cert
}

func TestLoadPEM(t *testing.T) {
	certPEM, keyPEM, cert := testCertPEM(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "op.crt")
	keyPath := filepath.Join(dir, "op.key")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	kp, err := LoadPEM(certPath, keyPath, nil)
	require.NoError(t, err)
	assert.Equal(t, cert.Raw, kp.Certificate.Raw)
	assert.Equal(t, 0, kp.Key.PublicKey.N.Cmp(kp.Certificate.PublicKey.(*rsa.PublicKey).N))
}

func TestParseKeyPKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	parsed, err := ParseKey(keyPEM, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.N.Cmp(key.N))
}

func TestParseKeyErrors(t *testing.T) {
	_, err := ParseKey([]byte("not pem at all"), nil)
	assert.ErrorIs(t, err, ErrNoPEMBlock)

	_, err = ParseKey(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1}}), nil)
	assert.Error(t, err, "non-RSA block types are refused")
}

func TestParseCertificateErrors(t *testing.T) {
	_, err := ParseCertificate([]byte("junk"))
	assert.ErrorIs(t, err, ErrNoPEMBlock)

	_, err = LoadCertificate(filepath.Join(t.TempDir(), "missing.crt"))
	assert.Error(t, err)
}

func TestParsePKCS12Garbage(t *testing.T) {
	_, err := ParsePKCS12([]byte("definitely not a pkcs12 bundle"), "eet")
	assert.Error(t, err)
}
