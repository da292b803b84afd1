package certstore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

var (
	// ErrNoPEMBlock is returned when a file contains no PEM data.
	ErrNoPEMBlock = errors.New("certstore: no PEM block found")

	// ErrNotRSA is returned when a loaded key is not an RSA key. The
	// registration protocol mandates RSA 2048 signatures.
	ErrNotRSA = errors.New("certstore: private key is not RSA")
)

// Keypair bundles an operator certificate with its private key.
type Keypair struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
}

// LoadPEM reads a certificate and a private key from separate PEM files.
// password decrypts a legacy-encrypted key block and may be empty for
// unencrypted keys.
func LoadPEM(certPath, keyPath string, password []byte) (*Keypair, error) {
	cert, err := LoadCertificate(certPath)
	if err != nil {
		return nil, err
	}
	key, err := LoadKey(keyPath, password)
	if err != nil {
		return nil, err
	}
	return &Keypair{Certificate: cert, Key: key}, nil
}

// LoadCertificate reads a single X.509 certificate from a PEM file.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}
	return ParseCertificate(data)
}

// ParseCertificate parses a single X.509 certificate from PEM bytes.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	return x509.ParseCertificate(block.Bytes)
}

// LoadKey reads an RSA private key from a PEM file. password decrypts a
// legacy-encrypted block and may be empty.
func LoadKey(path string, password []byte) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return ParseKey(data, password)
}

// ParseKey parses an RSA private key from PEM bytes. Both PKCS#1 and
// PKCS#8 encodings are accepted, matching what the authority distributes.
func ParseKey(data, password []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) {
		decrypted, err := x509.DecryptPEMBlock(block, password)
		if err != nil {
			return nil, fmt.Errorf("decrypting key: %w", err)
		}
		der = decrypted
	}
	return parseRSAKey(block.Type, der)
}

func parseRSAKey(blockType string, der []byte) (*rsa.PrivateKey, error) {
	switch blockType {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(der)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrNotRSA
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", blockType)
	}
}

// LoadPKCS12 decodes an operator keypair from a PKCS#12 bundle, the
// format the authority uses to distribute registration certificates.
func LoadPKCS12(path, password string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	return ParsePKCS12(data, password)
}

// ParsePKCS12 decodes a keypair from PKCS#12 bytes.
func ParsePKCS12(data []byte, password string) (*Keypair, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decoding PKCS#12 bundle: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return &Keypair{Certificate: cert, Key: rsaKey}, nil
}
