package certstore

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/openfiscal/go-eet/pkg/types"
)

// Publication URLs for the authority CA certificates. The files are
// replaced in place when the authority rolls its CA over.
const (
	ProductionCAURL = "https://www.etrzby.cz/assets/cs/prilohy/cacert-produkcni.crt"
	PlaygroundCAURL = "https://www.etrzby.cz/assets/cs/prilohy/cacert-playground.crt"
)

// ErrExpiredCA is returned when the authority CA certificate is outside
// its validity window even after a fresh download.
var ErrExpiredCA = errors.New("certstore: authority CA certificate expired")

// AuthorityStore caches the authority CA certificate on disk and
// refreshes it from the publication URL when the cached copy is missing,
// unparseable or expired.
type AuthorityStore struct {
	cacheDir string
	client   *http.Client
	now      func() time.Time
}

// AuthorityOption configures an AuthorityStore.
type AuthorityOption func(*AuthorityStore)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) AuthorityOption {
	return func(s *AuthorityStore) {
		s.client = client
	}
}

// WithNow replaces the validity clock. Intended for tests.
func WithNow(now func() time.Time) AuthorityOption {
	return func(s *AuthorityStore) {
		s.now = now
	}
}

// NewAuthorityStore creates a store caching under cacheDir. The
// directory is created if it does not exist.
func NewAuthorityStore(cacheDir string, opts ...AuthorityOption) (*AuthorityStore, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	s := &AuthorityStore{
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CA returns the authority CA certificate for mode, serving the cached
// copy when it is still valid and downloading a fresh one otherwise.
func (s *AuthorityStore) CA(ctx context.Context, mode types.Mode) (*x509.Certificate, error) {
	path := s.cachePath(mode)

	if cert, err := s.loadCached(path); err == nil {
		return cert, nil
	}

	data, err := s.download(ctx, caURL(mode))
	if err != nil {
		return nil, err
	}
	cert, err := parseCA(data)
	if err != nil {
		return nil, fmt.Errorf("parsing downloaded CA: %w", err)
	}
	if err := s.checkValidity(cert); err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing CA cache: %w", err)
	}
	return cert, nil
}

func (s *AuthorityStore) cachePath(mode types.Mode) string {
	name := "cacert-playground.crt"
	if mode == types.Production {
		name = "cacert-produkcni.crt"
	}
	return filepath.Join(s.cacheDir, name)
}

func caURL(mode types.Mode) string {
	if mode == types.Production {
		return ProductionCAURL
	}
	return PlaygroundCAURL
}

func (s *AuthorityStore) loadCached(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cert, err := parseCA(data)
	if err != nil {
		return nil, err
	}
	if err := s.checkValidity(cert); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *AuthorityStore) checkValidity(cert *x509.Certificate) error {
	now := s.now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return ErrExpiredCA
	}
	return nil
}

func (s *AuthorityStore) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building CA request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading CA: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading CA: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// parseCA accepts both PEM and raw DER, the authority has published the
// file in either form over time.
func parseCA(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		return x509.ParseCertificate(block.Bytes)
	}
	return x509.ParseCertificate(data)
}
