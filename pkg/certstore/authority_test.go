package certstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfiscal/go-eet/pkg/types"
)

// redirectingClient rewrites every request to the test server, keeping the
// store pointed at its fixed publication URLs.
func redirectingClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	return &http.Client{
		Transport: &rewriteTransport{target: target},
	}
}

type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestAuthorityStoreDownloadsAndCaches(t *testing.T) {
	certPEM, _, _ := testCertPEM(t)
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(certPEM)
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := NewAuthorityStore(dir, WithHTTPClient(redirectingClient(t, server)))
	require.NoError(t, err)

	ca, err := store.CA(context.Background(), types.Playground)
	require.NoError(t, err)
	assert.Equal(t, "CZ00000019", ca.Subject.CommonName)
	assert.Equal(t, 1, hits)

	// Second call is served from the cache file.
	_, err = store.CA(context.Background(), types.Playground)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestAuthorityStoreRefreshesCorruptCache(t *testing.T) {
	certPEM, _, _ := testCertPEM(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(certPEM)
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := NewAuthorityStore(dir, WithHTTPClient(redirectingClient(t, server)))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.cachePath(types.Playground), []byte("corrupt"), 0o644))

	_, err = store.CA(context.Background(), types.Playground)
	assert.NoError(t, err)
}

func TestAuthorityStoreRejectsExpiredCA(t *testing.T) {
	certPEM, _, _ := testCertPEM(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(certPEM)
	}))
	defer server.Close()

	store, err := NewAuthorityStore(t.TempDir(),
		WithHTTPClient(redirectingClient(t, server)),
		WithNow(func() time.Time { return time.Now().Add(48 * time.Hour) }),
	)
	require.NoError(t, err)

	_, err = store.CA(context.Background(), types.Playground)
	assert.ErrorIs(t, err, ErrExpiredCA)
}

func TestAuthorityStoreDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	store, err := NewAuthorityStore(t.TempDir(), WithHTTPClient(redirectingClient(t, server)))
	require.NoError(t, err)

	_, err = store.CA(context.Background(), types.Production)
	assert.Error(t, err)
}
