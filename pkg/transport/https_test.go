package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.Write([]byte("reply-bytes"))
	}))
	defer server.Close()

	client := NewClient(nil)
	reply, err := client.Send(context.Background(), server.URL,
		[]byte("request-bytes"), "text/xml; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, []byte("reply-bytes"), reply)
	assert.Equal(t, []byte("request-bytes"), gotBody)
	assert.Equal(t, "text/xml; charset=utf-8", gotHeaders.Get("Content-Type"))
	_, hasAction := gotHeaders["Soapaction"]
	assert.True(t, hasAction, "SOAPAction header must be present even when empty")
}

func TestSendNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(nil)
	_, err := client.Send(context.Background(), server.URL, []byte("x"), "text/xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSendHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(nil)
	start := time.Now()
	_, err := client.Send(ctx, server.URL, []byte("x"), "text/xml")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
