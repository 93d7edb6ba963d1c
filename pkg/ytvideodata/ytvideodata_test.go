package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server) *Client {
	c := New(server.Client())
	c.oembedURL = server.URL + "/oembed"
	c.watchPageURL = server.URL + "/watch/"
	return c
}

func TestGetWithEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL.Query().Get("url"))
		w.Write([]byte(`{"title":"Never Gonna Give You Up","author_name":"Rick Astley"}`))
	}))
	defer server.Close()

	data, err := newTestClient(server).Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", data.Title)
	assert.Equal(t, "Rick Astley", data.AuthorName)
}

func TestGetFallsBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/watch/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Private Cut - YouTube</title>` +
			`<link itemprop="name" content="Some Channel"></head></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	data, err := newTestClient(server).Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Private Cut", data.Title)
	assert.Equal(t, "Some Channel", data.AuthorName)
	assert.Contains(t, data.ThumbnailUrl, "/abc/")
}

func TestGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
