package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexballas/xfilehost/config"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BaseURL = srv.URL + "/"
	cfg.HTTP.DisableHTTP2 = true
	c, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return c, srv
}

func TestResolveLink(t *testing.T) {
	cases := map[string]string{
		"files/1.png":              "https://api.example/v1/files/1.png",
		"/files/1.png":             "https://api.example/v1/files/1.png",
		"///files/1.png":           "https://api.example/v1/files/1.png",
		"https://cdn.example/a":    "https://cdn.example/a",
		"HTTP://cdn.example/a":     "HTTP://cdn.example/a",
		"//cdn.example/a":          "//cdn.example/a",
		"http://api.example/other": "http://api.example/other",
	}
	for link, want := range cases {
		require.Equal(t, want, ResolveLink("https://api.example/v1/", link), link)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.Default())
	require.ErrorIs(t, err, config.ErrNoBaseURL)
}

func TestListFiles(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "15", r.URL.Query().Get("page_size"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"items":[{"id":4,"name":"a.png","direct_link":"/d/4","has_preview":true,"preview_link":"/p/4"}],"total":16,"page":2,"page_size":15}`)
	}), WithTokenSource(StaticToken("tok")))

	page, err := c.ListFiles(context.Background(), "/files", 2, 15)
	require.NoError(t, err)
	require.Equal(t, 16, page.Total)
	require.Equal(t, []Item{{ID: 4, Name: "a.png", DirectLink: "/d/4", HasPreview: true, PreviewLink: "/p/4"}}, page.Items)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"items":[],"total":0}`)
	}))

	_, err := c.ListFiles(context.Background(), "/files", 1, 10)
	require.NoError(t, err)
}

func TestTokenNotSentToOtherHosts(t *testing.T) {
	var sawAuth atomic.Bool
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization") != "")
		_, _ = io.WriteString(w, "payload")
	}))
	defer foreign.Close()

	c, _ := newTestClient(t, http.NotFoundHandler(), WithTokenSource(StaticToken("tok")))

	blob, err := c.Fetch(context.Background(), foreign.URL+"/cdn/photo.jpg")
	require.NoError(t, err)
	require.Equal(t, "payload", string(blob.Data))
	require.Equal(t, "photo.jpg", blob.Name)
	require.False(t, sawAuth.Load())
}

func TestBatchDelete(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/files/batch-delete", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body idsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []int64{1, 2}, body.IDs)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.BatchDelete(context.Background(), []int64{1, 2}))
}

func TestBatchDownload_UsesContentDisposition(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/files/batch-download", r.URL.Path)
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="bundle.zip"`)
		_, _ = w.Write([]byte("PK"))
	}))

	blob, err := c.BatchDownload(context.Background(), []int64{3, 4})
	require.NoError(t, err)
	require.Equal(t, "bundle.zip", blob.Name)
	require.Equal(t, "application/zip", blob.ContentType)
	require.Equal(t, []byte("PK"), blob.Data)
}

func TestServerErrorMessage(t *testing.T) {
	for _, body := range []string{
		`{"error":"quota exceeded"}`,
		`{"detail":"quota exceeded"}`,
		`{"message":"quota exceeded"}`,
		`{"error":"","detail":"quota exceeded"}`,
	} {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, body)
		}))

		err := c.BatchDelete(context.Background(), []int64{1})
		require.Error(t, err, body)
		require.True(t, IsStatus(err, http.StatusForbidden))
		require.Equal(t, "quota exceeded", Message(err, "Delete failed"), body)
	}
}

func TestServerErrorWithoutMessageUsesFallback(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "<html>oops</html>")
	}))

	_, err := c.ListFiles(context.Background(), "/files", 1, 10)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Equal(t, "Failed to load files", Message(err, "Failed to load files"))
}

func TestTransportError(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := c.ListFiles(context.Background(), "/files", 1, 10)
	require.ErrorIs(t, err, ErrTransport)
	require.Equal(t, "Network error", Message(err, "Network error"))
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.HTTP.ReadRetries = 3
	c, err := NewClient(cfg)
	require.NoError(t, err)

	err = c.BatchDelete(context.Background(), []int64{1})
	require.True(t, IsStatus(err, http.StatusServiceUnavailable))
	require.EqualValues(t, 1, calls.Load())
}

func TestMessage_NonAPIError(t *testing.T) {
	require.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	require.Equal(t, "fallback", Message(nil, "fallback"))
}

func TestItemDisplayName(t *testing.T) {
	require.Equal(t, "named.txt", Item{Name: "named.txt", DirectLink: "/d/x"}.DisplayName())
	require.Equal(t, "my file.txt", Item{DirectLink: "https://cdn.example/d/my%20file.txt?sig=1"}.DisplayName())
	require.Equal(t, "", Item{}.DisplayName())
}
