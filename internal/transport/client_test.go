package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexadoc/internal/domain"
	"lexadoc/internal/transport/transporttest"
)

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	tests := []string{"", "not a url", "/relative/path"}
	for _, base := range tests {
		t.Run(base, func(t *testing.T) {
			_, err := NewClient(Config{BaseURL: base})
			assert.Error(t, err)
		})
	}
}

func TestCookieCarriesSession(t *testing.T) {
	b := transporttest.NewBackend()
	defer b.Close()
	b.AddUser("alice", "alice@gmail.com", "secret")
	c := newClient(t, b.URL)
	ctx := context.Background()

	_, err := c.Me(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	require.NoError(t, c.Login(ctx, domain.LoginRequest{Username: "alice", Password: "secret"}))

	p, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice@gmail.com", p.Email)

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, 0, b.SessionCount())
	_, err = c.Me(ctx)
	assert.True(t, IsUnauthorized(err))
}

func TestLoginFailureIsStatusError(t *testing.T) {
	b := transporttest.NewBackend()
	defer b.Close()
	c := newClient(t, b.URL)

	err := c.Login(context.Background(), domain.LoginRequest{Username: "bob", Password: "x"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "login", se.Op)
	assert.False(t, IsUnauthorized(err))
}

func TestDocumentsUploadQueryDelete(t *testing.T) {
	b := transporttest.NewBackend()
	defer b.Close()
	b.AddUser("alice", "alice@gmail.com", "secret")
	c := newClient(t, b.URL)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, domain.LoginRequest{Username: "alice", Password: "secret"}))

	docs, err := c.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)

	doc, err := c.Upload(ctx, domain.NewFile("a.pdf", []byte("%PDF-1.4\nbody")))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.ID)
	assert.Equal(t, "a.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.FileType)

	resp, err := c.Query(ctx, domain.QueryRequest{DocumentID: doc.ID, QueryText: "What is this?"})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf: What is this?", resp.ResponseText)
	assert.Equal(t, doc.ID, resp.DocumentID)

	require.NoError(t, c.DeleteDocument(ctx, doc.ID))
	docs, err = c.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = c.DeleteDocument(ctx, doc.ID)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/api/query", r.URL.Path)
		var req domain.QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(7), req.DocumentID)
		_ = json.NewEncoder(w).Encode(map[string]any{"response_text": "ok", "document_id": 7})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/api/")
	resp, err := c.Query(context.Background(), domain.QueryRequest{DocumentID: 7, QueryText: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.ResponseText)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Len(t, got.Get("X-Request-ID"), 36)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newClient(t, base)
	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
}

func TestContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.ListDocuments(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadNilFile(t *testing.T) {
	c := newClient(t, "http://localhost:1")
	_, err := c.Upload(context.Background(), nil)
	assert.Error(t, err)
}
