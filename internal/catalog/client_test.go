// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistbridge/cli/internal/errors"
)

type staticToken string

func (s staticToken) CatalogToken() (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) CatalogToken() (string, error) { return "", stderrors.New("keychain locked") }

func TestQuerySendsEnvelope(t *testing.T) {
	var got map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/openapi/v1/mcp/servers", r.URL.Path)
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"data":{"total_count":0}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/openapi/v1", "", 0)
	raw, err := c.Query(context.Background(), Query{PageNumber: 2, PageSize: 20, Category: "chat", Search: "fetch"})
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"total_count":0}}`, raw)

	assert.Equal(t, float64(1), got["direction"])
	assert.Equal(t, float64(2), got["page_number"])
	assert.Equal(t, float64(20), got["page_size"])
	assert.Equal(t, "fetch", got["search"])
	assert.Equal(t, map[string]any{"category": "chat", "is_hosted": true}, got["filter"])

	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, headers.Get("User-Agent"))
	assert.Empty(t, headers.Get("Authorization"))
}

func TestEmptyCategoryIsOmittedFromFilter(t *testing.T) {
	b, err := json.Marshal(newRequest(Query{PageNumber: 1, PageSize: 10}))
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &env))
	assert.JSONEq(t, `{"is_hosted":true}`, string(env["filter"]))

	b, err = json.Marshal(newRequest(Query{PageNumber: 1, PageSize: 10, Category: "chat"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &env))
	assert.JSONEq(t, `{"category":"chat","is_hosted":true}`, string(env["filter"]))
}

func TestNon2xxCarriesStatus(t *testing.T) {
	for _, code := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", code)
		}))

		c := New(srv.URL, "", time.Second)
		_, err := c.Query(context.Background(), Query{PageNumber: 1, PageSize: 10})
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, errors.HTTPStatus, errors.KindOf(err), "status %d", code)
		assert.Equal(t, code, errors.StatusOf(err))
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, "", time.Second).QueryByID(context.Background(), "@org/fetch")
	require.Error(t, err)
	assert.Equal(t, errors.Transport, errors.KindOf(err))
	assert.Equal(t, 0, errors.StatusOf(err))
}

func TestTimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-release }))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, "", 50*time.Millisecond).Query(context.Background(), Query{PageNumber: 1, PageSize: 1})
	require.Error(t, err)
	assert.Equal(t, errors.Transport, errors.KindOf(err))
	assert.Contains(t, err.Error(), "timeout")
}

func TestQueryByIDEscapesPath(t *testing.T) {
	var path, rawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		path, rawPath = r.URL.Path, r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second, WithTokenSource(staticToken("ms-secret")))
	_, err := c.QueryByID(context.Background(), "@modelcontextprotocol/fetch server?x=1")
	require.NoError(t, err)
	assert.Equal(t, "/mcp/servers/@modelcontextprotocol/fetch server?x=1", path)
	assert.Equal(t, "/mcp/servers/@modelcontextprotocol/fetch%20server%3Fx=1", rawPath)
}

func TestServerPathRejectsTraversal(t *testing.T) {
	for _, id := range []string{"", "  ", "../admin", "a/./b", "a//b", "a/", "x\ny"} {
		_, err := ServerPath(id)
		assert.Equal(t, errors.InvalidInput, errors.KindOf(err), "id %q", id)
	}
}

func TestBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", time.Second, WithTokenSource(staticToken("ms-secret"))).QueryByID(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer ms-secret", auth)

	_, err = New(srv.URL, "", time.Second, WithTokenSource(failingToken{})).QueryByID(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestQueryValidatesPaging(t *testing.T) {
	c := New("http://127.0.0.1:1", "", time.Second)
	_, err := c.Query(context.Background(), Query{PageNumber: 0, PageSize: 10})
	assert.Equal(t, errors.InvalidInput, errors.KindOf(err))
	_, err = c.Query(context.Background(), Query{PageNumber: 1, PageSize: -1})
	assert.Equal(t, errors.InvalidInput, errors.KindOf(err))
}
