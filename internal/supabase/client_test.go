package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", AnonKey: "anon", ServiceRoleKey: "service"})
	require.NoError(t, err)
	return c
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{AnonKey: "anon"})
	assert.Error(t, err)

	_, err = New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)
}

func TestHeadersFollowIdentity(t *testing.T) {
	var gotKey, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	ctx := context.Background()

	_, err := c.From("listings").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anon", gotKey)
	assert.Equal(t, "Bearer anon", gotAuth)

	_, err = c.From("listings").Execute(WithAccessToken(ctx, "user-jwt"))
	require.NoError(t, err)
	assert.Equal(t, "anon", gotKey)
	assert.Equal(t, "Bearer user-jwt", gotAuth)

	_, err = c.Service().From("listings").Execute(WithAccessToken(ctx, "user-jwt"))
	require.NoError(t, err)
	assert.Equal(t, "service", gotKey)
	assert.Equal(t, "Bearer service", gotAuth)
}

func TestQueryBuilderURL(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Range", "0-9/42")
		w.Write([]byte(`[]`))
	})

	resp, err := c.From("listings").
		Select("id,title").
		Eq("status", "active").
		Gte("price", "10").
		ILike("title", "*bike*").
		Order("created_at", false).
		Limit(10).
		Offset(10).
		Count("exact").
		Execute(context.Background())
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "/rest/v1/listings", got.URL.Path)
	assert.Equal(t, "id,title", q.Get("select"))
	assert.Equal(t, "eq.active", q.Get("status"))
	assert.Equal(t, "gte.10", q.Get("price"))
	assert.Equal(t, "ilike.*bike*", q.Get("title"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "10", q.Get("offset"))
	assert.Equal(t, "count=exact", got.Header.Get("Prefer"))
	assert.Equal(t, int64(42), resp.Total())
}

func TestSingleNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	resp, err := c.From("listings").Select("*").Eq("id", "x").Single().Execute(context.Background())
	require.NoError(t, err)

	var out map[string]any
	err = resp.Decode(&out)
	assert.True(t, IsNotFound(err))
}

func TestInsertSendsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"Bike"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"1","title":"Bike"}]`))
	})

	resp, err := c.From("listings").Insert(context.Background(), map[string]string{"title": "Bike"})
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, resp.Decode(&rows))
	assert.Equal(t, "1", rows[0]["id"])
}

func TestConflictError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	})

	resp, err := c.From("follows").Insert(context.Background(), map[string]string{})
	require.NoError(t, err)
	err = resp.Err()
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
}

func TestRPC(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/increment_listing_views", r.URL.Path)
		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "abc", params["listing_id"])
		w.Write([]byte(`7`))
	})

	resp, err := c.RPC(context.Background(), "increment_listing_views", map[string]string{"listing_id": "abc"})
	require.NoError(t, err)

	var views int64
	require.NoError(t, resp.Decode(&views))
	assert.Equal(t, int64(7), views)
}

func TestParseErrorShapes(t *testing.T) {
	e := parseError(400, []byte(`{"code":400,"error_code":"mfa_verification_failed","msg":"Invalid TOTP code entered"}`))
	assert.Equal(t, "mfa_verification_failed", e.Code)
	assert.Equal(t, "Invalid TOTP code entered", e.Message)
	assert.True(t, IsAuthError(e))

	e = parseError(400, []byte(`{"error":"invalid_grant","error_description":"Invalid code"}`))
	assert.Equal(t, "invalid_grant", e.Code)
	assert.Equal(t, "Invalid code", e.Message)

	for _, code := range []string{"refresh_token_not_found", "refresh_token_already_used", "session_expired"} {
		e = parseError(400, []byte(`{"code":400,"error_code":"`+code+`","msg":"Invalid Refresh Token"}`))
		assert.True(t, IsAuthError(e), code)
	}

	e = parseError(502, []byte(`<html>bad gateway</html>`))
	assert.Equal(t, "Bad Gateway", e.Message)
}
