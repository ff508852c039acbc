package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-rest-api/internal/middleware"
	"marketplace-rest-api/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleListing() *model.Listing {
	return &model.Listing{
		ID:       listingID,
		UserID:   aliceID,
		Title:    "Road bike",
		Price:    decimal.RequireFromString("1234.5"),
		Currency: "USD",
		Status:   model.ListingActive,
	}
}

func TestListingListParsesFilter(t *testing.T) {
	repo := newFakeListings(sampleListing())
	h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet,
		"/api/listings?q=bike&category_id=3&min_price=10&max_price=2000&sort=price_asc&page=2&limit=500", "", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bike", repo.lastQuery.Query)
	assert.Equal(t, int64(3), repo.lastQuery.CategoryID)
	assert.Equal(t, "price_asc", repo.lastQuery.Sort)
	assert.Equal(t, maxListingLimit, repo.lastQuery.Limit)
	assert.Equal(t, maxListingLimit, repo.lastQuery.Offset)
	assert.True(t, repo.lastQuery.MinPrice.Equal(decimal.NewFromInt(10)))

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.Page)
	assert.Equal(t, int64(1), env.Meta.Total)

	var items []model.Listing
	decodeData(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "$1,234.50", items[0].FormattedPrice)
	assert.NotNil(t, items[0].Images)
}

func TestListingListRejectsBadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown sort", "sort=cheapest"},
		{"bad category", "category_id=abc"},
		{"zero category", "category_id=0"},
		{"negative price", "min_price=-1"},
		{"inverted range", "min_price=50&max_price=10"},
		{"huge exponent", "max_price=1e2000000"},
		{"page too far", "page=4611686018427387904"},
		{"page past cap", "page=10001"},
		{"bad page", "page=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewListingHandler(newFakeListings(), newFakeSocial(), zap.NewNop())
			rec := httptest.NewRecorder()
			h.List(rec, newRequest(http.MethodGet, "/api/listings?"+tt.query, "", nil, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListingGet(t *testing.T) {
	h := NewListingHandler(newFakeListings(sampleListing()), newFakeSocial(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/", "", nil, map[string]string{"id": "not-a-uuid"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/", "", nil, map[string]string{"id": convID}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/", "", nil, map[string]string{"id": listingID}))
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Listing
	decodeData(t, rec, &got)
	assert.Equal(t, "Road bike", got.Title)
}

func TestListingGetDatabaseError(t *testing.T) {
	repo := newFakeListings()
	repo.err = errors.New("connection reset")
	h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/", "", nil, map[string]string{"id": listingID}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Equal(t, "DATABASE_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestListingCreate(t *testing.T) {
	alice := &middleware.User{ID: aliceID}

	t.Run("valid", func(t *testing.T) {
		repo := newFakeListings()
		h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())
		body := `{"title":"  Desk lamp ","price":"19.99","category_id":2}`

		rec := httptest.NewRecorder()
		h.Create(rec, newRequest(http.MethodPost, "/api/listings", body, alice, nil))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NotNil(t, repo.created)
		assert.Equal(t, "Desk lamp", repo.created.Title)
		assert.Equal(t, "USD", repo.created.Currency)
		assert.Equal(t, model.ListingPending, repo.created.Status)
		assert.Equal(t, aliceID, repo.created.UserID)
		assert.Equal(t, []string{}, repo.created.Images)
	})

	t.Run("numeric price", func(t *testing.T) {
		repo := newFakeListings()
		h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())
		rec := httptest.NewRecorder()
		h.Create(rec, newRequest(http.MethodPost, "/api/listings",
			`{"title":"Chair","price":0,"currency":"eur","category_id":1}`, alice, nil))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "EUR", repo.created.Currency)
	})

	invalid := map[string]string{
		"short title":    `{"title":"ab","price":"1","category_id":1}`,
		"missing price":  `{"title":"Chair","category_id":1}`,
		"negative price": `{"title":"Chair","price":"-1","category_id":1}`,
		"huge price":     `{"title":"Chair","price":1e2000000,"category_id":1}`,
		"bad currency":   `{"title":"Chair","price":"1","currency":"EURO","category_id":1}`,
		"no category":    `{"title":"Chair","price":"1"}`,
		"bad json":       `{"title":`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			repo := newFakeListings()
			h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())
			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(http.MethodPost, "/api/listings", body, alice, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Nil(t, repo.created)
		})
	}
}

func TestListingCreateRequiresUser(t *testing.T) {
	h := NewListingHandler(newFakeListings(), newFakeSocial(), zap.NewNop())
	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/listings", `{}`, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListingDeleteOwnerOnly(t *testing.T) {
	repo := newFakeListings(sampleListing())
	h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())
	params := map[string]string{"id": listingID}

	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(http.MethodDelete, "/", "", &middleware.User{ID: bobID}, params))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, repo.deleted)

	rec = httptest.NewRecorder()
	h.Delete(rec, newRequest(http.MethodDelete, "/", "", &middleware.User{ID: aliceID}, params))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{listingID}, repo.deleted)
}

func TestListingRecordView(t *testing.T) {
	repo := newFakeListings(sampleListing())
	h := NewListingHandler(repo, newFakeSocial(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.RecordView(rec, newRequest(http.MethodPost, "/", "", nil, map[string]string{"id": listingID}))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]int64
	decodeData(t, rec, &got)
	assert.Equal(t, int64(1), got["views"])

	rec = httptest.NewRecorder()
	h.RecordView(rec, newRequest(http.MethodPost, "/", "", nil, map[string]string{"id": convID}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	repo.err = errors.New("boom")
	rec = httptest.NewRecorder()
	h.RecordView(rec, newRequest(http.MethodPost, "/", "", nil, map[string]string{"id": listingID}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListingLikeUnlike(t *testing.T) {
	social := newFakeSocial()
	h := NewListingHandler(newFakeListings(sampleListing()), social, zap.NewNop())
	bob := &middleware.User{ID: bobID}
	params := map[string]string{"id": listingID}

	rec := httptest.NewRecorder()
	h.Like(rec, newRequest(http.MethodPost, "/", "", bob, params))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, social.likes[bobID+">"+listingID])

	rec = httptest.NewRecorder()
	h.Unlike(rec, newRequest(http.MethodDelete, "/", "", bob, params))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, social.likes[bobID+">"+listingID])
}
