package api

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(target string, header http.Header) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		c.Request.Header[k] = v
	}
	return c
}

func TestPaginatorRequest(t *testing.T) {
	pages := NewPaginator(config.APIConfig{DefaultPageSize: 6, MaxPageSize: 20})

	tests := []struct {
		name    string
		query   string
		want    types.PageRequest
		wantErr bool
	}{
		{name: "defaults", query: "", want: types.PageRequest{Page: 1, Limit: 6}},
		{name: "explicit", query: "?page=3&limit=10", want: types.PageRequest{Page: 3, Limit: 10}},
		{name: "limit is capped", query: "?limit=500", want: types.PageRequest{Page: 1, Limit: 20}},
		{name: "zero page", query: "?page=0", wantErr: true},
		{name: "non numeric limit", query: "?limit=ten", wantErr: true},
		{name: "negative limit", query: "?limit=-1", wantErr: true},
		{name: "offset would overflow", query: "?page=4611686018427387905&limit=2", wantErr: true},
		{name: "largest page", query: "?page=" + strconv.Itoa(math.MaxInt), wantErr: true},
		{
			name:  "last addressable page",
			query: "?limit=20&page=" + strconv.Itoa(math.MaxInt/20),
			want:  types.PageRequest{Page: math.MaxInt / 20, Limit: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := pages.Request(testContext("/api/recipes"+tt.query, nil))
			if tt.wantErr {
				assert.ErrorIs(t, err, service.ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestNewPageLinks(t *testing.T) {
	c := testContext("http://example.com/api/recipes?page=2&limit=2&tags=lunch", nil)
	page := newPage(c, types.PageRequest{Page: 2, Limit: 2}, 5, []int{3, 4})

	assert.Equal(t, int64(5), page.Count)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/api/recipes?limit=2&page=3&tags=lunch", *page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/recipes?limit=2&tags=lunch", *page.Previous)

	c = testContext("http://example.com/api/recipes", http.Header{"X-Forwarded-Proto": {"https"}})
	page = newPage[int](c, types.PageRequest{Page: 1, Limit: 6}, 7, nil)
	require.NotNil(t, page.Next)
	assert.Equal(t, "https://example.com/api/recipes?page=2", *page.Next)
	assert.Nil(t, page.Previous)
	assert.NotNil(t, page.Results)

	page = newPage(c, types.PageRequest{Page: 2, Limit: 6}, 7, []int{7})
	assert.Nil(t, page.Next)
}

func TestQueryHelpers(t *testing.T) {
	c := testContext("/api/recipes?is_favorited=1&is_in_shopping_cart=false&tags=a,b&tags=c&author=x", nil)

	fav, err := boolQuery(c, "is_favorited")
	require.NoError(t, err)
	require.NotNil(t, fav)
	assert.True(t, *fav)

	cart, err := boolQuery(c, "is_in_shopping_cart")
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.False(t, *cart)

	missing, err := boolQuery(c, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, []string{"a", "b", "c"}, listQuery(c, "tags"))

	_, _, err = intQuery(c, "author")
	assert.ErrorIs(t, err, service.ErrInvalidQuery)

	_, err = boolQuery(testContext("/?is_favorited=yes", nil), "is_favorited")
	assert.ErrorIs(t, err, service.ErrInvalidQuery)
}

func TestParseID(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3"} {
		c := testContext("/", nil)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, err := parseID(c, "id")
		assert.ErrorIs(t, err, errNotFound, raw)
	}

	c := testContext("/", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, err := parseID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}
