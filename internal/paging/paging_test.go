package paging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsAndBounds(t *testing.T) {
	p, err := New(0, 0, "  acme ")
	require.NoError(t, err)
	assert.Equal(t, Params{Page: 1, PageSize: DefaultPageSize, Search: "acme"}, p)

	_, err = New(-1, 10, "")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = New(1, MaxPageSize+1, "")
	assert.ErrorIs(t, err, ErrInvalid)

	p, err = New(3, 25, "")
	require.NoError(t, err)
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "", Params{}.Pattern())
	assert.Equal(t, `%50\%\_off%`, Params{Search: "50%_off"}.Pattern())
}

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		query   string
		want    Params
		invalid bool
	}{
		"defaults":     {query: "", want: Params{Page: 1, PageSize: 20}},
		"explicit":     {query: "?page=2&page_size=50&q=tea", want: Params{Page: 2, PageSize: 50, Search: "tea"}},
		"not a number": {query: "?page=abc", invalid: true},
		"zero page":    {query: "?page=0", invalid: true},
		"too large":    {query: "?page_size=500", invalid: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/customers"+tc.query, nil)

			got, err := FromQuery(c)
			if tc.invalid {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewPage(t *testing.T) {
	p := Params{Page: 2, PageSize: 10}

	page := NewPage[string](nil, p, 21)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.TotalPages)

	assert.Equal(t, 0, NewPage([]int{}, p, 0).TotalPages)
}
