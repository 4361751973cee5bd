package quotes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(zerolog.Nop())
	c.baseURL = serverURL
	return c
}

func TestLastCloseFromMeta(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/2330.TW")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":987.0}}],"error":null}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	price, err := c.LastClose("2330.TW")
	require.NoError(t, err)
	assert.Equal(t, 987.0, price)

	// Cached on the second call.
	price, err = c.LastClose("2330.TW")
	require.NoError(t, err)
	assert.Equal(t, 987.0, price)
	assert.Equal(t, 1, calls)
}

func TestLastCloseFallsBackToDailyCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":0},
			"indicators":{"quote":[{"close":[101.5,102.25,null]}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	price, err := c.LastClose("GOOGL")
	require.NoError(t, err)
	assert.Equal(t, 102.25, price, "the last non-null close wins")
}

func TestLastCloseNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":"Not Found"}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.LastClose("NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chart data")
}

func TestLastCloseHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.LastClose("GOOGL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
